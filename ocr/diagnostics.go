package ocr

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LanguageFile describes one <lang>.traineddata lookup.
type LanguageFile struct {
	Err  error
	Code string
	Path string
	Size int64
}

// Diagnosis is what a data directory looked like before construction.
type Diagnosis struct {
	ListErr   error
	Entries   []string
	Languages []LanguageFile
}

// Missing returns the language codes whose data file was not found.
func (d Diagnosis) Missing() []string {
	var out []string
	for _, l := range d.Languages {
		if l.Err != nil {
			out = append(out, l.Code)
		}
	}
	return out
}

// SplitLanguages splits a "+"-joined language string, dropping empty codes.
func SplitLanguages(language string) []string {
	var out []string
	for _, code := range strings.Split(language, "+") {
		if code = strings.TrimSpace(code); code != "" {
			out = append(out, code)
		}
	}
	return out
}

// Diagnose lists datapath and checks a traineddata file for every
// requested language, logging what it finds. Construction failures
// from native engines are otherwise opaque.
func Diagnose(datapath, language string, log *zap.Logger) Diagnosis {
	var d Diagnosis
	if datapath == "" {
		return d
	}

	log.Info("Checking tessdata directory", zap.String("path", datapath))
	entries, err := os.ReadDir(datapath)
	if err != nil {
		d.ListErr = err
		log.Error("Failed to read tessdata directory", zap.String("path", datapath), zap.Error(err))
	} else {
		log.Info("tessdata directory contents:")
		for _, e := range entries {
			d.Entries = append(d.Entries, e.Name())
			log.Info("  - " + e.Name())
		}
	}

	for _, code := range SplitLanguages(language) {
		lf := LanguageFile{Code: code, Path: filepath.Join(datapath, code+".traineddata")}
		info, err := os.Stat(lf.Path)
		switch {
		case err != nil:
			lf.Err = err
			log.Error("Missing or inaccessible traineddata", zap.String("language", code), zap.Error(err))
		default:
			lf.Size = info.Size()
			log.Info("Found traineddata", zap.String("language", code), zap.Int64("size", lf.Size))
		}
		d.Languages = append(d.Languages, lf)
	}
	return d
}
