package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/translator-bridge/bridge"
	"github.com/wippyai/translator-bridge/dictionary"
	"github.com/wippyai/translator-bridge/host"
	"github.com/wippyai/translator-bridge/logging"
	"github.com/wippyai/translator-bridge/ocr"
	"github.com/wippyai/translator-bridge/ocr/tesseract"
)

type options struct {
	Dict        string `validate:"required_with=Lookup,omitempty,file"`
	Lookup      string
	Mucab       string `validate:"required_with=Text,omitempty,file"`
	Text        string
	Image       string `validate:"omitempty,file"`
	Annotate    string `validate:"excluded_without=Image"`
	Tessdata    string
	Lang        string `validate:"required_with=Image"`
	PSM         int    `validate:"min=0,max=13"`
	Spaced      bool
	Verbose     bool
	Interactive bool
	Schema      bool
}

var validate = validator.New()

func main() {
	var opts options
	flag.StringVar(&opts.Dict, "dict", "", "Path to a tarkka dictionary file")
	flag.StringVar(&opts.Lookup, "lookup", "", "Word to look up in -dict")
	flag.StringVar(&opts.Mucab, "mucab", "", "Path to a mucab transliteration dictionary")
	flag.StringVar(&opts.Text, "text", "", "Japanese text to transliterate with -mucab")
	flag.BoolVar(&opts.Spaced, "spaced", true, "Separate transliterated words with spaces")
	flag.StringVar(&opts.Image, "image", "", "Image file to recognize")
	flag.StringVar(&opts.Annotate, "annotate", "", "Write -image with word boxes drawn to this PNG file")
	flag.StringVar(&opts.Tessdata, "tessdata", os.Getenv("TESSDATA_PREFIX"), "Tesseract data directory")
	flag.StringVar(&opts.Lang, "lang", "eng", "Tesseract language(s), e.g. eng+jpn")
	flag.IntVar(&opts.PSM, "psm", int(ocr.PSMAuto), "Page segmentation mode (0-13)")
	flag.BoolVar(&opts.Verbose, "v", false, "Log bridge activity to stderr")
	flag.BoolVar(&opts.Interactive, "i", false, "Interactive dictionary browser (requires -dict)")
	flag.BoolVar(&opts.Schema, "schema", false, "Print the JSON schema of dictionary payloads and exit")
	flag.Parse()

	if opts.Schema {
		if err := printSchema(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := validate.Struct(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid flags: %v\n", err)
		usage()
		os.Exit(1)
	}
	if opts.Lookup == "" && opts.Text == "" && opts.Image == "" && !opts.Interactive {
		usage()
		os.Exit(1)
	}

	b := bridge.New(
		bridge.WithLogger(newLogger(opts.Verbose)),
		bridge.WithOCREngineFactory(tesseract.New),
	)
	defer b.Close()

	if opts.Interactive {
		if opts.Dict == "" {
			fmt.Fprintln(os.Stderr, "Error: -i requires -dict")
			os.Exit(1)
		}
		if err := runInteractive(b, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p := newPrinter(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
	if err := run(b, p, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: bridge -dict <file.trkk> -lookup <word>")
	fmt.Fprintln(os.Stderr, "       bridge -mucab <dict.tsv> -text <text> [-spaced=false]")
	fmt.Fprintln(os.Stderr, "       bridge -image <file> [-tessdata dir] [-lang eng] [-psm 3] [-annotate out.png]")
	fmt.Fprintln(os.Stderr, "       bridge -dict <file.trkk> -i  (interactive mode)")
	fmt.Fprintln(os.Stderr, "       bridge -schema")
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	return logging.New(logging.NewWriterSink(os.Stderr))
}

func run(b *bridge.Bridge, p *printer, opts options) error {
	env := host.NewHeap()

	if opts.Lookup != "" {
		if err := lookup(b, env, p, opts.Dict, opts.Lookup); err != nil {
			return err
		}
	}
	if opts.Text != "" {
		if err := transliterate(b, env, p, opts.Mucab, opts.Text, opts.Spaced); err != nil {
			return err
		}
	}
	if opts.Image != "" {
		if err := recognize(b, env, p, opts); err != nil {
			return err
		}
	}
	return nil
}

func lookup(b *bridge.Bridge, env *host.Heap, p *printer, path, word string) error {
	h := b.TarkkaOpen(path)
	if h == 0 {
		return fmt.Errorf("open dictionary %s", path)
	}
	defer b.TarkkaClose(h)

	ref, status := b.TarkkaLookupStatus(env, h, word)
	switch status {
	case bridge.LookupNotFound:
		p.notFound(word)
		return nil
	case bridge.LookupFailed:
		return fmt.Errorf("lookup %q failed", word)
	}
	v, err := env.Resolve(ref)
	if err != nil {
		return fmt.Errorf("resolve result: %w", err)
	}
	p.word(v.(*host.Object))
	return nil
}

func transliterate(b *bridge.Bridge, env *host.Heap, p *printer, path, text string, spaced bool) error {
	h := b.MucabOpen(path)
	if h == 0 {
		return fmt.Errorf("open transliteration dictionary %s", path)
	}
	defer b.MucabClose(h)

	ref := b.MucabTransliterateJP(env, h, text, spaced)
	if ref == host.Null {
		return fmt.Errorf("transliterate %q failed", text)
	}
	v, err := env.Resolve(ref)
	if err != nil {
		return fmt.Errorf("resolve result: %w", err)
	}
	p.line(v.(string))
	return nil
}

func printSchema() error {
	reflector := jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(&dictionary.Word{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
