package translit

import "strings"

var monographs = map[rune]string{
	'あ': "a", 'い': "i", 'う': "u", 'え': "e", 'お': "o",
	'か': "ka", 'き': "ki", 'く': "ku", 'け': "ke", 'こ': "ko",
	'が': "ga", 'ぎ': "gi", 'ぐ': "gu", 'げ': "ge", 'ご': "go",
	'さ': "sa", 'し': "shi", 'す': "su", 'せ': "se", 'そ': "so",
	'ざ': "za", 'じ': "ji", 'ず': "zu", 'ぜ': "ze", 'ぞ': "zo",
	'た': "ta", 'ち': "chi", 'つ': "tsu", 'て': "te", 'と': "to",
	'だ': "da", 'ぢ': "ji", 'づ': "zu", 'で': "de", 'ど': "do",
	'な': "na", 'に': "ni", 'ぬ': "nu", 'ね': "ne", 'の': "no",
	'は': "ha", 'ひ': "hi", 'ふ': "fu", 'へ': "he", 'ほ': "ho",
	'ば': "ba", 'び': "bi", 'ぶ': "bu", 'べ': "be", 'ぼ': "bo",
	'ぱ': "pa", 'ぴ': "pi", 'ぷ': "pu", 'ぺ': "pe", 'ぽ': "po",
	'ま': "ma", 'み': "mi", 'む': "mu", 'め': "me", 'も': "mo",
	'や': "ya", 'ゆ': "yu", 'よ': "yo",
	'ら': "ra", 'り': "ri", 'る': "ru", 'れ': "re", 'ろ': "ro",
	'わ': "wa", 'ゐ': "i", 'ゑ': "e", 'を': "o",
	'ん': "n", 'ゔ': "vu",
	'ぁ': "a", 'ぃ': "i", 'ぅ': "u", 'ぇ': "e", 'ぉ': "o",
	'ゃ': "ya", 'ゅ': "yu", 'ょ': "yo", 'ゎ': "wa",
}

// youonStems are the consonant stems of i-column kana combined with a
// small ya/yu/yo.
var youonStems = map[rune]string{
	'き': "ky", 'ぎ': "gy", 'し': "sh", 'じ': "j", 'ち': "ch", 'ぢ': "j",
	'に': "ny", 'ひ': "hy", 'び': "by", 'ぴ': "py", 'み': "my", 'り': "ry",
}

var youonVowels = map[rune]string{'ゃ': "a", 'ゅ': "u", 'ょ': "o"}

// Combinations with small vowels used mostly in loanwords.
var extended = map[string]string{
	"ふぁ": "fa", "ふぃ": "fi", "ふぇ": "fe", "ふぉ": "fo",
	"てぃ": "ti", "でぃ": "di", "とぅ": "tu", "どぅ": "du",
	"うぃ": "wi", "うぇ": "we", "うぉ": "wo",
	"ゔぁ": "va", "ゔぃ": "vi", "ゔぇ": "ve", "ゔぉ": "vo",
	"しぇ": "she", "じぇ": "je", "ちぇ": "che",
	"つぁ": "tsa", "つぃ": "tsi", "つぇ": "tse", "つぉ": "tso",
}

const (
	sokuon    = 'っ'
	longVowel = 'ー'
	moraicN   = 'ん'
)

func isHiragana(r rune) bool { return r >= 0x3041 && r <= 0x3096 }
func isKatakana(r rune) bool { return r >= 0x30A1 && r <= 0x30FA }

func isKana(r rune) bool {
	return isHiragana(r) || isKatakana(r) || r == longVowel
}

// toHiragana maps katakana onto hiragana. Katakana without a hiragana
// counterpart are returned unchanged.
func toHiragana(r rune) rune {
	if r >= 0x30A1 && r <= 0x30F6 {
		return r - 0x60
	}
	return r
}

func isVowel(b byte) bool {
	return b == 'a' || b == 'i' || b == 'u' || b == 'e' || b == 'o'
}

// romanize renders kana in Hepburn romaji. Characters it does not know
// are copied through. A small tsu that cannot double the next consonant
// (at the end, or before a vowel) is written as an apostrophe. endsN reports a trailing syllabic n, which needs an
// apostrophe if the next token starts with a vowel or y.
func romanize(kana string) (out string, endsN bool) {
	runes := []rune(kana)
	for i, r := range runes {
		runes[i] = toHiragana(r)
	}

	var sb strings.Builder
	sb.Grow(len(runes) * 2)
	sokuons := 0
	prevN := false
	lastVowel := byte(0)

	emit := func(syl string) {
		if syl == "" {
			return
		}
		if prevN && (isVowel(syl[0]) || syl[0] == 'y') {
			sb.WriteByte('\'')
		}
		for ; sokuons > 0; sokuons-- {
			c := syl[0]
			switch {
			case strings.HasPrefix(syl, "ch"):
				sb.WriteByte('t')
			case c >= 'a' && c <= 'z' && !isVowel(c) && c != 'n':
				sb.WriteByte(c)
			default:
				// Nothing to double: keep the glottal stop visible.
				sb.WriteByte('\'')
			}
		}
		sb.WriteString(syl)
		if v := syl[len(syl)-1]; isVowel(v) {
			lastVowel = v
		} else {
			lastVowel = 0
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case sokuon:
			sokuons++
			continue
		case longVowel:
			if lastVowel != 0 {
				sb.WriteByte(lastVowel)
			} else {
				sb.WriteByte('-')
			}
			prevN = false
			continue
		}

		var syl string
		if i+1 < len(runes) {
			next := runes[i+1]
			if stem, ok := youonStems[r]; ok {
				if v, ok := youonVowels[next]; ok {
					syl = stem + v
				}
			}
			if syl == "" {
				syl = extended[string([]rune{r, next})]
			}
			if syl != "" {
				i++
			}
		}
		if syl == "" {
			if m, ok := monographs[r]; ok {
				syl = m
			} else {
				syl = string(r)
			}
		}

		emit(syl)
		prevN = r == moraicN
	}
	for ; sokuons > 0; sokuons-- {
		sb.WriteByte('\'')
	}
	return sb.String(), prevN
}
