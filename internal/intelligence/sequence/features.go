package sequence

import (
	"strings"
	"unicode"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
)

const (
	sentenceStart = "<S>"
	sentenceEnd   = "</S>"
)

// tokenFeatures returns the contextual features of token i.  keys holds the
// normalized forms of the whole sentence.
//
//	w=<form> w-1=<prev> w+1=<next> pre3=<prefix> suf3=<suffix> shape=<shape>
func tokenFeatures(forms, keys []string, i int) []string {
	prev, next := sentenceStart, sentenceEnd
	if i > 0 {
		prev = keys[i-1]
	}
	if i < len(keys)-1 {
		next = keys[i+1]
	}
	key := keys[i]
	feats := []string{
		"w=" + key,
		"w-1=" + prev,
		"w+1=" + next,
		"shape=" + wordShape(forms[i]),
	}
	if r := []rune(key); len(r) > 3 {
		feats = append(feats, "pre3="+string(r[:3]), "suf3="+string(r[len(r)-3:]))
	}
	return feats
}

// wordShape maps letters to X/x and digits to d, collapsing runs:
// "iPhone12" -> "xXxd".
func wordShape(form string) string {
	var sb strings.Builder
	var last rune
	for _, r := range form {
		var c rune
		switch {
		case unicode.IsUpper(r):
			c = 'X'
		case unicode.IsLetter(r):
			c = 'x'
		case unicode.IsDigit(r):
			c = 'd'
		default:
			c = r
		}
		if c != last {
			sb.WriteRune(c)
			last = c
		}
	}
	return sb.String()
}

func normalizeAll(forms []string) []string {
	keys := make([]string, len(forms))
	for i, f := range forms {
		keys[i] = common.NormalizeForm(f)
	}
	return keys
}
