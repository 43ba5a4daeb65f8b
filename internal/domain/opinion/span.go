package opinion

import (
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// ToSpan maps the classifier offsets [start, end) of sentence s onto the
// token identifiers tokenIDs[start:end].  tokenIDs must be the sentence's
// ordered IDs.  Offsets are never clamped: anything outside
// 0 <= start < end <= len(tokenIDs) is an ErrCodeSpanOutOfRange error.
func ToSpan(s *Sentence, tokenIDs []string, start, end int) (Span, error) {
	if s == nil {
		return Span{}, errors.New(errors.ErrCodeSpanOutOfRange, "span requested on nil sentence")
	}
	if len(tokenIDs) != s.Len() {
		return Span{}, errors.Newf(errors.ErrCodeSpanOutOfRange,
			"sentence %d has %d tokens but %d ids were supplied", s.Index, s.Len(), len(tokenIDs))
	}
	if start < 0 || end > len(tokenIDs) || start >= end {
		return Span{}, errors.Newf(errors.ErrCodeSpanOutOfRange,
			"span [%d,%d) outside sentence %d of length %d", start, end, s.Index, len(tokenIDs))
	}

	ids := make([]string, end-start)
	copy(ids, tokenIDs[start:end])
	return Span{Start: start, End: end, TokenIDs: ids}, nil
}

// Within reports whether every token ID of sp belongs to s.
func Within(sp Span, s *Sentence) bool {
	if s == nil {
		return false
	}
	own := make(map[string]struct{}, s.Len())
	for _, t := range s.Tokens {
		own[t.ID] = struct{}{}
	}
	for _, id := range sp.TokenIDs {
		if _, ok := own[id]; !ok {
			return false
		}
	}
	return true
}
