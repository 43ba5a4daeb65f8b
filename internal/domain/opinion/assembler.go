package opinion

import (
	"fmt"
	"strconv"
	"strings"
)

// Attach appends a new opinion to doc and returns it.  Existing opinions are
// never edited, removed or de-duplicated.  IDs run o1, o2, ... after the
// highest ID reserved with ReserveOpinionIDs or already attached.
func Attach(doc *Document, sentenceIndex int, target *Span, expr Expression) *Opinion {
	op := &Opinion{
		ID:            fmt.Sprintf("o%d", doc.opinionBase+len(doc.Opinions)+1),
		SentenceIndex: sentenceIndex,
		Target:        target,
		Expression:    expr,
	}
	doc.Opinions = append(doc.Opinions, op)
	return op
}

// ReserveOpinionIDs makes Attach number new opinions after the highest
// "o<N>" in ids.  It is used for opinions the source document already has.
// Calling it after opinions were attached would reuse IDs and is ignored.
func (d *Document) ReserveOpinionIDs(ids []string) {
	if len(d.Opinions) > 0 {
		return
	}
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, "o"))
		if err != nil || !strings.HasPrefix(id, "o") {
			continue
		}
		if n > d.opinionBase {
			d.opinionBase = n
		}
	}
}
