// Package opinion holds the annotation domain model: documents split into
// sentences of tokens, the opinion graph strategies attach to them, the
// clear-features reset policy and the span mapper.  Nothing here knows about
// NAF, sockets or model files; those live in the infrastructure and
// intelligence layers and convert to and from these types.
package opinion

import (
	"sort"
	"strings"
)

// BoundaryMarker is the reserved leading token literal that opens a new
// logical sub-document inside a stream of sentences.
const BoundaryMarker = "-DOCSTART-"

// ─────────────────────────────────────────────────────────────────────────────
// Token / Sentence
// ─────────────────────────────────────────────────────────────────────────────

// Token is one word form of a sentence.  ID is the stable identifier spans
// refer to (the NAF word form id); Lemma is the lemma of the term covering
// the token and may be empty.
type Token struct {
	ID    string `json:"id"`
	Form  string `json:"form"`
	Lemma string `json:"lemma,omitempty"`
}

// Term is a lexical unit over one or more tokens.  Dictionary sentiments are
// attached to terms, keyed by ID.
type Term struct {
	ID    string `json:"id"`
	Form  string `json:"form"`
	Lemma string `json:"lemma,omitempty"`
}

// Sentence is an ordered, immutable run of tokens.  Index is the sentence
// number declared by the source document and is what opinions record.
type Sentence struct {
	Index  int     `json:"index"`
	Tokens []Token `json:"tokens"`
}

// NewSentence copies tokens so later changes to the caller's slice do not
// leak into the sentence.
func NewSentence(index int, tokens []Token) *Sentence {
	cp := make([]Token, len(tokens))
	copy(cp, tokens)
	return &Sentence{Index: index, Tokens: cp}
}

// Len returns the number of tokens.
func (s *Sentence) Len() int { return len(s.Tokens) }

// IsBoundary reports whether the first token's surface form starts with
// BoundaryMarker.
func (s *Sentence) IsBoundary() bool {
	if len(s.Tokens) == 0 {
		return false
	}
	return strings.HasPrefix(s.Tokens[0].Form, BoundaryMarker)
}

// Forms returns the ordered surface forms.
func (s *Sentence) Forms() []string {
	out := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.Form
	}
	return out
}

// IDs returns the ordered token identifiers.
func (s *Sentence) IDs() []string {
	out := make([]string, len(s.Tokens))
	for i, t := range s.Tokens {
		out[i] = t.ID
	}
	return out
}

// Whole maps the full sentence to a span.
func (s *Sentence) Whole() (Span, error) {
	return ToSpan(s, s.IDs(), 0, s.Len())
}

// ─────────────────────────────────────────────────────────────────────────────
// Opinion graph
// ─────────────────────────────────────────────────────────────────────────────

// Span is a half-open token range [Start, End) of one sentence together with
// the token identifiers it covers.  Build spans with ToSpan.
type Span struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	TokenIDs []string `json:"token_ids"`
}

// Len returns the number of covered tokens.
func (sp Span) Len() int { return sp.End - sp.Start }

// Expression carries the judgement of an opinion.  Polarity is nil when only
// target or aspect extraction ran; Feature is nil when only polarity
// extraction ran.
type Expression struct {
	Span     Span    `json:"span"`
	Polarity *string `json:"polarity,omitempty"`
	Feature  *string `json:"feature,omitempty"`
}

// Opinion is one annotation unit: an optional target and exactly one
// expression, both inside sentence SentenceIndex.
type Opinion struct {
	ID            string     `json:"id"`
	SentenceIndex int        `json:"sentence"`
	Target        *Span      `json:"target,omitempty"`
	Expression    Expression `json:"expression"`
}

// Sentiment is a token-level polarity attached by a dictionary lookup.
// Resource names the dictionary that produced it.
type Sentiment struct {
	Polarity string `json:"polarity"`
	Resource string `json:"resource"`
}

// Label returns a pointer to v, for the optional Expression fields.
func Label(v string) *string { return &v }

// ─────────────────────────────────────────────────────────────────────────────
// Document
// ─────────────────────────────────────────────────────────────────────────────

// Document is a parsed, segmented text plus its opinion graph.  Opinions are
// append-only (see Attach) until a failed pass is rolled back; sentiments are
// keyed by term ID.
type Document struct {
	Lang      string      `json:"lang"`
	Sentences []*Sentence `json:"sentences"`
	Terms     []Term      `json:"terms,omitempty"`
	Opinions  []*Opinion  `json:"opinions"`

	sentiments  map[string][]Sentiment
	opinionBase int
}

// NewDocument builds a document from ordered sentences.
func NewDocument(lang string, sentences []*Sentence) *Document {
	return &Document{
		Lang:       lang,
		Sentences:  sentences,
		sentiments: make(map[string][]Sentiment),
	}
}

// Sentence looks a sentence up by its declared index.
func (d *Document) Sentence(index int) (*Sentence, bool) {
	for _, s := range d.Sentences {
		if s.Index == index {
			return s, true
		}
	}
	return nil, false
}

// Tokens returns every token of the document in reading order.
func (d *Document) Tokens() []Token {
	n := 0
	for _, s := range d.Sentences {
		n += s.Len()
	}
	out := make([]Token, 0, n)
	for _, s := range d.Sentences {
		out = append(out, s.Tokens...)
	}
	return out
}

// DictionaryTerms returns the units a dictionary pass looks up: the terms,
// or one term per token when the document has none.
func (d *Document) DictionaryTerms() []Term {
	if len(d.Terms) > 0 {
		return d.Terms
	}
	toks := d.Tokens()
	out := make([]Term, len(toks))
	for i, t := range toks {
		out[i] = Term{ID: t.ID, Form: t.Form, Lemma: t.Lemma}
	}
	return out
}

// Checkpoint is the state of a document's opinion graph at one point.
type Checkpoint struct {
	opinions   int
	sentiments map[string][]Sentiment
}

// Checkpoint records the opinions and sentiments attached so far.
func (d *Document) Checkpoint() Checkpoint {
	return Checkpoint{opinions: len(d.Opinions), sentiments: copySentiments(d.sentiments)}
}

// Rollback drops every opinion and sentiment attached after cp was taken.
func (d *Document) Rollback(cp Checkpoint) {
	if cp.opinions < len(d.Opinions) {
		for i := cp.opinions; i < len(d.Opinions); i++ {
			d.Opinions[i] = nil
		}
		d.Opinions = d.Opinions[:cp.opinions]
	}
	d.sentiments = copySentiments(cp.sentiments)
}

func copySentiments(m map[string][]Sentiment) map[string][]Sentiment {
	out := make(map[string][]Sentiment, len(m))
	for id, list := range m {
		out[id] = append([]Sentiment(nil), list...)
	}
	return out
}

// AttachSentiment records s on term termID.  A sentiment from the same
// resource replaces the earlier one, so repeating a dictionary pass leaves
// the document unchanged.
func (d *Document) AttachSentiment(termID string, s Sentiment) {
	if d.sentiments == nil {
		d.sentiments = make(map[string][]Sentiment)
	}
	list := d.sentiments[termID]
	for i := range list {
		if list[i].Resource == s.Resource {
			list[i] = s
			return
		}
	}
	d.sentiments[termID] = append(list, s)
}

// Sentiments returns a copy of the sentiments attached to termID.
func (d *Document) Sentiments(termID string) []Sentiment {
	list := d.sentiments[termID]
	if len(list) == 0 {
		return nil
	}
	out := make([]Sentiment, len(list))
	copy(out, list)
	return out
}

// SentimentTermIDs returns the IDs of terms carrying sentiments, sorted.
func (d *Document) SentimentTermIDs() []string {
	ids := make([]string, 0, len(d.sentiments))
	for id, list := range d.sentiments {
		if len(list) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// SentimentCount returns the total number of term sentiments.
func (d *Document) SentimentCount() int {
	n := 0
	for _, list := range d.sentiments {
		n += len(list)
	}
	return n
}
