package naf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// ToDomain builds the opinion document the strategies work on.  Tokens are
// the word forms of the text layer, in text order, grouped into sentences by
// their sent attribute; each carries the lemma of the first term covering it.
// Word forms no term covers are kept.  The terms layer is copied into the
// document for the dictionary pass.  A document with word forms but no terms
// gets one term per word form, added to doc so Merge can reference them.
func ToDomain(doc *Document) (*opinion.Document, error) {
	if doc == nil {
		return nil, errors.New(errors.ErrCodeDocumentEmpty, "nil NAF document")
	}
	if doc.Text == nil || len(doc.Text.WordForms) == 0 {
		return opinion.NewDocument(doc.Lang, nil), nil
	}

	wfPos := make(map[string]int, len(doc.Text.WordForms))
	for i, wf := range doc.Text.WordForms {
		wfPos[wf.ID] = i
	}
	if doc.Terms == nil || len(doc.Terms.Terms) == 0 {
		doc.Terms = synthesizeTerms(doc.Text)
	}

	terms := make([]opinion.Term, 0, len(doc.Terms.Terms))
	lemmas := make(map[string]string, len(doc.Text.WordForms))
	for _, term := range doc.Terms.Terms {
		ids := term.Span.IDs()
		if len(ids) == 0 {
			return nil, errors.Newf(errors.ErrCodeUnknownTerm, "term %s has an empty span", term.ID)
		}
		forms := make([]string, 0, len(ids))
		for _, id := range ids {
			pos, ok := wfPos[id]
			if !ok {
				return nil, errors.Newf(errors.ErrCodeUnknownTerm, "term %s references unknown word form %s", term.ID, id)
			}
			forms = append(forms, doc.Text.WordForms[pos].Text)
			if _, seen := lemmas[id]; !seen {
				lemmas[id] = term.Lemma
			}
		}
		terms = append(terms, opinion.Term{ID: term.ID, Form: strings.Join(forms, " "), Lemma: term.Lemma})
	}

	var (
		sentences []*opinion.Sentence
		current   []opinion.Token
		index     = -1
	)
	flush := func() {
		if len(current) > 0 {
			sentences = append(sentences, opinion.NewSentence(index, current))
		}
		current = current[:0]
	}
	for _, wf := range doc.Text.WordForms {
		sent, err := sentenceNumber(wf)
		if err != nil {
			return nil, err
		}
		if sent != index {
			flush()
			index = sent
		}
		current = append(current, opinion.Token{ID: wf.ID, Form: wf.Text, Lemma: lemmas[wf.ID]})
	}
	flush()

	od := opinion.NewDocument(doc.Lang, sentences)
	od.Terms = terms
	od.ReserveOpinionIDs(doc.OpinionIDs())
	return od, nil
}

func sentenceNumber(wf WordForm) (int, error) {
	if wf.Sent == "" {
		return 0, errors.Newf(errors.ErrCodeDocumentMalformed, "word form %s has no sent attribute", wf.ID)
	}
	n, err := strconv.Atoi(wf.Sent)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDocumentMalformed,
			fmt.Sprintf("word form %s has a non-numeric sent attribute %q", wf.ID, wf.Sent))
	}
	return n, nil
}

func synthesizeTerms(text *TextLayer) *TermsLayer {
	layer := &TermsLayer{Terms: make([]Term, len(text.WordForms))}
	for i, wf := range text.WordForms {
		layer.Terms[i] = Term{
			ID:      fmt.Sprintf("t%d", i+1),
			Type:    "open",
			Lemma:   wf.Text,
			Comment: wf.Text,
			Span:    NewSpan([]string{wf.ID}),
		}
	}
	return layer
}

// Merge writes the opinions and term sentiments of od into doc.  Opinion
// spans over word forms are written as the terms covering them, in order of
// first appearance.  Opinions whose id is already present are skipped, so
// merging twice is harmless.
func Merge(doc *Document, od *opinion.Document) error {
	if doc == nil || od == nil {
		return errors.New(errors.ErrCodeSerializationFailed, "merge requires both documents")
	}

	if err := mergeSentiments(doc, od); err != nil {
		return err
	}

	if len(od.Opinions) == 0 {
		return nil
	}
	index := newTermIndex(doc)
	if doc.Opinions == nil {
		doc.Opinions = &OpinionsLayer{}
	}
	seen := make(map[string]struct{}, len(doc.Opinions.Opinions))
	for _, o := range doc.Opinions.Opinions {
		seen[o.ID] = struct{}{}
	}
	merged := make([]Opinion, 0, len(od.Opinions))
	for _, op := range od.Opinions {
		if _, dup := seen[op.ID]; dup {
			continue
		}
		out, err := toNAFOpinion(op, index)
		if err != nil {
			return err
		}
		merged = append(merged, out)
	}
	doc.Opinions.Opinions = append(doc.Opinions.Opinions, merged...)
	return nil
}

// termIndex resolves word form ids to the ids of the terms covering them.
type termIndex struct {
	byWordForm map[string][]string
	forms      map[string]string
}

func newTermIndex(doc *Document) termIndex {
	idx := termIndex{byWordForm: map[string][]string{}, forms: map[string]string{}}
	if doc.Terms == nil {
		return idx
	}
	text := map[string]string{}
	if doc.Text != nil {
		for _, wf := range doc.Text.WordForms {
			text[wf.ID] = wf.Text
		}
	}
	for _, term := range doc.Terms.Terms {
		ids := term.Span.IDs()
		parts := make([]string, 0, len(ids))
		for _, id := range ids {
			idx.byWordForm[id] = append(idx.byWordForm[id], term.ID)
			parts = append(parts, text[id])
		}
		idx.forms[term.ID] = strings.Join(parts, " ")
	}
	return idx
}

// resolve returns the terms covering wfIDs without duplicates.
func (x termIndex) resolve(wfIDs []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, wf := range wfIDs {
		for _, id := range x.byWordForm[wf] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

func (x termIndex) span(opinionID, role string, wfIDs []string) (Span, string, error) {
	ids := x.resolve(wfIDs)
	if len(ids) == 0 {
		return Span{}, "", errors.Newf(errors.ErrCodeUnknownTerm,
			"%s of opinion %s covers no term (word forms %s)", role, opinionID, strings.Join(wfIDs, ","))
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = x.forms[id]
	}
	return NewSpan(ids), strings.Join(parts, " "), nil
}

func mergeSentiments(doc *Document, od *opinion.Document) error {
	ids := od.SentimentTermIDs()
	if len(ids) == 0 {
		return nil
	}
	if doc.Terms == nil {
		return errors.New(errors.ErrCodeUnknownTerm, "sentiments attached but the document has no terms")
	}
	byID := make(map[string]int, len(doc.Terms.Terms))
	for i, t := range doc.Terms.Terms {
		byID[t.ID] = i
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return errors.Newf(errors.ErrCodeUnknownTerm, "sentiment attached to unknown term %s", id)
		}
	}
	for _, id := range ids {
		term := &doc.Terms.Terms[byID[id]]
		for _, s := range od.Sentiments(id) {
			term.Sentiments = upsertSentiment(term.Sentiments, Sentiment{Resource: s.Resource, Polarity: s.Polarity})
		}
	}
	return nil
}

func upsertSentiment(list []Sentiment, s Sentiment) []Sentiment {
	for i := range list {
		if list[i].Resource == s.Resource {
			list[i].Polarity = s.Polarity
			return list
		}
	}
	return append(list, s)
}

func toNAFOpinion(op *opinion.Opinion, index termIndex) (Opinion, error) {
	out := Opinion{ID: op.ID}
	if op.Target != nil {
		span, comment, err := index.span(op.ID, "target", op.Target.TokenIDs)
		if err != nil {
			return Opinion{}, err
		}
		out.Target = &OpinionTarget{Comment: comment, Span: span}
	}
	span, comment, err := index.span(op.ID, "expression", op.Expression.Span.TokenIDs)
	if err != nil {
		return Opinion{}, err
	}
	expr := &OpinionExpression{Comment: comment, Span: span}
	if op.Expression.Polarity != nil {
		expr.Polarity = *op.Expression.Polarity
	}
	if op.Expression.Feature != nil {
		expr.SentimentProductFeature = *op.Expression.Feature
	}
	out.Expression = expr
	return out, nil
}
