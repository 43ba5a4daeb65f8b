// Package naf reads and writes NAF (NLP Annotation Format) documents and
// converts them to and from the opinion domain model.  Only the layers the
// annotator touches are modelled (header, raw, text, terms, opinions); any
// other layer is carried through untouched as raw XML.
package naf

import (
	"encoding/xml"
)

// Layer names used in linguistic processor entries.
const (
	LayerText     = "text"
	LayerTerms    = "terms"
	LayerOpinions = "opinions"
)

// xmlNamespace is the namespace encoding/xml maps the reserved "xml" prefix to.
const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Document is the root <NAF> element.
type Document struct {
	XMLName  xml.Name       `xml:"NAF"`
	Lang     string         `xml:"http://www.w3.org/XML/1998/namespace lang,attr,omitempty"`
	Version  string         `xml:"version,attr,omitempty"`
	Attrs    []xml.Attr     `xml:",any,attr"`
	Header   *Header        `xml:"nafHeader,omitempty"`
	Raw      *Raw           `xml:"raw,omitempty"`
	Text     *TextLayer     `xml:"text,omitempty"`
	Terms    *TermsLayer    `xml:"terms,omitempty"`
	Opinions *OpinionsLayer `xml:"opinions,omitempty"`
	Layers   []RawLayer     `xml:",any"`
}

// RawLayer keeps an element the codec does not model, byte for byte.
type RawLayer struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   []byte     `xml:",innerxml"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Header
// ─────────────────────────────────────────────────────────────────────────────

// Header is <nafHeader>.
type Header struct {
	Processors []LinguisticProcessors `xml:"linguisticProcessors"`
	Others     []RawLayer             `xml:",any"`
}

// LinguisticProcessors groups the processors that produced one layer.
type LinguisticProcessors struct {
	Layer      string      `xml:"layer,attr"`
	Processors []Processor `xml:"lp"`
}

// Processor is one <lp> entry.
type Processor struct {
	Name           string `xml:"name,attr"`
	Version        string `xml:"version,attr,omitempty"`
	Timestamp      string `xml:"timestamp,attr,omitempty"`
	BeginTimestamp string `xml:"beginTimestamp,attr,omitempty"`
	EndTimestamp   string `xml:"endTimestamp,attr,omitempty"`
	Hostname       string `xml:"hostname,attr,omitempty"`
}

// Raw is the <raw> text, written back as CDATA.
type Raw struct {
	Text string `xml:",cdata"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Text and terms
// ─────────────────────────────────────────────────────────────────────────────

// TextLayer is <text>.
type TextLayer struct {
	WordForms []WordForm `xml:"wf"`
}

// WordForm is one token of the text layer.
type WordForm struct {
	ID     string     `xml:"id,attr"`
	Sent   string     `xml:"sent,attr,omitempty"`
	Para   string     `xml:"para,attr,omitempty"`
	Offset string     `xml:"offset,attr,omitempty"`
	Length string     `xml:"length,attr,omitempty"`
	Attrs  []xml.Attr `xml:",any,attr"`
	Text   string     `xml:",cdata"`
}

// TermsLayer is <terms>.
type TermsLayer struct {
	Terms []Term `xml:"term"`
}

// Term groups one or more word forms under a lemma and part of speech.
type Term struct {
	ID         string      `xml:"id,attr"`
	Type       string      `xml:"type,attr,omitempty"`
	Lemma      string      `xml:"lemma,attr,omitempty"`
	POS        string      `xml:"pos,attr,omitempty"`
	Morphofeat string      `xml:"morphofeat,attr,omitempty"`
	Attrs      []xml.Attr  `xml:",any,attr"`
	Comment    string      `xml:",comment"`
	Sentiments []Sentiment `xml:"sentiment"`
	Span       Span        `xml:"span"`
	Others     []RawLayer  `xml:",any"`
}

// Sentiment is the term-level <sentiment> element.
type Sentiment struct {
	Resource string     `xml:"resource,attr,omitempty"`
	Polarity string     `xml:"polarity,attr,omitempty"`
	Attrs    []xml.Attr `xml:",any,attr"`
}

// Span is a list of <target id=".."/> references.
type Span struct {
	Targets []Target `xml:"target"`
}

// Target references a word form or term by id.
type Target struct {
	ID   string `xml:"id,attr"`
	Head string `xml:"head,attr,omitempty"`
}

// IDs returns the referenced ids in order.
func (s Span) IDs() []string {
	out := make([]string, len(s.Targets))
	for i, t := range s.Targets {
		out[i] = t.ID
	}
	return out
}

// NewSpan builds a span over ids.
func NewSpan(ids []string) Span {
	ts := make([]Target, len(ids))
	for i, id := range ids {
		ts[i] = Target{ID: id}
	}
	return Span{Targets: ts}
}

// ─────────────────────────────────────────────────────────────────────────────
// Opinions
// ─────────────────────────────────────────────────────────────────────────────

// OpinionsLayer is <opinions>.
type OpinionsLayer struct {
	Opinions []Opinion `xml:"opinion"`
}

// Opinion is one <opinion> with optional target and expression.
type Opinion struct {
	ID         string             `xml:"id,attr"`
	Target     *OpinionTarget     `xml:"opinion_target,omitempty"`
	Expression *OpinionExpression `xml:"opinion_expression,omitempty"`
	Others     []RawLayer         `xml:",any"`
}

// OpinionTarget is <opinion_target>.
type OpinionTarget struct {
	Comment string `xml:",comment"`
	Span    Span   `xml:"span"`
}

// OpinionExpression is <opinion_expression>.
type OpinionExpression struct {
	Polarity                string     `xml:"polarity,attr,omitempty"`
	Strength                string     `xml:"strength,attr,omitempty"`
	SentimentProductFeature string     `xml:"sentiment_product_feature,attr,omitempty"`
	Attrs                   []xml.Attr `xml:",any,attr"`
	Comment                 string     `xml:",comment"`
	Span                    Span       `xml:"span"`
}

// OpinionIDs returns the ids of the opinions already in the document.
func (d *Document) OpinionIDs() []string {
	if d.Opinions == nil {
		return nil
	}
	ids := make([]string, 0, len(d.Opinions.Opinions))
	for _, o := range d.Opinions.Opinions {
		ids = append(ids, o.ID)
	}
	return ids
}
