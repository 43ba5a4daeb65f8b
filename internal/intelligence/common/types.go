package common

import (
	"context"
	"errors"
)

// ---------------------------------------------------------------------------
// ModelKind enum
// ---------------------------------------------------------------------------

// ModelKind identifies the capability a model provides.
type ModelKind string

const (
	KindSequenceLabeler    ModelKind = "sequence_labeler"
	KindDocumentClassifier ModelKind = "document_classifier"
	KindPolarityLexicon    ModelKind = "polarity_lexicon"
)

// String implements fmt.Stringer.
func (k ModelKind) String() string { return string(k) }

// ---------------------------------------------------------------------------
// Capability interfaces
// ---------------------------------------------------------------------------

// LabeledSpan is one typed match returned by a sequence labeler: the
// half-open token offsets [Start, End) of the input and its type label.
type LabeledSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
}

// SequenceLabeler finds typed spans in a token sequence.  Implementations
// may carry adaptive state between calls; ResetAdaptiveState clears it.
type SequenceLabeler interface {
	Name() string
	LabelSequence(ctx context.Context, tokens []string) ([]LabeledSpan, error)
	ResetAdaptiveState()
}

// DocumentClassifier assigns one label to a whole token sequence.
// ClassifyProb returns one probability per entry of Labels, in that order.
type DocumentClassifier interface {
	Name() string
	Classify(ctx context.Context, tokens []string) (string, error)
	ClassifyProb(ctx context.Context, tokens []string) ([]float64, error)
	Labels() []string
	ResetAdaptiveState()
}

// PolarityLexicon looks up the polarity of a surface form.  ok is false on
// a miss; err is reserved for backend failures.
type PolarityLexicon interface {
	Name() string
	Lookup(ctx context.Context, form string) (polarity string, ok bool, err error)
}

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidInput   = errors.New("invalid model input")
	ErrModelNotLoaded = errors.New("model not loaded")
)
