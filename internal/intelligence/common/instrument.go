package common

import (
	"context"
	"time"
)

// InstrumentLabeler wraps l so every LabelSequence call is reported to m.
func InstrumentLabeler(l SequenceLabeler, m IntelligenceMetrics) SequenceLabeler {
	if m == nil {
		return l
	}
	return &instrumentedLabeler{SequenceLabeler: l, metrics: m}
}

type instrumentedLabeler struct {
	SequenceLabeler
	metrics IntelligenceMetrics
}

func (i *instrumentedLabeler) LabelSequence(ctx context.Context, tokens []string) ([]LabeledSpan, error) {
	start := time.Now()
	spans, err := i.SequenceLabeler.LabelSequence(ctx, tokens)
	i.metrics.RecordInference(ctx, &InferenceMetricParams{
		ModelName:   i.Name(),
		TaskType:    TaskLabelSequence,
		DurationMs:  msSince(start),
		Success:     err == nil,
		InputTokens: len(tokens),
		Outputs:     len(spans),
	})
	return spans, err
}

// InstrumentClassifier wraps c so Classify and ClassifyProb are reported to m.
func InstrumentClassifier(c DocumentClassifier, m IntelligenceMetrics) DocumentClassifier {
	if m == nil {
		return c
	}
	return &instrumentedClassifier{DocumentClassifier: c, metrics: m}
}

type instrumentedClassifier struct {
	DocumentClassifier
	metrics IntelligenceMetrics
}

func (i *instrumentedClassifier) Classify(ctx context.Context, tokens []string) (string, error) {
	start := time.Now()
	label, err := i.DocumentClassifier.Classify(ctx, tokens)
	i.metrics.RecordInference(ctx, &InferenceMetricParams{
		ModelName:   i.Name(),
		TaskType:    TaskClassify,
		DurationMs:  msSince(start),
		Success:     err == nil,
		InputTokens: len(tokens),
		Outputs:     1,
	})
	return label, err
}

func (i *instrumentedClassifier) ClassifyProb(ctx context.Context, tokens []string) ([]float64, error) {
	start := time.Now()
	probs, err := i.DocumentClassifier.ClassifyProb(ctx, tokens)
	i.metrics.RecordInference(ctx, &InferenceMetricParams{
		ModelName:   i.Name(),
		TaskType:    TaskClassifyProb,
		DurationMs:  msSince(start),
		Success:     err == nil,
		InputTokens: len(tokens),
		Outputs:     len(probs),
	})
	return probs, err
}

// InstrumentLexicon wraps x so every lookup is reported to m.  Backend
// errors are not counted as misses.
func InstrumentLexicon(x PolarityLexicon, m IntelligenceMetrics) PolarityLexicon {
	if m == nil {
		return x
	}
	return &instrumentedLexicon{PolarityLexicon: x, metrics: m}
}

type instrumentedLexicon struct {
	PolarityLexicon
	metrics IntelligenceMetrics
}

func (i *instrumentedLexicon) Lookup(ctx context.Context, form string) (string, bool, error) {
	pol, ok, err := i.PolarityLexicon.Lookup(ctx, form)
	if err == nil {
		i.metrics.RecordLexiconLookup(ctx, i.Name(), ok)
	}
	return pol, ok, err
}
