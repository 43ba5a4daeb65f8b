package annotation

import (
	"context"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
)

// absaStrategy pairs every opinion target with the polarity of its whole
// sentence.  The classifier runs once per target on the same input, so all
// targets of a sentence normally share one polarity.
type absaStrategy struct {
	runner
	labeler    common.SequenceLabeler
	classifier sentenceClassifier
}

func newABSAStrategy(deps Deps, opts Options) *absaStrategy {
	s := &absaStrategy{
		runner:  newRunner(KindABSA, opts, deps),
		labeler: common.InstrumentLabeler(deps.TargetLabeler, deps.Metrics),
	}
	s.classifier = sentenceClassifier{
		classifier: common.InstrumentClassifier(deps.PolarityClassifier, deps.Metrics),
		logProbs:   opts.LogProbabilities,
		logger:     s.logger,
	}
	s.own(deps.TargetLabeler.Name(), deps.TargetLabeler)
	s.own(deps.PolarityClassifier.Name(), deps.PolarityClassifier)
	return s
}

// Annotate implements Strategy.
func (s *absaStrategy) Annotate(ctx context.Context, doc *opinion.Document) error {
	return s.atomic(doc, func() error {
		return s.runSentences(ctx, doc, func(ctx context.Context, sent *opinion.Sentence, forms, ids []string) error {
			targets, err := s.labeler.LabelSequence(ctx, forms)
			if err != nil {
				return classifierError(err, s.labeler.Name())
			}
			if len(targets) == 0 {
				return nil
			}
			whole, err := opinion.ToSpan(sent, ids, 0, len(ids))
			if err != nil {
				return err
			}
			for _, t := range targets {
				target, err := opinion.ToSpan(sent, ids, t.Start, t.End)
				if err != nil {
					return err
				}
				label, err := s.classifier.classify(ctx, sent, forms)
				if err != nil {
					return err
				}
				expr := opinion.Expression{
					Span:     *copySpan(whole),
					Polarity: opinion.Label(label),
					Feature:  opinion.Label(t.Type),
				}
				opinion.Attach(doc, sent.Index, &target, expr)
			}
			return nil
		})
	})
}
