package annotation

import (
	"context"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
)

// sentenceClassifier runs a document classifier over a whole sentence and
// optionally logs the label distribution.
type sentenceClassifier struct {
	classifier common.DocumentClassifier
	logProbs   bool
	logger     logging.Logger
}

func (c sentenceClassifier) classify(ctx context.Context, sent *opinion.Sentence, forms []string) (string, error) {
	label, err := c.classifier.Classify(ctx, forms)
	if err != nil {
		return "", classifierError(err, c.classifier.Name())
	}
	if c.logProbs {
		probs, err := c.classifier.ClassifyProb(ctx, forms)
		if err != nil {
			return "", classifierError(err, c.classifier.Name())
		}
		c.logger.Debug("Sentence label distribution",
			logging.Int("sentence", sent.Index),
			logging.String("label", label),
			logging.Strings("labels", c.classifier.Labels()),
			logging.Any("probabilities", probs))
	}
	return label, nil
}

// aspectDocStrategy attaches one opinion per sentence whose feature is the
// sentence label.
type aspectDocStrategy struct {
	runner
	sentenceClassifier
}

func newAspectDocStrategy(deps Deps, opts Options) *aspectDocStrategy {
	s := &aspectDocStrategy{runner: newRunner(KindAspectDoc, opts, deps)}
	s.sentenceClassifier = sentenceClassifier{
		classifier: common.InstrumentClassifier(deps.AspectClassifier, deps.Metrics),
		logProbs:   opts.LogProbabilities,
		logger:     s.runner.logger,
	}
	s.own(deps.AspectClassifier.Name(), deps.AspectClassifier)
	return s
}

// Annotate implements Strategy.
func (s *aspectDocStrategy) Annotate(ctx context.Context, doc *opinion.Document) error {
	return s.atomic(doc, func() error {
		return s.runSentences(ctx, doc, func(ctx context.Context, sent *opinion.Sentence, forms, ids []string) error {
			if sent.Len() == 0 {
				return nil
			}
			label, err := s.classify(ctx, sent, forms)
			if err != nil {
				return err
			}
			whole, err := opinion.ToSpan(sent, ids, 0, len(ids))
			if err != nil {
				return err
			}
			opinion.Attach(doc, sent.Index, nil, opinion.Expression{Span: whole, Feature: opinion.Label(label)})
			return nil
		})
	})
}
