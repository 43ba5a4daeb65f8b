package annotation

import (
	"context"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
)

// polarityStrategy tags term sentiments from a dictionary and attaches one
// polarity opinion per sentence from a document classifier.  Either source
// may be missing.
type polarityStrategy struct {
	runner
	lexicon    common.PolarityLexicon
	classifier *sentenceClassifier
}

func newPolarityStrategy(deps Deps, opts Options) *polarityStrategy {
	s := &polarityStrategy{runner: newRunner(KindPolarity, opts, deps)}
	if deps.Lexicon != nil {
		s.lexicon = common.InstrumentLexicon(deps.Lexicon, deps.Metrics)
	}
	if deps.PolarityClassifier != nil {
		s.classifier = &sentenceClassifier{
			classifier: common.InstrumentClassifier(deps.PolarityClassifier, deps.Metrics),
			logProbs:   opts.LogProbabilities,
			logger:     s.logger,
		}
		s.own(deps.PolarityClassifier.Name(), deps.PolarityClassifier)
	}
	return s
}

// Annotate implements Strategy.  The dictionary and classifier passes
// succeed or fail together.
func (s *polarityStrategy) Annotate(ctx context.Context, doc *opinion.Document) error {
	return s.atomic(doc, func() error {
		if s.lexicon != nil {
			if err := s.tagSentiments(ctx, doc); err != nil {
				// The classifiers must not carry anything into the next request.
				s.reset(ctx, ResetFinal)
				return err
			}
		}
		if s.classifier == nil {
			return nil
		}
		return s.runSentences(ctx, doc, func(ctx context.Context, sent *opinion.Sentence, forms, ids []string) error {
			if sent.Len() == 0 {
				return nil
			}
			label, err := s.classifier.classify(ctx, sent, forms)
			if err != nil {
				return err
			}
			whole, err := opinion.ToSpan(sent, ids, 0, len(ids))
			if err != nil {
				return err
			}
			opinion.Attach(doc, sent.Index, nil, opinion.Expression{Span: whole, Polarity: opinion.Label(label)})
			return nil
		})
	})
}

// tagSentiments looks every term up by form, then by lemma.  Re-running it
// on the same document replaces rather than duplicates entries.
func (s *polarityStrategy) tagSentiments(ctx context.Context, doc *opinion.Document) error {
	name := s.lexicon.Name()
	hits := 0
	for _, term := range doc.DictionaryTerms() {
		pol, ok, err := s.lexicon.Lookup(ctx, term.Form)
		if err == nil && !ok && term.Lemma != "" && term.Lemma != term.Form {
			pol, ok, err = s.lexicon.Lookup(ctx, term.Lemma)
		}
		if err != nil {
			return classifierError(err, name)
		}
		if ok {
			doc.AttachSentiment(term.ID, opinion.Sentiment{Polarity: pol, Resource: name})
			hits++
		}
	}
	s.logger.Debug("Dictionary pass done",
		logging.String("dictionary", name),
		logging.Int("hits", hits))
	return nil
}
