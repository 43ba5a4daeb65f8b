package annotation

import (
	"context"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
)

// spanStrategy attaches one opinion per labelled span.  Target extraction
// sets the span as both target and expression; sequence aspect extraction
// sets only the expression.  The span type becomes the feature label.
type spanStrategy struct {
	runner
	labeler    common.SequenceLabeler
	withTarget bool
}

func newSpanStrategy(kind Kind, labeler common.SequenceLabeler, withTarget bool, deps Deps, opts Options) *spanStrategy {
	s := &spanStrategy{
		runner:     newRunner(kind, opts, deps),
		labeler:    common.InstrumentLabeler(labeler, deps.Metrics),
		withTarget: withTarget,
	}
	s.own(labeler.Name(), labeler)
	return s
}

// Annotate implements Strategy.
func (s *spanStrategy) Annotate(ctx context.Context, doc *opinion.Document) error {
	return s.atomic(doc, func() error {
		return s.runSentences(ctx, doc, func(ctx context.Context, sent *opinion.Sentence, forms, ids []string) error {
			matches, err := s.labeler.LabelSequence(ctx, forms)
			if err != nil {
				return classifierError(err, s.labeler.Name())
			}
			for _, m := range matches {
				sp, err := opinion.ToSpan(sent, ids, m.Start, m.End)
				if err != nil {
					return err
				}
				var target *opinion.Span
				if s.withTarget {
					target = copySpan(sp)
				}
				opinion.Attach(doc, sent.Index, target, opinion.Expression{
					Span:    sp,
					Feature: opinion.Label(m.Type),
				})
			}
			return nil
		})
	})
}

func copySpan(sp opinion.Span) *opinion.Span {
	cp := sp
	cp.TokenIDs = append([]string(nil), sp.TokenIDs...)
	return &cp
}
