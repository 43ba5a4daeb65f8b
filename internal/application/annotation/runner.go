package annotation

import (
	"context"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Reset reasons reported to IntelligenceMetrics.RecordStateReset.
const (
	ResetBefore = "before"
	ResetAfter  = "after"
	ResetFinal  = "final"
)

// namedState is a classifier the strategy owns, as seen by the reset loop.
type namedState struct {
	name  string
	state opinion.AdaptiveState
}

// extractFunc does the strategy-specific work for one sentence.  forms and
// ids are the sentence's ordered surface forms and token IDs.
type extractFunc func(ctx context.Context, s *opinion.Sentence, forms, ids []string) error

// runner holds what every strategy shares: the policy, the owned
// classifiers and the sentence loop.
type runner struct {
	kind    Kind
	policy  opinion.ClearFeaturesPolicy
	owned   []namedState
	metrics common.IntelligenceMetrics
	logger  logging.Logger
}

func newRunner(kind Kind, opts Options, deps Deps) runner {
	r := runner{
		kind:    kind,
		policy:  opts.Policy,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if r.metrics == nil {
		r.metrics = common.NewNoopIntelligenceMetrics()
	}
	if r.logger == nil {
		r.logger = logging.NewNopLogger()
	}
	r.logger = r.logger.With(logging.String("task", string(kind)))
	return r
}

func (r *runner) own(name string, st opinion.AdaptiveState) {
	r.owned = append(r.owned, namedState{name: name, state: st})
}

// Kind implements Strategy.
func (r *runner) Kind() Kind { return r.kind }

// Policy returns the clear-features policy applied to every owned classifier.
func (r *runner) Policy() opinion.ClearFeaturesPolicy { return r.policy }

func (r *runner) reset(ctx context.Context, reason string) {
	for _, o := range r.owned {
		o.state.ResetAdaptiveState()
		r.metrics.RecordStateReset(ctx, o.name, reason)
	}
}

// atomic runs pass over doc.  When pass fails, every opinion and sentiment
// it attached is rolled back, leaving doc as it was.
func (r *runner) atomic(doc *opinion.Document, pass func() error) error {
	cp := doc.Checkpoint()
	if err := pass(); err != nil {
		doc.Rollback(cp)
		return err
	}
	return nil
}

// runSentences walks doc in order, resetting the owned classifiers as the
// policy asks, and always resets them once more when the pass ends, whether
// it finished or aborted.
func (r *runner) runSentences(ctx context.Context, doc *opinion.Document, extract extractFunc) error {
	defer r.reset(ctx, ResetFinal)

	for _, s := range doc.Sentences {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrCodeTimeout, "annotation cancelled")
		}
		forms, ids := s.Forms(), s.IDs()

		if opinion.ShouldResetBefore(s, r.policy) {
			r.reset(ctx, ResetBefore)
		}
		if err := extract(ctx, s, forms, ids); err != nil {
			r.logger.Debug("Sentence annotation failed",
				logging.Int("sentence", s.Index),
				logging.Err(err))
			return err
		}
		if opinion.ShouldResetAfter(s, r.policy) {
			r.reset(ctx, ResetAfter)
		}
	}
	return nil
}

// classifierError wraps a model or lexicon failure.  Errors that already
// carry an annotation code keep it.
func classifierError(err error, model string) error {
	if errors.IsCode(err, errors.ErrCodeClassifierFailed) || errors.IsCode(err, errors.ErrCodeSpanOutOfRange) {
		return err
	}
	return errors.Wrap(err, errors.ErrCodeClassifierFailed, "classifier failed").WithDetail("model=" + model)
}
