package annotation

import (
	"context"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Strategy annotates a document in place.  Implementations are not safe
// for concurrent use; Service serializes access.
type Strategy interface {
	Kind() Kind
	Annotate(ctx context.Context, doc *opinion.Document) error
}

// Deps are the classifiers a strategy may use.  Which ones are required
// depends on the Kind:
//
//	ote         TargetLabeler
//	aspect-seq  AspectLabeler
//	aspect-doc  AspectClassifier
//	pol         PolarityClassifier and/or Lexicon
//	absa        TargetLabeler and PolarityClassifier
type Deps struct {
	TargetLabeler      common.SequenceLabeler
	AspectLabeler      common.SequenceLabeler
	AspectClassifier   common.DocumentClassifier
	PolarityClassifier common.DocumentClassifier
	Lexicon            common.PolarityLexicon

	Metrics common.IntelligenceMetrics
	Logger  logging.Logger
}

// Options tune a strategy.
type Options struct {
	Policy opinion.ClearFeaturesPolicy
	// LogProbabilities makes document classifiers also compute and log
	// their label distribution at debug level.
	LogProbabilities bool
}

// New builds the strategy for kind.  Missing classifiers are reported as
// ErrCodeStrategyMisconfig.
func New(kind Kind, deps Deps, opts Options) (Strategy, error) {
	switch kind {
	case KindTarget:
		if deps.TargetLabeler == nil {
			return nil, misconfigured(kind, "a target sequence labeler")
		}
		return newSpanStrategy(kind, deps.TargetLabeler, true, deps, opts), nil
	case KindAspectSeq:
		if deps.AspectLabeler == nil {
			return nil, misconfigured(kind, "an aspect sequence labeler")
		}
		return newSpanStrategy(kind, deps.AspectLabeler, false, deps, opts), nil
	case KindAspectDoc:
		if deps.AspectClassifier == nil {
			return nil, misconfigured(kind, "an aspect document classifier")
		}
		return newAspectDocStrategy(deps, opts), nil
	case KindPolarity:
		if deps.PolarityClassifier == nil && deps.Lexicon == nil {
			return nil, misconfigured(kind, "a polarity classifier or a dictionary")
		}
		return newPolarityStrategy(deps, opts), nil
	case KindABSA:
		if deps.TargetLabeler == nil || deps.PolarityClassifier == nil {
			return nil, misconfigured(kind, "a target sequence labeler and a polarity classifier")
		}
		return newABSAStrategy(deps, opts), nil
	default:
		return nil, errors.Newf(errors.ErrCodeStrategyUnsupported, "unknown task %q", kind)
	}
}

func misconfigured(kind Kind, needs string) error {
	return errors.Newf(errors.ErrCodeStrategyMisconfig, "task %s requires %s", kind, needs)
}
