package annotation

import (
	"context"
	"time"

	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/doccls"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/lexicon"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/sequence"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// ProcessorPrefix starts the linguistic processor name written to the NAF
// header.
const ProcessorPrefix = "opinion-tagger-"

// RemoteLexiconFunc opens a shared dictionary by name.
type RemoteLexiconFunc func(name string) common.PolarityLexicon

// Loader turns an AnnotationConfig into a ready Service.
type Loader struct {
	// Fetcher resolves s3:// model locations.  Nil allows local paths only.
	Fetcher common.ObjectFetcher
	// RemoteLexicon is used when the dictionary backend is redis.
	RemoteLexicon RemoteLexiconFunc
	Metrics       common.IntelligenceMetrics
	Registry      *common.ModelRegistry
	Logger        logging.Logger
}

func (l *Loader) metrics() common.IntelligenceMetrics {
	if l.Metrics == nil {
		return common.NewNoopIntelligenceMetrics()
	}
	return l.Metrics
}

func (l *Loader) logger() logging.Logger {
	if l.Logger == nil {
		return logging.NewNopLogger()
	}
	return l.Logger
}

// Build loads the models cfg.Task needs and wraps the strategy in a
// Service.  version is written as the processor version.
func (l *Loader) Build(ctx context.Context, cfg config.AnnotationConfig, version string) (*Service, error) {
	kind, err := ParseKind(cfg.Task)
	if err != nil {
		return nil, err
	}
	policy, err := opinion.ParseClearFeaturesPolicy(cfg.ClearFeatures)
	if err != nil {
		return nil, err
	}
	deps, err := l.Deps(ctx, kind, cfg)
	if err != nil {
		return nil, err
	}
	strategy, err := New(kind, deps, Options{
		Policy:           policy,
		LogProbabilities: true,
	})
	if err != nil {
		return nil, err
	}

	l.logger().Info("Annotation strategy ready",
		logging.String("task", string(kind)),
		logging.String("clear_features", policy.String()),
		logging.String("language", cfg.Language))

	return NewService(strategy, ServiceConfig{
		Language:         cfg.Language,
		OutputFormat:     cfg.OutputFormat,
		ProcessorName:    ProcessorName(kind, cfg),
		ProcessorVersion: version,
	}, l.logger()), nil
}

// Deps loads the classifiers kind needs.  Unused model settings are
// ignored; missing required ones are left nil for New to report.
func (l *Loader) Deps(ctx context.Context, kind Kind, cfg config.AnnotationConfig) (Deps, error) {
	if cfg.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ModelTimeout)
		defer cancel()
	}
	deps := Deps{Metrics: l.metrics(), Logger: l.logger()}
	var err error

	switch kind {
	case KindTarget:
		deps.TargetLabeler, err = l.labeler(ctx, cfg.TargetModel)
	case KindAspectSeq:
		deps.AspectLabeler, err = l.labeler(ctx, cfg.AspectModel)
	case KindAspectDoc:
		deps.AspectClassifier, err = l.classifier(ctx, cfg.AspectModel)
	case KindPolarity:
		if deps.PolarityClassifier, err = l.classifier(ctx, cfg.PolarityModel); err == nil {
			deps.Lexicon, err = l.dictionary(ctx, cfg)
		}
	case KindABSA:
		if deps.TargetLabeler, err = l.labeler(ctx, cfg.TargetModel); err == nil {
			deps.PolarityClassifier, err = l.classifier(ctx, cfg.PolarityModel)
		}
	}
	if err != nil {
		return Deps{}, err
	}
	return deps, nil
}

func (l *Loader) labeler(ctx context.Context, location string) (common.SequenceLabeler, error) {
	if location == "" {
		return nil, nil
	}
	m, err := sequence.Load(ctx, location, l.Fetcher, l.metrics())
	if err != nil {
		return nil, err
	}
	l.register(m.Name(), common.KindSequenceLabeler, location, m.Labels())
	return m, nil
}

func (l *Loader) classifier(ctx context.Context, location string) (common.DocumentClassifier, error) {
	if location == "" {
		return nil, nil
	}
	m, err := doccls.Load(ctx, location, l.Fetcher, l.metrics())
	if err != nil {
		return nil, err
	}
	l.register(m.Name(), common.KindDocumentClassifier, location, m.Labels())
	return m, nil
}

func (l *Loader) dictionary(ctx context.Context, cfg config.AnnotationConfig) (common.PolarityLexicon, error) {
	if cfg.Dictionary == "" {
		return nil, nil
	}
	if cfg.DictionaryBackend == "redis" {
		if l.RemoteLexicon == nil {
			return nil, errors.New(errors.ErrCodeStrategyMisconfig, "redis dictionary backend is not configured")
		}
		lex := l.RemoteLexicon(cfg.Dictionary)
		l.register(lex.Name(), common.KindPolarityLexicon, "redis:"+cfg.Dictionary, nil)
		return lex, nil
	}
	lex, err := lexicon.Load(ctx, cfg.Dictionary, l.Fetcher, l.metrics())
	if err != nil {
		return nil, err
	}
	l.register(lex.Name(), common.KindPolarityLexicon, cfg.Dictionary, nil)
	return lex, nil
}

func (l *Loader) register(name string, kind common.ModelKind, location string, labels []string) {
	if l.Registry == nil {
		return
	}
	l.Registry.Replace(common.ModelMetadata{
		Name:     name,
		Kind:     kind,
		Location: location,
		Labels:   labels,
		LoadedAt: time.Now(),
	})
}

// ProcessorName names the processor after the primary model of kind:
// "opinion-tagger-<model base name>".
func ProcessorName(kind Kind, cfg config.AnnotationConfig) string {
	var primary string
	switch kind {
	case KindTarget, KindABSA:
		primary = cfg.TargetModel
	case KindAspectSeq, KindAspectDoc:
		primary = cfg.AspectModel
	case KindPolarity:
		primary = cfg.PolarityModel
		if primary == "" {
			primary = cfg.Dictionary
		}
	}
	if primary == "" {
		return ProcessorPrefix + string(kind)
	}
	return ProcessorPrefix + common.BaseName(primary)
}
