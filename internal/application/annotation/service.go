package annotation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/naf"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// ServiceConfig describes how a Service stamps and checks documents.
type ServiceConfig struct {
	// Language, when set, must match the language of every document.
	Language string
	// OutputFormat is naf or tabulated.  Both serialize native NAF.
	OutputFormat string
	// ProcessorName and ProcessorVersion go into the linguistic processor
	// header of the opinions layer.
	ProcessorName    string
	ProcessorVersion string
}

// Result is the outcome of one annotated document.
type Result struct {
	Output     []byte
	Lang       string
	Sentences  int
	Opinions   int // opinions added by this pass
	Sentiments int
}

// Service runs one long-lived Strategy over serialized NAF documents.
// Calls are serialized: a strategy and the classifiers it owns are never
// used by two documents at once.
type Service struct {
	mu       sync.Mutex
	strategy Strategy
	cfg      ServiceConfig
	logger   logging.Logger
	now      func() time.Time
}

// NewService wraps strategy.
func NewService(strategy Strategy, cfg ServiceConfig, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "naf"
	}
	return &Service{
		strategy: strategy,
		cfg:      cfg,
		logger:   logger.Named("annotation"),
		now:      time.Now,
	}
}

// Kind returns the task the service runs.
func (s *Service) Kind() Kind { return s.strategy.Kind() }

// Config returns the service settings.
func (s *Service) Config() ServiceConfig { return s.cfg }

// Annotate decodes payload, annotates it and serializes the result.
// Decoding failures keep the DOC_ codes of the naf package; a language
// mismatch is ErrCodeLanguageMismatch.
func (s *Service) Annotate(ctx context.Context, payload []byte) (*Result, error) {
	doc, err := naf.Decode(payload)
	if err != nil {
		return nil, err
	}
	return s.AnnotateDocument(ctx, doc)
}

// AnnotateDocument annotates an already decoded document in place and
// serializes it.
func (s *Service) AnnotateDocument(ctx context.Context, doc *naf.Document) (*Result, error) {
	if err := s.checkLanguage(doc.Lang); err != nil {
		return nil, err
	}
	od, err := naf.ToDomain(doc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	begin := s.now()
	before := len(od.Opinions)
	err = s.strategy.Annotate(ctx, od)
	end := s.now()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := naf.Merge(doc, od); err != nil {
		return nil, err
	}
	doc.AddLinguisticProcessor(naf.LayerOpinions, s.cfg.ProcessorName, s.cfg.ProcessorVersion, begin, end)
	if s.cfg.OutputFormat != "naf" {
		s.logger.Debug("Output format serialized as NAF", logging.String("format", s.cfg.OutputFormat))
	}

	out, err := naf.Encode(doc)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Output:     out,
		Lang:       doc.Lang,
		Sentences:  len(od.Sentences),
		Opinions:   len(od.Opinions) - before,
		Sentiments: od.SentimentCount(),
	}
	s.logger.Debug("Document annotated",
		logging.String("task", string(s.Kind())),
		logging.Int("sentences", res.Sentences),
		logging.Int("opinions", res.Opinions),
		logging.Int("sentiments", res.Sentiments),
		logging.Duration("elapsed", end.Sub(begin)))
	return res, nil
}

func (s *Service) checkLanguage(lang string) error {
	if s.cfg.Language == "" || strings.EqualFold(s.cfg.Language, lang) {
		return nil
	}
	return errors.Newf(errors.ErrCodeLanguageMismatch,
		"language parameter %q does not match the document language %q", s.cfg.Language, lang)
}
