// Package stream runs the annotation pipeline over Kafka topics: NAF
// documents consumed from the input topic are annotated and published to
// the output topic.
package stream

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Header keys added to published documents.
const (
	HeaderOpinions  = "opinions"
	HeaderProcessor = "task"
)

// Annotator is the pipeline the worker drives.
type Annotator interface {
	Kind() annotation.Kind
	Annotate(ctx context.Context, payload []byte) (*annotation.Result, error)
}

// Publisher publishes messages.  *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg *kafka.ProducerMessage) error
}

// Subscriber is the consumer side the worker runs on.  *kafka.Consumer
// satisfies it.
type Subscriber interface {
	Subscribe(topic string, handler kafka.MessageHandler)
	Start(ctx context.Context) error
	Close() error
}

// Config names the worker topics.
type Config struct {
	InputTopic      string
	OutputTopic     string
	DeadLetterTopic string
}

// Worker annotates documents consumed from Config.InputTopic.
//
// Documents that can never be annotated (malformed XML, wrong encoding,
// empty or unknown terms) go straight to the dead-letter topic.  Any other
// failure is returned to the consumer, which retries and dead-letters it.
type Worker struct {
	annotator Annotator
	publisher Publisher
	cfg       Config
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

// NewWorker creates a worker.  metrics may be nil.
func NewWorker(a Annotator, p Publisher, cfg Config, m *prometheus.AppMetrics, logger logging.Logger) (*Worker, error) {
	if cfg.InputTopic == "" || cfg.OutputTopic == "" {
		return nil, errors.New(errors.ErrCodeValidation, "input and output topics are required")
	}
	if cfg.InputTopic == cfg.OutputTopic {
		return nil, errors.New(errors.ErrCodeValidation, "output topic must differ from input topic").
			WithDetail("topic=" + cfg.InputTopic)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Worker{annotator: a, publisher: p, cfg: cfg, metrics: m, logger: logger.Named("stream")}, nil
}

// Run subscribes to the input topic and blocks until ctx is done.
func (w *Worker) Run(ctx context.Context, sub Subscriber) error {
	sub.Subscribe(w.cfg.InputTopic, w.Handle)
	if err := sub.Start(ctx); err != nil {
		return err
	}
	w.logger.Info("Stream worker running",
		logging.String("task", string(w.annotator.Kind())),
		logging.String("input", w.cfg.InputTopic),
		logging.String("output", w.cfg.OutputTopic))

	<-ctx.Done()
	if err := sub.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeConsumerClosed, "failed to close consumer")
	}
	w.logger.Info("Stream worker stopped")
	return nil
}

// Handle annotates one message.  It is the kafka.MessageHandler of the
// input topic.
func (w *Worker) Handle(ctx context.Context, msg *kafka.Message) error {
	requestID := msg.Headers[kafka.HeaderRequestID]
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := w.logger.With(
		logging.String("request_id", requestID),
		logging.Int64("offset", msg.Offset),
		logging.Int("partition", msg.Partition))
	kind := string(w.annotator.Kind())
	prometheus.RecordDocumentSize(w.metrics, "in", len(msg.Value))

	start := time.Now()
	res, err := w.annotator.Annotate(ctx, msg.Value)
	elapsed := time.Since(start)
	if err != nil {
		prometheus.RecordDocument(w.metrics, kind, prometheus.TransportStream, annotation.Outcome(err), elapsed, 0)
		prometheus.RecordError(w.metrics, "stream", string(errors.GetCode(err)))
		if permanent(err) && w.cfg.DeadLetterTopic != "" {
			log.Warn("Document rejected", logging.Err(err))
			return w.deadLetter(ctx, msg, requestID, err)
		}
		prometheus.RecordStreamMessage(w.metrics, msg.Topic, prometheus.OutcomeAnnotateError)
		log.Error("Annotation failed", logging.Err(err))
		return err
	}
	prometheus.RecordDocument(w.metrics, kind, prometheus.TransportStream, prometheus.OutcomeOK, elapsed, res.Opinions)

	out := &kafka.ProducerMessage{
		Topic: w.cfg.OutputTopic,
		Key:   msg.Key,
		Value: res.Output,
		Headers: map[string]string{
			kafka.HeaderRequestID:   requestID,
			kafka.HeaderContentType: kafka.ContentTypeNAF,
			HeaderOpinions:          strconv.Itoa(res.Opinions),
			HeaderProcessor:         kind,
		},
	}
	if err := w.publisher.Publish(ctx, out); err != nil {
		prometheus.RecordStreamMessage(w.metrics, msg.Topic, prometheus.OutcomeTransportError)
		log.Error("Failed to publish annotated document", logging.Err(err))
		return err
	}
	prometheus.RecordDocumentSize(w.metrics, "out", len(res.Output))
	prometheus.RecordStreamMessage(w.metrics, msg.Topic, prometheus.OutcomeOK)
	log.Debug("Document annotated",
		logging.Int("opinions", res.Opinions),
		logging.Duration("elapsed", elapsed))
	return nil
}

func (w *Worker) deadLetter(ctx context.Context, msg *kafka.Message, requestID string, cause error) error {
	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[kafka.HeaderRequestID] = requestID
	headers[kafka.HeaderOriginalTopic] = msg.Topic
	headers[kafka.HeaderError] = cause.Error()
	headers[kafka.HeaderErrorCode] = string(errors.GetCode(cause))

	if err := w.publisher.Publish(ctx, &kafka.ProducerMessage{
		Topic:   w.cfg.DeadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}); err != nil {
		prometheus.RecordStreamMessage(w.metrics, msg.Topic, prometheus.OutcomeTransportError)
		return err
	}
	prometheus.RecordStreamMessage(w.metrics, msg.Topic, annotation.Outcome(cause))
	return nil
}

// permanent reports whether retrying the same payload cannot succeed.
func permanent(err error) bool {
	switch annotation.Classify(err) {
	case annotation.FailureParse, annotation.FailureEncoding:
		return true
	}
	return errors.IsCode(err, errors.ErrCodeLanguageMismatch)
}
