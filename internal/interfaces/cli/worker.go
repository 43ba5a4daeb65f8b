package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	httpapi "github.com/turtacn/Opinion-Intelligence/internal/interfaces/http"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/stream"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

type workerFlags struct {
	brokers         []string
	groupID         string
	inputTopic      string
	outputTopic     string
	deadLetterTopic string
	httpPort        int
	ensureTopics    bool
}

func (wf *workerFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("brokers") {
		cfg.Kafka.Brokers = wf.brokers
	}
	if fs.Changed("group-id") {
		cfg.Kafka.GroupID = wf.groupID
	}
	if fs.Changed("input-topic") {
		cfg.Kafka.InputTopic = wf.inputTopic
	}
	if fs.Changed("output-topic") {
		cfg.Kafka.OutputTopic = wf.outputTopic
	}
	if fs.Changed("dead-letter-topic") {
		cfg.Kafka.DeadLetterTopic = wf.deadLetterTopic
	}
	if fs.Changed("http-port") {
		cfg.Server.HTTPPort = wf.httpPort
	}
}

func newWorkerCmd() *cobra.Command {
	f := &annotationFlags{}
	wf := &workerFlags{}
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Annotate NAF documents consumed from Kafka",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd, f, wf)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.task, "task", config.DefaultTask, "strategy (ote, aspect-seq, aspect-doc, pol, absa)")
	fs.StringSliceVar(&wf.brokers, "brokers", nil, "Kafka broker addresses")
	fs.StringVar(&wf.groupID, "group-id", config.DefaultKafkaGroupID, "consumer group")
	fs.StringVar(&wf.inputTopic, "input-topic", "", "topic of documents to annotate")
	fs.StringVar(&wf.outputTopic, "output-topic", "", "topic of annotated documents")
	fs.StringVar(&wf.deadLetterTopic, "dead-letter-topic", "", "topic of documents that could not be annotated")
	fs.IntVar(&wf.httpPort, "http-port", 0, "HTTP side-car port; 0 disables it")
	fs.BoolVar(&wf.ensureTopics, "ensure-topics", false, "create missing topics before consuming")
	f.bindModels(cmd)
	f.bindCommon(cmd)
	return cmd
}

func runWorker(cmd *cobra.Command, f *annotationFlags, wf *workerFlags) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cliCtx.Config
	f.apply(cmd, &cfg.Annotation)
	wf.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid worker configuration")
	}
	if err := cfg.ValidateWorker(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid worker configuration")
	}
	logger := cliCtx.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := newTelemetry(cfg.Metrics, logger)
	if err != nil {
		return err
	}
	b, err := openBackends(&cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	registry := common.NewModelRegistry(logger.Named("models"))
	svc, err := b.Loader(tel.intel, registry, logger).Build(ctx, cfg.Annotation, processorVersion())
	if err != nil {
		return err
	}

	if wf.ensureTopics {
		tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger.Named("kafka"))
		if err != nil {
			return err
		}
		err = tm.EnsureTopics(ctx, kafka.AnnotationTopics(cfg.Kafka))
		_ = tm.Close()
		if err != nil {
			return err
		}
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers}, logger.Named("kafka"))
	if err != nil {
		return err
	}
	defer producer.Close()

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topics:          []string{cfg.Kafka.InputTopic},
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      cfg.Kafka.MaxRetries,
			DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
		},
	}, logger.Named("kafka"))
	if err != nil {
		return err
	}

	w, err := stream.NewWorker(svc, producer, stream.Config{
		InputTopic:      cfg.Kafka.InputTopic,
		OutputTopic:     cfg.Kafka.OutputTopic,
		DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
	}, tel.app, logger)
	if err != nil {
		_ = consumer.Close()
		return err
	}

	var side *httpapi.Server
	if cfg.Server.HTTPPort > 0 {
		side = newSideCar(&cfg, nil, registry, b, tel, logger)
		go func() {
			if err := side.Start(); err != nil {
				logger.Error("HTTP side-car stopped", logging.Err(err))
			}
		}()
	}

	err = w.Run(ctx, consumer)

	if side != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if stopErr := side.Stop(shutdownCtx); stopErr != nil {
			logger.Warn("HTTP side-car did not stop cleanly", logging.Err(stopErr))
		}
	}
	return err
}
