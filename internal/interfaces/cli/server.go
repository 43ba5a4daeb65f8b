package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	httpapi "github.com/turtacn/Opinion-Intelligence/internal/interfaces/http"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/tcp"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

type serverFlags struct {
	host        string
	port        int
	workers     int
	httpPort    int
	watchConfig bool
}

func newServerCmd() *cobra.Command {
	f := &annotationFlags{}
	sf := &serverFlags{}
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve one annotation strategy over TCP",
		Long: "server loads one strategy and annotates the documents clients send,\n" +
			"one connection at a time unless --workers is raised.  Each request is\n" +
			"NAF text terminated by a line <ENDOFDOCUMENT>; the reply is the\n" +
			"annotated document followed by connection close.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, f, sf)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.task, "task", config.DefaultTask, "strategy (ote, aspect-seq, aspect-doc, pol, absa)")
	fs.StringVar(&sf.host, "host", config.DefaultServerHost, "listen address")
	fs.IntVarP(&sf.port, "port", "p", config.DefaultServerPort, "TCP port")
	fs.IntVar(&sf.workers, "workers", config.DefaultServerWorkers, "connection workers; 1 serves strictly sequentially")
	fs.IntVar(&sf.httpPort, "http-port", 0, "HTTP side-car port; 0 disables it")
	fs.BoolVar(&sf.watchConfig, "watch-config", false, "reload the log level when the config file changes")
	f.bindModels(cmd)
	f.bindCommon(cmd)
	return cmd
}

// applyServerFlags copies the server flags the user set onto cfg.
func applyServerFlags(cmd *cobra.Command, sf *serverFlags, cfg *config.ServerConfig) {
	fs := cmd.Flags()
	if fs.Changed("host") {
		cfg.Host = sf.host
	}
	if fs.Changed("port") {
		cfg.Port = sf.port
	}
	if fs.Changed("workers") {
		cfg.Workers = sf.workers
	}
	if fs.Changed("http-port") {
		cfg.HTTPPort = sf.httpPort
	}
}

func runServer(cmd *cobra.Command, f *annotationFlags, sf *serverFlags) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cliCtx.Config
	f.apply(cmd, &cfg.Annotation)
	applyServerFlags(cmd, sf, &cfg.Server)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid server configuration")
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

	if sf.watchConfig {
		watchLogLevel(cliCtx.ConfigPath, logger)
	}

	var side *httpapi.Server
	if cfg.Server.HTTPPort > 0 {
		side = newSideCar(&cfg, svc, registry, b, tel, logger)
		go func() {
			if err := side.Start(); err != nil {
				logger.Error("HTTP side-car stopped", logging.Err(err))
			}
		}()
	}

	srv := tcp.NewServer(svc,
		tcp.WithLogger(logger),
		tcp.WithMetrics(tel.app),
		tcp.WithWorkers(cfg.Server.Workers),
		tcp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		tcp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	)
	err = srv.ListenAndServe(ctx, net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)))

	if side != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if stopErr := side.Stop(shutdownCtx); stopErr != nil {
			logger.Warn("HTTP side-car did not stop cleanly", logging.Err(stopErr))
		}
	}
	return err
}

// watchLogLevel applies log.level from the config file whenever it changes.
func watchLogLevel(path string, logger logging.Logger) {
	if path == "" {
		logger.Warn("--watch-config ignored: no config file in use")
		return
	}
	err := config.Watch(path, func(c *config.Config) {
		if logger.SetLevel(c.Log.Level) {
			logger.Info("Log level updated", logging.String("level", c.Log.Level))
		}
	}, func(err error) {
		logger.Warn("Ignoring invalid config change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("Config watch not started", logging.Err(err))
	}
}
