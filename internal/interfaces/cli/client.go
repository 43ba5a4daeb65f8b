package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/interfaces/tcp"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

func newClientCmd() *cobra.Command {
	var (
		host    string
		port    int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Send the NAF document on stdin to an annotation server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			payload, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeReadFailed, "failed to read stdin")
			}
			c := tcp.NewClient(host, port,
				tcp.WithRequestTimeout(timeout),
				tcp.WithClientLogger(cliCtx.Logger.Named("client")))
			n, err := c.Annotate(cmd.Context(), payload, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			cliCtx.Logger.Debug("Response received", logging.String("addr", c.Addr()), logging.Int64("bytes", n))
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "server host")
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultServerPort, "server port")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "limit for the whole exchange; 0 waits indefinitely")
	return cmd
}
