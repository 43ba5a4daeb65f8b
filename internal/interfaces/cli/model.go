package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/lexicon"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage model and dictionary objects in object storage",
	}
	cmd.AddCommand(newModelPushCmd())
	return cmd
}

func newModelPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <file> <s3://bucket/key>",
		Short: "Upload a model or dictionary file to MinIO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			bucket, key, err := common.ParseObjectURI(args[1])
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeValidation, "invalid object location")
			}
			if cliCtx.Config.MinIO.Endpoint == "" {
				return errors.New(errors.ErrCodeValidation, "minio.endpoint is not configured")
			}

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeNotFound, "failed to open model file").WithDetail("path=" + args[0])
			}
			defer f.Close()
			st, err := f.Stat()
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to stat model file")
			}

			b, err := openBackends(cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			info, err := b.minio.Upload(cmd.Context(), bucket, key, f, st.Size(), contentTypeFor(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d bytes to %s%s/%s\n", info.Size, common.ObjectScheme, bucket, key)
			return nil
		},
	}
}

func contentTypeFor(path string) string {
	if lexicon.FormatFor(path) == lexicon.FormatYAML {
		return "application/yaml"
	}
	return "text/tab-separated-values"
}
