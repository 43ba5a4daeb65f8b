package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/lexicon"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

func newLexiconCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexicon",
		Short: "Manage polarity dictionaries shared through Redis",
	}
	cmd.AddCommand(newLexiconImportCmd())
	return cmd
}

func newLexiconImportCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <dictionary>",
		Short: "Replace a Redis dictionary with a TSV or YAML dictionary file",
		Long: "import reads a dictionary (local path or s3://bucket/key) and stores it\n" +
			"in Redis, replacing any dictionary of the same name.  Servers configured\n" +
			"with annotation.dictionary_backend: redis see the new entries at once.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := *cliCtx.Config
			cfg.Annotation.DictionaryBackend = "redis"
			b, err := openBackends(&cfg, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx := cmd.Context()
			lex, err := lexicon.Load(ctx, args[0], b.Fetcher(), nil)
			if err != nil {
				return err
			}
			if name == "" {
				name = lex.Name()
			}
			if name == "" {
				return errors.New(errors.ErrCodeValidation, "dictionary name is required")
			}

			target := redis.NewLexicon(b.redis, name, cliCtx.Logger)
			n, err := target.Import(ctx, lex.Entries())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries into %s\n", n, target.Key())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "dictionary name (default: file name without extension)")
	return cmd
}
