package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/Opinion-Intelligence/internal/application/annotation"
	"github.com/turtacn/Opinion-Intelligence/internal/config"
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// annotationFlags are the strategy flags shared by the one-shot commands,
// the server and the worker.  Only flags set on the command line override
// the configuration file.
type annotationFlags struct {
	task          string
	model         string
	variant       string
	language      string
	clearFeatures string
	outputFormat  string
	dictionary    string
	targetModel   string
	aspectModel   string
	polarityModel string
}

func (f *annotationFlags) bindCommon(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.language, "language", "l", "", "expected document language; a mismatch is an error")
	fs.StringVar(&f.clearFeatures, "clear-features", config.DefaultClearFeatures, "adaptive state reset policy (yes, no, docstart)")
	fs.StringVarP(&f.outputFormat, "output-format", "o", config.DefaultOutputFormat, "output format (naf, tabulated)")
}

// bindModels registers one flag per model, for commands that pick the task
// at run time.
func (f *annotationFlags) bindModels(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.targetModel, "target-model", "", "opinion target sequence model (path or s3://bucket/key)")
	fs.StringVar(&f.aspectModel, "aspect-model", "", "aspect model (path or s3://bucket/key)")
	fs.StringVar(&f.polarityModel, "polarity-model", "", "polarity classifier model (path or s3://bucket/key)")
	fs.StringVar(&f.dictionary, "dictionary", "", "polarity dictionary (path, s3://bucket/key or redis dictionary name)")
}

// apply copies the flags the user set onto cfg.
func (f *annotationFlags) apply(cmd *cobra.Command, cfg *config.AnnotationConfig) {
	fs := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			*dst = v
		}
	}
	set("task", &cfg.Task, f.task)
	set("language", &cfg.Language, f.language)
	set("clear-features", &cfg.ClearFeatures, f.clearFeatures)
	set("output-format", &cfg.OutputFormat, f.outputFormat)
	set("dictionary", &cfg.Dictionary, f.dictionary)
	set("target-model", &cfg.TargetModel, f.targetModel)
	set("aspect-model", &cfg.AspectModel, f.aspectModel)
	set("polarity-model", &cfg.PolarityModel, f.polarityModel)
}

func newTargetCmd() *cobra.Command {
	f := &annotationFlags{}
	cmd := &cobra.Command{
		Use:   "ote",
		Short: "Tag opinion targets in a NAF document read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOneShot(cmd, f, func(cfg *config.AnnotationConfig) {
				cfg.Task = string(annotation.KindTarget)
				if cmd.Flags().Changed("model") {
					cfg.TargetModel = f.model
				}
			})
		},
	}
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "target sequence model (path or s3://bucket/key)")
	f.bindCommon(cmd)
	return cmd
}

func newAspectCmd() *cobra.Command {
	f := &annotationFlags{}
	cmd := &cobra.Command{
		Use:   "aspect",
		Short: "Tag aspects in a NAF document read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var kind annotation.Kind
			switch f.variant {
			case "seq":
				kind = annotation.KindAspectSeq
			case "doc":
				kind = annotation.KindAspectDoc
			default:
				return errors.Newf(errors.ErrCodeValidation, "invalid --variant %q; expected seq or doc", f.variant)
			}
			return runOneShot(cmd, f, func(cfg *config.AnnotationConfig) {
				cfg.Task = string(kind)
				if cmd.Flags().Changed("model") {
					cfg.AspectModel = f.model
				}
			})
		},
	}
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "aspect model (path or s3://bucket/key)")
	cmd.Flags().StringVar(&f.variant, "variant", "doc", "aspect model kind (seq, doc)")
	f.bindCommon(cmd)
	return cmd
}

func newPolarityCmd() *cobra.Command {
	f := &annotationFlags{}
	cmd := &cobra.Command{
		Use:   "pol",
		Short: "Tag sentence polarity and dictionary sentiments in a NAF document read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOneShot(cmd, f, func(cfg *config.AnnotationConfig) {
				cfg.Task = string(annotation.KindPolarity)
				if cmd.Flags().Changed("model") {
					cfg.PolarityModel = f.model
				}
			})
		},
	}
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "polarity classifier model; may be empty when --dictionary is set")
	cmd.Flags().StringVar(&f.dictionary, "dictionary", "", "polarity dictionary (path, s3://bucket/key or redis dictionary name)")
	f.bindCommon(cmd)
	return cmd
}

func newABSACmd() *cobra.Command {
	f := &annotationFlags{}
	cmd := &cobra.Command{
		Use:   "absa",
		Short: "Tag opinion targets with their polarity in a NAF document read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOneShot(cmd, f, func(cfg *config.AnnotationConfig) {
				cfg.Task = string(annotation.KindABSA)
			})
		},
	}
	cmd.Flags().StringVar(&f.targetModel, "target-model", "", "opinion target sequence model (path or s3://bucket/key)")
	cmd.Flags().StringVar(&f.polarityModel, "polarity-model", "", "polarity classifier model (path or s3://bucket/key)")
	f.bindCommon(cmd)
	return cmd
}

// runOneShot annotates stdin and writes the document to stdout.  Any
// failure, including a malformed document, is fatal.
func runOneShot(cmd *cobra.Command, f *annotationFlags, task func(*config.AnnotationConfig)) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := *cliCtx.Config
	f.apply(cmd, &cfg.Annotation)
	task(&cfg.Annotation)

	ctx := cmd.Context()
	b, err := openBackends(&cfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer b.Close()

	loader := b.Loader(common.NewNoopIntelligenceMetrics(), nil, cliCtx.Logger)
	svc, err := loader.Build(ctx, cfg.Annotation, processorVersion())
	if err != nil {
		return err
	}

	payload, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeReadFailed, "failed to read stdin")
	}
	res, err := svc.Annotate(ctx, payload)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(res.Output); err != nil {
		return errors.Wrap(err, errors.ErrCodeWriteFailed, "failed to write stdout")
	}
	cliCtx.Logger.Debug("Document annotated",
		logging.String("task", cfg.Annotation.Task),
		logging.Int("sentences", res.Sentences),
		logging.Int("opinions", res.Opinions),
		logging.Int("sentiments", res.Sentiments))
	return nil
}
