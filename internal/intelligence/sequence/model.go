package sequence

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Label constants
// ---------------------------------------------------------------------------

const (
	LabelO       = "O"
	beginPrefix  = "B-"
	insidePrefix = "I-"
)

// Decoder names accepted in ModelFile.Decoder.
const (
	DecoderViterbi = "viterbi"
	DecoderGreedy  = "greedy"
)

// ---------------------------------------------------------------------------
// Model file
// ---------------------------------------------------------------------------

// ModelFile is the YAML layout of a linear-chain BIO model.  Feature and
// bias weights are additive log-scores per label; transitions score the
// move from one label to the next on top of the BIO legality constraints.
//
//	name: en-ote
//	labels: [O, B-T, I-T]
//	bias: {O: 1.0}
//	features:
//	  w=battery: {B-T: 3.0}
//	transitions:
//	  B-T: {I-T: 1.0}
//	adaptive_weight: 0.5
type ModelFile struct {
	Name           string                        `yaml:"name"`
	Language       string                        `yaml:"language"`
	Labels         []string                      `yaml:"labels"`
	Decoder        string                        `yaml:"decoder"`
	Bias           map[string]float64            `yaml:"bias"`
	Features       map[string]map[string]float64 `yaml:"features"`
	Transitions    map[string]map[string]float64 `yaml:"transitions"`
	AdaptiveWeight float64                       `yaml:"adaptive_weight"`
}

// Validate checks the label set and every weight reference.
func (f *ModelFile) Validate() error {
	if len(f.Labels) == 0 {
		return errors.New(errors.ErrCodeModelInvalid, "labels must not be empty")
	}
	known := make(map[string]bool, len(f.Labels))
	for _, l := range f.Labels {
		if known[l] {
			return errors.Newf(errors.ErrCodeModelInvalid, "duplicate label %q", l)
		}
		known[l] = true
		if l != LabelO && !strings.HasPrefix(l, beginPrefix) && !strings.HasPrefix(l, insidePrefix) {
			return errors.Newf(errors.ErrCodeModelInvalid, "label %q is not a BIO label", l)
		}
		if (strings.HasPrefix(l, beginPrefix) || strings.HasPrefix(l, insidePrefix)) && len(l) == 2 {
			return errors.Newf(errors.ErrCodeModelInvalid, "label %q has no type", l)
		}
	}
	if !known[LabelO] {
		return errors.New(errors.ErrCodeModelInvalid, "labels must include O")
	}
	for _, l := range f.Labels {
		if strings.HasPrefix(l, insidePrefix) && !known[beginPrefix+l[2:]] {
			return errors.Newf(errors.ErrCodeModelInvalid, "label %q has no matching begin label", l)
		}
	}

	switch f.Decoder {
	case "", DecoderViterbi, DecoderGreedy:
	default:
		return errors.Newf(errors.ErrCodeModelInvalid, "unknown decoder %q", f.Decoder)
	}

	check := func(where string, weights map[string]float64) error {
		for l := range weights {
			if !known[l] {
				return errors.Newf(errors.ErrCodeModelInvalid, "%s references unknown label %q", where, l)
			}
		}
		return nil
	}
	if err := check("bias", f.Bias); err != nil {
		return err
	}
	for feat, w := range f.Features {
		if err := check("feature "+feat, w); err != nil {
			return err
		}
	}
	for from, w := range f.Transitions {
		if !known[from] {
			return errors.Newf(errors.ErrCodeModelInvalid, "transition from unknown label %q", from)
		}
		if err := check("transition from "+from, w); err != nil {
			return err
		}
	}
	return nil
}

// Parse decodes and validates a YAML model.
func Parse(data []byte) (*ModelFile, error) {
	var f ModelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelInvalid, "failed to decode sequence model")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads the model at location (local path or s3://bucket/key) and
// builds a Labeler from it.  When the file carries no name the file base
// name is used.
func Load(ctx context.Context, location string, fetcher common.ObjectFetcher, metrics common.IntelligenceMetrics) (*Labeler, error) {
	data, err := common.ReadModel(ctx, location, fetcher, metrics)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelLoadFailed, "failed to read sequence model").
			WithDetail(fmt.Sprintf("location=%s", location))
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if f.Name == "" {
		f.Name = common.BaseName(location)
	}
	return New(f)
}
