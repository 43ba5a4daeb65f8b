package doccls

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// ModelFile is the YAML layout of a bag-of-words log-linear classifier.
//
//	name: en-pol
//	labels: [positive, negative, neutral]
//	bias: {neutral: 0.3}
//	features:
//	  w=great: {positive: 2.0}
//	  prev=negative: {negative: 0.4}
//
// Token features are "w=<normalized form>".  The classifier adds one
// "prev=<label>" feature naming the label it returned last; that label is
// the adaptive state cleared by ResetAdaptiveState.
type ModelFile struct {
	Name     string                        `yaml:"name"`
	Language string                        `yaml:"language"`
	Labels   []string                      `yaml:"labels"`
	Bias     map[string]float64            `yaml:"bias"`
	Features map[string]map[string]float64 `yaml:"features"`
}

// Validate checks the label set and every weight reference.
func (f *ModelFile) Validate() error {
	if len(f.Labels) == 0 {
		return errors.New(errors.ErrCodeModelInvalid, "labels must not be empty")
	}
	known := make(map[string]bool, len(f.Labels))
	for _, l := range f.Labels {
		if l == "" {
			return errors.New(errors.ErrCodeModelInvalid, "labels must not be blank")
		}
		if known[l] {
			return errors.Newf(errors.ErrCodeModelInvalid, "duplicate label %q", l)
		}
		known[l] = true
	}
	for l := range f.Bias {
		if !known[l] {
			return errors.Newf(errors.ErrCodeModelInvalid, "bias references unknown label %q", l)
		}
	}
	for feat, byLabel := range f.Features {
		for l := range byLabel {
			if !known[l] {
				return errors.Newf(errors.ErrCodeModelInvalid, "feature %s references unknown label %q", feat, l)
			}
		}
	}
	return nil
}

// Parse decodes and validates a YAML model.
func Parse(data []byte) (*ModelFile, error) {
	var f ModelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelInvalid, "failed to decode classifier model")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Load reads the model at location (local path or s3://bucket/key).
func Load(ctx context.Context, location string, fetcher common.ObjectFetcher, metrics common.IntelligenceMetrics) (*Classifier, error) {
	data, err := common.ReadModel(ctx, location, fetcher, metrics)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelLoadFailed, "failed to read classifier model").
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
