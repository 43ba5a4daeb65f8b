package doccls

import (
	"context"
	"math"
	"sync"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

const (
	wordFeaturePrefix = "w="
	prevFeaturePrefix = "prev="
)

// Classifier assigns one label to a token sequence.
type Classifier struct {
	name     string
	language string
	labels   []string
	bias     []float64
	weights  map[string][]float64

	mu   sync.Mutex
	prev string
}

// New builds a Classifier from a validated model file.
func New(f *ModelFile) (*Classifier, error) {
	if f == nil {
		return nil, errors.New(errors.ErrCodeModelInvalid, "classifier model is nil")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	labels := append([]string(nil), f.Labels...)
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}
	bias := make([]float64, len(labels))
	for l, w := range f.Bias {
		bias[index[l]] = w
	}
	weights := make(map[string][]float64, len(f.Features))
	for feat, byLabel := range f.Features {
		row := make([]float64, len(labels))
		for l, w := range byLabel {
			row[index[l]] = w
		}
		weights[feat] = row
	}

	return &Classifier{
		name:     f.Name,
		language: f.Language,
		labels:   labels,
		bias:     bias,
		weights:  weights,
	}, nil
}

// Name returns the model name.
func (c *Classifier) Name() string { return c.name }

// Language returns the language the model was built for, possibly empty.
func (c *Classifier) Language() string { return c.language }

// Labels returns the label set in probability order.
func (c *Classifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Classify returns the best label and remembers it for the next call.
func (c *Classifier) Classify(ctx context.Context, tokens []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	scores := c.scores(tokens)
	best := 0
	for j := 1; j < len(scores); j++ {
		if scores[j] > scores[best] {
			best = j
		}
	}
	c.prev = c.labels[best]
	return c.prev, nil
}

// ClassifyProb returns one probability per label, in Labels order.  It
// reads but does not update the adaptive state, so it can be called next
// to Classify on the same tokens.
func (c *Classifier) ClassifyProb(ctx context.Context, tokens []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	scores := c.scores(tokens)
	c.mu.Unlock()
	return softmax(scores), nil
}

// ResetAdaptiveState forgets the previously returned label.
func (c *Classifier) ResetAdaptiveState() {
	c.mu.Lock()
	c.prev = ""
	c.mu.Unlock()
}

// scores must be called with c.mu held.
func (c *Classifier) scores(tokens []string) []float64 {
	scores := make([]float64, len(c.labels))
	copy(scores, c.bias)
	add := func(feat string) {
		if w, ok := c.weights[feat]; ok {
			for j := range scores {
				scores[j] += w[j]
			}
		}
	}
	for _, tok := range tokens {
		if key := common.NormalizeForm(tok); key != "" {
			add(wordFeaturePrefix + key)
		}
	}
	if c.prev != "" {
		add(prevFeaturePrefix + c.prev)
	}
	return scores
}

func softmax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	hi := scores[0]
	for _, s := range scores[1:] {
		if s > hi {
			hi = s
		}
	}
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

var _ common.DocumentClassifier = (*Classifier)(nil)
