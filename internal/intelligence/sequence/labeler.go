package sequence

import (
	"context"
	"sort"
	"sync"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Labeler is a linear-chain BIO sequence labeler.  It remembers the label
// it last assigned to each form and favours that label on the next
// occurrence; ResetAdaptiveState forgets it.  Labeler is safe for concurrent
// use, but adaptive memory is shared by every caller.
type Labeler struct {
	name           string
	language       string
	labels         []string
	index          map[string]int
	bias           []float64
	weights        map[string][]float64
	transition     [][]float64
	adaptiveWeight float64
	greedy         bool

	mu       sync.Mutex
	previous map[string]int // normalized form -> label index
}

// New builds a Labeler from a validated model file.  O is moved to label
// index 0 so zero-score ties decode to O.
func New(f *ModelFile) (*Labeler, error) {
	if f == nil {
		return nil, errors.New(errors.ErrCodeModelInvalid, "sequence model is nil")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(f.Labels))
	labels = append(labels, LabelO)
	for _, l := range f.Labels {
		if l != LabelO {
			labels = append(labels, l)
		}
	}
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

	return &Labeler{
		name:           f.Name,
		language:       f.Language,
		labels:         labels,
		index:          index,
		bias:           bias,
		weights:        weights,
		transition:     buildTransitionScores(labels, f.Transitions),
		adaptiveWeight: f.AdaptiveWeight,
		greedy:         f.Decoder == DecoderGreedy,
		previous:       make(map[string]int),
	}, nil
}

// Name returns the model name.
func (l *Labeler) Name() string { return l.name }

// Language returns the language the model was built for, possibly empty.
func (l *Labeler) Language() string { return l.language }

// Labels returns the BIO label set with O first.
func (l *Labeler) Labels() []string {
	out := make([]string, len(l.labels))
	copy(out, l.labels)
	return out
}

// Types returns the span types the model can emit, sorted.
func (l *Labeler) Types() []string {
	var out []string
	for _, lab := range l.labels {
		if len(lab) > 2 && lab[:2] == beginPrefix {
			out = append(out, lab[2:])
		}
	}
	sort.Strings(out)
	return out
}

// LabelSequence decodes tokens and returns the typed spans found.
func (l *Labeler) LabelSequence(ctx context.Context, tokens []string) ([]common.LabeledSpan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	keys := normalizeAll(tokens)

	l.mu.Lock()
	defer l.mu.Unlock()

	emission := l.emissionScores(tokens, keys)
	var labels []string
	if l.greedy {
		labels = fixBIOLegality(greedyDecode(emission, l.labels))
	} else {
		labels = viterbiDecode(emission, l.transition, l.labels)
	}

	if l.adaptiveWeight != 0 {
		for i, lab := range labels {
			l.previous[keys[i]] = l.index[lab]
		}
	}
	return bioToSpans(labels), nil
}

// ResetAdaptiveState forgets every remembered label.
func (l *Labeler) ResetAdaptiveState() {
	l.mu.Lock()
	l.previous = make(map[string]int)
	l.mu.Unlock()
}

// emissionScores must be called with l.mu held.
func (l *Labeler) emissionScores(forms, keys []string) [][]float64 {
	emission := make([][]float64, len(forms))
	for i := range forms {
		row := make([]float64, len(l.labels))
		copy(row, l.bias)
		for _, feat := range tokenFeatures(forms, keys, i) {
			if w, ok := l.weights[feat]; ok {
				for j := range row {
					row[j] += w[j]
				}
			}
		}
		if l.adaptiveWeight != 0 {
			if prev, ok := l.previous[keys[i]]; ok {
				row[prev] += l.adaptiveWeight
			}
		}
		emission[i] = row
	}
	return emission
}

var _ common.SequenceLabeler = (*Labeler)(nil)
