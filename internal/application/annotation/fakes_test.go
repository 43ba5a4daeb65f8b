package annotation

import (
	"context"
	"fmt"
	"strings"

	"github.com/turtacn/Opinion-Intelligence/internal/domain/opinion"
	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
)

// eventLog records classifier calls and resets in order so tests can check
// where resets happen relative to sentences.
type eventLog struct {
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) count(prefix string) int {
	n := 0
	for _, e := range l.events {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}

// fakeLabeler returns the spans registered for the first form of a sentence.
type fakeLabeler struct {
	name   string
	spans  map[string][]common.LabeledSpan
	err    error
	log    *eventLog
	resets int
}

func newFakeLabeler(name string, log *eventLog) *fakeLabeler {
	return &fakeLabeler{name: name, spans: map[string][]common.LabeledSpan{}, log: log}
}

func (f *fakeLabeler) Name() string { return f.name }

func (f *fakeLabeler) LabelSequence(_ context.Context, tokens []string) ([]common.LabeledSpan, error) {
	f.log.add("label %s", strings.Join(tokens, " "))
	if f.err != nil {
		return nil, f.err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	return f.spans[tokens[0]], nil
}

func (f *fakeLabeler) ResetAdaptiveState() {
	f.resets++
	f.log.add("reset %s", f.name)
}

// fakeClassifier returns the label registered for the first form of a
// sentence, or def.  A non-zero failOn makes only that call fail.
type fakeClassifier struct {
	name   string
	def    string
	labels map[string]string
	err    error
	failOn int
	log    *eventLog
	calls  int
	probs  int
	resets int
}

func newFakeClassifier(name, def string, log *eventLog) *fakeClassifier {
	return &fakeClassifier{name: name, def: def, labels: map[string]string{}, log: log}
}

func (f *fakeClassifier) Name() string { return f.name }

func (f *fakeClassifier) Classify(_ context.Context, tokens []string) (string, error) {
	f.calls++
	f.log.add("classify %s", strings.Join(tokens, " "))
	if f.err != nil {
		return "", f.err
	}
	if f.failOn > 0 && f.calls == f.failOn {
		return "", fmt.Errorf("call %d failed", f.calls)
	}
	if len(tokens) > 0 {
		if l, ok := f.labels[tokens[0]]; ok {
			return l, nil
		}
	}
	return f.def, nil
}

func (f *fakeClassifier) ClassifyProb(_ context.Context, _ []string) ([]float64, error) {
	f.probs++
	return []float64{1}, nil
}

func (f *fakeClassifier) Labels() []string { return []string{f.def} }

func (f *fakeClassifier) ResetAdaptiveState() {
	f.resets++
	f.log.add("reset %s", f.name)
}

// fakeLexicon is an in-memory dictionary.
type fakeLexicon struct {
	name    string
	entries map[string]string
	err     error
	lookups []string
}

func (f *fakeLexicon) Name() string { return f.name }

func (f *fakeLexicon) Lookup(_ context.Context, form string) (string, bool, error) {
	f.lookups = append(f.lookups, form)
	if f.err != nil {
		return "", false, f.err
	}
	pol, ok := f.entries[strings.ToLower(form)]
	return pol, ok, nil
}

// sentence builds a sentence whose token IDs are t<offset+i+1>.
func sentence(index, offset int, text string) *opinion.Sentence {
	forms := strings.Fields(text)
	toks := make([]opinion.Token, len(forms))
	for i, f := range forms {
		toks[i] = opinion.Token{ID: fmt.Sprintf("t%d", offset+i+1), Form: f}
	}
	return opinion.NewSentence(index, toks)
}

func batteryDoc() *opinion.Document {
	return opinion.NewDocument("en", []*opinion.Sentence{sentence(1, 0, "The battery life is great .")})
}

func twoSentenceDoc() *opinion.Document {
	return opinion.NewDocument("en", []*opinion.Sentence{
		sentence(1, 0, "The screen is dim ."),
		sentence(2, 5, "-DOCSTART- Intro"),
	})
}
