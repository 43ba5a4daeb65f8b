// Package lexicon provides the file-backed polarity dictionary.
//
// Two layouts are accepted.  Tab-separated files carry one "form<TAB>polarity"
// pair per line, blank lines and lines starting with '#' are skipped.  YAML
// files (.yaml or .yml) hold a single mapping from form to polarity.  Keys
// are normalized with common.NormalizeForm, so lookups ignore case and
// Unicode composition.  A polarity of "O" marks an explicit non-entry.
package lexicon

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/Opinion-Intelligence/internal/intelligence/common"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Outside is the polarity value that reads as a miss.
const Outside = "O"

// Format selects the on-disk layout.
type Format int

const (
	FormatTSV Format = iota
	FormatYAML
)

// FormatFor picks the layout from the file extension.
func FormatFor(location string) Format {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTSV
	}
}

// Lexicon is an immutable in-memory polarity dictionary.
type Lexicon struct {
	name    string
	entries map[string]string
}

// New builds a lexicon from raw form/polarity pairs.
func New(name string, entries map[string]string) *Lexicon {
	l := &Lexicon{name: name, entries: make(map[string]string, len(entries))}
	for form, pol := range entries {
		l.add(form, pol)
	}
	return l
}

func (l *Lexicon) add(form, polarity string) {
	key := common.NormalizeForm(form)
	polarity = strings.TrimSpace(polarity)
	if key == "" || polarity == "" {
		return
	}
	l.entries[key] = polarity
}

// Parse reads a dictionary in the given format.
func Parse(name string, data []byte, format Format) (*Lexicon, error) {
	l := &Lexicon{name: name, entries: make(map[string]string)}

	switch format {
	case FormatYAML:
		var raw map[string]string
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeLexiconLoadFailed, "failed to decode YAML dictionary")
		}
		for form, pol := range raw {
			l.add(form, pol)
		}
	default:
		sc := bufio.NewScanner(bytes.NewReader(data))
		lineNo := 0
		for sc.Scan() {
			lineNo++
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			form, pol, ok := strings.Cut(line, "\t")
			if !ok {
				fields := strings.Fields(line)
				if len(fields) != 2 {
					return nil, errors.New(errors.ErrCodeLexiconLoadFailed, "malformed dictionary line").
						WithDetail(fmt.Sprintf("line=%d", lineNo))
				}
				form, pol = fields[0], fields[1]
			}
			l.add(form, pol)
		}
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeLexiconLoadFailed, "failed to read dictionary")
		}
	}
	return l, nil
}

// Load reads the dictionary at location (local path or s3://bucket/key).
// The dictionary name is the file name without extension.
func Load(ctx context.Context, location string, fetcher common.ObjectFetcher, metrics common.IntelligenceMetrics) (*Lexicon, error) {
	data, err := common.ReadModel(ctx, location, fetcher, metrics)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeLexiconLoadFailed, "failed to read dictionary").
			WithDetail(fmt.Sprintf("location=%s", location))
	}
	return Parse(common.BaseName(location), data, FormatFor(location))
}

// Name returns the dictionary name recorded as the sentiment resource.
func (l *Lexicon) Name() string { return l.name }

// Len returns the number of entries, "O" entries included.
func (l *Lexicon) Len() int { return len(l.entries) }

// Lookup returns the polarity of form.
func (l *Lexicon) Lookup(ctx context.Context, form string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	pol, ok := l.entries[common.NormalizeForm(form)]
	if !ok || pol == Outside {
		return "", false, nil
	}
	return pol, true, nil
}

// Entries returns a copy of the normalized entries.
func (l *Lexicon) Entries() map[string]string {
	out := make(map[string]string, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Forms returns the normalized forms, sorted.
func (l *Lexicon) Forms() []string {
	out := make([]string, 0, len(l.entries))
	for k := range l.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ common.PolarityLexicon = (*Lexicon)(nil)
