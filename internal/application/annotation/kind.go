// Package annotation runs the opinion strategies over documents.  A
// Strategy is chosen once at setup from a Kind; it owns its classifiers and
// applies the clear-features policy to all of them.  Service wraps one
// Strategy with NAF decoding, serialization and the mutex that lets a
// long-lived server share it between connections.
package annotation

import (
	"strings"

	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Kind selects an annotation strategy.  The values are the task names used
// by the configuration and the server --task flag.
type Kind string

const (
	KindTarget    Kind = "ote"
	KindAspectSeq Kind = "aspect-seq"
	KindAspectDoc Kind = "aspect-doc"
	KindPolarity  Kind = "pol"
	KindABSA      Kind = "absa"
)

// Kinds lists every strategy in a stable order.
var Kinds = []Kind{KindTarget, KindAspectSeq, KindAspectDoc, KindPolarity, KindABSA}

// String implements fmt.Stringer.
func (k Kind) String() string { return string(k) }

// ParseKind accepts a task name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", errors.Newf(errors.ErrCodeStrategyUnsupported,
		"unknown task %q; expected ote|aspect-seq|aspect-doc|pol|absa", s)
}
