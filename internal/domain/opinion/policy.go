package opinion

import (
	"strings"

	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// AdaptiveState is the only view the core has of a classifier's memory.
type AdaptiveState interface {
	ResetAdaptiveState()
}

// ClearFeaturesPolicy decides when classifier adaptive state is wiped during
// a document pass.  It is chosen once per strategy and applies to every
// classifier the strategy owns.
type ClearFeaturesPolicy int

const (
	// Never keeps adaptive state for the whole document.
	Never ClearFeaturesPolicy = iota
	// EverySentence resets before and after each sentence.
	EverySentence
	// OnBoundaryMarker resets before each sentence opening with BoundaryMarker.
	OnBoundaryMarker
)

// String returns the command-line literal of p.
func (p ClearFeaturesPolicy) String() string {
	switch p {
	case Never:
		return "no"
	case EverySentence:
		return "yes"
	case OnBoundaryMarker:
		return "docstart"
	default:
		return "unknown"
	}
}

// ParseClearFeaturesPolicy accepts "no", "yes" and "docstart".
func ParseClearFeaturesPolicy(s string) (ClearFeaturesPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "no", "":
		return Never, nil
	case "yes":
		return EverySentence, nil
	case "docstart":
		return OnBoundaryMarker, nil
	default:
		return Never, errors.Newf(errors.ErrCodePolicyInvalid,
			"clear features policy %q is invalid; expected yes|no|docstart", s)
	}
}

// ShouldResetBefore reports whether state must be reset before s is labelled.
func ShouldResetBefore(s *Sentence, p ClearFeaturesPolicy) bool {
	switch p {
	case EverySentence:
		return true
	case OnBoundaryMarker:
		return s != nil && s.IsBoundary()
	default:
		return false
	}
}

// ShouldResetAfter reports whether state must be reset after s is labelled.
func ShouldResetAfter(_ *Sentence, p ClearFeaturesPolicy) bool {
	return p == EverySentence
}

// ResetAll resets every non-nil state once.
func ResetAll(states ...AdaptiveState) {
	for _, st := range states {
		if st != nil {
			st.ResetAdaptiveState()
		}
	}
}
