package annotation

import (
	"github.com/turtacn/Opinion-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Opinion-Intelligence/pkg/errors"
)

// Failure groups Service errors the way transports report them.
type Failure int

const (
	FailureNone Failure = iota
	// FailureParse is a payload that is not a usable NAF document.
	FailureParse
	// FailureEncoding is a payload that is not UTF-8.
	FailureEncoding
	// FailureAnnotate covers everything else: classifier and dictionary
	// errors, language mismatches, cancellation.
	FailureAnnotate
)

// Classify maps an error returned by Service to a Failure.
func Classify(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.IsCode(err, errors.ErrCodeDocumentEncoding):
		return FailureEncoding
	case errors.IsCode(err, errors.ErrCodeDocumentMalformed),
		errors.IsCode(err, errors.ErrCodeDocumentEmpty),
		errors.IsCode(err, errors.ErrCodeUnknownTerm):
		return FailureParse
	default:
		return FailureAnnotate
	}
}

// Outcome is the document outcome label every transport records for err.
func Outcome(err error) string {
	switch Classify(err) {
	case FailureNone:
		return prometheus.OutcomeOK
	case FailureParse:
		return prometheus.OutcomeParseError
	case FailureEncoding:
		return prometheus.OutcomeEncodingError
	default:
		return prometheus.OutcomeAnnotateError
	}
}
