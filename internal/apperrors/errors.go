// Package apperrors carries the error taxonomy shared by the analysis,
// planning and orchestration engines.
package apperrors

import "errors"

// Sentinel kinds, one per row of the error taxonomy table. Callers should
// wrap these with fmt.Errorf("...: %w", Kind) so context survives while
// errors.Is still matches the kind.
var (
	ErrCatalogueUnavailable = errors.New("catalogue unavailable")
	ErrAcquisitionFailed    = errors.New("acquisition failed")
	ErrNormalisationFailed  = errors.New("normalisation failed")
	ErrDecodeFailed         = errors.New("decode failed")
	ErrEmptyAudio           = errors.New("empty audio")
	ErrResampleFailed       = errors.New("resample failed")
	ErrExtractorFailed      = errors.New("extractor failed")
	ErrPlannerInfeasible    = errors.New("not enough analysed tracks")
	ErrCancelled            = errors.New("cancelled by user")
)

// Kind classifies an error into one taxonomy row for logging/metrics.
type Kind string

const (
	KindCatalogueUnavailable Kind = "CatalogueUnavailable"
	KindAcquisitionFailed    Kind = "AcquisitionFailed"
	KindNormalisationFailed  Kind = "NormalisationFailed"
	KindDecodeFailed         Kind = "DecodeFailed"
	KindEmptyAudio           Kind = "EmptyAudio"
	KindExtractorFailed      Kind = "ExtractorFailed"
	KindPlannerInfeasible    Kind = "PlannerInfeasible"
	KindCancelled            Kind = "Cancelled"
	KindInternal             Kind = "InternalError"
)

// Classify maps an error to its taxonomy Kind, falling back to KindInternal
// for anything not wrapping one of the sentinels above.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCatalogueUnavailable):
		return KindCatalogueUnavailable
	case errors.Is(err, ErrAcquisitionFailed):
		return KindAcquisitionFailed
	case errors.Is(err, ErrNormalisationFailed):
		return KindNormalisationFailed
	case errors.Is(err, ErrDecodeFailed):
		return KindDecodeFailed
	case errors.Is(err, ErrEmptyAudio):
		return KindEmptyAudio
	case errors.Is(err, ErrExtractorFailed):
		return KindExtractorFailed
	case errors.Is(err, ErrPlannerInfeasible):
		return KindPlannerInfeasible
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	default:
		return KindInternal
	}
}

// Fatal reports whether an error of this kind must fail the whole job
// (§7: CatalogueUnavailable, PlannerInfeasible, Cancelled, InternalError).
func (k Kind) Fatal() bool {
	switch k {
	case KindCatalogueUnavailable, KindPlannerInfeasible, KindCancelled, KindInternal:
		return true
	default:
		return false
	}
}
