package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Per-city failure sentinels. Every one of them is recoverable at the city
// boundary: the batch records the city as skipped and moves on.
var (
	ErrRegionNotFound      = eris.New("region not found")
	ErrDataUnavailable     = eris.New("data unavailable")
	ErrInsufficientSamples = eris.New("insufficient samples")
)

// ErrorKind names a category of the failure taxonomy.
type ErrorKind string

const (
	KindRegionNotFound      ErrorKind = "region_not_found"
	KindDataUnavailable     ErrorKind = "data_unavailable"
	KindInsufficientSamples ErrorKind = "insufficient_samples"
)

// CityError wraps a failure that aborted the analysis of one city.
type CityError struct {
	City City
	Kind ErrorKind
	Err  error
}

func (e *CityError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.City, e.Kind, e.Err)
}

func (e *CityError) Unwrap() error {
	return e.Err
}

// NewCityError classifies err and attaches the city it belongs to.
func NewCityError(city City, err error) *CityError {
	return &CityError{City: city, Kind: Classify(err), Err: err}
}

// Classify maps any error onto the taxonomy. Lower-level failures that are
// not one of the sentinels (I/O, malformed geometry) fold into
// KindDataUnavailable.
func Classify(err error) ErrorKind {
	var ce *CityError
	switch {
	case errors.As(err, &ce):
		return ce.Kind
	case eris.Is(err, ErrRegionNotFound):
		return KindRegionNotFound
	case eris.Is(err, ErrInsufficientSamples):
		return KindInsufficientSamples
	default:
		return KindDataUnavailable
	}
}

// IsSkippable returns true if the batch may continue after err. Context
// cancellation is the only failure that stops a batch.
func IsSkippable(err error) bool {
	if err == nil {
		return false
	}
	var ce *CityError
	if errors.As(err, &ce) {
		err = ce.Err
	}
	return !eris.Is(err, context.Canceled) && !eris.Is(err, context.DeadlineExceeded)
}

// AlignmentWarning is a non-fatal degradation recorded while aligning or
// masking. Processing continues with best-effort data.
type AlignmentWarning struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (w AlignmentWarning) String() string {
	return w.Stage + ": " + w.Message
}
