package scrape

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the per-URL failure taxonomy. Every one of these
// is terminal for the URL it occurred on; none aborts a batch.
var (
	// ErrPolicyDenied marks a URL the resource's crawl policy disallows.
	// Never retried.
	ErrPolicyDenied = errors.New("blocked by crawl policy")

	// ErrFetchFailed marks a URL whose retry budget was exhausted.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrExtractionFailed marks a payload that downloaded but could not be
	// parsed by its extractor.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrNoContent marks an extraction that parsed cleanly but yielded no
	// text. Distinct from ErrExtractionFailed.
	ErrNoContent = errors.New("no text extracted")

	// ErrStructuringSkipped signals the structuring service declined to
	// produce output. Not a failure for control-flow purposes.
	ErrStructuringSkipped = errors.New("structuring skipped")
)

// TransientError wraps a fetch error that is worth retrying: network
// failures, timeouts, and non-2xx responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
