package httpx

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"
)

// FetchRetryError is returned when all retry attempts for a URL are exhausted.
type FetchRetryError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastError  error
}

func (e *FetchRetryError) Error() string {
	msg := "failed to fetch " + e.URL + " after " + strconv.Itoa(e.Attempts) + " attempts"
	if e.LastStatus != 0 {
		msg += " (HTTP " + strconv.Itoa(e.LastStatus) + ")"
	}
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *FetchRetryError) Unwrap() error { return e.LastError }

// RangeError reports a non-success status from a range or probe request.
type RangeError struct {
	URL    string
	Status int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range request %s: unexpected status %d", e.URL, e.Status)
}

// isRetryableStatus reports whether an HTTP status is worth retrying.
// Retryable: 429 and 5xx.
func isRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// backoff computes the exponential backoff delay for an attempt, capped and
// with up to 25% jitter to avoid thundering herds.
func backoff(attempt int, initial, max time.Duration) time.Duration {
	d := float64(initial) * math.Pow(2, float64(attempt))
	d = math.Min(d, float64(max))
	d += rand.Float64() * 0.25 * d
	return time.Duration(d)
}

// retryAfterBackoff computes the delay after a 429, respecting a
// Retry-After header when the server sends one.
func retryAfterBackoff(attempt int, initial, max time.Duration, retryAfter string) time.Duration {
	if retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			return time.Duration(seconds)*time.Second + time.Duration(rand.Float64()*float64(time.Second))
		}
	}
	d := float64(initial) * math.Pow(3, float64(attempt))
	d = math.Min(d, float64(max))
	d += rand.Float64() * 0.25 * d
	return time.Duration(d)
}
