package uploadqueue

import "time"

// Policy holds the retry numbers of the upload drain.
type Policy struct {
	// MaxRetries is the number of failed attempts after which an item is
	// marked failed.
	MaxRetries int
	// BackoffCap bounds the delay between attempts.
	BackoffCap time.Duration
	// AuthWait is how long the drain pauses when nobody is signed in.
	AuthWait time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BackoffCap: 30 * time.Second,
		AuthWait:   5 * time.Second,
	}
}

// Backoff is the delay after the n-th failed attempt: 2^n seconds, capped.
func (p Policy) Backoff(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if n >= 31 {
		return p.BackoffCap
	}
	d := time.Duration(1<<n) * time.Second
	if p.BackoffCap > 0 && d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}
