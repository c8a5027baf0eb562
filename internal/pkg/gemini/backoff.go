package gemini

import (
	"time"

	"github.com/cenkalti/backoff"
)

type backoffProvider interface {
	Get() backoff.BackOff
}

//linearBackOff waits attempt * step
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

type linearBackOffProvider struct {
	step     time.Duration
	attempts int
}

func (bp *linearBackOffProvider) Get() backoff.BackOff {
	retries := bp.attempts - 1
	if retries < 1 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(&linearBackOff{step: bp.step}, uint64(retries))
}
