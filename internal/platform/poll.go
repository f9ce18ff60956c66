package platform

import (
	"context"
	"time"
)

type Readiness int

const (
	Processing Readiness = iota
	Ready
	Errored
)

func (r Readiness) String() string {
	switch r {
	case Ready:
		return "ready"
	case Errored:
		return "error"
	default:
		return "processing"
	}
}

type PollOutcome int

const (
	PollReady PollOutcome = iota
	PollErrored
	PollTimedOut
)

type PollResult struct {
	Outcome  PollOutcome
	Detail   string
	Attempts int
}

type CheckFunc func(ctx context.Context) (Readiness, string, error)

// Poller waits for an asynchronous readiness signal. It checks at most
// MaxWait/Interval times (at least once), sleeping Interval between checks.
type Poller struct {
	Interval time.Duration
	MaxWait  time.Duration
	Sleep    SleepFunc
}

func (p Poller) maxChecks() int {
	if p.Interval <= 0 {
		return 1
	}
	n := int(p.MaxWait / p.Interval)
	if n < 1 {
		n = 1
	}
	return n
}

// Poll returns a tagged result; an error is returned only when a check itself fails.
func (p Poller) Poll(ctx context.Context, check CheckFunc) (PollResult, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	limit := p.maxChecks()
	for i := 1; i <= limit; i++ {
		state, detail, err := check(ctx)
		if err != nil {
			return PollResult{Attempts: i}, err
		}
		switch state {
		case Ready:
			return PollResult{Outcome: PollReady, Detail: detail, Attempts: i}, nil
		case Errored:
			return PollResult{Outcome: PollErrored, Detail: detail, Attempts: i}, nil
		}
		if i == limit {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return PollResult{Attempts: i}, err
		}
	}
	return PollResult{Outcome: PollTimedOut, Attempts: limit}, nil
}
