// Package poll implements a bounded goal-state polling loop.
//
// One generic primitive, Run, repeatedly fetches an observed state label and
// asks a verdict function whether to stop. Every named wait operation in the
// job package is a thin configuration of this primitive.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobctl/pkg/backoff"
)

// Verdict classifies an observed state.
type Verdict int

const (
	// Continue means the state is neither the goal nor a failure, keep polling.
	Continue Verdict = iota
	// Success means the goal state was reached.
	Success
	// Failure means a designated failure state was reached.
	Failure
)

// Config bounds a polling loop.
type Config struct {
	MaxAttempts int           // fetches before giving up
	Interval    time.Duration // sleep between attempts
}

// Fetch returns the current observed state label. It must be an idempotent
// read. A returned error counts as a missed observation, not a failure.
type Fetch func(ctx context.Context) (string, error)

// Decide maps an observed state label to a verdict.
type Decide func(state string) Verdict

// Outcome reports how a polling loop ended.
type Outcome struct {
	Reached   bool          // goal state observed
	LastState string        // last successfully observed state
	Attempts  int           // fetches performed
	Elapsed   time.Duration // wall time from first fetch to termination
}

// FailureStateError reports that a designated failure state was observed
// before the goal state.
type FailureStateError struct {
	Name     string
	State    string
	Attempts int
}

func (e *FailureStateError) Error() string {
	return fmt.Sprintf("%s reached failure state %s after %d attempts", e.Name, e.State, e.Attempts)
}

// ExhaustedError reports that the attempt budget ran out before the goal or
// a failure state was observed.
type ExhaustedError struct {
	Name      string
	LastState string
	Attempts  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s exhausted %d attempts, last state %q", e.Name, e.Attempts, e.LastState)
}

// Run polls fetch until decide terminates the loop or the attempt budget is
// exhausted. name identifies the waited-on resource in logs and errors.
//
// Each fetch consumes one attempt, including fetches that fail transiently.
// A failure state is only recognized on a successful read; a transition that
// happens while a read is failing is observed one attempt later. Success and
// failure terminate immediately with no trailing sleep. On ctx cancellation
// between attempts the context error is returned.
func Run(ctx context.Context, cfg Config, name string, fetch Fetch, decide Decide) (Outcome, error) {
	start := time.Now()
	var last string

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		observed, err := fetch(ctx)
		if err != nil {
			slog.Warn("state fetch failed", "name", name, "attempt", attempt, "error", err)
		} else {
			if observed != last {
				slog.Info("state transition", "name", name, "from", last, "to", observed, "attempt", attempt)
			}
			last = observed

			switch decide(observed) {
			case Success:
				out := Outcome{Reached: true, LastState: last, Attempts: attempt, Elapsed: time.Since(start)}
				slog.Info("goal state reached", "name", name, "state", last, "attempts", attempt, "elapsed", out.Elapsed)
				return out, nil
			case Failure:
				out := Outcome{LastState: last, Attempts: attempt, Elapsed: time.Since(start)}
				return out, &FailureStateError{Name: name, State: last, Attempts: attempt}
			}
		}

		if attempt == cfg.MaxAttempts {
			break
		}
		if err := backoff.Sleep(ctx, cfg.Interval); err != nil {
			return Outcome{LastState: last, Attempts: attempt, Elapsed: time.Since(start)}, err
		}
	}

	out := Outcome{LastState: last, Attempts: cfg.MaxAttempts, Elapsed: time.Since(start)}
	return out, &ExhaustedError{Name: name, LastState: last, Attempts: cfg.MaxAttempts}
}

// Condition is an arbitrary predicate evaluated each attempt.
type Condition func(ctx context.Context) (bool, error)

// Until polls cond under the same attempt budget and interval as Run until
// it returns true. Exhaustion is reported as an ExhaustedError; there is no
// failure state for a condition wait.
func Until(ctx context.Context, cfg Config, name string, cond Condition) (Outcome, error) {
	return Run(ctx, cfg, name,
		func(ctx context.Context) (string, error) {
			ok, err := cond(ctx)
			if err != nil {
				return "", err
			}
			if ok {
				return "met", nil
			}
			return "unmet", nil
		},
		func(state string) Verdict {
			if state == "met" {
				return Success
			}
			return Continue
		})
}
