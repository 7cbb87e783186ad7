package exercise

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the lifecycle of a Timer.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
)

// ErrInvalidTransition is returned when a timer method is called in a state
// that does not allow it.
var ErrInvalidTransition = errors.New("invalid timer transition")

// Timer counts up to a fixed total and can be paused and resumed. While
// running it owns exactly one ticker goroutine; pausing, stopping, completion
// and context cancellation all stop the ticker and end that goroutine.
type Timer struct {
	total  time.Duration
	tick   time.Duration
	onTick func(elapsed time.Duration)

	mu        sync.Mutex
	state     State
	elapsed   time.Duration
	startedAt time.Time
	stop      chan struct{}
	exited    chan struct{}
	done      chan struct{}
}

// NewTimer returns an idle timer for total. onTick, if set, is called from the
// ticker goroutine every tick with the elapsed time.
func NewTimer(total, tick time.Duration, onTick func(time.Duration)) *Timer {
	if tick <= 0 {
		tick = time.Second
	}
	return &Timer{
		total:  total,
		tick:   tick,
		onTick: onTick,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
}

// Start begins counting. Cancelling ctx stops the timer.
func (t *Timer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateIdle {
		return ErrInvalidTransition
	}
	t.runLocked(ctx)
	return nil
}

// Pause freezes the elapsed time and ends the ticker goroutine.
func (t *Timer) Pause() error {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return ErrInvalidTransition
	}
	t.elapsed = t.elapsedLocked()
	t.state = StatePaused
	stop, exited := t.stop, t.exited
	t.mu.Unlock()

	close(stop)
	<-exited
	return nil
}

// Resume continues a paused timer from where it left off.
func (t *Timer) Resume(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePaused {
		return ErrInvalidTransition
	}
	t.runLocked(ctx)
	return nil
}

// Stop ends the timer early. Stopping a finished timer is a no-op.
func (t *Timer) Stop() {
	t.mu.Lock()
	switch t.state {
	case StateCompleted, StateStopped:
		t.mu.Unlock()
		return
	case StateRunning:
		t.elapsed = t.elapsedLocked()
		stop, exited := t.stop, t.exited
		t.state = StateStopped
		close(t.done)
		t.mu.Unlock()
		close(stop)
		<-exited
		return
	}
	t.state = StateStopped
	close(t.done)
	t.mu.Unlock()
}

// Elapsed returns the time counted so far, capped at the total.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsedLocked()
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed when the timer completes or is stopped.
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

func (t *Timer) elapsedLocked() time.Duration {
	e := t.elapsed
	if t.state == StateRunning {
		e += time.Since(t.startedAt)
	}
	if e > t.total {
		e = t.total
	}
	return e
}

func (t *Timer) runLocked(ctx context.Context) {
	t.state = StateRunning
	t.startedAt = time.Now()
	t.stop = make(chan struct{})
	t.exited = make(chan struct{})
	go t.run(ctx, t.stop, t.exited)
}

func (t *Timer) run(ctx context.Context, stop <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			t.finish(StateStopped)
			return
		case <-ticker.C:
			elapsed := t.Elapsed()
			if t.onTick != nil {
				t.onTick(elapsed)
			}
			if elapsed >= t.total {
				t.finish(StateCompleted)
				return
			}
		}
	}
}

// finish moves a running timer to a terminal state from the ticker goroutine.
func (t *Timer) finish(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return
	}
	t.elapsed = t.elapsedLocked()
	t.state = s
	close(t.done)
}
