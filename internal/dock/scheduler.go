package dock

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock schedules delayed work. Timers run f on their own goroutine, never on
// the main context.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// SystemClock is the wall clock backed by the runtime timer heap.
var SystemClock Clock = realClock{}

// Executor is the single main execution context that owns every window
// system call.
type Executor interface {
	// Post queues fn without waiting. It returns false once the context has
	// shut down.
	Post(fn func()) bool
	// Do runs fn on the main context and waits for it to finish. It must not
	// be called from the main context itself.
	Do(ctx context.Context, fn func()) error
}

// Timing holds the debounce, settle and throttle intervals.
type Timing struct {
	MoveDefer    time.Duration
	MoveSettle   time.Duration
	ResizeSettle time.Duration
	Throttle     time.Duration
}

// DefaultTiming returns intervals tuned for 60Hz displays: the short move
// defer is one frame, the settle delays run after the gesture has ended.
func DefaultTiming() Timing {
	return Timing{
		MoveDefer:    16 * time.Millisecond,
		MoveSettle:   150 * time.Millisecond,
		ResizeSettle: 150 * time.Millisecond,
		Throttle:     80 * time.Millisecond,
	}
}

// SyncFunc performs one geometry sync on the main context.
type SyncFunc func(raise bool)

// Scheduler decides when a primary move or resize turns into a panel sync.
//
// Moved and Resized are independent instances of the same pattern:
// Idle -> Pending(generation) -> Fired | Superseded. Each raw event bumps the
// generation of its class before anything is scheduled; a delayed action
// captures that value and on wake only runs if no newer event of the same
// class arrived. Superseded actions still wake, they just do nothing.
type Scheduler struct {
	timing Timing
	clock  Clock
	exec   Executor
	sync   SyncFunc

	start   time.Time
	moved   atomic.Uint64
	resized atomic.Uint64
	// lastSync is the monotonic offset from start of the last sync, plus one
	// so that zero means "never".
	lastSync atomic.Int64
	active   atomic.Bool
}

// NewScheduler creates an inactive scheduler. Call Start once a primary
// window is attached.
func NewScheduler(timing Timing, clock Clock, exec Executor, sync SyncFunc) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{
		timing: timing,
		clock:  clock,
		exec:   exec,
		sync:   sync,
		start:  clock.Now(),
	}
}

// Start enables event handling for a newly attached primary window.
func (s *Scheduler) Start() {
	s.active.Store(true)
}

// Stop disables event handling. Pending delayed actions are superseded.
func (s *Scheduler) Stop() {
	s.active.Store(false)
	s.moved.Add(1)
	s.resized.Add(1)
}

// Active reports whether a primary window is attached.
func (s *Scheduler) Active() bool {
	return s.active.Load()
}

// Generations returns the live moved and resized generation counters.
func (s *Scheduler) Generations() (moved, resized uint64) {
	return s.moved.Load(), s.resized.Load()
}

// MarkSynced records that a sync ran now.
func (s *Scheduler) MarkSynced() {
	s.lastSync.Store(s.elapsed() + 1)
}

// SinceLastSync returns the time since the last sync, or false if none ran.
func (s *Scheduler) SinceLastSync() (time.Duration, bool) {
	last := s.lastSync.Load()
	if last == 0 {
		return 0, false
	}
	return time.Duration(s.elapsed() - (last - 1)), true
}

// Moved handles a primary move event. Two raising syncs are scheduled with
// the same generation: a one-frame defer so the panel follows the drag, and
// a longer settle that corrects for coalesced or misreported intermediate
// positions. Only those still carrying the live generation run.
func (s *Scheduler) Moved() {
	if !s.active.Load() {
		return
	}
	gen := s.moved.Add(1)
	s.after(s.timing.MoveDefer, &s.moved, gen)
	s.after(s.timing.MoveSettle, &s.moved, gen)
}

// Resized handles a primary resize event. An immediate non-raising sync runs
// when the throttle interval has elapsed; a raising settle sync always
// follows so the final frame is applied even if the throttle suppressed it.
func (s *Scheduler) Resized() {
	if !s.active.Load() {
		return
	}
	gen := s.resized.Add(1)
	if s.claimThrottle() {
		s.exec.Post(func() { s.sync(false) })
	}
	s.after(s.timing.ResizeSettle, &s.resized, gen)
}

// Immediate queues a sync on the main context without any throttle.
func (s *Scheduler) Immediate(raise bool) {
	s.exec.Post(func() { s.sync(raise) })
}

func (s *Scheduler) after(d time.Duration, counter *atomic.Uint64, gen uint64) {
	s.clock.AfterFunc(d, func() {
		s.exec.Post(func() {
			if counter.Load() != gen {
				return
			}
			s.sync(true)
		})
	})
}

// claimThrottle reserves the immediate-sync slot if the throttle interval has
// elapsed. The compare-and-swap keeps concurrent producers from both
// claiming the same window.
func (s *Scheduler) claimThrottle() bool {
	now := s.elapsed() + 1
	last := s.lastSync.Load()
	if last != 0 && time.Duration(now-last) < s.timing.Throttle {
		return false
	}
	return s.lastSync.CompareAndSwap(last, now)
}

func (s *Scheduler) elapsed() int64 {
	return int64(s.clock.Now().Sub(s.start))
}
