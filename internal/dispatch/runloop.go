package dispatch

import (
	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/domain"
	"github.com/declview/hotview/internal/domain/ports"
	"github.com/declview/hotview/internal/sync"
)

// RunLoop is a single-goroutine Executor for hosts without a UI loop of
// their own. Posted functions run serially in submission order.
type RunLoop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	running bool
	stopped bool
	done    chan struct{}
}

// NewRunLoop creates a stopped run loop.
func NewRunLoop() *RunLoop {
	rl := &RunLoop{}
	rl.cond = sync.NewCond(&rl.mu)
	return rl
}

// Start launches the loop goroutine. Calling Start on a running or stopped
// loop is a no-op.
func (rl *RunLoop) Start() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.running || rl.stopped {
		return
	}
	rl.running = true
	rl.done = make(chan struct{})
	go rl.loop()
}

// Stop drains the queue, stops the loop goroutine and waits for it to
// exit. Functions posted after Stop are dropped. Must not be called from
// the loop itself.
func (rl *RunLoop) Stop() {
	rl.mu.Lock()
	if rl.stopped {
		rl.mu.Unlock()
		return
	}
	rl.stopped = true
	wasRunning := rl.running
	rl.running = false
	done := rl.done
	rl.cond.Signal()
	rl.mu.Unlock()

	if wasRunning {
		<-done
	}
}

// Post schedules fn on the loop. It never blocks.
func (rl *RunLoop) Post(fn func()) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.stopped {
		log.Debug().Err(domain.ErrExecutorStopped).Msg("posted function dropped")
		return
	}
	rl.queue = append(rl.queue, fn)
	rl.cond.Signal()
}

func (rl *RunLoop) loop() {
	defer close(rl.done)
	for {
		rl.mu.Lock()
		for len(rl.queue) == 0 && !rl.stopped {
			rl.cond.Wait()
		}
		if len(rl.queue) == 0 {
			rl.mu.Unlock()
			return
		}
		fn := rl.queue[0]
		rl.queue = rl.queue[1:]
		rl.mu.Unlock()

		rl.run(fn)
	}
}

// run isolates a single queued function.
func (rl *RunLoop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("posted function panicked")
		}
	}()
	fn()
}

// Ensure RunLoop implements ports.Executor.
var _ ports.Executor = (*RunLoop)(nil)
