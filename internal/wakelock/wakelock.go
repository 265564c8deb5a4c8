// Package wakelock keeps the display awake while playback is active by
// holding a system idle inhibitor.
package wakelock

import (
	"log"
	"os/exec"
	"sync"
)

// starter acquires the platform inhibitor. stop releases it; done is closed
// when the inhibitor goes away, solicited or not.
type starter func() (stop func(), done <-chan struct{}, err error)

// Controller manages one inhibitor hold. All operations are idempotent and
// failures are logged, never surfaced as errors.
type Controller struct {
	mu        sync.Mutex
	start     starter
	supported bool
	active    bool
	gen       int // invalidates release watchers from stale holds
	stop      func()
}

// New feature-detects inhibitor support and returns a controller. On hosts
// without systemd-inhibit every Request reports failure.
func New() *Controller {
	c := &Controller{}
	path, err := exec.LookPath("systemd-inhibit")
	if err != nil {
		log.Printf("wakelock: not supported: %v", err)
		return c
	}
	c.supported = true
	c.start = func() (func(), <-chan struct{}, error) {
		return startInhibitor(path)
	}
	return c
}

func newWithStarter(start starter) *Controller {
	return &Controller{start: start, supported: start != nil}
}

func startInhibitor(path string) (func(), <-chan struct{}, error) {
	cmd := exec.Command(path,
		"--what=idle",
		"--who=lecterm",
		"--why=lecture playback",
		"--mode=block",
		"sleep", "infinity",
	)
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	stop := func() {
		_ = cmd.Process.Kill()
	}
	return stop, done, nil
}

// Request acquires the lock. It reports false when unsupported, already
// held, or the acquisition fails.
func (c *Controller) Request() bool {
	c.mu.Lock()
	if !c.supported || c.active {
		c.mu.Unlock()
		return false
	}
	stop, done, err := c.start()
	if err != nil {
		c.mu.Unlock()
		log.Printf("wakelock: request failed: %v", err)
		return false
	}
	c.active = true
	c.stop = stop
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.watchRelease(gen, done)
	log.Printf("wakelock: acquired")
	return true
}

// watchRelease clears the active flag when the inhibitor is released out
// from under us, for example by the OS.
func (c *Controller) watchRelease(gen int, done <-chan struct{}) {
	<-done
	c.mu.Lock()
	if c.gen == gen && c.active {
		c.active = false
		c.stop = nil
		log.Printf("wakelock: released externally")
	}
	c.mu.Unlock()
}

// Release drops the lock; safe to call when nothing is held.
func (c *Controller) Release() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	stop := c.stop
	c.active = false
	c.stop = nil
	c.gen++
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	log.Printf("wakelock: released")
}

// HandleVisibilityChange reconciles the lock with host visibility: hidden
// releases it to save battery, visible re-requests it only when playback
// should keep the display awake and the lock is not already held.
func (c *Controller) HandleVisibilityChange(visible, shouldBeActive bool) {
	if !visible {
		c.Release()
		return
	}
	if shouldBeActive && !c.Active() {
		c.Request()
	}
}

// Supported reports whether an inhibitor backend is available.
func (c *Controller) Supported() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.supported
}

// Active reports whether the lock is currently held.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}
