// Package screen tracks fullscreen mode and auto-hide of the on-screen
// controls after user inactivity.
package screen

import (
	"log"
	"sync"
	"time"

	"lecterm/internal/domain"
	"lecterm/internal/eventbus"
)

// inactivityDelay is how long controls stay visible in fullscreen without
// user activity.
const inactivityDelay = 2500 * time.Millisecond

// Controller is shared state across every consumer that shows playback
// controls. Activity tracking is live only while at least one consumer holds
// an acquisition: the first Acquire activates it, the last release
// deactivates it.
type Controller struct {
	mu              sync.Mutex
	bus             eventbus.EventBus
	refs            int
	fullscreen      bool
	controlsVisible bool
	timer           *time.Timer
	delay           time.Duration

	// nativeFS, when set, performs the host fullscreen switch. Without it
	// the controller falls back to a simulated fullscreen state that the
	// view renders directly.
	nativeFS func(on bool) error
}

// NewController creates a controller with controls visible.
func NewController(bus eventbus.EventBus) *Controller {
	return &Controller{
		bus:             bus,
		controlsVisible: true,
		delay:           inactivityDelay,
	}
}

// SetNativeFullscreen installs the host fullscreen hook.
func (c *Controller) SetNativeFullscreen(fn func(on bool) error) {
	c.mu.Lock()
	c.nativeFS = fn
	c.mu.Unlock()
}

// Acquire registers a consumer and returns its idempotent release function.
func (c *Controller) Acquire() func() {
	c.mu.Lock()
	c.refs++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.refs--
			last := c.refs == 0
			if last {
				c.stopTimerLocked()
				c.controlsVisible = true
			}
			c.mu.Unlock()
		})
	}
}

// EnterFullscreen switches to fullscreen, shows controls and starts the
// inactivity timer.
func (c *Controller) EnterFullscreen() {
	c.mu.Lock()
	if c.fullscreen {
		c.mu.Unlock()
		return
	}
	c.fullscreen = true
	c.controlsVisible = true
	c.resetTimerLocked()
	native := c.nativeFS
	c.mu.Unlock()

	if native != nil {
		if err := native(true); err != nil {
			log.Printf("screen: fullscreen request failed: %v", err)
		}
	}
	c.publish(domain.FullscreenChangedEvent{Fullscreen: true})
	c.publish(domain.ControlsChangedEvent{Visible: true})
}

// ExitFullscreen leaves fullscreen, cancels the inactivity timer and forces
// controls visible.
func (c *Controller) ExitFullscreen() {
	c.mu.Lock()
	if !c.fullscreen {
		c.mu.Unlock()
		return
	}
	c.fullscreen = false
	c.controlsVisible = true
	c.stopTimerLocked()
	native := c.nativeFS
	c.mu.Unlock()

	if native != nil {
		if err := native(false); err != nil {
			log.Printf("screen: fullscreen exit failed: %v", err)
		}
	}
	c.publish(domain.FullscreenChangedEvent{Fullscreen: false})
	c.publish(domain.ControlsChangedEvent{Visible: true})
}

// ToggleFullscreen flips fullscreen mode.
func (c *Controller) ToggleFullscreen() {
	if c.Fullscreen() {
		c.ExitFullscreen()
	} else {
		c.EnterFullscreen()
	}
}

// Activity records user input. In fullscreen it re-shows the controls and
// restarts the inactivity timer. Ignored while no consumer is registered.
func (c *Controller) Activity() {
	c.mu.Lock()
	if c.refs == 0 || !c.fullscreen {
		c.mu.Unlock()
		return
	}
	reshown := !c.controlsVisible
	c.controlsVisible = true
	c.resetTimerLocked()
	c.mu.Unlock()

	if reshown {
		c.publish(domain.ControlsChangedEvent{Visible: true})
	}
}

// Fullscreen reports fullscreen mode.
func (c *Controller) Fullscreen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fullscreen
}

// ControlsVisible reports whether the controls should be drawn.
func (c *Controller) ControlsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controlsVisible
}

func (c *Controller) resetTimerLocked() {
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.delay, c.hideControls)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) hideControls() {
	c.mu.Lock()
	if !c.fullscreen || !c.controlsVisible {
		c.mu.Unlock()
		return
	}
	c.controlsVisible = false
	c.mu.Unlock()

	c.publish(domain.ControlsChangedEvent{Visible: false})
}

func (c *Controller) publish(ev eventbus.DomainEvent) {
	if c.bus != nil {
		c.bus.Publish(ev)
	}
}
