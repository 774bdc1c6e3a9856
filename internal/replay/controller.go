// Package replay drives time-based progression through a replay dataset.
//
// A Controller owns the PlaybackState and is the only writer of it. While
// playing it runs exactly one ticker goroutine at baseInterval/speed; pausing,
// changing speed, reloading, or reaching the last frame cancels that ticker
// before any replacement is scheduled. Every state change is published as a
// domain.PlaybackUpdate to subscribers.
package replay

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/couchcryptid/flood-replay-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// minInterval bounds the ticker period for very large speed multipliers.
const minInterval = time.Millisecond

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source. Tests pass a clockwork fake clock.
func WithClock(c clockwork.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithSessionIDs overrides session id generation.
func WithSessionIDs(fn func() string) Option {
	return func(ctl *Controller) { ctl.newSessionID = fn }
}

// Controller is the replay playback state machine.
type Controller struct {
	baseInterval time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
	newSessionID func() string

	mu        sync.Mutex
	dataset   *domain.ReplayDataset
	state     domain.PlaybackState
	sessionID string

	// Scheduled advancement. generation increments on every schedule so a
	// tick delivered by a cancelled ticker is recognised and dropped.
	ticker     clockwork.Ticker
	stopTicker chan struct{}
	generation uint64

	subs    map[int]chan domain.PlaybackUpdate
	nextSub int
	closed  bool
}

// New creates a Controller advancing one frame per baseInterval at speed 1.
func New(baseInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Controller {
	c := &Controller{
		baseInterval: baseInterval,
		clock:        clockwork.NewRealClock(),
		logger:       logger,
		metrics:      metrics,
		newSessionID: uuid.NewString,
		state:        domain.DefaultPlaybackState(0),
		subs:         make(map[int]chan domain.PlaybackUpdate),
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.PlaybackSpeed.Set(c.state.SpeedMultiplier)
	return c
}

// Load installs a dataset and resets playback to the first frame, paused,
// at speed 1. Any running ticker is cancelled.
func (c *Controller) Load(ds domain.ReplayDataset) error {
	if ds.Len() == 0 {
		return domain.ErrEmptyDataset
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrClosed
	}
	c.cancelTicker()
	c.dataset = &ds
	c.state = domain.DefaultPlaybackState(ds.Len())
	c.sessionID = c.newSessionID()
	c.metrics.PlaybackPlaying.Set(0)
	c.metrics.PlaybackSpeed.Set(c.state.SpeedMultiplier)

	c.logger.Info("replay dataset loaded", "session_id", c.sessionID, "frames", ds.Len(), "region", ds.Region)
	c.publish(domain.ReasonLoad)
	return nil
}

// Play starts periodic advancement. Calling Play while playing is a no-op.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrClosed
	}
	if c.dataset == nil {
		return domain.ErrNotLoaded
	}
	if c.state.IsPlaying {
		return nil
	}

	c.state.IsPlaying = true
	c.schedule()
	c.metrics.PlaybackPlaying.Set(1)

	c.logger.Debug("playback started", "session_id", c.sessionID, "frame", c.state.CurrentFrameIndex, "speed", c.state.SpeedMultiplier)
	c.publish(domain.ReasonPlay)
	return nil
}

// Pause stops advancement. Calling Pause while paused is a no-op.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsPlaying {
		return
	}

	c.state.IsPlaying = false
	c.cancelTicker()
	c.metrics.PlaybackPlaying.Set(0)

	c.logger.Debug("playback paused", "session_id", c.sessionID, "frame", c.state.CurrentFrameIndex)
	c.publish(domain.ReasonPause)
}

// SetSpeed changes the speed multiplier. Invalid values are rejected and
// leave the current speed in place. Position is never reset; a running
// ticker is replaced by one at the new cadence.
func (c *Controller) SetSpeed(multiplier float64) error {
	if err := domain.ValidateSpeed(multiplier); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.SpeedMultiplier = multiplier
	if c.state.IsPlaying {
		c.cancelTicker()
		c.schedule()
	}
	c.metrics.PlaybackSpeed.Set(multiplier)

	c.logger.Debug("playback speed changed", "session_id", c.sessionID, "speed", multiplier, "interval", c.interval())
	c.publish(domain.ReasonSpeed)
	return nil
}

// Seek moves to frameIndex, clamped into the dataset. It never fails and
// does not change whether playback is running. Before a dataset is loaded
// it does nothing.
func (c *Controller) Seek(frameIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seek(frameIndex)
}

// Skip seeks relative to the current frame. Deltas past either end of the
// int range saturate before clamping.
func (c *Controller) Skip(deltaFrames int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seek(saturatingAdd(c.state.CurrentFrameIndex, deltaFrames))
}

// CurrentFrame returns the frame at the current index.
func (c *Controller) CurrentFrame() (domain.ReplayFrame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dataset == nil {
		return domain.ReplayFrame{}, domain.ErrNotLoaded
	}
	return c.dataset.Frames[c.state.CurrentFrameIndex], nil
}

// State returns a snapshot of the playback state.
func (c *Controller) State() domain.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dataset returns the loaded dataset, or ErrNotLoaded.
func (c *Controller) Dataset() (domain.ReplayDataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dataset == nil {
		return domain.ReplayDataset{}, domain.ErrNotLoaded
	}
	return *c.dataset, nil
}

// SessionID identifies the current load. Empty before the first Load.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// CheckReadiness returns nil once a dataset is loaded.
func (c *Controller) CheckReadiness(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dataset == nil {
		return domain.ErrNotLoaded
	}
	return nil
}

// Subscribe registers a listener for playback updates. The channel is
// buffered; when it is full the oldest queued update is discarded so the
// subscriber always ends up holding the latest state. Call the returned
// func to unsubscribe; it closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan domain.PlaybackUpdate, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan domain.PlaybackUpdate, buffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops playback and closes every subscriber channel. Load and Play
// return ErrClosed afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.state.IsPlaying = false
	c.cancelTicker()
	c.metrics.PlaybackPlaying.Set(0)
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// interval is the effective cadence for the current speed.
// The division stays in float64 until it is known to fit a Duration; tiny
// multipliers would otherwise wrap negative.
func (c *Controller) interval() time.Duration {
	f := float64(c.baseInterval) / c.state.SpeedMultiplier
	switch {
	case f >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	case f < float64(minInterval):
		return minInterval
	}
	return time.Duration(f)
}

// schedule starts a ticker goroutine. Callers hold mu and must have
// cancelled any previous ticker.
func (c *Controller) schedule() {
	c.generation++
	gen := c.generation
	ticker := c.clock.NewTicker(c.interval())
	stop := make(chan struct{})
	c.ticker = ticker
	c.stopTicker = stop

	go c.run(gen, ticker, stop)
}

// cancelTicker stops the running ticker, if any. Callers hold mu.
func (c *Controller) cancelTicker() {
	if c.stopTicker == nil {
		return
	}
	c.ticker.Stop()
	close(c.stopTicker)
	c.ticker = nil
	c.stopTicker = nil
}

func (c *Controller) run(gen uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if !c.tick(gen) {
				return
			}
		}
	}
}

// tick advances one frame. It returns false once the ticker for gen should
// exit: playback was paused, rescheduled, or reached the final frame.
func (c *Controller) tick(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || !c.state.IsPlaying || c.dataset == nil {
		return false
	}

	last := c.dataset.Len() - 1
	if c.state.CurrentFrameIndex < last {
		c.state.CurrentFrameIndex++
		c.metrics.FramesAdvanced.Inc()
	}

	if c.state.CurrentFrameIndex >= last {
		c.state.IsPlaying = false
		c.cancelTicker()
		c.metrics.PlaybackPlaying.Set(0)
		c.logger.Info("replay reached final frame", "session_id", c.sessionID, "frame", c.state.CurrentFrameIndex)
		c.publish(domain.ReasonEnd)
		return false
	}

	c.publish(domain.ReasonTick)
	return true
}

// seek clamps and applies a new index. Callers hold mu.
func (c *Controller) seek(frameIndex int) {
	if c.dataset == nil {
		return
	}
	c.state.CurrentFrameIndex = clamp(frameIndex, 0, c.dataset.Len()-1)
	c.metrics.Seeks.Inc()
	c.publish(domain.ReasonSeek)
}

// publish fans a snapshot out to subscribers without blocking. Callers hold mu.
func (c *Controller) publish(reason domain.UpdateReason) {
	if len(c.subs) == 0 {
		return
	}

	update := domain.PlaybackUpdate{
		SessionID: c.sessionID,
		Reason:    reason,
		State:     c.state,
		At:        c.clock.Now(),
	}
	if c.dataset != nil {
		update.Frame = &c.dataset.Frames[c.state.CurrentFrameIndex]
	}

	for _, ch := range c.subs {
		select {
		case ch <- update:
			continue
		default:
		}
		// Full: evict the oldest queued update. The subscriber may drain
		// concurrently, so both steps are non-blocking.
		select {
		case <-ch:
			c.metrics.UpdatesDropped.Inc()
		default:
		}
		select {
		case ch <- update:
		default:
			c.metrics.UpdatesDropped.Inc()
		}
	}
}

func saturatingAdd(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
