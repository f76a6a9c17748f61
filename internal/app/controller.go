package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/event"
	"quran-quiz-bot/internal/scoring"
)

const resolveTimeout = 15 * time.Second

// Surface renders one command invocation on the chat platform.
type Surface interface {
	ShowQuestion(ctx context.Context, s domain.Session) error
	ShowResult(ctx context.Context, r domain.Result) error
	ShowNotice(ctx context.Context, n domain.Notice) error
}

// Publisher receives lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, e event.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, event.Event) {}

// ResponseEvent is one answer delivered by the platform.
type ResponseEvent struct {
	ResponderID string
	Value       string
	// Ack acknowledges the platform event before it is processed. Nil skips it.
	Ack func(ctx context.Context) error
}

type ControllerConfig struct {
	Stats  StatsStore
	Policy *scoring.Policy
	Events Publisher
	Now    func() time.Time
}

// Controller drives sessions from OPEN to exactly one terminal state and
// routes platform events to them by session ID.
type Controller struct {
	stats  StatsStore
	policy *scoring.Policy
	events Publisher
	now    func() time.Time

	mu     sync.RWMutex
	active map[string]*Handle
}

func NewController(c ControllerConfig) *Controller {
	if c.Events == nil {
		c.Events = nopPublisher{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Policy == nil {
		c.Policy = scoring.NewPolicyWithClock(c.Now)
	}
	return &Controller{
		stats:  c.Stats,
		policy: c.Policy,
		events: c.Events,
		now:    c.Now,
		active: make(map[string]*Handle),
	}
}

// Start opens the session and arms its deadline. release is called exactly
// once when the session is finished, on every path.
func (c *Controller) Start(ctx context.Context, s domain.Session, surface Surface, release func()) *Handle {
	if release == nil {
		release = func() {}
	}
	h := &Handle{
		c:       c,
		session: s,
		surface: surface,
		release: release,
		base:    context.WithoutCancel(ctx),
		state:   domain.StateOpen,
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	c.active[s.ID] = h
	c.mu.Unlock()

	h.mu.Lock()
	h.timer = time.AfterFunc(s.Deadline.Sub(c.now()), h.onDeadline)
	h.mu.Unlock()

	c.events.Publish(ctx, domain.EventSessionStarted{Session: s})
	slog.DebugContext(ctx, "app: session started",
		"session", s.ID,
		"subject", s.SubjectID,
		"quiz", s.Quiz,
		"deadline", s.Deadline,
	)
	return h
}

// Dispatch routes a response to the open session with the given ID.
func (c *Controller) Dispatch(ctx context.Context, sessionID string, ev ResponseEvent) error {
	h, ok := c.lookup(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return h.Respond(ctx, ev)
}

// Expire ends the session because the platform tore the interaction down.
func (c *Controller) Expire(ctx context.Context, sessionID string) error {
	h, ok := c.lookup(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	h.Expire(ctx)
	return nil
}

// Active returns the number of sessions not yet finished.
func (c *Controller) Active() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.active)
}

// Shutdown stops every open session's timer. Results are not rendered.
func (c *Controller) Shutdown() {
	c.mu.RLock()
	handles := make([]*Handle, 0, len(c.active))
	for _, h := range c.active {
		handles = append(handles, h)
	}
	c.mu.RUnlock()

	for _, h := range handles {
		h.Stop()
	}
}

func (c *Controller) lookup(id string) (*Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.active[id]
	return h, ok
}

func (c *Controller) remove(id string) {
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
}

// Handle is one running session.
type Handle struct {
	c       *Controller
	session domain.Session
	surface Surface
	release func()
	base    context.Context

	mu      sync.Mutex
	state   domain.State
	claimed bool
	timer   *time.Timer

	cleanupOnce sync.Once
	done        chan struct{}
}

func (h *Handle) Session() domain.Session { return h.session }

// State returns the current lifecycle state.
func (h *Handle) State() domain.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed once the session is finished and its slot released.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Respond handles one response event. Events from anyone but the session
// opener are rejected; events after the first winning one are only acknowledged.
func (h *Handle) Respond(ctx context.Context, ev ResponseEvent) error {
	if ev.ResponderID != h.session.SubjectID {
		return domain.ErrNotSessionOwner
	}
	if !h.claim() {
		if ev.Ack != nil {
			if err := ev.Ack(ctx); err != nil {
				slog.DebugContext(ctx, "app: acknowledge ignored response failed",
					"session", h.session.ID,
					"error", err,
				)
			}
		}
		return nil
	}

	if ev.Ack != nil {
		if err := ev.Ack(ctx); err != nil {
			var he *domain.HandshakeError
			switch {
			case errors.As(err, &he) && he.Expired():
				slog.InfoContext(ctx, "app: interaction expired on acknowledge", "session", h.session.ID)
				h.expire()
				return nil
			case errors.As(err, &he) && he.AlreadyAcknowledged():
				slog.WarnContext(ctx, "app: interaction already acknowledged", "session", h.session.ID)
			default:
				slog.ErrorContext(ctx, "app: acknowledge response failed",
					"session", h.session.ID,
					"error", err,
				)
				if h.unclaim() {
					h.onDeadline()
				}
				return nil
			}
		}
	}

	h.resolve(domain.StateAnswered, ev.Value)
	return nil
}

// Expire moves an open session to EXPIRED without scoring it.
func (h *Handle) Expire(ctx context.Context) {
	if !h.claim() {
		return
	}
	slog.InfoContext(ctx, "app: session expired by platform", "session", h.session.ID)
	h.expire()
}

// Fail moves an open session to ERRORED, shows a generic failure and
// releases the slot.
func (h *Handle) Fail(ctx context.Context, cause error) {
	if !h.claim() {
		return
	}
	slog.ErrorContext(ctx, "app: session failed",
		"session", h.session.ID,
		"error", cause,
	)
	h.fail()
}

// Stop clears the deadline timer. A session that is not already resolving is
// finished without rendering anything.
func (h *Handle) Stop() {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.mu.Unlock()

	if h.claim() {
		h.cleanup()
	}
}

func (h *Handle) onDeadline() {
	if !h.claim() {
		return
	}
	h.resolve(domain.StateTimedOut, "")
}

// claim makes the caller the single winner allowed to move the session out of OPEN.
func (h *Handle) claim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != domain.StateOpen || h.claimed {
		return false
	}
	h.claimed = true
	return true
}

// unclaim gives the claim back and reports whether the deadline has passed meanwhile.
func (h *Handle) unclaim() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.claimed = false
	return !h.c.now().Before(h.session.Deadline)
}

func (h *Handle) resolve(state domain.State, value string) {
	ctx, cancel := context.WithTimeout(h.base, resolveTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "app: session resolution panic",
				"session", h.session.ID,
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
			h.fail()
		}
	}()

	s := h.session
	outcome := domain.OutcomeTimeout
	if state == domain.StateAnswered {
		outcome = domain.OutcomeWrong
		if s.IsCorrect(value) {
			outcome = domain.OutcomeCorrect
		}
	}

	stats, err := h.c.stats.GetUserStats(ctx, s.SubjectID, s.Quiz)
	if err != nil {
		slog.WarnContext(ctx, "app: load stats failed, using snapshot",
			"session", s.ID,
			"error", err,
		)
		stats = s.Stats
	}

	scored := outcome
	if s.Practice {
		scored = domain.OutcomePractice
	}
	delta := h.c.policy.Score(s, stats, scored)

	result := domain.Result{
		Session:  s,
		State:    state,
		Outcome:  outcome,
		Selected: value,
		Delta:    delta,
		Stats:    stats,
		Saved:    true,
	}
	if !delta.IsZero() {
		after, err := h.c.stats.ApplyProgressDelta(ctx, s.SubjectID, s.Quiz, delta)
		if err != nil {
			slog.ErrorContext(ctx, "app: persist progress failed",
				"session", s.ID,
				"subject", s.SubjectID,
				"delta", delta,
				"error", err,
			)
			result.Stats = scoring.Apply(stats, delta, h.c.now())
			result.Saved = false
		} else {
			result.Stats = after
		}
	}

	h.finish(ctx, result)
}

func (h *Handle) expire() {
	ctx, cancel := context.WithTimeout(h.base, resolveTimeout)
	defer cancel()
	h.finish(ctx, domain.Result{
		Session: h.session,
		State:   domain.StateExpired,
		Outcome: domain.OutcomeNone,
		Stats:   h.session.Stats,
	})
}

func (h *Handle) finish(ctx context.Context, result domain.Result) {
	h.mu.Lock()
	h.state = result.State
	h.mu.Unlock()

	// An expired result is still rendered once so the message loses its controls.
	if err := h.surface.ShowResult(ctx, result); err != nil {
		slog.ErrorContext(ctx, "app: render result failed",
			"session", h.session.ID,
			"state", result.State,
			"error", err,
		)
	}

	h.c.events.Publish(ctx, domain.EventSessionResolved{Result: result})
	h.cleanup()
}

func (h *Handle) fail() {
	ctx, cancel := context.WithTimeout(h.base, resolveTimeout)
	defer cancel()

	h.mu.Lock()
	already := h.state.Terminal()
	if !already {
		h.state = domain.StateErrored
	}
	h.mu.Unlock()

	if !already {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.ErrorContext(ctx, "app: render failure panic", "session", h.session.ID, "error", fmt.Errorf("%v", r))
				}
			}()
			if err := h.surface.ShowNotice(ctx, domain.Notice{Kind: domain.NoticeFailure, Quiz: h.session.Quiz}); err != nil {
				slog.ErrorContext(ctx, "app: render failure notice failed",
					"session", h.session.ID,
					"error", err,
				)
			}
		}()
		h.c.events.Publish(ctx, domain.EventSessionResolved{Result: domain.Result{
			Session: h.session,
			State:   domain.StateErrored,
			Outcome: domain.OutcomeNone,
			Stats:   h.session.Stats,
		}})
	}
	h.cleanup()
}

func (h *Handle) cleanup() {
	h.cleanupOnce.Do(func() {
		h.mu.Lock()
		if h.timer != nil {
			h.timer.Stop()
		}
		h.mu.Unlock()

		h.c.remove(h.session.ID)
		h.release()
		close(h.done)
	})
}
