package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// State is the coordinator's cycle state.
type State uint8

const (
	// StateIdle means no refresh cycle is running.
	StateIdle State = iota
	// StateRefreshing means one renewal is in flight.
	StateRefreshing
)

func (s State) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// Renewal is a successful renewal answer. RefreshToken is empty when the
// endpoint did not rotate it.
type Renewal struct {
	AccessToken  string
	RefreshToken string
}

// Renewer exchanges a refresh token for a new access credential.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (Renewal, error)
}

// RenewerFunc adapts a function to [Renewer].
type RenewerFunc func(ctx context.Context, refreshToken string) (Renewal, error)

// Renew calls f.
func (f RenewerFunc) Renew(ctx context.Context, refreshToken string) (Renewal, error) {
	return f(ctx, refreshToken)
}

// SessionStore is the subset of [session.Store] a coordinator drives.
type SessionStore interface {
	Current() session.Snapshot
	MarkRefreshing(generation uint64) bool
	UpdateAccessCredential(ctx context.Context, generation uint64, access, refresh string) error
	ClearIf(ctx context.Context, generation uint64) (bool, error)
}

// Call is a request that failed authorization and must be replayed once a new
// credential is available.
type Call[T any] struct {
	// SentWith is the access token the failed attempt carried. Empty when the
	// attempt was sent without a credential.
	SentWith string
	// Replay re-sends the request with creds. It is invoked at most once.
	Replay func(ctx context.Context, creds session.CredentialPair) (T, error)
}

// Hooks observe cycle transitions. Nil fields are skipped. Hooks run on the
// goroutine performing the transition and must not block.
type Hooks struct {
	CycleStarted func(cycleID string)
	Queued       func(cycleID string, pending int)
	Renewed      func(cycleID string, elapsed time.Duration, superseded bool)
	Failed       func(cycleID string, elapsed time.Duration, cause error)
	Replayed     func(cycleID string, err error)
	StaleReplay  func()
}

// Options configures a [Coordinator].
type Options struct {
	Hooks  Hooks
	Logger *zap.Logger
}

type result[T any] struct {
	value T
	err   error
}

type pendingCall[T any] struct {
	ctx  context.Context
	call Call[T]
	done chan result[T]
}

type cycle[T any] struct {
	id           string
	generation   uint64
	refreshToken string
	started      time.Time
	pending      []*pendingCall[T]
}

// Coordinator guarantees at most one renewal in flight and resolves every call
// that failed authorization while it ran.
type Coordinator[T any] struct {
	store   SessionStore
	renewer Renewer
	hooks   Hooks
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	cycle *cycle[T]
}

// NewCoordinator creates an idle coordinator over store and renewer.
func NewCoordinator[T any](store SessionStore, renewer Renewer, opts Options) *Coordinator[T] {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator[T]{
		store:   store,
		renewer: renewer,
		hooks:   opts.Hooks,
		logger:  logger,
		now:     time.Now,
	}
}

// State reports whether a cycle is running.
func (c *Coordinator[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycle == nil {
		return StateIdle
	}
	return StateRefreshing
}

// Pending returns the number of calls waiting on the running cycle.
func (c *Coordinator[T]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycle == nil {
		return 0
	}
	return len(c.cycle.pending)
}

// Recover resolves a call that failed authorization.
//
// The call joins the running cycle, or starts one when the coordinator is idle.
// Recover blocks until the cycle ends and returns the outcome of the call's
// replay, or a [*SessionExpiredError] when the renewal failed. ctx is handed to
// the replay; it does not cancel the wait.
func (c *Coordinator[T]) Recover(ctx context.Context, call Call[T]) (T, error) {
	c.mu.Lock()

	if c.cycle != nil {
		p := c.enqueueLocked(ctx, call)
		id, n := c.cycle.id, len(c.cycle.pending)
		c.mu.Unlock()

		c.logger.Debug("queued on refresh cycle", zap.String("cycle_id", id), zap.Int("pending", n))
		if c.hooks.Queued != nil {
			c.hooks.Queued(id, n)
		}
		return c.wait(p)
	}

	snap := c.store.Current()

	if snap.Status == session.StatusAuthenticated && snap.Credentials.AccessToken != call.SentWith {
		c.mu.Unlock()
		if c.hooks.StaleReplay != nil {
			c.hooks.StaleReplay()
		}
		return call.Replay(ctx, snap.Credentials)
	}

	if !snap.Authenticated() || snap.Credentials.RefreshToken == "" {
		c.mu.Unlock()
		return c.expireWithoutCycle(ctx, snap.Generation)
	}

	cyc := &cycle[T]{
		id:           ulid.Make().String(),
		generation:   snap.Generation,
		refreshToken: snap.Credentials.RefreshToken,
		started:      c.now(),
	}
	c.cycle = cyc
	p := c.enqueueLocked(ctx, call)
	c.mu.Unlock()

	c.store.MarkRefreshing(cyc.generation)

	c.logger.Debug("refresh cycle started", zap.String("cycle_id", cyc.id))
	if c.hooks.CycleStarted != nil {
		c.hooks.CycleStarted(cyc.id)
	}

	go c.run(context.WithoutCancel(ctx), cyc)
	return c.wait(p)
}

func (c *Coordinator[T]) enqueueLocked(ctx context.Context, call Call[T]) *pendingCall[T] {
	p := &pendingCall[T]{
		ctx:  ctx,
		call: call,
		done: make(chan result[T], 1),
	}
	c.cycle.pending = append(c.cycle.pending, p)
	return p
}

func (c *Coordinator[T]) wait(p *pendingCall[T]) (T, error) {
	res := <-p.done
	return res.value, res.err
}

func (c *Coordinator[T]) expireWithoutCycle(ctx context.Context, generation uint64) (T, error) {
	var zero T
	if _, err := c.store.ClearIf(ctx, generation); err != nil {
		c.logger.Warn("clear session failed", zap.Error(err))
	}
	if c.hooks.Failed != nil {
		c.hooks.Failed("", 0, ErrNoRefreshCredential)
	}
	return zero, &SessionExpiredError{Cause: ErrNoRefreshCredential}
}

func (c *Coordinator[T]) run(ctx context.Context, cyc *cycle[T]) {
	renewal, err := c.renewer.Renew(ctx, cyc.refreshToken)
	if err == nil && renewal.AccessToken == "" {
		err = ErrMalformedRenewal
	}
	if err != nil {
		c.fail(ctx, cyc, err)
		return
	}
	c.succeed(ctx, cyc, renewal)
}

func (c *Coordinator[T]) succeed(ctx context.Context, cyc *cycle[T], renewal Renewal) {
	superseded := false
	if err := c.store.UpdateAccessCredential(ctx, cyc.generation, renewal.AccessToken, renewal.RefreshToken); err != nil {
		if errors.Is(err, session.ErrSessionSuperseded) {
			superseded = true
			c.logger.Info("renewed credential discarded, session replaced", zap.String("cycle_id", cyc.id))
		} else {
			c.logger.Warn("persist renewed credential failed", zap.String("cycle_id", cyc.id), zap.Error(err))
		}
	}

	creds := session.CredentialPair{AccessToken: renewal.AccessToken, RefreshToken: renewal.RefreshToken}
	if creds.RefreshToken == "" {
		creds.RefreshToken = cyc.refreshToken
	}

	pending := c.finish(cyc)
	elapsed := c.now().Sub(cyc.started)
	c.logger.Debug("refresh cycle renewed",
		zap.String("cycle_id", cyc.id),
		zap.Int("pending", len(pending)),
		zap.Duration("dur", elapsed),
	)
	if c.hooks.Renewed != nil {
		c.hooks.Renewed(cyc.id, elapsed, superseded)
	}

	for _, p := range pending {
		value, err := p.call.Replay(p.ctx, creds)
		if c.hooks.Replayed != nil {
			c.hooks.Replayed(cyc.id, err)
		}
		p.done <- result[T]{value: value, err: err}
	}
}

func (c *Coordinator[T]) fail(ctx context.Context, cyc *cycle[T], cause error) {
	if _, err := c.store.ClearIf(ctx, cyc.generation); err != nil {
		c.logger.Warn("clear session failed", zap.String("cycle_id", cyc.id), zap.Error(err))
	}

	pending := c.finish(cyc)
	elapsed := c.now().Sub(cyc.started)
	c.logger.Warn("refresh cycle failed",
		zap.String("cycle_id", cyc.id),
		zap.Int("pending", len(pending)),
		zap.Duration("dur", elapsed),
		zap.Error(cause),
	)
	if c.hooks.Failed != nil {
		c.hooks.Failed(cyc.id, elapsed, cause)
	}

	expired := &SessionExpiredError{CycleID: cyc.id, Cause: cause}
	for _, p := range pending {
		p.done <- result[T]{err: expired}
	}
}

// finish returns the coordinator to idle and hands back the cycle's pending
// calls. No call can join cyc afterwards.
func (c *Coordinator[T]) finish(cyc *cycle[T]) []*pendingCall[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cycle == cyc {
		c.cycle = nil
	}
	pending := cyc.pending
	cyc.pending = nil
	return pending
}
