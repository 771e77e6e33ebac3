// Package session holds the process-wide view of who is using the storefront client.
package session

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jrsteele09/storefront-session/token"
	"github.com/jrsteele09/storefront-session/users"
	"github.com/rs/zerolog/log"
)

// Validator resolves access tokens into identities. *auth.Validator satisfies it.
type Validator interface {
	Validate(ctx context.Context) (*users.Identity, error)
	ValidateToken(ctx context.Context, accessToken string) (*users.Identity, error)
}

// Context is the single authoritative session for the process.
//
// Every validation attempt takes a generation number and only the newest
// attempt's result is applied, to the identity and to the token store alike.
// A logout also starts a new generation.
//
// Listeners are called in transition order, one transition at a time, and
// must not call back into Login, Logout, Boot or Revalidate.
type Context struct {
	validator Validator
	store     token.Store

	notifyMu sync.Mutex // serialises transitions with their broadcast

	mu           sync.Mutex
	state        State
	generation   uint64
	listeners    map[int]func(State)
	nextListener int

	bootMu sync.Mutex
	booted bool
	ready  chan struct{}
}

func New(validator Validator, store token.Store) *Context {
	return &Context{
		validator: validator,
		store:     store,
		state:     State{Status: Initializing},
		listeners: make(map[int]func(State)),
		ready:     make(chan struct{}),
	}
}

// Boot validates whatever token is stored and leaves Initializing. It blocks
// until validation settles. Once a boot has settled, or the session has left
// Initializing some other way, further calls do nothing.
//
// If ctx is done before validation settles the result is dropped, the session
// stays Initializing and a later Boot tries again.
func (c *Context) Boot(ctx context.Context) {
	c.bootMu.Lock()
	defer c.bootMu.Unlock()
	if c.booted || !c.IsLoading() {
		c.booted = true
		return
	}

	gen := c.begin()
	validated, _ := c.store.AccessToken()
	identity, err := c.validator.Validate(ctx)
	if ctx.Err() != nil {
		log.Debug().Err(ctx.Err()).Msg("session: boot abandoned")
		return
	}
	c.booted = true
	if err != nil {
		log.Warn().Err(err).Msg("session: boot validation failed, continuing anonymous")
	}
	c.apply(gen, validated, identity, "boot")
}

// Ready is closed once the session has left Initializing
func (c *Context) Ready() <-chan struct{} {
	return c.ready
}

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) CurrentIdentity() *users.Identity {
	return c.State().Identity
}

func (c *Context) IsLoading() bool {
	return c.State().Loading()
}

// Login validates a freshly issued access token, which the caller has already
// persisted, and adopts the identity it resolves to. If the token does not
// validate the store is cleared, the session goes anonymous and the returned
// error wraps ErrSession.
func (c *Context) Login(ctx context.Context, accessToken string) error {
	return c.login(ctx, c.begin(), accessToken)
}

func (c *Context) login(ctx context.Context, gen uint64, accessToken string) error {
	identity, err := c.validator.ValidateToken(ctx, accessToken)
	if !c.apply(gen, accessToken, identity, "login") {
		return ErrSuperseded
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSession, err)
	}
	if identity == nil {
		return fmt.Errorf("%w: token was rejected", ErrSession)
	}
	return nil
}

// Logout clears the store and the identity. Safe to call at any time.
func (c *Context) Logout() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	c.generation++
	c.clearStore("logout")
	prev := c.state
	changed := c.transition(State{Status: Anonymous})
	listeners := c.snapshotListeners()
	next := c.state
	c.mu.Unlock()

	if changed {
		log.Info().Stringer("from", prev.Status).Msg("session: logged out")
		broadcast(listeners, next)
	}
}

// Revalidate re-checks the stored token of an authenticated session. A token
// that no longer validates ends the session. Anonymous or still booting
// sessions are left alone, and a result that arrives after ctx is done is dropped.
// Revalidation does not start a generation of its own, so any login or logout
// begun meanwhile takes precedence over it.
func (c *Context) Revalidate(ctx context.Context) error {
	c.mu.Lock()
	status, gen := c.state.Status, c.generation
	c.mu.Unlock()
	if status != Authenticated {
		return nil
	}
	validated, _ := c.store.AccessToken()
	identity, err := c.validator.Validate(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.apply(gen, validated, identity, "revalidate")
	return err
}

// Subscribe registers fn for every state transition. The returned func removes it.
func (c *Context) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
		})
	}
}

func (c *Context) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

// apply adopts the outcome of validation attempt gen, unless a newer attempt
// or a logout has started since. It reports whether the outcome was applied.
// validated is the access token the attempt checked; a failed attempt only
// clears the store while it still holds that token.
func (c *Context) apply(gen uint64, validated string, identity *users.Identity, op string) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Debug().Str("op", op).Msg("session: stale validation result dropped")
		return false
	}

	next := State{Status: Anonymous}
	if identity != nil {
		next = State{Status: Authenticated, Identity: identity}
	} else {
		c.clearStoreIfHolds(validated, op)
	}
	changed := c.transition(next)
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	if changed {
		ev := log.Info().Str("op", op).Stringer("status", next.Status)
		if identity != nil {
			ev = ev.Int64("user_id", identity.UserID).Str("username", identity.Username).Stringer("role", identity.Role)
		}
		ev.Msg("session: state changed")
		broadcast(listeners, next)
	}
	return true
}

// transition must be called with mu held
func (c *Context) transition(next State) bool {
	prev := c.state
	if prev.equal(next) {
		return false
	}
	c.state = next
	if prev.Status == Initializing {
		close(c.ready)
	}
	return true
}

// clearStore must be called with mu held
func (c *Context) clearStore(op string) {
	if err := c.store.Clear(); err != nil {
		log.Err(err).Str("op", op).Msg("session: failed to clear token store")
	}
}

// clearStoreIfHolds must be called with mu held. A store that cannot be read
// is cleared.
func (c *Context) clearStoreIfHolds(validated, op string) {
	current, err := c.store.AccessToken()
	if err == nil && current != validated {
		log.Debug().Str("op", op).Msg("session: stored token replaced during validation, keeping it")
		return
	}
	c.clearStore(op)
}

// snapshotListeners must be called with mu held
func (c *Context) snapshotListeners() []func(State) {
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(State), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	return fns
}

func broadcast(listeners []func(State), s State) {
	for _, fn := range listeners {
		fn(s)
	}
}
