package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/storefront-session/auth"
	"github.com/jrsteele09/storefront-session/session"
	"github.com/jrsteele09/storefront-session/token"
	"github.com/jrsteele09/storefront-session/users"
	"github.com/stretchr/testify/require"
)

type result struct {
	identity *users.Identity
	err      error
}

// stubValidator answers per token. A token with a gate blocks until the gate is closed.
type stubValidator struct {
	store   token.Store
	mu      sync.Mutex
	results map[string]result
	gates   map[string]chan struct{}
	entered chan string
	calls   int
}

func newStubValidator(store token.Store) *stubValidator {
	return &stubValidator{
		store:   store,
		results: make(map[string]result),
		gates:   make(map[string]chan struct{}),
		entered: make(chan string, 16),
	}
}

func (v *stubValidator) set(tok string, identity *users.Identity, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results[tok] = result{identity: identity, err: err}
}

func (v *stubValidator) gate(tok string) chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	g := make(chan struct{})
	v.gates[tok] = g
	return g
}

func (v *stubValidator) Validate(ctx context.Context) (*users.Identity, error) {
	tok, err := v.store.AccessToken()
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, nil
	}
	return v.ValidateToken(ctx, tok)
}

func (v *stubValidator) ValidateToken(_ context.Context, tok string) (*users.Identity, error) {
	v.mu.Lock()
	v.calls++
	gate := v.gates[tok]
	res := v.results[tok]
	v.mu.Unlock()

	v.entered <- tok
	if gate != nil {
		<-gate
	}
	return res.identity, res.err
}

func (v *stubValidator) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

var (
	bob   = &users.Identity{UserID: 7, Username: "bob", Role: users.RoleUser, Valid: true}
	alice = &users.Identity{UserID: 1, Username: "alice", Role: users.RoleAdmin, Valid: true}
)

type recorder struct {
	mu     sync.Mutex
	states []session.State
}

func (r *recorder) record(s session.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []session.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.State(nil), r.states...)
}

func storeWith(t *testing.T, access string) *token.MemoryStore {
	t.Helper()
	store := token.NewMemoryStore()
	if access != "" {
		require.NoError(t, store.SetTokens(access, "refresh-"+access))
	}
	return store
}

// unreadableStore fails every read until it is cleared, like a corrupt token file
type unreadableStore struct {
	*token.MemoryStore
	cleared bool
}

func (s *unreadableStore) AccessToken() (string, error) {
	if s.cleared {
		return "", nil
	}
	return "", errors.New("corrupt token file")
}

func (s *unreadableStore) Clear() error {
	s.cleared = true
	return s.MemoryStore.Clear()
}

// requireStoreHoldsAdopted checks an authenticated session is backed by the token it adopted
func requireStoreHoldsAdopted(t *testing.T, sess *session.Context, store *token.MemoryStore, access string) {
	t.Helper()
	require.Equal(t, session.Authenticated, sess.State().Status)
	stored, err := store.AccessToken()
	require.NoError(t, err)
	require.Equal(t, access, stored)
}

func TestContext_Boot(t *testing.T) {
	ctx := context.Background()

	t.Run("starts initializing", func(t *testing.T) {
		sess := session.New(newStubValidator(token.NewMemoryStore()), token.NewMemoryStore())
		require.True(t, sess.IsLoading())
		require.Nil(t, sess.CurrentIdentity())
		require.Equal(t, session.Initializing, sess.State().Status)
	})

	t.Run("valid token authenticates exactly once", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)
		rec := &recorder{}
		sess.Subscribe(rec.record)

		sess.Boot(ctx)

		require.False(t, sess.IsLoading())
		require.Equal(t, bob, sess.CurrentIdentity())
		states := rec.all()
		require.Len(t, states, 1)
		require.Equal(t, session.Authenticated, states[0].Status)
		require.Equal(t, bob, states[0].Identity)
		require.False(t, states[0].Loading())

		select {
		case <-sess.Ready():
		default:
			t.Fatal("ready channel not closed after boot")
		}
	})

	t.Run("validation failure clears the stored token", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", nil, auth.ErrValidationFailed)
		sess := session.New(v, store)

		sess.Boot(ctx)

		require.Equal(t, session.Anonymous, sess.State().Status)
		access, err := store.AccessToken()
		require.NoError(t, err)
		require.Empty(t, access)
		refresh, err := store.RefreshToken()
		require.NoError(t, err)
		require.Empty(t, refresh)
	})

	t.Run("rejected token clears the stored token", func(t *testing.T) {
		store := storeWith(t, "tok-old")
		v := newStubValidator(store)
		sess := session.New(v, store)

		sess.Boot(ctx)

		require.Equal(t, session.Anonymous, sess.State().Status)
		require.True(t, store.Credentials().Empty())
	})

	t.Run("no token makes no validation call", func(t *testing.T) {
		store := token.NewMemoryStore()
		v := newStubValidator(store)
		sess := session.New(v, store)

		sess.Boot(ctx)

		require.Equal(t, session.Anonymous, sess.State().Status)
		require.Zero(t, v.callCount())
	})

	t.Run("abandoned boot keeps the token", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", nil, auth.ErrValidationFailed)
		sess := session.New(v, store)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		sess.Boot(cctx)

		require.True(t, sess.IsLoading())
		require.False(t, store.Credentials().Empty())
	})

	t.Run("abandoned boot can be retried", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		sess.Boot(cctx)
		require.True(t, sess.IsLoading())

		sess.Boot(ctx)
		require.Equal(t, bob, sess.CurrentIdentity())
		<-sess.Ready()

		sess.Boot(ctx)
		require.Equal(t, 2, v.callCount())
	})

	t.Run("skipped once a login has settled", func(t *testing.T) {
		store := token.NewMemoryStore()
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)

		require.NoError(t, store.SetTokens("tok-bob", "r"))
		require.NoError(t, sess.Login(ctx, "tok-bob"))
		sess.Boot(ctx)

		require.Equal(t, 1, v.callCount())
		require.Equal(t, bob, sess.CurrentIdentity())
	})

	t.Run("corrupt store is cleared", func(t *testing.T) {
		store := &unreadableStore{MemoryStore: storeWith(t, "tok-bob")}
		v := newStubValidator(store)
		sess := session.New(v, store)

		sess.Boot(ctx)

		require.Equal(t, session.Anonymous, sess.State().Status)
		require.True(t, store.cleared)
	})

	t.Run("runs once", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)

		sess.Boot(ctx)
		sess.Boot(ctx)

		require.Equal(t, 1, v.callCount())
	})
}

func TestContext_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("adopts the identity", func(t *testing.T) {
		store := token.NewMemoryStore()
		v := newStubValidator(store)
		v.set("tok-alice", alice, nil)
		sess := session.New(v, store)
		sess.Boot(ctx)

		require.NoError(t, store.SetTokens("tok-alice", "r"))
		require.NoError(t, sess.Login(ctx, "tok-alice"))
		require.Equal(t, alice, sess.CurrentIdentity())
		require.True(t, sess.CurrentIdentity().IsAdmin())
	})

	t.Run("rejected token", func(t *testing.T) {
		store := token.NewMemoryStore()
		v := newStubValidator(store)
		sess := session.New(v, store)
		sess.Boot(ctx)

		require.NoError(t, store.SetTokens("tok-bad", "r"))
		err := sess.Login(ctx, "tok-bad")
		require.ErrorIs(t, err, session.ErrSession)
		require.NotErrorIs(t, err, session.ErrSuperseded)
		require.Equal(t, session.Anonymous, sess.State().Status)
		require.True(t, store.Credentials().Empty())
	})

	t.Run("validation failure", func(t *testing.T) {
		store := token.NewMemoryStore()
		v := newStubValidator(store)
		v.set("tok-bob", nil, auth.ErrValidationFailed)
		sess := session.New(v, store)

		require.NoError(t, store.SetTokens("tok-bob", "r"))
		err := sess.Login(ctx, "tok-bob")
		require.ErrorIs(t, err, session.ErrSession)
		require.ErrorIs(t, err, auth.ErrValidationFailed)
		require.Equal(t, session.Anonymous, sess.State().Status)
		require.True(t, store.Credentials().Empty())
	})
}

func TestContext_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears everything and is idempotent", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)
		sess.Boot(ctx)

		rec := &recorder{}
		sess.Subscribe(rec.record)
		sess.Logout()
		sess.Logout()

		require.Equal(t, session.Anonymous, sess.State().Status)
		require.Nil(t, sess.CurrentIdentity())
		require.True(t, store.Credentials().Empty())
		require.Len(t, rec.all(), 1)
	})

	t.Run("before boot leaves initializing", func(t *testing.T) {
		store := token.NewMemoryStore()
		sess := session.New(newStubValidator(store), store)
		sess.Logout()
		require.False(t, sess.IsLoading())
		<-sess.Ready()
	})

	t.Run("wins over an in-flight login", func(t *testing.T) {
		store := token.NewMemoryStore()
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		gate := v.gate("tok-bob")
		sess := session.New(v, store)
		sess.Boot(ctx)

		require.NoError(t, store.SetTokens("tok-bob", "r"))
		done := make(chan error, 1)
		go func() { done <- sess.Login(ctx, "tok-bob") }()
		require.Equal(t, "tok-bob", <-v.entered)

		sess.Logout()
		close(gate)

		require.ErrorIs(t, <-done, session.ErrSuperseded)
		require.Equal(t, session.Anonymous, sess.State().Status)
		require.Nil(t, sess.CurrentIdentity())
	})
}

// A login issued while boot validation of an older token is pending decides
// the final state, whichever finishes first.
func TestContext_LoginRacingBoot(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, bootErr error) (*session.Context, *token.MemoryStore, chan struct{}, chan struct{}, chan struct{}, chan error) {
		store := storeWith(t, "tok-old")
		v := newStubValidator(store)
		if bootErr != nil {
			v.set("tok-old", nil, bootErr)
		} else {
			v.set("tok-old", alice, nil)
		}
		v.set("tok-new", bob, nil)
		oldGate := v.gate("tok-old")
		newGate := v.gate("tok-new")
		sess := session.New(v, store)

		bootDone := make(chan struct{})
		go func() {
			sess.Boot(ctx)
			close(bootDone)
		}()
		require.Equal(t, "tok-old", <-v.entered)

		require.NoError(t, store.SetTokens("tok-new", "refresh-new"))
		loginDone := make(chan error, 1)
		go func() { loginDone <- sess.Login(ctx, "tok-new") }()
		require.Equal(t, "tok-new", <-v.entered)

		return sess, store, oldGate, newGate, bootDone, loginDone
	}

	t.Run("login finishes first", func(t *testing.T) {
		sess, store, oldGate, newGate, bootDone, loginDone := setup(t, nil)

		close(newGate)
		require.NoError(t, <-loginDone)
		close(oldGate)
		<-bootDone

		require.Equal(t, bob, sess.CurrentIdentity())
		requireStoreHoldsAdopted(t, sess, store, "tok-new")
	})

	t.Run("boot finishes first", func(t *testing.T) {
		sess, _, oldGate, newGate, bootDone, loginDone := setup(t, nil)
		rec := &recorder{}
		sess.Subscribe(rec.record)

		close(oldGate)
		<-bootDone
		require.True(t, sess.IsLoading())

		close(newGate)
		require.NoError(t, <-loginDone)
		require.Equal(t, bob, sess.CurrentIdentity())

		states := rec.all()
		require.Len(t, states, 1)
		require.Equal(t, bob, states[0].Identity)
	})

	t.Run("boot failure settling after the new pair was stored keeps it", func(t *testing.T) {
		store := storeWith(t, "tok-old")
		v := newStubValidator(store)
		v.set("tok-old", nil, auth.ErrValidationFailed)
		v.set("tok-new", bob, nil)
		oldGate := v.gate("tok-old")
		sess := session.New(v, store)

		bootDone := make(chan struct{})
		go func() {
			sess.Boot(ctx)
			close(bootDone)
		}()
		require.Equal(t, "tok-old", <-v.entered)

		// The caller stores the new pair, then boot settles before Login starts
		require.NoError(t, store.SetTokens("tok-new", "refresh-new"))
		close(oldGate)
		<-bootDone
		require.Equal(t, session.Anonymous, sess.State().Status)
		require.Equal(t, "tok-new", store.Credentials().AccessToken)

		require.NoError(t, sess.Login(ctx, "tok-new"))
		requireStoreHoldsAdopted(t, sess, store, "tok-new")
	})

	t.Run("stale boot failure does not clear the new token", func(t *testing.T) {
		sess, store, oldGate, newGate, bootDone, loginDone := setup(t, auth.ErrValidationFailed)

		close(oldGate)
		<-bootDone
		close(newGate)
		require.NoError(t, <-loginDone)

		require.Equal(t, bob, sess.CurrentIdentity())
		require.Equal(t, token.Credentials{AccessToken: "tok-new", RefreshToken: "refresh-new"}, store.Credentials())
	})
}

func TestContext_Revalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("ends a session whose token died", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)
		sess.Boot(ctx)
		require.Equal(t, session.Authenticated, sess.State().Status)

		v.set("tok-bob", nil, nil)
		require.NoError(t, sess.Revalidate(ctx))
		require.Equal(t, session.Anonymous, sess.State().Status)
		require.True(t, store.Credentials().Empty())
	})

	t.Run("unchanged identity broadcasts nothing", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)
		sess.Boot(ctx)

		rec := &recorder{}
		sess.Subscribe(rec.record)
		require.NoError(t, sess.Revalidate(ctx))
		require.Empty(t, rec.all())
	})

	t.Run("anonymous session is not revalidated", func(t *testing.T) {
		store := token.NewMemoryStore()
		v := newStubValidator(store)
		sess := session.New(v, store)
		sess.Boot(ctx)
		require.NoError(t, sess.Revalidate(ctx))
		require.Zero(t, v.callCount())
	})

	t.Run("result after cancellation is dropped", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)
		sess.Boot(ctx)
		<-v.entered

		v.set("tok-bob", nil, errors.New("connection reset"))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		require.ErrorIs(t, sess.Revalidate(cctx), context.Canceled)
		require.Equal(t, session.Authenticated, sess.State().Status)
		require.False(t, store.Credentials().Empty())
	})

	t.Run("login during revalidation wins", func(t *testing.T) {
		store := storeWith(t, "tok-bob")
		v := newStubValidator(store)
		v.set("tok-bob", bob, nil)
		sess := session.New(v, store)
		sess.Boot(ctx)
		<-v.entered

		v.set("tok-bob", nil, nil)
		gate := v.gate("tok-bob")
		revalidated := make(chan error, 1)
		go func() { revalidated <- sess.Revalidate(ctx) }()
		require.Equal(t, "tok-bob", <-v.entered)

		v.set("tok-alice", alice, nil)
		require.NoError(t, store.SetTokens("tok-alice", "refresh-alice"))
		require.NoError(t, sess.Login(ctx, "tok-alice"))

		close(gate)
		require.NoError(t, <-revalidated)
		require.Equal(t, alice, sess.CurrentIdentity())
		require.Equal(t, "tok-alice", store.Credentials().AccessToken)
	})
}

func TestContext_Subscribe(t *testing.T) {
	ctx := context.Background()
	store := token.NewMemoryStore()
	v := newStubValidator(store)
	v.set("tok-bob", bob, nil)
	sess := session.New(v, store)

	var order []string
	sess.Subscribe(func(s session.State) { order = append(order, "first:"+s.Status.String()) })
	unsubscribe := sess.Subscribe(func(s session.State) { order = append(order, "second:"+s.Status.String()) })

	sess.Boot(ctx)
	unsubscribe()
	unsubscribe()

	require.NoError(t, store.SetTokens("tok-bob", "r"))
	require.NoError(t, sess.Login(ctx, "tok-bob"))
	sess.Logout()

	require.Equal(t, []string{
		"first:ANONYMOUS",
		"second:ANONYMOUS",
		"first:AUTHENTICATED",
		"first:ANONYMOUS",
	}, order)
}

func TestContext_ReadyUnblocksWaiters(t *testing.T) {
	store := storeWith(t, "tok-bob")
	v := newStubValidator(store)
	v.set("tok-bob", bob, nil)
	gate := v.gate("tok-bob")
	sess := session.New(v, store)

	go sess.Boot(context.Background())
	<-v.entered

	select {
	case <-sess.Ready():
		t.Fatal("ready before boot settled")
	case <-time.After(10 * time.Millisecond):
	}

	close(gate)
	select {
	case <-sess.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready not closed")
	}
	require.Equal(t, bob, sess.CurrentIdentity())
}
