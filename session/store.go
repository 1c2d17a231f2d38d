package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthClient/storage"
)

// ErrSessionSuperseded is returned when a mutation targets a session generation
// that was already replaced by SetSession or Clear.
var ErrSessionSuperseded = errors.New("session superseded")

// ErrNoSession is returned by mutations that require an authenticated session.
var ErrNoSession = errors.New("no active session")

// ErrRecordCorrupt is returned by Load when the persisted record cannot be decoded.
// The record is removed before the error is returned.
var ErrRecordCorrupt = errors.New("session record corrupt")

// EventKind identifies a session-changed notification.
type EventKind uint8

const (
	// EventSessionSet fires after SetSession.
	EventSessionSet EventKind = iota + 1
	// EventSessionCleared fires after every Clear, including a clear of an
	// already logged-out session.
	EventSessionCleared
	// EventCredentialsRenewed fires after a successful UpdateAccessCredential.
	EventCredentialsRenewed
	// EventIdentityUpdated fires after UpdateIdentity.
	EventIdentityUpdated
	// EventSessionRestored fires when Load restores a persisted session.
	EventSessionRestored
)

func (k EventKind) String() string {
	switch k {
	case EventSessionSet:
		return "session_set"
	case EventSessionCleared:
		return "session_cleared"
	case EventCredentialsRenewed:
		return "credentials_renewed"
	case EventIdentityUpdated:
		return "identity_updated"
	case EventSessionRestored:
		return "session_restored"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after a state transition.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
}

// Observer receives session-changed notifications. Observers run synchronously
// on the mutating goroutine, in registration order, after the store lock is
// released, so they may call back into the store. Events from concurrent
// mutations can interleave; Event.Snapshot.Generation orders them.
type Observer func(Event)

type observerEntry struct {
	id uint64
	fn Observer
}

// Store is the single authoritative record of the client's authentication state.
//
// Reads ([Store.Current]) never block on persistence. Mutations are serialized;
// each one swaps the in-memory snapshot and persists the record under the write
// lock, then notifies observers once the lock is released. A persistence failure is returned to the caller but the in-memory
// transition still happens, so a logout is effective immediately even when the
// backend is down.
type Store struct {
	backend storage.Storage
	key     string
	now     func() time.Time

	writeMu sync.Mutex

	mu   sync.RWMutex
	snap Snapshot

	obsMu        sync.RWMutex
	observers    []observerEntry
	nextObserver uint64
}

// NewStore creates a session [Store] persisting under key in backend. The store
// starts logged out; call [Store.Load] to restore a persisted session.
func NewStore(backend storage.Storage, key string) *Store {
	if backend == nil {
		backend = storage.NewMemory()
	}
	return &Store{
		backend: backend,
		key:     key,
		now:     time.Now,
	}
}

// Current returns the current snapshot, or the logged-out sentinel.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	snap.Identity = snap.Identity.Clone()
	return snap
}

// Load restores the persisted session, if any.
func (s *Store) Load(ctx context.Context) error {
	next, err := s.load(ctx)
	if err != nil || next == nil {
		return err
	}
	s.notify(Event{Kind: EventSessionRestored, Snapshot: *next})
	return nil
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rec, err := Decode(data)
	if err != nil {
		if rmErr := s.backend.Remove(ctx, s.key); rmErr != nil {
			return nil, fmt.Errorf("%w: %v (remove: %v)", ErrRecordCorrupt, err, rmErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}

	next := Snapshot{
		Identity:    rec.Identity.Clone(),
		Credentials: rec.Credentials,
		Status:      StatusAuthenticated,
		Generation:  s.generation() + 1,
		UpdatedAt:   rec.UpdatedAt,
	}
	s.swap(next)
	return &next, nil
}

// SetSession replaces identity and credential pair as one unit and marks the
// session authenticated. Any refresh cycle started against the previous
// session is superseded.
func (s *Store) SetSession(ctx context.Context, identity Identity, pair CredentialPair) error {
	if !pair.Complete() {
		return ErrIncompletePair
	}

	s.writeMu.Lock()
	next := Snapshot{
		Identity:    identity.Clone(),
		Credentials: pair,
		Status:      StatusAuthenticated,
		Generation:  s.generation() + 1,
		UpdatedAt:   s.now().Unix(),
	}
	s.swap(next)
	err := s.persist(ctx, next)
	s.writeMu.Unlock()

	s.notify(Event{Kind: EventSessionSet, Snapshot: next})
	return err
}

// UpdateAccessCredential installs a renewed access token for the session
// generation that was renewed. refresh replaces the refresh token when the
// renewal endpoint rotated it; an empty refresh keeps the current one.
//
// It returns [ErrSessionSuperseded] without touching state when the session was
// cleared or replaced after the renewal started.
func (s *Store) UpdateAccessCredential(ctx context.Context, generation uint64, access, refresh string) error {
	if access == "" {
		return ErrIncompletePair
	}

	s.writeMu.Lock()
	cur := s.current()
	if cur.Generation != generation || !cur.Authenticated() {
		s.writeMu.Unlock()
		return ErrSessionSuperseded
	}

	next := cur
	next.Credentials.AccessToken = access
	if refresh != "" {
		next.Credentials.RefreshToken = refresh
	}
	next.Status = StatusAuthenticated
	next.UpdatedAt = s.now().Unix()

	s.swap(next)
	err := s.persist(ctx, next)
	s.writeMu.Unlock()

	s.notify(Event{Kind: EventCredentialsRenewed, Snapshot: next})
	return err
}

// UpdateIdentity replaces the identity of the authenticated session and keeps
// its credentials.
func (s *Store) UpdateIdentity(ctx context.Context, identity Identity) error {
	s.writeMu.Lock()
	cur := s.current()
	if !cur.Authenticated() {
		s.writeMu.Unlock()
		return ErrNoSession
	}

	next := cur
	next.Identity = identity.Clone()
	next.UpdatedAt = s.now().Unix()

	s.swap(next)
	err := s.persist(ctx, next)
	s.writeMu.Unlock()

	s.notify(Event{Kind: EventIdentityUpdated, Snapshot: next})
	return err
}

// MarkRefreshing flags the session as refreshing when generation is still
// current and authenticated. The flag is not persisted.
func (s *Store) MarkRefreshing(generation uint64) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.current()
	if cur.Generation != generation || cur.Status != StatusAuthenticated {
		return false
	}
	cur.Status = StatusRefreshing
	s.swap(cur)
	return true
}

// Clear logs the session out: identity and both credentials are dropped, the
// persisted record is removed and observers are notified. Clearing an already
// logged-out session leaves the snapshot untouched, generation included, and
// only re-fires the notification.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	next, err := s.clearLocked(ctx)
	s.writeMu.Unlock()

	s.notify(Event{Kind: EventSessionCleared, Snapshot: next})
	return err
}

// ClearIf clears the session only while generation is still current. It reports
// whether the clear happened.
func (s *Store) ClearIf(ctx context.Context, generation uint64) (bool, error) {
	s.writeMu.Lock()
	if s.generation() != generation {
		s.writeMu.Unlock()
		return false, nil
	}
	next, err := s.clearLocked(ctx)
	s.writeMu.Unlock()

	s.notify(Event{Kind: EventSessionCleared, Snapshot: next})
	return true, err
}

// Subscribe registers an observer and returns the function that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	if fn == nil {
		return func() {}
	}

	s.obsMu.Lock()
	s.nextObserver++
	id := s.nextObserver
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	s.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.obsMu.Lock()
			defer s.obsMu.Unlock()
			for i, o := range s.observers {
				if o.id == id {
					s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) clearLocked(ctx context.Context) (Snapshot, error) {
	next := s.current()
	if next.Status != StatusUnauthenticated {
		next = Snapshot{
			Status:     StatusUnauthenticated,
			Generation: next.Generation + 1,
			UpdatedAt:  s.now().Unix(),
		}
		s.swap(next)
	}

	if err := s.backend.Remove(ctx, s.key); err != nil {
		return next, fmt.Errorf("remove session: %w", err)
	}
	return next, nil
}

func (s *Store) persist(ctx context.Context, snap Snapshot) error {
	data, err := Encode(&Record{
		Identity:    snap.Identity,
		Credentials: snap.Credentials,
		UpdatedAt:   snap.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *Store) current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Generation
}

func (s *Store) swap(next Snapshot) {
	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()
}

func (s *Store) notify(ev Event) {
	s.obsMu.RLock()
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.obsMu.RUnlock()

	for _, o := range observers {
		ev.Snapshot.Identity = ev.Snapshot.Identity.Clone()
		o.fn(ev)
	}
}
