package session

import (
	"context"
	"fmt"
	"sync"
)

// Store holds the current session and mirrors every mutation to its [Backend].
//
// Reads through [Store.State] never touch the backend. Mutations persist first and
// swap the in-memory state only after the backend accepted the batch, both under
// the store lock, so a completed mutation is visible atomically to later reads.
// Concurrent mutations are serialized; the last one wins.
type Store struct {
	backend    Backend
	prefix     string
	legacyKeys bool

	mu    sync.RWMutex
	state State
}

// Option configures a [Store].
type Option func(*Store)

// WithLegacyKeys toggles the discrete key mirror. It defaults to on.
func WithLegacyKeys(enabled bool) Option {
	return func(s *Store) { s.legacyKeys = enabled }
}

// WithKeyPrefix namespaces every persisted key, for backends shared between
// profiles or processes.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// NewStore creates a [Store] over backend. A nil backend selects a fresh
// [MemoryBackend]. The store starts empty; call [Store.Load] to resume a
// persisted session.
func NewStore(backend Backend, opts ...Option) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	s := &Store{
		backend:    backend,
		legacyKeys: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// State returns a copy of the current session.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// LegacyKeysEnabled reports whether discrete keys are mirrored.
func (s *Store) LegacyKeysEnabled() bool {
	return s.legacyKeys
}

// SetToken replaces the token. An empty token clears it; the user is kept.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.mutate(ctx, func(st *State) {
		st.Token = token
	})
}

// SetUser replaces the user profile. A nil user clears it; the token is kept.
func (s *Store) SetUser(ctx context.Context, user *User) error {
	user = user.Clone()
	return s.mutate(ctx, func(st *State) {
		st.User = user
	})
}

// SetSession replaces token and user together.
func (s *Store) SetSession(ctx context.Context, token string, user *User) error {
	user = user.Clone()
	return s.mutate(ctx, func(st *State) {
		st.Token = token
		st.User = user
	})
}

// Logout clears token and user and removes every persisted copy.
func (s *Store) Logout(ctx context.Context) error {
	return s.mutate(ctx, func(st *State) {
		*st = State{}
	})
}

// Load replaces the in-memory state with the persisted one. When the structured
// record is missing, the discrete keys are used instead.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.backend.Read(ctx, s.keys(AllKeys()))
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	var st State
	if raw, ok := values[s.key(KeyRecord)]; ok {
		st, err = DecodeRecord([]byte(raw))
		if err != nil {
			return err
		}
	} else {
		st, err = stateFromLegacy(s.unprefix(values))
		if err != nil {
			return err
		}
	}

	s.state = st
	return nil
}

// Snapshot returns every persisted key, without the store prefix.
func (s *Store) Snapshot(ctx context.Context) (map[string]string, error) {
	values, err := s.backend.Read(ctx, s.keys(AllKeys()))
	if err != nil {
		return nil, fmt.Errorf("snapshot session: %w", err)
	}
	return s.unprefix(values), nil
}

func (s *Store) mutate(ctx context.Context, apply func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	apply(&next)

	batch, err := s.batchFor(next)
	if err != nil {
		return err
	}
	if err := s.backend.Apply(ctx, batch); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.state = next
	return nil
}

func (s *Store) batchFor(st State) (Batch, error) {
	if st.Empty() {
		return Batch{Delete: s.keys(AllKeys())}, nil
	}

	record, err := EncodeRecord(st)
	if err != nil {
		return Batch{}, fmt.Errorf("encode session: %w", err)
	}
	batch := Batch{Set: map[string]string{s.key(KeyRecord): string(record)}}

	if !s.legacyKeys {
		batch.Delete = s.keys(LegacyKeys())
		return batch, nil
	}

	values, err := legacyValues(st)
	if err != nil {
		return Batch{}, fmt.Errorf("encode session: %w", err)
	}
	for _, key := range LegacyKeys() {
		if v, ok := values[key]; ok {
			batch.Set[s.key(key)] = v
			continue
		}
		batch.Delete = append(batch.Delete, s.key(key))
	}
	return batch, nil
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) keys(names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = s.key(name)
	}
	return out
}

func (s *Store) unprefix(values map[string]string) map[string]string {
	if s.prefix == "" {
		return values
	}
	out := make(map[string]string, len(values))
	for key, v := range values {
		out[key[len(s.prefix):]] = v
	}
	return out
}
