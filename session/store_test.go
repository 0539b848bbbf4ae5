package session

import (
	"context"
	"errors"
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func adminUser() *User {
	return &User{ID: 1, Name: "Admin", Email: "admin@example.com", RoleID: int64Ptr(1), Role: "admin", IsActive: true}
}

type failingBackend struct {
	*MemoryBackend
	err error
}

func (f *failingBackend) Apply(ctx context.Context, batch Batch) error {
	if f.err != nil {
		return f.err
	}
	return f.MemoryBackend.Apply(ctx, batch)
}

func TestStoreLogoutClearsEverything(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend)

	if err := store.SetToken(ctx, "abc"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if err := store.SetUser(ctx, &User{ID: 1, Role: "admin"}); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	st := store.State()
	if st.Token != "" || st.User != nil {
		t.Fatalf("expected empty state, got %+v", st)
	}
	if backend.Len() != 0 {
		t.Fatalf("expected no persisted keys, got %d", backend.Len())
	}
}

func TestStoreStateIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	user := adminUser()
	if err := store.SetSession(ctx, "tok", user); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	user.Name = "mutated by caller"
	*user.RoleID = 99

	st := store.State()
	if st.User.Name != "Admin" || *st.User.RoleID != 1 {
		t.Fatalf("store aliased caller's user: %+v", st.User)
	}

	st.User.Email = "mutated by reader"
	if store.State().User.Email != "admin@example.com" {
		t.Fatal("store aliased reader's copy")
	}
}

func TestStoreTokenOnlyStateIsPersisted(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	if err := store.SetToken(ctx, "tok"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap[KeyToken] != "tok" {
		t.Fatalf("expected token key, got %v", snap)
	}
	for _, key := range []string{KeyUser, KeyUserID, KeyUserName, KeyUserEmail, KeyUserRole} {
		if _, ok := snap[key]; ok {
			t.Fatalf("unexpected %s in token-only snapshot", key)
		}
	}
}

func TestStoreFailedPersistLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	store := NewStore(backend)

	if err := store.SetSession(ctx, "tok", adminUser()); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	backend.err = ErrBackendUnavailable
	err := store.Logout(ctx)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if st := store.State(); st.Token != "tok" || st.User == nil {
		t.Fatalf("expected state untouched after failed persist, got %+v", st)
	}
}

func TestStoreLoadResumesPersistedSession(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	first := NewStore(backend)
	if err := first.SetSession(ctx, "tok", adminUser()); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	second := NewStore(backend)
	if !second.State().Empty() {
		t.Fatal("expected new store to start empty")
	}
	if err := second.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := second.State()
	if st.Token != "tok" || st.User == nil || st.User.Email != "admin@example.com" {
		t.Fatalf("unexpected loaded state %+v", st)
	}
}

func TestStoreLoadFallsBackToLegacyKeys(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	err := backend.Apply(ctx, Batch{Set: map[string]string{
		KeyToken:     "legacy-token",
		KeyUserRole:  "super_admin",
		KeyUserName:  "Super Admin",
		KeyUserEmail: "superadmin@example.com",
	}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewStore(backend)
	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := store.State()
	if st.Token != "legacy-token" {
		t.Fatalf("unexpected token %q", st.Token)
	}
	if st.User == nil || st.User.Role != "super_admin" || st.User.Email != "superadmin@example.com" {
		t.Fatalf("unexpected user %+v", st.User)
	}
}

func TestStoreLoadCorruptRecord(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	if err := backend.Apply(ctx, Batch{Set: map[string]string{KeyRecord: "{not json"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewStore(backend)
	if err := store.Load(ctx); !errors.Is(err, ErrRecordCorrupt) {
		t.Fatalf("expected ErrRecordCorrupt, got %v", err)
	}
}

func TestStoreWithoutLegacyKeysRemovesStaleMirror(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	if err := backend.Apply(ctx, Batch{Set: map[string]string{KeyToken: "stale", KeyUserRole: "admin"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewStore(backend, WithLegacyKeys(false))
	if err := store.SetSession(ctx, "fresh", adminUser()); err != nil {
		t.Fatalf("SetSession: %v", err)
	}

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("expected only the structured record, got %v", snap)
	}
	if _, ok := snap[KeyRecord]; !ok {
		t.Fatalf("missing structured record in %v", snap)
	}
}

func TestStoreKeyPrefix(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend, WithKeyPrefix("profile-a:"))

	if err := store.SetSession(ctx, "tok", adminUser()); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	raw, err := backend.Read(ctx, []string{"profile-a:" + KeyToken, KeyToken})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if raw["profile-a:"+KeyToken] != "tok" {
		t.Fatalf("expected prefixed token, got %v", raw)
	}
	if _, ok := raw[KeyToken]; ok {
		t.Fatal("expected no unprefixed token")
	}

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap[KeyToken] != "tok" {
		t.Fatalf("expected snapshot keys without prefix, got %v", snap)
	}
}

func TestStoreEachMutationIsOneBatch(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := NewStore(backend)

	_ = store.SetSession(ctx, "tok", adminUser())
	_ = store.SetToken(ctx, "tok2")
	_ = store.SetUser(ctx, nil)
	_ = store.Logout(ctx)

	if got := backend.Applied(); got != 4 {
		t.Fatalf("expected 4 batches, got %d", got)
	}
}
