package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, lifetime time.Duration, sliding bool) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "ts", lifetime, sliding), mr
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, time.Hour, false)
	ctx := context.Background()
	userID := uuid.New()

	created, err := store.Create(ctx, userID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.SessionID == uuid.Nil {
		t.Fatal("Create returned nil session id")
	}
	if created.UserID != userID {
		t.Fatalf("Create UserID = %s, want %s", created.UserID, userID)
	}
	if !created.Active() {
		t.Fatal("created session should be active")
	}

	got, err := store.Get(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != created {
		t.Fatalf("Get = %+v, want %+v", got, created)
	}
}

func TestGetUnknownSession(t *testing.T) {
	store, _ := newTestStore(t, time.Hour, false)

	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}

func TestGetExpiredSessionIsDeleted(t *testing.T) {
	store, mr := newTestStore(t, time.Hour, false)
	ctx := context.Background()

	created, err := store.Create(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Push the store's clock past the recorded expiry. The Redis TTL has
	// not fired yet, so the record is still present and must be lazily
	// removed.
	store.now = func() time.Time { return time.Unix(created.ExpiresAt+1, 0) }

	if _, err := store.Get(ctx, created.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after expiry = %v, want ErrNotFound", err)
	}
	if mr.Exists("ts:" + created.SessionID.String()) {
		t.Fatal("expired record should have been deleted")
	}
}

func TestEndReportsExistence(t *testing.T) {
	store, _ := newTestStore(t, time.Hour, false)
	ctx := context.Background()

	created, err := store.Create(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	existed, err := store.End(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if !existed {
		t.Fatal("first End should report true")
	}

	existed, err = store.End(ctx, created.SessionID)
	if err != nil {
		t.Fatalf("second End: %v", err)
	}
	if existed {
		t.Fatal("second End should report false")
	}

	if _, err := store.Get(ctx, created.SessionID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after End = %v, want ErrNotFound", err)
	}
}

func TestSlidingExpirationRenewsTTL(t *testing.T) {
	store, mr := newTestStore(t, time.Hour, true)
	ctx := context.Background()

	created, err := store.Create(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	key := "ts:" + created.SessionID.String()
	mr.FastForward(30 * time.Minute)
	before := mr.TTL(key)

	if _, err := store.Get(ctx, created.SessionID); err != nil {
		t.Fatalf("Get: %v", err)
	}

	after := mr.TTL(key)
	if after <= before {
		t.Fatalf("TTL after Get = %v, want > %v", after, before)
	}
	// Sliding never extends past the absolute lifetime recorded at creation.
	if after > time.Hour {
		t.Fatalf("TTL after Get = %v, want <= 1h", after)
	}
}

func TestEndAllForUser(t *testing.T) {
	store, _ := newTestStore(t, time.Hour, false)
	ctx := context.Background()
	userID := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		sess, err := store.Create(ctx, userID)
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		ids = append(ids, sess.SessionID)
	}

	count, err := store.ActiveSessionCount(ctx, userID)
	if err != nil {
		t.Fatalf("ActiveSessionCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("ActiveSessionCount = %d, want 3", count)
	}

	ended, err := store.EndAllForUser(ctx, userID)
	if err != nil {
		t.Fatalf("EndAllForUser: %v", err)
	}
	if ended != 3 {
		t.Fatalf("EndAllForUser = %d, want 3", ended)
	}

	for _, id := range ids {
		if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Get(%s) = %v, want ErrNotFound", id, err)
		}
	}

	count, err = store.ActiveSessionCount(ctx, userID)
	if err != nil {
		t.Fatalf("ActiveSessionCount after end: %v", err)
	}
	if count != 0 {
		t.Fatalf("ActiveSessionCount after end = %d, want 0", count)
	}
}

func TestEndRemovesUserIndexEntry(t *testing.T) {
	store, _ := newTestStore(t, time.Hour, false)
	ctx := context.Background()
	userID := uuid.New()

	sess, err := store.Create(ctx, userID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.End(ctx, sess.SessionID); err != nil {
		t.Fatalf("End: %v", err)
	}

	count, err := store.ActiveSessionCount(ctx, userID)
	if err != nil {
		t.Fatalf("ActiveSessionCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("ActiveSessionCount = %d, want 0", count)
	}
}

func TestPing(t *testing.T) {
	store, mr := newTestStore(t, time.Hour, false)

	if _, err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	mr.Close()
	if _, err := store.Ping(context.Background()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("Ping after close = %v, want ErrRedisUnavailable", err)
	}
}
