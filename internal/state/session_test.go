// internal/state/session_test.go
package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"github.com/user/vendbot/internal/types"
)

func exerciseSessionStore(t *testing.T, store types.SessionStore) {
	t.Helper()
	ctx := context.Background()
	actor := types.ActorID(42)

	if _, ok, err := store.Get(ctx, actor); err != nil || ok {
		t.Fatalf("expected no session, got ok=%v err=%v", ok, err)
	}

	sess := &types.Session{ActorID: actor, Stage: types.StageAwaitingType}
	if err := store.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}

	got, ok, err := store.Get(ctx, actor)
	if err != nil || !ok {
		t.Fatalf("expected session, got ok=%v err=%v", ok, err)
	}
	if got.Stage != types.StageAwaitingType {
		t.Errorf("expected stage %s, got %s", types.StageAwaitingType, got.Stage)
	}

	// Overwrite
	sess.Stage = types.StageAwaitingLabel
	sess.Draft.ContentType = types.ContentLink
	if err := store.Set(ctx, sess); err != nil {
		t.Fatal(err)
	}
	got, _, _ = store.Get(ctx, actor)
	if got.Stage != types.StageAwaitingLabel || got.Draft.ContentType != types.ContentLink {
		t.Errorf("expected overwritten session, got %+v", got)
	}

	if err := store.Delete(ctx, actor); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(ctx, actor); ok {
		t.Error("expected session to be deleted")
	}
	if err := store.Delete(ctx, actor); err != nil {
		t.Errorf("deleting missing session should not fail: %v", err)
	}
}

func TestMemorySessionStore(t *testing.T) {
	exerciseSessionStore(t, NewMemorySessionStore())
}

func TestMemorySessionStoreReturnsCopies(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	store.Set(ctx, &types.Session{ActorID: 1, Stage: types.StageAwaitingType})

	got, _, _ := store.Get(ctx, 1)
	got.Stage = types.StageAwaitingPrice

	again, _, _ := store.Get(ctx, 1)
	if again.Stage != types.StageAwaitingType {
		t.Error("mutating a returned session must not change the stored one")
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisSessionStore(t *testing.T) {
	_, client := newTestRedis(t)
	exerciseSessionStore(t, NewRedisSessionStore(client, 0))
}

func TestRedisSessionStoreRoundTripsDraft(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisSessionStore(client, 0)
	ctx := context.Background()

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	want := &types.Session{
		ActorID:   7,
		Stage:     types.StageAwaitingPrice,
		Draft:     types.Draft{ContentType: types.ContentVideo, FileID: "F1", Label: "Video 1"},
		StartedAt: started,
	}
	if err := store.Set(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := store.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("expected session, got ok=%v err=%v", ok, err)
	}
	if got.Stage != want.Stage || got.Draft != want.Draft || !got.StartedAt.Equal(started) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRedisSessionStoreExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisSessionStore(client, time.Minute)
	ctx := context.Background()

	if err := store.Set(ctx, &types.Session{ActorID: 9, Stage: types.StageAwaitingType}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, err := store.Get(ctx, 9); err != nil || ok {
		t.Errorf("expected expired session to be gone, got ok=%v err=%v", ok, err)
	}
}

func TestRedisSessionStoreCorruptValue(t *testing.T) {
	mr, client := newTestRedis(t)
	if err := mr.Set(sessionKey(3), "not json"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewRedisSessionStore(client, 0).Get(context.Background(), 3); err == nil {
		t.Error("expected an error for a corrupt session value")
	}
}

func TestSessionKey(t *testing.T) {
	if got := sessionKey(555); got != "vendbot:session:555" {
		t.Errorf("expected vendbot:session:555, got %q", got)
	}
}
