package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/user/vendbot/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "vendbot.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCatalogCreateAndGet(t *testing.T) {
	store := NewCatalogStore(openTestDB(t))
	ctx := context.Background()

	video, _ := types.NewItem("Video 1", types.VideoPayload{FileID: "file-1"}, 29900)
	id, err := store.Create(ctx, video)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 || video.ID != id {
		t.Errorf("expected assigned id, got %d (item %d)", id, video.ID)
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Label != "Video 1" || got.PriceMinor != 29900 {
		t.Errorf("unexpected item: %+v", got)
	}
	p, ok := got.Payload.(types.VideoPayload)
	if !ok || p.FileID != "file-1" {
		t.Errorf("expected video payload file-1, got %#v", got.Payload)
	}

	link, _ := types.NewItem("Notes", types.LinkPayload{URL: "https://example.com/notes"}, 500)
	linkID, err := store.Create(ctx, link)
	if err != nil {
		t.Fatal(err)
	}
	if linkID == id {
		t.Error("expected distinct ids")
	}
	got, err = store.Get(ctx, linkID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentType() != types.ContentLink {
		t.Errorf("expected link, got %s", got.ContentType())
	}
}

func TestCatalogGetNotFound(t *testing.T) {
	store := NewCatalogStore(openTestDB(t))

	_, err := store.Get(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCatalogList(t *testing.T) {
	store := NewCatalogStore(openTestDB(t))
	ctx := context.Background()

	list, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty catalog, got %d", len(list))
	}

	for _, label := range []string{"A", "B"} {
		item, _ := types.NewItem(label, types.LinkPayload{URL: "u"}, 100)
		if _, err := store.Create(ctx, item); err != nil {
			t.Fatal(err)
		}
	}

	list, err = store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list))
	}
	if list[0].Label != "A" || list[1].Label != "B" {
		t.Errorf("expected id order A, B; got %q, %q", list[0].Label, list[1].Label)
	}
}

func TestPayloadFromRowRejectsInconsistentRows(t *testing.T) {
	if _, err := payloadFromRow(types.ContentVideo, nullString(""), nullString("https://x")); err == nil {
		t.Error("expected error for video row without content ref")
	}
	if _, err := payloadFromRow("audio", nullString("f"), nullString("")); err == nil {
		t.Error("expected error for unknown content type")
	}
}

func TestRebindDollar(t *testing.T) {
	got := rebindDollar("SELECT * FROM items WHERE id = ? AND label = ?")
	want := "SELECT * FROM items WHERE id = $1 AND label = $2"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
