// internal/types/models_test.go
package types

import (
	"testing"
)

func TestNewItemVariants(t *testing.T) {
	video, err := NewItem("Video 1", VideoPayload{FileID: "file-abc"}, 29900)
	if err != nil {
		t.Fatal(err)
	}
	if video.ContentType() != ContentVideo {
		t.Errorf("expected video, got %s", video.ContentType())
	}

	link, err := NewItem("Course", LinkPayload{URL: "https://example.com/course"}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if link.ContentType() != ContentLink {
		t.Errorf("expected link, got %s", link.ContentType())
	}
}

func TestNewItemRejectsInvalid(t *testing.T) {
	cases := map[string]func() error{
		"empty label": func() error {
			_, err := NewItem("  ", LinkPayload{URL: "u"}, 100)
			return err
		},
		"nil payload": func() error {
			_, err := NewItem("x", nil, 100)
			return err
		},
		"empty file id": func() error {
			_, err := NewItem("x", VideoPayload{}, 100)
			return err
		},
		"empty url": func() error {
			_, err := NewItem("x", LinkPayload{}, 100)
			return err
		},
		"zero price": func() error {
			_, err := NewItem("x", LinkPayload{URL: "u"}, 0)
			return err
		},
	}
	for name, fn := range cases {
		if fn() == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseContentType(t *testing.T) {
	if ct, ok := ParseContentType(" VIDEO "); !ok || ct != ContentVideo {
		t.Errorf("expected video, got %q ok=%v", ct, ok)
	}
	if ct, ok := ParseContentType("Link"); !ok || ct != ContentLink {
		t.Errorf("expected link, got %q ok=%v", ct, ok)
	}
	if _, ok := ParseContentType("audio"); ok {
		t.Error("expected audio to be rejected")
	}
}

func TestDraftPayload(t *testing.T) {
	d := Draft{ContentType: ContentVideo, FileID: "f1", URL: "ignored"}
	p, ok := d.Payload().(VideoPayload)
	if !ok || p.FileID != "f1" {
		t.Errorf("expected video payload f1, got %#v", d.Payload())
	}
	if (Draft{}).Payload() != nil {
		t.Error("expected nil payload for empty draft")
	}
}

func TestFormatRupees(t *testing.T) {
	if got := FormatRupees(29900); got != "₹299" {
		t.Errorf("expected ₹299, got %s", got)
	}
}
