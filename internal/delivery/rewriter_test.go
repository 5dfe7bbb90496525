package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sugils/Email-tracker-Backend/internal/tracking"
)

type fakeLinkStore struct {
	links   []*tracking.Link
	failing bool
}

func (f *fakeLinkStore) CreateLink(ctx context.Context, l *tracking.Link) error {
	if f.failing {
		return errors.New("store down")
	}
	f.links = append(f.links, l)
	return nil
}

func TestRewriteLinks(t *testing.T) {
	store := &fakeLinkStore{}
	rw := NewRewriter(store)
	trackingID := uuid.New()

	html := `<html><body>
		<a href="https://example.com/one">One</a>
		<a href="mailto:someone@example.com">Mail</a>
		<a href="#section">Anchor</a>
		<a href="javascript:void(0)">Script</a>
		<a href="https://example.com/two">Two</a>
		<a href="https://example.com/one">One again</a>
	</body></html>`

	out := rw.Rewrite(context.Background(), html, trackingID, "pixel-1", "https://track.example.com/")

	// Three trackable links, each with its own record even when two share
	// a destination
	if len(store.links) != 3 {
		t.Fatalf("created %d link records, want 3", len(store.links))
	}
	for _, l := range store.links {
		want := "https://track.example.com/track/click/" + trackingID.String() + "/" + l.ID.String()
		if l.TrackingURL != want {
			t.Errorf("TrackingURL = %q, want %q", l.TrackingURL, want)
		}
		if !strings.Contains(out, l.TrackingURL) {
			t.Errorf("output missing rewritten href %q", l.TrackingURL)
		}
	}
	if store.links[0].OriginalURL != "https://example.com/one" {
		t.Errorf("first link original = %q, want document order", store.links[0].OriginalURL)
	}
	if store.links[1].OriginalURL != "https://example.com/two" {
		t.Errorf("second link original = %q", store.links[1].OriginalURL)
	}

	// Skipped destinations survive untouched
	for _, kept := range []string{`mailto:someone@example.com`, `#section`, `javascript:void(0)`} {
		if !strings.Contains(out, kept) {
			t.Errorf("output lost skipped href %q", kept)
		}
	}
	if strings.Contains(out, `"https://example.com/one"`) {
		t.Error("trackable href left unrewritten")
	}
}

func TestRewriteInjectsOpenProbes(t *testing.T) {
	store := &fakeLinkStore{}
	rw := NewRewriter(store)

	html := `<html><head><title>Hi</title></head><body><p>a</p><p>b</p><p>c</p><p>d</p></body></html>`
	out := rw.Rewrite(context.Background(), html, uuid.New(), "pixel-9", "https://track.example.com/")

	openURL := "https://track.example.com/track/open/pixel-9"
	beaconURL := "https://track.example.com/track/beacon/pixel-9"

	for _, probe := range []string{
		openURL + "?pos=start",
		openURL + "?pos=middle",
		openURL + "?pos=body-end",
		openURL + "?pos=end",
		openURL + "?s=prefetch",
		openURL + "?s=css",
		beaconURL + "?t=",
	} {
		if !strings.Contains(out, probe) {
			t.Errorf("output missing probe %q", probe)
		}
	}
	if !strings.Contains(out, "&d=1") {
		t.Error("output missing delayed beacon retry")
	}
	if !strings.Contains(out, "<!--[if !mso]>") {
		t.Error("output missing conditional-comment fallback pixel")
	}
}

func TestRewriteSkipsMidpointForShortBody(t *testing.T) {
	store := &fakeLinkStore{}
	rw := NewRewriter(store)

	html := `<html><body><p>only</p><p>two</p></body></html>`
	out := rw.Rewrite(context.Background(), html, uuid.New(), "pixel-2", "https://track.example.com/")

	if strings.Contains(out, "?pos=middle") {
		t.Error("midpoint probe injected into a body with two children")
	}
	if !strings.Contains(out, "?pos=start") || !strings.Contains(out, "?pos=body-end") {
		t.Error("start/end probes missing")
	}
}

func TestRewriteFallsBackOnStoreFailure(t *testing.T) {
	store := &fakeLinkStore{failing: true}
	rw := NewRewriter(store)

	html := `<html><body><a href="https://example.com">x</a></body></html>`
	out := rw.Rewrite(context.Background(), html, uuid.New(), "pixel-3", "https://track.example.com/")

	// Tracking must never block delivery: the original content goes out
	if out != html {
		t.Errorf("Rewrite() = %q, want original HTML on failure", out)
	}
}
