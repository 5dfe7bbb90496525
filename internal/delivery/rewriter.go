package delivery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/sugils/Email-tracker-Backend/internal/tracking"
)

// LinkStore persists the link records the rewriter generates
type LinkStore interface {
	CreateLink(ctx context.Context, l *tracking.Link) error
}

// Rewriter routes every hyperlink and image load in an email body through
// the tracking endpoints. Rewriting is best-effort: any failure returns the
// original HTML untouched, because tracking must never block a send.
type Rewriter struct {
	links LinkStore
}

// NewRewriter creates a content rewriter backed by the given link store
func NewRewriter(links LinkStore) *Rewriter {
	return &Rewriter{links: links}
}

// Rewrite rewrites outbound links for click tracking and injects redundant
// open probes. baseURL must end with a slash.
func (rw *Rewriter) Rewrite(ctx context.Context, html string, trackingID uuid.UUID, pixelID, baseURL string) string {
	out, err := rw.rewriteLinks(ctx, html, trackingID, baseURL)
	if err != nil {
		log.Printf("[Rewriter] link rewrite failed, sending original content: %v", err)
		return html
	}

	out, err = rw.injectOpenTracking(out, pixelID, baseURL)
	if err != nil {
		log.Printf("[Rewriter] probe injection failed, sending link-rewritten content: %v", err)
		return out
	}
	return out
}

// rewriteLinks replaces every trackable href with a redirect through the
// click endpoint. Links are processed in document order and each gets its
// own link record, even when two links share a destination.
func (rw *Rewriter) rewriteLinks(ctx context.Context, html string, trackingID uuid.UUID, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var linkErr error
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		if linkErr != nil {
			return
		}
		href, _ := s.Attr("href")
		if skipHref(href) {
			return
		}

		link := &tracking.Link{
			ID:          uuid.New(),
			TrackingID:  trackingID,
			OriginalURL: href,
		}
		link.TrackingURL = fmt.Sprintf("%strack/click/%s/%s", baseURL, trackingID, link.ID)

		if err := rw.links.CreateLink(ctx, link); err != nil {
			linkErr = fmt.Errorf("persist link record: %w", err)
			return
		}
		s.SetAttr("href", link.TrackingURL)
	})
	if linkErr != nil {
		return "", linkErr
	}

	return doc.Html()
}

// skipHref reports whether a destination must be left alone: mail links,
// in-page anchors, and script pseudo-protocols have no meaningful redirect.
func skipHref(href string) bool {
	return href == "" ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:")
}

// injectOpenTracking adds the redundant open probes. No single mechanism
// survives every email client (most block remote images, many strip
// scripts), so several fire independently and the tracking store absorbs
// the duplicate hits.
func (rw *Rewriter) injectOpenTracking(html, pixelID, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	openURL := fmt.Sprintf("%strack/open/%s", baseURL, pixelID)
	beaconURL := fmt.Sprintf("%strack/beacon/%s", baseURL, pixelID)

	pixel := func(query string) string {
		return fmt.Sprintf(
			`<div style="display:none;max-height:0;overflow:hidden;"><img src="%s%s" width="1" height="1" style="display:none;" alt=""/></div>`,
			openURL, query)
	}

	beacon := fmt.Sprintf(`<script type="text/javascript">
(function() {
	var img = new Image();
	img.src = "%s?t=" + new Date().getTime();
	setTimeout(function() {
		var retry = new Image();
		retry.src = "%s?t=" + new Date().getTime() + "&d=1";
	}, 2000);
})();
</script>`, beaconURL, beaconURL)

	body := doc.Find("body").First()
	head := doc.Find("head").First()

	if body.Length() > 0 {
		body.PrependHtml(pixel("?pos=start"))

		// A probe buried mid-document survives clients that truncate long
		// messages from either end.
		children := body.Children()
		if n := children.Length(); n > 2 {
			children.Eq(n / 2).BeforeHtml(pixel("?pos=middle"))
		}

		body.AppendHtml(pixel("?pos=body-end"))
		body.AppendHtml(beacon)
	}

	if head.Length() > 0 {
		head.AppendHtml(fmt.Sprintf(`<link rel="prefetch" href="%s?s=prefetch"/>`, openURL))
		head.AppendHtml(fmt.Sprintf(
			`<style>body::before{content:'';background:url('%s?s=css');display:none;}</style>`, openURL))
	}

	if body.Length() == 0 && head.Length() == 0 {
		doc.Selection.Children().First().AppendHtml(pixel("?pos=root"))
	}

	out, err := doc.Html()
	if err != nil {
		return "", err
	}

	// Last resort for clients that strip or rebuild the DOM: a pixel outside
	// the parsed tree, hidden from Outlook by the conditional comment.
	out += fmt.Sprintf(
		`<!--[if !mso]><!-- --><div style="display:none;"><img src="%s?pos=end" width="1" height="1" style="display:none;" alt=""/></div><!--<![endif]-->`,
		openURL)
	return out, nil
}
