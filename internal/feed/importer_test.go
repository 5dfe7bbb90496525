package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugils/Email-tracker-Backend/internal/campaign"
)

type fakeStore struct {
	templates []*campaign.Template
	campaigns []*campaign.Campaign
	imported  map[string]bool
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{imported: map[string]bool{}}
}

func (f *fakeStore) CreateTemplate(ctx context.Context, t *campaign.Template) error {
	if f.createErr != nil {
		return f.createErr
	}
	t.ID = uuid.New()
	f.templates = append(f.templates, t)
	return nil
}

func (f *fakeStore) CreateCampaign(ctx context.Context, c *campaign.Campaign) error {
	c.ID = uuid.New()
	f.campaigns = append(f.campaigns, c)
	return nil
}

func (f *fakeStore) HasImportedItem(ctx context.Context, userID uuid.UUID, guid string) (bool, error) {
	return f.imported[guid], nil
}

func (f *fakeStore) RecordImportedItem(ctx context.Context, userID uuid.UUID, guid string) error {
	f.imported[guid] = true
	return nil
}

func feedServer(t *testing.T, items string) *httptest.Server {
	t.Helper()
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Product News</title>
<link>https://example.com</link>
%s
</channel></rss>`, items)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
}

const twoItems = `<item>
<title>Spring Launch</title>
<link>https://example.com/spring</link>
<guid>item-1</guid>
<description>Our spring lineup is here.</description>
</item>
<item>
<title>Summer Preview</title>
<link>https://example.com/summer</link>
<guid>item-2</guid>
<description>A first look at summer.</description>
</item>`

func TestImportOnceDraftsCampaigns(t *testing.T) {
	srv := feedServer(t, twoItems)
	defer srv.Close()

	store := newFakeStore()
	userID := uuid.New()
	im := NewImporter(store, ImporterConfig{FeedURL: srv.URL, UserID: userID})

	n, err := im.ImportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, store.campaigns, 2)
	require.Len(t, store.templates, 2)

	c := store.campaigns[0]
	assert.Equal(t, userID, c.UserID)
	assert.Equal(t, "Spring Launch", c.SubjectLine)
	assert.Equal(t, campaign.StatusDraft, c.Status)
	require.NotNil(t, c.TemplateID)
	assert.Equal(t, store.templates[0].ID, *c.TemplateID)
	assert.Contains(t, store.templates[0].HTMLContent, "https://example.com/spring")
	assert.Contains(t, store.templates[0].HTMLContent, "From Product News")
}

func TestImportOnceDedupesByGUID(t *testing.T) {
	srv := feedServer(t, twoItems)
	defer srv.Close()

	store := newFakeStore()
	store.imported["item-1"] = true
	im := NewImporter(store, ImporterConfig{FeedURL: srv.URL, UserID: uuid.New()})

	n, err := im.ImportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.campaigns, 1)
	assert.Equal(t, "Summer Preview", store.campaigns[0].SubjectLine)

	// second poll sees nothing new
	n, err = im.ImportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestImportOnceRespectsMaxItems(t *testing.T) {
	srv := feedServer(t, twoItems)
	defer srv.Close()

	store := newFakeStore()
	im := NewImporter(store, ImporterConfig{FeedURL: srv.URL, UserID: uuid.New(), MaxItems: 1})

	n, err := im.ImportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportOnceItemErrorDoesNotAbort(t *testing.T) {
	srv := feedServer(t, twoItems)
	defer srv.Close()

	store := newFakeStore()
	store.createErr = fmt.Errorf("db down")
	im := NewImporter(store, ImporterConfig{FeedURL: srv.URL, UserID: uuid.New()})

	n, err := im.ImportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, store.imported)
}

func TestImportOnceRetriesTransientFailure(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Product News</title><link>https://example.com</link>%s</channel></rss>`, twoItems)
	}))
	defer srv.Close()

	store := newFakeStore()
	im := NewImporter(store, ImporterConfig{FeedURL: srv.URL, UserID: uuid.New()})

	n, err := im.ImportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.GreaterOrEqual(t, hits, 2)
}

func TestImportOnceFeedUnreachable(t *testing.T) {
	store := newFakeStore()
	im := NewImporter(store, ImporterConfig{FeedURL: "http://127.0.0.1:1/feed.xml", UserID: uuid.New()})

	_, err := im.ImportOnce(context.Background())
	assert.Error(t, err)
}
