package reply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sugils/Email-tracker-Backend/internal/tracking"
)

type fakeMailbox struct {
	messages  map[string][]byte
	searchErr error
	fetchErr  map[string]bool
	closed    bool
}

func (f *fakeMailbox) Search(since time.Time) ([]string, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var ids []string
	for id := range f.messages {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeMailbox) Fetch(id string) ([]byte, error) {
	if f.fetchErr[id] {
		return nil, errors.New("fetch failed")
	}
	return f.messages[id], nil
}

func (f *fakeMailbox) Close() error {
	f.closed = true
	return nil
}

type fakeCampaigns struct {
	subjects map[uuid.UUID]string
	order    []uuid.UUID
}

func (f *fakeCampaigns) GetCompletedCampaignSubjects(ctx context.Context) (map[uuid.UUID]string, []uuid.UUID, error) {
	return f.subjects, f.order, nil
}

type fakeTrackings struct {
	records map[string]*tracking.Record // keyed by campaignID|email
	replied []uuid.UUID
}

func (f *fakeTrackings) GetRecordByRecipientEmail(ctx context.Context, campaignID uuid.UUID, email string) (*tracking.Record, error) {
	return f.records[campaignID.String()+"|"+email], nil
}

func (f *fakeTrackings) ApplyReply(ctx context.Context, trackingID uuid.UUID) error {
	f.replied = append(f.replied, trackingID)
	return nil
}

func rawMessage(from, subject string) []byte {
	return []byte("From: " + from + "\r\nSubject: " + subject + "\r\n\r\nThanks!\r\n")
}

func TestCheckOnceMatchesReply(t *testing.T) {
	campaignID := uuid.New()
	recordID := uuid.New()

	campaigns := &fakeCampaigns{
		subjects: map[uuid.UUID]string{campaignID: "Spring Promo"},
		order:    []uuid.UUID{campaignID},
	}
	trackings := &fakeTrackings{records: map[string]*tracking.Record{
		campaignID.String() + "|jane@x.com": {ID: recordID, CampaignID: campaignID},
	}}
	mb := &fakeMailbox{messages: map[string][]byte{
		"1": rawMessage("Jane <jane@x.com>", "Re: Spring Promo"),
	}}

	rc := NewReconciler(func() (Mailbox, error) { return mb, nil }, campaigns, trackings, DefaultReconcilerConfig())
	if err := rc.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() error: %v", err)
	}

	if len(trackings.replied) != 1 || trackings.replied[0] != recordID {
		t.Errorf("replied = %v, want [%s]", trackings.replied, recordID)
	}
	if !mb.closed {
		t.Error("mailbox session left open")
	}
}

func TestCheckOnceSkipsAlreadyReplied(t *testing.T) {
	campaignID := uuid.New()
	now := time.Now()

	campaigns := &fakeCampaigns{
		subjects: map[uuid.UUID]string{campaignID: "Spring Promo"},
		order:    []uuid.UUID{campaignID},
	}
	trackings := &fakeTrackings{records: map[string]*tracking.Record{
		campaignID.String() + "|jane@x.com": {ID: uuid.New(), CampaignID: campaignID, RepliedAt: &now},
	}}
	mb := &fakeMailbox{messages: map[string][]byte{
		"1": rawMessage("jane@x.com", "RE: spring promo"),
	}}

	rc := NewReconciler(func() (Mailbox, error) { return mb, nil }, campaigns, trackings, DefaultReconcilerConfig())
	if err := rc.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() error: %v", err)
	}
	if len(trackings.replied) != 0 {
		t.Errorf("replied = %v, want none for already-replied record", trackings.replied)
	}
}

func TestCheckOnceIgnoresNonReplies(t *testing.T) {
	campaignID := uuid.New()

	campaigns := &fakeCampaigns{
		subjects: map[uuid.UUID]string{campaignID: "Spring Promo"},
		order:    []uuid.UUID{campaignID},
	}
	trackings := &fakeTrackings{records: map[string]*tracking.Record{}}
	mb := &fakeMailbox{messages: map[string][]byte{
		"1": rawMessage("jane@x.com", "Spring Promo"),        // no Re: prefix
		"2": rawMessage("jane@x.com", "Re: Something Else"),  // unknown subject
		"3": []byte("garbage that is not a message"),         // unparseable
	}}

	rc := NewReconciler(func() (Mailbox, error) { return mb, nil }, campaigns, trackings, DefaultReconcilerConfig())
	if err := rc.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() error: %v", err)
	}
	if len(trackings.replied) != 0 {
		t.Errorf("replied = %v, want none", trackings.replied)
	}
}

func TestCheckOncePerMessageErrorDoesNotAbort(t *testing.T) {
	campaignID := uuid.New()
	recordID := uuid.New()

	campaigns := &fakeCampaigns{
		subjects: map[uuid.UUID]string{campaignID: "Spring Promo"},
		order:    []uuid.UUID{campaignID},
	}
	trackings := &fakeTrackings{records: map[string]*tracking.Record{
		campaignID.String() + "|jane@x.com": {ID: recordID, CampaignID: campaignID},
	}}
	mb := &fakeMailbox{
		messages: map[string][]byte{
			"1": nil,
			"2": rawMessage("Jane <jane@x.com>", "Re: Spring Promo"),
		},
		fetchErr: map[string]bool{"1": true},
	}

	rc := NewReconciler(func() (Mailbox, error) { return mb, nil }, campaigns, trackings, DefaultReconcilerConfig())
	if err := rc.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce() error: %v", err)
	}
	if len(trackings.replied) != 1 {
		t.Errorf("replied = %v, want the good message processed", trackings.replied)
	}
}

func TestCheckOnceMailboxFailureAborts(t *testing.T) {
	campaignID := uuid.New()
	campaigns := &fakeCampaigns{
		subjects: map[uuid.UUID]string{campaignID: "Spring Promo"},
		order:    []uuid.UUID{campaignID},
	}

	rc := NewReconciler(func() (Mailbox, error) { return nil, errors.New("connection refused") },
		campaigns, &fakeTrackings{}, DefaultReconcilerConfig())
	if err := rc.CheckOnce(context.Background()); err == nil {
		t.Error("CheckOnce() = nil, want error on mailbox failure")
	}
}

func TestReconcilerStartStop(t *testing.T) {
	rc := NewReconciler(func() (Mailbox, error) { return &fakeMailbox{}, nil },
		&fakeCampaigns{}, &fakeTrackings{}, ReconcilerConfig{Interval: time.Hour})

	rc.Start()
	if !rc.IsRunning() {
		t.Error("reconciler should be running after Start()")
	}
	// Double start is a no-op
	rc.Start()

	rc.Stop()
	if rc.IsRunning() {
		t.Error("reconciler should not be running after Stop()")
	}
	// Double stop is a no-op
	rc.Stop()
}

func TestStripReplyPrefix(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
		wantOK  bool
	}{
		{"standard prefix", "Re: Spring Promo", "Spring Promo", true},
		{"uppercase prefix", "RE: Spring Promo", "Spring Promo", true},
		{"lowercase prefix", "re: hello", "hello", true},
		{"leading whitespace", "  Re: hello", "hello", true},
		{"no prefix", "Spring Promo", "Spring Promo", false},
		{"prefix mid-subject", "About Re: things", "About Re: things", false},
		{"empty", "", "", false},
		{"prefix only", "Re: ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := StripReplyPrefix(tt.subject)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("StripReplyPrefix(%q) = (%q, %v), want (%q, %v)",
					tt.subject, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"display name form", "Jane Doe <jane@x.com>", "jane@x.com"},
		{"bare address", "jane@x.com", "jane@x.com"},
		{"quoted display name", `"Doe, Jane" <jane@x.com>`, "jane@x.com"},
		{"unparseable falls back to raw", "not an address", "not an address"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAddress(tt.from); got != tt.want {
				t.Errorf("ExtractAddress(%q) = %q, want %q", tt.from, got, tt.want)
			}
		})
	}
}
