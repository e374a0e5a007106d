package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	intakedomain "github.com/risevoices/risevoices/internal/intake/domain"
	"github.com/risevoices/risevoices/internal/notification/domain"
)

type memRepo struct {
	mu      sync.Mutex
	records []*domain.Notification
}

func (r *memRepo) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, n)
	return nil
}

func (r *memRepo) Save(context.Context, *domain.Notification) error { return nil }

func (r *memRepo) ListBySubmissionID(_ context.Context, id string) ([]*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Notification
	for _, n := range r.records {
		if n.SubmissionID == id {
			out = append(out, n)
		}
	}
	return out, nil
}

type stubSender struct {
	ch   domain.Channel
	err  error
	sent []string
}

func (s *stubSender) Channel() domain.Channel { return s.ch }

func (s *stubSender) Send(_ context.Context, target, _, _ string) error {
	s.sent = append(s.sent, target)
	return s.err
}

func TestSubmissionReceivedFansOut(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	email := &stubSender{ch: domain.ChannelEmail}
	hook := &stubSender{ch: domain.ChannelWebhook}
	svc := NewNotificationService(repo, []domain.Sender{email, hook},
		"mods@example.org", "https://hooks.example/T123", "")

	err := svc.SubmissionReceived(context.Background(),
		intakedomain.TypePledge, "sub-1", "Jane", "jane@example.org", false)
	if err != nil {
		t.Fatalf("SubmissionReceived: %v", err)
	}

	if len(email.sent) != 1 || email.sent[0] != "mods@example.org" {
		t.Fatalf("email targets = %v", email.sent)
	}
	if len(hook.sent) != 1 || hook.sent[0] != "https://hooks.example/T123" {
		t.Fatalf("webhook targets = %v", hook.sent)
	}

	records, _ := repo.ListBySubmissionID(context.Background(), "sub-1")
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	for _, n := range records {
		if n.Status != domain.StatusSent {
			t.Fatalf("record %s status = %s, want SENT", n.Channel, n.Status)
		}
	}
}

func TestSenderFailureIsSwallowedAndRecorded(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	email := &stubSender{ch: domain.ChannelEmail, err: errors.New("smtp refused")}
	svc := NewNotificationService(repo, []domain.Sender{email}, "mods@example.org", "", "")
	svc.now = func() time.Time { return time.Unix(0, 0) }

	err := svc.SubmissionReceived(context.Background(),
		intakedomain.TypeStory, "sub-2", "J", "j@example.org", true)
	if err != nil {
		t.Fatalf("sender failures must not surface: %v", err)
	}

	records, _ := repo.ListBySubmissionID(context.Background(), "sub-2")
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Status != domain.StatusFailed || records[0].ErrorMessage == "" {
		t.Fatalf("record = %+v, want FAILED with error message", records[0])
	}
}

func TestUnconfiguredChannelSkipped(t *testing.T) {
	t.Parallel()

	repo := &memRepo{}
	hook := &stubSender{ch: domain.ChannelWebhook}
	svc := NewNotificationService(repo, []domain.Sender{hook}, "", "", "")

	_ = svc.SubmissionReceived(context.Background(),
		intakedomain.TypeContact, "sub-3", "J", "j@example.org", false)

	if len(hook.sent) != 0 {
		t.Fatal("webhook without a configured URL must be skipped")
	}
	records, _ := repo.ListBySubmissionID(context.Background(), "sub-3")
	if len(records) != 0 {
		t.Fatal("skipped channels must not create records")
	}
}
