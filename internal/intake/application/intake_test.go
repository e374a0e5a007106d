package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/risevoices/risevoices/internal/intake/domain"
	"github.com/risevoices/risevoices/pkg/ratelimit"
)

type fakeRepo struct {
	mu      sync.Mutex
	created []*domain.Submission
	saved   []*domain.Submission
	// dupLens 推荐码长度命中其中任一项时 Create 返回重复键错误，
	// 用于模拟与存量码的前缀冲突
	dupLens map[int]bool
	byID    map[string]*domain.Submission
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		dupLens: make(map[int]bool),
		byID:    make(map[string]*domain.Submission),
	}
}

func (r *fakeRepo) Create(_ context.Context, sub *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ReferralCode != nil && r.dupLens[len(*sub.ReferralCode)] {
		return domain.ErrDuplicateReferralCode
	}
	r.created = append(r.created, sub)
	r.byID[sub.SubmissionID] = sub
	return nil
}

func (r *fakeRepo) Save(_ context.Context, sub *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, sub)
	return nil
}

func (r *fakeRepo) GetBySubmissionID(_ context.Context, id string) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (r *fakeRepo) GetByReferralCode(context.Context, domain.SubmissionType, string) (*domain.Submission, error) {
	return nil, domain.ErrSubmissionNotFound
}

func (r *fakeRepo) ListByType(context.Context, domain.SubmissionType) ([]*domain.Submission, error) {
	return nil, nil
}

func (r *fakeRepo) ListForMap(context.Context) ([]*domain.Submission, error) { return nil, nil }

func (r *fakeRepo) List(context.Context, domain.ListFilter) ([]*domain.Submission, int64, error) {
	return nil, 0, nil
}

func (r *fakeRepo) CountByType(context.Context, domain.SubmissionType) (int64, error) {
	return 0, nil
}

func (r *fakeRepo) CountReferredByType(context.Context, domain.SubmissionType) (int64, error) {
	return 0, nil
}

type fakeLimiter struct {
	mu     sync.Mutex
	calls  []string
	result *ratelimit.Result
	err    error
}

func (l *fakeLimiter) Allow(_ context.Context, key string, _ ratelimit.Limit) (*ratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, key)
	if l.err != nil {
		return nil, l.err
	}
	if l.result != nil {
		return l.result, nil
	}
	return &ratelimit.Result{Allowed: true, Remaining: 1}, nil
}

func (l *fakeLimiter) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type fakeGeocoder struct {
	coords *domain.Coordinates
	err    error
	calls  int
}

func (g *fakeGeocoder) Geocode(context.Context, string, string) (*domain.Coordinates, error) {
	g.calls++
	return g.coords, g.err
}

func pledgeCommand() SubmitCommand {
	return SubmitCommand{
		Type:        domain.TypePledge,
		ClientIP:    "203.0.113.7",
		DisplayName: "Jane Doe",
		City:        "Columbus",
		State:       "OH",
		Category:    "parent",
	}
}

func TestSubmitHoneypotSkipsLimiterAndRepo(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	limiter := &fakeLimiter{}
	svc := NewIntakeService(repo, limiter, nil, nil, nil, true)

	cmd := pledgeCommand()
	cmd.Honeypot = "http://spam.example"

	_, err := svc.Submit(context.Background(), cmd)
	if !errors.Is(err, ErrHoneypot) {
		t.Fatalf("err = %v, want ErrHoneypot", err)
	}
	if limiter.callCount() != 0 {
		t.Fatal("honeypot rejection must not consume rate limit quota")
	}
	if len(repo.created) != 0 {
		t.Fatal("honeypot rejection must not persist anything")
	}
}

func TestSubmitRateLimitedCarriesReset(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	limiter := &fakeLimiter{result: &ratelimit.Result{
		Allowed:    false,
		RetryAfter: 44*time.Minute + 100*time.Millisecond,
	}}
	svc := NewIntakeService(repo, limiter, nil, nil, nil, true)

	_, err := svc.Submit(context.Background(), pledgeCommand())
	var rle *RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("err = %v, want RateLimitedError", err)
	}
	if rle.ResetInSeconds != 44*60+1 {
		t.Fatalf("ResetInSeconds = %d, want %d (ceil)", rle.ResetInSeconds, 44*60+1)
	}
	if len(repo.created) != 0 {
		t.Fatal("rate-limited submission must not persist")
	}
}

func TestSubmitFailsOpenOnLimiterError(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	limiter := &fakeLimiter{err: errors.New("redis down")}
	svc := NewIntakeService(repo, limiter, nil, nil, nil, true)

	res, err := svc.Submit(context.Background(), pledgeCommand())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.SubmissionID == "" {
		t.Fatal("expected a submission id")
	}
}

func TestSubmitValidationAfterRateLimit(t *testing.T) {
	t.Parallel()

	limiter := &fakeLimiter{}
	svc := NewIntakeService(newFakeRepo(), limiter, nil, nil, nil, true)

	cmd := pledgeCommand()
	cmd.DisplayName = ""
	cmd.Email = "not-an-email"

	_, err := svc.Submit(context.Background(), cmd)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if limiter.callCount() != 1 {
		t.Fatal("invalid submissions still consume rate limit quota")
	}
	if ve.Fields["name"] == "" {
		t.Fatal("missing name must be reported")
	}
	if ve.Fields["email"] == "" {
		t.Fatal("malformed email must be reported")
	}
}

func TestSubmitGeocodeFailureStillPersists(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	geo := &fakeGeocoder{err: errors.New("timeout")}
	svc := NewIntakeService(repo, nil, geo, nil, nil, false)

	res, err := svc.Submit(context.Background(), pledgeCommand())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if geo.calls != 1 {
		t.Fatalf("geocoder calls = %d, want 1", geo.calls)
	}

	sub := repo.byID[res.SubmissionID]
	if sub == nil {
		t.Fatal("submission not persisted")
	}
	if sub.Geocoded || sub.Lat != nil || sub.Lng != nil {
		t.Fatal("failed geocoding must leave the submission ungeocoded")
	}
}

func TestSubmitGeocodeSuccess(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	geo := &fakeGeocoder{coords: &domain.Coordinates{Lat: 39.96, Lng: -82.99}}
	svc := NewIntakeService(repo, nil, geo, nil, nil, false)

	res, err := svc.Submit(context.Background(), pledgeCommand())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	sub := repo.byID[res.SubmissionID]
	if !sub.Geocoded || sub.Lat == nil || *sub.Lat != 39.96 {
		t.Fatalf("coordinates not stored: geocoded=%v lat=%v", sub.Geocoded, sub.Lat)
	}
}

func TestSubmitContactSkipsGeocoding(t *testing.T) {
	t.Parallel()

	geo := &fakeGeocoder{coords: &domain.Coordinates{Lat: 1, Lng: 2}}
	svc := NewIntakeService(newFakeRepo(), nil, geo, nil, nil, false)

	_, err := svc.Submit(context.Background(), SubmitCommand{
		Type:  domain.TypeContact,
		Email: "a@b.example",
		Body:  "hello there",
		City:  "Columbus",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if geo.calls != 0 {
		t.Fatal("contact submissions must not be geocoded")
	}
}

func TestSubmitReferralCollisionLengthensCode(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewIntakeService(repo, nil, nil, nil, nil, false)

	// 所有 8 位码都视为已被占用：第一次尝试必然冲突
	repo.dupLens[8] = true

	res, err := svc.Submit(context.Background(), pledgeCommand())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(res.ReferralCode) != 12 {
		t.Fatalf("referral code %q length = %d, want 12 after one collision", res.ReferralCode, len(res.ReferralCode))
	}
	if res.ReferralCode != strings.ToUpper(res.ReferralCode) {
		t.Fatalf("referral code %q must be uppercase", res.ReferralCode)
	}
}

func TestSubmitFlaggedContentStaysPending(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewIntakeService(repo, nil, nil, nil, nil, false)

	res, err := svc.Submit(context.Background(), SubmitCommand{
		Type:        domain.TypeStory,
		DisplayName: "Jane",
		Body:        "Dr. Smith helped me BUY NOW at http://a.example and http://b.example",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	sub := repo.byID[res.SubmissionID]
	if !sub.Flagged {
		t.Fatal("risky content must be flagged")
	}
	if sub.Status != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", sub.Status)
	}
	if sub.RiskScore == 0 {
		t.Fatal("flagged submission must carry a risk score")
	}
	if sub.ReviewNotes == "" || !strings.Contains(sub.ReviewNotes, "named-individual") {
		t.Fatalf("review notes must record rule hits, got %q", sub.ReviewNotes)
	}
}

func TestSubmitNewsletterAutoApproved(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewIntakeService(repo, nil, nil, nil, nil, false)

	res, err := svc.Submit(context.Background(), SubmitCommand{
		Type:  domain.TypeNewsletter,
		Email: "sub@example.com",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", res.Status)
	}
	if res.ReferralCode != "" {
		t.Fatal("newsletter signups must not receive referral codes")
	}
}

func TestModerationFlow(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewIntakeService(repo, nil, nil, nil, nil, false)

	res, err := svc.Submit(context.Background(), pledgeCommand())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := svc.Publish(context.Background(), res.SubmissionID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("publish before approve: err = %v, want ErrInvalidTransition", err)
	}

	sub, err := svc.Approve(context.Background(), res.SubmissionID, "verified")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if sub.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", sub.Status)
	}

	if _, err := svc.Approve(context.Background(), "no-such-id", ""); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("approve unknown id: err = %v, want ErrSubmissionNotFound", err)
	}
}
