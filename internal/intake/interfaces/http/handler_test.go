package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/risevoices/risevoices/internal/intake/application"
	"github.com/risevoices/risevoices/internal/intake/domain"
)

type stubRepo struct {
	created []*domain.Submission
}

func (r *stubRepo) Create(_ context.Context, sub *domain.Submission) error {
	r.created = append(r.created, sub)
	return nil
}
func (r *stubRepo) Save(context.Context, *domain.Submission) error { return nil }
func (r *stubRepo) GetBySubmissionID(context.Context, string) (*domain.Submission, error) {
	return nil, domain.ErrSubmissionNotFound
}
func (r *stubRepo) GetByReferralCode(context.Context, domain.SubmissionType, string) (*domain.Submission, error) {
	return nil, domain.ErrSubmissionNotFound
}
func (r *stubRepo) ListByType(context.Context, domain.SubmissionType) ([]*domain.Submission, error) {
	return nil, nil
}
func (r *stubRepo) ListForMap(context.Context) ([]*domain.Submission, error) { return nil, nil }
func (r *stubRepo) List(context.Context, domain.ListFilter) ([]*domain.Submission, int64, error) {
	return nil, 0, nil
}
func (r *stubRepo) CountByType(context.Context, domain.SubmissionType) (int64, error) {
	return 0, nil
}
func (r *stubRepo) CountReferredByType(context.Context, domain.SubmissionType) (int64, error) {
	return 0, nil
}

func newTestRouter(repo domain.SubmissionRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	intake := application.NewIntakeService(repo, nil, nil, nil, nil, false)
	query := application.NewQueryService(repo)
	r := gin.New()
	NewHandler(intake, query).RegisterPublicRoutes(r)
	NewInternalHandler(intake, query, "secret").RegisterInternalRoutes(r)
	return r
}

func TestSubmitPledgeCreated(t *testing.T) {
	t.Parallel()

	repo := &stubRepo{}
	r := newTestRouter(repo)

	body := `{"name":"Jane","city":"Columbus","state":"OH","ref":"ABCD1234"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		SubmissionID string `json:"submission_id"`
		Status       string `json:"status"`
		ReferralCode string `json:"referral_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SubmissionID == "" || resp.ReferralCode == "" {
		t.Fatalf("response missing ids: %+v", resp)
	}
	if resp.Status != string(domain.StatusPending) {
		t.Fatalf("status = %s, want PENDING", resp.Status)
	}

	if len(repo.created) != 1 {
		t.Fatalf("created = %d submissions", len(repo.created))
	}
	if got := repo.created[0].ReferredByCode(); got != "ABCD1234" {
		t.Fatalf("referred_by = %q", got)
	}
}

func TestSubmitHoneypotLooksLikeValidationFailure(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&stubRepo{})

	body := `{"name":"Bot","city":"X","state":"Y","website":"http://spam.example"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if strings.Contains(strings.ToLower(w.Body.String()), "honeypot") {
		t.Fatal("response must not reveal the honeypot")
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Errors["email"] == "" || resp.Errors["message"] == "" {
		t.Fatalf("field errors = %v", resp.Errors)
	}
}

func TestInternalRoutesRequireToken(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/internal/v1/submissions", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/internal/v1/submissions", nil)
	req.Header.Set("X-Internal-Token", "secret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("with token: status = %d, want 200", w.Code)
	}
}

func TestModerateUnknownSubmission(t *testing.T) {
	t.Parallel()

	r := newTestRouter(&stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/internal/v1/submissions/nope/approve", strings.NewReader(`{"notes":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Token", "secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
