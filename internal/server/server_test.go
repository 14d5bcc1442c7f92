package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"careerdesk/internal/auth"
	"careerdesk/internal/career"
	"careerdesk/internal/config"
	"careerdesk/internal/db"
	"careerdesk/internal/domain"
	"careerdesk/internal/migrate"
	"careerdesk/internal/repo"
	"careerdesk/internal/storage"
)

type testServer struct {
	URL      string
	client   *http.Client
	sessions auth.Service
	repo     repo.Repo
	close    func()
}

func (s *testServer) Client() *http.Client { return s.client }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("CareerDesk")
	r := repo.Repo{DB: conn}
	files := storage.Store{
		Dir:         filepath.Join(workspace, cfg.Storage.Bucket),
		Prefix:      cfg.Storage.ResumePrefix,
		BaseURL:     "/files",
		MaxBytes:    cfg.Storage.MaxUploadBytes,
		AllowedExts: cfg.Storage.AllowedExtensions,
	}
	svc := career.New(conn, cfg, files)
	sessions := auth.Service{
		Repo:       r,
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		ResetTTL:   time.Hour,
	}
	handler, err := New(Config{
		Career:   svc,
		Sessions: sessions,
		BasePath: "/v1",
		FilesDir: files.Dir,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:      "http://" + ln.Addr().String(),
		client:   &http.Client{},
		sessions: sessions,
		repo:     r,
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func adminToken(t *testing.T, srv *testServer) string {
	t.Helper()
	ctx := context.Background()
	email := "admin@example.com"
	if _, err := srv.sessions.Repo.GetAdminUserByEmail(ctx, email); err != nil {
		if _, err := srv.sessions.SignUp(ctx, email, "s3cret", "Admin", domain.RoleAdmin); err != nil {
			t.Fatalf("sign up: %v", err)
		}
	}
	session, err := srv.sessions.SignIn(ctx, email, "s3cret")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	return session.Token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func createJob(t *testing.T, srv *testServer, token string, overrides map[string]any) domain.JobPosting {
	t.Helper()
	body := map[string]any{
		"title":            "Backend Engineer",
		"department":       "Engineering",
		"location":         "Remote",
		"experience":       "3+ years",
		"type":             domain.JobTypeFullTime,
		"description":      "Build the careers backend.",
		"responsibilities": "Ship features.",
		"requirements":     "Go experience.",
		"deadline":         "2026-12-31",
		"status":           domain.JobStatusActive,
	}
	for k, v := range overrides {
		body[k] = v
	}
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/admin/jobs", body, bearer(token))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create job status %d: %s", res.StatusCode, string(data))
	}
	var j domain.JobPosting
	if err := json.Unmarshal(data, &j); err != nil {
		t.Fatalf("unmarshal job: %v", err)
	}
	return j
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/admin/jobs", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/auth/me", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for /auth/me, got %d", res.StatusCode)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/admin/jobs", nil, bearer("garbage"))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}

func TestSignInAndMe(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/auth/me", nil, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var me domain.AuthUser
	if err := json.Unmarshal(data, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.Email != "admin@example.com" || me.Role != domain.RoleAdmin {
		t.Fatalf("unexpected principal: %+v", me)
	}
}

func TestSignInWrongPasswordIs401(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	adminToken(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/signin", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
}

func TestPublicListingGateOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)

	draft := createJob(t, srv, token, map[string]any{"title": "Draft role", "status": domain.JobStatusDraft})
	createJob(t, srv, token, map[string]any{"title": "Hidden role", "is_visible": false})
	active := createJob(t, srv, token, map[string]any{"title": "Open role"})

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/careers/jobs", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("public list status %d: %s", res.StatusCode, string(data))
	}
	var list struct {
		Items []domain.JobPosting `json:"items"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != active.ID {
		t.Fatalf("expected only the active visible posting, got %+v", list.Items)
	}

	// The public detail endpoint 404s for unlisted postings.
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/careers/jobs/"+draft.ID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for draft posting, got %d", res.StatusCode)
	}

	// Activating the draft makes it publicly listed.
	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v1/admin/jobs/"+draft.ID, map[string]any{
		"status": domain.JobStatusActive,
	}, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/careers/jobs/"+draft.ID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected activated posting to be public, got %d: %s", res.StatusCode, string(data))
	}
}

func TestCreateJobValidationIs422(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/admin/jobs", map[string]any{
		"title":            "",
		"department":       "Engineering",
		"location":         "Remote",
		"experience":       "3+ years",
		"type":             domain.JobTypeFullTime,
		"description":      "d",
		"responsibilities": "r",
		"requirements":     "r",
		"deadline":         "2026-12-31",
		"status":           domain.JobStatusActive,
	}, bearer(token))
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q", envelope.Error.Code)
	}
	if _, ok := envelope.Error.Details["title"]; !ok {
		t.Fatalf("expected per-field detail for title, got %v", envelope.Error.Details)
	}
}

func TestDeleteJob(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)

	j := createJob(t, srv, token, nil)
	res, data := doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v1/admin/jobs/"+j.ID, nil, bearer(token))
	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/admin/jobs/"+j.ID, nil, bearer(token))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.StatusCode)
	}
}

func applyMultipart(t *testing.T, srv *testServer, jobID, email, filename, content string) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"job_id":       jobID,
		"name":         "Ada Lovelace",
		"email":        email,
		"phone":        "+1 555 0100",
		"cover_letter": "Hello",
		"status":       domain.ApplicantStatusHired, // must be ignored
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("resume", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/careers/apply", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func TestApplyEndToEnd(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)
	j := createJob(t, srv, token, nil)

	res, data := applyMultipart(t, srv, j.ID, "ada@example.com", "resume.pdf", "resume body")
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("apply status %d: %s", res.StatusCode, string(data))
	}
	var a domain.Applicant
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("unmarshal applicant: %v", err)
	}
	if a.Status != domain.ApplicantStatusApplied {
		t.Fatalf("submitted status must be forced to Applied, got %q", a.Status)
	}
	if !strings.Contains(a.ResumeURL, "/files/resumes/") {
		t.Fatalf("unexpected resume url %q", a.ResumeURL)
	}

	// The stored resume is served back under /files.
	fileRes, err := srv.Client().Get(srv.URL + a.ResumeURL)
	if err != nil {
		t.Fatalf("fetch resume: %v", err)
	}
	body, _ := io.ReadAll(fileRes.Body)
	fileRes.Body.Close()
	if fileRes.StatusCode != http.StatusOK || string(body) != "resume body" {
		t.Fatalf("resume fetch status %d body %q", fileRes.StatusCode, string(body))
	}
}

func TestApplyRejectsBadUploads(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)
	j := createJob(t, srv, token, nil)

	res, data := applyMultipart(t, srv, j.ID, "ada@example.com", "malware.exe", "nope")
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for disallowed extension, got %d: %s", res.StatusCode, string(data))
	}

	res, data = applyMultipart(t, srv, "missing-job", "ada@example.com", "resume.pdf", "body")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown posting, got %d: %s", res.StatusCode, string(data))
	}
}

func TestApplicantTriageOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)
	j := createJob(t, srv, token, nil)

	if res, data := applyMultipart(t, srv, j.ID, "ada@example.com", "resume.pdf", "body"); res.StatusCode != http.StatusCreated {
		t.Fatalf("apply status %d: %s", res.StatusCode, string(data))
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/admin/applicants?job_id="+j.ID, nil, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list applicants status %d: %s", res.StatusCode, string(data))
	}
	var list struct {
		Items []domain.Applicant `json:"items"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("unmarshal applicants: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected one applicant, got %d", len(list.Items))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPatch, srv.URL+"/v1/admin/applicants/"+list.Items[0].ID+"/status", map[string]any{
		"status": domain.ApplicantStatusShortlisted,
		"notes":  "solid resume",
	}, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, string(data))
	}
	var updated domain.Applicant
	if err := json.Unmarshal(data, &updated); err != nil {
		t.Fatalf("unmarshal applicant: %v", err)
	}
	if updated.Status != domain.ApplicantStatusShortlisted || updated.Notes == nil {
		t.Fatalf("unexpected applicant after patch: %+v", updated)
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)
	j := createJob(t, srv, token, nil)
	createJob(t, srv, token, map[string]any{"title": "Draft role", "status": domain.JobStatusDraft})
	if res, data := applyMultipart(t, srv, j.ID, "ada@example.com", "resume.pdf", "body"); res.StatusCode != http.StatusCreated {
		t.Fatalf("apply status %d: %s", res.StatusCode, string(data))
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/admin/stats", nil, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats status %d: %s", res.StatusCode, string(data))
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.TotalJobs != 2 || stats.ActiveJobs != 1 || stats.TotalApplicants != 1 || stats.PendingApplications != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(stats.RecentApplications) != 1 {
		t.Fatalf("expected one recent application, got %d", len(stats.RecentApplications))
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := adminToken(t, srv)
	j := createJob(t, srv, token, nil)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/admin/events?entity_kind=job_posting&entity_id="+j.ID, nil, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(data))
	}
	var list struct {
		Items []domain.Event `json:"items"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Type != "job.created" {
		t.Fatalf("expected a job.created event, got %+v", list.Items)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	user, err := srv.sessions.SignUp(ctx, "ci@example.com", "s3cret", "CI Bot", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	plaintext := "cdk_ci_key"
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      "ci",
		KeyHash:   repo.HashAPIKey(plaintext),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := srv.repo.InsertAPIKey(ctx, key); err != nil {
		t.Fatalf("insert api key: %v", err)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/admin/jobs", nil, map[string]string{"X-Api-Key": plaintext})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("api key auth status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/admin/jobs", nil, map[string]string{"X-Api-Key": "wrong"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong key, got %d", res.StatusCode)
	}
}

func TestSignUpConflictIs409(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	adminToken(t, srv)

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/signup", map[string]string{
		"email":    "admin@example.com",
		"password": "another",
		"name":     "Dup",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", res.StatusCode, string(data))
	}
}
