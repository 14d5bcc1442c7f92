package career

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerdesk/internal/config"
	"careerdesk/internal/db"
	"careerdesk/internal/domain"
	"careerdesk/internal/migrate"
	"careerdesk/internal/repo"
	"careerdesk/internal/storage"
)

func newTestService(t *testing.T) (Service, *sql.DB) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	cfg := config.Default("CareerDesk")
	files := storage.Store{
		Dir:         filepath.Join(workspace, cfg.Storage.Bucket),
		Prefix:      cfg.Storage.ResumePrefix,
		BaseURL:     "http://127.0.0.1:8080/files",
		MaxBytes:    cfg.Storage.MaxUploadBytes,
		AllowedExts: cfg.Storage.AllowedExtensions,
	}
	return New(conn, cfg, files), conn
}

func mustCreateJob(t *testing.T, svc Service, mutate func(*JobDraft)) domain.JobPosting {
	t.Helper()
	draft := validDraft()
	if mutate != nil {
		mutate(&draft)
	}
	j, err := svc.CreateJobPosting(context.Background(), draft, "tester")
	require.NoError(t, err)
	return j
}

func TestCreateAndGetJobPosting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreateJob(t, svc, nil)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsVisible, "visibility defaults to true")
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.GetJobPosting(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Status, got.Status)
	assert.Equal(t, created.Deadline, got.Deadline)
}

func TestGetJobPostingNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetJobPosting(context.Background(), "missing")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestCreateJobPostingRejectsInvalidDraft(t *testing.T) {
	svc, _ := newTestService(t)
	draft := validDraft()
	draft.Title = ""
	_, err := svc.CreateJobPosting(context.Background(), draft, "tester")
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "title")
}

func TestPublicListingGate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	active := mustCreateJob(t, svc, nil)
	mustCreateJob(t, svc, func(d *JobDraft) {
		d.Title = "Draft role"
		d.Status = domain.JobStatusDraft
	})
	hidden := false
	mustCreateJob(t, svc, func(d *JobDraft) {
		d.Title = "Hidden role"
		d.IsVisible = &hidden
	})
	mustCreateJob(t, svc, func(d *JobDraft) {
		d.Title = "Closed role"
		d.Status = domain.JobStatusClosed
	})

	public, err := svc.ListJobPostings(ctx, false)
	require.NoError(t, err)
	require.Len(t, public, 1, "only Active AND visible postings are publicly listed")
	assert.Equal(t, active.ID, public[0].ID)

	all, err := svc.ListJobPostings(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDraftBecomesPubliclyListedWhenActivated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	j := mustCreateJob(t, svc, func(d *JobDraft) {
		d.Status = domain.JobStatusDraft
	})
	public, err := svc.ListJobPostings(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, public)

	status := domain.JobStatusActive
	require.NoError(t, svc.UpdateJobPosting(ctx, j.ID, repo.JobPatch{Status: &status}, "tester"))

	public, err = svc.ListJobPostings(ctx, false)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, j.ID, public[0].ID)
}

func TestUpdateJobPostingAlwaysStampsUpdatedAt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.Now = fixedClock("2026-01-01T10:00:00Z")

	j := mustCreateJob(t, svc, nil)

	svc.Now = fixedClock("2026-01-02T10:00:00Z")
	require.NoError(t, svc.UpdateJobPosting(ctx, j.ID, repo.JobPatch{}, "tester"))

	got, err := svc.GetJobPosting(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T10:00:00Z", got.CreatedAt)
	assert.Equal(t, "2026-01-02T10:00:00Z", got.UpdatedAt, "empty patch still touches updated_at")
}

func TestUpdateJobPostingNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	status := domain.JobStatusClosed
	err := svc.UpdateJobPosting(context.Background(), "missing", repo.JobPatch{Status: &status}, "tester")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDeleteJobPostingKeepsApplicants(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	j := mustCreateJob(t, svc, nil)
	a, err := svc.SubmitApplication(ctx, ApplicationSubmission{
		JobID:     j.ID,
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		ResumeURL: "http://example.com/resume.pdf",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteJobPosting(ctx, j.ID, "tester"))
	_, err = svc.GetJobPosting(ctx, j.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	kept, err := svc.Repo.GetApplicant(ctx, a.ID)
	require.NoError(t, err, "applicant rows survive posting deletion")
	assert.Equal(t, j.ID, kept.JobID)
}

func TestSubmitApplicationForcesAppliedStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	j := mustCreateJob(t, svc, nil)
	a, err := svc.SubmitApplication(ctx, ApplicationSubmission{
		JobID:       j.ID,
		Name:        "Grace Hopper",
		Email:       "grace@example.com",
		Phone:       "+1 555 0100",
		ResumeURL:   "http://example.com/resume.pdf",
		CoverLetter: "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicantStatusApplied, a.Status)

	got, err := svc.Repo.GetApplicant(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicantStatusApplied, got.Status)
	require.NotNil(t, got.Phone)
	assert.Equal(t, "+1 555 0100", *got.Phone)
}

func TestSubmitApplicationValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitApplication(ctx, ApplicationSubmission{})
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "job_id")
	assert.Contains(t, fe, "name")
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "resume_url")

	_, err = svc.SubmitApplication(ctx, ApplicationSubmission{
		JobID:     "missing",
		Name:      "Ada",
		Email:     "ada@example.com",
		ResumeURL: "http://example.com/resume.pdf",
	})
	assert.ErrorIs(t, err, repo.ErrNotFound, "unknown posting is a not-found, not a validation error")
}

func TestUpdateApplicantStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	j := mustCreateJob(t, svc, nil)
	a, err := svc.SubmitApplication(ctx, ApplicationSubmission{
		JobID:     j.ID,
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		ResumeURL: "http://example.com/resume.pdf",
	})
	require.NoError(t, err)

	notes := "strong take-home"
	require.NoError(t, svc.UpdateApplicantStatus(ctx, a.ID, domain.ApplicantStatusShortlisted, &notes, "tester"))

	got, err := svc.Repo.GetApplicant(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicantStatusShortlisted, got.Status)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)

	err = svc.UpdateApplicantStatus(ctx, a.ID, "Ghosted", nil, "tester")
	var fe FieldErrors
	assert.ErrorAs(t, err, &fe)
}

func TestApplyUploadsThenInserts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	j := mustCreateJob(t, svc, nil)
	a, err := svc.Apply(ctx, ApplicationSubmission{
		JobID: j.ID,
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	}, "resume.pdf", strings.NewReader("resume body"))
	require.NoError(t, err)
	assert.Contains(t, a.ResumeURL, "/files/resumes/")
	assert.True(t, strings.HasSuffix(a.ResumeURL, ".pdf"))

	stored := filepath.Join(svc.Files.Dir, svc.Files.Prefix, filepath.Base(a.ResumeURL))
	_, err = os.Stat(stored)
	assert.NoError(t, err, "resume file exists in the bucket")
}

func TestApplyRemovesUploadWhenInsertFails(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Apply(ctx, ApplicationSubmission{
		JobID: "missing",
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
	}, "resume.pdf", strings.NewReader("resume body"))
	require.Error(t, err)

	resumeDir := filepath.Join(svc.Files.Dir, svc.Files.Prefix)
	entries, readErr := os.ReadDir(resumeDir)
	if readErr != nil {
		require.True(t, errors.Is(readErr, os.ErrNotExist))
		return
	}
	assert.Empty(t, entries, "failed submission leaves no orphan upload")
}

func TestDashboardStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	active := mustCreateJob(t, svc, nil)
	mustCreateJob(t, svc, func(d *JobDraft) {
		d.Title = "Draft role"
		d.Status = domain.JobStatusDraft
	})

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		_, err := svc.SubmitApplication(ctx, ApplicationSubmission{
			JobID:     active.ID,
			Name:      "Applicant",
			Email:     email,
			ResumeURL: "http://example.com/resume.pdf",
		})
		require.NoError(t, err)
	}
	a, err := svc.ListApplicants(ctx, active.ID)
	require.NoError(t, err)
	require.NoError(t, svc.UpdateApplicantStatus(ctx, a[0].ID, domain.ApplicantStatusHired, nil, "tester"))

	stats, err := svc.DashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalJobs)
	assert.Equal(t, 1, stats.ActiveJobs)
	assert.Equal(t, 3, stats.TotalApplicants)
	assert.Equal(t, 2, stats.PendingApplications)
	assert.Len(t, stats.RecentApplications, 3)
}

func TestDashboardStatsZeroOnFailure(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	mustCreateJob(t, svc, nil)
	// Break one of the three reads; the aggregate must come back zero,
	// never partial.
	_, err := conn.Exec(`DROP TABLE applicants`)
	require.NoError(t, err)

	stats, err := svc.DashboardStats(ctx)
	assert.Error(t, err)
	assert.Equal(t, domain.DashboardStats{}, stats)
}

func TestEventsAreRecorded(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	j := mustCreateJob(t, svc, nil)
	status := domain.JobStatusClosed
	require.NoError(t, svc.UpdateJobPosting(ctx, j.ID, repo.JobPatch{Status: &status}, "tester"))

	events, err := svc.Repo.LatestEvents(ctx, 10, "", "job_posting", j.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "job.updated", events[0].Type)
	assert.Equal(t, "job.created", events[1].Type)
	assert.Equal(t, "tester", events[0].ActorID)
}

func fixedClock(rfc3339 string) func() time.Time {
	ts, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}
