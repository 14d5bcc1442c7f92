package career

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"careerdesk/internal/config"
	"careerdesk/internal/domain"
	"careerdesk/internal/events"
	"careerdesk/internal/repo"
	"careerdesk/internal/storage"
)

// Service is the sole mediator between callers and the store: it owns the job
// posting lifecycle, application intake, and the dashboard projection. Callers
// never touch repo rows directly.
type Service struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Files  storage.Store
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, files storage.Store) Service {
	return Service{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Files:  files,
		Config: cfg,
		Now:    time.Now,
	}
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ListJobPostings returns postings newest first. With includeHidden false only
// publicly listed postings (Active AND visible) are returned; the gate is
// applied at the query, not in memory.
func (s Service) ListJobPostings(ctx context.Context, includeHidden bool) ([]domain.JobPosting, error) {
	return s.Repo.ListJobPostings(ctx, includeHidden)
}

// GetJobPosting returns repo.ErrNotFound when the posting does not exist,
// distinguishable from store failures.
func (s Service) GetJobPosting(ctx context.Context, id string) (domain.JobPosting, error) {
	return s.Repo.GetJobPosting(ctx, id)
}

// CreateJobPosting validates the draft, assigns id and timestamps, and stores
// the posting. Visibility defaults to true unless the draft says otherwise.
func (s Service) CreateJobPosting(ctx context.Context, draft JobDraft, actorID string) (domain.JobPosting, error) {
	if errs := ValidateJobDraft(draft); len(errs) > 0 {
		return domain.JobPosting{}, errs
	}
	now := s.now().UTC().Format(time.RFC3339)
	visible := true
	if draft.IsVisible != nil {
		visible = *draft.IsVisible
	}
	j := domain.JobPosting{
		ID:               uuid.NewString(),
		Title:            draft.Title,
		Department:       draft.Department,
		Location:         draft.Location,
		Experience:       draft.Experience,
		Type:             draft.Type,
		Salary:           draft.Salary,
		Description:      draft.Description,
		Responsibilities: draft.Responsibilities,
		Requirements:     draft.Requirements,
		Deadline:         draft.Deadline,
		Status:           draft.Status,
		IsVisible:        visible,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.JobPosting{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertJobPosting(ctx, tx, j); err != nil {
		return domain.JobPosting{}, fmt.Errorf("insert job posting: %w", err)
	}
	if err := s.Events.Append(ctx, tx, "job.created", "job_posting", j.ID, actorID, events.EventPayload{
		"title":  j.Title,
		"status": j.Status,
	}); err != nil {
		return domain.JobPosting{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.JobPosting{}, err
	}
	return j, nil
}

// UpdateJobPosting applies a partial update. updated_at is always stamped,
// even for an empty patch.
func (s Service) UpdateJobPosting(ctx context.Context, id string, patch repo.JobPatch, actorID string) error {
	if errs := validateJobPatch(patch); len(errs) > 0 {
		return errs
	}
	now := s.now().UTC().Format(time.RFC3339)
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.Repo.UpdateJobPosting(ctx, tx, id, patch, now); err != nil {
		return err
	}
	payload := events.EventPayload{}
	if patch.Status != nil {
		payload["status"] = *patch.Status
	}
	if patch.IsVisible != nil {
		payload["is_visible"] = *patch.IsVisible
	}
	if err := s.Events.Append(ctx, tx, "job.updated", "job_posting", id, actorID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteJobPosting hard-deletes the posting. Applicant rows are left in place.
func (s Service) DeleteJobPosting(ctx context.Context, id, actorID string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.Repo.DeleteJobPosting(ctx, tx, id); err != nil {
		return err
	}
	if err := s.Events.Append(ctx, tx, "job.deleted", "job_posting", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// ListApplicants returns applicants newest-applied first, optionally filtered
// by job.
func (s Service) ListApplicants(ctx context.Context, jobID string) ([]domain.Applicant, error) {
	return s.Repo.ListApplicants(ctx, jobID, 0)
}

// UpdateApplicantStatus moves an applicant through the triage progression and
// stamps updated_at.
func (s Service) UpdateApplicantStatus(ctx context.Context, id, status string, notes *string, actorID string) error {
	if !domain.ValidApplicantStatus(status) {
		return FieldErrors{"status": fmt.Sprintf("must be one of %v", domain.ApplicantStatuses)}
	}
	now := s.now().UTC().Format(time.RFC3339)
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.Repo.UpdateApplicantStatus(ctx, tx, id, status, notes, now); err != nil {
		return err
	}
	if err := s.Events.Append(ctx, tx, "applicant.status_changed", "applicant", id, actorID, events.EventPayload{
		"status": status,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplicationSubmission carries the public application form fields. Any status
// supplied by the caller is ignored; stored status is always Applied.
type ApplicationSubmission struct {
	JobID       string
	Name        string
	Email       string
	Phone       string
	ResumeURL   string
	CoverLetter string
}

func (s Service) validateSubmission(ctx context.Context, sub ApplicationSubmission) error {
	errs := FieldErrors{}
	if sub.JobID == "" {
		errs["job_id"] = "is required"
	}
	if sub.Name == "" {
		errs["name"] = "is required"
	}
	if sub.Email == "" {
		errs["email"] = "is required"
	}
	if sub.ResumeURL == "" {
		errs["resume_url"] = "is required"
	}
	if len(errs) > 0 {
		return errs
	}
	if _, err := s.Repo.GetJobPosting(ctx, sub.JobID); err != nil {
		return err
	}
	return nil
}

// SubmitApplication stores a new applicant with status forced to Applied.
func (s Service) SubmitApplication(ctx context.Context, sub ApplicationSubmission) (domain.Applicant, error) {
	if err := s.validateSubmission(ctx, sub); err != nil {
		return domain.Applicant{}, err
	}
	now := s.now().UTC().Format(time.RFC3339)
	a := domain.Applicant{
		ID:        uuid.NewString(),
		JobID:     sub.JobID,
		Name:      sub.Name,
		Email:     sub.Email,
		ResumeURL: sub.ResumeURL,
		Status:    domain.ApplicantStatusApplied,
		AppliedAt: now,
		UpdatedAt: now,
	}
	if sub.Phone != "" {
		a.Phone = &sub.Phone
	}
	if sub.CoverLetter != "" {
		a.CoverLetter = &sub.CoverLetter
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Applicant{}, err
	}
	defer tx.Rollback()
	if err := s.Repo.InsertApplicant(ctx, tx, a); err != nil {
		return domain.Applicant{}, fmt.Errorf("insert applicant: %w", err)
	}
	if err := s.Events.Append(ctx, tx, "applicant.submitted", "applicant", a.ID, a.Email, events.EventPayload{
		"job_id": a.JobID,
	}); err != nil {
		return domain.Applicant{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Applicant{}, err
	}
	return a, nil
}

// Apply uploads the resume and then submits the application. The two steps are
// sequential round trips with no shared transaction; if the insert fails the
// uploaded file is removed so no orphan object remains.
func (s Service) Apply(ctx context.Context, sub ApplicationSubmission, resumeName string, resume io.Reader) (domain.Applicant, error) {
	url, err := s.Files.Save(resumeName, resume)
	if err != nil {
		return domain.Applicant{}, fmt.Errorf("upload resume: %w", err)
	}
	sub.ResumeURL = url
	a, err := s.SubmitApplication(ctx, sub)
	if err != nil {
		if delErr := s.Files.Delete(url); delErr != nil {
			return domain.Applicant{}, errors.Join(err, fmt.Errorf("remove uploaded resume: %w", delErr))
		}
		return domain.Applicant{}, err
	}
	return a, nil
}

// DashboardStats issues its three reads concurrently and combines them. Any
// individual failure yields the zero stats value, never a partial aggregate.
func (s Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var (
		jobCounts map[string]int
		appCounts map[string]int
		recent    []domain.Applicant
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobCounts, err = s.Repo.CountJobsByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		appCounts, err = s.Repo.CountApplicantsByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.Repo.ListApplicants(gctx, "", 5)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardStats{}, err
	}
	stats := domain.DashboardStats{
		ActiveJobs:          jobCounts[domain.JobStatusActive],
		PendingApplications: appCounts[domain.ApplicantStatusApplied],
		RecentApplications:  recent,
	}
	for _, n := range jobCounts {
		stats.TotalJobs += n
	}
	for _, n := range appCounts {
		stats.TotalApplicants += n
	}
	return stats, nil
}
