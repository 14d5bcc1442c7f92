package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"careerdesk/internal/config"
	"careerdesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const jobColumns = `id,title,department,location,experience,type,COALESCE(salary,'') AS salary,description,responsibilities,requirements,deadline,status,is_visible,created_at,updated_at`

func scanJob(scan func(dest ...any) error) (domain.JobPosting, error) {
	var j domain.JobPosting
	err := scan(&j.ID, &j.Title, &j.Department, &j.Location, &j.Experience, &j.Type, &j.Salary,
		&j.Description, &j.Responsibilities, &j.Requirements, &j.Deadline, &j.Status, &j.IsVisible,
		&j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return j, ErrNotFound
	}
	return j, err
}

func (r Repo) InsertJobPosting(ctx context.Context, tx *sql.Tx, j domain.JobPosting) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO job_postings(id,title,department,location,experience,type,salary,description,responsibilities,requirements,deadline,status,is_visible,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		j.ID, j.Title, j.Department, j.Location, j.Experience, j.Type, nullable(j.Salary),
		j.Description, j.Responsibilities, j.Requirements, j.Deadline, j.Status, j.IsVisible,
		j.CreatedAt, j.UpdatedAt)
	return err
}

func (r Repo) GetJobPosting(ctx context.Context, id string) (domain.JobPosting, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM job_postings WHERE id=?`, id)
	return scanJob(row.Scan)
}

// ListJobPostings returns postings newest-created first with applicant counts
// attached. When includeHidden is false the public-listing gate (Active AND
// visible) is applied in the query, never client-side.
func (r Repo) ListJobPostings(ctx context.Context, includeHidden bool) ([]domain.JobPosting, error) {
	query := `SELECT j.id,j.title,j.department,j.location,j.experience,j.type,COALESCE(j.salary,'') AS salary,
j.description,j.responsibilities,j.requirements,j.deadline,j.status,j.is_visible,j.created_at,j.updated_at,
(SELECT COUNT(*) FROM applicants a WHERE a.job_id=j.id) AS applicant_count
FROM job_postings j`
	if !includeHidden {
		query += ` WHERE j.is_visible=1 AND j.status='Active'`
	}
	query += ` ORDER BY j.created_at DESC, j.id DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.JobPosting
	for rows.Next() {
		var j domain.JobPosting
		if err := rows.Scan(&j.ID, &j.Title, &j.Department, &j.Location, &j.Experience, &j.Type, &j.Salary,
			&j.Description, &j.Responsibilities, &j.Requirements, &j.Deadline, &j.Status, &j.IsVisible,
			&j.CreatedAt, &j.UpdatedAt, &j.ApplicantCount); err != nil {
			return nil, err
		}
		res = append(res, j)
	}
	return res, rows.Err()
}

// JobPatch carries a partial update; nil fields are left untouched.
type JobPatch struct {
	Title            *string
	Department       *string
	Location         *string
	Experience       *string
	Type             *string
	Salary           *string
	Description      *string
	Responsibilities *string
	Requirements     *string
	Deadline         *string
	Status           *string
	IsVisible        *bool
}

// UpdateJobPosting applies a partial update and always stamps updated_at.
func (r Repo) UpdateJobPosting(ctx context.Context, tx *sql.Tx, id string, p JobPatch, now string) error {
	fields := []string{"updated_at=?"}
	args := []any{now}
	set := func(col string, v *string) {
		if v != nil {
			fields = append(fields, col+"=?")
			args = append(args, *v)
		}
	}
	set("title", p.Title)
	set("department", p.Department)
	set("location", p.Location)
	set("experience", p.Experience)
	set("type", p.Type)
	if p.Salary != nil {
		fields = append(fields, "salary=?")
		args = append(args, nullable(*p.Salary))
	}
	set("description", p.Description)
	set("responsibilities", p.Responsibilities)
	set("requirements", p.Requirements)
	set("deadline", p.Deadline)
	set("status", p.Status)
	if p.IsVisible != nil {
		fields = append(fields, "is_visible=?")
		args = append(args, *p.IsVisible)
	}
	args = append(args, id)
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE job_postings SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteJobPosting(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM job_postings WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountJobsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM job_postings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

const applicantColumns = `id,job_id,name,email,phone,resume_url,cover_letter,status,notes,applied_at,updated_at`

func scanApplicant(scan func(dest ...any) error) (domain.Applicant, error) {
	var a domain.Applicant
	var phone, coverLetter, notes sql.NullString
	err := scan(&a.ID, &a.JobID, &a.Name, &a.Email, &phone, &a.ResumeURL, &coverLetter, &a.Status, &notes, &a.AppliedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if phone.Valid {
		a.Phone = &phone.String
	}
	if coverLetter.Valid {
		a.CoverLetter = &coverLetter.String
	}
	if notes.Valid {
		a.Notes = &notes.String
	}
	return a, nil
}

func (r Repo) InsertApplicant(ctx context.Context, tx *sql.Tx, a domain.Applicant) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO applicants(id,job_id,name,email,phone,resume_url,cover_letter,status,notes,applied_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.JobID, a.Name, a.Email, nullableStringPtr(a.Phone), a.ResumeURL,
		nullableStringPtr(a.CoverLetter), a.Status, nullableStringPtr(a.Notes), a.AppliedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetApplicant(ctx context.Context, id string) (domain.Applicant, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+applicantColumns+` FROM applicants WHERE id=?`, id)
	return scanApplicant(row.Scan)
}

// ListApplicants returns applicants newest-applied first, optionally filtered
// by job. A zero limit means no limit.
func (r Repo) ListApplicants(ctx context.Context, jobID string, limit int) ([]domain.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants`
	var args []any
	if jobID != "" {
		query += ` WHERE job_id=?`
		args = append(args, jobID)
	}
	query += ` ORDER BY applied_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// UpdateApplicantStatus sets status (and optionally notes) and stamps updated_at.
func (r Repo) UpdateApplicantStatus(ctx context.Context, tx *sql.Tx, id, status string, notes *string, now string) error {
	query := `UPDATE applicants SET status=?, updated_at=?`
	args := []any{status, now}
	if notes != nil {
		query += `, notes=?`
		args = append(args, nullable(*notes))
	}
	query += ` WHERE id=?`
	args = append(args, id)
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountApplicantsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM applicants GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

// UpsertSiteConfig stores the validated site config as JSON, single row.
func (r Repo) UpsertSiteConfig(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.DB.ExecContext(ctx, `INSERT INTO site_configs(id,config_json,created_at,updated_at) VALUES (1,?,?,?)
ON CONFLICT(id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, string(payload), now, now)
	return err
}

func (r Repo) GetSiteConfig(ctx context.Context) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM site_configs WHERE id=1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	return &cfg, cfg.Validate()
}

// LatestEvents returns audit events newest first, optionally filtered.
func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if limit <= 0 {
		limit = 50
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var entity sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entity, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		if entity.Valid {
			e.EntityID = entity.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}
