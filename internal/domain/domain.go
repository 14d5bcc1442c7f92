package domain

// Job posting lifecycle status and public visibility are independent axes:
// a posting is publicly listed only when Status is Active AND IsVisible is set.

const (
	JobStatusActive = "Active"
	JobStatusDraft  = "Draft"
	JobStatusClosed = "Closed"
)

const (
	JobTypeFullTime   = "Full-time"
	JobTypePartTime   = "Part-time"
	JobTypeInternship = "Internship"
	JobTypeFreelance  = "Freelance"
)

const (
	ApplicantStatusApplied     = "Applied"
	ApplicantStatusShortlisted = "Shortlisted"
	ApplicantStatusInterviewed = "Interviewed"
	ApplicantStatusHired       = "Hired"
	ApplicantStatusRejected    = "Rejected"
)

const (
	RoleAdmin     = "Admin"
	RoleRecruiter = "Recruiter"
)

var JobStatuses = []string{JobStatusActive, JobStatusDraft, JobStatusClosed}

var JobTypes = []string{JobTypeFullTime, JobTypePartTime, JobTypeInternship, JobTypeFreelance}

var ApplicantStatuses = []string{
	ApplicantStatusApplied,
	ApplicantStatusShortlisted,
	ApplicantStatusInterviewed,
	ApplicantStatusHired,
	ApplicantStatusRejected,
}

var Roles = []string{RoleAdmin, RoleRecruiter}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func ValidJobStatus(s string) bool       { return contains(JobStatuses, s) }
func ValidJobType(s string) bool         { return contains(JobTypes, s) }
func ValidApplicantStatus(s string) bool { return contains(ApplicantStatuses, s) }
func ValidRole(s string) bool            { return contains(Roles, s) }

type JobPosting struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Department       string `json:"department"`
	Location         string `json:"location"`
	Experience       string `json:"experience"`
	Type             string `json:"type" enum:"Full-time,Part-time,Internship,Freelance"`
	Salary           string `json:"salary,omitempty"`
	Description      string `json:"description"`
	Responsibilities string `json:"responsibilities"`
	Requirements     string `json:"requirements"`
	Deadline         string `json:"deadline" format:"date"`
	Status           string `json:"status" enum:"Active,Draft,Closed"`
	IsVisible        bool   `json:"is_visible"`
	CreatedAt        string `json:"created_at" format:"date-time"`
	UpdatedAt        string `json:"updated_at" format:"date-time"`
	// ApplicantCount is computed at read time; zero when not requested.
	ApplicantCount int `json:"applicant_count,omitempty"`
}

// PubliclyListed reports whether the posting satisfies both public-listing gates.
func (j JobPosting) PubliclyListed() bool {
	return j.Status == JobStatusActive && j.IsVisible
}

type Applicant struct {
	ID          string  `json:"id"`
	JobID       string  `json:"job_id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Phone       *string `json:"phone,omitempty"`
	ResumeURL   string  `json:"resume_url"`
	CoverLetter *string `json:"cover_letter,omitempty"`
	Status      string  `json:"status" enum:"Applied,Shortlisted,Interviewed,Hired,Rejected"`
	Notes       *string `json:"notes,omitempty"`
	AppliedAt   string  `json:"applied_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

// AuthUser is the session identity handed out by the auth service. It joins an
// auth_identities row with its admin_users profile; both must exist.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role" enum:"Admin,Recruiter"`
}

// DashboardStats is a read-time projection; it has no independent lifecycle.
type DashboardStats struct {
	TotalJobs           int         `json:"total_jobs"`
	ActiveJobs          int         `json:"active_jobs"`
	TotalApplicants     int         `json:"total_applicants"`
	PendingApplications int         `json:"pending_applications"`
	RecentApplications  []Applicant `json:"recent_applications"`
}

type APIKey struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
