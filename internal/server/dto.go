package server

import (
	"careerdesk/internal/career"
	"careerdesk/internal/domain"
	"careerdesk/internal/repo"
)

// Request payloads

type CreateJobRequest struct {
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
	IsVisible        *bool  `json:"is_visible,omitempty"`
}

func (r CreateJobRequest) draft() career.JobDraft {
	return career.JobDraft{
		Title:            r.Title,
		Department:       r.Department,
		Location:         r.Location,
		Experience:       r.Experience,
		Type:             r.Type,
		Salary:           r.Salary,
		Description:      r.Description,
		Responsibilities: r.Responsibilities,
		Requirements:     r.Requirements,
		Deadline:         r.Deadline,
		Status:           r.Status,
		IsVisible:        r.IsVisible,
	}
}

type UpdateJobRequest struct {
	Title            *string `json:"title,omitempty"`
	Department       *string `json:"department,omitempty"`
	Location         *string `json:"location,omitempty"`
	Experience       *string `json:"experience,omitempty"`
	Type             *string `json:"type,omitempty" enum:"Full-time,Part-time,Internship,Freelance"`
	Salary           *string `json:"salary,omitempty"`
	Description      *string `json:"description,omitempty"`
	Responsibilities *string `json:"responsibilities,omitempty"`
	Requirements     *string `json:"requirements,omitempty"`
	Deadline         *string `json:"deadline,omitempty" format:"date"`
	Status           *string `json:"status,omitempty" enum:"Active,Draft,Closed"`
	IsVisible        *bool   `json:"is_visible,omitempty"`
}

func (r UpdateJobRequest) patch() repo.JobPatch {
	return repo.JobPatch{
		Title:            r.Title,
		Department:       r.Department,
		Location:         r.Location,
		Experience:       r.Experience,
		Type:             r.Type,
		Salary:           r.Salary,
		Description:      r.Description,
		Responsibilities: r.Responsibilities,
		Requirements:     r.Requirements,
		Deadline:         r.Deadline,
		Status:           r.Status,
		IsVisible:        r.IsVisible,
	}
}

type UpdateApplicantStatusRequest struct {
	Status string  `json:"status" enum:"Applied,Shortlisted,Interviewed,Hired,Rejected"`
	Notes  *string `json:"notes,omitempty"`
}

type SignInRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty" enum:"Admin,Recruiter"`
}

type ResetPasswordRequest struct {
	Email string `json:"email" format:"email"`
}

type CompleteResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Response payloads

type SessionResponse struct {
	User      domain.AuthUser `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt string          `json:"expires_at" format:"date-time"`
}

type jobList struct {
	Items []domain.JobPosting `json:"items"`
}

type applicantList struct {
	Items []domain.Applicant `json:"items"`
}

type eventList struct {
	Items []domain.Event `json:"items"`
}

func nonNilJobs(in []domain.JobPosting) []domain.JobPosting {
	if in == nil {
		return []domain.JobPosting{}
	}
	return in
}

func nonNilApplicants(in []domain.Applicant) []domain.Applicant {
	if in == nil {
		return []domain.Applicant{}
	}
	return in
}

func nonNilEvents(in []domain.Event) []domain.Event {
	if in == nil {
		return []domain.Event{}
	}
	return in
}
