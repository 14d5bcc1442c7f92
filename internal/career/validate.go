package career

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"careerdesk/internal/domain"
	"careerdesk/internal/repo"
)

// FieldErrors maps a field name to its validation message. A non-empty map
// blocks submission entirely; there is no partial submission.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// JobDraft is the job-posting form payload, validated before any store call.
type JobDraft struct {
	Title            string
	Department       string
	Location         string
	Experience       string
	Type             string
	Salary           string
	Description      string
	Responsibilities string
	Requirements     string
	Deadline         string
	Status           string
	IsVisible        *bool
}

const deadlineLayout = "2006-01-02"

// ValidateJobDraft checks the required-field schema: every field except salary
// and is_visible must be present, type and status must be enum members, and
// the deadline must be a date.
func ValidateJobDraft(d JobDraft) FieldErrors {
	errs := FieldErrors{}
	required := map[string]string{
		"title":            d.Title,
		"department":       d.Department,
		"location":         d.Location,
		"experience":       d.Experience,
		"description":      d.Description,
		"responsibilities": d.Responsibilities,
		"requirements":     d.Requirements,
		"deadline":         d.Deadline,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			errs[field] = "is required"
		}
	}
	if d.Type == "" {
		errs["type"] = "is required"
	} else if !domain.ValidJobType(d.Type) {
		errs["type"] = fmt.Sprintf("must be one of %v", domain.JobTypes)
	}
	if d.Status == "" {
		errs["status"] = "is required"
	} else if !domain.ValidJobStatus(d.Status) {
		errs["status"] = fmt.Sprintf("must be one of %v", domain.JobStatuses)
	}
	if d.Deadline != "" {
		if _, err := time.Parse(deadlineLayout, d.Deadline); err != nil {
			errs["deadline"] = "must be a date in YYYY-MM-DD form"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validateJobPatch checks only the fields a partial update actually touches:
// required fields may not be blanked, and enum fields must stay members.
func validateJobPatch(p repo.JobPatch) FieldErrors {
	errs := FieldErrors{}
	nonEmpty := map[string]*string{
		"title":            p.Title,
		"department":       p.Department,
		"location":         p.Location,
		"experience":       p.Experience,
		"description":      p.Description,
		"responsibilities": p.Responsibilities,
		"requirements":     p.Requirements,
		"deadline":         p.Deadline,
	}
	for field, value := range nonEmpty {
		if value != nil && strings.TrimSpace(*value) == "" {
			errs[field] = "cannot be empty"
		}
	}
	if p.Type != nil && !domain.ValidJobType(*p.Type) {
		errs["type"] = fmt.Sprintf("must be one of %v", domain.JobTypes)
	}
	if p.Status != nil && !domain.ValidJobStatus(*p.Status) {
		errs["status"] = fmt.Sprintf("must be one of %v", domain.JobStatuses)
	}
	if p.Deadline != nil && *p.Deadline != "" {
		if _, err := time.Parse(deadlineLayout, *p.Deadline); err != nil {
			errs["deadline"] = "must be a date in YYYY-MM-DD form"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
