package career

import (
	"strings"

	"careerdesk/internal/domain"
)

// In-memory filters over fully fetched lists. The contract is deliberately
// client-side: lists are fetched once and narrowed here, never re-queried.
// Each filter is a pure conjunction, so application order does not matter and
// re-applying an already-applied filter set is a no-op.

// FilterAll matches every value of a filter dimension.
const FilterAll = "all"

func matchesAll(v string) bool {
	return v == "" || strings.EqualFold(v, FilterAll)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// FilterJobs narrows a job list by free-text query (title or department,
// case-insensitive substring), exact type, and location substring.
func FilterJobs(jobs []domain.JobPosting, query, jobType, location string) []domain.JobPosting {
	res := make([]domain.JobPosting, 0, len(jobs))
	for _, j := range jobs {
		if query != "" && !containsFold(j.Title, query) && !containsFold(j.Department, query) {
			continue
		}
		if !matchesAll(jobType) && j.Type != jobType {
			continue
		}
		if !matchesAll(location) && !containsFold(j.Location, location) {
			continue
		}
		res = append(res, j)
	}
	return res
}

// FilterApplicants narrows an applicant list by free-text query (name or
// email, case-insensitive substring), exact status, and exact job reference.
func FilterApplicants(apps []domain.Applicant, query, status, jobID string) []domain.Applicant {
	res := make([]domain.Applicant, 0, len(apps))
	for _, a := range apps {
		if query != "" && !containsFold(a.Name, query) && !containsFold(a.Email, query) {
			continue
		}
		if !matchesAll(status) && a.Status != status {
			continue
		}
		if !matchesAll(jobID) && a.JobID != jobID {
			continue
		}
		res = append(res, a)
	}
	return res
}
