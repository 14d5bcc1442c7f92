package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"careerdesk/internal/auth"
	"careerdesk/internal/career"
	"careerdesk/internal/domain"
	"careerdesk/internal/repo"
	"careerdesk/internal/storage"
)

// Config for the HTTP API handler.
type Config struct {
	Career   career.Service
	Sessions auth.Service
	BasePath string
	FilesDir string
	Logger   *log.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"job posting not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

const maxMultipartMemory = 10 << 20

// New returns an HTTP handler exposing the CareerDesk API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Sessions, cfg.Career.Repo, logger))
	hcfg := huma.DefaultConfig("CareerDesk API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerCareers(group, cfg.Career)
	registerApply(router, basePath, cfg.Career)
	registerAuth(group, cfg.Sessions)
	registerAdminJobs(group, cfg.Career)
	registerAdminApplicants(group, cfg.Career)
	registerAdminStats(group, cfg.Career)
	registerAdminEvents(group, cfg.Career)
	registerFiles(router, cfg.FilesDir)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe career.FieldErrors
	if errors.As(err, &fe) {
		details := make(map[string]any, len(fe))
		for field, reason := range fe {
			details[field] = reason
		}
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), details)
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return newAPIError(http.StatusUnauthorized, "invalid_credentials", err.Error(), nil)
	case errors.Is(err, auth.ErrProfileMissing):
		return newAPIError(http.StatusUnauthorized, "profile_missing", err.Error(), nil)
	case errors.Is(err, auth.ErrEmailTaken):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, storage.ErrFileTooLarge):
		return newAPIError(http.StatusBadRequest, "file_too_large", err.Error(), nil)
	case errors.Is(err, storage.ErrExtensionNotAllowed):
		return newAPIError(http.StatusBadRequest, "extension_not_allowed", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "expired"):
		return newAPIError(http.StatusBadRequest, "token_expired", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

// registerCareers exposes the public, unauthenticated careers surface. Only
// publicly listed postings (Active and visible) ever leave these endpoints;
// the gate sits in the query, not here.
func registerCareers(api huma.API, svc career.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-public-jobs",
		Method:      http.MethodGet,
		Path:        "/careers/jobs",
		Summary:     "List open positions",
	}, func(ctx context.Context, input *struct {
		Query    string `query:"q"`
		Type     string `query:"type"`
		Location string `query:"location"`
	}) (*struct {
		Body jobList `json:"body"`
	}, error) {
		jobs, err := svc.ListJobPostings(ctx, false)
		if err != nil {
			return nil, handleError(err)
		}
		jobs = career.FilterJobs(jobs, input.Query, input.Type, input.Location)
		return &struct {
			Body jobList `json:"body"`
		}{Body: jobList{Items: nonNilJobs(jobs)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-public-job",
		Method:      http.MethodGet,
		Path:        "/careers/jobs/{job_id}",
		Summary:     "Get an open position",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		JobID string `path:"job_id"`
	}) (*struct {
		Body domain.JobPosting `json:"body"`
	}, error) {
		j, err := svc.GetJobPosting(ctx, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		if !j.PubliclyListed() {
			return nil, newAPIError(http.StatusNotFound, "not_found", "job posting not found", nil)
		}
		return &struct {
			Body domain.JobPosting `json:"body"`
		}{Body: j}, nil
	})
}

// registerApply handles the multipart application form outside huma: the
// resume file is streamed straight into the object store rather than decoded
// into a schema.
func registerApply(router chi.Router, basePath string, svc career.Service) {
	router.Post(path.Join(basePath, "careers/apply"), func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "multipart form required", nil))
			return
		}
		file, header, err := r.FormFile("resume")
		if err != nil {
			respondStatusError(w, newAPIError(http.StatusBadRequest, "bad_request", "resume file is required", nil))
			return
		}
		defer file.Close()
		sub := career.ApplicationSubmission{
			JobID:       r.FormValue("job_id"),
			Name:        r.FormValue("name"),
			Email:       r.FormValue("email"),
			Phone:       r.FormValue("phone"),
			CoverLetter: r.FormValue("cover_letter"),
		}
		a, err := svc.Apply(r.Context(), sub, header.Filename, file)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(a)
	})
}

func registerAuth(api huma.API, sessions auth.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "sign-in",
		Method:      http.MethodPost,
		Path:        "/auth/signin",
		Summary:     "Sign in",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body SignInRequest `json:"body"`
	}) (*struct {
		Body SessionResponse `json:"body"`
	}, error) {
		session, err := sessions.SignIn(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SessionResponse `json:"body"`
		}{Body: SessionResponse{
			User:      session.User,
			Token:     session.Token,
			ExpiresAt: session.ExpiresAt,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "sign-up",
		Method:        http.MethodPost,
		Path:          "/auth/signup",
		Summary:       "Register an admin user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body SignUpRequest `json:"body"`
	}) (*struct {
		Body domain.AuthUser `json:"body"`
	}, error) {
		user, err := sessions.SignUp(ctx, input.Body.Email, input.Body.Password, input.Body.Name, input.Body.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AuthUser `json:"body"`
		}{Body: user}, nil
	})

	// Sessions are stateless signed tokens; sign-out is client-side disposal.
	huma.Register(api, huma.Operation{
		OperationID: "sign-out",
		Method:      http.MethodPost,
		Path:        "/auth/signout",
		Summary:     "Sign out",
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-password",
		Method:      http.MethodPost,
		Path:        "/auth/reset-password",
		Summary:     "Request a password reset",
	}, func(ctx context.Context, input *struct {
		Body ResetPasswordRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		// Always answers ok so the endpoint does not leak which
		// addresses are registered.
		if _, err := sessions.ResetPassword(ctx, input.Body.Email); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-password-reset",
		Method:      http.MethodPost,
		Path:        "/auth/complete-reset",
		Summary:     "Complete a password reset",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CompleteResetRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := sessions.CompleteReset(ctx, input.Body.Token, input.Body.Password); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/auth/me",
		Summary:     "Current user",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.AuthUser `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body domain.AuthUser `json:"body"`
		}{Body: domain.AuthUser{ID: p.UserID, Email: p.Email, Name: p.Name, Role: p.Role}}, nil
	})
}

func registerAdminJobs(api huma.API, svc career.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-list-jobs",
		Method:      http.MethodGet,
		Path:        "/admin/jobs",
		Summary:     "List all job postings",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Query    string `query:"q"`
		Type     string `query:"type"`
		Location string `query:"location"`
	}) (*struct {
		Body jobList `json:"body"`
	}, error) {
		jobs, err := svc.ListJobPostings(ctx, true)
		if err != nil {
			return nil, handleError(err)
		}
		jobs = career.FilterJobs(jobs, input.Query, input.Type, input.Location)
		return &struct {
			Body jobList `json:"body"`
		}{Body: jobList{Items: nonNilJobs(jobs)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "admin-create-job",
		Method:        http.MethodPost,
		Path:          "/admin/jobs",
		Summary:       "Create job posting",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateJobRequest `json:"body"`
	}) (*struct {
		Body domain.JobPosting `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		j, err := svc.CreateJobPosting(ctx, input.Body.draft(), p.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.JobPosting `json:"body"`
		}{Body: j}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-get-job",
		Method:      http.MethodGet,
		Path:        "/admin/jobs/{job_id}",
		Summary:     "Get job posting",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		JobID string `path:"job_id"`
	}) (*struct {
		Body domain.JobPosting `json:"body"`
	}, error) {
		j, err := svc.GetJobPosting(ctx, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.JobPosting `json:"body"`
		}{Body: j}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-update-job",
		Method:      http.MethodPatch,
		Path:        "/admin/jobs/{job_id}",
		Summary:     "Update job posting",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		JobID string           `path:"job_id"`
		Body  UpdateJobRequest `json:"body"`
	}) (*struct {
		Body domain.JobPosting `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := svc.UpdateJobPosting(ctx, input.JobID, input.Body.patch(), p.UserID); err != nil {
			return nil, handleError(err)
		}
		j, err := svc.GetJobPosting(ctx, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.JobPosting `json:"body"`
		}{Body: j}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-delete-job",
		Method:      http.MethodDelete,
		Path:        "/admin/jobs/{job_id}",
		Summary:     "Delete job posting",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		JobID string `path:"job_id"`
	}) (*struct{}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := svc.DeleteJobPosting(ctx, input.JobID, p.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAdminApplicants(api huma.API, svc career.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-list-applicants",
		Method:      http.MethodGet,
		Path:        "/admin/applicants",
		Summary:     "List applicants",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		JobID  string `query:"job_id"`
		Query  string `query:"q"`
		Status string `query:"status"`
	}) (*struct {
		Body applicantList `json:"body"`
	}, error) {
		apps, err := svc.ListApplicants(ctx, "")
		if err != nil {
			return nil, handleError(err)
		}
		apps = career.FilterApplicants(apps, input.Query, input.Status, input.JobID)
		return &struct {
			Body applicantList `json:"body"`
		}{Body: applicantList{Items: nonNilApplicants(apps)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "admin-update-applicant-status",
		Method:      http.MethodPatch,
		Path:        "/admin/applicants/{applicant_id}/status",
		Summary:     "Update applicant status",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ApplicantID string                       `path:"applicant_id"`
		Body        UpdateApplicantStatusRequest `json:"body"`
	}) (*struct {
		Body domain.Applicant `json:"body"`
	}, error) {
		p, authErr := requirePrincipal(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := svc.UpdateApplicantStatus(ctx, input.ApplicantID, input.Body.Status, input.Body.Notes, p.UserID); err != nil {
			return nil, handleError(err)
		}
		a, err := svc.Repo.GetApplicant(ctx, input.ApplicantID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Applicant `json:"body"`
		}{Body: a}, nil
	})
}

func registerAdminStats(api huma.API, svc career.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-stats",
		Method:      http.MethodGet,
		Path:        "/admin/stats",
		Summary:     "Dashboard statistics",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.DashboardStats `json:"body"`
	}, error) {
		stats, err := svc.DashboardStats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if stats.RecentApplications == nil {
			stats.RecentApplications = []domain.Applicant{}
		}
		return &struct {
			Body domain.DashboardStats `json:"body"`
		}{Body: stats}, nil
	})
}

func registerAdminEvents(api huma.API, svc career.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "admin-events",
		Method:      http.MethodGet,
		Path:        "/admin/events",
		Summary:     "Audit log",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit      int    `query:"limit" default:"50"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
	}) (*struct {
		Body eventList `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		evts, err := svc.Repo.LatestEvents(ctx, limit, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body eventList `json:"body"`
		}{Body: eventList{Items: nonNilEvents(evts)}}, nil
	})
}

// registerFiles serves the resume bucket. Object names are opaque random
// tokens, so listing is disabled but direct fetches work.
func registerFiles(router chi.Router, dir string) {
	if dir == "" {
		return
	}
	fs := http.StripPrefix("/files/", http.FileServer(http.Dir(dir)))
	router.Get("/files/*", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	adminPrefix := path.Join(basePath, "admin")
	mePath := path.Join(basePath, "auth/me")
	for route, item := range oas.Paths {
		protected := strings.HasPrefix(route, adminPrefix) || route == mePath
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if protected {
				op.Security = security
			} else {
				op.Security = []map[string][]string{}
			}
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>CareerDesk API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Admin endpoints authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}
