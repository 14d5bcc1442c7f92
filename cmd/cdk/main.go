package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"careerdesk/internal/app"
	"careerdesk/internal/auth"
	"careerdesk/internal/career"
	"careerdesk/internal/config"
	"careerdesk/internal/db"
	"careerdesk/internal/domain"
	"careerdesk/internal/migrate"
	"careerdesk/internal/repo"
	"careerdesk/internal/server"
	"careerdesk/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "cdk",
	Short: "CareerDesk CLI",
	Long: `CareerDesk runs a careers site and applicant tracking backend from a single
workspace directory:
- Workspace: your .careerdesk directory holding the database; uploaded resumes
  live in the configured bucket directory next to it.
- Job postings: public listings gated on status Active AND visibility; drafts
  and hidden postings only appear on the admin surface.
- Applicants: applications always enter as Applied, then move through
  Shortlisted, Interviewed, Hired, or Rejected.
- Users: admin/recruiter accounts; issue API keys with 'cdk user apikey'.
- Event log: diary of changes, view with 'cdk log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CAREERDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(jobCmd())
	rootCmd.AddCommand(applicantCmd())
	rootCmd.AddCommand(applyCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func jobCmd() *cobra.Command {
	job := &cobra.Command{Use: "job", Short: "Manage job postings"}
	job.AddCommand(jobListCmd())
	job.AddCommand(jobShowCmd())
	job.AddCommand(jobCreateCmd())
	job.AddCommand(jobUpdateCmd())
	job.AddCommand(jobDeleteCmd())
	return job
}

func jobListCmd() *cobra.Command {
	var publicOnly bool
	var query, jobType, location string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job postings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				jobs, err := svc.ListJobPostings(ctx, !publicOnly)
				if err != nil {
					return err
				}
				jobs = career.FilterJobs(jobs, query, jobType, location)
				if viper.GetBool("json") {
					return printJSON(jobs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Department", "Type", "Status", "Visible", "Applicants"})
				for _, j := range jobs {
					tw.AppendRow(table.Row{j.ID, j.Title, j.Department, j.Type, j.Status, j.IsVisible, j.ApplicantCount})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&publicOnly, "public", false, "only publicly listed postings")
	cmd.Flags().StringVar(&query, "search", "", "search title or department")
	cmd.Flags().StringVar(&jobType, "type", "", "filter by job type")
	cmd.Flags().StringVar(&location, "location", "", "filter by location")
	return cmd
}

func jobShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a job posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				j, err := svc.GetJobPosting(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(j)
			})
		},
	}
	return cmd
}

func jobCreateCmd() *cobra.Command {
	var draft career.JobDraft
	var hidden bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a job posting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hidden {
				visible := false
				draft.IsVisible = &visible
			}
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				j, err := svc.CreateJobPosting(ctx, draft, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(j)
			})
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "job title")
	cmd.Flags().StringVar(&draft.Department, "department", "", "department")
	cmd.Flags().StringVar(&draft.Location, "location", "", "location")
	cmd.Flags().StringVar(&draft.Experience, "experience", "", "experience requirement")
	cmd.Flags().StringVar(&draft.Type, "type", domain.JobTypeFullTime, "job type")
	cmd.Flags().StringVar(&draft.Salary, "salary", "", "salary range")
	cmd.Flags().StringVar(&draft.Description, "description", "", "description")
	cmd.Flags().StringVar(&draft.Responsibilities, "responsibilities", "", "responsibilities")
	cmd.Flags().StringVar(&draft.Requirements, "requirements", "", "requirements")
	cmd.Flags().StringVar(&draft.Deadline, "deadline", "", "application deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&draft.Status, "status", domain.JobStatusDraft, "posting status")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "create hidden from the public site")
	return cmd
}

func jobUpdateCmd() *cobra.Command {
	var title, department, location, experience, jobType, salary string
	var description, responsibilities, requirements, deadline, status string
	var visible bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a job posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch repo.JobPatch
			set := func(name string, dst **string, v *string) {
				if cmd.Flags().Changed(name) {
					*dst = v
				}
			}
			set("title", &patch.Title, &title)
			set("department", &patch.Department, &department)
			set("location", &patch.Location, &location)
			set("experience", &patch.Experience, &experience)
			set("type", &patch.Type, &jobType)
			set("salary", &patch.Salary, &salary)
			set("description", &patch.Description, &description)
			set("responsibilities", &patch.Responsibilities, &responsibilities)
			set("requirements", &patch.Requirements, &requirements)
			set("deadline", &patch.Deadline, &deadline)
			set("status", &patch.Status, &status)
			if cmd.Flags().Changed("visible") {
				patch.IsVisible = &visible
			}
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				if err := svc.UpdateJobPosting(ctx, args[0], patch, viper.GetString("actor-id")); err != nil {
					return err
				}
				j, err := svc.GetJobPosting(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(j)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "job title")
	cmd.Flags().StringVar(&department, "department", "", "department")
	cmd.Flags().StringVar(&location, "location", "", "location")
	cmd.Flags().StringVar(&experience, "experience", "", "experience requirement")
	cmd.Flags().StringVar(&jobType, "type", "", "job type")
	cmd.Flags().StringVar(&salary, "salary", "", "salary range")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&responsibilities, "responsibilities", "", "responsibilities")
	cmd.Flags().StringVar(&requirements, "requirements", "", "requirements")
	cmd.Flags().StringVar(&deadline, "deadline", "", "application deadline (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "posting status")
	cmd.Flags().BoolVar(&visible, "visible", true, "public visibility")
	return cmd
}

func jobDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				if err := svc.DeleteJobPosting(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	return cmd
}

func applicantCmd() *cobra.Command {
	applicant := &cobra.Command{Use: "applicant", Short: "Manage applicants"}
	applicant.AddCommand(applicantListCmd())
	applicant.AddCommand(applicantSetStatusCmd())
	return applicant
}

func applicantListCmd() *cobra.Command {
	var query, status, jobID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applicants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				apps, err := svc.ListApplicants(ctx, "")
				if err != nil {
					return err
				}
				apps = career.FilterApplicants(apps, query, status, jobID)
				if viper.GetBool("json") {
					return printJSON(apps)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Job", "Status", "Applied"})
				for _, a := range apps {
					tw.AppendRow(table.Row{a.ID, a.Name, a.Email, a.JobID, a.Status, a.AppliedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&query, "search", "", "search name or email")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().StringVar(&jobID, "job", "", "filter by job posting")
	return cmd
}

func applicantSetStatusCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Update an applicant's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				var notesPtr *string
				if cmd.Flags().Changed("notes") {
					notesPtr = &notes
				}
				if err := svc.UpdateApplicantStatus(ctx, args[0], args[1], notesPtr, viper.GetString("actor-id")); err != nil {
					return err
				}
				a, err := svc.Repo.GetApplicant(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "internal notes")
	return cmd
}

func applyCmd() *cobra.Command {
	var jobID, name, email, phone, coverLetter, resumePath string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Submit an application",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(resumePath)
			if err != nil {
				return fmt.Errorf("open resume: %w", err)
			}
			defer f.Close()
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				sub := career.ApplicationSubmission{
					JobID:       jobID,
					Name:        name,
					Email:       email,
					Phone:       phone,
					CoverLetter: coverLetter,
				}
				a, err := svc.Apply(ctx, sub, filepath.Base(resumePath), f)
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&jobID, "job", "", "job posting id")
	cmd.Flags().StringVar(&name, "name", "", "applicant name")
	cmd.Flags().StringVar(&email, "email", "", "applicant email")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&coverLetter, "cover-letter", "", "cover letter text")
	cmd.Flags().StringVar(&resumePath, "resume", "", "path to resume file")
	_ = cmd.MarkFlagRequired("job")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc career.Service) error {
				stats, err := svc.DashboardStats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(stats)
			})
		},
	}
	return cmd
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage admin users"}
	user.AddCommand(userCreateCmd())
	user.AddCommand(userAPIKeyCmd())
	user.AddCommand(userListCmd())
	return user
}

func userCreateCmd() *cobra.Command {
	var email, password, name, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd.Context(), func(ctx context.Context, sessions auth.Service) error {
				u, err := sessions.SignUp(ctx, email, password, name, role)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", domain.RoleRecruiter, "role (Admin or Recruiter)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func userListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				users, err := r.ListAdminUsers(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(users)
			})
		},
	}
	return cmd
}

func userAPIKeyCmd() *cobra.Command {
	var email, keyName string
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Issue an API key for a user",
		Long:  "Prints the plaintext key exactly once; only its hash is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				u, err := r.GetAdminUserByEmail(ctx, email)
				if err != nil {
					return err
				}
				raw := make([]byte, 24)
				if _, err := rand.Read(raw); err != nil {
					return err
				}
				plaintext := "cdk_" + hex.EncodeToString(raw)
				key := domain.APIKey{
					ID:        uuid.NewString(),
					UserID:    u.ID,
					Name:      keyName,
					KeyHash:   repo.HashAPIKey(plaintext),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "api_key": plaintext})
				}
				fmt.Println("api key:", plaintext)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&keyName, "name", "", "key label")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect site config",
		Long:  "Site config is stored in the DB and optionally imported from careerdesk.yml: site name, public base URL, resume storage limits, and token lifetimes.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configImportCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				cfg, err := app.ResolveSiteConfig(ctx, viper.GetString("workspace"), "", r)
				if err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var siteName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default careerdesk.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(siteName)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&siteName, "site-name", "CareerDesk", "site display name")
	return cmd
}

func configImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import config YAML into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(file)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.UpsertSiteConfig(ctx, cfg); err != nil {
					return err
				}
				fmt.Println("config imported")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "careerdesk.yml", "config file path")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: postings created and edited, applications received, status changes.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var limit int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, limit, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Entity", "ID", "Actor"})
				for _, e := range events {
					tw.AppendRow(table.Row{e.TS, e.Type, e.EntityKind, e.EntityID, e.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max events")
	cmd.Flags().StringVar(&evtType, "type", "", "filter by event type")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "filter by entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "filter by entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			jwtSecret := os.Getenv("CAREERDESK_JWT_SECRET")
			if jwtSecret == "" {
				return fmt.Errorf("CAREERDESK_JWT_SECRET is required for bearer auth")
			}
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			cfg, err := app.ResolveSiteConfig(cmd.Context(), workspace, "", r)
			if err != nil {
				return err
			}
			files := storageFromConfig(workspace, cfg)
			svc := career.New(conn, cfg, files)
			sessionTTL, err := cfg.SessionTTL()
			if err != nil {
				return err
			}
			resetTTL, err := cfg.ResetTokenTTL()
			if err != nil {
				return err
			}
			sessions := auth.Service{
				Repo:       r,
				JWTSecret:  jwtSecret,
				SessionTTL: sessionTTL,
				ResetTTL:   resetTTL,
			}
			handler, err := server.New(server.Config{
				Career:   svc,
				Sessions: sessions,
				BasePath: basePath,
				FilesDir: filepath.Join(workspace, cfg.Storage.Bucket),
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving CareerDesk API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func storageFromConfig(workspace string, cfg *config.Config) storage.Store {
	return storage.Store{
		Dir:         filepath.Join(workspace, cfg.Storage.Bucket),
		Prefix:      cfg.Storage.ResumePrefix,
		BaseURL:     strings.TrimRight(cfg.Site.PublicBaseURL, "/") + "/files",
		MaxBytes:    cfg.Storage.MaxUploadBytes,
		AllowedExts: cfg.Storage.AllowedExtensions,
	}
}

func withService(ctx context.Context, fn func(context.Context, career.Service) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	cfg, err := app.ResolveSiteConfig(ctx, workspace, "", r)
	if err != nil {
		return err
	}
	svc := career.New(conn, cfg, storageFromConfig(workspace, cfg))
	return fn(ctx, svc)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func withAuth(ctx context.Context, fn func(context.Context, auth.Service) error) error {
	return withRepo(ctx, func(ctx context.Context, r repo.Repo) error {
		cfg, err := app.ResolveSiteConfig(ctx, viper.GetString("workspace"), "", r)
		if err != nil {
			return err
		}
		sessionTTL, err := cfg.SessionTTL()
		if err != nil {
			return err
		}
		resetTTL, err := cfg.ResetTokenTTL()
		if err != nil {
			return err
		}
		sessions := auth.Service{
			Repo:       r,
			JWTSecret:  os.Getenv("CAREERDESK_JWT_SECRET"),
			SessionTTL: sessionTTL,
			ResetTTL:   resetTTL,
		}
		return fn(ctx, sessions)
	})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
