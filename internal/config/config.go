package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models careerdesk.yml.
type Config struct {
	Site struct {
		Name          string `yaml:"name"`
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"site"`
	Storage struct {
		Bucket            string   `yaml:"bucket"`
		ResumePrefix      string   `yaml:"resume_prefix"`
		MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
		AllowedExtensions []string `yaml:"allowed_extensions"`
	} `yaml:"storage"`
	Auth struct {
		SessionTTL    string `yaml:"session_ttl"`
		ResetTokenTTL string `yaml:"reset_token_ttl"`
	} `yaml:"auth"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with cdk config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Site.Name == "" {
		return fmt.Errorf("config.site.name is required")
	}
	if c.Site.PublicBaseURL == "" {
		return fmt.Errorf("config.site.public_base_url is required")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("config.storage.bucket is required")
	}
	if c.Storage.ResumePrefix == "" {
		return fmt.Errorf("config.storage.resume_prefix is required")
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("config.storage.max_upload_bytes must be positive")
	}
	if len(c.Storage.AllowedExtensions) == 0 {
		return fmt.Errorf("config.storage.allowed_extensions is required")
	}
	for _, ext := range c.Storage.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension %q must start with a dot", ext)
		}
	}
	if _, err := c.SessionTTL(); err != nil {
		return fmt.Errorf("config.auth.session_ttl: %w", err)
	}
	if _, err := c.ResetTokenTTL(); err != nil {
		return fmt.Errorf("config.auth.reset_token_ttl: %w", err)
	}
	return nil
}

// SessionTTL parses the configured session token lifetime.
func (c *Config) SessionTTL() (time.Duration, error) {
	if c.Auth.SessionTTL == "" {
		return 24 * time.Hour, nil
	}
	return time.ParseDuration(c.Auth.SessionTTL)
}

// ResetTokenTTL parses the configured reset token lifetime.
func (c *Config) ResetTokenTTL() (time.Duration, error) {
	if c.Auth.ResetTokenTTL == "" {
		return time.Hour, nil
	}
	return time.ParseDuration(c.Auth.ResetTokenTTL)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "careerdesk.yml")
}

// Default returns the default Config struct for a site.
func Default(siteName string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(fmt.Sprintf(defaultTemplate, siteName)), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault(siteName string) string {
	return fmt.Sprintf(defaultTemplate, siteName)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `site:
  name: %s
  public_base_url: http://127.0.0.1:8080

storage:
  bucket: career-files
  resume_prefix: resumes
  max_upload_bytes: 10485760
  allowed_extensions: [.pdf, .doc, .docx]

auth:
  session_ttl: 24h
  reset_token_ttl: 1h
`
