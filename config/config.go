// Package config holds the yaml configuration surface shared by the demo
// applications.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type OAuthConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RedirectURI  string `yaml:"redirect_uri" validate:"required,url"`
	Scopes       string `yaml:"scopes"`
}

type CookieConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Secret string `yaml:"secret" validate:"required"`
	Domain string `yaml:"domain"`
}

// ServiceAccountConfig carries the impersonation credential for
// directory group queries. Optional; a config without it supports
// authentication only.
type ServiceAccountConfig struct {
	Email             string `yaml:"email" validate:"required"`
	PrivateKeyPath    string `yaml:"private_key_path" validate:"required"`
	ImpersonatedAdmin string `yaml:"impersonated_admin" validate:"required"`
}

type Config struct {
	ListenAddr     string                `yaml:"listen_addr" validate:"required"`
	OAuth          OAuthConfig           `yaml:"oauth" validate:"required"`
	Cookie         CookieConfig          `yaml:"cookie" validate:"required"`
	ServiceAccount *ServiceAccountConfig `yaml:"service_account"`
	Domain         string                `yaml:"domain" validate:"required_with=ServiceAccount"`
	GroupEmails    []string              `yaml:"group_emails"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with their environment
// variable values.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(varName)))
	})
}

// Load reads a yaml config file. It supports environment variable
// expansion using ${VAR_NAME} syntax.
func Load(path string) (*Config, error) {
	yamlData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file '%s': %w", path, err)
	}

	cfg := new(Config)
	if err := yaml.Unmarshal(expandEnvVars(yamlData), cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file '%s': %w", path, err)
	}
	applyDefaults(cfg)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config file '%s': %w", path, err)
	}

	return cfg, nil
}

// FromEnv builds a config from environment variables, typically after
// godotenv has loaded a .env file.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		OAuth: OAuthConfig{
			ClientID:     os.Getenv("OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("OAUTH_REDIRECT_URI"),
			Scopes:       os.Getenv("OAUTH_SCOPES"),
		},
		Cookie: CookieConfig{
			Name:   os.Getenv("COOKIE_NAME"),
			Secret: os.Getenv("COOKIE_SECRET"),
			Domain: os.Getenv("COOKIE_DOMAIN"),
		},
		Domain: os.Getenv("DIRECTORY_DOMAIN"),
	}

	if email := os.Getenv("SERVICE_ACCOUNT_EMAIL"); email != "" {
		cfg.ServiceAccount = &ServiceAccountConfig{
			Email:             email,
			PrivateKeyPath:    os.Getenv("SERVICE_ACCOUNT_KEY_PATH"),
			ImpersonatedAdmin: os.Getenv("SERVICE_ACCOUNT_ADMIN"),
		}
	}
	if raw := os.Getenv("GROUP_EMAILS"); raw != "" {
		for _, email := range strings.Split(raw, ",") {
			if email = strings.TrimSpace(email); email != "" {
				cfg.GroupEmails = append(cfg.GroupEmails, email)
			}
		}
	}
	applyDefaults(cfg)

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = "app_session"
	}
}
