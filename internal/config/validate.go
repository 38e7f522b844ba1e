package config

import (
	"fmt"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ValidationError represents a settings validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks settings for required fields and valid values.
// All problems are reported together.
func Validate(s *Settings) error {
	var errors []string

	if strings.TrimSpace(s.Manifest) == "" {
		errors = append(errors, ValidationError{Field: "manifest", Message: "path is required"}.Error())
	}

	if err := validateURL("feed.api_base", s.Feed.APIBase); err != nil {
		errors = append(errors, err.Error())
	}
	if err := validateURL("notes.api_base", s.Notes.APIBase); err != nil {
		errors = append(errors, err.Error())
	}

	if s.Feed.Timeout <= 0 {
		errors = append(errors, ValidationError{Field: "feed.timeout", Message: "must be positive"}.Error())
	}
	if s.Notes.Timeout <= 0 {
		errors = append(errors, ValidationError{Field: "notes.timeout", Message: "must be positive"}.Error())
	}

	if s.Backup.Keep < 0 {
		errors = append(errors, ValidationError{Field: "backup.keep", Message: "must not be negative"}.Error())
	}

	if s.ChangelogURL != "" {
		sample := strings.NewReplacer("{owner}", "o", "{repo}", "r", "{version}", "1.0.0").Replace(s.ChangelogURL)
		if err := validateURL("changelog_url", sample); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if s.Log.Level != "" {
		if _, err := log.ParseLevel(s.Log.Level); err != nil {
			errors = append(errors, ValidationError{
				Field:   "log.level",
				Message: fmt.Sprintf("unknown level %q", s.Log.Level),
			}.Error())
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// validateURL requires an absolute http or https URL.
func validateURL(field, raw string) error {
	if raw == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: field, Message: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme)}
	}
	if u.Host == "" {
		return ValidationError{Field: field, Message: "host is required"}
	}
	return nil
}
