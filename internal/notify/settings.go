package notify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings configure outage email notifications. Alerts are disabled unless
// an API key and at least one recipient are present.
type Settings struct {
	APIKey          string   `yaml:"api_key"`
	SenderName      string   `yaml:"sender_name"`
	SenderEmail     string   `yaml:"sender_email"`
	Recipients      []string `yaml:"recipients"`
	CooldownMinutes int      `yaml:"cooldown_minutes"`
	MaxPerHour      int      `yaml:"max_emails_per_hour"`
}

// DefaultSettings returns the baseline used for missing fields.
func DefaultSettings() Settings {
	return Settings{
		SenderName:      "outagemon",
		CooldownMinutes: 5,
		MaxPerHour:      20,
	}
}

// LoadSettings reads an alerts YAML file. A missing file yields disabled
// defaults without error.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("read alerts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return DefaultSettings(), fmt.Errorf("parse alerts file: %w", err)
	}
	if settings.SenderName == "" {
		settings.SenderName = "outagemon"
	}
	if settings.CooldownMinutes <= 0 {
		settings.CooldownMinutes = 5
	}
	if settings.MaxPerHour <= 0 {
		settings.MaxPerHour = 20
	}
	return settings, nil
}

// Enabled reports whether the settings are complete enough to send mail.
func (s Settings) Enabled() bool {
	return s.APIKey != "" && s.SenderEmail != "" && len(s.Recipients) > 0
}
