package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "BRIEFINGS_"

// Config captures environment driven configuration values for the briefings service.
type Config struct {
	HTTPPort   int    `env:"HTTP_PORT" envDefault:"8080"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"briefings.db"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	EventName           string        `env:"EVENT_NAME" envDefault:"Briefings"`
	ServerURL           string        `env:"SERVER_URL" envDefault:"http://localhost:8080"`
	Timezone            string        `env:"TIMEZONE" envDefault:"UTC"`
	InvitationLeadDays  int           `env:"INVITATION_LEAD_DAYS" envDefault:"3"`
	ApplicationLeadDays int           `env:"APPLICATION_LEAD_DAYS" envDefault:"7"`
	DefaultHour         int           `env:"DEFAULT_HOUR" envDefault:"14"`
	DefaultMinute       int           `env:"DEFAULT_MINUTE" envDefault:"0"`
	EventDuration       time.Duration `env:"EVENT_DURATION" envDefault:"4h"`
	OrganizerEmails     []string      `env:"ORGANIZER_EMAILS" envSeparator:","`
	AnnounceEmails      []string      `env:"ANNOUNCE_EMAILS" envSeparator:","`
	PrivateEmails       []string      `env:"PRIVATE_ANNOUNCE_EMAILS" envSeparator:","`

	AdminUser         string `env:"ADMIN_USER" envDefault:"admin"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	SMTP     SMTPConfig     `envPrefix:"SMTP_"`
	Zoom     ZoomConfig     `envPrefix:"ZOOM_"`
	Etherpad EtherpadConfig `envPrefix:"ETHERPAD_"`
	Google   GoogleConfig   `envPrefix:"GOOGLE_"`

	NotifierTimeout time.Duration `env:"NOTIFIER_TIMEOUT" envDefault:"20s"`
	JobInterval     time.Duration `env:"JOB_INTERVAL" envDefault:"15m"`
	RecordingsDir   string        `env:"RECORDINGS_DIR" envDefault:"recordings"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	OTELEndpoint    string        `env:"OTEL_ENDPOINT"`
}

// SMTPConfig configures outgoing mail. Mail is disabled without a host.
type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// Enabled reports whether mail delivery is configured.
func (c SMTPConfig) Enabled() bool { return c.Host != "" && c.From != "" }

// ZoomConfig configures the server-to-server OAuth app used for meetings.
type ZoomConfig struct {
	AccountID    string `env:"ACCOUNT_ID"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	UserID       string `env:"USER_ID" envDefault:"me"`
	APIURL       string `env:"API_URL" envDefault:"https://api.zoom.us/v2"`
	TokenURL     string `env:"TOKEN_URL" envDefault:"https://zoom.us/oauth/token"`
}

// Enabled reports whether the video channel is configured.
func (c ZoomConfig) Enabled() bool {
	return c.AccountID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// EtherpadConfig configures the shared speaker document channel.
type EtherpadConfig struct {
	URL         string `env:"URL"`
	APIKey      string `env:"API_KEY"`
	TemplatePad string `env:"TEMPLATE_PAD"`
}

// Enabled reports whether the document channel is configured.
func (c EtherpadConfig) Enabled() bool { return c.URL != "" && c.APIKey != "" }

// GoogleConfig configures the calendar channel.
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RefreshToken string `env:"REFRESH_TOKEN"`
	CalendarID   string `env:"CALENDAR_ID"`
}

// Enabled reports whether the calendar channel is configured.
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != "" && c.CalendarID != ""
}

// Location resolves Timezone. Validate has already rejected unknown zones.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads optional .env files and then parses configuration values from
// the process environment. Variables already set in the environment win over
// .env entries.
//
// Load validates required values and reports every missing or invalid
// variable in one error.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and required settings.
func (c Config) Validate() error {
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if strings.TrimSpace(c.AdminPasswordHash) == "" {
		missing = append(missing, EnvPrefix+"ADMIN_PASSWORD_HASH")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, EnvPrefix+"HTTP_PORT")
	}
	if strings.TrimSpace(c.SQLitePath) == "" {
		invalid = append(invalid, EnvPrefix+"SQLITE_PATH")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		invalid = append(invalid, EnvPrefix+"TIMEZONE")
	}
	if c.InvitationLeadDays < 0 {
		invalid = append(invalid, EnvPrefix+"INVITATION_LEAD_DAYS")
	}
	if c.ApplicationLeadDays < 0 {
		invalid = append(invalid, EnvPrefix+"APPLICATION_LEAD_DAYS")
	}
	if c.DefaultHour < 0 || c.DefaultHour > 23 {
		invalid = append(invalid, EnvPrefix+"DEFAULT_HOUR")
	}
	if c.DefaultMinute < 0 || c.DefaultMinute > 59 {
		invalid = append(invalid, EnvPrefix+"DEFAULT_MINUTE")
	}
	if c.EventDuration <= 0 {
		invalid = append(invalid, EnvPrefix+"EVENT_DURATION")
	}
	if c.NotifierTimeout <= 0 {
		invalid = append(invalid, EnvPrefix+"NOTIFIER_TIMEOUT")
	}
	if c.JobInterval <= 0 {
		invalid = append(invalid, EnvPrefix+"JOB_INTERVAL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid environment variable values: %s", strings.Join(invalid, ", "))
	}
	return nil
}
