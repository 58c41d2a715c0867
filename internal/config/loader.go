package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/recurrence"
)

const (
	DefaultTimezone      = "Asia/Jerusalem"
	DefaultWeeklyClasses = "sunday 07:00,monday 07:00,tuesday 07:00,wednesday 07:00,thursday 07:00"
	DefaultBatchSchedule = "0 21 * * 6"
	DefaultQueuePath     = "registration_queue.json"
	DefaultSessionPath   = "portal_session.json"
	DefaultNavLinks      = "סניף סירקין,מערכת שעות"
	DefaultFrameHost     = "arboxapp.com"
	DefaultAnnounceURL   = "https://www.crossfitpanda.com/"
	DefaultAnnounceLink  = "האימון היומי"
)

// Config captures environment driven configuration values for the booker.
type Config struct {
	Location      *time.Location
	ClassName     string
	WeeklyClasses recurrence.Template
	BatchSchedule string
	QueuePath     string
	SQLiteDSN     string

	SessionPath    string
	PortalURL      string
	PortalEmail    string
	PortalPassword string
	NavLinks       []string
	FrameHost      string
	Headless       bool
	Timeouts       portal.Timeouts

	TelegramToken  string
	TelegramChatID int64

	AnnounceURL  string
	AnnounceLink string
}

// Error lists every missing and invalid environment variable at once.
type Error struct {
	Missing []string
	Invalid []string
}

func (e *Error) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required environment variables: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid environment variables: "+strings.Join(e.Invalid, ", "))
	}
	return "config: " + strings.Join(parts, "; ")
}

func (e *Error) empty() bool {
	return len(e.Missing) == 0 && len(e.Invalid) == 0
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Credentials are not required here;
// each mode checks what it needs with RequirePortal and RequireChat.
func Load() (Config, error) {
	cfg := Config{
		ClassName:     portal.DefaultClassName,
		BatchSchedule: DefaultBatchSchedule,
		QueuePath:     DefaultQueuePath,
		SessionPath:   DefaultSessionPath,
		FrameHost:     DefaultFrameHost,
		Headless:      true,
		Timeouts:      portal.DefaultTimeouts(),
		AnnounceURL:   DefaultAnnounceURL,
		AnnounceLink:  DefaultAnnounceLink,
	}
	problems := &Error{}

	timezone := valueOr("BOOKER_TIMEZONE", DefaultTimezone)
	if loc, err := time.LoadLocation(timezone); err != nil {
		problems.Invalid = append(problems.Invalid, "BOOKER_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if template, err := recurrence.ParseTemplate(valueOr("BOOKER_WEEKLY_CLASSES", DefaultWeeklyClasses)); err != nil {
		problems.Invalid = append(problems.Invalid, "BOOKER_WEEKLY_CLASSES")
	} else {
		cfg.WeeklyClasses = template
	}

	if spec := lookup("BOOKER_BATCH_SCHEDULE"); spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			problems.Invalid = append(problems.Invalid, "BOOKER_BATCH_SCHEDULE")
		} else {
			cfg.BatchSchedule = spec
		}
	}

	cfg.ClassName = valueOr("BOOKER_CLASS_NAME", cfg.ClassName)
	cfg.QueuePath = valueOr("BOOKER_QUEUE_PATH", cfg.QueuePath)
	cfg.SQLiteDSN = lookup("BOOKER_SQLITE_DSN")
	cfg.SessionPath = valueOr("BOOKER_SESSION_PATH", cfg.SessionPath)
	cfg.PortalURL = lookup("BOOKER_PORTAL_URL")
	cfg.PortalEmail = lookup("BOOKER_PORTAL_EMAIL")
	cfg.PortalPassword = lookup("BOOKER_PORTAL_PASSWORD")
	cfg.NavLinks = splitList(valueOr("BOOKER_PORTAL_NAV_LINKS", DefaultNavLinks))
	cfg.FrameHost = valueOr("BOOKER_PORTAL_FRAME_HOST", cfg.FrameHost)
	cfg.TelegramToken = lookup("BOOKER_TELEGRAM_TOKEN")
	cfg.AnnounceURL = valueOr("BOOKER_ANNOUNCE_URL", cfg.AnnounceURL)
	cfg.AnnounceLink = valueOr("BOOKER_ANNOUNCE_LINK", cfg.AnnounceLink)

	if value := lookup("BOOKER_HEADLESS"); value != "" {
		headless, err := strconv.ParseBool(value)
		if err != nil {
			problems.Invalid = append(problems.Invalid, "BOOKER_HEADLESS")
		} else {
			cfg.Headless = headless
		}
	}

	if value := lookup("BOOKER_TELEGRAM_CHAT_ID"); value != "" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil || id == 0 {
			problems.Invalid = append(problems.Invalid, "BOOKER_TELEGRAM_CHAT_ID")
		} else {
			cfg.TelegramChatID = id
		}
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"BOOKER_PRIMARY_TIMEOUT", &cfg.Timeouts.Primary},
		{"BOOKER_CONFIRM_TIMEOUT", &cfg.Timeouts.Confirm},
		{"BOOKER_PROBE_TIMEOUT", &cfg.Timeouts.Probe},
		{"BOOKER_SETTLE_TIMEOUT", &cfg.Timeouts.Settle},
	}
	for _, d := range durations {
		value := lookup(d.key)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			problems.Invalid = append(problems.Invalid, d.key)
			continue
		}
		*d.target = parsed
	}

	if !problems.empty() {
		return Config{}, problems
	}
	return cfg, nil
}

// RequirePortal reports the portal settings that are not configured.
func (c Config) RequirePortal() error {
	problems := &Error{}
	for key, value := range map[string]string{
		"BOOKER_PORTAL_URL":      c.PortalURL,
		"BOOKER_PORTAL_EMAIL":    c.PortalEmail,
		"BOOKER_PORTAL_PASSWORD": c.PortalPassword,
	} {
		if value == "" {
			problems.Missing = append(problems.Missing, key)
		}
	}
	return problems.sorted()
}

// RequireChat reports the Telegram settings that are not configured.
func (c Config) RequireChat() error {
	problems := &Error{}
	if c.TelegramToken == "" {
		problems.Missing = append(problems.Missing, "BOOKER_TELEGRAM_TOKEN")
	}
	if c.TelegramChatID == 0 {
		problems.Missing = append(problems.Missing, "BOOKER_TELEGRAM_CHAT_ID")
	}
	return problems.sorted()
}

// PortalConfig returns the portal client settings.
func (c Config) PortalConfig() portal.Config {
	return portal.Config{
		ClassName: c.ClassName,
		Timeouts:  c.Timeouts,
		Location:  c.Location,
	}
}

func (e *Error) sorted() error {
	if e.empty() {
		return nil
	}
	sort.Strings(e.Missing)
	return e
}

func lookup(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func valueOr(key, fallback string) string {
	if value := lookup(key); value != "" {
		return value
	}
	return fallback
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// String summarises the non-secret settings for startup logs.
func (c Config) String() string {
	return fmt.Sprintf("timezone=%s class=%q weekly=%q schedule=%q queue=%s sqlite=%t",
		c.Location, c.ClassName, c.WeeklyClasses.String(), c.BatchSchedule, c.QueuePath, c.SQLiteDSN != "")
}
