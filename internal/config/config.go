package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"canvas-finder/internal/domain"
)

// Error is a fatal configuration problem, reported before any network call.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

type Config struct {
	// Canvas
	Token   string
	BaseURL string
	Courses []domain.Course

	// Fetching
	MaxInFlight    int
	RequestTimeout time.Duration
	MaxAttempts    int
	PerPage        int

	// Fuzzy selector command line, e.g. "fzf --with-nth=1,3"
	SelectorCmd []string

	// SFTP publication of the listing file
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPKnownHosts            string
	SFTPInsecureIgnoreHostKey bool
}

// Load reads envFile (if it exists) and the process environment, which wins
// over the file. The result is validated.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("MAX_IN_FLIGHT", 0)
	v.SetDefault("REQUEST_TIMEOUT", 30) // seconds
	v.SetDefault("MAX_ATTEMPTS", 3)
	v.SetDefault("PER_PAGE", 100)
	v.SetDefault("SELECTOR_CMD", "fzf")
	v.SetDefault("SFTP_PORT", 22)
	v.SetDefault("SFTP_DIR", "/")

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		}
	}

	courses, err := ParseCourses(v.GetString("COURSE_IDS"), v.GetString("COURSE_NAMES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Token:   strings.TrimSpace(v.GetString("TOKEN")),
		BaseURL: strings.TrimSpace(v.GetString("CANVAS_API_URL")),
		Courses: courses,

		MaxInFlight:    v.GetInt("MAX_IN_FLIGHT"),
		RequestTimeout: time.Duration(v.GetInt("REQUEST_TIMEOUT")) * time.Second,
		MaxAttempts:    v.GetInt("MAX_ATTEMPTS"),
		PerPage:        v.GetInt("PER_PAGE"),
		SelectorCmd:    strings.Fields(v.GetString("SELECTOR_CMD")),

		SFTPHost:                  v.GetString("SFTP_HOST"),
		SFTPPort:                  v.GetInt("SFTP_PORT"),
		SFTPUser:                  v.GetString("SFTP_USER"),
		SFTPPass:                  v.GetString("SFTP_PASS"),
		SFTPDir:                   v.GetString("SFTP_DIR"),
		SFTPKnownHosts:            expandHome(v.GetString("SFTP_KNOWN_HOSTS")),
		SFTPInsecureIgnoreHostKey: v.GetBool("SFTP_INSECURE_IGNORE_HOST_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseCourses pairs comma separated ids and names by position.
// Unequal list lengths are an error rather than a silent truncation.
func ParseCourses(ids, names string) ([]domain.Course, error) {
	idList := splitList(ids)
	nameList := splitList(names)

	if len(idList) != len(nameList) {
		return nil, &Error{
			Field:  "COURSE_IDS/COURSE_NAMES",
			Reason: fmt.Sprintf("%d ids but %d names", len(idList), len(nameList)),
		}
	}

	out := make([]domain.Course, 0, len(idList))
	for i, raw := range idList {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return nil, &Error{Field: "COURSE_IDS", Reason: fmt.Sprintf("invalid course id %q at position %d", raw, i+1)}
		}
		out = append(out, domain.Course{ID: id, Name: nameList[i]})
	}
	return out, nil
}

// Validate checks everything the fetch pipeline relies on.
func (c *Config) Validate() error {
	if c.Token == "" {
		return &Error{Field: "TOKEN", Reason: "missing"}
	}
	if c.BaseURL == "" {
		return &Error{Field: "CANVAS_API_URL", Reason: "missing"}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return &Error{Field: "CANVAS_API_URL", Reason: fmt.Sprintf("not an absolute http(s) url: %q", c.BaseURL)}
	}
	if len(c.Courses) == 0 {
		return &Error{Field: "COURSE_IDS", Reason: "no courses configured"}
	}
	for i, course := range c.Courses {
		if course.ID <= 0 {
			return &Error{Field: "COURSE_IDS", Reason: fmt.Sprintf("invalid course id %d at position %d", course.ID, i+1)}
		}
		if strings.TrimSpace(course.Name) == "" {
			return &Error{Field: "COURSE_NAMES", Reason: fmt.Sprintf("empty name for course %d", course.ID)}
		}
	}
	if c.MaxInFlight < 0 {
		return &Error{Field: "MAX_IN_FLIGHT", Reason: "must not be negative"}
	}
	if c.RequestTimeout <= 0 {
		return &Error{Field: "REQUEST_TIMEOUT", Reason: "must be positive"}
	}
	return nil
}

// splitList splits on commas and trims blanks. An all blank input is empty.
// Names may be left empty between commas; Validate rejects those.
func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return home + p[1:]
		}
	}
	return p
}
