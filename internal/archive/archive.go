package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

// DateLayout is the layout of archive dates and file names.
const DateLayout = "2006-01-02"

var dayFile = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.json$`)

// Archive stores one JSON file per harvested day. A day's file existing means
// the day is done.
type Archive struct {
	dir string
}

// New creates an archive rooted at dir.
func New(dir string) *Archive {
	return &Archive{dir: expandHome(dir)}
}

// Dir returns the archive directory.
func (a *Archive) Dir() string {
	return a.dir
}

// Path returns the file path for a date.
func (a *Archive) Path(date string) string {
	return filepath.Join(a.dir, date+".json")
}

// Ensure creates the archive directory if needed.
func (a *Archive) Ensure() error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return nil
}

// Exists reports whether the date has already been archived.
func (a *Archive) Exists(date string) bool {
	_, err := os.Stat(a.Path(date))
	return err == nil
}

// Write persists the conversations of one day, replacing any previous file.
// The file only appears once fully written.
func (a *Archive) Write(date string, convs []chat.Conversation) (string, error) {
	if err := ValidDate(date); err != nil {
		return "", err
	}
	if err := a.Ensure(); err != nil {
		return "", err
	}

	if convs == nil {
		convs = []chat.Conversation{}
	}
	data, err := json.MarshalIndent(convs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", date, err)
	}

	path := a.Path(date)
	tmp, err := os.CreateTemp(a.dir, "."+date+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", date, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", date, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("chmod %s: %w", date, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", date, err)
	}
	return path, nil
}

// Read loads the conversations of one day. A missing file yields
// os.ErrNotExist.
func (a *Archive) Read(date string) ([]chat.Conversation, error) {
	if err := ValidDate(date); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.Path(date))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", date, err)
	}
	var convs []chat.Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", date, err)
	}
	return convs, nil
}

// Dates lists archived dates, newest first.
func (a *Archive) Dates() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read dir: %w", err)
	}

	dates := []string{}
	for _, e := range entries {
		if e.IsDir() || !dayFile.MatchString(e.Name()) {
			continue
		}
		dates = append(dates, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("invalid date")

// ValidDate checks that date is a real YYYY-MM-DD calendar date.
func ValidDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
