// Package runlog appends a markdown summary of every run to a shared log file.
package runlog

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// trackedModules are reported with their version in every entry.
var trackedModules = []string{
	"github.com/nlpodyssey/spago",
	"gonum.org/v1/gonum",
	"github.com/spf13/cobra",
	"github.com/tidwall/gjson",
}

type Entry struct {
	ID        uuid.UUID
	Action    string
	StartedAt time.Time
	Notes     string
}

// Start opens an entry for an action starting now.
func Start(action string) *Entry {
	return &Entry{ID: uuid.New(), Action: action, StartedAt: time.Now()}
}

// HMS formats a duration as HH:MM:SS, truncated to whole seconds.
func HMS(d time.Duration) string {
	seconds := int(d.Seconds())
	m, s := seconds/60, seconds%60
	h, m := m/60, m%60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Format renders the entry as finished at the given time.
func (e *Entry) Format(finishedAt time.Time) string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	lines := []string{
		fmt.Sprintf("## [%s] %s", finishedAt.Format("2006-01-02 15:04:05"), e.Action),
		fmt.Sprintf("- Run: %s", e.ID),
		fmt.Sprintf("- Duration: %s", HMS(finishedAt.Sub(e.StartedAt))),
		fmt.Sprintf("- Host: %s, %s (%s/%s)", host, runtime.Version(), runtime.GOOS, runtime.GOARCH),
		"- Package versions:",
	}
	versions := moduleVersions()
	for _, path := range trackedModules {
		lines = append(lines, fmt.Sprintf("  - %s: %s", path, versions[path]))
	}
	if e.Notes != "" {
		lines = append(lines, fmt.Sprintf("- Notes: %s", e.Notes))
	}
	lines = append(lines, "\n---\n")
	return strings.Join(lines, "\n")
}

func moduleVersions() map[string]string {
	result := map[string]string{}
	for _, path := range trackedModules {
		result[path] = "n/a"
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return result
	}
	for _, dep := range info.Deps {
		if _, tracked := result[dep.Path]; tracked {
			result[dep.Path] = dep.Version
		}
	}
	return result
}

// Append finishes the entry and appends it to fileName. Failures are logged
// and otherwise ignored so a run never fails on its log.
func (e *Entry) Append(fileName string) {
	if fileName == "" {
		return
	}
	text := e.Format(time.Now())
	f, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("File", fileName).Msg("Could not open run log")
		return
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		log.Warn().Err(err).Str("File", fileName).Msg("Could not write run log")
	}
}
