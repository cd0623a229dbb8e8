// pattern: Functional Core

package logging

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ProjectScopePrefix prefixes the scope of every per-project logger.
const ProjectScopePrefix = "project."

// ProjectScope returns the logger scope for a project name.
func ProjectScope(name string) string {
	return ProjectScopePrefix + name
}

// LogEntry is a decoded log line.
type LogEntry struct {
	Timestamp time.Time      // When the log was created
	Level     string         // DEBUG, INFO, WARN, ERROR
	Scope     string         // Hierarchical scope (e.g., "project.main-app")
	Project   string         // Project name from a "project.<name>" scope, else ""
	Message   string         // Log message
	Fields    map[string]any // Additional structured fields
}

// String renders the entry on one line with fields sorted by key.
func (e LogEntry) String() string {
	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format("15:04:05"))
	sb.WriteString(" ")
	sb.WriteString(e.Level)
	sb.WriteString(" [")
	sb.WriteString(e.Scope)
	sb.WriteString("] ")
	sb.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Fields[k])
	}
	return sb.String()
}

// MatchesScope reports whether the entry's scope starts with prefix.
// An empty prefix matches all entries.
func (e LogEntry) MatchesScope(prefix string) bool {
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(e.Scope, prefix)
}

// IsIssue reports whether the entry is a warning or an error.
func (e LogEntry) IsIssue() bool {
	return e.Level == "WARN" || e.Level == "ERROR"
}

// projectFromScope returns the project name encoded in a "project.<name>"
// scope, or "" for any other scope.
func projectFromScope(scope string) string {
	name, ok := strings.CutPrefix(scope, ProjectScopePrefix)
	if !ok {
		return ""
	}
	return name
}

// Drain reads every entry currently queued on ch without blocking.
func Drain(ch <-chan LogEntry) []LogEntry {
	var out []LogEntry
	for {
		select {
		case entry, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, entry)
		default:
			return out
		}
	}
}

// IssuesByProject groups warning and error entries by project name,
// keeping arrival order. Entries outside a project are keyed by "".
func IssuesByProject(entries []LogEntry) map[string][]LogEntry {
	grouped := make(map[string][]LogEntry)
	for _, e := range entries {
		if !e.IsIssue() {
			continue
		}
		grouped[e.Project] = append(grouped[e.Project], e)
	}
	return grouped
}

// ParseLevel normalizes a log level string to uppercase.
// Returns "INFO" for unknown levels.
func ParseLevel(level string) string {
	switch strings.ToLower(level) {
	case "debug":
		return "DEBUG"
	case "info":
		return "INFO"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}
