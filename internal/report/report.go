// pattern: Imperative Shell

// Package report prints the human-readable progress of a run.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"reposync/internal/config"
	"reposync/internal/logging"
)

const (
	glyphInfo    = "ℹ"
	glyphSuccess = "✅"
	glyphError   = "❌"
	glyphWarning = "⚠️"

	separatorWidth = 50
)

// Row is one project line of the summary table.
type Row struct {
	Label        string
	Directory    bool
	Repository   bool
	Manifest     bool
	Dependencies bool
	Status       string // empty when only inspecting
}

// Reporter writes progress lines to w.
type Reporter struct {
	w      io.Writer
	styles *Styles
}

// New creates a Reporter styled with the named catppuccin flavor.
func New(w io.Writer, theme string) *Reporter {
	return &Reporter{w: w, styles: NewStyles(w, theme)}
}

// Discard returns a Reporter that prints nothing.
func Discard() *Reporter {
	return New(io.Discard, "")
}

func (r *Reporter) println(s string) {
	fmt.Fprintln(r.w, s)
}

// Title prints the run banner.
func (r *Reporter) Title(title string) {
	r.println(r.styles.TitleStyle().Render("🚀 " + title))
	r.println(r.styles.SeparatorStyle().Render(strings.Repeat("=", separatorWidth+10)))
}

// Section starts a titled block.
func (r *Reporter) Section(icon, title string) {
	r.println("")
	r.println(r.styles.SectionStyle().Render(icon + " " + title))
}

// Separator prints a horizontal rule.
func (r *Reporter) Separator() {
	r.println(r.styles.SeparatorStyle().Render(strings.Repeat("=", separatorWidth)))
}

func (r *Reporter) Info(format string, args ...any) {
	r.println(r.styles.InfoStyle().Render(glyphInfo + " " + fmt.Sprintf(format, args...)))
}

func (r *Reporter) Success(format string, args ...any) {
	r.println(r.styles.SuccessStyle().Render(glyphSuccess + " " + fmt.Sprintf(format, args...)))
}

func (r *Reporter) Warning(format string, args ...any) {
	r.println(r.styles.WarningStyle().Render(glyphWarning + " " + fmt.Sprintf(format, args...)))
}

func (r *Reporter) Error(format string, args ...any) {
	r.println(r.styles.ErrorStyle().Render(glyphError + " " + fmt.Sprintf(format, args...)))
}

// ProjectHeader frames the output of one project.
func (r *Reporter) ProjectHeader(p config.ProjectSpec) {
	r.println("")
	r.Separator()
	r.Info("Processing %s", p.Label())
	r.Separator()
}

// Overview lists the configured projects.
func (r *Reporter) Overview(projects []config.ProjectSpec) {
	r.Section("📋", "Projects")
	if len(projects) == 0 {
		r.println(r.styles.MutedStyle().Render("   no projects configured"))
		return
	}
	for i, p := range projects {
		r.println(fmt.Sprintf("%d. %s", i+1, r.styles.AccentStyle().Render(p.Label())))
		r.println(r.field("📦", "repository", p.RepoURL))
		r.println(r.field("🌿", "branch", p.Branch))
		r.println(r.field("⚙️ ", "node", p.NodeVersion))
		r.println(r.field("📋", "package manager", p.PackageManager))
	}
}

func (r *Reporter) field(icon, name, value string) string {
	if value == "" {
		value = r.styles.MutedStyle().Render("(none)")
	}
	return fmt.Sprintf("   %s %s: %s", icon, name, value)
}

// NextSteps prints suggested follow-up commands.
func (r *Reporter) NextSteps(steps []string) {
	if len(steps) == 0 {
		return
	}
	r.Section("💡", "Next steps")
	for _, s := range steps {
		r.println("• " + s)
	}
}

// Summary prints the per-project readiness table.
func (r *Reporter) Summary(rows []Row) {
	r.Section("📊", "Summary")
	withStatus := slices.ContainsFunc(rows, func(row Row) bool { return row.Status != "" })

	headers := []string{"Project", "Directory", "Git", "package.json", "Dependencies"}
	if withStatus {
		headers = append(headers, "Result")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.styles.TableBorderStyle()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styles.TableHeaderStyle()
			}
			return r.styles.TableCellStyle()
		})

	for _, row := range rows {
		cells := []string{row.Label, mark(row.Directory), mark(row.Repository), mark(row.Manifest), mark(row.Dependencies)}
		if withStatus {
			cells = append(cells, row.Status)
		}
		t.Row(cells...)
	}
	r.println(t.String())
}

// Issues lists every warning and error logged per project.
func (r *Reporter) Issues(byProject map[string][]logging.LogEntry) {
	if len(byProject) == 0 {
		return
	}
	r.Section("🧾", "Issues")
	names := make([]string, 0, len(byProject))
	for name := range byProject {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		label := name
		if label == "" {
			label = "general"
		}
		r.println(r.styles.AccentStyle().Render(label))
		for _, e := range byProject[name] {
			line := fmt.Sprintf("  %s %s", e.Level, e.Message)
			if e.Level == "ERROR" {
				r.println(r.styles.ErrorStyle().Render(line))
			} else {
				r.println(r.styles.WarningStyle().Render(line))
			}
		}
	}
}

func mark(ok bool) string {
	if ok {
		return glyphSuccess
	}
	return glyphError
}
