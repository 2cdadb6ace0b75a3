package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mocap-batch-runner/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Width(28)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func renderReport(r model.RunReport) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("run %s", r.RunID)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s -> %s", r.StartedAt, r.FinishedAt)))
	b.WriteString("\n\n")

	row := func(label string, n int, style lipgloss.Style) {
		line := labelStyle.Render(label) + fmt.Sprintf("%d", n)
		if n > 0 {
			line = style.Render(line)
		} else {
			line = dimStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	row("completed", r.Completed, okStyle)
	row("skipped (already done)", r.SkippedAlreadyDone, dimStyle)
	row("skipped (previously failed)", r.SkippedPreviouslyFailed, warnStyle)
	row("skipped (unprocessable)", r.SkippedUnprocessable, warnStyle)
	row("crashed (oom)", r.CrashedOOM, badStyle)
	row("failed", r.Failed, badStyle)
	b.WriteString(labelStyle.Render("total") + fmt.Sprintf("%d", r.Total))
	b.WriteString("\n")

	if attention := r.Attention(); len(attention) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("needs follow-up"))
		b.WriteString("\n")
		for _, o := range attention {
			b.WriteString(fmt.Sprintf("  %s  %s", badStyle.Render(o.Outcome), o.Task))
			if o.Reason != "" {
				b.WriteString(dimStyle.Render("  " + o.Reason))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

type statusRollup struct {
	InputRoot     string             `json:"input_root"`
	Total         int                `json:"total"`
	Done          int                `json:"done"`
	PrevFailed    int                `json:"previously_failed"`
	NotStarted    int                `json:"not_started"`
	Unprocessable int                `json:"unprocessable"`
	Tasks         []statusRollupTask `json:"tasks,omitempty"`
}

type statusRollupTask struct {
	Task   string `json:"task"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

func renderStatus(s statusRollup) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("corpus %s", s.InputRoot)))
	b.WriteString("\n\n")

	b.WriteString(okStyle.Render(labelStyle.Render("done") + fmt.Sprintf("%d", s.Done)))
	b.WriteString("\n")
	b.WriteString(warnStyle.Render(labelStyle.Render("previously failed") + fmt.Sprintf("%d", s.PrevFailed)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("not started") + fmt.Sprintf("%d", s.NotStarted))
	b.WriteString("\n")
	b.WriteString(warnStyle.Render(labelStyle.Render("unprocessable") + fmt.Sprintf("%d", s.Unprocessable)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("total") + fmt.Sprintf("%d", s.Total))
	b.WriteString("\n")
	return b.String()
}
