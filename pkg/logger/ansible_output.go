package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// AnsibleLogger renders play/task progress in ansible-playbook's
// human console format: PLAY/TASK banners, per-host status lines, and
// a tabular PLAY RECAP.
type AnsibleLogger struct {
	quiet bool
}

// NewAnsibleLogger builds a console logger. quiet suppresses anything
// but failures.
func NewAnsibleLogger(quiet bool) *AnsibleLogger {
	return &AnsibleLogger{quiet: quiet}
}

var (
	statusOK      = color.New(color.FgGreen).SprintFunc()
	statusChanged = color.New(color.FgYellow).SprintFunc()
	statusSkipped = color.New(color.FgCyan).SprintFunc()
	statusFailed  = color.New(color.FgRed, color.Bold).SprintFunc()
	statusWarn    = color.New(color.FgYellow).SprintFunc()
)

// PlayHeader prints the "PLAY [name] ****" banner.
func (a *AnsibleLogger) PlayHeader(playName string) {
	if a.quiet {
		return
	}
	fmt.Printf("\nPLAY [%s] %s\n", playName, strings.Repeat("*", 44))
}

// TaskHeader prints the "TASK [name] ****" banner.
func (a *AnsibleLogger) TaskHeader(taskName string) {
	if a.quiet {
		return
	}
	fmt.Printf("TASK [%s] %s\n", taskName, strings.Repeat("*", 44))
}

// TaskResult prints one host's outcome for the task just run.
func (a *AnsibleLogger) TaskResult(status, host, msg string, changed, failed, skipped bool) {
	if a.quiet && !failed {
		return
	}

	var statusText, line string
	switch {
	case failed:
		statusText = "FAILED"
		line = statusFailed(fmt.Sprintf("%s: [%s] => %s", statusText, host, msg))
	case skipped:
		statusText = "skipping"
		line = statusSkipped(fmt.Sprintf("%s: [%s]", statusText, host))
	case changed:
		statusText = "changed"
		line = statusChanged(fmt.Sprintf("%s: [%s] => %s", statusText, host, msg))
	default:
		statusText = "ok"
		line = statusOK(fmt.Sprintf("%s: [%s] => %s", statusText, host, msg))
	}
	fmt.Println(line)
}

// PlayRecap prints the end-of-play summary table, one row per host.
func (a *AnsibleLogger) PlayRecap(stats map[string]*PlayStats) {
	if a.quiet {
		return
	}

	fmt.Println("\nPLAY RECAP " + strings.Repeat("*", 44))

	hosts := make([]string, 0, len(stats))
	for h := range stats {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"HOST", "OK", "CHANGED", "UNREACHABLE", "FAILED", "SKIPPED", "RESCUED", "IGNORED"})
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, host := range hosts {
		stat := stats[host]
		row := []string{host,
			fmt.Sprintf("%d", stat.Ok), fmt.Sprintf("%d", stat.Changed),
			fmt.Sprintf("%d", stat.Unreachable), fmt.Sprintf("%d", stat.Failed),
			fmt.Sprintf("%d", stat.Skipped), fmt.Sprintf("%d", stat.Rescued),
			fmt.Sprintf("%d", stat.Ignored),
		}
		if !stat.IsSuccess() {
			for i, cell := range row {
				row[i] = statusFailed(cell)
			}
		}
		table.Append(row)
	}
	table.Render()
	fmt.Println()
}

// Warning prints a non-fatal [WARNING] line.
func (a *AnsibleLogger) Warning(msg string) {
	if a.quiet {
		return
	}
	fmt.Println(statusWarn(fmt.Sprintf("[WARNING]: %s", msg)))
}

// Error prints an [ERROR] line regardless of quiet mode.
func (a *AnsibleLogger) Error(msg string) {
	fmt.Println(statusFailed(fmt.Sprintf("[ERROR]: %s", msg)))
}

// Fatal prints a [FATAL] line and exits the process.
func (a *AnsibleLogger) Fatal(msg string) {
	fmt.Println(statusFailed(fmt.Sprintf("[FATAL]: %s", msg)))
	os.Exit(1)
}

// Info prints a plain informational line, suppressed in quiet mode.
func (a *AnsibleLogger) Info(msg string) {
	if a.quiet {
		return
	}
	fmt.Println(msg)
}

// Debug is a no-op placeholder for verbose-mode wiring in cmd/.
func (a *AnsibleLogger) Debug(msg string) {}

// PlayStats accumulates one host's per-task outcomes across a play.
type PlayStats struct {
	Ok          int
	Changed     int
	Unreachable int
	Failed      int
	Skipped     int
	Rescued     int
	Ignored     int
}

// IsSuccess reports whether the host survived the play without a
// fatal (unrescued, unignored) failure or going unreachable.
func (s *PlayStats) IsSuccess() bool {
	return s.Failed == 0 && s.Unreachable == 0
}

// String renders the stats in ansible-playbook's recap line format.
func (s *PlayStats) String() string {
	return fmt.Sprintf("ok=%d changed=%d unreachable=%d failed=%d skipped=%d rescued=%d ignored=%d",
		s.Ok, s.Changed, s.Unreachable, s.Failed, s.Skipped, s.Rescued, s.Ignored)
}
