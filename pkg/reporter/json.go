package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/sansible/sansible/pkg/logger"
)

// JSONReporter emits one JSON object per line (NDJSON) instead of the
// human console format, for callers that want to pipe playbook
// progress into another tool.
type JSONReporter struct {
	out       io.Writer
	taskIndex int64
}

// NewJSONReporter builds a Reporter that writes NDJSON events to out.
func NewJSONReporter(out io.Writer) *JSONReporter {
	return &JSONReporter{out: out}
}

type jsonEvent struct {
	Event     string `json:"event"`
	Play      string `json:"play,omitempty"`
	Task      string `json:"task,omitempty"`
	TaskIndex int64  `json:"task_index,omitempty"`
	Host      string `json:"host,omitempty"`
	Msg       string `json:"msg,omitempty"`
	Changed   bool   `json:"changed,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`

	Stats *recapCounts `json:"stats,omitempty"`
}

type recapCounts struct {
	Ok          int `json:"ok"`
	Changed     int `json:"changed"`
	Unreachable int `json:"unreachable"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
	Rescued     int `json:"rescued"`
	Ignored     int `json:"ignored"`
}

func (j *JSONReporter) emit(e jsonEvent) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintln(j.out, string(data))
}

func (j *JSONReporter) PlayHeader(playName string) {
	j.emit(jsonEvent{Event: "play_start", Play: playName})
}

func (j *JSONReporter) TaskHeader(taskName string) {
	idx := atomic.AddInt64(&j.taskIndex, 1)
	j.emit(jsonEvent{Event: "task_start", Task: taskName, TaskIndex: idx})
}

func (j *JSONReporter) TaskResult(host, msg string, changed, failed, skipped bool) {
	j.emit(jsonEvent{
		Event:     "task_result",
		TaskIndex: atomic.LoadInt64(&j.taskIndex),
		Host:      host,
		Msg:       msg,
		Changed:   changed,
		Failed:    failed,
		Skipped:   skipped,
	})
}

func (j *JSONReporter) Warning(msg string) {
	j.emit(jsonEvent{Event: "warning", Msg: msg})
}

func (j *JSONReporter) PlayRecap(stats map[string]*logger.PlayStats) {
	for host, stat := range stats {
		j.emit(jsonEvent{
			Event: "recap",
			Host:  host,
			Stats: &recapCounts{
				Ok:          stat.Ok,
				Changed:     stat.Changed,
				Unreachable: stat.Unreachable,
				Failed:      stat.Failed,
				Skipped:     stat.Skipped,
				Rescued:     stat.Rescued,
				Ignored:     stat.Ignored,
			},
		})
	}
}
