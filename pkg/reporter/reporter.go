// Package reporter renders play/task progress to an output stream,
// either ansible-playbook's human console format or a structured JSON
// stream for machine consumption.
package reporter

import "github.com/sansible/sansible/pkg/logger"

// Reporter is the stream-rendering contract playbook.Runner depends
// on, decoupling scheduling from output format.
type Reporter interface {
	PlayHeader(playName string)
	TaskHeader(taskName string)
	TaskResult(host, msg string, changed, failed, skipped bool)
	Warning(msg string)
	PlayRecap(stats map[string]*logger.PlayStats)
}

// HumanReporter renders ansible-playbook's console banners/recap by
// delegating to logger.AnsibleLogger.
type HumanReporter struct {
	log *logger.AnsibleLogger
}

// NewHumanReporter wraps an AnsibleLogger as a Reporter.
func NewHumanReporter(quiet bool) *HumanReporter {
	return &HumanReporter{log: logger.NewAnsibleLogger(quiet)}
}

func (h *HumanReporter) PlayHeader(playName string) { h.log.PlayHeader(playName) }
func (h *HumanReporter) TaskHeader(taskName string) { h.log.TaskHeader(taskName) }
func (h *HumanReporter) TaskResult(host, msg string, changed, failed, skipped bool) {
	h.log.TaskResult("", host, msg, changed, failed, skipped)
}
func (h *HumanReporter) Warning(msg string) { h.log.Warning(msg) }
func (h *HumanReporter) PlayRecap(stats map[string]*logger.PlayStats) {
	h.log.PlayRecap(stats)
}
