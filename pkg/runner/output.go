package runner

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fatih/color"
)

var (
	colorGreen  = color.New(color.FgGreen).SprintFunc()
	colorRed    = color.New(color.FgRed).SprintFunc()
	colorYellow = color.New(color.FgYellow).SprintFunc()
)

// FormatResults renders ad-hoc results in ansible's "host | STATUS => {json}" style.
func FormatResults(results []TaskResult) string {
	output := ""

	sort.Slice(results, func(i, j int) bool {
		return results[i].Host < results[j].Host
	})

	for _, result := range results {
		status := "SUCCESS"
		paint := colorGreen

		switch {
		case result.ModuleResult.Unreachable:
			status, paint = "UNREACHABLE", colorRed
		case result.ModuleResult.Failed:
			status, paint = "FAILED", colorRed
		case result.ModuleResult.Changed:
			status, paint = "CHANGED", colorYellow
		}

		jsonData, err := json.Marshal(result.ModuleResult)
		if err != nil {
			jsonData = []byte(fmt.Sprintf(`{"error": "failed to marshal result: %v"}`, err))
		}

		output += fmt.Sprintf("%s | %s => %s\n", result.Host, paint(status), string(jsonData))
	}

	return output
}
