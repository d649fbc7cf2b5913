package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sansibleerrors "github.com/sansible/sansible/pkg/errors"
	"github.com/sansible/sansible/pkg/inventory"
	"github.com/sansible/sansible/pkg/logger"
	"github.com/sansible/sansible/pkg/playbook"
	"github.com/sansible/sansible/pkg/reporter"
)

func main() {
	inventoryPath := flag.String("i", envOr("ANSIBLE_INVENTORY", "inventory.ini"), "Path to inventory file")
	extraVarsFlag := flag.String("e", "", "Extra variables as key=value,key2=value2")
	forks := flag.Int("forks", envIntOr("ANSIBLE_FORKS", 5), "Number of hosts to run tasks against in parallel")
	checkMode := flag.Bool("check", false, "Run in check mode without making changes")
	diffMode := flag.Bool("diff", false, "Show file diffs for modules that support it")
	verbose := flag.Bool("v", false, "Verbose mode")
	jsonOutput := flag.Bool("json", false, "Emit NDJSON task/play events instead of the human console format")
	flag.Parse()

	logLevel := logger.InfoLevel
	if *verbose {
		logLevel = logger.DebugLevel
	}
	logger.Init(&logger.Config{Level: logLevel, Output: os.Stdout, Pretty: true})

	args := flag.Args()
	if len(args) == 0 {
		fmt.Println("Usage: sansible-playbook -i <inventory> <playbook.yml>")
		fmt.Println("Example: sansible-playbook -i hosts.ini site.yml")
		os.Exit(1)
	}
	playbookPath := args[0]

	invMgr := inventory.NewManager()
	if err := invMgr.Load(*inventoryPath); err != nil {
		logger.Errorf("Failed to load inventory: %v", err)
		os.Exit(sansibleerrors.ExitCode(err))
	}
	logger.Debugf("Loaded inventory from %s", *inventoryPath)

	playbookData, err := os.ReadFile(playbookPath)
	if err != nil {
		logger.Errorf("Failed to read playbook: %v", err)
		os.Exit(1)
	}

	pb, err := playbook.ParsePlaybook(playbookData)
	if err != nil {
		logger.Errorf("Failed to parse playbook: %v", err)
		os.Exit(sansibleerrors.ExitCode(err))
	}
	if err := playbook.ValidateSupported(pb); err != nil {
		logger.Errorf("Unsupported playbook construct: %v", err)
		os.Exit(sansibleerrors.ExitCode(sansibleerrors.NewUnsupportedFeatureError(err.Error(), playbookPath)))
	}
	logger.Debugf("Parsed playbook from %s", playbookPath)

	runner := playbook.NewRunner(invMgr, filepath.Dir(playbookPath))
	defer runner.Close()

	runner.SetForks(*forks)
	runner.SetCheckMode(*checkMode)
	runner.SetDiffMode(*diffMode)
	if *jsonOutput {
		runner.SetReporter(reporter.NewJSONReporter(os.Stdout))
	}
	if extra := parseExtraVars(*extraVarsFlag); len(extra) > 0 {
		runner.SetExtraVars(extra)
	}

	if err := runner.Run(pb); err != nil {
		logger.Errorf("Playbook execution failed: %v", err)
		os.Exit(sansibleerrors.ExitCode(err))
	}
}

// parseExtraVars parses the -e flag's key=value,key2=value2 form. A
// bare value with no '=' pairs (not supported here) is left for a
// future --extra-vars @file.yml form.
func parseExtraVars(s string) map[string]interface{} {
	vars := make(map[string]interface{})
	if s == "" {
		return vars
	}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		vars[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return vars
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
