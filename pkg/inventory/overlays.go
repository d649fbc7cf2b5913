package inventory

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadOverlayDir reads <base>/<name>.yml|.yaml or <base>/<name>/*.yml
// (merged in filename-sorted order), matching the two supported overlay forms
// names for group_vars/host_vars overlays.
func loadOverlayDir(base, name string) (map[string]interface{}, error) {
	result := map[string]interface{}{}

	for _, ext := range []string{".yml", ".yaml"} {
		path := filepath.Join(base, name+ext)
		if data, err := os.ReadFile(path); err == nil {
			var vars map[string]interface{}
			if err := yaml.Unmarshal(data, &vars); err != nil {
				return nil, err
			}
			for k, v := range vars {
				result[k] = v
			}
			return result, nil
		}
	}

	dir := filepath.Join(base, name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return result, nil // no overlay for this name is not an error
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && (strings.HasSuffix(e.Name(), ".yml") || strings.HasSuffix(e.Name(), ".yaml")) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		var vars map[string]interface{}
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, err
		}
		for k, v := range vars {
			result[k] = v
		}
	}
	return result, nil
}

// LoadOverlays walks group_vars/ and host_vars/ under base, returning a
// map keyed by group/host name to its resolved overlay variables.
func LoadOverlays(base string, groupNames, hostNames []string) (groupOverlay, hostOverlay map[string]map[string]interface{}, err error) {
	groupOverlay = map[string]map[string]interface{}{}
	hostOverlay = map[string]map[string]interface{}{}

	groupVarsDir := filepath.Join(base, "group_vars")
	if _, statErr := os.Stat(groupVarsDir); statErr == nil {
		for _, name := range groupNames {
			vars, loadErr := loadOverlayDir(groupVarsDir, name)
			if loadErr != nil {
				return nil, nil, loadErr
			}
			if len(vars) > 0 {
				groupOverlay[name] = vars
			}
		}
	}

	hostVarsDir := filepath.Join(base, "host_vars")
	if _, statErr := os.Stat(hostVarsDir); statErr == nil {
		for _, name := range hostNames {
			vars, loadErr := loadOverlayDir(hostVarsDir, name)
			if loadErr != nil {
				return nil, nil, loadErr
			}
			if len(vars) > 0 {
				hostOverlay[name] = vars
			}
		}
	}

	return groupOverlay, hostOverlay, nil
}
