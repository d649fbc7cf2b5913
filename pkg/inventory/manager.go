package inventory

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Manager owns the parsed Inventory plus its group_vars/host_vars
// overlays and resolves per-host variable snapshots (tiers 1-5 of the variable precedence stack).
type Manager struct {
	inventory     *Inventory
	baseDir       string
	groupOverlay  map[string]map[string]interface{}
	hostOverlay   map[string]map[string]interface{}
	extraVars     map[string]interface{}
}

func NewManager() *Manager {
	return &Manager{
		groupOverlay: map[string]map[string]interface{}{},
		hostOverlay:  map[string]map[string]interface{}{},
	}
}

// Load parses a single inventory file, selecting the YAML parser for a
// .yml/.yaml extension and the INI parser otherwise, then loads
// group_vars/host_vars overlays from the file's directory.
func (m *Manager) Load(path string) error {
	var parser Parser
	if strings.HasSuffix(path, ".yml") || strings.HasSuffix(path, ".yaml") {
		parser = NewYAMLParser()
	} else {
		parser = NewINIParser()
	}

	inv, err := parser.Parse(path)
	if err != nil {
		return err
	}
	m.inventory = inv
	m.baseDir = filepath.Dir(path)

	groupNames := make([]string, 0, len(inv.Groups))
	for name := range inv.Groups {
		groupNames = append(groupNames, name)
	}
	hostNames := make([]string, 0, len(inv.Hosts))
	for name := range inv.Hosts {
		hostNames = append(hostNames, name)
	}

	groupOverlay, hostOverlay, err := LoadOverlays(m.baseDir, groupNames, hostNames)
	if err != nil {
		return err
	}
	m.groupOverlay = groupOverlay
	m.hostOverlay = hostOverlay
	return nil
}

// SetExtraVars records --extra-vars; these are folded in by GetContext
// (tier 7) above everything this package resolves.
func (m *Manager) SetExtraVars(vars map[string]interface{}) {
	m.extraVars = vars
}

func (m *Manager) Inventory() *Inventory { return m.inventory }

func (m *Manager) GetHost(name string) (*Host, error) {
	host, exists := m.inventory.Hosts[name]
	if !exists {
		return nil, fmt.Errorf("host not found: %s", name)
	}
	return host, nil
}

// GetHosts resolves a selector pattern to the matching hosts,
// in inventory declaration order. A selector matching zero hosts is not
// an error (it's a warning) — callers decide how to surface it.
func (m *Manager) GetHosts(pattern string) ([]*Host, error) {
	if m.inventory == nil {
		return nil, nil
	}
	return m.inventory.GetHosts(pattern), nil
}

func (m *Manager) GetGroup(name string) (*Group, error) {
	group, exists := m.inventory.Groups[name]
	if !exists {
		return nil, fmt.Errorf("group not found: %s", name)
	}
	return group, nil
}

// GetVars resolves the tiers 1-5 snapshot for host. It does not include
// play vars or --extra-vars; playbook.VariableManager.GetContext layers
// play vars (tier 6) and ExtraVars (tier 7) on top of this snapshot.
func (m *Manager) GetVars(hostName string) (map[string]interface{}, error) {
	host, err := m.GetHost(hostName)
	if err != nil {
		return nil, err
	}
	vars := ResolveHostVars(m.inventory, host, m.groupOverlay, m.hostOverlay)
	return vars, nil
}

func (m *Manager) ExtraVars() map[string]interface{} { return m.extraVars }
