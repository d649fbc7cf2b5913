package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	sansibleerrors "github.com/sansible/sansible/pkg/errors"
)

// YAMLParser parses the hierarchical document format: a tree of
// group -> {hosts, vars, children} with the same semantics as the INI
// format (the hosts/vars/children tree form).
type YAMLParser struct{}

func NewYAMLParser() *YAMLParser { return &YAMLParser{} }

type yamlGroupNode struct {
	Hosts    map[string]map[string]interface{} `yaml:"hosts"`
	Vars     map[string]interface{}            `yaml:"vars"`
	Children map[string]yamlGroupNode          `yaml:"children"`
}

type yamlDoc map[string]yamlGroupNode

func (p *YAMLParser) Parse(filePath string) (*Inventory, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, sansibleerrors.NewParseError(filePath, 0, err)
	}

	inv := NewInventory()
	for name, node := range doc {
		p.loadGroup(inv, name, node)
	}

	if err := inv.Finalize(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (p *YAMLParser) loadGroup(inv *Inventory, name string, node yamlGroupNode) {
	g := inv.EnsureGroup(name)
	for k, v := range node.Vars {
		g.Vars[k] = v
	}
	for hostPattern, hostVars := range node.Hosts {
		names, err := ExpandHostRange(hostPattern)
		if err != nil {
			names = []string{hostPattern}
		}
		for _, hn := range names {
			host := inv.EnsureHost(hn)
			for k, v := range hostVars {
				host.Vars[k] = v
			}
			inv.AddHostToGroup(hn, name)
		}
	}
	for childName, childNode := range node.Children {
		inv.AddChild(name, childName)
		p.loadGroup(inv, childName, childNode)
	}
}
