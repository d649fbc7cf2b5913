package inventory

// Host is a named target of task execution: a stable identity plus the
// variable mapping used for connection parameters and templating. Once
// parsed, a Host's fields are immutable; set_fact/register live in the
// runner's per-host context, not here.
type Host struct {
	Name   string
	Vars   map[string]interface{}
	Groups []string // group names this host belongs to, in first-seen order
}

// Group is a named set of hosts and/or child groups. Children/Parents
// track the inheritance DAG used for both transitive membership and the
// child-overrides-parent variable precedence rule.
type Group struct {
	Name     string
	Hosts    []string
	Children []string
	Parents  []string
	Vars     map[string]interface{}
}

// Inventory holds the parsed host/group graph. GroupVarsDir/HostVarsDir
// overlays are loaded separately by Manager and folded into each host's
// resolved variable snapshot at GetContext time.
type Inventory struct {
	Hosts  map[string]*Host
	Groups map[string]*Group
}

func NewInventory() *Inventory {
	inv := &Inventory{
		Hosts:  make(map[string]*Host),
		Groups: make(map[string]*Group),
	}
	inv.Groups["all"] = &Group{Name: "all", Vars: map[string]interface{}{}}
	inv.Groups["ungrouped"] = &Group{Name: "ungrouped", Vars: map[string]interface{}{}, Parents: []string{"all"}}
	return inv
}

// EnsureGroup returns the named group, creating it (with no parent
// links) if it doesn't exist yet.
func (inv *Inventory) EnsureGroup(name string) *Group {
	if g, ok := inv.Groups[name]; ok {
		return g
	}
	g := &Group{Name: name, Vars: map[string]interface{}{}}
	inv.Groups[name] = g
	return g
}

// EnsureHost returns the named host, creating it if it doesn't exist yet.
func (inv *Inventory) EnsureHost(name string) *Host {
	if h, ok := inv.Hosts[name]; ok {
		return h
	}
	h := &Host{Name: name, Vars: map[string]interface{}{}}
	inv.Hosts[name] = h
	// Record declaration order on "all" as hosts are first seen.
	if all, ok := inv.Groups["all"]; ok && !containsStr(all.Hosts, name) {
		all.Hosts = append(all.Hosts, name)
	}
	return h
}

// AddChild records that child belongs to parent, wiring both directions.
func (inv *Inventory) AddChild(parent, child string) {
	p := inv.EnsureGroup(parent)
	c := inv.EnsureGroup(child)
	if !containsStr(p.Children, child) {
		p.Children = append(p.Children, child)
	}
	if !containsStr(c.Parents, parent) {
		c.Parents = append(c.Parents, parent)
	}
}

// AddHostToGroup records host membership in group, and implicitly in all
// of that group's ancestors.
func (inv *Inventory) AddHostToGroup(hostName, groupName string) {
	h := inv.EnsureHost(hostName)
	g := inv.EnsureGroup(groupName)
	if !containsStr(g.Hosts, hostName) {
		g.Hosts = append(g.Hosts, hostName)
	}
	if !containsStr(h.Groups, groupName) {
		h.Groups = append(h.Groups, groupName)
	}
}

// Finalize ensures every host is a member of "all", and of "ungrouped"
// when it belongs to no user-defined group, matching ansible's implicit-group rules.
func (inv *Inventory) Finalize() error {
	if err := detectCycles(inv); err != nil {
		return err
	}
	for name, h := range inv.Hosts {
		if !containsStr(h.Groups, "all") {
			inv.AddHostToGroup(name, "all")
		}
		hasExplicit := false
		for _, g := range h.Groups {
			if g != "all" && g != "ungrouped" {
				hasExplicit = true
				break
			}
		}
		if !hasExplicit {
			inv.AddHostToGroup(name, "ungrouped")
		}
	}
	return nil
}

func containsStr(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
