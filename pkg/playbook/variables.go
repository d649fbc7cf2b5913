package playbook

import (
	"github.com/sansible/sansible/pkg/inventory"
)

// VariableManager layers the variable-precedence tiers the inventory
// package doesn't own: play vars (6; a play's vars_files list is not
// loaded), extra-vars (7), and runtime set_fact/register (8), on top of
// the inventory's tiers 1-5 snapshot (inventory.Manager.GetVars).
type VariableManager struct {
	inventory      *inventory.Manager
	playVars       map[string]interface{}
	registeredVars map[string]map[string]interface{} // hostname -> vars
	playHosts      []string
}

// NewVariableManager creates a variable manager bound to an inventory.
func NewVariableManager(inv *inventory.Manager) *VariableManager {
	return &VariableManager{
		inventory:      inv,
		playVars:       make(map[string]interface{}),
		registeredVars: make(map[string]map[string]interface{}),
	}
}

// SetPlayVars records a play's `vars:` block (tier 6).
func (vm *VariableManager) SetPlayVars(vars map[string]interface{}) {
	vm.playVars = vars
}

// SetPlayHosts records the play's resolved host list, exposed to
// templates as ansible_play_hosts/ansible_play_batch.
func (vm *VariableManager) SetPlayHosts(hosts []string) {
	vm.playHosts = hosts
}

// SetHostVar records a single register/set_fact result (tier 8).
func (vm *VariableManager) SetHostVar(hostname, key string, value interface{}) {
	if vm.registeredVars[hostname] == nil {
		vm.registeredVars[hostname] = make(map[string]interface{})
	}
	vm.registeredVars[hostname][key] = value
}

// SetHostVars bulk-records facts gathered for a host (tier 8).
func (vm *VariableManager) SetHostVars(hostname string, vars map[string]interface{}) {
	if vm.registeredVars[hostname] == nil {
		vm.registeredVars[hostname] = make(map[string]interface{})
	}
	for k, v := range vars {
		vm.registeredVars[hostname][k] = v
	}
}

// GetHostVar looks up a single variable through the full precedence
// stack, highest tier first.
func (vm *VariableManager) GetHostVar(hostname, key string) (interface{}, bool) {
	if hostVars, ok := vm.registeredVars[hostname]; ok {
		if value, exists := hostVars[key]; exists {
			return value, true
		}
	}
	if vm.inventory != nil {
		if value, ok := vm.inventory.ExtraVars()[key]; ok {
			return value, true
		}
	}
	if value, ok := vm.playVars[key]; ok {
		return value, true
	}
	if vm.inventory != nil {
		if vars, err := vm.inventory.GetVars(hostname); err == nil {
			if value, ok := vars[key]; ok {
				return value, true
			}
		}
	}
	return nil, false
}

// GetContext builds the full variable snapshot for templating a task
// on the given host: inventory tiers 1-5, then play vars (6), extra
// vars (7), then registered vars (8), with magic variables layered on
// top of all of it.
func (vm *VariableManager) GetContext(hostname string) map[string]interface{} {
	context := make(map[string]interface{})

	if vm.inventory != nil {
		if resolved, err := vm.inventory.GetVars(hostname); err == nil {
			for k, v := range resolved {
				context[k] = v
			}
		}
	}

	for k, v := range vm.playVars {
		context[k] = v
	}

	if vm.inventory != nil {
		for k, v := range vm.inventory.ExtraVars() {
			context[k] = v
		}
	}

	if hostVars, ok := vm.registeredVars[hostname]; ok {
		for k, v := range hostVars {
			context[k] = v
		}
	}

	context["inventory_hostname"] = hostname
	if ansibleHost, ok := context["ansible_host"]; !ok || ansibleHost == nil {
		context["ansible_host"] = hostname
	}

	context["hostvars"] = vm.buildHostvars()
	context["groups"] = vm.buildGroups()
	context["group_names"] = vm.getGroupNames(hostname)

	if len(vm.playHosts) > 0 {
		context["ansible_play_hosts"] = vm.playHosts
		context["ansible_play_batch"] = vm.playHosts
	}

	return context
}

// ClearRegisteredVars drops all register/set_fact state, called at the
// start of a new play.
func (vm *VariableManager) ClearRegisteredVars() {
	vm.registeredVars = make(map[string]map[string]interface{})
}

// buildHostvars implements the hostvars magic variable: every host's
// own resolved context, keyed by name.
func (vm *VariableManager) buildHostvars() map[string]interface{} {
	hostvars := make(map[string]interface{})
	if vm.inventory == nil {
		return hostvars
	}

	allHosts, err := vm.inventory.GetHosts("all")
	if err != nil {
		return hostvars
	}

	for _, host := range allHosts {
		hostContext := make(map[string]interface{})
		if resolved, err := vm.inventory.GetVars(host.Name); err == nil {
			for k, v := range resolved {
				hostContext[k] = v
			}
		}
		for k, v := range vm.playVars {
			hostContext[k] = v
		}
		if hostVars, ok := vm.registeredVars[host.Name]; ok {
			for k, v := range hostVars {
				hostContext[k] = v
			}
		}
		hostContext["inventory_hostname"] = host.Name
		if _, ok := hostContext["ansible_host"]; !ok {
			hostContext["ansible_host"] = host.Name
		}
		hostvars[host.Name] = hostContext
	}

	return hostvars
}

// buildGroups implements the groups magic variable: every group name
// mapped to its member host names.
func (vm *VariableManager) buildGroups() map[string]interface{} {
	groups := make(map[string]interface{})
	if vm.inventory == nil {
		return groups
	}

	inv := vm.inventory.Inventory()
	if inv == nil {
		return groups
	}

	for name, group := range inv.Groups {
		names := make([]string, len(group.Hosts))
		copy(names, group.Hosts)
		groups[name] = names
	}

	return groups
}

// getGroupNames implements the group_names magic variable.
func (vm *VariableManager) getGroupNames(hostname string) []string {
	host, err := vm.inventory.GetHost(hostname)
	if err != nil {
		return []string{}
	}
	return host.Groups
}
