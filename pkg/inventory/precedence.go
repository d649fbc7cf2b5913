package inventory

import "sort"

// groupDepths computes each group's BFS distance from "all" along the
// Children edges ("all" is depth 0). Used to order group-var application
// so that child groups are applied (and therefore win ties) after their
// parents.
func groupDepths(inv *Inventory) map[string]int {
	depth := map[string]int{"all": 0}
	queue := []string{"all"}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		g := inv.Groups[name]
		if g == nil {
			continue
		}
		for _, child := range g.Children {
			if _, seen := depth[child]; !seen {
				depth[child] = depth[name] + 1
				queue = append(queue, child)
			}
		}
	}
	for name := range inv.Groups {
		if _, ok := depth[name]; !ok {
			depth[name] = 1 // unreachable from "all" by Children edges (e.g. only host-assigned)
		}
	}
	return depth
}

// ancestorClosure returns every group a host's own groups transitively
// belong to via Parents, plus the host's own groups, deduplicated.
func ancestorClosure(inv *Inventory, host *Host) []string {
	seen := map[string]bool{}
	var queue []string
	queue = append(queue, host.Groups...)
	for _, g := range host.Groups {
		seen[g] = true
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		g := inv.Groups[name]
		if g == nil {
			continue
		}
		for _, parent := range g.Parents {
			if !seen[parent] {
				seen[parent] = true
				queue = append(queue, parent)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	return out
}

// ResolveHostVars computes the resolver-owned variable snapshot for host
// : all-group vars, then other applicable groups
// (child overrides parent, alphabetical sibling tie-break), then
// group_vars/* overlay, then inventory host vars, then host_vars/*
// overlay. Tiers 6-8 (play vars, extra-vars, runtime set_fact/register)
// are the runner's responsibility, applied on top of this snapshot.
func ResolveHostVars(inv *Inventory, host *Host, groupVarsOverlay, hostVarsOverlay map[string]map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{}

	// Tier 1: group "all"
	if all, ok := inv.Groups["all"]; ok {
		shallowMerge(merged, all.Vars)
	}

	// Tier 2: other applicable groups, child-overrides-parent, sibling
	// ties broken alphabetically by group name.
	depths := groupDepths(inv)
	others := ancestorClosure(inv, host)
	sort.Slice(others, func(i, j int) bool {
		di, dj := depths[others[i]], depths[others[j]]
		if di != dj {
			return di < dj
		}
		return others[i] < others[j]
	})
	for _, name := range others {
		if name == "all" {
			continue
		}
		if g, ok := inv.Groups[name]; ok {
			shallowMerge(merged, g.Vars)
		}
	}

	// Tier 3: group_vars/* overlay, applied in the same group order
	// ("all" first) so a child group's overlay still overrides a parent's.
	overlayOrder := append([]string{"all"}, others...)
	for _, name := range overlayOrder {
		if overlay, ok := groupVarsOverlay[name]; ok {
			shallowMerge(merged, overlay)
		}
	}

	// Tier 4: host vars from inventory.
	shallowMerge(merged, host.Vars)

	// Tier 5: host_vars/* overlay.
	if overlay, ok := hostVarsOverlay[host.Name]; ok {
		shallowMerge(merged, overlay)
	}

	return merged
}

// shallowMerge merges with later-wins-on-key semantics
// collision; maps shallow-merge; lists replace wholesale.
func shallowMerge(dst, src map[string]interface{}) {
	for k, v := range src {
		if existing, ok := dst[k]; ok {
			if em, ok1 := existing.(map[string]interface{}); ok1 {
				if sm, ok2 := v.(map[string]interface{}); ok2 {
					merged := map[string]interface{}{}
					shallowMerge(merged, em)
					shallowMerge(merged, sm)
					dst[k] = merged
					continue
				}
			}
		}
		dst[k] = v
	}
}
