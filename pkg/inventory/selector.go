package inventory

import (
	"path/filepath"
	"sort"
	"strings"
)

// GetHosts evaluates a host-selector pattern: a
// comma-separated list of terms, each a group name, host name, shell-style
// wildcard, the literal "all", or a "!term" (subtract) / "&term"
// (intersect) modifier. Terms are evaluated left to right; the result
// preserves inventory declaration order. A selector matching zero hosts
// is valid (the caller decides whether that's a warning).
func (inv *Inventory) GetHosts(pattern string) []*Host {
	declOrder := inv.declarationOrder()

	if strings.TrimSpace(pattern) == "" {
		pattern = "all"
	}
	terms := splitTerms(pattern)

	var result []string // host names, in declaration order, deduped
	inResult := map[string]bool{}

	addAll := func(names []string) {
		for _, n := range names {
			if !inResult[n] {
				inResult[n] = true
				result = append(result, n)
			}
		}
	}
	removeAll := func(names []string) {
		rm := map[string]bool{}
		for _, n := range names {
			rm[n] = true
		}
		filtered := result[:0]
		for _, n := range result {
			if !rm[n] {
				filtered = append(filtered, n)
			} else {
				inResult[n] = false
			}
		}
		result = filtered
	}
	intersectAll := func(names []string) {
		keep := map[string]bool{}
		for _, n := range names {
			keep[n] = true
		}
		filtered := result[:0]
		for _, n := range result {
			if keep[n] {
				filtered = append(filtered, n)
			} else {
				inResult[n] = false
			}
		}
		result = filtered
	}

	for _, term := range terms {
		switch {
		case strings.HasPrefix(term, "!"):
			removeAll(inv.matchTerm(term[1:], declOrder))
		case strings.HasPrefix(term, "&"):
			intersectAll(inv.matchTerm(term[1:], declOrder))
		default:
			addAll(inv.matchTerm(term, declOrder))
		}
	}

	// Terms add hosts in match order; restore declaration order.
	pos := make(map[string]int, len(declOrder))
	for i, n := range declOrder {
		pos[n] = i
	}
	sort.SliceStable(result, func(i, j int) bool { return pos[result[i]] < pos[result[j]] })

	hosts := make([]*Host, 0, len(result))
	for _, n := range result {
		if h, ok := inv.Hosts[n]; ok {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func splitTerms(pattern string) []string {
	parts := strings.Split(pattern, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// declarationOrder returns host names in a stable order approximating
// inventory declaration order: group "all"'s host list, which records
// insertion order as hosts are parsed.
func (inv *Inventory) declarationOrder() []string {
	if all, ok := inv.Groups["all"]; ok {
		return all.Hosts
	}
	names := make([]string, 0, len(inv.Hosts))
	for n := range inv.Hosts {
		names = append(names, n)
	}
	return names
}

func (inv *Inventory) matchTerm(term string, declOrder []string) []string {
	if term == "all" {
		return declOrder
	}
	if g, ok := inv.Groups[term]; ok {
		return inv.collectGroupHosts(g.Name, map[string]bool{})
	}
	if _, ok := inv.Hosts[term]; ok {
		return []string{term}
	}
	if strings.ContainsAny(term, "*?[]") {
		var matched []string
		for _, n := range declOrder {
			if ok, _ := filepath.Match(term, n); ok {
				matched = append(matched, n)
			}
		}
		return matched
	}
	return nil
}

// collectGroupHosts recursively gathers every host in a group and its
// descendant child groups, guarding against revisiting a group twice.
func (inv *Inventory) collectGroupHosts(groupName string, visited map[string]bool) []string {
	if visited[groupName] {
		return nil
	}
	visited[groupName] = true
	g, ok := inv.Groups[groupName]
	if !ok {
		return nil
	}
	var out []string
	out = append(out, g.Hosts...)
	for _, child := range g.Children {
		out = append(out, inv.collectGroupHosts(child, visited)...)
	}
	return out
}
