package inventory

import (
	sansibleerrors "github.com/sansible/sansible/pkg/errors"
)

// detectCycles walks the group Children graph with the classic
// white/gray/black DFS coloring. Cycles in the group graph are invalid
// and must fail at resolver construction time, not later
// during traversal (cycles are rejected, not merely warned about).
func detectCycles(inv *Inventory) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(inv.Groups))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return sansibleerrors.NewParseError("inventory", 0,
				cycleErr(append(path, name)))
		}
		color[name] = gray
		g := inv.Groups[name]
		if g != nil {
			for _, child := range g.Children {
				if err := visit(child, append(path, name)); err != nil {
					return err
				}
			}
		}
		color[name] = black
		return nil
	}

	for name := range inv.Groups {
		if color[name] == white {
			if err := visit(name, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

type cycleError struct{ path []string }

func (e *cycleError) Error() string {
	s := "group cycle: "
	for i, p := range e.path {
		if i > 0 {
			s += " -> "
		}
		s += p
	}
	return s
}

func cycleErr(path []string) error { return &cycleError{path: path} }
