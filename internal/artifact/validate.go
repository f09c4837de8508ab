package artifact

import "fmt"

// Validate checks for an empty metadata section, an empty node union, and
// walks the dependency graph for cycles via iterative DFS with an
// explicit recursion-stack set (no native recursion, so a pathologically
// deep or cyclic graph cannot exhaust the call stack). The result is
// advisory: callers log it but never fail a load on it.
func Validate(b *Bundle) []string {
	var warnings []string

	if b.DbtVersion == "" && b.GeneratedAt == "" {
		warnings = append(warnings, "manifest metadata section is empty (missing dbt_version and generated_at)")
	}

	if len(b.Assets) == 0 {
		warnings = append(warnings, "manifest union of nodes/sources/macros/exposures is empty")
	}

	for _, cyc := range detectCycles(b) {
		warnings = append(warnings, fmt.Sprintf("dependency cycle detected: %v", cyc))
	}

	return warnings
}

// dfsFrame is one stack frame of the iterative cycle-detection DFS.
type dfsFrame struct {
	id    string
	edges []string
	next  int
}

// detectCycles returns one representative cycle (as a slice of ids) per
// strongly-connected loop found via iterative DFS, using an explicit stack
// of (id, next-edge-index) frames instead of native recursion.
func detectCycles(b *Bundle) [][]string {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(b.Assets))
	var cycles [][]string

	for start := range b.Assets {
		if state[start] != unvisited {
			continue
		}

		var stack []dfsFrame
		stack = append(stack, dfsFrame{id: start, edges: b.Assets[start].UniqueDependsOn()})
		state[start] = onStack

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.edges) {
				state[top.id] = done
				stack = stack[:len(stack)-1]
				continue
			}

			next := top.edges[top.next]
			top.next++

			switch state[next] {
			case onStack:
				cycles = append(cycles, cyclePath(stack, next))
			case unvisited:
				if asset, ok := b.Assets[next]; ok {
					state[next] = onStack
					stack = append(stack, dfsFrame{id: next, edges: asset.UniqueDependsOn()})
				}
				// Dangling parent: no asset entry, never traversed.
			}
		}
	}

	return cycles
}

func cyclePath(stack []dfsFrame, target string) []string {
	for i, f := range stack {
		if f.id == target {
			path := make([]string, 0, len(stack)-i+1)
			for _, f2 := range stack[i:] {
				path = append(path, f2.id)
			}
			path = append(path, target)
			return path
		}
	}
	return []string{target}
}
