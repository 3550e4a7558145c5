package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/timeline/internal/ir"
)

// CycleWarning reports a loop in the sync graph.
//
// Loops are warnings, not errors: authored timelines use them for repeated
// sections that a trigger eventually exits.
type CycleWarning struct {
	Path    []string `json:"path"`    // e.g. ["s1", "s2", "s1"]
	Message string   `json:"message"` // human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeCycles finds loops in the graph whose nodes are syncs and whose
// edges are intervals (from the start event's sync to the end event's sync).
//
// The algorithm:
//  1. Build the sync → sync graph, nodes and edges in authoring order
//  2. Run Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with more than one node, or a self-loop, as a warning
//
// Dangling references are skipped; Validate reports them. An acyclic graph
// returns an empty list.
func AnalyzeCycles(doc *ir.Document) []CycleWarning {
	g := buildSyncGraph(doc)

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			warnings = append(warnings, cycleSCCToWarning(scc, g))
		}
	}
	if warnings == nil {
		return []CycleWarning{}
	}
	return warnings
}

// syncGraph keeps node order so that results are deterministic.
type syncGraph struct {
	nodes []string
	edges map[string][]string
}

func buildSyncGraph(doc *ir.Document) *syncGraph {
	idx := indexDocument(doc)
	g := &syncGraph{edges: make(map[string][]string)}

	for _, s := range idx.syncs {
		if _, ok := g.edges[s.ID]; ok {
			continue
		}
		g.nodes = append(g.nodes, s.ID)
		g.edges[s.ID] = []string{}
	}

	for _, itv := range doc.Intervals {
		from, _, okFrom := idx.resolve(itv.From)
		to, _, okTo := idx.resolve(itv.To)
		if !okFrom || !okTo {
			continue
		}
		g.edges[from] = append(g.edges[from], to)
	}
	return g
}

func hasSelfLoop(node string, g *syncGraph) bool {
	for _, n := range g.edges[node] {
		if n == node {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of g.
func tarjanSCC(g *syncGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC: pop it.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(scc []string, g *syncGraph) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("Interval loops on sync: %s → %s", id, id),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Loop between syncs: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its earliest authored
// node until it returns there.
func reconstructCyclePath(scc []string, g *syncGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}

	var start string
	for _, n := range g.nodes {
		if members[n] {
			start = n
			break
		}
	}

	path := []string{start}
	visited := map[string]bool{}
	current := start
	for {
		visited[current] = true

		var next string
		for _, n := range g.edges[current] {
			if members[n] && (!visited[n] || n == start) {
				next = n
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
