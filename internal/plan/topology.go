package plan

// ParallelGroup is the set of steps sharing one dependency depth.
// ConcurrentStepIDs is the subset whose concurrent flag is not explicitly
// false; the compiler runs that subset in parallel.
type ParallelGroup struct {
	Depth             int      `json:"depth"`
	StepIDs           []string `json:"step_ids"`
	ConcurrentStepIDs []string `json:"concurrent_step_ids"`
}

// CriticalPath is the longest dependency chain in the plan. Length counts
// steps, not edges: a three-step chain has length 3.
type CriticalPath struct {
	StepIDs []string `json:"step_ids"`
	Length  int      `json:"length"`
}

// TopologyAnalysis is the fully derived, immutable ordering structure of a
// plan. It is recomputed from scratch whenever the plan changes; there is no
// incremental update path.
type TopologyAnalysis struct {
	// TopologicalOrder is one valid linearization of the step DAG. Ties are
	// broken by step declaration order, making the output deterministic for
	// a given plan.
	TopologicalOrder []string `json:"topological_order"`

	// ParallelGroups partitions steps by depth, ascending.
	ParallelGroups []ParallelGroup `json:"parallel_groups"`

	// CriticalPath is the longest dependency chain.
	CriticalPath CriticalPath `json:"critical_path"`

	// EntryPoints are steps with no dependencies; ExitPoints are steps no
	// other step depends on.
	EntryPoints []string `json:"entry_points"`
	ExitPoints  []string `json:"exit_points"`

	// DepthMap gives each step's depth: the length in edges of the longest
	// path from any entry point.
	DepthMap map[string]int `json:"depth_map"`

	// DependentCount gives the number of direct dependents per step, for
	// fan-in detection.
	DependentCount map[string]int `json:"dependent_count"`
}

// Analyze computes the topology of an acyclic plan: topological order,
// depths, parallel groups, critical path, entry/exit points, and dependent
// counts.
//
// The caller must validate the plan first. On a cyclic plan the behavior is
// undefined: Kahn's algorithm silently drops the cycle members from the
// ordering rather than detecting the cycle.
func Analyze(p *Plan) *TopologyAnalysis {
	ids := stepIDs(p)

	// Adjacency in both directions, built in declaration order so every
	// derived structure is deterministic.
	dependencies := make(map[string][]string, len(ids))
	dependents := make(map[string][]string, len(ids))
	for i := range p.Steps {
		step := &p.Steps[i]
		dependencies[step.ID] = append([]string(nil), step.DependencyIDs...)
		for _, depID := range step.DependencyIDs {
			dependents[depID] = append(dependents[depID], step.ID)
		}
	}

	order := topologicalOrder(ids, dependencies, dependents)
	depths := depthMap(order, dependencies)

	analysis := &TopologyAnalysis{
		TopologicalOrder: order,
		ParallelGroups:   parallelGroups(p, depths),
		CriticalPath:     criticalPath(order, dependencies),
		EntryPoints:      []string{},
		ExitPoints:       []string{},
		DepthMap:         depths,
		DependentCount:   make(map[string]int, len(ids)),
	}

	for _, id := range ids {
		if len(dependencies[id]) == 0 {
			analysis.EntryPoints = append(analysis.EntryPoints, id)
		}
		if len(dependents[id]) == 0 {
			analysis.ExitPoints = append(analysis.ExitPoints, id)
		}
		analysis.DependentCount[id] = len(dependents[id])
	}

	return analysis
}

// topologicalOrder runs Kahn's algorithm: seed a queue with zero-in-degree
// steps, pop, append, decrement dependents, enqueue newly free steps.
func topologicalOrder(ids []string, dependencies, dependents map[string][]string) []string {
	inDegree := make(map[string]int, len(ids))
	for _, id := range ids {
		inDegree[id] = len(dependencies[id])
	}

	queue := make([]string, 0, len(ids))
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(ids))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	return order
}

// depthMap assigns each step the length of the longest path reaching it:
// zero for entry points, otherwise one past its deepest dependency.
func depthMap(order []string, dependencies map[string][]string) map[string]int {
	depths := make(map[string]int, len(order))
	for _, id := range order {
		depth := 0
		for _, depID := range dependencies[id] {
			if d := depths[depID] + 1; d > depth {
				depth = d
			}
		}
		depths[id] = depth
	}
	return depths
}

// parallelGroups partitions steps by depth, ascending, preserving
// declaration order within each group.
func parallelGroups(p *Plan, depths map[string]int) []ParallelGroup {
	maxDepth := -1
	for _, d := range depths {
		if d > maxDepth {
			maxDepth = d
		}
	}

	groups := make([]ParallelGroup, 0, maxDepth+1)
	for depth := 0; depth <= maxDepth; depth++ {
		group := ParallelGroup{
			Depth:             depth,
			StepIDs:           []string{},
			ConcurrentStepIDs: []string{},
		}
		for i := range p.Steps {
			step := &p.Steps[i]
			if depths[step.ID] != depth {
				continue
			}
			group.StepIDs = append(group.StepIDs, step.ID)
			if step.IsConcurrent() {
				group.ConcurrentStepIDs = append(group.ConcurrentStepIDs, step.ID)
			}
		}
		groups = append(groups, group)
	}

	return groups
}

// criticalPath runs a forward dynamic program over the topological order:
// dist[step] is the longest chain of edges ending at step, with the chosen
// predecessor recorded for reconstruction. The endpoint is the node with the
// maximum dist; ties go to the LAST such node encountered during the scan,
// which keeps the output deterministic. No longest path is more critical
// than another.
func criticalPath(order []string, dependencies map[string][]string) CriticalPath {
	if len(order) == 0 {
		return CriticalPath{StepIDs: []string{}}
	}

	dist := make(map[string]int, len(order))
	pred := make(map[string]string, len(order))

	endpoint := ""
	best := -1
	for _, id := range order {
		for _, depID := range dependencies[id] {
			if d := dist[depID] + 1; d > dist[id] {
				dist[id] = d
				pred[id] = depID
			}
		}
		if dist[id] >= best {
			best = dist[id]
			endpoint = id
		}
	}

	path := []string{}
	for cur := endpoint; cur != ""; cur = pred[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return CriticalPath{StepIDs: path, Length: len(path)}
}
