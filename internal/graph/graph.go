package graph

// color marks a node's DFS visitation state for cycle detection.
type color int

const (
	white color = iota
	gray
	black
)

// DetectCycle walks adjacency (job ID -> its dependsOn targets) with a
// three-color DFS and reports the first cycle it finds. Nodes are visited in
// the order iterated from the adjacency map; because a cycle's existence
// doesn't depend on visitation order, this is safe even though Go map
// iteration order is randomized. The returned path lists the cycle's nodes
// in traversal order, closed back to its starting node.
func DetectCycle(adjacency map[string][]string) (cycle []string, found bool) {
	c := make(map[string]color, len(adjacency))

	var dfs func(node string, path []string) ([]string, bool)
	dfs = func(node string, path []string) ([]string, bool) {
		c[node] = gray
		path = append(path, node)

		for _, next := range adjacency[node] {
			switch c[next] {
			case gray:
				start := -1
				for i, p := range path {
					if p == next {
						start = i
						break
					}
				}
				cyclePath := append([]string(nil), path[start:]...)
				cyclePath = append(cyclePath, next)
				return cyclePath, true
			case white:
				if found, ok := dfs(next, path); ok {
					return found, true
				}
			}
		}

		c[node] = black
		return nil, false
	}

	for node := range adjacency {
		if c[node] == white {
			if cyclePath, ok := dfs(node, nil); ok {
				return cyclePath, true
			}
		}
	}
	return nil, false
}

// NodeStatus is the minimal state ReadyJobs needs about a job to decide
// whether its dependents may start; callers translate their own richer
// status enums into this set.
type NodeStatus int

const (
	// StatusPending means the job has not started; it is a ReadyJobs
	// candidate once its deps resolve.
	StatusPending NodeStatus = iota
	// StatusSucceeded means the job completed successfully: dependents
	// consider this edge satisfied.
	StatusSucceeded
	// StatusSkipped means the job was skipped (upstream failure or a false
	// "when" condition): like StatusSucceeded, this still satisfies a
	// dependent's edge — a dependent is not held pending forever just
	// because one ancestor was skipped rather than run.
	StatusSkipped
	// StatusOther covers every other in-flight or terminal state (running,
	// failed, cancelled): a dependent edge on a job in this state is not
	// yet satisfied.
	StatusOther
)

// ReadyJobs returns, from order (the pipeline's declaration order), every
// job ID that is StatusPending and whose every dependsOn target is
// StatusSucceeded or StatusSkipped. The result preserves order's relative
// ordering so scheduling is deterministic for a fixed pipeline and status
// snapshot.
func ReadyJobs(order []string, dependsOn map[string][]string, status map[string]NodeStatus) []string {
	var ready []string
	for _, id := range order {
		if status[id] != StatusPending {
			continue
		}
		blocked := false
		for _, dep := range dependsOn[id] {
			if status[dep] != StatusSucceeded && status[dep] != StatusSkipped {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, id)
		}
	}
	return ready
}
