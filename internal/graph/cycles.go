package graph

// SimpleCycles enumerates elementary cycles (Johnson's algorithm with
// explicit stacks). Each cycle is returned as the node sequence
// [v0, v1, ..., vk] whose closing edge is vk->v0; self-loops come back as
// one-element cycles. Enumeration stops after limit cycles when limit > 0
// and the second return value is then false.
func (g *Graph) SimpleCycles(limit int) ([][]string, bool) {
	var cycles [][]string
	emit := func(c []string) bool {
		cycles = append(cycles, append([]string(nil), c...))
		return limit <= 0 || len(cycles) < limit
	}

	order := g.Nodes()
	pos := make(map[string]int, len(order))
	for i, n := range order {
		pos[n] = i
	}

	for si, start := range order {
		// subgraph induced by nodes at position >= si
		inSub := func(n string) bool { return pos[n] >= si }

		if g.HasEdge(start, start) {
			if !emit([]string{start}) {
				return cycles, false
			}
		}

		blocked := map[string]bool{start: true}
		blockMap := map[string]map[string]bool{}
		path := []string{start}

		type frame struct {
			node  string
			succ  []string
			i     int
			found bool
		}
		succOf := func(n string) []string {
			var res []string
			for _, m := range g.out[n] {
				if m != n && inSub(m) {
					res = append(res, m)
				}
			}
			return res
		}
		var unblock func(string)
		unblock = func(n string) {
			stack := []string{n}
			for len(stack) > 0 {
				u := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if !blocked[u] {
					continue
				}
				blocked[u] = false
				for w := range blockMap[u] {
					delete(blockMap[u], w)
					stack = append(stack, w)
				}
			}
		}

		stack := []*frame{{node: start, succ: succOf(start)}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.i < len(top.succ) {
				next := top.succ[top.i]
				top.i++
				if next == start {
					if !emit(path) {
						return cycles, false
					}
					top.found = true
					continue
				}
				if !blocked[next] {
					blocked[next] = true
					path = append(path, next)
					stack = append(stack, &frame{node: next, succ: succOf(next)})
				}
				continue
			}

			// all successors explored
			stack = stack[:len(stack)-1]
			if top.found {
				unblock(top.node)
			} else {
				for _, w := range top.succ {
					if blockMap[w] == nil {
						blockMap[w] = map[string]bool{}
					}
					blockMap[w][top.node] = true
				}
			}
			path = path[:len(path)-1]
			if len(stack) > 0 && top.found {
				stack[len(stack)-1].found = true
			}
		}
	}
	return cycles, true
}
