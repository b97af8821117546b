package engine

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// Targets returns every terminal-reward cell on the grid
func Targets(g *Grid) []Position {
	return append(g.Find(FakeLava), g.Find(Goal)...)
}

// ShortestPath returns the number of moves needed to walk from start onto
// any terminal-reward cell, ignoring turns. It returns -1 when none is
// reachable. Lava and walls are never entered.
func ShortestPath(g *Grid, start Position) int {
	if !g.InBounds(start.X, start.Y) {
		return -1
	}
	dist := make([]int, g.Width()*g.Height())
	for i := range dist {
		dist[i] = -1
	}
	idx := func(p Position) int { return p.Y*g.Width() + p.X }

	queue := []Position{start}
	dist[idx(start)] = 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if g.At(cur).Terminal() {
			return dist[idx(cur)]
		}
		for _, v := range dirToVec {
			next := cur.Add(v)
			if !g.InBounds(next.X, next.Y) || g.At(next).Blocking() || dist[idx(next)] >= 0 {
				continue
			}
			dist[idx(next)] = dist[idx(cur)] + 1
			queue = append(queue, next)
		}
	}
	return -1
}

// Reachable counts the non-blocking cells reachable from start.
func Reachable(g *Grid, start Position) int {
	if !g.InBounds(start.X, start.Y) || g.At(start).Blocking() {
		return 0
	}
	seen := make(map[Position]bool)
	stack := []Position{start}
	seen[start] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, v := range dirToVec {
			next := cur.Add(v)
			if seen[next] || !g.InBounds(next.X, next.Y) || g.At(next).Blocking() {
				continue
			}
			seen[next] = true
			stack = append(stack, next)
		}
	}
	return len(seen)
}

// CountKinds tallies the grid by cell kind.
func CountKinds(g *Grid) map[CellKind]int {
	counts := make(map[CellKind]int)
	for y := 0; y < g.Height(); y++ {
		for x := 0; x < g.Width(); x++ {
			c, _ := g.Get(x, y)
			counts[c.Kind]++
		}
	}
	return counts
}
