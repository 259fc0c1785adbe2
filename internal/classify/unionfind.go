package classify

// unionFind is a disjoint-set structure over dense indexes with path
// compression and union by rank. It partitions an entity set's records into
// equivalence classes.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x]) // path compression
	}
	return uf.parent[x]
}

func (uf *unionFind) union(x, y int) {
	rx, ry := uf.find(x), uf.find(y)
	if rx == ry {
		return
	}
	switch {
	case uf.rank[rx] < uf.rank[ry]:
		uf.parent[rx] = ry
	case uf.rank[rx] > uf.rank[ry]:
		uf.parent[ry] = rx
	default:
		uf.parent[ry] = rx
		uf.rank[rx]++
	}
}

// components returns the disjoint sets as index slices, each sorted
// ascending, ordered by their smallest member.
func (uf *unionFind) components() [][]int {
	byRoot := make(map[int][]int)
	for i := range uf.parent {
		root := uf.find(i)
		byRoot[root] = append(byRoot[root], i)
	}
	out := make([][]int, 0, len(byRoot))
	for i := range uf.parent {
		if uf.find(i) == i {
			out = append(out, byRoot[i])
		}
	}
	// Roots are visited in index order but a root need not be its set's
	// smallest member; sort by that member for a stable discovery order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j][0] < out[j-1][0]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
