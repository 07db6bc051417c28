package cluster

import "math"

// merge records one step of the dendrogram. Nodes below n are input points;
// step s creates node n+s.
type merge struct {
	a, b   int
	height float64
	size   int
}

// squaredDistances returns the full matrix of squared Euclidean distances.
func squaredDistances(points [][]float64) [][]float64 {
	n := len(points)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var sum float64
			for k := range points[i] {
				diff := points[i][k] - points[j][k]
				sum += diff * diff
			}
			d[i][j], d[j][i] = sum, sum
		}
	}
	return d
}

// wardLinkage repeatedly merges the closest pair of clusters, updating
// distances with the Lance-Williams recurrence for Ward's criterion. Ties go
// to the lowest node indices. Heights are reported as Euclidean distances.
func wardLinkage(points [][]float64) []merge {
	n := len(points)
	if n < 2 {
		return nil
	}

	nodes := 2*n - 1
	d := make([][]float64, nodes)
	for i := range d {
		d[i] = make([]float64, nodes)
	}
	for i, row := range squaredDistances(points) {
		copy(d[i], row)
	}

	size := make([]int, nodes)
	active := make([]bool, nodes)
	for i := 0; i < n; i++ {
		size[i] = 1
		active[i] = true
	}

	merges := make([]merge, 0, n-1)
	for step := 0; step < n-1; step++ {
		next := n + step

		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < next; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < next; j++ {
				if active[j] && d[i][j] < best {
					bi, bj, best = i, j, d[i][j]
				}
			}
		}

		ni, nj := float64(size[bi]), float64(size[bj])
		for k := 0; k < next; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			nk := float64(size[k])
			v := ((nk+ni)*d[bi][k] + (nk+nj)*d[bj][k] - nk*best) / (nk + ni + nj)
			d[next][k], d[k][next] = v, v
		}

		active[bi], active[bj] = false, false
		active[next] = true
		size[next] = size[bi] + size[bj]

		merges = append(merges, merge{
			a:      bi,
			b:      bj,
			height: math.Sqrt(math.Max(best, 0)),
			size:   size[next],
		})
	}
	return merges
}

// cut labels every input point, joining the two sides of each merge whose
// height is at most threshold. Labels are numbered by first appearance.
func cut(merges []merge, n int, threshold float64) []int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	// rep maps every dendrogram node to one of its input points.
	rep := make([]int, n+len(merges))
	for i := 0; i < n; i++ {
		rep[i] = i
	}
	for step, m := range merges {
		rep[n+step] = rep[m.a]
		if m.height <= threshold {
			ra, rb := find(rep[m.a]), find(rep[m.b])
			if ra != rb {
				parent[rb] = ra
			}
		}
	}

	labels := make([]int, n)
	ids := make(map[int]int)
	for i := 0; i < n; i++ {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels
}
