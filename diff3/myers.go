package diff3

// opKind classifies one element of a Myers edit script.
type opKind int

const (
	opIns opKind = iota + 1
	opDel
	opEql
)

// op is one element of the edit script turning a into b. aIndex/bIndex are
// -1 when not applicable to this op's kind.
type op struct {
	aIndex, bIndex int
	kind           opKind
}

// myers computes the shortest edit script from a to b using the Myers
// O(ND) algorithm, adapted from myersDifferer in myers_differer.go to
// operate directly on line slices (the original's fileLine.number was
// always equal to the line's index, so carrying it alongside the text was
// redundant once diff3 stopped needing a separate numbering scheme).
func myers(a, b []string, eq func(string, string) bool) []op {
	trace := myersTrace(a, b, eq)
	return backtrack(a, b, trace)
}

func myersTrace(a, b []string, eq func(string, string) bool) [][]int {
	n, m := len(a), len(b)
	max := n + m
	vLen := 2*max + 1
	v := make([]int, vLen)

	idx := func(k int) int { return k + max }

	var trace [][]int
	for d := 0; d <= max; d++ {
		for k := -d; k <= d; k += 2 {
			var x int

			if k == -d || (k != d && v[idx(k-1)] < v[idx(k+1)]) {
				x = v[idx(k+1)]
			} else {
				x = v[idx(k-1)] + 1
			}

			y := x - k

			for x < n && y < m && eq(a[x], b[y]) {
				x++
				y++
			}

			v[idx(k)] = x

			if x >= n && y >= m {
				snap := make([]int, vLen)
				copy(snap, v)
				trace = append(trace, snap)
				return trace
			}
		}

		snap := make([]int, vLen)
		copy(snap, v)
		trace = append(trace, snap)
	}

	return trace
}

func backtrack(a, b []string, trace [][]int) []op {
	n, m := len(a), len(b)
	max := n + m
	idx := func(k int) int { return k + max }

	x, y := n, m
	var ops []op

	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[idx(k-1)] < v[idx(k+1)]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}

		prevX := v[idx(prevK)]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			ops = append(ops, op{aIndex: x - 1, bIndex: y - 1, kind: opEql})
			x--
			y--
		}

		if d > 0 {
			if x == prevX {
				ops = append(ops, op{aIndex: -1, bIndex: prevY, kind: opIns})
			} else {
				ops = append(ops, op{aIndex: prevX, bIndex: -1, kind: opDel})
			}
		}

		x, y = prevX, prevY
	}

	// ops was built end-to-start; reverse it into document order.
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	return ops
}
