package milp

import (
	"context"
	"math"
	"time"
)

const intTol = 1e-6

// BranchBound is a depth-first branch-and-bound engine over the binary
// variables of a model, with LP relaxations solved by the dense simplex.
type BranchBound struct{}

func NewBranchBound() *BranchBound {
	return &BranchBound{}
}

type bbNode struct {
	lo, hi []float64
	// bound is the parent relaxation objective, a valid lower bound for
	// every descendant.
	bound float64
}

// Solve implements Solver. A non-positive budget means no deadline.
func (b *BranchBound) Solve(ctx context.Context, m *Model, budget time.Duration, gapTol float64) Result {
	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}

	n := m.NumVars()
	rootLo := make([]float64, n)
	rootHi := make([]float64, n)
	for i := 0; i < n; i++ {
		v := m.Var(i)
		rootLo[i] = v.Lower
		rootHi[i] = v.Upper
	}

	res := Result{Status: StatusInfeasible}
	incumbent := math.Inf(1)
	stack := []bbNode{{lo: rootLo, hi: rootHi, bound: math.Inf(-1)}}
	root := true

	for len(stack) > 0 {
		if ctx.Err() != nil || (!deadline.IsZero() && time.Now().After(deadline)) {
			res.Status = StatusTimedOut
			res.Gap = relGap(incumbent, openBound(stack, incumbent))
			return res
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.bound >= incumbent-1e-9 {
			continue
		}
		lp := solveRelaxation(m, node.lo, node.hi)
		res.Nodes++
		res.LPIterations += lp.iterations
		switch lp.status {
		case lpInfeasible:
			root = false
			continue
		case lpUnbounded:
			if root {
				return Result{Status: StatusUnbounded, Nodes: res.Nodes, LPIterations: res.LPIterations}
			}
			root = false
			continue
		}
		root = false
		if lp.objective >= incumbent-1e-9 {
			continue
		}

		branch := fractionalBinary(m, lp.x)
		if branch < 0 {
			// Integer feasible.
			incumbent = lp.objective
			res.Values = append(res.Values[:0], lp.x...)
			res.Objective = lp.objective
			if gapTol > 0 {
				if g := relGap(incumbent, openBound(stack, incumbent)); g <= gapTol {
					res.Status = StatusFeasible
					if g == 0 {
						res.Status = StatusOptimal
					}
					res.Gap = g
					return res
				}
			}
			continue
		}

		// Explore z=1 first: satisfying a demand is almost always the
		// cheaper side under the big-M penalty.
		zero := bbNode{lo: cloneBounds(node.lo), hi: cloneBounds(node.hi), bound: lp.objective}
		zero.hi[branch] = 0
		one := bbNode{lo: cloneBounds(node.lo), hi: cloneBounds(node.hi), bound: lp.objective}
		one.lo[branch] = 1
		stack = append(stack, zero, one)
	}

	if math.IsInf(incumbent, 1) {
		return Result{Status: StatusInfeasible, Nodes: res.Nodes, LPIterations: res.LPIterations}
	}
	res.Status = StatusOptimal
	res.Gap = 0
	return res
}

// fractionalBinary returns the most fractional binary variable of x, or -1
// when all binaries are integral within tolerance.
func fractionalBinary(m *Model, x []float64) int {
	best := -1
	bestDist := intTol
	for i := 0; i < m.NumVars(); i++ {
		if !m.Var(i).Binary {
			continue
		}
		frac := math.Abs(x[i] - math.Round(x[i]))
		if frac > bestDist {
			bestDist = frac
			best = i
		}
	}
	return best
}

func cloneBounds(b []float64) []float64 {
	return append([]float64(nil), b...)
}

// openBound is the tightest known lower bound over unexplored nodes.
func openBound(stack []bbNode, incumbent float64) float64 {
	bound := incumbent
	for _, n := range stack {
		if n.bound < bound {
			bound = n.bound
		}
	}
	return bound
}

func relGap(incumbent, bound float64) float64 {
	if math.IsInf(incumbent, 1) {
		return math.Inf(1)
	}
	if math.IsInf(bound, -1) {
		return math.Inf(1)
	}
	d := incumbent - bound
	if d <= 0 {
		return 0
	}
	return d / math.Max(1, math.Abs(incumbent))
}
