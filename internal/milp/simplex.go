package milp

import "math"

const (
	pivotTol = 1e-9
	feasTol  = 1e-7
)

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
)

type lpResult struct {
	status     lpStatus
	x          []float64
	objective  float64
	iterations int
}

// solveRelaxation solves the LP relaxation of m with the variable bounds
// overridden by lo/hi. Dense two-phase primal simplex with Bland's rule, so
// it terminates on degenerate bases. Problem sizes here are edge-count by
// demand-count, small enough that a dense tableau is fine.
func solveRelaxation(m *Model, lo, hi []float64) lpResult {
	n := len(lo)

	// Substitute x_j = lo_j + t_j with t_j >= 0. Fixed variables
	// (lo == hi) drop out of the tableau entirely.
	col := make([]int, n)
	nt := 0
	for j := 0; j < n; j++ {
		if hi[j]-lo[j] <= 1e-12 {
			col[j] = -1
			continue
		}
		col[j] = nt
		nt++
	}

	type row struct {
		coef  []float64
		sense Sense
		rhs   float64
	}
	rows := make([]row, 0, m.NumConstraints()+nt)
	for i := 0; i < m.NumConstraints(); i++ {
		c := m.ConstraintAt(i)
		r := row{coef: make([]float64, nt), sense: c.Sense, rhs: c.RHS}
		for _, t := range c.Terms {
			r.rhs -= t.Coef * lo[t.Var]
			if col[t.Var] >= 0 {
				r.coef[col[t.Var]] += t.Coef
			}
		}
		rows = append(rows, r)
	}
	// Finite upper bounds become explicit rows in t-space.
	for j := 0; j < n; j++ {
		if col[j] < 0 || math.IsInf(hi[j], 1) {
			continue
		}
		r := row{coef: make([]float64, nt), sense: LessEq, rhs: hi[j] - lo[j]}
		r.coef[col[j]] = 1
		rows = append(rows, r)
	}

	// All variables fixed: just check row feasibility.
	if nt == 0 {
		for _, r := range rows {
			switch r.sense {
			case LessEq:
				if r.rhs < -feasTol {
					return lpResult{status: lpInfeasible}
				}
			case GreaterEq:
				if r.rhs > feasTol {
					return lpResult{status: lpInfeasible}
				}
			default:
				if math.Abs(r.rhs) > feasTol {
					return lpResult{status: lpInfeasible}
				}
			}
		}
		x := append([]float64(nil), lo...)
		return lpResult{status: lpOptimal, x: x, objective: m.Objective(x)}
	}

	// Normalize rhs >= 0 so slack/artificial bases start feasible.
	for i := range rows {
		if rows[i].rhs < 0 {
			for j := range rows[i].coef {
				rows[i].coef[j] = -rows[i].coef[j]
			}
			rows[i].rhs = -rows[i].rhs
			switch rows[i].sense {
			case LessEq:
				rows[i].sense = GreaterEq
			case GreaterEq:
				rows[i].sense = LessEq
			}
		}
	}

	nSlack, nArt := 0, 0
	for _, r := range rows {
		switch r.sense {
		case LessEq:
			nSlack++
		case GreaterEq:
			nSlack++
			nArt++
		default:
			nArt++
		}
	}
	cols := nt + nSlack + nArt

	tab := &tableau{
		a:     make([][]float64, len(rows)),
		rhs:   make([]float64, len(rows)),
		basis: make([]int, len(rows)),
	}
	artificial := make([]bool, cols)
	slackAt, artAt := nt, nt+nSlack
	for i, r := range rows {
		tab.a[i] = make([]float64, cols)
		copy(tab.a[i], r.coef)
		tab.rhs[i] = r.rhs
		switch r.sense {
		case LessEq:
			tab.a[i][slackAt] = 1
			tab.basis[i] = slackAt
			slackAt++
		case GreaterEq:
			tab.a[i][slackAt] = -1
			slackAt++
			tab.a[i][artAt] = 1
			tab.basis[i] = artAt
			artificial[artAt] = true
			artAt++
		default:
			tab.a[i][artAt] = 1
			tab.basis[i] = artAt
			artificial[artAt] = true
			artAt++
		}
	}

	allowed := make([]bool, cols)
	for j := range allowed {
		allowed[j] = true
	}
	iters := 0

	if nArt > 0 {
		phase1 := make([]float64, cols)
		for j := range phase1 {
			if artificial[j] {
				phase1[j] = 1
			}
		}
		obj, unbounded, it := tab.run(phase1, allowed)
		iters += it
		if unbounded || obj > feasTol {
			// Phase 1 is bounded below by zero; a positive optimum
			// means no feasible point exists.
			return lpResult{status: lpInfeasible, iterations: iters}
		}
		for j := range allowed {
			if artificial[j] {
				allowed[j] = false
			}
		}
		// Drive any basic artificials (at zero level) out of the basis.
		for i := range tab.basis {
			if !artificial[tab.basis[i]] {
				continue
			}
			for j := 0; j < cols; j++ {
				if allowed[j] && math.Abs(tab.a[i][j]) > pivotTol {
					tab.pivot(i, j)
					break
				}
			}
		}
	}

	// Phase 2: original costs in t-space. The lower-bound shift only adds
	// a constant, recovered below by evaluating the objective at x.
	phase2 := make([]float64, cols)
	for j := 0; j < n; j++ {
		if col[j] >= 0 {
			phase2[col[j]] = m.ObjectiveCoef(j)
		}
	}
	_, unbounded, it := tab.run(phase2, allowed)
	iters += it
	if unbounded {
		return lpResult{status: lpUnbounded, iterations: iters}
	}

	t := make([]float64, nt)
	for i, b := range tab.basis {
		if b < nt {
			t[b] = tab.rhs[i]
		}
	}
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = lo[j]
		if col[j] >= 0 {
			x[j] += t[col[j]]
		}
	}
	return lpResult{status: lpOptimal, x: x, objective: m.Objective(x), iterations: iters}
}

type tableau struct {
	a     [][]float64
	rhs   []float64
	basis []int
}

// run minimizes cost c over the current basis. Entering and leaving choices
// follow Bland's rule. Returns the objective, an unbounded flag, and the
// iteration count.
func (t *tableau) run(c []float64, allowed []bool) (float64, bool, int) {
	cols := 0
	if len(t.a) > 0 {
		cols = len(t.a[0])
	}
	// Reduced costs for the current basis.
	z := append([]float64(nil), c...)
	zval := 0.0
	for i, b := range t.basis {
		if c[b] == 0 {
			continue
		}
		f := c[b]
		for j := 0; j < cols; j++ {
			z[j] -= f * t.a[i][j]
		}
		zval += f * t.rhs[i]
	}

	iters := 0
	for {
		enter := -1
		for j := 0; j < cols; j++ {
			if allowed[j] && z[j] < -pivotTol {
				enter = j
				break
			}
		}
		if enter < 0 {
			return zval, false, iters
		}
		leave := -1
		best := math.Inf(1)
		for i := range t.a {
			if t.a[i][enter] <= pivotTol {
				continue
			}
			ratio := t.rhs[i] / t.a[i][enter]
			if ratio < best-pivotTol || (ratio < best+pivotTol && (leave < 0 || t.basis[i] < t.basis[leave])) {
				best = ratio
				leave = i
			}
		}
		if leave < 0 {
			return zval, true, iters
		}
		zval += z[enter] * (t.rhs[leave] / t.a[leave][enter])
		f := z[enter]
		t.pivot(leave, enter)
		for j := 0; j < cols; j++ {
			z[j] -= f * t.a[leave][j]
		}
		iters++
	}
}

func (t *tableau) pivot(r, e int) {
	p := t.a[r][e]
	for j := range t.a[r] {
		t.a[r][j] /= p
	}
	t.rhs[r] /= p
	for i := range t.a {
		if i == r {
			continue
		}
		f := t.a[i][e]
		if f == 0 {
			continue
		}
		for j := range t.a[i] {
			t.a[i][j] -= f * t.a[r][j]
		}
		t.rhs[i] -= f * t.rhs[r]
	}
	t.basis[r] = e
}
