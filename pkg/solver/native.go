package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	intTol          = 1e-6
	feasTol         = 1e-9
	simplexTol      = 1e-10
	defaultMaxNodes = 200000
)

var errInfeasibleLP = errors.New("relaxation infeasible")

// Native is a pure Go backend: depth-first branch-and-bound over gonum's
// simplex relaxations.
type Native struct {
	logger   *zap.Logger
	MaxNodes int
}

// NewNative returns the pure Go backend
func NewNative(logger *zap.Logger) *Native {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Native{logger: logger, MaxNodes: defaultMaxNodes}
}

func (n *Native) Name() string { return "native" }

type bbNode struct {
	lb, ub []float64
	depth  int
}

// Solve runs branch-and-bound. A seed permutes the column order handed to
// simplex and the order in which children are explored.
func (n *Native) Solve(ctx context.Context, m *Model, opts Options) (*Result, error) {
	start := time.Now()
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	rng := seededRand(opts.Seed)
	p := newRelaxation(m, columnOrder(m.NumVars(), rng))

	root := bbNode{lb: make([]float64, m.NumVars()), ub: make([]float64, m.NumVars())}
	for j := 0; j < m.NumVars(); j++ {
		v := m.Var(j)
		root.lb[j], root.ub[j] = v.Lower, v.Upper
		if v.Kind != Continuous {
			root.lb[j] = math.Ceil(v.Lower - intTol)
			root.ub[j] = math.Floor(v.Upper + intTol)
			if root.lb[j] > root.ub[j] {
				return &Result{Status: StatusInfeasible, Duration: time.Since(start)}, nil
			}
		}
	}

	best := math.Inf(1)
	var bestX []float64
	stack := []bbNode{root}
	nodes := 0
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return &Result{Status: StatusError, Nodes: nodes, Duration: time.Since(start)}, fmt.Errorf("solver: %w", err)
		}
		if nodes >= n.MaxNodes {
			return &Result{Status: StatusError, Nodes: nodes, Duration: time.Since(start)}, ErrNodeLimit
		}
		nodes++

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		obj, x, err := p.solve(node.lb, node.ub)
		if errors.Is(err, errInfeasibleLP) {
			continue
		}
		if err != nil {
			return &Result{Status: StatusError, Nodes: nodes, Duration: time.Since(start)}, err
		}
		if obj >= best-feasTol {
			continue
		}

		j := p.branchVar(x)
		if opts.Verbose {
			n.logger.Debug("bnb node",
				zap.String("model", m.Name),
				zap.Int("node", nodes),
				zap.Int("depth", node.depth),
				zap.Float64("bound", p.sign*obj),
				zap.Int("branch_var", j),
			)
		}
		if j < 0 {
			best, bestX = obj, x
			continue
		}

		down := bbNode{lb: node.lb, ub: clone(node.ub), depth: node.depth + 1}
		down.ub[j] = math.Floor(x[j])
		up := bbNode{lb: clone(node.lb), ub: node.ub, depth: node.depth + 1}
		up.lb[j] = math.Ceil(x[j])

		// last pushed is explored first
		if rng != nil && rng.Intn(2) == 0 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	res := &Result{Nodes: nodes, Duration: time.Since(start)}
	if bestX == nil {
		res.Status = StatusInfeasible
		return res, nil
	}
	res.Status = StatusOptimal
	res.Values = make(map[string]float64, m.NumVars())
	for j := 0; j < m.NumVars(); j++ {
		v := bestX[j]
		if m.Var(j).Kind != Continuous {
			v = math.Round(v)
		}
		bestX[j] = v
		res.Values[m.Var(j).Name] = v
	}
	res.Objective = m.ObjectiveValue(bestX)
	return res, nil
}

// relaxation converts the model into gonum's standard form
// (min cᵀy, Ay = b, y >= 0) for given variable bounds.
type relaxation struct {
	m     *Model
	order []int
	sign  float64
	cost  []float64
}

func newRelaxation(m *Model, order []int) *relaxation {
	p := &relaxation{m: m, order: order, sign: 1, cost: make([]float64, m.NumVars())}
	if m.Sense == Maximize {
		p.sign = -1
	}
	for j := range p.cost {
		p.cost[j] = p.sign * m.ObjCoef(j)
	}
	return p
}

// branchVar returns the first fractional integer variable in column order
func (p *relaxation) branchVar(x []float64) int {
	for _, j := range p.order {
		if p.m.Var(j).Kind == Continuous {
			continue
		}
		if math.Abs(x[j]-math.Round(x[j])) > intTol {
			return j
		}
	}
	return -1
}

type stdRow struct {
	coef  map[int]float64 // keyed by column
	rhs   float64
	slack float64 // +1 for <=, -1 for >=, 0 for ==
}

// solve returns the minimized objective and x for the relaxation with
// lb <= x <= ub. Variables are shifted to y = x - lb.
func (p *relaxation) solve(lb, ub []float64) (float64, []float64, error) {
	nv := p.m.NumVars()
	for j := 0; j < nv; j++ {
		if lb[j] > ub[j]+feasTol {
			return 0, nil, errInfeasibleLP
		}
	}

	free := make([]bool, nv)
	for j := 0; j < nv; j++ {
		free[j] = ub[j]-lb[j] > feasTol
	}

	type shifted struct {
		coef   map[int]float64
		lo, hi float64
	}
	var pending []shifted
	inRow := make([]bool, nv)
	for i := 0; i < p.m.NumRows(); i++ {
		r := p.m.Row(i)
		coef := make(map[int]float64)
		shift := 0.0
		for _, t := range r.Terms {
			shift += t.Coef * lb[t.Var]
			if free[t.Var] {
				coef[t.Var] += t.Coef
			}
		}
		for j, c := range coef {
			if c == 0 {
				delete(coef, j)
			}
		}
		lo, hi := r.Lower-shift, r.Upper-shift
		if len(coef) == 0 {
			if lo > feasTol || hi < -feasTol {
				return 0, nil, errInfeasibleLP
			}
			continue
		}
		if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
			continue
		}
		for j := range coef {
			inRow[j] = true
		}
		pending = append(pending, shifted{coef: coef, lo: lo, hi: hi})
	}
	for j := 0; j < nv; j++ {
		if free[j] && !inRow[j] && math.IsInf(ub[j], 1) {
			if p.cost[j] < 0 {
				return 0, nil, ErrUnbounded
			}
			free[j] = false
		}
	}

	col := make([]int, nv)
	ncols := 0
	for _, j := range p.order {
		col[j] = -1
		if free[j] {
			col[j] = ncols
			ncols++
		}
	}
	nfree := ncols

	var rows []stdRow
	implied := make([]float64, nv)
	for j := range implied {
		implied[j] = math.Inf(1)
	}
	for _, r := range pending {
		byCol := make(map[int]float64, len(r.coef))
		nonneg := true
		for j, c := range r.coef {
			byCol[col[j]] = c
			if c < 0 {
				nonneg = false
			}
		}
		if nonneg && !math.IsInf(r.hi, 1) {
			for j, c := range r.coef {
				implied[j] = math.Min(implied[j], r.hi/c)
			}
		}

		if !math.IsInf(r.lo, -1) && !math.IsInf(r.hi, 1) && math.Abs(r.hi-r.lo) <= feasTol {
			rows = append(rows, stdRow{coef: byCol, rhs: r.hi})
			continue
		}
		if !math.IsInf(r.hi, 1) {
			rows = append(rows, stdRow{coef: byCol, rhs: r.hi, slack: 1})
		}
		if !math.IsInf(r.lo, -1) {
			rows = append(rows, stdRow{coef: byCol, rhs: r.lo, slack: -1})
		}
	}

	for _, j := range p.order {
		if !free[j] || math.IsInf(ub[j], 1) {
			continue
		}
		span := ub[j] - lb[j]
		if implied[j] <= span+feasTol {
			continue
		}
		rows = append(rows, stdRow{coef: map[int]float64{col[j]: 1}, rhs: span, slack: 1})
	}

	x := make([]float64, nv)
	copy(x, lb)
	if len(rows) == 0 {
		return p.objective(x), x, nil
	}

	for i := range rows {
		if rows[i].slack != 0 {
			ncols++
		}
	}
	if len(rows) > ncols {
		return 0, nil, fmt.Errorf("solver: relaxation has %d rows but only %d columns", len(rows), ncols)
	}

	A := mat.NewDense(len(rows), ncols, nil)
	b := make([]float64, len(rows))
	c := make([]float64, ncols)
	for j := 0; j < nv; j++ {
		if col[j] >= 0 {
			c[col[j]] = p.cost[j]
		}
	}
	slackCol := nfree
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for k, v := range r.coef {
			A.Set(i, k, sign*v)
		}
		if r.slack != 0 {
			A.Set(i, slackCol, sign*r.slack)
			slackCol++
		}
		b[i] = sign * r.rhs
	}

	_, y, err := lp.Simplex(c, A, b, simplexTol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return 0, nil, errInfeasibleLP
	case errors.Is(err, lp.ErrUnbounded):
		return 0, nil, ErrUnbounded
	case err != nil:
		return 0, nil, fmt.Errorf("solver: simplex: %w", err)
	}
	for j := 0; j < nv; j++ {
		if col[j] >= 0 {
			x[j] = lb[j] + math.Max(y[col[j]], 0)
		}
	}
	return p.objective(x), x, nil
}

func (p *relaxation) objective(x []float64) float64 {
	var sum float64
	for j, c := range p.cost {
		sum += c * x[j]
	}
	return sum
}

func clone(s []float64) []float64 {
	return append([]float64(nil), s...)
}
