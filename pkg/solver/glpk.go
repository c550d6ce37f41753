//go:build glpk

package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lukpank/go-glpk/glpk"
	"go.uber.org/zap"
)

func init() {
	Register("glpk", func(logger *zap.Logger) Backend { return NewGLPK(logger) })
}

// GLPK solves models with the GNU Linear Programming Kit. It needs cgo and
// libglpk; build with -tags glpk.
type GLPK struct {
	logger *zap.Logger
}

// NewGLPK returns the GLPK backend
func NewGLPK(logger *zap.Logger) *GLPK {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GLPK{logger: logger}
}

func (g *GLPK) Name() string { return "glpk" }

// Solve runs simplex followed by branch-and-cut. GLPK has no seed parameter,
// so a seed permutes the order in which columns are created instead.
func (g *GLPK) Solve(ctx context.Context, m *Model, opts Options) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return &Result{Status: StatusError}, fmt.Errorf("solver: %w", err)
	}

	lp := glpk.New()
	defer lp.Delete()
	lp.SetProbName(m.Name)
	if m.Sense == Maximize {
		lp.SetObjDir(glpk.ObjDir(glpk.MAX))
	} else {
		lp.SetObjDir(glpk.ObjDir(glpk.MIN))
	}

	n := m.NumVars()
	col := make([]int, n)
	if n > 0 {
		lp.AddCols(n)
	}
	for k, j := range columnOrder(n, seededRand(opts.Seed)) {
		c := k + 1
		col[j] = c
		v := m.Var(j)
		lp.SetColName(c, v.Name)
		switch v.Kind {
		case Binary:
			lp.SetColKind(c, glpk.VarType(glpk.BV))
		case Integer:
			lp.SetColKind(c, glpk.VarType(glpk.IV))
		default:
			lp.SetColKind(c, glpk.VarType(glpk.CV))
		}
		typ, lo, hi := bounds(v.Lower, v.Upper)
		lp.SetColBnds(c, typ, lo, hi)
		lp.SetObjCoef(c, m.ObjCoef(j))
	}

	if m.NumRows() > 0 {
		lp.AddRows(m.NumRows())
	}
	for i := 0; i < m.NumRows(); i++ {
		r := m.Row(i)
		lp.SetRowName(i+1, r.Name)
		typ, lo, hi := bounds(r.Lower, r.Upper)
		lp.SetRowBnds(i+1, typ, lo, hi)
		// index 0 is ignored by glpk
		ind := make([]int32, 1, len(r.Terms)+1)
		val := make([]float64, 1, len(r.Terms)+1)
		for _, t := range r.Terms {
			ind = append(ind, int32(col[t.Var]))
			val = append(val, t.Coef)
		}
		lp.SetMatRow(i+1, ind, val)
	}

	msg := glpk.MsgLev(glpk.MSG_OFF)
	if opts.Verbose {
		msg = glpk.MsgLev(glpk.MSG_ALL)
	}
	smcp := glpk.NewSmcp()
	smcp.SetMsgLev(msg)
	if err := lp.Simplex(smcp); err != nil {
		return &Result{Status: StatusError, Duration: time.Since(start)}, fmt.Errorf("solver: glpk simplex: %w", err)
	}
	switch lp.Status() {
	case glpk.OPT:
	case glpk.NOFEAS, glpk.INFEAS:
		return &Result{Status: StatusInfeasible, Duration: time.Since(start)}, nil
	case glpk.UNBND:
		return &Result{Status: StatusError, Duration: time.Since(start)}, ErrUnbounded
	default:
		return &Result{Status: StatusError, Duration: time.Since(start)}, fmt.Errorf("solver: glpk relaxation status %v", lp.Status())
	}

	if err := ctx.Err(); err != nil {
		return &Result{Status: StatusError, Duration: time.Since(start)}, fmt.Errorf("solver: %w", err)
	}
	iocp := glpk.NewIocp()
	iocp.SetMsgLev(msg)
	if err := lp.Intopt(iocp); err != nil {
		return &Result{Status: StatusError, Duration: time.Since(start)}, fmt.Errorf("solver: glpk intopt: %w", err)
	}
	switch lp.MipStatus() {
	case glpk.OPT:
	case glpk.NOFEAS:
		return &Result{Status: StatusInfeasible, Duration: time.Since(start)}, nil
	default:
		return &Result{Status: StatusError, Duration: time.Since(start)}, fmt.Errorf("solver: glpk mip status %v", lp.MipStatus())
	}

	res := &Result{
		Status:   StatusOptimal,
		Values:   make(map[string]float64, n),
		Duration: time.Since(start),
	}
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = lp.MipColVal(col[j])
		if m.Var(j).Kind != Continuous {
			x[j] = math.Round(x[j])
		}
		res.Values[m.Var(j).Name] = x[j]
	}
	res.Objective = m.ObjectiveValue(x)
	g.logger.Debug("glpk solved", zap.String("model", m.Name), zap.Duration("took", res.Duration))
	return res, nil
}

func bounds(lo, hi float64) (glpk.BndsType, float64, float64) {
	switch {
	case math.IsInf(lo, -1) && math.IsInf(hi, 1):
		return glpk.BndsType(glpk.FR), 0, 0
	case math.IsInf(lo, -1):
		return glpk.BndsType(glpk.UP), 0, hi
	case math.IsInf(hi, 1):
		return glpk.BndsType(glpk.LO), lo, 0
	case lo == hi:
		return glpk.BndsType(glpk.FX), lo, hi
	}
	return glpk.BndsType(glpk.DB), lo, hi
}
