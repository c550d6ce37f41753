package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/arnavshah/roster-solver/pkg/roster"
	"github.com/arnavshah/roster-solver/pkg/scheduler"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad day", roster.ErrValidation), http.StatusBadRequest},
		{&scheduler.InfeasibleError{Day: "1(Mon)"}, http.StatusUnprocessableEntity},
		{&scheduler.SolverError{Day: "1(Mon)", Backend: "native", Err: errors.New("boom")}, http.StatusInternalServerError},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
