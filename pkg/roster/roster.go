package roster

import (
	"fmt"
	"sort"

	"github.com/arnavshah/roster-solver/pkg/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Roster is the validated, read-only view of a dataset for one run
type Roster struct {
	employees []string
	roles     []string
	days      []string

	roleSet      map[string]bool
	daySet       map[string]bool
	availability map[string]map[string]bool
	compat       map[string]map[string]bool
	fullTime     map[string]bool
	weights      map[string]float64
	categories   map[string]models.Category
	headcount    map[string]map[string]int
	weekdays     map[string]string
}

// Option customizes roster construction
type Option func(*options)

type options struct {
	logger    *zap.Logger
	sentinels models.Sentinels
	validate  *validator.Validate
}

// WithLogger sets the logger used for load-time warnings
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSentinels sets the identifiers that are tagged as placeholder categories
// when the dataset does not tag them itself
func WithSentinels(s models.Sentinels) Option {
	return func(o *options) { o.sentinels = s }
}

// WithValidator shares a validator instance, e.g. gin's binding engine
func WithValidator(v *validator.Validate) Option {
	return func(o *options) { o.validate = v }
}

// New validates ds and builds a Roster. Missing availability entries are
// treated as unavailable and reported once as a warning.
func New(ds *models.Dataset, opts ...Option) (*Roster, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.validate == nil {
		o.validate = validator.New()
		o.validate.SetTagName("binding")
	}
	if ds == nil {
		return nil, invalid("", "dataset is required")
	}
	if err := o.validate.Struct(ds); err != nil {
		return nil, invalid("dataset", "%v", err)
	}

	r := &Roster{
		availability: ds.Availabilities,
		compat:       ds.Capabilities,
		fullTime:     ds.FullTime,
		weights:      ds.Weights,
		headcount:    ds.RequiredHeadcount,
		categories:   make(map[string]models.Category, len(ds.Availabilities)),
		weekdays:     make(map[string]string),
	}

	if err := r.loadEmployees(ds, o.sentinels); err != nil {
		return nil, err
	}
	if err := r.loadRoles(ds); err != nil {
		return nil, err
	}
	if err := r.loadDays(ds, o.logger); err != nil {
		return nil, err
	}
	if err := r.checkHeadcount(); err != nil {
		return nil, err
	}

	o.logger.Debug("roster loaded",
		zap.Int("employees", len(r.employees)),
		zap.Int("roles", len(r.roles)),
		zap.Int("days", len(r.days)),
	)
	return r, nil
}

func (r *Roster) loadEmployees(ds *models.Dataset, sentinels models.Sentinels) error {
	for e := range ds.Availabilities {
		if _, ok := ds.Capabilities[e]; !ok {
			return invalid("capabilities", "employee %q has no capability row", e)
		}
		r.employees = append(r.employees, e)
	}
	for e := range ds.Capabilities {
		if _, ok := ds.Availabilities[e]; !ok {
			return invalid("availabilities", "employee %q has no availability row", e)
		}
	}
	sort.Strings(r.employees)

	for e, c := range ds.Categories {
		if _, ok := ds.Availabilities[e]; !ok {
			return invalid("categories", "unknown employee %q", e)
		}
		if _, err := models.ParseCategory(string(c)); err != nil {
			return invalid("categories", "%v", err)
		}
	}
	for _, e := range r.employees {
		if c, ok := ds.Categories[e]; ok {
			r.categories[e] = c
			continue
		}
		r.categories[e] = sentinels.Lookup(e)
	}
	return nil
}

// loadRoles enforces that every employee's capability row defines the same role set
func (r *Roster) loadRoles(ds *models.Dataset) error {
	if len(ds.Roles) > 0 {
		r.roles = append([]string(nil), ds.Roles...)
	} else {
		for role := range ds.Capabilities[r.employees[0]] {
			r.roles = append(r.roles, role)
		}
		sort.Strings(r.roles)
	}
	if len(r.roles) == 0 {
		return invalid("roles", "no roles defined")
	}

	r.roleSet = make(map[string]bool, len(r.roles))
	for _, role := range r.roles {
		if r.roleSet[role] {
			return invalid("roles", "duplicate role %q", role)
		}
		r.roleSet[role] = true
	}

	for _, e := range r.employees {
		row := ds.Capabilities[e]
		if len(row) != len(r.roleSet) {
			return invalid("capabilities", "employee %q defines %d roles, want %d", e, len(row), len(r.roleSet))
		}
		for role := range row {
			if !r.roleSet[role] {
				return invalid("capabilities", "employee %q defines unknown role %q", e, role)
			}
		}
	}
	return nil
}

func (r *Roster) loadDays(ds *models.Dataset, logger *zap.Logger) error {
	seen := make(map[string]bool)
	for _, row := range ds.Availabilities {
		for d := range row {
			seen[d] = true
		}
	}

	if len(ds.Days) > 0 {
		for _, d := range ds.Days {
			if !seen[d] {
				return invalid("days", "day %q is not present in any availability row", d)
			}
		}
		r.days = append([]string(nil), ds.Days...)
	} else {
		for d := range seen {
			r.days = append(r.days, d)
		}
		sortDays(r.days)
	}
	if len(r.days) == 0 {
		return invalid("days", "no days defined")
	}

	r.daySet = make(map[string]bool, len(r.days))
	missing := 0
	for _, d := range r.days {
		if r.daySet[d] {
			return invalid("days", "duplicate day %q", d)
		}
		r.daySet[d] = true
		for _, e := range r.employees {
			if _, ok := ds.Availabilities[e][d]; !ok {
				missing++
			}
		}
		if len(r.headcount) == 0 {
			continue
		}
		tok, ok := WeekdayToken(d)
		if !ok {
			return invalid("days", "cannot parse weekday from %q", d)
		}
		if _, ok := r.headcount[tok]; !ok {
			return invalid("required_headcount", "unknown weekday token %q in day %q", tok, d)
		}
		r.weekdays[d] = tok
	}
	if missing > 0 {
		logger.Warn("missing availability entries treated as unavailable", zap.Int("count", missing))
	}
	return nil
}

func (r *Roster) checkHeadcount() error {
	for wd, row := range r.headcount {
		for role, n := range row {
			if !r.roleSet[role] {
				return invalid("required_headcount", "weekday %q names unknown role %q", wd, role)
			}
			if n < 0 {
				return invalid("required_headcount", "weekday %q role %q has negative headcount %d", wd, role, n)
			}
		}
	}
	return nil
}

// Employees returns employee identifiers in sorted order
func (r *Roster) Employees() []string { return append([]string(nil), r.employees...) }

// Roles returns role identifiers in dataset order
func (r *Roster) Roles() []string { return append([]string(nil), r.roles...) }

// Days returns day labels in schedule order
func (r *Roster) Days() []string { return append([]string(nil), r.days...) }

// HasDay reports whether the label is one of the roster's days
func (r *Roster) HasDay(day string) bool { return r.daySet[day] }

func (r *Roster) IsAvailable(employee, day string) bool {
	return r.availability[employee][day]
}

func (r *Roster) IsCompatible(employee, role string) bool {
	return r.compat[employee][role]
}

func (r *Roster) IsFullTime(employee string) bool {
	return r.fullTime[employee]
}

// Weight returns the configured weight, 0 when unlisted
func (r *Roster) Weight(employee string) float64 {
	return r.weights[employee]
}

// Category returns the employee's category, normal for unknown identifiers
func (r *Roster) Category(employee string) models.Category {
	if c, ok := r.categories[employee]; ok {
		return c
	}
	return models.CategoryNormal
}

// Weekday returns the token used to pick the headcount row for a day
func (r *Roster) Weekday(day string) string {
	return r.weekdays[day]
}

// RequiredHeadcount returns how many slots role needs on day. Roles without
// an explicit entry need one.
func (r *Roster) RequiredHeadcount(day, role string) (int, error) {
	if !r.daySet[day] {
		return 0, fmt.Errorf("%w: unknown day %q", ErrValidation, day)
	}
	if !r.roleSet[role] {
		return 0, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if n, ok := r.headcount[r.weekdays[day]][role]; ok {
		return n, nil
	}
	return 1, nil
}
