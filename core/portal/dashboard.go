package portal

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/masomo-portal/core/classroom"
)

type Panel string

const (
	PanelStats       Panel = "stats"
	PanelCourses     Panel = "courses"
	PanelAssignments Panel = "assignments"
)

var Panels = []Panel{PanelStats, PanelCourses, PanelAssignments}

// PanelState is what one dashboard panel shows.
// A failed refresh keeps the data of the last successful one and marks it Stale.
type PanelState[T any] struct {
	Data   T
	Loaded bool
	Stale  bool
	Err    error
}

func (s PanelState[T]) Failed() bool { return s.Err != nil }

// Dashboard is the teacher dashboard view: stats, courses and assignments, loaded in parallel.
type Dashboard struct {
	svc *Service

	mu          sync.RWMutex
	stats       PanelState[classroom.DashboardStats]
	courses     PanelState[[]classroom.Course]
	assignments PanelState[[]classroom.Assignment]
}

func NewDashboard(svc *Service) *Dashboard {
	return &Dashboard{svc: svc}
}

// Refresh loads every panel. Panels fail independently; the returned error is only set
// when ctx ended before the refresh completed.
func (d *Dashboard) Refresh(ctx context.Context) error {
	return d.refresh(ctx, Panels...)
}

// RefreshPanel reloads a single panel, e.g. to retry a failed one.
func (d *Dashboard) RefreshPanel(ctx context.Context, p Panel) error {
	return d.refresh(ctx, p)
}

func (d *Dashboard) refresh(ctx context.Context, panels ...Panel) error {
	var g errgroup.Group
	for _, p := range panels {
		switch p {
		case PanelStats:
			g.Go(func() error { return load(ctx, &d.mu, &d.stats, d.svc.DashboardStats) })
		case PanelCourses:
			g.Go(func() error { return load(ctx, &d.mu, &d.courses, d.svc.Courses) })
		case PanelAssignments:
			g.Go(func() error { return load(ctx, &d.mu, &d.assignments, d.svc.Assignments) })
		}
	}
	return g.Wait()
}

func load[T any](ctx context.Context, mu *sync.RWMutex, st *PanelState[T], fetch func(context.Context) (T, error)) error {
	v, err := fetch(ctx)
	if ctx.Err() != nil {
		// the view is gone, drop the result
		return ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		st.Err = err
		st.Stale = st.Loaded
		return nil
	}
	st.Data = v
	st.Loaded = true
	st.Stale = false
	st.Err = nil
	return nil
}

func (d *Dashboard) Stats() PanelState[classroom.DashboardStats] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stats
}

func (d *Dashboard) Courses() PanelState[[]classroom.Course] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.courses
}

func (d *Dashboard) Assignments() PanelState[[]classroom.Assignment] {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.assignments
}

// Failed lists the panels whose last refresh failed.
func (d *Dashboard) Failed() []Panel {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var failed []Panel
	if d.stats.Failed() {
		failed = append(failed, PanelStats)
	}
	if d.courses.Failed() {
		failed = append(failed, PanelCourses)
	}
	if d.assignments.Failed() {
		failed = append(failed, PanelAssignments)
	}
	return failed
}
