package model

import (
	"sync"
	"sync/atomic"
)

// Profile holds one user's dashboards and the set of pins that feed graph
// widgets on them.
//
// Readers always see an immutable snapshot of the dashboard list. Writers
// go through Update, which serialises them and rebuilds the graph pin set
// before returning, so the set never lags behind a completed mutation.
type Profile struct {
	dashboards atomic.Pointer[[]*Dashboard]
	graphPins  atomic.Pointer[map[GraphKey]struct{}]
	activeDash atomic.Pointer[int]

	writeMu sync.Mutex
}

// NewProfile creates a profile over the given dashboards. The graph pin
// set starts empty until RebuildGraphPins is called.
func NewProfile(dashboards ...*Dashboard) *Profile {
	p := &Profile{}
	list := append([]*Dashboard(nil), dashboards...)
	p.dashboards.Store(&list)
	return p
}

// Dashboards returns the current dashboard snapshot in insertion order.
// The slice must not be modified.
func (p *Profile) Dashboards() []*Dashboard {
	if list := p.dashboards.Load(); list != nil {
		return *list
	}
	return nil
}

func (p *Profile) ActiveDashID() (int, bool) {
	if id := p.activeDash.Load(); id != nil {
		return *id, true
	}
	return 0, false
}

func (p *Profile) SetActiveDashID(dashID int) {
	p.activeDash.Store(&dashID)
}

func (p *Profile) ClearActiveDashID() {
	p.activeDash.Store(nil)
}

// --- Dashboard lookup ---

func indexOf(dashboards []*Dashboard, dashID int) int {
	for i, d := range dashboards {
		if d.ID == dashID {
			return i
		}
	}
	return -1
}

// ValidateDashID checks that dashID exists in the profile.
func (p *Profile) ValidateDashID(dashID, msgID int) error {
	_, err := p.DashIndex(dashID, msgID)
	return err
}

// DashIndex returns the position of the first dashboard with dashID.
func (p *Profile) DashIndex(dashID, msgID int) (int, error) {
	if i := indexOf(p.Dashboards(), dashID); i >= 0 {
		return i, nil
	}
	return -1, &NotFoundError{DashID: dashID, MsgID: msgID}
}

func (p *Profile) DashByID(dashID, msgID int) (*Dashboard, error) {
	dashboards := p.Dashboards()
	if i := indexOf(dashboards, dashID); i >= 0 {
		return dashboards[i], nil
	}
	return nil, &NotFoundError{DashID: dashID, MsgID: msgID}
}

// --- Graph pins ---

// RebuildGraphPins replaces the graph pin set with one computed from the
// current dashboards.
func (p *Profile) RebuildGraphPins() {
	pins := make(map[GraphKey]struct{})
	for _, d := range p.Dashboards() {
		for _, w := range d.Widgets {
			if w.IsGraph() && w.Pin != nil {
				pins[GraphKey{DashID: d.ID, Pin: *w.Pin, PinType: w.PinType}] = struct{}{}
			}
		}
	}
	p.graphPins.Store(&pins)
}

func (p *Profile) HasGraphPin(key *GraphKey) bool {
	if key == nil {
		return false
	}
	pins := p.graphPins.Load()
	if pins == nil {
		return false
	}
	_, ok := (*pins)[*key]
	return ok
}

// ActiveTimerWidgets returns the timer widgets of every active dashboard,
// in dashboard order.
func (p *Profile) ActiveTimerWidgets() []*Widget {
	timers := []*Widget{}
	for _, d := range p.Dashboards() {
		if d.IsActive {
			timers = append(timers, d.TimerWidgets()...)
		}
	}
	return timers
}

// --- Mutation ---

// Mutator edits a private copy of the dashboard list inside Update.
type Mutator struct {
	dashboards []*Dashboard
}

func (m *Mutator) Dashboards() []*Dashboard {
	return m.dashboards
}

// Put replaces the dashboard with the same id, or appends it.
func (m *Mutator) Put(d *Dashboard) {
	if i := indexOf(m.dashboards, d.ID); i >= 0 {
		m.dashboards[i] = d
		return
	}
	m.dashboards = append(m.dashboards, d)
}

func (m *Mutator) Remove(dashID, msgID int) error {
	i := indexOf(m.dashboards, dashID)
	if i < 0 {
		return &NotFoundError{DashID: dashID, MsgID: msgID}
	}
	m.dashboards = append(m.dashboards[:i], m.dashboards[i+1:]...)
	return nil
}

func (m *Mutator) SetActive(dashID, msgID int, active bool) error {
	i := indexOf(m.dashboards, dashID)
	if i < 0 {
		return &NotFoundError{DashID: dashID, MsgID: msgID}
	}
	d := m.dashboards[i].clone()
	d.IsActive = active
	m.dashboards[i] = d
	return nil
}

// Update runs fn against a copy of the dashboards and, if it succeeds,
// publishes the copy and rebuilds the graph pin set. Concurrent updates
// are serialised.
func (p *Profile) Update(fn func(m *Mutator) error) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	m := &Mutator{dashboards: append([]*Dashboard(nil), p.Dashboards()...)}
	if err := fn(m); err != nil {
		return err
	}
	p.dashboards.Store(&m.dashboards)
	p.RebuildGraphPins()
	return nil
}
