package model

type Dashboard struct {
	ID          int       `json:"id"`
	Name        string    `json:"name,omitempty"`
	IsActive    bool      `json:"isActive"`
	SharedToken string    `json:"sharedToken,omitempty"`
	Widgets     []*Widget `json:"widgets,omitempty"`
}

func (d *Dashboard) TimerWidgets() []*Widget {
	var timers []*Widget
	for _, w := range d.Widgets {
		if w.IsTimer() {
			timers = append(timers, w)
		}
	}
	return timers
}

// clone copies the dashboard header. Widgets are shared, they are
// replaced wholesale and never edited in place.
func (d *Dashboard) clone() *Dashboard {
	c := *d
	return &c
}
