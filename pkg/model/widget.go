package model

type WidgetKind string

const (
	KindGraph   WidgetKind = "graph"
	KindTimer   WidgetKind = "timer"
	KindButton  WidgetKind = "button"
	KindDisplay WidgetKind = "display"
)

type PinType string

const (
	PinDigital PinType = "digital"
	PinAnalog  PinType = "analog"
	PinVirtual PinType = "virtual"
)

// Widget is the subset of a dashboard widget the server routes on.
// Timer fields are seconds of day; nil means the edge is not scheduled.
type Widget struct {
	ID      int64      `json:"id"`
	Kind    WidgetKind `json:"type"`
	Pin     *byte      `json:"pin,omitempty"`
	PinType PinType    `json:"pinType,omitempty"`

	StartTime  *int   `json:"startTime,omitempty"`
	StopTime   *int   `json:"stopTime,omitempty"`
	StartValue string `json:"startValue,omitempty"`
	StopValue  string `json:"stopValue,omitempty"`
}

func (w *Widget) IsGraph() bool { return w != nil && w.Kind == KindGraph }
func (w *Widget) IsTimer() bool { return w != nil && w.Kind == KindTimer }

// GraphKey identifies the data series feeding one graph widget.
type GraphKey struct {
	DashID  int
	Pin     byte
	PinType PinType
}

func NewGraphKey(dashID int, pin byte, pinType PinType) *GraphKey {
	return &GraphKey{DashID: dashID, Pin: pin, PinType: pinType}
}
