// Package timers fires the start and stop values of timer widgets on active
// dashboards.
package timers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/a-essam23/go-devicehub/pkg/state"
)

// UserSource lists the users with a live session.
type UserSource interface {
	GetAllUsers() ([]*state.User, error)
}

// Command is the body of the hardware message a timer sends.
type Command struct {
	Pin     *byte         `json:"pin,omitempty"`
	PinType model.PinType `json:"pinType,omitempty"`
	Value   string        `json:"value"`
}

const secondsPerDay = 24 * 60 * 60

type Worker struct {
	logger   *slog.Logger
	users    UserSource
	interval time.Duration
	msgID    atomic.Int32

	// unix second of the last Tick, zero before the first one
	last int64
}

func NewWorker(logger *slog.Logger, users UserSource, interval time.Duration) *Worker {
	return &Worker{
		logger:   logger.With(slog.String("component", "timer_worker")),
		users:    users,
		interval: interval,
	}
}

// Run ticks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Timer worker started", slog.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Timer worker stopped")
			return
		case now := <-ticker.C:
			w.Tick(now)
		}
	}
}

func secondOfDay(unix int64) int {
	return int(((unix % secondsPerDay) + secondsPerDay) % secondsPerDay)
}

// window is the run of seconds of day a Tick covers: from, from+1, ...
// n of them, wrapping at midnight.
type window struct {
	from int
	n    int
}

func (w window) contains(sec *int) bool {
	if sec == nil || *sec < 0 || *sec >= secondsPerDay {
		return false
	}
	offset := (*sec - w.from + secondsPerDay) % secondsPerDay
	return offset < w.n
}

// advance returns the seconds elapsed since the previous Tick. After a gap
// longer than a day only the second of now is covered. Ticks are driven by a
// single goroutine.
func (w *Worker) advance(now time.Time) window {
	unix := now.Unix()
	last := w.last
	if last == 0 || unix-last > secondsPerDay {
		last = unix - 1
	}
	if unix <= last {
		return window{}
	}
	w.last = unix
	return window{from: secondOfDay(last + 1), n: int(unix - last)}
}

// Tick fires every timer edge scheduled in the seconds elapsed since the
// previous Tick, up to and including the second of now, and returns how
// many were fired. The first Tick covers only the second of now. Timers
// are broadcast to all hardware of the user. Seconds of day are UTC.
func (w *Worker) Tick(now time.Time) int {
	win := w.advance(now)
	if win.n == 0 {
		return 0
	}
	users, err := w.users.GetAllUsers()
	if err != nil {
		w.logger.Error("Failed to list users", slog.Any("error", err))
		return 0
	}

	fired := 0
	for _, user := range users {
		if user.Session == nil || user.Session.HardwareCount() == 0 {
			continue
		}
		for _, timer := range user.Profile.ActiveTimerWidgets() {
			if win.contains(timer.StartTime) {
				fired += w.fire(user, timer, timer.StartValue)
			}
			if win.contains(timer.StopTime) {
				fired += w.fire(user, timer, timer.StopValue)
			}
		}
	}
	return fired
}

func (w *Worker) fire(user *state.User, timer *model.Widget, value string) int {
	if value == "" {
		return 0
	}
	msg, err := protocol.NewMessage(int(w.msgID.Add(1)), protocol.CmdHardware, Command{
		Pin:     timer.Pin,
		PinType: timer.PinType,
		Value:   value,
	})
	if err != nil {
		w.logger.Error("Failed to build timer message", slog.Any("error", err))
		return 0
	}
	user.Session.BroadcastToHardware(msg)
	w.logger.Debug("Timer fired",
		slog.String("userID", user.ID),
		slog.Int64("widgetID", timer.ID),
		slog.String("value", value),
	)
	return 1
}
