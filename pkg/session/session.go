package session

import (
	"log/slog"

	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/google/uuid"
)

// Session is the live set of hardware and app connections of one user and
// the routing over them. All methods are safe for concurrent use. Sends
// hand the encoded message to each channel's own queue and never wait for
// delivery.
type Session struct {
	// InitialLoop records where the session was first created. It is an
	// affinity hint for schedulers and is not used by the session itself.
	InitialLoop any

	hardware *channelSet
	apps     *channelSet
	logger   *slog.Logger
}

func New(logger *slog.Logger, initialLoop any) *Session {
	return &Session{
		InitialLoop: initialLoop,
		hardware:    newChannelSet(),
		apps:        newChannelSet(),
		logger:      logger.With(slog.String("component", "session")),
	}
}

// --- Membership ---

func (s *Session) AddHardware(ch Channel) { s.hardware.add(ch) }
func (s *Session) AddApp(ch Channel)      { s.apps.add(ch) }

func (s *Session) RemoveHardware(id uuid.UUID) bool { return s.hardware.remove(id) }
func (s *Session) RemoveApp(id uuid.UUID) bool      { return s.apps.remove(id) }

// Remove drops the channel from whichever partition holds it.
func (s *Session) Remove(id uuid.UUID) bool {
	hw := s.hardware.remove(id)
	app := s.apps.remove(id)
	return hw || app
}

func (s *Session) HasHardware(id uuid.UUID) bool { return s.hardware.contains(id) }
func (s *Session) HasApp(id uuid.UUID) bool      { return s.apps.contains(id) }

func (s *Session) HardwareCount() int { return s.hardware.size() }
func (s *Session) AppCount() int      { return s.apps.size() }

func (s *Session) IsEmpty() bool {
	return s.hardware.size() == 0 && s.apps.size() == 0
}

// --- Dispatch ---

func (s *Session) encode(msg *protocol.Message) ([]byte, bool) {
	raw, err := msg.Encode()
	if err != nil {
		s.logger.Error("Failed to encode outbound message", slog.Any("msg", msg), slog.Any("error", err))
		return nil, false
	}
	return raw, true
}

// SendToHardware writes msg to every hardware channel bound to dashID and
// reports whether nothing was delivered: no channel matched, or msg could not
// be encoded.
func (s *Session) SendToHardware(dashID int, msg *protocol.Message) (noActiveHardware bool) {
	noActiveHardware = true
	var raw []byte
	for _, ch := range s.hardware.snapshot() {
		st := hardwareState(ch)
		if st == nil || st.DashID != dashID {
			continue
		}
		if noActiveHardware {
			var ok bool
			if raw, ok = s.encode(msg); !ok {
				return true
			}
			noActiveHardware = false
		}
		s.logger.Debug("Sending to hardware", slog.Any("msg", msg), slog.String("connID", ch.ID().String()))
		ch.Send(raw)
	}
	return noActiveHardware
}

// SendToHardwareOrReply delivers msg to the hardware bound to dashID, or
// tells reply that no such device is connected.
func (s *Session) SendToHardwareOrReply(reply Channel, dashID int, msg *protocol.Message) {
	if !s.SendToHardware(dashID, msg) {
		return
	}
	s.logger.Debug("No device in session", slog.Int("dashID", dashID))
	if raw, ok := s.encode(protocol.NewResponse(msg.ID, protocol.DeviceNotInNetwork)); ok {
		reply.Send(raw)
	}
}

func (s *Session) HasHardwareOnline(dashID int) bool {
	for _, ch := range s.hardware.snapshot() {
		if st := hardwareState(ch); st != nil && st.DashID == dashID {
			return true
		}
	}
	return false
}

// BroadcastToHardware writes msg to every hardware channel regardless of
// its dashboard.
func (s *Session) BroadcastToHardware(msg *protocol.Message) {
	s.broadcast(s.hardware, msg)
}

func (s *Session) SendToApps(msg *protocol.Message) {
	s.broadcast(s.apps, msg)
}

func (s *Session) broadcast(set *channelSet, msg *protocol.Message) {
	channels := set.snapshot()
	if len(channels) == 0 {
		return
	}
	raw, ok := s.encode(msg)
	if !ok {
		return
	}
	for _, ch := range channels {
		ch.Send(raw)
	}
	s.logger.Debug("Broadcast message", slog.Any("msg", msg), slog.Int("connection_count", len(channels)))
}

// SyncToSharedApps writes msg to every app channel following sharedToken
// except reply, the channel that caused the change.
func (s *Session) SyncToSharedApps(reply Channel, sharedToken string, msg *protocol.Message) {
	var raw []byte
	for _, ch := range s.apps.snapshot() {
		if (reply != nil && ch.ID() == reply.ID()) || !needSync(ch, sharedToken) {
			continue
		}
		if raw == nil {
			var ok bool
			if raw, ok = s.encode(msg); !ok {
				return
			}
		}
		ch.Send(raw)
	}
}

// CloseAll closes every tracked channel. Channels remove themselves from
// the session through their close hooks.
func (s *Session) CloseAll(reason error) {
	for _, ch := range s.hardware.snapshot() {
		ch.Close(reason)
	}
	for _, ch := range s.apps.snapshot() {
		ch.Close(reason)
	}
}
