package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/a-essam23/go-devicehub/pkg/pipeline"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/a-essam23/go-devicehub/pkg/session"
)

// HardwareValue is what apps receive when a device reports a pin value.
type HardwareValue struct {
	DashID int             `json:"dashId"`
	Data   json.RawMessage `json:"data"`
}

func actionLog(pctx *pipeline.Cargo, params ...string) error {
	if len(params) != 1 {
		return errors.New("_log requires exactly 1 parameter: [message]")
	}
	pctx.Logger.Info(params[0], slog.String("component", "action_log"), slog.String("userID", pctx.User.ID))
	return nil
}

func actionReplyOK(pctx *pipeline.Cargo, params ...string) error {
	return reply(pctx, protocol.NewResponse(pctx.Message.ID, protocol.OK))
}

func actionValidateDash(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_validate_dash", params, 1); err != nil {
		return err
	}
	dashID, err := intParam("_validate_dash", "dashId", params[0])
	if err != nil {
		return err
	}
	return pctx.User.Profile.ValidateDashID(dashID, pctx.Message.ID)
}

// actionToHardware forwards the message body to the hardware bound to the
// dashboard, or tells the sender no device is connected.
func actionToHardware(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_to_hardware", params, 1); err != nil {
		return err
	}
	dashID, err := intParam("_to_hardware", "dashId", params[0])
	if err != nil {
		return err
	}
	s, err := userSession(pctx)
	if err != nil {
		return err
	}
	msg := &protocol.Message{ID: pctx.Message.ID, Command: protocol.CmdHardware, Body: pctx.Message.Body}
	s.SendToHardwareOrReply(pctx.Connection.Transport, dashID, msg)
	return nil
}

func actionToApps(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_to_apps", params, 1); err != nil {
		return err
	}
	dashID, err := intParam("_to_apps", "dashId", params[0])
	if err != nil {
		return err
	}
	s, err := userSession(pctx)
	if err != nil {
		return err
	}
	msg, err := protocol.NewMessage(pctx.Message.ID, protocol.CmdHardware, HardwareValue{DashID: dashID, Data: pctx.Message.Body})
	if err != nil {
		return err
	}
	s.SendToApps(msg)
	return nil
}

// actionStoreGraph keeps the value when the pin feeds a graph widget.
// Params: [dashId, pin, pinType, value]. A missing pin is not an error.
func actionStoreGraph(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_store_graph", params, 4); err != nil {
		return err
	}
	if params[1] == "" || pctx.Graphs == nil {
		return nil
	}
	dashID, err := intParam("_store_graph", "dashId", params[0])
	if err != nil {
		return err
	}
	pin, err := strconv.ParseUint(params[1], 10, 8)
	if err != nil {
		return fmt.Errorf("_store_graph: invalid pin '%s': %w", params[1], protocol.ErrIllegalCommand)
	}

	key := model.GraphKey{DashID: dashID, Pin: byte(pin), PinType: model.PinType(params[2])}
	if !pctx.User.Profile.HasGraphPin(&key) {
		return nil
	}
	pctx.Graphs.Append(pctx.User.ID, key, params[3], pctx.ReceivedAt)
	pctx.Logger.Debug("Stored graph sample", slog.Any("key", key))
	return nil
}

func actionSyncShared(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_sync_shared", params, 1); err != nil {
		return err
	}
	if params[0] == "" {
		return fmt.Errorf("_sync_shared: empty token: %w", protocol.ErrIllegalCommand)
	}
	s, err := userSession(pctx)
	if err != nil {
		return err
	}
	msg := &protocol.Message{ID: pctx.Message.ID, Command: protocol.CmdSync, Body: pctx.Message.Body}
	s.SyncToSharedApps(pctx.Connection.Transport, params[0], msg)
	return nil
}

func actionSubscribeShared(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_subscribe_shared", params, 1); err != nil {
		return err
	}
	if params[0] == "" {
		return fmt.Errorf("_subscribe_shared: empty token: %w", protocol.ErrIllegalCommand)
	}
	st, ok := pctx.Connection.Transport.State().(*session.AppState)
	if !ok {
		return fmt.Errorf("_subscribe_shared: %w", protocol.ErrNotAllowed)
	}
	st.Subscribe(params[0])
	return nil
}

// --- Profile mutations ---

func actionSaveDash(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_save_dash", params, 1); err != nil {
		return err
	}
	var dash model.Dashboard
	if err := json.Unmarshal([]byte(params[0]), &dash); err != nil {
		return fmt.Errorf("_save_dash: %v: %w", err, protocol.ErrIllegalCommand)
	}
	return pctx.User.Profile.Update(func(m *model.Mutator) error {
		m.Put(&dash)
		return nil
	})
}

func actionDeleteDash(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_delete_dash", params, 1); err != nil {
		return err
	}
	dashID, err := intParam("_delete_dash", "dashId", params[0])
	if err != nil {
		return err
	}
	profile := pctx.User.Profile
	if err := profile.Update(func(m *model.Mutator) error {
		return m.Remove(dashID, pctx.Message.ID)
	}); err != nil {
		return err
	}
	if active, ok := profile.ActiveDashID(); ok && active == dashID {
		profile.ClearActiveDashID()
	}
	return nil
}

func actionActivate(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_activate", params, 1); err != nil {
		return err
	}
	dashID, err := intParam("_activate", "dashId", params[0])
	if err != nil {
		return err
	}
	profile := pctx.User.Profile
	if err := profile.Update(func(m *model.Mutator) error {
		return m.SetActive(dashID, pctx.Message.ID, true)
	}); err != nil {
		return err
	}
	profile.SetActiveDashID(dashID)
	return nil
}

func actionDeactivate(pctx *pipeline.Cargo, params ...string) error {
	if err := expectParams("_deactivate", params, 1); err != nil {
		return err
	}
	dashID, err := intParam("_deactivate", "dashId", params[0])
	if err != nil {
		return err
	}
	profile := pctx.User.Profile
	if err := profile.Update(func(m *model.Mutator) error {
		return m.SetActive(dashID, pctx.Message.ID, false)
	}); err != nil {
		return err
	}
	if active, ok := profile.ActiveDashID(); ok && active == dashID {
		profile.ClearActiveDashID()
	}
	return nil
}
