package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/a-essam23/go-devicehub/pkg/pipeline"
	"github.com/a-essam23/go-devicehub/pkg/session"
	"github.com/tidwall/gjson"
)

type ResolverFunc func(pctx *pipeline.Cargo) (string, error)

// func for param "{$user.id}"
func _userID(pctx *pipeline.Cargo) (string, error) {
	if pctx.User == nil {
		return "", errors.New("param variable 'user.id' is unavailable")
	}
	return pctx.User.ID, nil
}

// func for param "{$conn.id}"
func _connID(pctx *pipeline.Cargo) (string, error) {
	if pctx.Connection == nil {
		return "", errors.New("param variable 'conn.id' is unavailable")
	}
	return pctx.Connection.ID.String(), nil
}

// func for param "{$conn.dash}", the dashboard a hardware connection is bound to
func _connDash(pctx *pipeline.Cargo) (string, error) {
	if pctx.Connection == nil {
		return "", errors.New("param variable 'conn.dash' is unavailable")
	}
	st, ok := pctx.Connection.Transport.State().(*session.HardwareState)
	if !ok {
		return "", errors.New("param variable 'conn.dash' is only set for hardware connections")
	}
	return strconv.Itoa(st.DashID), nil
}

// func for param "{$msg.id}"
func _msgID(pctx *pipeline.Cargo) (string, error) {
	return strconv.Itoa(pctx.Message.ID), nil
}

// ResolveParams expands the parameter templates of one step.
//
//	{$name}        registered resolver
//	{.body}        raw message body
//	{.body.path}   gjson path into the body, empty when absent
//
// Anything else is passed through as a literal.
func (e *Registry) ResolveParams(pctx *pipeline.Cargo, templates []string) ([]string, error) {
	resolved := make([]string, len(templates))
	body := string(pctx.Message.Body)

	for i, tpl := range templates {
		switch {
		case strings.HasPrefix(tpl, "{$") && strings.HasSuffix(tpl, "}"):
			name := strings.TrimSuffix(strings.TrimPrefix(tpl, "{$"), "}")
			resolver, ok := e.GetParamResolver(name)
			if !ok {
				return nil, fmt.Errorf("unknown param variable '%s'", name)
			}
			value, err := resolver(pctx)
			if err != nil {
				return nil, err
			}
			resolved[i] = value

		case strings.HasPrefix(tpl, "{.") && strings.HasSuffix(tpl, "}"):
			path := strings.TrimSuffix(strings.TrimPrefix(tpl, "{."), "}")
			if path == "body" {
				resolved[i] = body
				continue
			}
			subPath, ok := strings.CutPrefix(path, "body.")
			if !ok {
				return nil, fmt.Errorf("unrecognized template path '%s'", path)
			}
			if value := gjson.Get(body, subPath); value.Exists() {
				resolved[i] = value.String()
			}

		default:
			// just a string not a template
			resolved[i] = tpl
		}
	}
	return resolved, nil
}
