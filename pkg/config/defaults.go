package config

func action(name string, params ...string) ActionConfig {
	return ActionConfig{Name: name, Params: params}
}

var quota = []ActionConfig{action("quota")}

// DefaultEvents is the built-in command set used when the configuration
// file declares none.
func DefaultEvents() map[string]EventConfig {
	return map[string]EventConfig{
		// app -> hardware of one dashboard
		"hardware": {
			Roles:     []string{"app"},
			Modifiers: quota,
			Actions: []ActionConfig{
				action("_validate_dash", "{.body.dashId}"),
				action("_to_hardware", "{.body.dashId}"),
			},
		},
		// hardware -> apps, graphed when the pin feeds a graph widget
		"value": {
			Roles:     []string{"hardware"},
			Modifiers: quota,
			Actions: []ActionConfig{
				action("_store_graph", "{$conn.dash}", "{.body.pin}", "{.body.pinType}", "{.body.value}"),
				action("_to_apps", "{$conn.dash}"),
			},
		},
		"sync": {
			Roles:     []string{"app"},
			Modifiers: quota,
			Actions:   []ActionConfig{action("_sync_shared", "{.body.token}")},
		},
		"save_dash": {
			Roles:   []string{"app"},
			Actions: []ActionConfig{action("_save_dash", "{.body}"), action("_reply_ok")},
		},
		"delete_dash": {
			Roles:   []string{"app"},
			Actions: []ActionConfig{action("_delete_dash", "{.body.dashId}"), action("_reply_ok")},
		},
		"activate": {
			Roles:   []string{"app"},
			Actions: []ActionConfig{action("_activate", "{.body.dashId}"), action("_reply_ok")},
		},
		"deactivate": {
			Roles:   []string{"app"},
			Actions: []ActionConfig{action("_deactivate", "{.body.dashId}"), action("_reply_ok")},
		},
		"subscribe": {
			Roles:   []string{"app"},
			Actions: []ActionConfig{action("_subscribe_shared", "{.body.token}"), action("_reply_ok")},
		},
		"ping": {
			Modifiers: quota,
			Actions:   []ActionConfig{action("_reply_ok")},
		},
	}
}
