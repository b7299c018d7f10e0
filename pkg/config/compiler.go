package config

import (
	"fmt"

	"github.com/a-essam23/go-devicehub/pkg/pipeline"
)

type ActionFuncProvider func(name string) (pipeline.ActionFunc, bool)

// CompilePipelines resolves every configured event into an executable
// pipeline: modifiers first, then actions, in declaration order.
func CompilePipelines(cfg *Config, actions, modifiers ActionFuncProvider) error {
	cfg.Pipelines = make(map[string]pipeline.Pipeline, len(cfg.Events))
	for eventName, eventCfg := range cfg.Events {
		roles, err := CompileRoles(eventCfg.Roles)
		if err != nil {
			return fmt.Errorf("event '%s': %w", eventName, err)
		}
		steps := make([]pipeline.Step, 0, len(eventCfg.Modifiers)+len(eventCfg.Actions))
		for _, modCfg := range eventCfg.Modifiers {
			fn, ok := modifiers(modCfg.Name)
			if !ok {
				return fmt.Errorf("unknown modifier '%s' in event '%s'", modCfg.Name, eventName)
			}
			steps = append(steps, pipeline.Step{Name: modCfg.Name, Function: fn, Params: modCfg.Params})
		}
		for _, actionCfg := range eventCfg.Actions {
			// look up the Go function for this action name.
			fn, ok := actions(actionCfg.Name)
			if !ok {
				return fmt.Errorf("unknown action '%s' in event '%s'", actionCfg.Name, eventName)
			}
			steps = append(steps, pipeline.Step{Name: actionCfg.Name, Function: fn, Params: actionCfg.Params})
		}
		cfg.Pipelines[eventName] = pipeline.Pipeline{Roles: roles, Steps: steps}
	}
	return nil
}
