package engine

import (
	"log/slog"
	"sync"

	"github.com/a-essam23/go-devicehub/pkg/pipeline"
)

/*
* The central registry for all executable and context-aware components.
* It is a single, stateful object that holds all registered actions, modifiers, and parameters.
 */
type Registry struct {
	logger   *slog.Logger
	actions  map[string]pipeline.ActionFunc
	actionMu sync.RWMutex

	modifiers  map[string]pipeline.ActionFunc
	modifierMu sync.RWMutex

	params   map[string]ResolverFunc
	paramsMu sync.RWMutex
}

// New creates and initializes a new Registry instance.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		actions:   make(map[string]pipeline.ActionFunc),
		modifiers: make(map[string]pipeline.ActionFunc),
		params:    make(map[string]ResolverFunc),
		logger:    logger.With(slog.String("component", "engine")),
	}
}

func (e *Registry) RegisterCore() {
	e.registerCoreParams()
	e.registerCoreActions()
	e.registerCoreModifiers()
}

func (e *Registry) registerCoreActions() {
	e.RegisterAction("_log", actionLog)
	e.RegisterAction("_reply_ok", actionReplyOK)
	e.RegisterAction("_validate_dash", actionValidateDash)
	e.RegisterAction("_to_hardware", actionToHardware)
	e.RegisterAction("_to_apps", actionToApps)
	e.RegisterAction("_store_graph", actionStoreGraph)
	e.RegisterAction("_sync_shared", actionSyncShared)
	e.RegisterAction("_subscribe_shared", actionSubscribeShared)
	e.RegisterAction("_save_dash", actionSaveDash)
	e.RegisterAction("_delete_dash", actionDeleteDash)
	e.RegisterAction("_activate", actionActivate)
	e.RegisterAction("_deactivate", actionDeactivate)
	e.logger.Info("Registered core actions", slog.Int("count", len(e.actions)))
}

func (e *Registry) registerCoreModifiers() {
	e.RegisterModifier("quota", modifierQuota)
	e.logger.Info("Registered core modifiers", slog.Int("count", len(e.modifiers)))
}

func (e *Registry) registerCoreParams() {
	e.RegisterParams("conn.id", _connID)
	e.RegisterParams("conn.dash", _connDash)
	e.RegisterParams("user.id", _userID)
	e.RegisterParams("msg.id", _msgID)
	e.logger.Info("Registered core params", slog.Int("count", len(e.params)))
}

// --- Action Methods ---
func (e *Registry) RegisterAction(name string, fn pipeline.ActionFunc) {
	e.actionMu.Lock()
	defer e.actionMu.Unlock()
	if _, exists := e.actions[name]; exists {
		panic("action function already registered: " + name)
	}
	e.actions[name] = fn
}

func (e *Registry) GetActionFunc(name string) (pipeline.ActionFunc, bool) {
	e.actionMu.RLock()
	defer e.actionMu.RUnlock()
	fn, ok := e.actions[name]
	return fn, ok
}

// --- Modifier Methods ---

func (e *Registry) RegisterModifier(name string, fn pipeline.ActionFunc) {
	e.modifierMu.Lock()
	defer e.modifierMu.Unlock()
	if _, exists := e.modifiers[name]; exists {
		panic("modifier function already registered: " + name)
	}
	e.modifiers[name] = fn
}

func (e *Registry) GetModifierFunc(name string) (pipeline.ActionFunc, bool) {
	e.modifierMu.RLock()
	defer e.modifierMu.RUnlock()
	fn, ok := e.modifiers[name]
	return fn, ok
}

// --- Params Methods ---

func (e *Registry) RegisterParams(name string, resolver ResolverFunc) {
	e.paramsMu.Lock()
	defer e.paramsMu.Unlock()
	if _, exists := e.params[name]; exists {
		panic("Param already registered: " + name)
	}
	e.params[name] = resolver
}

func (e *Registry) GetParamResolver(name string) (ResolverFunc, bool) {
	e.paramsMu.RLock()
	defer e.paramsMu.RUnlock()
	resolver, ok := e.params[name]
	return resolver, ok
}
