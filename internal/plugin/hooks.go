package plugin

import (
	"context"
	"fmt"
	"log"
)

// Result is the outcome of one plugin run.
type Result struct {
	Plugin   string
	Response *Response
	Err      error
}

// Hooks runs every plugin that declares an action.
type Hooks struct {
	manager  *Manager
	executor *Executor
}

// NewHooks creates Hooks over the plugins known to manager.
func NewHooks(manager *Manager, executor *Executor) *Hooks {
	return &Hooks{manager: manager, executor: executor}
}

// Fire runs the plugins declaring req.Action one after another. A failing
// plugin does not stop the others.
func (h *Hooks) Fire(ctx context.Context, req *Request) []Result {
	plugins := h.manager.ForAction(req.Action)
	results := make([]Result, 0, len(plugins))

	for _, p := range plugins {
		res := Result{Plugin: p.Manifest.Name}
		res.Response, res.Err = h.executor.Execute(ctx, p, req)
		if res.Err == nil && !res.Response.Success {
			res.Err = fmt.Errorf("plugin %s: %s", p.Manifest.Name, res.Response.Error)
		}
		if res.Err != nil {
			log.Printf("Plugin %s failed on %s: %v", p.Manifest.Name, req.Action, res.Err)
		}
		results = append(results, res)
	}

	return results
}
