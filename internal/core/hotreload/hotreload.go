// Package hotreload implements the adapter's optional `dapper/hotReload`
// custom request: resolve a changed source file to its loaded
// module, ask the backend to reload it, re-sync the breakpoint store, and
// rebind whatever stopped-frame state the backend reports as still valid.
//
// The backend does the actual interpreter-level work (compiling, patching
// live objects); this package only sequences that work, enforces the
// request's preconditions, and turns the backend's report into the
// `dapper/hotReloadResult` event body.
package hotreload

import (
	"context"
	"encoding/json"

	"github.com/jnsquire/dapper/internal/core/breakpoints"
	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/session"
)

// Options mirrors the `dapper/hotReload` request's optional knobs.
type Options struct {
	RebindFrameLocals  bool `json:"rebindFrameLocals"`
	UpdateFrameCode    bool `json:"updateFrameCode"`
	PatchClassInstances bool `json:"patchClassInstances"`
	InvalidatePycache  bool `json:"invalidatePycache"`
}

// Result is both the `dapper/hotReload` response body and the payload
// carried by the follow-up `dapper/hotReloadResult` event (minus
// DurationMs, which the event adds once the whole sequence has run).
type Result struct {
	ReloadedModule   string   `json:"reloadedModule"`
	ReloadedPath     string   `json:"reloadedPath"`
	ReboundFrames    int      `json:"reboundFrames"`
	UpdatedFrameCode int      `json:"updatedFrameCodes"`
	PatchedInstances int      `json:"patchedInstances"`
	Warnings         []string `json:"warnings,omitempty"`
}

// backendReport is what the backend's `hotReload` command is expected to
// answer with; it knows nothing about DAP response shapes.
type backendReport struct {
	Module           string   `json:"module"`
	Path             string   `json:"path"`
	ReboundFrames    int      `json:"reboundFrames"`
	UpdatedFrameCode int      `json:"updatedFrameCodes"`
	PatchedInstances int      `json:"patchedInstances"`
	Warnings         []string `json:"warnings"`
}

// Service sequences one `dapper/hotReload` request end to end.
type Service struct {
	sess *session.Session
}

func New(sess *session.Session) *Service {
	return &Service{sess: sess}
}

// Reload runs the full resolve/reload/resync sequence. The caller (the
// request handler) is responsible for the `supportsHotReload` capability
// gate; Reload only enforces the request-local preconditions: the session
// must be stopped and must have an attached backend.
func (s *Service) Reload(ctx context.Context, path string, opts Options) (Result, error) {
	if !s.sess.State.Stopped() {
		return Result{}, dapperr.New(dapperr.PreconditionFailed, "hot reload requires the debuggee to be stopped")
	}
	if path == "" {
		return Result{}, dapperr.New(dapperr.PreconditionFailed, "hot reload requires a source path")
	}

	// Steps 1-4 (resolve module, invalidate compile cache, reload, invalidate
	// eval cache) are the backend's job: only it knows how the running
	// program's module table and compiled-code cache are organized.
	raw, err := s.sess.Execute(ctx, "hotReload", map[string]any{
		"path":                path,
		"rebindFrameLocals":   opts.RebindFrameLocals,
		"updateFrameCode":     opts.UpdateFrameCode,
		"patchClassInstances": opts.PatchClassInstances,
		"invalidatePycache":   opts.InvalidatePycache,
	})
	if err != nil {
		return Result{}, dapperr.Wrap(dapperr.HotReloadError, "backend reload failed", err)
	}

	var report backendReport
	if err := unmarshalReport(raw, &report); err != nil {
		return Result{}, dapperr.Wrap(dapperr.HotReloadError, "malformed hot reload result from backend", err)
	}

	// Step 5: clear and re-apply this file's breakpoints against the newly
	// reloaded module. The breakpoint store is the adapter's own source of
	// truth, so re-sync happens here rather than inside the backend report.
	warnings := append([]string(nil), report.Warnings...)
	if err := s.resyncBreakpoints(ctx, report.Path); err != nil {
		warnings = append(warnings, "breakpoint re-sync incomplete: "+err.Error())
	}

	// Step 6 (rebind stopped-stack references) is reported, not performed,
	// by this package: the backend already rewired its own frame objects
	// when asked to in the command above; ReboundFrames/UpdatedFrameCode
	// just carry that count back. The adapter-side frame handles describing
	// those stack entries stay valid across a hot reload (unlike a resume),
	// since no actual resume happened.

	return Result{
		ReloadedModule:   report.Module,
		ReloadedPath:     report.Path,
		ReboundFrames:    report.ReboundFrames,
		UpdatedFrameCode: report.UpdatedFrameCode,
		PatchedInstances: report.PatchedInstances,
		Warnings:         warnings,
	}, nil
}

// resyncBreakpoints re-applies every currently-stored source breakpoint for
// path against the backend, the same verify-callback shape setBreakpoints
// itself uses, so verified/actualLine reflect the reloaded module.
func (s *Service) resyncBreakpoints(ctx context.Context, path string) error {
	existing := s.sess.Breakpoints.SourceBreakpoints(path)
	if len(existing) == 0 {
		return nil
	}
	s.sess.Breakpoints.SetSourceBreakpoints(path, existing, func(bp *breakpoints.SourceBreakpoint) {
		res, execErr := s.sess.Execute(ctx, "setBreakpoint", map[string]any{
			"path":         path,
			"line":         bp.Line,
			"condition":    bp.Condition,
			"hitCondition": bp.HitCondition,
			"logMessage":   bp.LogMessage,
		})
		if execErr != nil {
			return
		}
		var v struct {
			Verified   bool `json:"verified"`
			ActualLine int  `json:"actualLine"`
		}
		_ = unmarshalReport(res, &v)
		bp.Verified = v.Verified
		if v.ActualLine != 0 {
			bp.ActualLine = v.ActualLine
		}
	})
	return nil
}

func unmarshalReport(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
