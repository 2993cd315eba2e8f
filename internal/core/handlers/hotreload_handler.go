package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jnsquire/dapper/internal/core/dapperr"
	"github.com/jnsquire/dapper/internal/core/hotreload"
)

type hotReloadSource struct {
	Path string `json:"path"`
}

type hotReloadArgs struct {
	Source  hotReloadSource  `json:"source"`
	Options hotreload.Options `json:"options"`
}

type hotReloadResponseBody struct {
	ReloadedModule   string   `json:"reloadedModule"`
	ReloadedPath     string   `json:"reloadedPath"`
	ReboundFrames    int      `json:"reboundFrames"`
	UpdatedFrameCode int      `json:"updatedFrameCodes"`
	PatchedInstances int      `json:"patchedInstances"`
	Warnings         []string `json:"warnings,omitempty"`
}

// handleHotReload runs the `dapper/hotReload` custom request. The capability gate (`supportsHotReload`) already ran in Dispatch;
// this handler only decodes arguments, drives hotreload.Service, and turns
// its Result into both the response body and the follow-up
// `dapper/hotReloadResult` event, timed end to end.
func handleHotReload(ctx context.Context, d *Deps, raw []byte) (Result, error) {
	var args hotReloadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Result{}, dapperr.Wrap(dapperr.ProtocolError, "malformed dapper/hotReload arguments", err)
	}
	if d.HotReload == nil {
		return Result{}, dapperr.New(dapperr.CapabilityViolation, "hot reload is not available for this session")
	}

	start := time.Now()
	res, err := d.HotReload.Reload(ctx, args.Source.Path, args.Options)
	if err != nil {
		return Result{}, err
	}
	durationMs := time.Since(start).Milliseconds()

	body := hotReloadResponseBody{
		ReloadedModule:   res.ReloadedModule,
		ReloadedPath:     res.ReloadedPath,
		ReboundFrames:    res.ReboundFrames,
		UpdatedFrameCode: res.UpdatedFrameCode,
		PatchedInstances: res.PatchedInstances,
		Warnings:         res.Warnings,
	}

	eventBody := struct {
		hotReloadResponseBody
		DurationMs int64 `json:"durationMs"`
	}{hotReloadResponseBody: body, DurationMs: durationMs}

	return Result{
		Body:      body,
		PostEvents: []Event{{Name: "loadedSource", Body: loadedSourceChangedBody(res.ReloadedPath)}, {Name: "dapper/hotReloadResult", Body: eventBody}},
	}, nil
}

func loadedSourceChangedBody(path string) any {
	return struct {
		Reason string `json:"reason"`
		Source struct {
			Path string `json:"path"`
		} `json:"source"`
	}{
		Reason: "changed",
		Source: struct {
			Path string `json:"path"`
		}{Path: path},
	}
}
