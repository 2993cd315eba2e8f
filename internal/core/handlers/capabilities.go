package handlers

import "github.com/google/go-dap"

// Capabilities is the body of the `initialize` response. It embeds the
// canonical go-dap capability set so every field DAP clients already know
// about flattens straight into the response JSON, plus the custom
// `supportsHotReload` flag adds on top.
type Capabilities struct {
	dap.Capabilities
	SupportsHotReload bool `json:"supportsHotReload"`
}

// DefaultCapabilities advertises the adapter surface this core implements.
// Capabilities this core never implements are left at their zero value
// (false / nil), which go-dap omits from the response the same way
// absence is documented for optional DAP capability flags.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Capabilities: dap.Capabilities{
			SupportsConfigurationDoneRequest:   true,
			SupportsFunctionBreakpoints:        true,
			SupportsConditionalBreakpoints:     true,
			SupportsHitConditionalBreakpoints:  true,
			SupportsEvaluateForHovers:          true,
			SupportsSetVariable:                true,
			SupportsSetExpression:              true,
			SupportsLogPoints:                  true,
			SupportsExceptionInfoRequest:        true,
			SupportsExceptionOptions:            true,
			SupportsDelayedStackTraceLoading:    true,
			SupportsLoadedSourcesRequest:        true,
			SupportsTerminateThreadsRequest:     true,
			SupportsTerminateRequest:            true,
			SupportTerminateDebuggee:            true,
			SupportsDataBreakpoints:             true,
			SupportsCancelRequest:               true,
			SupportsBreakpointLocationsRequest:  true,
			SupportsRestartRequest:              false,
			SupportsStepBack:                    false,
			SupportsRestartFrame:                false,
			SupportsGotoTargetsRequest:          false,
			// No dispatch table entry answers "modules" - this core never
			// tracks loaded modules as a distinct concept - so the
			// capability stays false rather than advertising a request
			// that would always fail with ProtocolError.
			SupportsModulesRequest: false,
			ExceptionBreakpointFilters: []dap.ExceptionBreakpointsFilter{
				{Filter: "raised", Label: "Raised Exceptions", Default: false},
				{Filter: "uncaught", Label: "Uncaught Exceptions", Default: true},
			},
		},
		SupportsHotReload: true,
	}
}
