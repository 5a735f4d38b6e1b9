package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook is called for every error built while reporting is active
type ErrorHook func(ee *EnhancedError)

var (
	errorHooks   []ErrorHook
	errorHooksMu sync.RWMutex

	// hasActiveReporting lets Build skip component detection when neither a
	// telemetry reporter nor a hook would see the error.
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook, e.g. a metrics counter keyed by category
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	errorHooksMu.Lock()
	errorHooks = append(errorHooks, hook)
	errorHooksMu.Unlock()
	updateReportingState()
}

// ClearErrorHooks removes all registered hooks
func ClearErrorHooks() {
	errorHooksMu.Lock()
	errorHooks = nil
	errorHooksMu.Unlock()
	updateReportingState()
}

func updateReportingState() {
	errorHooksMu.RLock()
	hooks := len(errorHooks)
	errorHooksMu.RUnlock()

	reporter := GetTelemetryReporter()
	hasActiveReporting.Store(hooks > 0 || (reporter != nil && reporter.IsEnabled()))
}

// reportToTelemetry hands the error to the reporter and every hook
func reportToTelemetry(ee *EnhancedError) {
	if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}

	errorHooksMu.RLock()
	hooks := errorHooks
	errorHooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
}
