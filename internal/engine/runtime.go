package engine

import (
	"errors"
	"sync"
)

var (
	ErrRuntimeInitialized    = errors.New("engine: runtime already initialized")
	ErrRuntimeNotInitialized = errors.New("engine: runtime not initialized")
)

// RuntimeOptions is process-wide state shared by every view the embedder
// creates.
type RuntimeOptions struct {
	AppName string
}

var processRuntime struct {
	mu          sync.Mutex
	initialized bool
	opts        RuntimeOptions
}

// InitRuntime performs the one-time process-wide setup. The embedding layer
// must call it before constructing the first Engine; a second call without an
// intervening ShutdownRuntime fails.
func InitRuntime(opts RuntimeOptions) error {
	processRuntime.mu.Lock()
	defer processRuntime.mu.Unlock()
	if processRuntime.initialized {
		return ErrRuntimeInitialized
	}
	processRuntime.initialized = true
	processRuntime.opts = opts
	return nil
}

// ShutdownRuntime tears the process-wide state back down. Engines must be
// closed first; this only resets the init-once gate.
func ShutdownRuntime() {
	processRuntime.mu.Lock()
	defer processRuntime.mu.Unlock()
	processRuntime.initialized = false
	processRuntime.opts = RuntimeOptions{}
}

// RuntimeInitialized reports whether InitRuntime has run.
func RuntimeInitialized() bool {
	processRuntime.mu.Lock()
	defer processRuntime.mu.Unlock()
	return processRuntime.initialized
}

// RuntimeAppName returns the configured application name, empty before init.
func RuntimeAppName() string {
	processRuntime.mu.Lock()
	defer processRuntime.mu.Unlock()
	return processRuntime.opts.AppName
}
