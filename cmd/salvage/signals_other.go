//go:build !unix

package main

import "salvage/internal/engine"

// notifyPauseResume is a no-op where user signals are unavailable.
func notifyPauseResume(_ *engine.Runner) {}
