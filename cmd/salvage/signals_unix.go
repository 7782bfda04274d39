//go:build unix

package main

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"salvage/internal/engine"
)

// notifyPauseResume maps SIGUSR1 to pause and SIGUSR2 to resume, so a
// long rescue can be parked from another terminal without losing work.
func notifyPauseResume(r *engine.Runner) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, unix.SIGUSR1, unix.SIGUSR2)
	go func() {
		for sig := range ch {
			switch sig {
			case unix.SIGUSR1:
				r.Pause()
			case unix.SIGUSR2:
				r.Resume()
			}
		}
	}()
}
