//go:build linux

package main

import (
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sys/unix"
)

// enterNetns switches the calling OS thread into the named network
// namespace before any socket or TUN device is created, so everything
// vqn opens afterward lives inside it. setns only affects the calling
// thread, so the goroutine locks itself to the OS thread first and
// never unlocks - it must stay on this thread for the process lifetime.
func enterNetns(name string) error {
	runtime.LockOSThread()

	f, err := os.Open("/var/run/netns/" + name)
	if err != nil {
		return fmt.Errorf("open netns %s: %w", name, err)
	}
	defer f.Close()

	if err := unix.Setns(int(f.Fd()), unix.CLONE_NEWNET); err != nil {
		return fmt.Errorf("setns %s: %w", name, err)
	}
	return nil
}
