//go:build !linux

package main

import "fmt"

func enterNetns(name string) error {
	return fmt.Errorf("--netns is only supported on linux")
}
