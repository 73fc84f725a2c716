//go:build mgba

package main

import "github.com/user-none/gbatest/mgba"

func init() {
	mgba.Register()
}
