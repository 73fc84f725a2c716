package emucore

import (
	"errors"
	"sync"
)

// SystemInfo describes an emulator core for identification and reporting.
type SystemInfo struct {
	Name        string   // short system name, e.g. "GBA"
	ConsoleName string   // display name
	Extensions  []string // recognized ROM extensions, e.g. ".gba"
	CoreName    string
	CoreVersion string
}

// CoreFactory creates core instances and identifies compatible ROMs.
type CoreFactory interface {
	// SystemInfo returns core metadata for reporting.
	SystemInfo() SystemInfo

	// CanLoad reports whether this factory's core recognizes the ROM.
	// Both the raw data and the originating path (possibly empty) are
	// available for probing.
	CanLoad(data []byte, path string) bool

	// NewCore returns a fresh, uninitialized core instance.
	NewCore() Core
}

// ErrUnknownROM is returned by FindCore when no registered factory
// recognizes a ROM.
var ErrUnknownROM = errors.New("no registered core recognizes ROM")

var (
	factoryMu sync.Mutex
	factories []CoreFactory
)

// RegisterFactory adds a core factory to the registry. Factories are
// probed in registration order.
func RegisterFactory(f CoreFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories = append(factories, f)
}

// FindCore probes the registered factories and returns a fresh core from
// the first one that recognizes the ROM. The returned core has not been
// initialized. Returns ErrUnknownROM when nothing matches.
func FindCore(data []byte, path string) (Core, error) {
	factoryMu.Lock()
	probe := make([]CoreFactory, len(factories))
	copy(probe, factories)
	factoryMu.Unlock()

	for _, f := range probe {
		if f.CanLoad(data, path) {
			return f.NewCore(), nil
		}
	}
	return nil, ErrUnknownROM
}

// Extensions returns the union of ROM extensions recognized by all
// registered factories, in registration order.
func Extensions() []string {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	seen := make(map[string]bool)
	var exts []string
	for _, f := range factories {
		for _, ext := range f.SystemInfo().Extensions {
			if !seen[ext] {
				seen[ext] = true
				exts = append(exts, ext)
			}
		}
	}
	return exts
}
