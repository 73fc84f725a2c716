// Package emucore defines the contract between the test harness and an
// emulator core. Cores register a factory with this package; the harness
// locates a compatible core by probing ROM data, the way a multi-system
// frontend picks a core for a file. Log events flow from cores back to
// the harness through a per-core routing table.
package emucore

// Core is the interface every emulator core adapter must implement.
type Core interface {
	// Init allocates core resources. Must be called before LoadROM.
	Init() error

	// LoadROM loads a ROM image into the core.
	LoadROM(data []byte) error

	// ApplyDefaults installs the core's default configuration. Called
	// after LoadROM and before Reset.
	ApplyDefaults()

	// Reset performs a hard reset, bringing the machine to its defined
	// startup state.
	Reset()

	// Step advances emulation by the smallest unit the core exposes.
	// Not necessarily one instruction or one frame.
	Step()

	// Deinit releases all core-owned resources. The core must not be
	// used after Deinit returns.
	Deinit()

	// ReadMemory reads from a flat bus address into buf and returns the
	// number of bytes read. Unmapped addresses read as zero.
	ReadMemory(addr uint32, buf []byte) uint32
}
