// Package harness drives an emulator core headlessly for automated test
// ROMs: load a ROM, single-step the core, poll a completion flag written
// by the ROM, and capture "GBA Debug" log output through a caller-supplied
// sink.
package harness

import (
	"fmt"
	"io"
	"os"

	emucore "github.com/user-none/gbatest/api"
	"github.com/user-none/gbatest/romloader"
)

// Completion-flag contract with the test ROMs: the ROM writes finishValue
// to finishAddr in working RAM when it is done. Both values are fixed by
// the ROMs this harness targets and must stay bit-exact.
const (
	finishAddr  = 0x0203FFFF
	finishValue = 3
)

// debugCategory is the only log category forwarded to sinks. The match is
// exact and case-sensitive; every other category is dropped on purpose.
const debugCategory = "GBA Debug"

// placeholderOut receives the fallback diagnostic when a matching log
// event arrives with no sink registered.
var placeholderOut io.Writer = os.Stdout

// Session owns one emulator core and drives it step by step. A session is
// not goroutine-safe; distinct sessions may live on distinct goroutines.
type Session struct {
	core   emucore.Core
	sink   LogSink
	closed bool
}

// Load reads a ROM file and creates a session for it. Archives (zip, 7z,
// gzip, rar) are extracted by the ROM loader. Returns an error wrapping
// emucore.ErrUnknownROM when no registered core recognizes the file.
func Load(path string) (*Session, error) {
	data, name, err := romloader.Load(path, emucore.Extensions())
	if err != nil {
		return nil, err
	}
	return LoadROM(data, name)
}

// LoadROM creates a session from in-memory ROM data. name is used for
// core probing and error reporting only.
//
// The session is routed as the core's log target before the core
// initializes, so events emitted during setup are not lost. On any
// failure everything allocated so far is released and no session is
// returned.
func LoadROM(data []byte, name string) (*Session, error) {
	core, err := emucore.FindCore(data, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	s := &Session{core: core}
	emucore.SetLogTarget(core, s)

	if err := core.Init(); err != nil {
		emucore.ClearLogTarget(core)
		return nil, fmt.Errorf("init core for %s: %w", name, err)
	}
	if err := core.LoadROM(data); err != nil {
		core.Deinit()
		emucore.ClearLogTarget(core)
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	core.ApplyDefaults()
	core.Reset()

	return s, nil
}

// SetLogSink registers sink to receive "GBA Debug" log output, replacing
// any previous sink. The previous sink's Release runs immediately on
// replacement. A nil sink clears the registration.
func (s *Session) SetLogSink(sink LogSink) {
	if s.sink != nil {
		s.sink.Release()
	}
	s.sink = sink
}

// Step advances the core by the smallest unit it exposes. Log events
// raised by the step are delivered to the sink on this call stack, before
// Step returns. Sinks must not call back into the session.
func (s *Session) Step() {
	s.core.Step()
}

// IsFinished reports whether the ROM has written the completion value to
// the status byte in working RAM. Safe to call every step; the harness
// never clears the flag.
func (s *Session) IsFinished() bool {
	var b [1]byte
	if s.core.ReadMemory(finishAddr, b[:]) != 1 {
		return false
	}
	return b[0] == finishValue
}

// Close tears down the core and releases the sink. Only the first call
// does anything; a closed session must not be used for anything but
// another Close.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	s.core.Deinit()
	emucore.ClearLogTarget(s.core)

	if s.sink != nil {
		s.sink.Release()
		s.sink = nil
	}
}

// CoreLog implements emucore.LogTarget. Events outside the "GBA Debug"
// category are dropped. Matching events are formatted and handed to the
// sink with the core's level code; with no sink registered, a placeholder
// line goes to standard output so the event stays visible.
func (s *Session) CoreLog(category emucore.CategoryID, level emucore.LogLevel, format string, args []any) {
	if emucore.CategoryName(category) != debugCategory {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if s.sink == nil {
		fmt.Fprintf(placeholderOut, "harness: log sink not set: [%s] %s\n", level, msg)
		return
	}
	s.sink.HandleLog(msg, level)
}
