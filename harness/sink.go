package harness

import emucore "github.com/user-none/gbatest/api"

// LogSink receives "GBA Debug" log output from a session. HandleLog gets
// the fully formatted message and the core's level code. Release is
// called exactly once, when the sink is replaced or the session closes,
// and frees whatever the sink owns.
type LogSink interface {
	HandleLog(message string, level emucore.LogLevel)
	Release()
}

type funcSink struct {
	handle  func(message string, level emucore.LogLevel)
	release func()
}

func (f *funcSink) HandleLog(message string, level emucore.LogLevel) {
	f.handle(message, level)
}

func (f *funcSink) Release() {
	if f.release != nil {
		f.release()
	}
}

// SinkFunc adapts plain functions to the LogSink interface. release may
// be nil when the sink owns nothing.
func SinkFunc(handle func(message string, level emucore.LogLevel), release func()) LogSink {
	return &funcSink{handle: handle, release: release}
}
