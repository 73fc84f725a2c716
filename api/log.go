package emucore

import "sync"

// LogLevel is a core log level. The codes are the mGBA bitmask values, so
// events forwarded from a real core keep their level byte intact.
type LogLevel int

const (
	LogFatal     LogLevel = 0x01
	LogError     LogLevel = 0x02
	LogWarn      LogLevel = 0x04
	LogInfo      LogLevel = 0x08
	LogDebug     LogLevel = 0x10
	LogStub      LogLevel = 0x20
	LogGameError LogLevel = 0x40
)

// String returns the display name of the level.
func (l LogLevel) String() string {
	switch l {
	case LogFatal:
		return "FATAL"
	case LogError:
		return "ERROR"
	case LogWarn:
		return "WARN"
	case LogInfo:
		return "INFO"
	case LogDebug:
		return "DEBUG"
	case LogStub:
		return "STUB"
	case LogGameError:
		return "GAME ERROR"
	default:
		return "UNKNOWN"
	}
}

// CategoryID identifies a registered log category.
type CategoryID int

var (
	categoryMu     sync.Mutex
	categoryNames  []string
	categoryByName = make(map[string]CategoryID)
)

// RegisterLogCategory returns the ID for a category name, registering it
// if it has not been seen before. Registering the same name twice returns
// the same ID.
func RegisterLogCategory(name string) CategoryID {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	if id, ok := categoryByName[name]; ok {
		return id
	}
	id := CategoryID(len(categoryNames))
	categoryNames = append(categoryNames, name)
	categoryByName[name] = id
	return id
}

// CategoryName returns the name a category was registered under, or the
// empty string for an unknown ID.
func CategoryName(id CategoryID) string {
	categoryMu.Lock()
	defer categoryMu.Unlock()

	if id < 0 || int(id) >= len(categoryNames) {
		return ""
	}
	return categoryNames[id]
}

// CategoryGBADebug is the category test ROMs log through the debug
// register protocol. The harness forwards only this category to sinks.
var CategoryGBADebug = RegisterLogCategory("GBA Debug")

// LogTarget receives log events from a single core. The message arrives
// unformatted; format and args follow fmt conventions.
type LogTarget interface {
	CoreLog(category CategoryID, level LogLevel, format string, args []any)
}

// Each core routes to at most one target. This replaces the traditional
// process-wide default logger, which let the most recently created
// session silently steal every other session's log events.
var (
	routeMu sync.Mutex
	routes  = make(map[Core]LogTarget)
)

// SetLogTarget routes all log events from core to target, replacing any
// previous target for that core.
func SetLogTarget(core Core, target LogTarget) {
	routeMu.Lock()
	defer routeMu.Unlock()
	routes[core] = target
}

// ClearLogTarget removes the log routing for core. Subsequent events from
// the core are dropped.
func ClearLogTarget(core Core) {
	routeMu.Lock()
	defer routeMu.Unlock()
	delete(routes, core)
}

// Dispatch delivers a log event from core to its registered target. The
// target runs synchronously on the caller's stack, so an event raised
// during a core step is observed before the step returns. Events from
// cores with no target are dropped.
func Dispatch(core Core, category CategoryID, level LogLevel, format string, args ...any) {
	routeMu.Lock()
	target := routes[core]
	routeMu.Unlock()

	if target != nil {
		target.CoreLog(category, level, format, args)
	}
}
