//go:build mgba

package mgba

/*
#include <mgba/core/log.h>
*/
import "C"
import (
	"unsafe"

	emucore "github.com/user-none/gbatest/api"
)

// gbatestLogShim receives every log event from the C trampoline with
// the message already rendered. The logger handle picks the owning core
// out of the side table; events from loggers we no longer track are
// dropped.
//
//export gbatestLogShim
func gbatestLogShim(logger *C.struct_mLogger, category C.int, level C.int, message *C.char) {
	loggerMu.Lock()
	core := loggers[unsafe.Pointer(logger)]
	loggerMu.Unlock()

	if core == nil {
		return
	}

	name := C.GoString(C.mLogCategoryName(category))
	id := emucore.RegisterLogCategory(name)
	emucore.Dispatch(core, id, emucore.LogLevel(level), "%s", C.GoString(message))
}
