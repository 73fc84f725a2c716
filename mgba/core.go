//go:build mgba

package mgba

/*
#cgo pkg-config: mgba
#include <stdarg.h>
#include <stdio.h>
#include <stdlib.h>
#include <mgba/core/core.h>
#include <mgba/core/config.h>
#include <mgba/core/log.h>
#include <mgba-util/vfs.h>
#include <mgba/internal/gba/gba.h>

extern void gbatestLogShim(struct mLogger* logger, int category, int level, char* message);

static void gbatest_log(struct mLogger* logger, int category, enum mLogLevel level, const char* format, va_list args) {
	va_list copy;
	va_copy(copy, args);
	int size = vsnprintf(NULL, 0, format, copy) + 1;
	va_end(copy);

	char* message = malloc(size);
	vsnprintf(message, size, format, args);
	gbatestLogShim(logger, category, level, message);
	free(message);
}

static struct mLogger* gbatest_logger_new(void) {
	struct mLogger* logger = calloc(1, sizeof(struct mLogger));
	logger->log = gbatest_log;
	return logger;
}

static struct mCore* gbatest_core_open(const void* data, size_t size) {
	struct VFile* rom = VFileMemChunk(data, size);
	if (!rom) {
		return NULL;
	}
	struct mCore* core = mCoreFindVF(rom);
	if (!core) {
		rom->close(rom);
		return NULL;
	}
	core->init(core);
	if (!core->loadROM(core, rom)) {
		core->deinit(core);
		return NULL;
	}
	return core;
}

static void gbatest_core_deinit(struct mCore* core) { core->deinit(core); }
static void gbatest_core_reset(struct mCore* core) { core->reset(core); }
static void gbatest_core_step(struct mCore* core) { core->step(core); }

static uint8_t gbatest_wram_read8(struct mCore* core, uint32_t offset) {
	struct GBA* gba = core->board;
	return ((uint8_t*) gba->memory.wram)[offset];
}
*/
import "C"
import (
	"errors"
	"strings"
	"sync"
	"unsafe"

	emucore "github.com/user-none/gbatest/api"
)

const (
	wramBase = 0x02000000
	wramSize = 256 * 1024
)

var errOpenCore = errors.New("mgba: could not open core for ROM")

// Factory creates cores backed by libmgba.
type Factory struct{}

func (Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:        "GBA",
		ConsoleName: "Game Boy Advance",
		Extensions:  []string{".gba", ".agb"},
		CoreName:    "mgba",
		CoreVersion: "0.10",
	}
}

func (Factory) CanLoad(data []byte, path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".gba") || strings.HasSuffix(lower, ".agb") {
		return true
	}
	// GBA cartridge header fixed-value byte.
	return len(data) > 0xB2 && data[0xB2] == 0x96
}

func (Factory) NewCore() emucore.Core { return &Core{} }

var registerOnce sync.Once

// Register adds the libmgba core to the factory registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		emucore.RegisterFactory(Factory{})
	})
}

// Side table from the C logger handle back to the owning core. This
// replaces the C runner trick of casting the logger pointer to the
// enclosing struct by field order.
var (
	loggerMu sync.Mutex
	loggers  = make(map[unsafe.Pointer]*Core)
)

// Core drives one mCore instance.
type Core struct {
	ptr    *C.struct_mCore
	logger *C.struct_mLogger
}

// Init installs the log trampoline before any core machinery runs, so
// events emitted while the ROM loads are already routed.
//
// mGBA's default logger is process-wide; the side table keeps events
// routed to the right core even when several are alive.
func (c *Core) Init() error {
	c.logger = C.gbatest_logger_new()

	loggerMu.Lock()
	loggers[unsafe.Pointer(c.logger)] = c
	loggerMu.Unlock()

	C.mLogSetDefaultLogger(c.logger)
	return nil
}

func (c *Core) LoadROM(data []byte) error {
	if len(data) == 0 {
		return errOpenCore
	}
	// VFileMemChunk copies the buffer, so data need not be pinned.
	ptr := C.gbatest_core_open(unsafe.Pointer(&data[0]), C.size_t(len(data)))
	if ptr == nil {
		return errOpenCore
	}
	c.ptr = ptr
	return nil
}

func (c *Core) ApplyDefaults() {
	C.mCoreConfigInit(&c.ptr.config, nil)
}

func (c *Core) Reset() {
	C.gbatest_core_reset(c.ptr)
}

func (c *Core) Step() {
	C.gbatest_core_step(c.ptr)
}

func (c *Core) Deinit() {
	if c.ptr != nil {
		C.gbatest_core_deinit(c.ptr)
		C.mCoreConfigDeinit(&c.ptr.config)
		c.ptr = nil
	}
	if c.logger != nil {
		loggerMu.Lock()
		delete(loggers, unsafe.Pointer(c.logger))
		loggerMu.Unlock()

		// Never leave a freed logger installed as the default.
		if C.mLogGetDefaultLogger() == c.logger {
			C.mLogSetDefaultLogger(nil)
		}
		C.free(unsafe.Pointer(c.logger))
		c.logger = nil
	}
}

// ReadMemory exposes the working-RAM window. Addresses outside it read
// as zero.
func (c *Core) ReadMemory(addr uint32, buf []byte) uint32 {
	if c.ptr == nil {
		return 0
	}
	for i := range buf {
		a := addr + uint32(i)
		if a >= wramBase && a < wramBase+wramSize {
			buf[i] = byte(C.gbatest_wram_read8(c.ptr, C.uint32_t(a-wramBase)))
		} else {
			buf[i] = 0
		}
	}
	return uint32(len(buf))
}
