// Package luacore implements a scripted emulator core whose "ROM" is a
// Lua file. Test scenarios that would otherwise need a cross-compiled
// GBA image (write working RAM, emit debug log lines, raise the
// completion flag after N steps) can be written as a few lines of Lua
// instead. The script defines a global step(n) function; every core step
// invokes it once with the 1-based step number.
//
// Script environment (the gba table):
//
//	gba.wram_write8(offset, value)  -- write a byte into working RAM
//	gba.wram_read8(offset)          -- read a byte back
//	gba.log(level, text)            -- emit a "GBA Debug" log event
//	gba.logf(level, format, ...)    -- emit with fmt-style formatting
//	gba.finish()                    -- raise the completion flag
//	gba.FATAL .. gba.DEBUG          -- log level codes
package luacore

import (
	"bytes"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	emucore "github.com/user-none/gbatest/api"
)

const (
	wramSize     = 256 * 1024
	wramBase     = 0x02000000
	finishOffset = 0x3FFFF
	finishValue  = 3
)

// scriptMarker identifies script ROMs handed over without a .lua path.
var scriptMarker = []byte("-- gbatest")

// Factory creates scripted cores and recognizes .lua ROM files.
type Factory struct{}

func (Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:        "GBA",
		ConsoleName: "Game Boy Advance (scripted)",
		Extensions:  []string{".lua"},
		CoreName:    "luacore",
		CoreVersion: "1.0.0",
	}
}

func (Factory) CanLoad(data []byte, path string) bool {
	if strings.HasSuffix(strings.ToLower(path), ".lua") {
		return true
	}
	return bytes.HasPrefix(data, scriptMarker)
}

func (Factory) NewCore() emucore.Core { return &Core{} }

var registerOnce sync.Once

// Register adds the scripted core to the factory registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		emucore.RegisterFactory(Factory{})
	})
}

// Core runs one Lua script as its ROM.
type Core struct {
	script string
	wram   []byte
	state  *lua.LState
	stepFn lua.LValue
	stepN  int
}

func (c *Core) Init() error {
	c.wram = make([]byte, wramSize)
	return nil
}

// LoadROM compiles and runs the script's top level, so script errors
// surface at load time rather than on the first step.
func (c *Core) LoadROM(data []byte) error {
	c.script = string(data)
	return c.boot()
}

// ApplyDefaults is a no-op; a scripted core has no configuration context.
func (c *Core) ApplyDefaults() {}

// Reset re-runs the script from scratch with cleared working RAM.
func (c *Core) Reset() {
	if err := c.boot(); err != nil {
		log.Printf("luacore: reset: %v", err)
	}
}

// boot discards any running interpreter, zeroes memory, and executes the
// script's top level, capturing its global step function.
func (c *Core) boot() error {
	if c.state != nil {
		c.state.Close()
		c.state = nil
	}
	if c.wram == nil {
		c.wram = make([]byte, wramSize)
	}
	for i := range c.wram {
		c.wram[i] = 0
	}
	c.stepN = 0
	c.stepFn = lua.LNil

	L := lua.NewState()
	c.installAPI(L)
	if err := L.DoString(c.script); err != nil {
		L.Close()
		return fmt.Errorf("script error: %w", err)
	}

	c.state = L
	c.stepFn = L.GetGlobal("step")
	return nil
}

func (c *Core) Step() {
	if c.state == nil || c.stepFn == lua.LNil {
		return
	}
	c.stepN++
	err := c.state.CallByParam(lua.P{
		Fn:      c.stepFn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(c.stepN))
	if err != nil {
		log.Printf("luacore: step %d: %v", c.stepN, err)
	}
}

func (c *Core) Deinit() {
	if c.state != nil {
		c.state.Close()
		c.state = nil
	}
	c.stepFn = lua.LNil
	c.wram = nil
}

// ReadMemory maps the GBA working-RAM window onto the script's memory
// image. Addresses outside the window read as zero.
func (c *Core) ReadMemory(addr uint32, buf []byte) uint32 {
	for i := range buf {
		a := addr + uint32(i)
		if a >= wramBase && a < wramBase+wramSize && c.wram != nil {
			buf[i] = c.wram[a-wramBase]
		} else {
			buf[i] = 0
		}
	}
	return uint32(len(buf))
}

// installAPI builds the gba table the script programs against.
func (c *Core) installAPI(L *lua.LState) {
	gba := L.NewTable()

	L.SetField(gba, "FATAL", lua.LNumber(emucore.LogFatal))
	L.SetField(gba, "ERROR", lua.LNumber(emucore.LogError))
	L.SetField(gba, "WARN", lua.LNumber(emucore.LogWarn))
	L.SetField(gba, "INFO", lua.LNumber(emucore.LogInfo))
	L.SetField(gba, "DEBUG", lua.LNumber(emucore.LogDebug))

	L.SetField(gba, "wram_write8", L.NewFunction(func(L *lua.LState) int {
		off := L.CheckInt(1)
		val := L.CheckInt(2)
		if off >= 0 && off < wramSize {
			c.wram[off] = byte(val)
		}
		return 0
	}))

	L.SetField(gba, "wram_read8", L.NewFunction(func(L *lua.LState) int {
		off := L.CheckInt(1)
		var b byte
		if off >= 0 && off < wramSize {
			b = c.wram[off]
		}
		L.Push(lua.LNumber(b))
		return 1
	}))

	L.SetField(gba, "log", L.NewFunction(func(L *lua.LState) int {
		level := emucore.LogLevel(L.CheckInt(1))
		text := L.CheckString(2)
		emucore.Dispatch(c, emucore.CategoryGBADebug, level, "%s", text)
		return 0
	}))

	L.SetField(gba, "logf", L.NewFunction(func(L *lua.LState) int {
		level := emucore.LogLevel(L.CheckInt(1))
		format := L.CheckString(2)
		args := make([]any, 0, L.GetTop()-2)
		for i := 3; i <= L.GetTop(); i++ {
			args = append(args, luaToGo(L.Get(i)))
		}
		emucore.Dispatch(c, emucore.CategoryGBADebug, level, format, args...)
		return 0
	}))

	L.SetField(gba, "finish", L.NewFunction(func(L *lua.LState) int {
		c.wram[finishOffset] = finishValue
		return 0
	}))

	L.SetGlobal("gba", gba)
}

// luaToGo converts a Lua value to a Go value suitable for fmt verbs.
// Integral numbers come back as int64 so %d works.
func luaToGo(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}
