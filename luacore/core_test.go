package luacore

import (
	"fmt"
	"strings"
	"testing"

	emucore "github.com/user-none/gbatest/api"
)

// capture records dispatched events for a core.
type capture struct {
	categories []string
	levels     []emucore.LogLevel
	messages   []string
}

func (c *capture) CoreLog(category emucore.CategoryID, level emucore.LogLevel, format string, args []any) {
	c.categories = append(c.categories, emucore.CategoryName(category))
	c.levels = append(c.levels, level)
	c.messages = append(c.messages, fmt.Sprintf(format, args...))
}

// bootCore initializes a core with the given script and routes its log
// events to the returned capture.
func bootCore(t *testing.T, script string) (*Core, *capture) {
	t.Helper()

	c := &Core{}
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	cap := &capture{}
	emucore.SetLogTarget(c, cap)
	t.Cleanup(func() {
		emucore.ClearLogTarget(c)
		c.Deinit()
	})

	if err := c.LoadROM([]byte(script)); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	c.ApplyDefaults()
	c.Reset()
	return c, cap
}

func TestFactoryCanLoad(t *testing.T) {
	f := Factory{}

	tests := []struct {
		name string
		data string
		path string
		want bool
	}{
		{"lua extension", "function step(n) end", "test.lua", true},
		{"lua extension uppercase", "function step(n) end", "TEST.LUA", true},
		{"marker no extension", "-- gbatest\nfunction step(n) end", "", true},
		{"no marker no extension", "function step(n) end", "", false},
		{"gba binary", "\x00\x01\x02", "game.gba", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.CanLoad([]byte(tt.data), tt.path); got != tt.want {
				t.Errorf("CanLoad(%q, %q) = %v, want %v", tt.data, tt.path, got, tt.want)
			}
		})
	}
}

func TestLoadROM_ScriptError(t *testing.T) {
	c := &Core{}
	if err := c.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer c.Deinit()

	if err := c.LoadROM([]byte("this is not lua ((")); err == nil {
		t.Error("LoadROM accepted a script that does not parse")
	}
}

func TestStepCounter(t *testing.T) {
	script := `
-- gbatest
function step(n)
	gba.wram_write8(0, n)
end
`
	c, _ := bootCore(t, script)

	for want := 1; want <= 3; want++ {
		c.Step()
		var b [1]byte
		c.ReadMemory(0x02000000, b[:])
		if int(b[0]) != want {
			t.Errorf("after step %d, wram[0] = %d, want %d", want, b[0], want)
		}
	}
}

func TestFinish(t *testing.T) {
	script := `
-- gbatest
function step(n)
	if n == 2 then
		gba.finish()
	end
end
`
	c, _ := bootCore(t, script)

	var b [1]byte
	c.ReadMemory(0x0203FFFF, b[:])
	if b[0] != 0 {
		t.Fatalf("completion byte = %d before any step, want 0", b[0])
	}

	c.Step()
	c.Step()
	c.ReadMemory(0x0203FFFF, b[:])
	if b[0] != 3 {
		t.Errorf("completion byte = %d after gba.finish(), want 3", b[0])
	}
}

func TestLog(t *testing.T) {
	script := `
-- gbatest
function step(n)
	gba.log(gba.INFO, "hello from lua")
	gba.logf(gba.DEBUG, "step %d of %s", n, "three")
end
`
	c, cap := bootCore(t, script)
	c.Step()

	if len(cap.messages) != 2 {
		t.Fatalf("captured %d events, want 2: %v", len(cap.messages), cap.messages)
	}
	if cap.categories[0] != "GBA Debug" {
		t.Errorf("category = %q, want %q", cap.categories[0], "GBA Debug")
	}
	if cap.messages[0] != "hello from lua" || cap.levels[0] != emucore.LogInfo {
		t.Errorf("event 0 = %q/%v, want %q/LogInfo", cap.messages[0], cap.levels[0], "hello from lua")
	}
	if cap.messages[1] != "step 1 of three" || cap.levels[1] != emucore.LogDebug {
		t.Errorf("event 1 = %q/%v, want %q/LogDebug", cap.messages[1], cap.levels[1], "step 1 of three")
	}
}

func TestTopLevelLogsAtLoad(t *testing.T) {
	// Log calls outside step() run when the ROM loads, matching a real
	// ROM logging during boot.
	script := `
-- gbatest
gba.log(gba.INFO, "booting")
function step(n) end
`
	_, cap := bootCore(t, script)

	// boot() ran twice: once at LoadROM, once at Reset.
	if len(cap.messages) == 0 || cap.messages[0] != "booting" {
		t.Fatalf("top-level log not captured: %v", cap.messages)
	}
}

func TestReset_ClearsState(t *testing.T) {
	script := `
-- gbatest
function step(n)
	gba.wram_write8(16, 255)
	gba.finish()
end
`
	c, _ := bootCore(t, script)
	c.Step()

	var b [1]byte
	c.ReadMemory(0x02000010, b[:])
	if b[0] != 255 {
		t.Fatalf("wram write lost before reset")
	}

	c.Reset()
	c.ReadMemory(0x02000010, b[:])
	if b[0] != 0 {
		t.Errorf("wram[16] = %d after reset, want 0", b[0])
	}
	c.ReadMemory(0x0203FFFF, b[:])
	if b[0] != 0 {
		t.Errorf("completion byte = %d after reset, want 0", b[0])
	}
}

func TestWramReadBack(t *testing.T) {
	script := `
-- gbatest
function step(n)
	gba.wram_write8(100, 42)
	if gba.wram_read8(100) == 42 then
		gba.log(gba.INFO, "readback ok")
	end
end
`
	c, cap := bootCore(t, script)
	c.Step()

	found := false
	for _, m := range cap.messages {
		if m == "readback ok" {
			found = true
		}
	}
	if !found {
		t.Errorf("wram readback failed: %v", cap.messages)
	}
}

func TestReadMemory_OutsideWindow(t *testing.T) {
	c, _ := bootCore(t, "-- gbatest\nfunction step(n) end")

	buf := []byte{0xFF, 0xFF, 0xFF}
	c.ReadMemory(0x08000000, buf)
	for i, b := range buf {
		if b != 0 {
			t.Errorf("buf[%d] = %d for unmapped address, want 0", i, b)
		}
	}
}

func TestScriptRuntimeErrorDoesNotPanic(t *testing.T) {
	script := `
-- gbatest
function step(n)
	error("deliberate failure")
end
`
	c, _ := bootCore(t, script)

	// Runtime errors in step() are logged and swallowed.
	c.Step()
	c.Step()
}

func TestNoStepFunction(t *testing.T) {
	c, _ := bootCore(t, "-- gbatest\nlocal x = 1")

	// A script with no step() is legal; stepping is a no-op.
	c.Step()
}

func TestSystemInfoExtensions(t *testing.T) {
	info := Factory{}.SystemInfo()
	if !strings.Contains(strings.Join(info.Extensions, ","), ".lua") {
		t.Errorf("Extensions = %v, want .lua", info.Extensions)
	}
}
