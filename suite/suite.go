// Package suite runs collections of test ROMs through the harness and
// collects pass/fail results. A YAML manifest names the ROMs, their step
// budgets, and the "GBA Debug" log lines each one is expected to emit.
package suite

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	emucore "github.com/user-none/gbatest/api"
	"github.com/user-none/gbatest/harness"
)

// defaultMaxSteps bounds a test ROM that never raises its completion
// flag. Large enough for a ROM doing real work per step, small enough
// to fail a hung ROM in reasonable time.
const defaultMaxSteps = 1_000_000

// Manifest describes a set of test ROMs to run.
type Manifest struct {
	// DefaultMaxSteps applies to cases that do not set their own budget.
	DefaultMaxSteps int `yaml:"default_max_steps"`

	Tests []Case `yaml:"tests"`
}

// Case is one test ROM and its expectations.
type Case struct {
	Name     string `yaml:"name"`
	ROM      string `yaml:"rom"`
	MaxSteps int    `yaml:"max_steps"`

	// ExpectLogs, when present, must match the captured "GBA Debug"
	// messages exactly, in order.
	ExpectLogs []string `yaml:"expect_logs"`

	// ExpectFinish defaults to true. Set false for ROMs that must NOT
	// raise the completion flag within the budget.
	ExpectFinish *bool `yaml:"expect_finish"`
}

// LoadManifest reads a YAML manifest, applying defaults for absent
// fields.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m := &Manifest{
		DefaultMaxSteps: defaultMaxSteps,
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.DefaultMaxSteps <= 0 {
		m.DefaultMaxSteps = defaultMaxSteps
	}

	for i := range m.Tests {
		if m.Tests[i].Name == "" {
			m.Tests[i].Name = filepath.Base(m.Tests[i].ROM)
		}
	}
	return m, nil
}

// Result is the outcome of one case.
type Result struct {
	Name   string
	Passed bool
	Reason string // empty when passed
	Steps  int    // steps executed
	Logs   []string
}

// Run executes every case in the manifest. Relative ROM paths resolve
// against baseDir.
func Run(m *Manifest, baseDir string) []Result {
	results := make([]Result, 0, len(m.Tests))
	for _, c := range m.Tests {
		maxSteps := c.MaxSteps
		if maxSteps <= 0 {
			maxSteps = m.DefaultMaxSteps
		}
		results = append(results, runCase(c, maxSteps, baseDir))
	}
	return results
}

// recordingSink keeps every delivered message for expectation checks.
type recordingSink struct {
	messages []string
	levels   []emucore.LogLevel
}

func (r *recordingSink) HandleLog(message string, level emucore.LogLevel) {
	r.messages = append(r.messages, message)
	r.levels = append(r.levels, level)
}

func (r *recordingSink) Release() {}

func runCase(c Case, maxSteps int, baseDir string) Result {
	romPath := c.ROM
	if !filepath.IsAbs(romPath) && baseDir != "" {
		romPath = filepath.Join(baseDir, romPath)
	}

	res := Result{Name: c.Name}

	sess, err := harness.Load(romPath)
	if err != nil {
		res.Reason = fmt.Sprintf("load: %v", err)
		return res
	}
	defer sess.Close()

	rec := &recordingSink{}
	sess.SetLogSink(rec)

	finished := false
	for res.Steps < maxSteps {
		if sess.IsFinished() {
			finished = true
			break
		}
		sess.Step()
		res.Steps++
	}
	// The flag may have been raised by the final step of the budget.
	if !finished {
		finished = sess.IsFinished()
	}

	res.Logs = rec.messages

	expectFinish := c.ExpectFinish == nil || *c.ExpectFinish
	switch {
	case expectFinish && !finished:
		res.Reason = fmt.Sprintf("did not finish within %d steps", maxSteps)
	case !expectFinish && finished:
		res.Reason = fmt.Sprintf("finished unexpectedly after %d steps", res.Steps)
	case c.ExpectLogs != nil:
		res.Reason = compareLogs(c.ExpectLogs, rec.messages)
	}

	res.Passed = res.Reason == ""
	return res
}

// compareLogs returns an empty string when got matches want exactly.
func compareLogs(want, got []string) string {
	if len(got) != len(want) {
		return fmt.Sprintf("captured %d log lines, want %d (got %q)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Sprintf("log line %d = %q, want %q", i, got[i], want[i])
		}
	}
	return ""
}
