// Command gbatest runs GBA test ROMs headlessly and reports results.
// ROMs come from a YAML suite manifest or directly from the command
// line. A ROM passes when it raises the completion flag within its step
// budget and, if the manifest says so, emits the expected "GBA Debug"
// log lines.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/user-none/gbatest/luacore"
	"github.com/user-none/gbatest/suite"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func main() {
	manifestPath := flag.String("manifest", "", "path to a YAML suite manifest")
	maxSteps := flag.Int("steps", 0, "step budget per ROM (0 uses the manifest default)")
	verbose := flag.Bool("v", false, "print captured GBA Debug output")
	flag.Parse()

	registerCores()

	m, baseDir, err := buildManifest(*manifestPath, *maxSteps, flag.Args())
	if err != nil {
		log.Fatalf("gbatest: %v", err)
	}
	if len(m.Tests) == 0 {
		fmt.Fprintln(os.Stderr, "gbatest: no test ROMs given")
		flag.Usage()
		os.Exit(2)
	}

	results := suite.Run(m, baseDir)

	failed := 0
	for _, r := range results {
		if r.Passed {
			fmt.Printf("%s %s %s\n", passStyle.Render("PASS"), r.Name,
				dimStyle.Render(fmt.Sprintf("(%d steps)", r.Steps)))
		} else {
			failed++
			fmt.Printf("%s %s: %s\n", failStyle.Render("FAIL"), r.Name, r.Reason)
		}
		if *verbose {
			for _, line := range r.Logs {
				fmt.Printf("  %s\n", dimStyle.Render(line))
			}
		}
	}

	fmt.Printf("\n%d passed, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// buildManifest loads the manifest file, or synthesizes one from ROM
// paths given as arguments.
func buildManifest(manifestPath string, maxSteps int, roms []string) (*suite.Manifest, string, error) {
	if manifestPath != "" {
		if len(roms) > 0 {
			return nil, "", fmt.Errorf("give a manifest or ROM paths, not both")
		}
		m, err := suite.LoadManifest(manifestPath)
		if err != nil {
			return nil, "", err
		}
		if maxSteps > 0 {
			m.DefaultMaxSteps = maxSteps
		}
		return m, filepath.Dir(manifestPath), nil
	}

	m := &suite.Manifest{DefaultMaxSteps: maxSteps}
	for _, rom := range roms {
		m.Tests = append(m.Tests, suite.Case{
			Name: filepath.Base(rom),
			ROM:  rom,
		})
	}
	if m.DefaultMaxSteps <= 0 {
		m.DefaultMaxSteps = 1_000_000
	}
	return m, "", nil
}

// registerCores installs every core compiled into this binary. The mgba
// adapter registers itself from its build-tagged file.
func registerCores() {
	luacore.Register()
}
