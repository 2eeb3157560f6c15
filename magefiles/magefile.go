//go:build mage

// Package main contains Mage build targets for trialsift developer tooling.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

const (
	binDir  = "bin"
	binName = "trialsift"
	cmdPkg  = "./cmd/trialsift"

	trialsDir     = "trials"
	referenceFile = "rare_cancers.csv"
)

// sampleReference seeds a reference list so a fresh checkout can run extract.
const sampleReference = `Ewing Sarcoma
Chordoma
Mesothelioma
Osteosarcoma
`

// Init creates the trials/ directory and a starter reference list. An
// existing reference list is left untouched.
func Init() error {
	if err := os.MkdirAll(trialsDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", trialsDir, err)
	}
	fmt.Println("  ", trialsDir)

	if _, err := os.Stat(referenceFile); err == nil {
		fmt.Println("  ", referenceFile, "(exists)")
		return nil
	}
	if err := os.WriteFile(referenceFile, []byte(sampleReference), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", referenceFile, err)
	}
	fmt.Println("  ", referenceFile)
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := run("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return run("go", "test", "./...")
}

// Extract builds the CLI and runs it against trials/.
func Extract() error {
	mg.Deps(Init, Build)
	return run(filepath.Join(binDir, binName), "extract", trialsDir)
}

// Clean removes build output and the generated table.
func Clean() error {
	for _, p := range []string{binDir, "output.csv"} {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
