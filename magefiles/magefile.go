//go:build mage

// Package main contains Mage build targets for paper-fetcher developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "paper-fetcher"
	cmdPkg  = "./cmd/paper-fetcher"

	defaultOutputDir = "arxiv_papers"
)

// outputDirs lists the directories a fetch writes into.
var outputDirs = []string{"pdfs", "summaries", "extracted_text", "ai_analysis"}

// Init creates the output directory structure and the .secrets/ directory.
func Init() error {
	root := outputDir()
	dirs := []string{".secrets"}
	for _, d := range outputDirs {
		dirs = append(dirs, filepath.Join(root, d))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Output directories initialized.")
	return nil
}

// Build compiles the CLI binary into bin/, stamping the git version when
// one is available.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Fetch builds the CLI and runs a fetch. Extra flags come from the FETCH_ARGS
// environment variable, e.g. FETCH_ARGS="-c cs.RO -n 10" mage fetch.
func Fetch() error {
	mg.Deps(Build, Init)
	args := []string{"fetch", "--output", outputDir()}
	args = append(args, strings.Fields(os.Getenv("FETCH_ARGS"))...)
	return sh.RunV(filepath.Join(binDir, binName), args...)
}

// Stats prints project metrics: Go production/test lines and the number of
// PDFs and ledger rows in the output directory.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	pdfs, _ := filepath.Glob(filepath.Join(outputDir(), "pdfs", "*.pdf"))
	rows, err := countLedgerRows(filepath.Join(outputDir(), "metadata.csv"))
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("PDFs downloaded:                %d\n", len(pdfs))
	fmt.Printf("Ledger rows:                    %d\n", rows)
	return nil
}

func outputDir() string {
	if d := os.Getenv("PAPER_FETCHER_OUTPUT_DIR"); d != "" {
		return d
	}
	return defaultOutputDir
}

// countGoLines counts non-blank lines in Go files outside _examples/. If
// testOnly is true only _test.go files count; otherwise only non-test files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}

// countLedgerRows counts data lines in the CSV ledger. Quoted abstracts may
// span lines, so this counts records starting with a sequence number.
func countLedgerRows(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	rows := 0
	inQuote := false
	lineStart := true
	for _, r := range string(data) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == '\n' && !inQuote:
			lineStart = true
			continue
		case lineStart && !inQuote && r >= '0' && r <= '9':
			rows++
		}
		lineStart = false
	}
	return rows, nil
}
