package verify

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// GlobDiscoverer finds the test files associated with a modified source
// file by probing conventional sibling locations and filtering the
// candidates through configured glob patterns. It never walks the whole
// tree; discovery stays O(candidates) per modified file.
type GlobDiscoverer struct {
	patterns []glob.Glob
}

// NewGlobDiscoverer compiles the given patterns. Patterns use '/' as the
// path separator regardless of platform.
func NewGlobDiscoverer(patterns []string) (*GlobDiscoverer, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid test glob %q: %w", p, err)
		}
		compiled = append(compiled, g)
	}
	return &GlobDiscoverer{patterns: compiled}, nil
}

// FindTests returns the test files associated with path, relative to
// cwd. A modified file that is itself a test file maps to itself.
// Candidates that do not exist on disk or do not match any configured
// pattern are skipped.
func (d *GlobDiscoverer) FindTests(cwd, path string) ([]string, error) {
	rel := filepath.ToSlash(path)
	if d.matches(rel) {
		return []string{path}, nil
	}

	var tests []string
	for _, candidate := range testCandidates(path) {
		if !d.matches(filepath.ToSlash(candidate)) {
			continue
		}
		abs := candidate
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(cwd, candidate)
		}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		tests = append(tests, candidate)
	}
	return tests, nil
}

func (d *GlobDiscoverer) matches(slashPath string) bool {
	// Directory-rooted patterns like **/*_test.go never match a bare
	// filename, so bare names are also tried with a ./ prefix.
	alt := slashPath
	if !strings.Contains(slashPath, "/") {
		alt = "./" + slashPath
	}
	for _, g := range d.patterns {
		if g.Match(slashPath) || (alt != slashPath && g.Match(alt)) {
			return true
		}
	}
	return false
}

// testCandidates lists the conventional test-file locations for a
// source file, per language family.
func testCandidates(path string) []string {
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	switch ext {
	case ".go":
		return []string{filepath.Join(dir, base+"_test.go")}
	case ".py":
		return []string{
			filepath.Join(dir, "test_"+name),
			filepath.Join(dir, base+"_test.py"),
			filepath.Join(dir, "tests", "test_"+name),
		}
	case ".ts", ".tsx", ".js", ".jsx":
		return []string{
			filepath.Join(dir, base+".test"+ext),
			filepath.Join(dir, base+".spec"+ext),
			filepath.Join(dir, "__tests__", base+".test"+ext),
			filepath.Join(dir, "__tests__", base+".spec"+ext),
		}
	default:
		return nil
	}
}
