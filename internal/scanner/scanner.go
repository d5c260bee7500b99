// Package scanner walks source trees, filters candidate files and drives the
// registered extractors over each one to build a single graph.
package scanner

import (
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/zheng/codekg/internal/extract"
	"github.com/zheng/codekg/internal/graph"
)

// Scanner discovers files under a set of roots and feeds them to extractors.
// A Scanner holds no per-scan state and may be reused.
type Scanner struct {
	extractors      []extract.Extractor
	extensions      map[string]struct{} // nil means every regular file
	ignores         map[string]struct{}
	excludePatterns []string
	excludes        []glob.Glob
	gitignore       bool
	workers         int
	readFile        func(string) ([]byte, error)
	logger          *slog.Logger
}

// Failure records one extractor that failed on one file
type Failure struct {
	Path      string
	Extractor string
	Err       error
}

// Report summarizes a scan
type Report struct {
	FilesScanned int
	FilesSkipped int
	Failures     []Failure
}

// New creates a Scanner. Without options it runs the heuristic extractor over
// every regular file outside DefaultIgnores.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		extractors: []extract.Extractor{extract.NewHeuristic(extract.HeuristicConfig{})},
		ignores:    make(map[string]struct{}, len(DefaultIgnores)),
		workers:    DefaultWorkers,
		readFile:   os.ReadFile,
		logger:     slog.Default(),
	}
	for _, name := range DefaultIgnores {
		s.ignores[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, pattern := range s.excludePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
		}
		s.excludes = append(s.excludes, g)
	}
	return s, nil
}

// ShouldIncludeFile reports whether path is a scan candidate: not dot-prefixed,
// no path component in the ignore set, and either an allowed extension or,
// without an allowlist, a regular file.
func (s *Scanner) ShouldIncludeFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if _, ok := s.ignores[part]; ok {
			return false
		}
	}
	if s.extensions != nil {
		_, ok := s.extensions[strings.ToLower(filepath.Ext(base))]
		return ok
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// WalkPaths lazily yields candidate files under roots. A root that is a file is
// yielded if it passes ShouldIncludeFile. Ignored and dot-prefixed directories
// below a root are pruned before descent; traversal errors are skipped.
func (s *Scanner) WalkPaths(roots []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, root := range roots {
			info, err := os.Stat(root)
			if err != nil {
				s.logger.Warn("skipping root", "path", root, "error", err)
				continue
			}
			if !info.IsDir() {
				if s.ShouldIncludeFile(root) && !s.excluded(filepath.Base(root), filepath.Base(root), nil, false) {
					if !yield(root) {
						return
					}
				}
				continue
			}
			if !s.walkRoot(root, yield) {
				return
			}
		}
	}
}

// walkRoot walks one directory root and reports false once yield asks to stop
func (s *Scanner) walkRoot(root string, yield func(string) bool) bool {
	gi := s.loadGitignore(root)
	stopped := false

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Debug("walk error", "path", path, "error", err)
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			name := d.Name()
			if _, ok := s.ignores[name]; ok || strings.HasPrefix(name, ".") || s.excluded(rel, name, gi, true) {
				return fs.SkipDir
			}
			return nil
		}
		if !s.ShouldIncludeFile(path) || s.excluded(rel, d.Name(), gi, false) {
			return nil
		}
		if !yield(path) {
			stopped = true
			return fs.SkipAll
		}
		return nil
	})
	return !stopped
}

func (s *Scanner) loadGitignore(root string) *ignore.GitIgnore {
	if !s.gitignore {
		return nil
	}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

func (s *Scanner) excluded(rel, name string, gi *ignore.GitIgnore, isDir bool) bool {
	for _, g := range s.excludes {
		if g.Match(rel) || g.Match(name) {
			return true
		}
	}
	if gi == nil {
		return false
	}
	return gi.MatchesPath(rel) || (isDir && gi.MatchesPath(rel+"/"))
}

// Scan builds a graph from every candidate file under roots
func (s *Scanner) Scan(roots []string) *graph.Graph {
	g, _ := s.ScanReport(roots)
	return g
}

// ScanReport is Scan plus a summary of skipped files and extractor failures.
//
// Files are read concurrently in batches but extracted one at a time in walk
// order, so the graph never sees concurrent writes and the result is stable.
func (s *Scanner) ScanReport(roots []string) (*graph.Graph, Report) {
	g := graph.New()
	var report Report

	batch := make([]string, 0, s.workers*4)
	flush := func() {
		for _, src := range s.readBatch(batch) {
			if src.err != nil {
				report.FilesSkipped++
				s.logger.Debug("skipping unreadable file", "path", src.path, "error", src.err)
				continue
			}
			report.FilesScanned++
			s.extractFile(g, src.path, src.text, &report)
		}
		batch = batch[:0]
	}

	for path := range s.WalkPaths(roots) {
		batch = append(batch, path)
		if len(batch) == cap(batch) {
			flush()
		}
	}
	flush()

	s.logger.Debug("scan complete",
		"files", report.FilesScanned,
		"skipped", report.FilesSkipped,
		"failures", len(report.Failures),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())
	return g, report
}

type sourceFile struct {
	path string
	text string
	err  error
}

func (s *Scanner) readBatch(paths []string) []sourceFile {
	files := make([]sourceFile, len(paths))
	var eg errgroup.Group
	eg.SetLimit(s.workers)
	for i, path := range paths {
		eg.Go(func() error {
			data, err := s.readFile(path)
			files[i] = sourceFile{path: path, err: err}
			if err == nil {
				files[i].text = strings.ToValidUTF8(string(data), "\uFFFD")
			}
			return nil
		})
	}
	_ = eg.Wait()
	return files
}

func (s *Scanner) extractFile(g *graph.Graph, path, text string, report *Report) {
	for _, x := range s.extractors {
		if err := runExtractor(x, path, text, g); err != nil {
			report.Failures = append(report.Failures, Failure{Path: path, Extractor: x.Name(), Err: err})
			s.logger.Warn("extractor failed", "extractor", x.Name(), "path", path, "error", err)
		}
	}
}

// runExtractor confines errors and panics to one (extractor, file) pair
func runExtractor(x extract.Extractor, path, text string, g *graph.Graph) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExtractorPanic, r)
		}
	}()
	if !x.Supports(path, text) {
		return nil
	}
	return x.Extract(path, text, g)
}
