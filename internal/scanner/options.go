package scanner

import (
	"log/slog"
	"strings"

	"github.com/zheng/codekg/internal/extract"
)

// DefaultIgnores are directory or file names that are never scanned
var DefaultIgnores = []string{".git", "node_modules", ".venv", "__pycache__", ".idea", ".vscode", "dist", "build"}

// DefaultWorkers is the number of files read concurrently
const DefaultWorkers = 4

// Option configures a Scanner
type Option func(*Scanner)

// WithExtractors replaces the default heuristic extractor. Order is preserved.
func WithExtractors(extractors ...extract.Extractor) Option {
	return func(s *Scanner) {
		if len(extractors) > 0 {
			s.extractors = extractors
		}
	}
}

// WithExtensions restricts scanning to the given extensions.
// Matching is case-insensitive and a missing leading dot is added.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		if len(exts) == 0 {
			return
		}
		s.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			s.extensions[ext] = struct{}{}
		}
	}
}

// WithIgnores replaces DefaultIgnores
func WithIgnores(names ...string) Option {
	return func(s *Scanner) {
		if len(names) == 0 {
			return
		}
		s.ignores = make(map[string]struct{}, len(names))
		for _, name := range names {
			s.ignores[name] = struct{}{}
		}
	}
}

// WithExcludePatterns adds glob patterns matched against root-relative paths and base names
func WithExcludePatterns(patterns ...string) Option {
	return func(s *Scanner) {
		s.excludePatterns = append(s.excludePatterns, patterns...)
	}
}

// WithGitignore honors a .gitignore found at the top of each directory root
func WithGitignore(enabled bool) Option {
	return func(s *Scanner) {
		s.gitignore = enabled
	}
}

// WithWorkers sets how many files are read concurrently
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithReadFile replaces os.ReadFile
func WithReadFile(fn func(path string) ([]byte, error)) Option {
	return func(s *Scanner) {
		if fn != nil {
			s.readFile = fn
		}
	}
}

// WithLogger sets the logger for skipped files and extractor failures
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}
