package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zheng/codekg/internal/config"
	"github.com/zheng/codekg/internal/graph"
	"github.com/zheng/codekg/internal/scanner"
	"github.com/zheng/codekg/internal/storage"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openDB opens the graph database. Query commands require it to exist;
// writers create it along with its directory.
func openDB(path string, create bool) (*storage.DB, error) {
	if create {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	} else if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no graph database at %s, run `codekg scan --save` first", path)
	}

	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// openOutput returns stdout for "" and "-", otherwise a created file
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, f.Close, nil
}

// runScan scans the configured paths and logs a summary of the report
func runScan(cfg *config.Config, logger *slog.Logger) (*graph.Graph, scanner.Report, error) {
	sc, err := scanner.New(cfg.ScannerOptions(logger)...)
	if err != nil {
		return nil, scanner.Report{}, err
	}
	g, report := sc.ScanReport(cfg.Paths)
	logger.Info("scan complete",
		"files", report.FilesScanned,
		"skipped", report.FilesSkipped,
		"failures", len(report.Failures),
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
	)
	return g, report, nil
}

// scanAndSave rescans and replaces the stored graph
func scanAndSave(cfg *config.Config, logger *slog.Logger, db *storage.DB) (string, *graph.Graph, error) {
	g, _, err := runScan(cfg, logger)
	if err != nil {
		return "", nil, err
	}
	scanID, err := db.SaveGraph(g, cfg.Paths)
	if err != nil {
		return "", nil, fmt.Errorf("save graph: %w", err)
	}
	return scanID, g, nil
}
