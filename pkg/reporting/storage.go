package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/gofrs/flock"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Storage persists BatchReports as JSON files under a report directory
// with keep_last_n retention, using json-iterator in place of encoding/json
// and a flock-guarded write so two orchestrator batches (e.g. CI jobs
// sharing a report dir) never interleave writes to the directory's
// retention bookkeeping.
type Storage struct {
	outputDir string
	keepLastN int
	logger    *Logger
}

func NewStorage(outputDir string, keepLastN int, logger *Logger) (*Storage, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Storage{outputDir: outputDir, keepLastN: keepLastN, logger: logger}, nil
}

// SaveReport writes report as a JSON file named batch-<timestamp>-<id>.json
// under a directory-level file lock, so cleanupOldReports never races a
// concurrent writer's ListReports scan.
func (s *Storage) SaveReport(report *BatchReport) (string, error) {
	lock := flock.New(filepath.Join(s.outputDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to lock report directory: %w", err)
	}
	defer lock.Unlock()

	timestamp := report.StartTime.Format("20060102-150405")
	filename := fmt.Sprintf("batch-%s-%s.json", timestamp, report.BatchID)
	path := filepath.Join(s.outputDir, filename)

	data, err := jsonAPI.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("batch report saved", "path", path)
	}

	if s.keepLastN > 0 {
		if err := s.cleanupOldReports(); err != nil && s.logger != nil {
			s.logger.Warn("failed to cleanup old reports", "error", err)
		}
	}
	return path, nil
}

// LoadReport loads a batch report from a JSON file.
func (s *Storage) LoadReport(path string) (*BatchReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	var report BatchReport
	if err := jsonAPI.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// ListReports lists every batch report in the output directory, newest
// first.
func (s *Storage) ListReports() ([]ReportSummary, error) {
	entries, err := os.ReadDir(s.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	summaries := make([]ReportSummary, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.outputDir, entry.Name())
		report, err := s.LoadReport(path)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to load report", "path", path, "error", err)
			}
			continue
		}
		failures := 0
		for _, r := range report.Runs {
			if !r.Successful {
				failures++
			}
		}
		summaries = append(summaries, ReportSummary{
			BatchID:   report.BatchID,
			Scenario:  report.Scenario,
			StartTime: report.StartTime,
			Runs:      len(report.Runs),
			Failures:  failures,
			Filepath:  path,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})
	return summaries, nil
}

// cleanupOldReports removes old batch report files, keeping only the
// keepLastN most recent.
func (s *Storage) cleanupOldReports() error {
	summaries, err := s.ListReports()
	if err != nil {
		return err
	}
	if len(summaries) <= s.keepLastN {
		return nil
	}
	for _, summary := range summaries[s.keepLastN:] {
		if err := os.Remove(summary.Filepath); err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to delete old report", "path", summary.Filepath, "error", err)
			}
		}
	}
	return nil
}

func (s *Storage) GetOutputDir() string { return s.outputDir }
