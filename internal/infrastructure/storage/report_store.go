package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ReportStore keeps generated status reports in one directory
type ReportStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewReportStore creates a store rooted at baseDir
func NewReportStore(baseDir string, logger *zap.Logger) *ReportStore {
	return &ReportStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content under name, replacing an earlier report of the same
// name, and returns the full path
func (s *ReportStore) Save(ctx context.Context, name string, content []byte) (string, error) {
	fullPath := s.GetFullPath(name)

	// Validate path security
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create report directory",
			zap.String("path", s.baseDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	// Write to a temp file first so a reader never sees half a workbook
	tmp := fullPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		s.logger.Error("Failed to write report",
			zap.String("path", tmp),
			zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}

	s.logger.Debug("Report saved",
		zap.String("path", fullPath),
		zap.Int("size", len(content)))

	return fullPath, nil
}

// List returns the stored report names with the given extension, newest
// name first. Report names carry their date, so name order is date order.
func (s *ReportStore) List(ctx context.Context, ext string) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Prune deletes all but the keep newest reports with the given extension
// and returns the deleted names
func (s *ReportStore) Prune(ctx context.Context, ext string, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep must not be negative, got %d", keep)
	}
	names, err := s.List(ctx, ext)
	if err != nil || len(names) <= keep {
		return nil, err
	}

	var deleted []string
	for _, name := range names[keep:] {
		if err := s.Delete(ctx, name); err != nil {
			return deleted, err
		}
		deleted = append(deleted, name)
	}

	s.logger.Info("Old reports pruned",
		zap.Int("deleted", len(deleted)),
		zap.Int("kept", keep))
	return deleted, nil
}

// Delete removes a stored report. A missing report is not an error.
func (s *ReportStore) Delete(ctx context.Context, name string) error {
	fullPath := s.GetFullPath(name)

	// Validate path security
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete report",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetFullPath converts a report name to its full path
func (s *ReportStore) GetFullPath(name string) string {
	return filepath.Join(s.baseDir, name)
}

// validatePath checks that the path stays inside baseDir
func (s *ReportStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes report directory: %s", fullPath)
	}

	return nil
}
