// Package alert persists the merged evidence for a resolved host as a JSON
// artifact under the configured, time-partitioned base directory.
package alert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xme/CertStreamMonitor/internal/models"
)

// Writer drops one <hostname>.json per resolved host.
type Writer struct {
	baseDir  string
	fqdnDirs bool
	logger   *logrus.Logger
}

// NewWriter creates an alert writer. With fqdnDirs the artifact nests under
// the hostname's reversed labels (TLD first).
func NewWriter(baseDir string, fqdnDirs bool, logger *logrus.Logger) *Writer {
	return &Writer{
		baseDir:  baseDir,
		fqdnDirs: fqdnDirs,
		logger:   logger,
	}
}

// PathFor returns the artifact path for a hostname:
// <base>/<hostname>.json, or with fqdn-dirs enabled
// <base>/com/example/mail/mail.example.com.json.
func (w *Writer) PathFor(hostname string) string {
	if !w.fqdnDirs {
		return filepath.Join(w.baseDir, hostname+".json")
	}

	labels := strings.Split(hostname, ".")
	parts := make([]string, 0, len(labels)+2)
	parts = append(parts, w.baseDir)
	for i := len(labels) - 1; i >= 0; i-- {
		parts = append(parts, labels[i])
	}
	parts = append(parts, hostname+".json")
	return filepath.Join(parts...)
}

// Write serializes the scan result to its artifact path, creating
// intermediate directories as needed. Pre-existing directories are fine;
// a pre-existing artifact is overwritten.
func (w *Writer) Write(result models.ScanResult) (string, error) {
	path := w.PathFor(result.Hostname)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create alert directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal alert for %s: %w", result.Hostname, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write alert %s: %w", path, err)
	}

	w.logger.Infof("Creating %s", path)
	return path, nil
}
