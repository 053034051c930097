package utils

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// File name suffixes of a job's output.
const (
	FinalSuffix  = ".sql.gz"
	WorkSuffix   = ".sql.gz.work"
	ScriptSuffix = ".sh"
)

// OutputManager handles output file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// Resolve places a relative output base path under the base directory.
// Absolute paths and an empty base directory leave outFile as is.
func (om *OutputManager) Resolve(outFile string) string {
	if om.BaseOutputDir == "" || outFile == "" || filepath.IsAbs(outFile) {
		return outFile
	}
	return filepath.Join(om.BaseOutputDir, outFile)
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	if om.BaseOutputDir == "" {
		return nil
	}
	return errors.Wrap(os.MkdirAll(om.BaseOutputDir, 0o755), "create output directory")
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return errors.Wrap(os.MkdirAll(dir, 0o755), "create output directory")
}

// FinalPath is where a finished export of outFile is published.
func FinalPath(outFile string) string { return outFile + FinalSuffix }

// WorkPath is where an export of outFile is written while it runs.
func WorkPath(outFile string) string { return outFile + WorkSuffix }

// ScriptPath is the loader script for the run whose base path is outFile.
func ScriptPath(outFile string) string { return outFile + ScriptSuffix }

// RemoveIfExists deletes path, ignoring a missing file.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", path)
	}
	return nil
}

// GetFileSize returns the size of a file in bytes
func GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}
