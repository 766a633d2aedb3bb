package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Path lookups are variables so tests and the storage.dir setting can point
// them somewhere else.
var (
	annotationDirectory    = AnnotationDirectory
	annotationFilePath     = AnnotationFilePath
	annotationLockFilePath = AnnotationLockFilePath
)

// SetDirectory stores annotations under dir instead of the user config
// directory.
func SetDirectory(dir string) {
	annotationDirectory = func() (string, error) { return dir, nil }
	annotationFilePath = func(id int64) (string, error) {
		return filepath.Join(dir, fileBase(id)+annotationFileSuffix), nil
	}
	annotationLockFilePath = func(id int64) (string, error) {
		return filepath.Join(dir, fileBase(id)+annotationLockSuffix), nil
	}
}

// ResetPaths restores the default locations.
func ResetPaths() {
	annotationDirectory = AnnotationDirectory
	annotationFilePath = AnnotationFilePath
	annotationLockFilePath = AnnotationLockFilePath
}

const (
	annotationFileSuffix = ".annotation.json"
	annotationLockSuffix = ".annotation.lock"
)

func fileBase(id int64) string { return strconv.FormatInt(id, 10) }

// AnnotationDirectory returns {UserConfigDir}/inline-annotator/annotations.
func AnnotationDirectory() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "inline-annotator", "annotations"), nil
}

// AnnotationFilePath returns the path of the record file,
// {id}.annotation.json.
func AnnotationFilePath(id int64) (string, error) {
	dir, err := annotationDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileBase(id)+annotationFileSuffix), nil
}

// AnnotationLockFilePath returns the path of the lock file,
// {id}.annotation.lock.
func AnnotationLockFilePath(id int64) (string, error) {
	dir, err := annotationDirectory()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileBase(id)+annotationLockSuffix), nil
}
