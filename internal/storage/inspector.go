package storage

import (
	"cmp"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// AnnotationInfo describes a record file found on disk.
type AnnotationInfo struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Revision  int64     `json:"revision"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Active is set when another process holds the annotation's lock.
	Active bool `json:"active"`
}

// ScanAnnotations lists the record files of the annotation directory,
// ordered by id. Unreadable files are listed with what the directory
// entry tells.
func ScanAnnotations() ([]AnnotationInfo, error) {
	dir, err := annotationDirectory()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []AnnotationInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := []AnnotationInfo{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, annotationFileSuffix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(name, annotationFileSuffix), 10, 64)
		if err != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		info := AnnotationInfo{
			ID:        id,
			Path:      filepath.Join(dir, name),
			Size:      fi.Size(),
			UpdatedAt: fi.ModTime(),
		}
		if data, err := os.ReadFile(info.Path); err == nil {
			var rec Record
			if json.Unmarshal(data, &rec) == nil {
				info.Revision = rec.Revision
				if !rec.UpdatedAt.IsZero() {
					info.UpdatedAt = rec.UpdatedAt
				}
			}
		}
		if lockPath, err := annotationLockFilePath(id); err == nil {
			// probing must not remove the lock file of an idle annotation
			if f, ok, err := TryLock(lockPath); err == nil {
				if ok {
					_ = f.Close()
				}
				info.Active = !ok
			}
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b AnnotationInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
