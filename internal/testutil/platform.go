package testutil

import (
	"os"
	"runtime"
	"sync/atomic"
	"testing"
)

// Platform describes where the tests run.
type Platform struct {
	Windows bool
	// Root is set when permission bits do not restrict the process.
	Root bool
	UID  int
}

// DetectPlatform inspects the running process.
func DetectPlatform(t testing.TB) Platform {
	t.Helper()
	uid := os.Geteuid()
	p := Platform{Windows: runtime.GOOS == "windows", Root: uid == 0, UID: uid}
	t.Logf("platform: %s uid=%d", runtime.GOOS, uid)
	return p
}

// SkipIfRoot skips tests that rely on file permissions being enforced.
func SkipIfRoot(t testing.TB, p Platform, reason string) {
	t.Helper()
	if p.Root {
		t.Skipf("skipping as root: %s", reason)
	}
}

// SkipIfWindows skips tests that need Unix file semantics.
func SkipIfWindows(t testing.TB, p Platform, reason string) {
	t.Helper()
	if p.Windows {
		t.Skipf("skipping on windows: %s", reason)
	}
}

var annotationIDs atomic.Int64

// AnnotationID returns an annotation id no other caller in the process got,
// so tests sharing the in-memory backend do not collide.
func AnnotationID() int64 {
	return 1000 + annotationIDs.Add(1)
}
