package speech

import (
	"runtime"
	"strings"
	"testing"
)

func TestDefaultLibraryPath(t *testing.T) {
	p := DefaultLibraryPath()
	want := map[string]string{
		"windows": ".dll",
		"darwin":  ".dylib",
	}
	suffix, ok := want[runtime.GOOS]
	if !ok {
		suffix = ".so"
	}
	if !strings.HasSuffix(p, suffix) {
		t.Errorf("DefaultLibraryPath() = %q, want suffix %q", p, suffix)
	}
}
