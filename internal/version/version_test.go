package version_test

import (
	"strings"
	"testing"

	"github.com/apiward/apiward/internal/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	got := version.String()
	if !strings.Contains(got, version.Version) {
		t.Errorf("String() = %q, missing version %q", got, version.Version)
	}
	if !strings.Contains(got, version.Commit) {
		t.Errorf("String() = %q, missing commit %q", got, version.Commit)
	}
}
