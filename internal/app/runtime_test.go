package app

import (
	"os"
	"testing"

	_ "github.com/societyhub/societyhub/internal/testing/guard"
)

func TestInTestModeTracksEnvironment(t *testing.T) {
	// The guard import sets the flag before any test runs.
	RefreshTestMode()
	if !InTestMode() {
		t.Fatalf("expected test mode under the test guard")
	}

	t.Setenv("SOCIETYHUB_TEST_MODE", "0")
	RefreshTestMode()
	if InTestMode() {
		t.Fatalf("expected test mode off after flag change")
	}

	_ = os.Setenv("SOCIETYHUB_TEST_MODE", "1")
	RefreshTestMode()
	if !InTestMode() {
		t.Fatalf("expected test mode back on")
	}
}
