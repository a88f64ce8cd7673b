package monitoring

import (
	"bytes"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("batch loaded: %d records", 3)
	if !called {
		t.Error("Custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestDiagf_Redirect(t *testing.T) {
	var buf bytes.Buffer
	prev := SetDiagnostics(&buf)
	defer SetDiagnostics(prev)

	Diagf("Error: Could not read file: %s", "runs/a.json")
	Diagf("Please check at least one box in each group")

	want := "Error: Could not read file: runs/a.json\nPlease check at least one box in each group\n"
	if got := buf.String(); got != want {
		t.Errorf("diagnostics = %q, want %q", got, want)
	}
}

func TestSetDiagnostics_NilDiscards(t *testing.T) {
	prev := SetDiagnostics(nil)
	defer SetDiagnostics(prev)

	// Must not panic.
	Diagf("No data found for key %v", []string{"1", "V"})
}
