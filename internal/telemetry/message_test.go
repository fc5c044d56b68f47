package telemetry

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"testing"
)

func TestProcessMessage(t *testing.T) {
	td := testdataDir()
	c := New(WithLogger(testLogger(t)))
	trace := Trace{Season: 2024, GrandPrix: "Monza"}

	t.Run("Position", func(t *testing.T) {
		msg, _ := os.ReadFile(path.Join(td, "position-msg-monza.json"))
		done, err := c.processMessage(msg, &trace)
		if done || err != nil {
			t.Fatalf("expected the trace to continue but found done=%v err=%v", done, err)
		}
		// the sample without an X coordinate is skipped
		if len(trace.Points) != 4 {
			t.Errorf("expected %d points but found %d", 4, len(trace.Points))
		}
		if trace.Points[3].X != -1441.8 || trace.Points[3].Y != 569.3 {
			t.Errorf("expected last point {-1441.8 569.3} but found %v", trace.Points[3])
		}
	})

	t.Run("Result", func(t *testing.T) {
		msg, _ := os.ReadFile(path.Join(td, "result-msg-monza.json"))
		done, err := c.processMessage(msg, &trace)
		if !done || err != nil {
			t.Fatalf("expected the trace to complete but found done=%v err=%v", done, err)
		}
		if trace.Driver != "PIA" {
			t.Errorf("expected driver '%s' but found '%s'", "PIA", trace.Driver)
		}
		if trace.LapTime != 81.432 {
			t.Errorf("expected lap time %f but found %f", 81.432, trace.LapTime)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		done, err := c.processMessage([]byte("not json"), &trace)
		if done || err != nil {
			t.Errorf("expected unparsable messages to be ignored but found done=%v err=%v", done, err)
		}
	})
}

// testdataDir gets the testdata directory path relative to the invocation of the tests.
func testdataDir() string {
	_, p, _, _ := runtime.Caller(0)
	return path.Join(filepath.Dir(p), "testdata")
}
