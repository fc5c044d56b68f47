package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
	"github.com/bcdxn/racingline/internal/strategy"
	"github.com/bcdxn/racingline/internal/telemetry"
)

const monzaCSV = `Driver,Team,LapNumber,LapTimeSeconds,TyreLife,Compound,TrackTemp,IsWetLap,Stint,PitLap,PitDuration
VER,Red Bull Racing,1,85.0,1,MEDIUM,31.0,False,1,,
VER,Red Bull Racing,2,84.0,2,MEDIUM,31.0,False,1,2,22.0
VER,Red Bull Racing,3,83.0,1,HARD,31.0,False,2,,
LEC,Ferrari,1,85.5,1,SOFT,31.0,False,1,,
LEC,Ferrari,2,85.0,2,SOFT,31.0,False,1,,
LEC,Ferrari,3,84.5,3,SOFT,31.0,False,1,,
`

const spaCSV = `Driver,Team,LapNumber,LapTimeSeconds,TyreLife,Compound,TrackTemp,IsWetLap,Stint
HAM,Mercedes,1,110.0,1,INTERMEDIATE,18.0,True,1
HAM,Mercedes,2,108.0,2,INTERMEDIATE,18.5,True,1
`

func TestNewDashboard(t *testing.T) {
	d := testDashboard(t)

	if d.current != viewDrivers {
		t.Errorf("expected the %s view but found %s", viewDrivers, d.current)
	}
	if len(d.rows) != 3 {
		t.Errorf("expected %d driver rows but found %d", 3, len(d.rows))
	}
	if d.notice != "" {
		t.Errorf("expected no notice but found '%s'", d.notice)
	}
	if len(d.options.Seasons) != 2 || d.options.Seasons[0] != 2023 || d.options.Seasons[1] != 2024 {
		t.Errorf("expected seasons [2023 2024] but found %v", d.options.Seasons)
	}
	if !strings.Contains(d.View(), "All seasons") {
		t.Errorf("expected the selection bar to show the open selection")
	}
}

func TestSelectionKeys(t *testing.T) {
	d := testDashboard(t)

	d, _ = press(d, "s")
	if d.selection.Season != 2023 {
		t.Errorf("expected season 2023 but found %d", d.selection.Season)
	}
	if len(d.options.GrandPrix) != 1 || d.options.GrandPrix[0] != "Monza" {
		t.Errorf("expected grand prix options [Monza] but found %v", d.options.GrandPrix)
	}
	if len(d.rows) != 2 {
		t.Errorf("expected %d driver rows but found %d", 2, len(d.rows))
	}

	d, _ = press(d, "g", "d")
	if d.selection.GrandPrix != "Monza" {
		t.Errorf("expected grand prix Monza but found '%s'", d.selection.GrandPrix)
	}
	if len(d.selection.Drivers) != 1 || d.selection.Drivers[0] != "LEC" {
		t.Errorf("expected drivers [LEC] but found %v", d.selection.Drivers)
	}
	if len(d.rows) != 1 {
		t.Errorf("expected %d driver row but found %d", 1, len(d.rows))
	}

	d, _ = press(d, "c")
	if len(d.selection.Compounds) != 1 || d.selection.Compounds[0] != domain.TireCompoundSoft {
		t.Errorf("expected compounds [SOFT] but found %v", d.selection.Compounds)
	}
	if d.projection.Compound != domain.TireCompoundSoft {
		t.Errorf("expected the projection to follow the selected compound but found %s", d.projection.Compound)
	}

	// moving the season resets every dependent dimension
	d, _ = press(d, "s")
	if d.selection.Season != 2024 || d.selection.GrandPrix != "" || len(d.selection.Drivers) != 0 || len(d.selection.Compounds) != 0 {
		t.Errorf("expected only season 2024 selected but found %+v", d.selection)
	}
	d, _ = press(d, "s")
	if d.selection.Season != 0 {
		t.Errorf("expected the season to wrap back to all but found %d", d.selection.Season)
	}

	d, _ = press(d, "f")
	if !d.selection.GreenFlagOnly {
		t.Errorf("expected green flag only to be toggled on")
	}
}

func TestViewCycle(t *testing.T) {
	d := testDashboard(t)

	d, _ = press(d, "tab")
	if d.current != viewWeather {
		t.Errorf("expected the %s view but found %s", viewWeather, d.current)
	}
	d, _ = press(d, "shift+tab", "shift+tab")
	if d.current != viewCircuit {
		t.Errorf("expected the %s view but found %s", viewCircuit, d.current)
	}
	if d.notice != "Circuit telemetry is disabled." {
		t.Errorf("expected the disabled telemetry notice but found '%s'", d.notice)
	}
}

func TestViews(t *testing.T) {

	t.Run("Degradation", func(t *testing.T) {
		d := testDashboard(t)
		d.current = viewDegradation
		d = d.refresh()
		if !strings.Contains(d.caption, "select a driver") {
			t.Errorf("expected a prompt to select a driver but found '%s'", d.caption)
		}

		// Monza 2023, VER, MEDIUM
		d, _ = press(d, "s", "g", "d", "d", "c")
		if len(d.rows) != 2 {
			t.Errorf("expected %d degradation rows but found %d", 2, len(d.rows))
		}
		if !strings.Contains(d.caption, "stint length 2 laps") {
			t.Errorf("expected the stint length in the caption but found '%s'", d.caption)
		}
	})

	t.Run("FeatureUnavailable", func(t *testing.T) {
		d := testDashboard(t)
		d.current = viewSectors
		d = d.refresh()
		if !strings.HasPrefix(d.notice, "Not available") {
			t.Errorf("expected a feature notice but found '%s'", d.notice)
		}
	})

	t.Run("PitStops", func(t *testing.T) {
		d := testDashboard(t)
		d.current = viewPitStops
		d = d.refresh()
		if len(d.rows) != 1 {
			t.Errorf("expected %d pit stop but found %d", 1, len(d.rows))
		}
	})

	t.Run("Synergy", func(t *testing.T) {
		d := testDashboard(t)
		d.current = viewSynergy
		d = d.refresh()
		// soft, medium, hard and intermediate each have laps
		if len(d.rows) != 4 {
			t.Errorf("expected %d compound rows but found %d", 4, len(d.rows))
		}
	})

	t.Run("Projection", func(t *testing.T) {
		d := testDashboard(t)
		d.current = viewProjection
		d = d.refresh()
		// medium laps at 31°C fall inside 30°C ± 2°C
		if len(d.rows) != 2 {
			t.Errorf("expected %d projection rows but found %d", 2, len(d.rows))
		}
		d, _ = press(d, "-", "-", "-", "-")
		if len(d.rows) != 0 || d.notice != "" {
			t.Errorf("expected an empty projection without notice but found %d rows and '%s'", len(d.rows), d.notice)
		}
	})
}

func TestCircuit(t *testing.T) {

	t.Run("Available", func(t *testing.T) {
		f := &fakeFetcher{result: telemetry.Result{Trace: &telemetry.Trace{
			Season: 2023, GrandPrix: "Monza", Driver: "VER", LapTime: 81.2,
			Points: []telemetry.Point{{X: 0, Y: 0}, {X: 100, Y: 50}},
		}}}
		d := testDashboard(t, WithTelemetry(f))

		d, cmd := press(d, "s", "g", "t")
		if cmd == nil || !d.loadingTrace {
			t.Fatalf("expected a trace lookup to start")
		}
		if !strings.Contains(d.View(), "Loading circuit trace for Monza 2023") {
			t.Errorf("expected the loading indicator")
		}

		d = send(d, fetchTraceCmd(context.Background(), f, 2023, "Monza")())
		if d.loadingTrace || d.trace == nil || !d.trace.Available() {
			t.Fatalf("expected the trace to be loaded but found %+v", d.trace)
		}
		if !strings.Contains(d.View(), "Fastest lap of Monza 2023: 1:21.200 by VER") {
			t.Errorf("expected the trace summary in the view")
		}

		// the outcome for the same selection is reused
		if _, cmd = press(d, "f"); cmd != nil {
			t.Errorf("expected no second lookup for the same grand prix")
		}
		if f.calls != 1 {
			t.Errorf("expected %d lookup but found %d", 1, f.calls)
		}
	})

	t.Run("Unavailable", func(t *testing.T) {
		f := &fakeFetcher{result: telemetry.Result{Reason: "negotiation refused"}}
		d := testDashboard(t, WithTelemetry(f))

		d, _ = press(d, "s", "g", "t")
		d = send(d, fetchTraceCmd(context.Background(), f, 2023, "Monza")())
		if !strings.Contains(d.View(), "Circuit telemetry unavailable: negotiation refused") {
			t.Errorf("expected the unavailable notice in the view")
		}
	})

	t.Run("Stale", func(t *testing.T) {
		f := &fakeFetcher{}
		d := testDashboard(t, WithTelemetry(f))

		d, _ = press(d, "s", "g", "t")
		d = send(d, TraceMsg{Season: 2024, GrandPrix: "Spa", Result: telemetry.Result{Reason: "late"}})
		if !d.loadingTrace || d.trace != nil {
			t.Errorf("expected a stale trace to be discarded")
		}
	})

	t.Run("Deselected", func(t *testing.T) {
		f := &fakeFetcher{result: telemetry.Result{Trace: &telemetry.Trace{
			Season: 2023, GrandPrix: "Monza", Points: []telemetry.Point{{X: 0, Y: 0}},
		}}}
		d := testDashboard(t, WithTelemetry(f))

		d, _ = press(d, "s", "g", "t")
		late := fetchTraceCmd(context.Background(), f, 2023, "Monza")()

		// back to all Grands Prix while the lookup is in flight
		d, _ = press(d, "g")
		if d.loadingTrace {
			t.Errorf("expected the lookup to be abandoned")
		}
		if d = send(d, late); d.trace != nil {
			t.Errorf("expected the abandoned trace to be discarded but found %+v", d.trace)
		}

		// selecting the same grand prix again starts a new lookup
		d, cmd := press(d, "g")
		if cmd == nil || !d.loadingTrace {
			t.Errorf("expected a new trace lookup to start")
		}
	})

	t.Run("NoGrandPrix", func(t *testing.T) {
		f := &fakeFetcher{}
		d := testDashboard(t, WithTelemetry(f))

		d, cmd := press(d, "t")
		if cmd != nil || f.calls != 0 {
			t.Errorf("expected no lookup without a grand prix")
		}
		if !strings.HasPrefix(d.notice, "Select a season and a Grand Prix") {
			t.Errorf("expected a selection prompt but found '%s'", d.notice)
		}
	})
}

func TestQuit(t *testing.T) {
	_, cmd := press(testDashboard(t), "q")
	if cmd == nil {
		t.Fatalf("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected a quit message")
	}
}

func TestNoticeFor(t *testing.T) {
	if n := noticeFor(strategy.ErrEmptySelection); n != "No laps match the selection." {
		t.Errorf("expected the empty selection notice but found '%s'", n)
	}
}

func TestLapTime(t *testing.T) {
	tests := map[float64]string{
		81.234:  "1:21.234",
		59.5:    "0:59.500",
		120.001: "2:00.001",
	}
	for sec, want := range tests {
		if got := lapTime(sec); got != want {
			t.Errorf("expected %s but found %s", want, got)
		}
	}
}

/* Helpers
------------------------------------------------------------------------------------------------- */

type fakeFetcher struct {
	result telemetry.Result
	calls  int
}

func (f *fakeFetcher) FastestLapTrace(_ context.Context, _ int, _ string) telemetry.Result {
	f.calls++
	return f.result
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDashboard(t *testing.T, opts ...DashboardOption) Dashboard {
	t.Helper()
	tbl, err := laps.Load(context.Background(),
		[]laps.Source{{Path: "race_summary_2023_monza.csv"}, {Path: "race_summary_2024_spa.csv"}},
		laps.WithFS(fstest.MapFS{
			"race_summary_2023_monza.csv": {Data: []byte(monzaCSV)},
			"race_summary_2024_spa.csv":   {Data: []byte(spaCSV)},
		}),
		laps.WithLogger(testLogger(t)),
	)
	if err != nil {
		t.Fatalf("error loading laps: %v", err)
	}
	return newDashboard(tbl, append([]DashboardOption{WithLogger(testLogger(t))}, opts...)...)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends the keys in order and returns the dashboard with the command of the last key.
func press(d Dashboard, keys ...string) (Dashboard, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var m tea.Model
		m, cmd = d.Update(keyMsg(k))
		d = m.(Dashboard)
	}
	return d, cmd
}

func send(d Dashboard, msg tea.Msg) Dashboard {
	m, _ := d.Update(msg)
	return m.(Dashboard)
}
