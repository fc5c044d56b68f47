package tui

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
	"github.com/bcdxn/racingline/internal/strategy"
)

// result is a rendered pipeline view: a table plus an optional caption shown above it.
type result struct {
	columns []table.Column
	rows    []table.Row
	caption string
}

// build runs the pipeline operation behind the current view over the filtered laps.
func build(d Dashboard, v laps.View) (result, error) {
	switch d.current {
	case viewDrivers:
		return driversView(v)
	case viewWeather:
		return weatherView(v)
	case viewSynergy:
		return synergyView(v)
	case viewGaps:
		return gapsView(v)
	case viewUndercut:
		return undercutView(v, d.selection.Drivers)
	case viewProjection:
		return projectionView(v, d.projection)
	case viewDegradation:
		return degradationView(v, d.selection)
	case viewSectors:
		return sectorsView(v)
	case viewPitStops:
		return pitStopsView(v)
	}
	// the circuit view renders the trace instead of a table
	return result{}, nil
}

func noticeFor(err error) string {
	switch {
	case errors.Is(err, strategy.ErrEmptySelection):
		return "No laps match the selection."
	case errors.Is(err, strategy.ErrFeatureUnavailable):
		return fmt.Sprintf("Not available for the loaded data (%s).", strings.TrimPrefix(err.Error(), strategy.ErrFeatureUnavailable.Error()+": "))
	}
	return err.Error()
}

/* Pipeline Views
------------------------------------------------------------------------------------------------- */

const (
	colDriver    = "driver"
	colTeam      = "team"
	colLaps      = "laps"
	colAvg       = "avg"
	colFastest   = "fastest"
	colPits      = "pits"
	colStint     = "stint"
	colSpread    = "spread"
	colWetDry    = "wetdry"
	colImpact    = "impact"
	colCompound  = "compound"
	colLap       = "lap"
	colTime      = "time"
	colGap       = "gap"
	colGrandPrix = "gp"
	colBefore    = "before"
	colAfter     = "after"
	colSaved     = "saved"
	colAge       = "age"
	colIdeal     = "ideal"
	colDuration  = "duration"
)

func driverColumn() table.Column {
	return table.NewColumn(colDriver, "DRIVER", 8).WithStyle(lipgloss.NewStyle().Align(lipgloss.Left))
}

func driversView(v laps.View) (result, error) {
	r := result{columns: []table.Column{
		driverColumn(),
		table.NewColumn(colTeam, "TEAM", 16).WithStyle(lipgloss.NewStyle().Align(lipgloss.Left)),
		table.NewColumn(colLaps, "LAPS", 5),
		table.NewColumn(colAvg, "AVG", 10),
		table.NewColumn(colFastest, "FASTEST", 10),
		table.NewColumn(colPits, "PITS", 5),
		table.NewColumn(colStint, "BEST STINT", 26),
		table.NewColumn(colSpread, "σ", 8),
		table.NewColumn(colWetDry, "WET-DRY", 9),
	}}
	summaries, err := strategy.DriverSummaries(v)
	if err != nil {
		return r, err
	}

	ordered := make([]strategy.DriverSummary, 0, len(summaries))
	for _, ds := range summaries {
		ordered = append(ordered, ds)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].AvgLap != ordered[j].AvgLap {
			return ordered[i].AvgLap < ordered[j].AvgLap
		}
		return ordered[i].Driver < ordered[j].Driver
	})

	for _, ds := range ordered {
		stint := "-"
		if ds.BestStint != nil {
			stint = fmt.Sprintf("%s #%d %s", ds.BestStint.GrandPrix, ds.BestStint.Stint, lapTime(ds.BestStint.AvgLap))
		}
		r.rows = append(r.rows, table.NewRow(table.RowData{
			colDriver:  driverCell(ds.Driver, ds.TeamColor),
			colTeam:    ds.Team,
			colLaps:    ds.Laps,
			colAvg:     lapTime(ds.AvgLap),
			colFastest: table.NewStyledCell(lapTime(ds.FastestLap), s.Purple),
			colPits:    ds.PitCount,
			colStint:   stint,
			colSpread:  optional(ds.Consistency, seconds),
			colWetDry:  optional(ds.WetDryDelta, delta),
		}))
	}
	return r, nil
}

func weatherView(v laps.View) (result, error) {
	r := result{
		columns: []table.Column{driverColumn(), table.NewColumn(colImpact, "IMPACT", 8)},
		caption: "(dry mean - wet mean) / σ; drivers without both wet and dry laps are omitted",
	}
	impact, err := strategy.WeatherImpactIndex(v)
	if err != nil {
		return r, err
	}
	for _, driver := range sortedDrivers(impact) {
		r.rows = append(r.rows, table.NewRow(table.RowData{
			colDriver: driver,
			colImpact: fmt.Sprintf("%+.2f", impact[driver]),
		}))
	}
	return r, nil
}

func synergyView(v laps.View) (result, error) {
	r := result{
		columns: []table.Column{table.NewColumn(colCompound, "COMPOUND", 14).WithStyle(lipgloss.NewStyle().Align(lipgloss.Left))},
		caption: "mean lap time per compound and track temperature",
	}
	for _, b := range strategy.TempBands {
		r.columns = append(r.columns, table.NewColumn(b.Label, strings.ToUpper(b.Label), 10))
	}
	m, err := strategy.TyreWeatherSynergy(v)
	if err != nil {
		return r, err
	}
	for _, c := range domain.TireCompounds {
		if _, ok := m[c]; !ok {
			continue
		}
		data := table.RowData{colCompound: compoundCell(c)}
		for _, b := range strategy.TempBands {
			data[b.Label] = "-"
			if mean, ok := m.Mean(c, b.Label); ok {
				data[b.Label] = lapTime(mean)
			}
		}
		r.rows = append(r.rows, table.NewRow(data))
	}
	return r, nil
}

func gapsView(v laps.View) (result, error) {
	r := result{columns: []table.Column{
		table.NewColumn(colLap, "LAP", 5),
		table.NewColumn(colDriver, "DRIVER", 10).WithStyle(lipgloss.NewStyle().Align(lipgloss.Left)),
		table.NewColumn(colTime, "TIME", 10),
		table.NewColumn(colGap, "GAP", 9),
	}}
	gaps, err := strategy.GapToLeader(v)
	if err != nil {
		return r, err
	}
	for _, g := range gaps {
		gap := table.NewStyledCell(delta(g.Gap), lipgloss.NewStyle())
		if g.Gap == 0 {
			gap = table.NewStyledCell("leader", s.Purple)
		}
		r.rows = append(r.rows, table.NewRow(table.RowData{
			colLap:    g.LapNumber,
			colDriver: g.DriverSeason,
			colTime:   lapTime(g.LapTime),
			colGap:    gap,
		}))
	}
	return r, nil
}

func undercutView(v laps.View, drivers []string) (result, error) {
	r := result{
		columns: []table.Column{
			driverColumn(),
			table.NewColumn(colGrandPrix, "GRAND PRIX", 22).WithStyle(lipgloss.NewStyle().Align(lipgloss.Left)),
			table.NewColumn(colLap, "PIT LAP", 8),
			table.NewColumn(colBefore, "BEFORE", 10),
			table.NewColumn(colAfter, "AFTER", 10),
			table.NewColumn(colSaved, "SAVED", 9),
		},
		caption: "lap before the stop minus lap after it",
	}
	undercuts, err := strategy.UndercutEffect(v, drivers)
	if err != nil {
		return r, err
	}
	for _, u := range undercuts {
		saved := s.Red
		if u.TimeSaved > 0 {
			saved = s.Green
		}
		r.rows = append(r.rows, table.NewRow(table.RowData{
			colDriver:    u.Driver,
			colGrandPrix: u.GrandPrix,
			colLap:       u.PitLap,
			colBefore:    lapTime(u.Before),
			colAfter:     lapTime(u.After),
			colSaved:     table.NewStyledCell(delta(u.TimeSaved), saved),
		}))
	}
	return r, nil
}

func projectionView(v laps.View, p strategy.Projection) (result, error) {
	r := result{
		columns: []table.Column{
			table.NewColumn(colAge, "TYRE AGE", 9),
			table.NewColumn(colAvg, "EXPECTED", 10),
			table.NewColumn(colLaps, "SAMPLES", 8),
		},
		caption: fmt.Sprintf("%s at %.0f°C ± %.1f°C, up to %d laps old",
			s.Compound(p.Compound).Render(p.Compound.Label()), p.Temperature, p.Tolerance, p.MaxStintLength),
	}
	points, err := strategy.StintProjection(v, p)
	if err != nil {
		return r, err
	}
	if len(points) == 0 {
		r.caption += "; no laps in the temperature window"
	}
	for _, pt := range points {
		r.rows = append(r.rows, table.NewRow(table.RowData{
			colAge:  pt.TyreLife,
			colAvg:  lapTime(pt.MeanLapTime),
			colLaps: pt.Laps,
		}))
	}
	return r, nil
}

func degradationView(v laps.View, sel domain.Selection) (result, error) {
	r := result{columns: []table.Column{
		table.NewColumn(colLap, "LAP", 5),
		table.NewColumn(colAge, "TYRE AGE", 9),
		table.NewColumn(colTime, "TIME", 10),
	}}
	if len(sel.Drivers) != 1 || len(sel.Compounds) != 1 {
		r.caption = "select a driver (d) and a compound (c) to plot tyre degradation"
		return r, nil
	}
	deg, err := strategy.DegradationCurve(v, sel.Drivers[0], sel.Compounds[0])
	if err != nil {
		return r, err
	}
	r.caption = fmt.Sprintf("%s on %s: average %s, stint length %d laps",
		deg.Driver, s.Compound(deg.Compound).Render(deg.Compound.Label()), lapTime(deg.AvgLap), deg.StintLength)
	for _, pt := range deg.Points {
		r.rows = append(r.rows, table.NewRow(table.RowData{
			colLap:  pt.LapNumber,
			colAge:  pt.TyreLife,
			colTime: lapTime(pt.LapTime),
		}))
	}
	return r, nil
}

func sectorsView(v laps.View) (result, error) {
	r := result{
		columns: []table.Column{driverColumn()},
		caption: "mean sector times; ideal lap is the sum of the best sectors",
	}
	for i := 1; i <= 3; i++ {
		r.columns = append(r.columns, table.NewColumn(sectorKey(i), fmt.Sprintf("S%d", i), 9))
	}
	r.columns = append(r.columns, table.NewColumn(colIdeal, "IDEAL", 10))

	sectors, err := strategy.SectorSummaries(v)
	if err != nil {
		return r, err
	}
	for _, driver := range sortedDrivers(sectors) {
		ss := sectors[driver]
		data := table.RowData{colDriver: driver, colIdeal: "-"}
		for i, m := range ss.Mean {
			data[sectorKey(i+1)] = optional(m, seconds)
		}
		if ideal, ok := ss.Theoretical(); ok {
			data[colIdeal] = table.NewStyledCell(lapTime(ideal), s.Purple)
		}
		r.rows = append(r.rows, table.NewRow(data))
	}
	return r, nil
}

func sectorKey(i int) string {
	return fmt.Sprintf("s%d", i)
}

func pitStopsView(v laps.View) (result, error) {
	r := result{columns: []table.Column{
		driverColumn(),
		table.NewColumn(colGrandPrix, "GRAND PRIX", 22).WithStyle(lipgloss.NewStyle().Align(lipgloss.Left)),
		table.NewColumn(colLap, "LAP", 5),
		table.NewColumn(colCompound, "COMPOUND", 14),
		table.NewColumn(colDuration, "DURATION", 10),
	}}
	stops, err := strategy.PitStops(v)
	if err != nil {
		return r, err
	}
	for _, p := range stops {
		r.rows = append(r.rows, table.NewRow(table.RowData{
			colDriver:    p.Driver,
			colGrandPrix: p.GrandPrix,
			colLap:       p.Lap,
			colCompound:  compoundCell(p.Compound),
			colDuration:  optional(p.Duration, seconds),
		}))
	}
	return r, nil
}

/* View Helper Functions
------------------------------------------------------------------------------------------------- */

func titleView(d Dashboard) string {
	return s.TitleBar.Width(max(d.width, 40)).Render("racingline · race strategy")
}

func tabsView(d Dashboard) string {
	tabs := make([]string, 0, viewCount)
	for v := view(0); v < viewCount; v++ {
		st := s.Tab
		if v == d.current {
			st = s.ActiveTab
		}
		tabs = append(tabs, st.Render(v.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func selectionView(d Dashboard) string {
	return s.SubtitleBar.Width(max(d.width, 40)).Render(selectionLabel(d.selection))
}

func bodyView(d Dashboard) string {
	parts := make([]string, 0, 3)
	if d.caption != "" {
		parts = append(parts, s.Subtle.Render(d.caption))
	}
	if d.notice != "" {
		parts = append(parts, s.Notice.Render(d.notice))
	}
	if d.current == viewCircuit {
		parts = append(parts, circuitView(d))
	} else if d.notice == "" {
		parts = append(parts, d.results.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func circuitView(d Dashboard) string {
	switch {
	case d.loadingTrace:
		return fmt.Sprintf("%s Loading circuit trace for %s...", d.spinner.View(),
			domain.GrandPrixSeasonLabel(d.traceFor.grandPrix, d.traceFor.season))
	case d.trace == nil:
		return ""
	case !d.trace.Available():
		return s.Notice.Render("Circuit telemetry unavailable: " + d.trace.Reason)
	}

	t := d.trace.Trace
	minX, maxX, minY, maxY := math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)
	for _, p := range t.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("Fastest lap of %s: %s by %s", domain.GrandPrixSeasonLabel(t.GrandPrix, t.Season), lapTime(t.LapTime), t.Driver),
		fmt.Sprintf("%d position samples spanning %.0f × %.0f", len(t.Points), maxX-minX, maxY-minY),
	)
}

func helpView() string {
	return s.Help.Render("tab/shift+tab view · s season · g grand prix · d driver · c compound · " +
		"f green flag · +/- projection temp · t circuit · q quit")
}

/* Formatting
------------------------------------------------------------------------------------------------- */

// lapTime formats seconds as m:ss.sss.
func lapTime(sec float64) string {
	m := int(sec) / 60
	return fmt.Sprintf("%d:%06.3f", m, sec-float64(m*60))
}

func seconds(sec float64) string {
	return fmt.Sprintf("%.3f", sec)
}

func delta(sec float64) string {
	return fmt.Sprintf("%+.3f", sec)
}

func optional(p *float64, format func(float64) string) string {
	if p == nil {
		return "-"
	}
	return format(*p)
}

func driverCell(driver, teamColor string) table.StyledCell {
	return table.NewStyledCell(driver, s.Team(teamColor))
}

func compoundCell(c domain.TireCompound) table.StyledCell {
	return table.NewStyledCell(c.Label(), s.Compound(c))
}

func sortedDrivers[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
