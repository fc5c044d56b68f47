// Package tui is the terminal dashboard. It owns the user's selection, runs the strategy pipeline
// over the lap table on every interaction and renders the resulting view as a table.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/bcdxn/racingline/internal/domain"
	"github.com/bcdxn/racingline/internal/laps"
	"github.com/bcdxn/racingline/internal/strategy"
	"github.com/bcdxn/racingline/internal/telemetry"
	"github.com/bcdxn/racingline/internal/tui/styles"
)

var (
	s = styles.Default()
)

// TraceFetcher looks up the fastest lap position trace of a Grand Prix.
type TraceFetcher interface {
	FastestLapTrace(ctx context.Context, season int, grandPrix string) telemetry.Result
}

// New returns the dashboard program over the given lap table.
func New(t *laps.Table, opts ...DashboardOption) *tea.Program {
	d := newDashboard(t, opts...)
	return tea.NewProgram(d, tea.WithContext(d.ctx), tea.WithAltScreen())
}

func newDashboard(t *laps.Table, opts ...DashboardOption) Dashboard {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	d := Dashboard{
		laps:    t,
		logger:  slog.Default(),
		ctx:     context.Background(),
		spinner: sp,
		cursor:  cursor{season: all, grandPrix: all, driver: all, compound: all},
		projection: strategy.Projection{
			Compound:       domain.TireCompoundMedium,
			Temperature:    30,
			Tolerance:      2,
			MaxStintLength: 30,
		},
		pageSize: 15,
	}
	// apply given options
	for _, opt := range opts {
		opt(&d)
	}
	return d.refresh()
}

type DashboardOption = func(d *Dashboard)

// WithLogger configures the logger to use within the TUI program
func WithLogger(l *slog.Logger) DashboardOption {
	return func(d *Dashboard) { d.logger = l }
}

// WithContext configures the context to use within the TUI program
func WithContext(ctx context.Context) DashboardOption {
	return func(d *Dashboard) { d.ctx = ctx }
}

// WithTelemetry enables the circuit view. Without it the view shows a notice.
func WithTelemetry(f TraceFetcher) DashboardOption {
	return func(d *Dashboard) { d.telemetry = f }
}

// WithProjection sets the initial stint projection parameters. The compound is replaced by the
// selected compound whenever exactly one is selected.
func WithProjection(p strategy.Projection) DashboardOption {
	return func(d *Dashboard) { d.projection = p }
}

// WithPageSize sets the number of table rows shown per page.
func WithPageSize(n int) DashboardOption {
	return func(d *Dashboard) { d.pageSize = n }
}

/* Bubbletea Interface Implementation
------------------------------------------------------------------------------------------------- */

func (d Dashboard) Init() tea.Cmd {
	return nil
}

func (d Dashboard) View() string {
	v := lipgloss.JoinVertical(
		lipgloss.Left,
		titleView(d),
		tabsView(d),
		selectionView(d),
		bodyView(d),
		helpView(),
	)
	return s.Doc.Render(v)
}

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyMsg(d, msg)
	case tea.WindowSizeMsg:
		return handleWindowSizeMsg(d, msg)
	case TraceMsg:
		return handleTraceMsg(d, msg)
	default:
		var cmd tea.Cmd
		if d.loadingTrace {
			d.spinner, cmd = d.spinner.Update(msg)
		}
		return d, cmd
	}
}

/* Tea Message Types
------------------------------------------------------------------------------------------------- */

// TraceMsg carries the outcome of a circuit trace lookup for a season and Grand Prix.
type TraceMsg struct {
	Season    int
	GrandPrix string
	Result    telemetry.Result
}

/* Tea Commands
------------------------------------------------------------------------------------------------- */

func fetchTraceCmd(ctx context.Context, f TraceFetcher, season int, grandPrix string) tea.Cmd {
	return func() tea.Msg {
		return TraceMsg{Season: season, GrandPrix: grandPrix, Result: f.FastestLapTrace(ctx, season, grandPrix)}
	}
}

/* Tea Message handlers
------------------------------------------------------------------------------------------------- */

func handleKeyMsg(d Dashboard, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		d.logger.Debug("received quit tea message")
		return d, tea.Quit
	case "tab":
		d.current = (d.current + 1) % viewCount
	case "shift+tab":
		d.current = (d.current + viewCount - 1) % viewCount
	case "s":
		d.cursor = d.cursor.next(dimSeason, len(d.options.Seasons))
	case "g":
		d.cursor = d.cursor.next(dimGrandPrix, len(d.options.GrandPrix))
	case "d":
		d.cursor = d.cursor.next(dimDriver, len(d.options.Drivers))
	case "c":
		d.cursor = d.cursor.next(dimCompound, len(d.options.Compounds))
	case "f":
		d.greenFlagOnly = !d.greenFlagOnly
	case "+", "=":
		d.projection.Temperature++
	case "-":
		d.projection.Temperature--
	case "t":
		d.current = viewCircuit
	default:
		// paging and row navigation belong to the results table
		var cmd tea.Cmd
		d.results, cmd = d.results.Update(msg)
		return d, cmd
	}

	d = d.refresh()
	if d.current == viewCircuit {
		return d.requestTrace()
	}
	return d, nil
}

func handleWindowSizeMsg(d Dashboard, msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	h, v := s.Doc.GetFrameSize()
	d.width = msg.Width - h
	d.height = msg.Height - v
	return d, nil
}

func handleTraceMsg(d Dashboard, msg TraceMsg) (tea.Model, tea.Cmd) {
	if (traceKey{msg.Season, msg.GrandPrix}) != d.traceFor {
		d.logger.Debug("discarding stale circuit trace", "season", msg.Season, "grand_prix", msg.GrandPrix)
		return d, nil
	}
	d.loadingTrace = false
	r := msg.Result
	d.trace = &r
	return d, nil
}

/* Type Definitions
------------------------------------------------------------------------------------------------- */

type Dashboard struct {
	laps          *laps.Table
	telemetry     TraceFetcher
	logger        *slog.Logger
	ctx           context.Context
	spinner       spinner.Model
	width         int
	height        int
	pageSize      int
	current       view
	cursor        cursor
	greenFlagOnly bool
	options       strategy.SelectionOptions
	selection     domain.Selection
	projection    strategy.Projection
	results       table.Model
	rows          []table.Row
	caption       string
	notice        string
	loadingTrace  bool
	traceFor      traceKey
	trace         *telemetry.Result
}

type traceKey struct {
	season    int
	grandPrix string
}

type view int

const (
	viewDrivers view = iota
	viewWeather
	viewSynergy
	viewGaps
	viewUndercut
	viewProjection
	viewDegradation
	viewSectors
	viewPitStops
	viewCircuit
	viewCount
)

var viewNames = [viewCount]string{
	"Drivers", "Weather", "Synergy", "Gaps", "Undercut", "Projection", "Degradation", "Sectors",
	"Pit Stops", "Circuit",
}

func (v view) String() string {
	return viewNames[v]
}

// all is the cursor position meaning no restriction on a dimension.
const all = -1

type dimension int

const (
	dimSeason dimension = iota
	dimGrandPrix
	dimDriver
	dimCompound
)

// cursor points into the selection options of each dimension. Moving a dimension resets the
// dimensions whose options depend on it.
type cursor struct {
	season    int
	grandPrix int
	driver    int
	compound  int
}

func (c cursor) next(dim dimension, n int) cursor {
	step := func(i int) int {
		if i+1 >= n {
			return all
		}
		return i + 1
	}
	switch dim {
	case dimSeason:
		c.season = step(c.season)
		c.grandPrix, c.driver, c.compound = all, all, all
	case dimGrandPrix:
		c.grandPrix = step(c.grandPrix)
		c.driver, c.compound = all, all
	case dimDriver:
		c.driver = step(c.driver)
		c.compound = all
	case dimCompound:
		c.compound = step(c.compound)
	}
	return c
}

/* Private Helper Functions
------------------------------------------------------------------------------------------------- */

// resolve rebuilds the selection from the cursor. The options of each dimension are narrowed by
// the dimensions before it, so only combinations present in the data can be picked.
func (d Dashboard) resolve() Dashboard {
	base := d.laps.All()
	sel := domain.Selection{GreenFlagOnly: d.greenFlagOnly}

	opts := strategy.SelectionOptions{Seasons: strategy.Options(base).Seasons}
	if d.cursor.season = clamp(d.cursor.season, len(opts.Seasons)); d.cursor.season != all {
		sel.Season = opts.Seasons[d.cursor.season]
	}
	opts.GrandPrix = strategy.Options(strategy.Filter(base, sel)).GrandPrix
	if d.cursor.grandPrix = clamp(d.cursor.grandPrix, len(opts.GrandPrix)); d.cursor.grandPrix != all {
		sel.GrandPrix = opts.GrandPrix[d.cursor.grandPrix]
	}
	opts.Drivers = strategy.Options(strategy.Filter(base, sel)).Drivers
	if d.cursor.driver = clamp(d.cursor.driver, len(opts.Drivers)); d.cursor.driver != all {
		sel.Drivers = []string{opts.Drivers[d.cursor.driver]}
	}
	opts.Compounds = strategy.Options(strategy.Filter(base, sel)).Compounds
	if d.cursor.compound = clamp(d.cursor.compound, len(opts.Compounds)); d.cursor.compound != all {
		sel.Compounds = []domain.TireCompound{opts.Compounds[d.cursor.compound]}
	}

	d.options = opts
	d.selection = sel
	return d
}

func clamp(i, n int) int {
	if i < 0 || i >= n {
		return all
	}
	return i
}

// refresh applies the selection and recomputes the current view.
func (d Dashboard) refresh() Dashboard {
	d = d.resolve()
	if len(d.selection.Compounds) == 1 {
		d.projection.Compound = d.selection.Compounds[0]
	}

	v := strategy.Filter(d.laps.All(), d.selection)
	r, err := build(d, v)
	d.notice = ""
	if err != nil {
		d.notice = noticeFor(err)
		d.logger.Debug("view unavailable", "view", d.current.String(), "err", err)
	}
	d.caption = r.caption
	d.rows = r.rows
	d.results = table.New(r.columns).
		WithRows(r.rows).
		WithPageSize(d.pageSize).
		Focused(true).
		WithBaseStyle(lipgloss.NewStyle().AlignHorizontal(lipgloss.Right))
	return d
}

// requestTrace starts a circuit trace lookup for the selected Grand Prix unless its outcome is
// already known or in flight.
func (d Dashboard) requestTrace() (Dashboard, tea.Cmd) {
	switch {
	case d.telemetry == nil:
		d.notice = "Circuit telemetry is disabled."
		return d, nil
	case d.selection.Season == 0 || d.selection.GrandPrix == "":
		d.notice = "Select a season and a Grand Prix to load the circuit trace."
		d.trace = nil
		d.loadingTrace = false
		d.traceFor = traceKey{}
		return d, nil
	}
	key := traceKey{d.selection.Season, d.selection.GrandPrix}
	if key == d.traceFor && (d.loadingTrace || d.trace != nil) {
		return d, nil
	}

	d.logger.Debug("requesting circuit trace", "season", d.selection.Season, "grand_prix", d.selection.GrandPrix)
	d.loadingTrace = true
	d.traceFor = key
	d.trace = nil
	return d, tea.Batch(
		d.spinner.Tick,
		fetchTraceCmd(d.ctx, d.telemetry, d.selection.Season, d.selection.GrandPrix),
	)
}

// selectionLabel describes the current selection, e.g. "2023 · Monza · VER · Soft".
func selectionLabel(sel domain.Selection) string {
	parts := make([]string, 0, 5)
	if sel.Season != 0 {
		parts = append(parts, fmt.Sprint(sel.Season))
	} else {
		parts = append(parts, "All seasons")
	}
	if sel.GrandPrix != "" {
		parts = append(parts, sel.GrandPrix)
	} else {
		parts = append(parts, "All Grands Prix")
	}
	if len(sel.Drivers) > 0 {
		parts = append(parts, strings.Join(sel.Drivers, ", "))
	} else {
		parts = append(parts, "All drivers")
	}
	if len(sel.Compounds) > 0 {
		labels := make([]string, 0, len(sel.Compounds))
		for _, c := range sel.Compounds {
			labels = append(labels, s.Compound(c).Render(c.Label()))
		}
		parts = append(parts, strings.Join(labels, ", "))
	} else {
		parts = append(parts, "All compounds")
	}
	if sel.GreenFlagOnly {
		parts = append(parts, s.Green.Render("Green flag only"))
	}
	return strings.Join(parts, " · ")
}
