package laps

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bcdxn/racingline/internal/domain"
	"github.com/mattn/go-zglob"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrSourceUnavailable is returned by Load when a source is missing, unreadable or malformed. No
// partial table is ever returned alongside it.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source is a single per-lap CSV file. Season and GrandPrix tag every row of the file that does
// not carry the value itself.
type Source struct {
	Name      string // Name labels the source in logs and is used to derive missing tags
	Path      string
	Season    int
	GrandPrix string
}

func (s Source) name() string {
	if s.Name != "" {
		return s.Name
	}
	return strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
}

// Discover returns a source for every CSV file below dir, sorted by path.
func Discover(dir string) ([]Source, error) {
	paths, err := zglob.Glob(filepath.Join(dir, "**", "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("error discovering sources in %s: %w", dir, err)
	}
	sort.Strings(paths)
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		sources = append(sources, Source{Path: p})
	}
	return sources, nil
}

/* Load Optional Functional Parameters
------------------------------------------------------------------------------------------------- */

type loader struct {
	fsys   fs.FS
	logger *slog.Logger
}

type LoadOption = func(l *loader)

// WithFS reads sources from the given filesystem instead of the OS filesystem; primarily used for
// testing.
func WithFS(fsys fs.FS) LoadOption {
	return func(l *loader) { l.fsys = fsys }
}

// WithLogger configures the logger used to report per-source load statistics.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(l *loader) { l.logger = logger }
}

/* Load
------------------------------------------------------------------------------------------------- */

// Report summarises how the rows of one source were handled.
type Report struct {
	Source  string
	Read    int
	Kept    int
	Dropped map[string]int // rows excluded, keyed by reason
}

// Load reads every source concurrently and builds the unified lap table. Sources keep their given
// order in the table. If any source fails, Load fails as a whole with ErrSourceUnavailable.
func Load(ctx context.Context, sources []Source, opts ...LoadOption) (*Table, error) {
	l := loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(&l)
	}

	parts := make([][]domain.LapRecord, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			records, report, err := l.loadSource(ctx, src)
			if err != nil {
				return err
			}
			parts[i] = records
			l.logger.Debug("loaded source",
				"source", report.Source, "read", report.Read, "kept", report.Kept, "dropped", report.Dropped)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.Error("error loading lap data", "err", err)
		return nil, err
	}

	t, dupes := newTable(parts)
	if dupes > 0 {
		l.logger.Warn("dropped duplicate laps", "count", dupes)
	}
	l.logger.Info("lap table ready", "laps", t.Len(), "sources", len(sources))
	return t, nil
}

func (l loader) open(path string) (io.ReadCloser, error) {
	if l.fsys != nil {
		return l.fsys.Open(path)
	}
	return os.Open(path)
}

func (l loader) loadSource(ctx context.Context, src Source) ([]domain.LapRecord, Report, error) {
	name := src.name()
	report := Report{Source: name, Dropped: make(map[string]int)}

	f, err := l.open(src.Path)
	if err != nil {
		return nil, report, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, report, fmt.Errorf("%w: %s: error reading header: %w", ErrSourceUnavailable, name, err)
	}

	p := newRowParser(header, src)
	var records []domain.LapRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, report, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, name, err)
		}
		report.Read++
		r, reason := p.parse(row)
		if reason != "" {
			report.Dropped[reason]++
			continue
		}
		records = append(records, r)
	}
	report.Kept = len(records)
	return records, report, nil
}

/* Row Parsing
------------------------------------------------------------------------------------------------- */

const (
	colDriver = iota
	colGrandPrix
	colSeason
	colLapNumber
	colLapTime
	colSector1
	colSector2
	colSector3
	colTyreLife
	colCompound
	colTrackTemp
	colIsWetLap
	colStint
	colPitLap
	colPitDuration
	colIsSC
	colIsVSC
	colIsRedFlag
	colTeam
	numColumns
)

// columnAliases maps a normalised header (lower case, no separators) to its column.
var columnAliases = map[string]int{
	"driver":             colDriver,
	"grandprix":          colGrandPrix,
	"gp":                 colGrandPrix,
	"eventname":          colGrandPrix,
	"seasonyear":         colSeason,
	"season":             colSeason,
	"year":               colSeason,
	"lapnumber":          colLapNumber,
	"laptimeseconds":     colLapTime,
	"sector1timeseconds": colSector1,
	"sector2timeseconds": colSector2,
	"sector3timeseconds": colSector3,
	"tyrelife":           colTyreLife,
	"compound":           colCompound,
	"tracktemp":          colTrackTemp,
	"iswetlap":           colIsWetLap,
	"stint":              colStint,
	"pitlap":             colPitLap,
	"pitduration":        colPitDuration,
	"issc":               colIsSC,
	"isvsc":              colIsVSC,
	"isredflag":          colIsRedFlag,
	"team":               colTeam,
}

const (
	dropMissingIdentity = "missing identity"
	dropMissingLapTime  = "missing lap time"
	dropMissingTyreLife = "missing tyre life"
	dropMissingCompound = "missing compound"
	dropUnknownCompound = "unknown compound"
)

var (
	yearRe      = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)[0-9]{2})(?:[^0-9]|$)`)
	separatorRe = regexp.MustCompile(`[_\-\s]+`)
	// nameNoise are the words stripped from a file name when deriving a Grand Prix from it.
	nameNoise = map[string]bool{
		"race": true, "summary": true, "laps": true, "lap": true, "data": true,
		"processed": true, "gp": true, "grand": true, "prix": true,
	}
)

type rowParser struct {
	index     [numColumns]int // index of each column in the row, -1 when absent
	season    int
	grandPrix string
}

func newRowParser(header []string, src Source) rowParser {
	var p rowParser
	for i := range p.index {
		p.index[i] = -1
	}
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		key := strings.ToLower(separatorRe.ReplaceAllString(h, ""))
		if c, ok := columnAliases[key]; ok && p.index[c] < 0 {
			p.index[c] = i
		}
	}

	name := src.name()
	p.season = src.Season
	if p.season == 0 {
		p.season = seasonFromName(name)
	}
	p.grandPrix = src.GrandPrix
	if p.grandPrix == "" {
		p.grandPrix = grandPrixFromName(name)
	}
	return p
}

// parse converts a CSV row into a lap record. A non-empty reason reports why the row was excluded.
func (p rowParser) parse(row []string) (domain.LapRecord, string) {
	var r domain.LapRecord

	r.Driver = strings.ToUpper(p.field(row, colDriver))
	lapNumber := parseInt(p.field(row, colLapNumber))
	if r.Driver == "" || lapNumber == nil {
		return r, dropMissingIdentity
	}
	r.LapNumber = *lapNumber

	lapTime := parseFloat(p.field(row, colLapTime))
	if lapTime == nil || *lapTime <= 0 {
		return r, dropMissingLapTime
	}
	r.LapTime = *lapTime

	tyreLife := parseInt(p.field(row, colTyreLife))
	if tyreLife == nil || *tyreLife < 0 {
		return r, dropMissingTyreLife
	}
	r.TyreLife = *tyreLife

	raw := p.field(row, colCompound)
	if raw == "" {
		return r, dropMissingCompound
	}
	compound, ok := domain.ParseTireCompound(raw)
	if !ok {
		return r, dropUnknownCompound
	}
	r.Compound = compound

	r.GrandPrix = p.field(row, colGrandPrix)
	if r.GrandPrix == "" {
		r.GrandPrix = p.grandPrix
	}
	r.Season = p.season
	if s := parseInt(p.field(row, colSeason)); s != nil {
		r.Season = *s
	}

	r.Sectors[0] = parseFloat(p.field(row, colSector1))
	r.Sectors[1] = parseFloat(p.field(row, colSector2))
	r.Sectors[2] = parseFloat(p.field(row, colSector3))
	r.TrackTemp = parseFloat(p.field(row, colTrackTemp))
	r.IsWetLap = parseBool(p.field(row, colIsWetLap))
	if s := parseInt(p.field(row, colStint)); s != nil {
		r.Stint = *s
	}
	r.PitLap = parseInt(p.field(row, colPitLap))
	r.PitDuration = parseFloat(p.field(row, colPitDuration))
	r.TrackStatus = domain.TrackStatus{
		SafetyCar:        parseBool(p.field(row, colIsSC)),
		VirtualSafetyCar: parseBool(p.field(row, colIsVSC)),
		RedFlag:          parseBool(p.field(row, colIsRedFlag)),
	}
	r.Team = p.field(row, colTeam)

	return r, ""
}

// field returns the trimmed value of a column, or "" when the column is absent or holds one of the
// null markers written by dataframe exports.
func (p rowParser) field(row []string, col int) string {
	i := p.index[col]
	if i < 0 || i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	switch strings.ToLower(v) {
	case "nan", "nat", "none", "null", "<na>":
		return ""
	}
	return v
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// parseInt accepts integers written as floats ("12.0"), as dataframe exports do for columns that
// contain nulls.
func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil || *f != float64(int(*f)) {
		return nil
	}
	i := int(*f)
	return &i
}

func parseBool(s string) bool {
	if s == "" {
		return false
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f := parseFloat(s); f != nil {
		return *f != 0
	}
	return false
}

// seasonFromName finds a four digit year in a source name, e.g. "race_summary_2023_monza".
func seasonFromName(name string) int {
	m := yearRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	return y
}

// grandPrixFromName derives a Grand Prix from a source name by dropping years and filler words,
// e.g. "race_summary_2023_abu_dhabi" becomes "Abu Dhabi".
func grandPrixFromName(name string) string {
	words := make([]string, 0, 4)
	for _, w := range separatorRe.Split(strings.ToLower(name), -1) {
		if w == "" || nameNoise[w] || seasonFromName(w) != 0 {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return name
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}
