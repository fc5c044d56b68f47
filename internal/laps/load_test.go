package laps

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/bcdxn/racingline/internal/domain"
)

const monzaCSV = `Driver,LapNumber,LapTimeSeconds,TyreLife,Compound,TrackTemp,IsWetLap,Stint,PitLap,PitDuration,Team
VER,1,85.1,1.0,soft,31.5,False,1,,,Red Bull Racing
VER,2,84.2,2.0,SOFT,32.0,False,1,,,
VER,3,,3.0,SOFT,32.0,False,1,,,
LEC,1,85.9,1.0,Medium,30.0,False,1,,,Ferrari
LEC,2,86.0,,MEDIUM,30.0,False,1,,,Ferrari
LEC,3,86.3,3.0,,30.0,False,1,,,Ferrari
LEC,4,86.4,4.0,SUPERSOFT,30.0,False,1,,,Ferrari
LEC,5,90.0,5.0,MEDIUM,nan,True,1,5.0,22.4,Ferrari
`

const spaCSV = `Driver,GrandPrix,SeasonYear,LapNumber,LapTimeSeconds,TyreLife,Compound,IsSC
VER,Belgian Grand Prix,2024,1,106.0,1,INTERMEDIATE,True
VER,Belgian Grand Prix,2024,1,107.0,1,INTERMEDIATE,False
HAM,Belgian Grand Prix,2024,1,106.5,1,wet,1
`

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"data/race_summary_2023_monza.csv": {Data: []byte(monzaCSV)},
		"data/spa.csv":                     {Data: []byte(spaCSV)},
		"data/corrupt.csv":                 {Data: []byte("Driver,LapNumber\n\"VER,1\n")},
		"data/empty.csv":                   {Data: []byte("")},
	}
}

func load(t *testing.T, sources ...Source) (*Table, error) {
	t.Helper()
	return Load(context.Background(), sources, WithFS(testFS()), WithLogger(testLogger(t)))
}

func TestLoad(t *testing.T) {
	tbl, err := load(t,
		Source{Path: "data/race_summary_2023_monza.csv"},
		Source{Path: "data/spa.csv"},
	)
	if err != nil {
		t.Fatalf("expected no error but found %v", err)
	}

	t.Run("RequiredFieldsPresent", func(t *testing.T) {
		// monza keeps VER 1,2 and LEC 1,5; spa keeps the first VER lap 1 and HAM
		if tbl.Len() != 6 {
			t.Fatalf("expected %d laps but found %d", 6, tbl.Len())
		}
		tbl.All().Each(func(r domain.LapRecord) {
			if r.LapTime <= 0 {
				t.Errorf("expected positive lap time but found %f", r.LapTime)
			}
			if r.TyreLife < 0 {
				t.Errorf("expected tyre life but found %d", r.TyreLife)
			}
			if _, ok := domain.ParseTireCompound(string(r.Compound)); !ok {
				t.Errorf("expected known compound but found '%s'", r.Compound)
			}
		})
	})

	t.Run("IdentityFromSourceName", func(t *testing.T) {
		r := tbl.All().At(0)
		if r.GrandPrix != "Monza" {
			t.Errorf("expected grand prix '%s' but found '%s'", "Monza", r.GrandPrix)
		}
		if r.Season != 2023 {
			t.Errorf("expected season %d but found %d", 2023, r.Season)
		}
		if r.Compound != domain.TireCompoundSoft {
			t.Errorf("expected compound '%s' but found '%s'", domain.TireCompoundSoft, r.Compound)
		}
		if r.DriverSeason != "VER 2023" {
			t.Errorf("expected label '%s' but found '%s'", "VER 2023", r.DriverSeason)
		}
		if r.GrandPrixSeason != "Monza 2023" {
			t.Errorf("expected label '%s' but found '%s'", "Monza 2023", r.GrandPrixSeason)
		}
	})

	t.Run("IdentityFromColumns", func(t *testing.T) {
		r := tbl.All().At(4)
		if r.GrandPrix != "Belgian Grand Prix" || r.Season != 2024 {
			t.Errorf("expected Belgian Grand Prix 2024 but found %s %d", r.GrandPrix, r.Season)
		}
		if !r.TrackStatus.SafetyCar {
			t.Errorf("expected the first duplicate to be kept")
		}
		if tbl.All().At(5).Compound != domain.TireCompoundFullWet {
			t.Errorf("expected compound '%s' but found '%s'", domain.TireCompoundFullWet, tbl.All().At(5).Compound)
		}
	})

	t.Run("TeamResolution", func(t *testing.T) {
		ver := tbl.All().At(1)
		if ver.Team != "Red Bull Racing" {
			t.Errorf("expected team '%s' but found '%s'", "Red Bull Racing", ver.Team)
		}
		if ver.TeamColor != domain.TeamColor("Red Bull Racing") || ver.DriverColor != ver.TeamColor {
			t.Errorf("expected red bull colors but found %s/%s", ver.TeamColor, ver.DriverColor)
		}
		// VER in 2024 has no team in any record
		if tbl.All().At(4).Team != domain.TeamOther {
			t.Errorf("expected team '%s' but found '%s'", domain.TeamOther, tbl.All().At(4).Team)
		}
	})

	t.Run("OptionalColumns", func(t *testing.T) {
		lec := tbl.All().At(3)
		if lec.TrackTemp != nil {
			t.Errorf("expected no track temperature but found %f", *lec.TrackTemp)
		}
		if lec.PitLap == nil || *lec.PitLap != 5 {
			t.Errorf("expected pit lap 5 but found %v", lec.PitLap)
		}
		if !lec.IsWetLap {
			t.Errorf("expected wet lap")
		}
		if !tbl.Has(FeatureTrackTemp) || !tbl.Has(FeaturePitDuration) {
			t.Errorf("expected track temperature and pit duration features")
		}
		if tbl.Has(FeatureSectorTimes) {
			t.Errorf("expected no sector time feature")
		}
	})
}

func TestLoadSourceUnavailable(t *testing.T) {
	cases := map[string]string{
		"Missing": "data/nope.csv",
		"Corrupt": "data/corrupt.csv",
		"Empty":   "data/empty.csv",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			tbl, err := load(t, Source{Path: "data/spa.csv"}, Source{Path: path})
			if !errors.Is(err, ErrSourceUnavailable) {
				t.Errorf("expected error '%v' but found '%v'", ErrSourceUnavailable, err)
			}
			if tbl != nil {
				t.Errorf("expected no partial table but found %d laps", tbl.Len())
			}
		})
	}
}

func TestSourceTags(t *testing.T) {
	tbl, err := load(t, Source{Name: "monza", Path: "data/race_summary_2023_monza.csv", Season: 2022, GrandPrix: "Italian Grand Prix"})
	if err != nil {
		t.Fatalf("expected no error but found %v", err)
	}
	r := tbl.All().At(0)
	if r.Season != 2022 || r.GrandPrix != "Italian Grand Prix" {
		t.Errorf("expected Italian Grand Prix 2022 but found %s %d", r.GrandPrix, r.Season)
	}
}

func TestGrandPrixFromName(t *testing.T) {
	cases := map[string]string{
		"race_summary_2023_monza":   "Monza",
		"2024-abu-dhabi-laps":       "Abu Dhabi",
		"SAO_PAULO_GRAND_PRIX_2022": "Sao Paulo",
		"2023":                      "2023",
	}
	for in, expected := range cases {
		if actual := grandPrixFromName(in); actual != expected {
			t.Errorf("expected '%s' for '%s' but found '%s'", expected, in, actual)
		}
	}
}

func TestViewWhere(t *testing.T) {
	tbl, err := load(t, Source{Path: "data/race_summary_2023_monza.csv"})
	if err != nil {
		t.Fatalf("expected no error but found %v", err)
	}
	isVER := func(r domain.LapRecord) bool { return r.Driver == "VER" }
	once := tbl.All().Where(isVER)
	twice := once.Where(isVER)
	if once.Len() != 2 || twice.Len() != 2 {
		t.Errorf("expected 2 laps but found %d and %d", once.Len(), twice.Len())
	}
	for i := 0; i < once.Len(); i++ {
		if once.At(i).Key() != twice.At(i).Key() {
			t.Errorf("expected identical laps at %d", i)
		}
	}
	if !once.Where(func(domain.LapRecord) bool { return false }).Has(FeatureTrackTemp) {
		t.Errorf("expected an empty view to report the table's features")
	}
}

func TestViewReturnsCopies(t *testing.T) {
	tbl, err := load(t, Source{Path: "data/race_summary_2023_monza.csv"})
	if err != nil {
		t.Fatalf("expected no error but found %v", err)
	}

	r := tbl.All().At(0)
	*r.TrackTemp = 99
	tbl.All().Where(func(r domain.LapRecord) bool {
		if r.TrackTemp != nil {
			*r.TrackTemp = 99
		}
		return true
	})
	for _, r := range tbl.All().Records() {
		if r.TrackTemp != nil {
			*r.TrackTemp = 99
		}
		if r.PitLap != nil {
			*r.PitLap = 99
		}
	}

	if temp := *tbl.All().At(0).TrackTemp; temp != 31.5 {
		t.Errorf("expected track temp %f but found %f", 31.5, temp)
	}
	if lap := *tbl.All().At(3).PitLap; lap != 5 {
		t.Errorf("expected pit lap %d but found %d", 5, lap)
	}
}

func TestDriverCodeNormalised(t *testing.T) {
	data := "Driver,LapNumber,LapTimeSeconds,TyreLife,Compound\n" +
		"VER,1,85.0,1,SOFT\n" +
		"ver,1,85.5,1,SOFT\n" +
		" Ver ,2,84.0,2,SOFT\n"
	tbl, err := Load(context.Background(), []Source{{Path: "race_summary_2023_monza.csv"}},
		WithFS(fstest.MapFS{"race_summary_2023_monza.csv": {Data: []byte(data)}}),
		WithLogger(testLogger(t)),
	)
	if err != nil {
		t.Fatalf("expected no error but found %v", err)
	}
	// the lower case lap 1 is a duplicate of the first row
	if tbl.Len() != 2 {
		t.Fatalf("expected %d laps but found %d", 2, tbl.Len())
	}
	tbl.All().Each(func(r domain.LapRecord) {
		if r.Driver != "VER" {
			t.Errorf("expected driver 'VER' but found '%s'", r.Driver)
		}
	})
	if tbl.All().At(0).LapTime != 85.0 {
		t.Errorf("expected the first occurrence to be kept but found %f", tbl.All().At(0).LapTime)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"top_2024_spa.csv",
		filepath.Join("2023", "race_summary_2023_monza.csv"),
		filepath.Join("2023", "nested", "race_summary_2023_imola.csv"),
		filepath.Join("2023", "notes.txt"),
	}
	for _, f := range files {
		p := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("error creating fixture dir: %v", err)
		}
		if err := os.WriteFile(p, []byte(monzaCSV), 0o644); err != nil {
			t.Fatalf("error writing fixture: %v", err)
		}
	}

	sources, err := Discover(dir)
	if err != nil {
		t.Fatalf("expected no error but found %v", err)
	}
	expected := []string{
		filepath.Join(dir, "2023", "nested", "race_summary_2023_imola.csv"),
		filepath.Join(dir, "2023", "race_summary_2023_monza.csv"),
		filepath.Join(dir, "top_2024_spa.csv"),
	}
	if len(sources) != len(expected) {
		t.Fatalf("expected %d sources but found %d: %v", len(expected), len(sources), sources)
	}
	for i, src := range sources {
		if src.Path != expected[i] {
			t.Errorf("expected source %d to be '%s' but found '%s'", i, expected[i], src.Path)
		}
	}

	// discovered sources load straight away
	tbl, err := Load(context.Background(), sources, WithLogger(testLogger(t)))
	if err != nil {
		t.Fatalf("expected discovered sources to load but found %v", err)
	}
	if tbl.All().At(0).GrandPrix != "Imola" {
		t.Errorf("expected grand prix 'Imola' but found '%s'", tbl.All().At(0).GrandPrix)
	}
}
