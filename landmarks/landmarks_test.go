package landmarks

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/openroad/dashcam/logging"
)

func quietLogger() *logging.Logger {
	logger := logging.New()
	logger.SetOutput(&bytes.Buffer{})
	return logger
}

func testLandmarks() []Landmark {
	return []Landmark{
		{Name: "Home", Lat: 51.5000, Lon: -0.1000},
		{Name: "Office", Lat: 51.5100, Lon: -0.1300},
		{Name: "Depot", Lat: 52.0000, Lon: 0.0000},
	}
}

// TestIndex_NearestWithinRadius verifies a position close to a landmark
// resolves to its name.
func TestIndex_NearestWithinRadius(t *testing.T) {
	idx, err := NewIndex(testLandmarks(), 250, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	// About 50m from Home.
	name, ok := idx.Nearest(51.5004, -0.1002)
	if !ok {
		t.Fatal("expected a landmark match")
	}
	if name != "Home" {
		t.Fatalf("expected Home, got %q", name)
	}
}

// TestIndex_NoMatchOutsideRadius verifies the open-road case: nothing in
// range reports ok false.
func TestIndex_NoMatchOutsideRadius(t *testing.T) {
	idx, err := NewIndex(testLandmarks(), 250, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	if name, ok := idx.Nearest(53.0, -2.0); ok {
		t.Fatalf("expected no match far from any landmark, got %q", name)
	}
}

// TestIndex_ClosestOfSeveral verifies the nearest landmark wins when
// more than one is in range.
func TestIndex_ClosestOfSeveral(t *testing.T) {
	gates := []Landmark{
		{Name: "North Gate", Lat: 51.5010, Lon: -0.1000},
		{Name: "South Gate", Lat: 51.4990, Lon: -0.1000},
	}
	idx, err := NewIndex(gates, 5000, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	name, ok := idx.Nearest(51.5008, -0.1000)
	if !ok || name != "North Gate" {
		t.Fatalf("expected North Gate, got %q ok=%v", name, ok)
	}
}

// TestLoadCatalog verifies the TOML catalog format.
func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "landmarks.toml")
	content := `
[[landmark]]
name = "Home"
lat = 51.5
lon = -0.1

[[landmark]]
name = "Office"
lat = 51.51
lon = -0.13
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lms, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(lms) != 2 {
		t.Fatalf("expected 2 landmarks, got %d", len(lms))
	}
	if lms[0].Name != "Home" || lms[0].Lat != 51.5 {
		t.Fatalf("unexpected first landmark %+v", lms[0])
	}
}

// TestIndex_EmptyCatalog verifies an empty catalog indexes cleanly and
// never matches.
func TestIndex_EmptyCatalog(t *testing.T) {
	idx, err := NewIndex(nil, 250, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	if idx.Len() != 0 {
		t.Fatalf("expected empty index, got %d", idx.Len())
	}
	if _, ok := idx.Nearest(51.5, -0.1); ok {
		t.Fatal("expected no match from empty index")
	}
}
