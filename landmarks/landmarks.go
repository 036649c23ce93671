// Package landmarks labels positions with named places from a small
// operator-maintained catalog, so a finished trip reads "near Home"
// instead of a raw coordinate.
package landmarks

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/blevesearch/bleve/v2"

	"github.com/openroad/dashcam/errors"
	"github.com/openroad/dashcam/logging"
)

// Landmark is one named position in the catalog.
type Landmark struct {
	Name string  `toml:"name"`
	Lat  float64 `toml:"lat"`
	Lon  float64 `toml:"lon"`
}

// catalog is the TOML file shape: a list of [[landmark]] tables.
type catalog struct {
	Landmark []Landmark `toml:"landmark"`
}

// LoadCatalog reads landmarks from a TOML file.
func LoadCatalog(path string) ([]Landmark, error) {
	var cat catalog
	if _, err := toml.DecodeFile(path, &cat); err != nil {
		return nil, errors.New(errors.ErrCodeNoLandmark, "parsing "+path,
			errors.WithCause(err), errors.WithComponent("landmarks"))
	}
	return cat.Landmark, nil
}

// Index answers nearest-landmark queries over an in-memory geo index.
type Index struct {
	idx          bleve.Index
	byName       map[string]Landmark
	radiusMeters float64
	logger       *logging.Logger
}

// NewIndex builds an index over the given landmarks. radiusMeters bounds
// how far a match may be from the queried position.
func NewIndex(lms []Landmark, radiusMeters float64, logger *logging.Logger) (*Index, error) {
	if logger == nil {
		logger = logging.New()
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("location", bleve.NewGeoPointFieldMapping())

	mapping := bleve.NewIndexMapping()
	mapping.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, errors.New(errors.ErrCodeNoLandmark, "creating geo index",
			errors.WithCause(err), errors.WithComponent("landmarks"))
	}

	byName := make(map[string]Landmark, len(lms))
	for _, lm := range lms {
		byName[lm.Name] = lm
		doc := map[string]interface{}{
			"location": map[string]interface{}{
				"lat": lm.Lat,
				"lon": lm.Lon,
			},
		}
		if err := idx.Index(lm.Name, doc); err != nil {
			idx.Close()
			return nil, errors.New(errors.ErrCodeNoLandmark, "indexing "+lm.Name,
				errors.WithCause(err), errors.WithComponent("landmarks"))
		}
	}

	return &Index{
		idx:          idx,
		byName:       byName,
		radiusMeters: radiusMeters,
		logger:       logger.WithComponent("landmarks"),
	}, nil
}

// Nearest returns the closest landmark within the configured radius.
// A position with no landmark in range reports ok false, which is the
// normal case on the open road, not an error.
func (i *Index) Nearest(lat, lon float64) (string, bool) {
	q := bleve.NewGeoDistanceQuery(lon, lat, fmt.Sprintf("%.0fm", i.radiusMeters))
	q.SetField("location")

	req := bleve.NewSearchRequest(q)
	req.Size = len(i.byName)

	res, err := i.idx.Search(req)
	if err != nil {
		i.logger.Warn("landmark_search_failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", false
	}
	if len(res.Hits) == 0 {
		return "", false
	}

	// The query only bounds the radius; pick the closest hit ourselves.
	best := ""
	bestDist := math.MaxFloat64
	for _, hit := range res.Hits {
		lm, ok := i.byName[hit.ID]
		if !ok {
			continue
		}
		if d := distanceMeters(lat, lon, lm.Lat, lm.Lon); d < bestDist {
			best = hit.ID
			bestDist = d
		}
	}
	return best, best != ""
}

// Len returns the number of indexed landmarks.
func (i *Index) Len() int {
	return len(i.byName)
}

// Close releases the index.
func (i *Index) Close() error {
	return i.idx.Close()
}

const earthRadiusMeters = 6371000

func distanceMeters(latA, lonA, latB, lonB float64) float64 {
	rLatA := latA * math.Pi / 180
	rLatB := latB * math.Pi / 180
	dLat := (latB - latA) * math.Pi / 180
	dLon := (lonB - lonA) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLatA)*math.Cos(rLatB)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
