package export

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadhunter/internal/model"
)

// WriteJSON writes v as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "json: marshal")
	}
	return writeFile(path, data)
}

// ReadJSON loads a JSON array of records, as written by WriteJSON.
func ReadJSON(path string) ([]model.BusinessRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "json: read %s", path)
	}
	var recs []model.BusinessRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, eris.Wrapf(err, "json: decode %s", path)
	}
	return recs, nil
}

// WriteCSV writes rows with a header line.
func WriteCSV(path string, rows []Row) error {
	if len(rows) == 0 {
		return writeFile(path, []byte(csvHeader()))
	}
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "csv: marshal")
	}
	return writeFile(path, data)
}

func csvHeader() string {
	h, err := csvutil.Header(Row{}, "csv")
	if err != nil {
		h = Header
	}
	return strings.Join(h, ",") + "\n"
}

// WriteYAML writes the full records as a YAML sequence.
func WriteYAML(path string, recs []model.BusinessRecord) error {
	data, err := yaml.Marshal(recs)
	if err != nil {
		return eris.Wrap(err, "yaml: marshal")
	}
	return writeFile(path, data)
}

// WriteGeoJSON writes one Point feature per record with coordinates. Records
// without coordinates are left out.
func WriteGeoJSON(path string, recs []model.BusinessRecord) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(recs))}
	for _, r := range recs {
		lat, lng, ok := r.Coordinates()
		if !ok {
			continue
		}
		props := map[string]any{
			"number": r.Number,
			"name":   r.Name,
			"phone":  model.Present(r.Phone),
			"url":    r.PermalinkURL,
		}
		if r.Rating != nil {
			props["rating"] = *r.Rating
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         model.Present(r.PlaceID),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{lng, lat}),
			Properties: props,
		})
	}

	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "geojson: marshal")
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
