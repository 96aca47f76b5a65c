package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadhunter/internal/model"
)

// Supported output formats.
const (
	FormatXLSX    = "xlsx"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatGeoJSON = "geojson"
)

// DefaultFormats is what a run writes when none are configured.
var DefaultFormats = []string{FormatXLSX, FormatJSON}

// Bundle is everything one export writes.
type Bundle struct {
	Dir       string
	Base      string
	SheetName string
	// Raw is the pre-dedup batch, dumped in full by the json format.
	Raw []model.BusinessRecord
	// Unique is the reconciled batch; it is sorted before writing.
	Unique []model.BusinessRecord
}

// WriteAll writes the bundle in each format concurrently and returns the
// paths written, in format order.
func WriteAll(ctx context.Context, b Bundle, formats []string) ([]string, error) {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", b.Dir)
	}

	sorted := SortForExport(b.Unique)
	rows := ProjectAll(sorted)
	paths := make([]string, len(formats))

	g, gctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		format := strings.ToLower(strings.TrimSpace(format))
		path := filepath.Join(b.Dir, b.Base+suffix(format))
		paths[i] = path

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var err error
			switch format {
			case FormatXLSX:
				err = WriteXLSX(path, b.SheetName, rows)
			case FormatCSV:
				err = WriteCSV(path, rows)
			case FormatJSON:
				err = WriteJSON(path, b.Raw)
			case FormatYAML:
				err = WriteYAML(path, sorted)
			case FormatGeoJSON:
				err = WriteGeoJSON(path, sorted)
			default:
				return eris.Errorf("export: unknown format %q", format)
			}
			if err != nil {
				return err
			}
			zap.L().Debug("export: wrote file", zap.String("format", format), zap.String("path", path))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func suffix(format string) string {
	switch format {
	case FormatJSON:
		return "_full.json"
	default:
		return "." + format
	}
}
