package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/meridian/tuition-engine/ledger"
)

// =============================================================================
// EXPORT - CSV and JSON serialization of report bundles
// =============================================================================

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// utf8BOM makes spreadsheet tools detect the encoding correctly when the
// file contains non-ASCII student or vendor names.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Export serializes a bundle in the requested format.
func Export(bundle Tabular, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ToCSV(bundle)
	case FormatJSON:
		return ToJSON(bundle)
	default:
		return nil, fmt.Errorf("%w: %q", ledger.ErrUnsupportedFormat, format)
	}
}

// ToCSV renders the bundle as BOM-prefixed UTF-8 CSV: one header row from
// the bundle's field names, one data row per leaf record.
func ToCSV(bundle Tabular) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(bundle.Headers()); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range bundle.Rows() {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ToJSON is a direct structural serialization of the bundle.
func ToJSON(bundle Tabular) ([]byte, error) {
	b, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}
	return b, nil
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

func (f Format) Valid() bool { return f == FormatCSV || f == FormatJSON }
