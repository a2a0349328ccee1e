// Package airports provides the read-only IATA code to coordinates directory
// used to locate origin airports for forecast lookups.
package airports

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed airports.csv
var embeddedCSV string

var (
	// ErrMissingColumn is returned when the CSV header lacks a required column.
	ErrMissingColumn = errors.New("airports: missing required column")
	// ErrEmptyDataset is returned when a dataset contains no usable rows.
	ErrEmptyDataset = errors.New("airports: dataset contains no airports")
)

// Record is a single airport entry.
type Record struct {
	IATA    string  `json:"iata"`
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Directory maps IATA codes to airport records. It is immutable once built
// and safe for concurrent readers.
type Directory struct {
	records map[string]Record
}

// NewDirectory builds a directory from the given records. Later duplicates
// overwrite earlier ones.
func NewDirectory(records ...Record) *Directory {
	d := &Directory{records: make(map[string]Record, len(records))}
	for _, r := range records {
		r.IATA = normalize(r.IATA)
		d.records[r.IATA] = r
	}
	return d
}

// Default returns the directory built from the embedded dataset.
func Default() (*Directory, error) {
	return Load(strings.NewReader(embeddedCSV))
}

// LoadFile reads a CSV dataset from disk.
func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open airports file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// columnAliases maps the OurAirports export headers onto the canonical
// column names, so airports.csv from that dataset loads unchanged.
var columnAliases = map[string]string{
	"iata_code":     "iata",
	"latitude_deg":  "lat",
	"longitude_deg": "lon",
	"municipality":  "city",
	"iso_country":   "country",
}

// Load parses a CSV dataset with at least the iata, lat and lon columns
// (or their OurAirports equivalents). Rows with an empty code or unparsable
// coordinates are skipped.
func Load(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read airports header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, seen := cols[name]; !seen {
			cols[name] = i
		}
	}
	for _, required := range []string{"iata", "lat", "lon"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read airports row: %w", err)
		}

		code := field(row, "iata")
		if code == "" {
			continue
		}
		lat, errLat := strconv.ParseFloat(field(row, "lat"), 64)
		lon, errLon := strconv.ParseFloat(field(row, "lon"), 64)
		if errLat != nil || errLon != nil {
			continue
		}

		records = append(records, Record{
			IATA:    code,
			Name:    field(row, "name"),
			City:    field(row, "city"),
			Country: field(row, "country"),
			Lat:     lat,
			Lon:     lon,
		})
	}

	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}

	return NewDirectory(records...), nil
}

// Lookup returns the record for a code. A missing code is reported through
// ok and is not an error.
func (d *Directory) Lookup(iata string) (Record, bool) {
	if d == nil {
		return Record{}, false
	}
	r, ok := d.records[normalize(iata)]
	return r, ok
}

// Len returns the number of airports in the directory.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
