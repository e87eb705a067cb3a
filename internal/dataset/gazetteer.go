package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

// column aliases, matched case-insensitively after trimming
var columns = map[string][]string{
	"code":  {"geoid", "zcta5", "zcta", "zip", "zipcode", "postal_code", "code"},
	"city":  {"city", "primary_city", "place"},
	"state": {"state_name", "state"},
	"abbr":  {"state_abbr", "stateabbr", "usps", "state_code"},
	"lat":   {"intptlat", "latitude", "lat"},
	"lng":   {"intptlong", "longitude", "lng", "lon"},
}

// ParseGazetteer reads a Census ZCTA gazetteer (tab separated) or a plain
// CSV with a header row. Rows that cannot be parsed are reported and
// skipped; record validation happens in the importer.
func ParseGazetteer(r io.Reader) ([]postalcode.Record, []string, error) {
	br := newPeekReader(r)
	delim, err := br.sniff()
	if err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexColumns(header)
	for _, req := range []string{"code", "lat", "lng"} {
		if idx[req] < 0 {
			return nil, nil, fmt.Errorf("missing %s column", req)
		}
	}

	var (
		out      []postalcode.Record
		warnings []string
		line     = 1
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		rec := postalcode.Record{
			Code:      field(row, idx["code"]),
			City:      field(row, idx["city"]),
			State:     field(row, idx["state"]),
			StateAbbr: field(row, idx["abbr"]),
		}
		if rec.Lat, err = strconv.ParseFloat(field(row, idx["lat"]), 64); err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: bad latitude", line))
			continue
		}
		if rec.Lng, err = strconv.ParseFloat(field(row, idx["lng"]), 64); err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: bad longitude", line))
			continue
		}
		out = append(out, rec)
	}
	return out, warnings, nil
}

func indexColumns(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := pos[h]; !ok {
			pos[h] = i
		}
	}

	idx := make(map[string]int, len(columns))
	for name, aliases := range columns {
		idx[name] = -1
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				idx[name] = i
				break
			}
		}
	}
	return idx
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
