package postalcode

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/validators"
)

// property names that carry the postal code in Census ZCTA and common exports
var codeProperties = []string{"ZCTA5CE20", "ZCTA5CE10", "GEOID20", "GEOID10", "zcta", "zip", "code", "postal_code"}

// DecodeBoundaries reads a GeoJSON FeatureCollection of Polygon or
// MultiPolygon features into outer rings keyed by postal code. Holes are
// dropped. Features that cannot be used are reported as warnings.
func DecodeBoundaries(data []byte) (map[string][]geo.Ring, []string, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode boundaries: %w", err)
	}

	out := make(map[string][]geo.Ring)
	var warnings []string
	for i, f := range fc.Features {
		code, ok := featureCode(f.Properties)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("feature %d: no postal code property", i))
			continue
		}

		var polys []orb.Polygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{g}
		case orb.MultiPolygon:
			polys = g
		default:
			warnings = append(warnings, fmt.Sprintf("feature %d (%s): unsupported geometry %T", i, code, f.Geometry))
			continue
		}

		for _, p := range polys {
			if len(p) == 0 {
				continue
			}
			ring, err := geo.NormalizeRing(geo.FromOrbRing(p[0]))
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("feature %d (%s): %v", i, code, err))
				continue
			}
			out[code] = append(out[code], ring)
		}
	}
	return out, warnings, nil
}

func featureCode(props geojson.Properties) (string, bool) {
	for _, key := range codeProperties {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		var raw string
		switch t := v.(type) {
		case string:
			raw = t
		case float64:
			raw = fmt.Sprintf("%05d", int(t))
		default:
			raw = fmt.Sprint(t)
		}
		if code, ok := validators.NormalizeZipcode(strings.TrimSpace(raw)); ok {
			return code, true
		}
	}
	return "", false
}
