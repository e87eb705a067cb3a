package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FromOrbRing converts an orb ring ([lng, lat] points).
func FromOrbRing(r orb.Ring) []Point {
	out := make([]Point, 0, len(r))
	for _, p := range r {
		out = append(out, Point{Lat: p.Lat(), Lng: p.Lon()})
	}
	return out
}

func (r Ring) Orb() orb.Ring {
	out := make(orb.Ring, 0, len(r))
	for _, p := range r {
		out = append(out, orb.Point{p.Lng, p.Lat})
	}
	return out
}

// Feature wraps a ring as a GeoJSON polygon feature.
func (r Ring) Feature(props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(orb.Polygon{r.Close().Orb()})
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}
