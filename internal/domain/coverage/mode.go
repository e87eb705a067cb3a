package coverage

import (
	"encoding/json"
	"strings"
)

// ======================================================
// MODE
// ======================================================

// Mode selects how a mutation treats existing membership.
type Mode string

const (
	ModeAppend     Mode = "append"
	ModeReplaceAll Mode = "replace_all"
)

// ParseMode accepts "append", "replace_all" (or "replace") and defaults to
// append when empty.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeAppend):
		return ModeAppend, nil
	case string(ModeReplaceAll), "replace", "replace-all":
		return ModeReplaceAll, nil
	}
	return "", &ValidationError{Field: "mode", Message: "mode must be append or replace_all"}
}

func (m Mode) Valid() bool {
	return m == ModeAppend || m == ModeReplaceAll
}

// ======================================================
// AREA KIND
// ======================================================

// AreaKind tags which representation of an area is authoritative. Polygon
// areas keep their drawn ring; manual areas only carry a code list and get a
// hull on demand.
type AreaKind string

const (
	AreaPolygon AreaKind = "polygon"
	AreaManual  AreaKind = "manual"
)

func (k AreaKind) Valid() bool {
	return k == AreaPolygon || k == AreaManual
}

// Provenance is the flag a freshly written row of this kind carries.
func (k AreaKind) Provenance() Provenance {
	if k == AreaPolygon {
		return FromPolygon
	}
	return FromManual
}

// ======================================================
// PROVENANCE
// ======================================================

// Provenance records where a ServiceZipcode row came from.
type Provenance uint8

const (
	FromManual Provenance = 1 << iota
	FromPolygon
)

func (p Provenance) Manual() bool  { return p&FromManual != 0 }
func (p Provenance) Polygon() bool { return p&FromPolygon != 0 }

func (p Provenance) With(o Provenance) Provenance { return p | o }

type provenanceJSON struct {
	FromManual  bool `json:"fromManual"`
	FromPolygon bool `json:"fromPolygon"`
}

func (p Provenance) MarshalJSON() ([]byte, error) {
	return json.Marshal(provenanceJSON{FromManual: p.Manual(), FromPolygon: p.Polygon()})
}

func (p *Provenance) UnmarshalJSON(b []byte) error {
	var v provenanceJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = 0
	if v.FromManual {
		*p |= FromManual
	}
	if v.FromPolygon {
		*p |= FromPolygon
	}
	return nil
}
