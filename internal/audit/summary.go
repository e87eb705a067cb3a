package audit

import (
	"encoding/json"
	"sort"

	"github.com/BruksfildServices01/homeservices-coverage/internal/models"
)

// MaxAreaNames bounds how many area names a summary carries.
const MaxAreaNames = 10

const (
	OpCreateFromPolygon = "create_from_polygon"
	OpCreateFromZipList = "create_from_zip_list"
	OpAddZipcodes       = "add_zipcodes_to_area"
	OpRemoveZipcode     = "remove_zipcode"
	OpMergeAreas        = "merge_service_areas"
	OpRenameArea        = "rename_area"
	OpToggleArea        = "toggle_area_active"
	OpDeleteArea        = "delete_area"
	OpCreateWorker      = "create_worker"
	OpImportPostalCodes = "import_postal_codes"
)

// Summary describes a worker's coverage at one point in time without
// listing codes.
type Summary struct {
	ActiveAreas int      `json:"active_areas"`
	Codes       int      `json:"codes"`
	AreaNames   []string `json:"area_names,omitempty"`
	MoreAreas   int      `json:"more_areas,omitempty"`
}

func Summarize(activeAreas []models.ServiceArea, codeCount int) Summary {
	names := make([]string, 0, len(activeAreas))
	for _, a := range activeAreas {
		names = append(names, a.AreaName)
	}
	sort.Strings(names)

	s := Summary{ActiveAreas: len(activeAreas), Codes: codeCount}
	if len(names) > MaxAreaNames {
		s.MoreAreas = len(names) - MaxAreaNames
		names = names[:MaxAreaNames]
	}
	s.AreaNames = names
	return s
}

type Change struct {
	Mode     string `json:"mode,omitempty"`
	Added    int    `json:"added"`
	Removed  int    `json:"removed"`
	Skipped  int    `json:"skipped,omitempty"`
	Invalid  int    `json:"invalid,omitempty"`
	Retired  int    `json:"retired_areas,omitempty"`
	AreaName string `json:"area_name,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Entry builds the row a mutation appends.
func Entry(op string, workerID, areaID *uint, actor string, before, after Summary, change Change) *models.AuditLog {
	return &models.AuditLog{
		Operation:     op,
		WorkerID:      workerID,
		AreaID:        areaID,
		Actor:         actor,
		BeforeSummary: marshal(before),
		AfterSummary:  marshal(after),
		ChangeSummary: marshal(change),
	}
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
