package coverage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/BruksfildServices01/homeservices-coverage/internal/audit"
	domain "github.com/BruksfildServices01/homeservices-coverage/internal/domain/coverage"
	"github.com/BruksfildServices01/homeservices-coverage/internal/geo"
	"github.com/BruksfildServices01/homeservices-coverage/internal/postalcode"
)

type ImportChunkInput struct {
	// JobID ties the chunks of one upload together; empty starts a new job.
	JobID      string
	Records    []postalcode.Record
	Boundaries []byte
	ChunkIndex int
	ChunkCount int
}

type ImportChunkResult struct {
	JobID string `json:"job_id"`
	postalcode.Report
}

// ImportPostalCodes feeds one chunk of the reference dataset into the
// registry and records a tally in the audit log.
type ImportPostalCodes struct {
	importer *postalcode.Importer
	audit    *audit.Dispatcher
}

func NewImportPostalCodes(importer *postalcode.Importer, dispatcher *audit.Dispatcher) *ImportPostalCodes {
	return &ImportPostalCodes{importer: importer, audit: dispatcher}
}

func (uc *ImportPostalCodes) Execute(ctx context.Context, in ImportChunkInput) (*ImportChunkResult, error) {
	if len(in.Records) == 0 && len(in.Boundaries) == 0 {
		return nil, domain.Invalid("records", "chunk has no records and no boundaries")
	}
	if in.ChunkCount > 0 && (in.ChunkIndex < 0 || in.ChunkIndex >= in.ChunkCount) {
		return nil, domain.Invalid("chunk_index", "chunk_index must be within chunk_count")
	}

	jobID := in.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	var (
		boundaries map[string][]geo.Ring
		warnings   []string
	)
	if len(in.Boundaries) > 0 {
		var err error
		boundaries, warnings, err = postalcode.DecodeBoundaries(in.Boundaries)
		if err != nil {
			return nil, domain.Invalid("boundaries", err.Error())
		}
	}

	rep, err := uc.importer.Import(ctx, in.Records, boundaries)
	if err != nil {
		return nil, err
	}
	rep.Errors = append(rep.Errors, warnings...)

	if uc.audit != nil {
		uc.audit.Dispatch(audit.Entry(
			audit.OpImportPostalCodes, nil, nil, domain.ActorFrom(ctx),
			audit.Summary{}, audit.Summary{},
			audit.Change{
				Added:   rep.Processed,
				Invalid: len(rep.Errors),
				Note:    fmt.Sprintf("job %s chunk %d/%d", jobID, in.ChunkIndex+1, max(in.ChunkCount, 1)),
			},
		))
	}

	return &ImportChunkResult{JobID: jobID, Report: rep}, nil
}
