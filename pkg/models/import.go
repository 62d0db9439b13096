package models

import "github.com/google/uuid"

// ImportResult summarizes a committed import run.
type ImportResult struct {
	RunID           uuid.UUID `json:"run_id"`
	ProjectID       int64     `json:"project_id"`
	ProjectName     string    `json:"project_name"`
	LineageID       int64     `json:"lineage_id"`
	EntitiesCreated int       `json:"entities_created"`
	EntitiesSkipped int       `json:"entities_skipped"`
	AttributesUsed  int       `json:"attributes_used"`
	AttributeNames  []string  `json:"attribute_names"`
	ValuesWritten   int64     `json:"values_written"`
	ValuesSkipped   int64     `json:"values_skipped"`
	ElapsedSeconds  float64   `json:"elapsed_seconds"`
}

// ImportStage names a step of the bulk load pipeline.
type ImportStage string

const (
	StageLineage    ImportStage = "lineage"
	StagePreScan    ImportStage = "prescan"
	StageSchema     ImportStage = "schema"
	StageReserve    ImportStage = "reserve_ids"
	StageSites      ImportStage = "sites"
	StageGeometries ImportStage = "geometries"
	StageValues     ImportStage = "attribute_values"
	StageLinkAttrs  ImportStage = "project_attributes"
	StageCommit     ImportStage = "commit"
)

// ProgressEvent reports how far an import run has progressed within a stage.
type ProgressEvent struct {
	RunID     uuid.UUID   `json:"run_id"`
	Stage     ImportStage `json:"stage"`
	Processed int64       `json:"processed"`
	Total     int64       `json:"total"`
	// Done is set on the last event of a stage.
	Done bool `json:"done"`
}
