package domain

// CascadeSimulationResult describes the projected row-level impact of a
// deletion. All affected-row figures are upper bounds: the simulator assumes
// worst-case full overlap between the parent's matched rows and the child's
// foreign-key references rather than executing the actual join.
type CascadeSimulationResult struct {
	TargetTable       string                 `json:"target_table"`
	Predicate         string                 `json:"predicate,omitempty"`
	MatchedRows       int64                  `json:"matched_rows"`
	TotalAffectedRows int64                  `json:"total_affected_rows"`
	MaxDepth          int                    `json:"max_depth"`
	AffectedTables    map[string]TableImpact `json:"affected_tables"`
	CascadePaths      []CascadePath          `json:"cascade_paths"`
	Constraints       []BlockingConstraint   `json:"constraints"`
	Warnings          []SimulationWarning    `json:"warnings"`
	CircularPaths     []string               `json:"circular_paths,omitempty"`
}

// TableImpact is the before/after row count projection for one table.
type TableImpact struct {
	RowsBefore int64  `json:"rows_before"`
	RowsAfter  int64  `json:"rows_after"`
	Action     string `json:"action"`
}

// CascadePath is one traversed edge: deleting from SourceTable touches
// AffectedRows rows in TargetTable via the given ON DELETE action.
type CascadePath struct {
	SourceTable  string `json:"source_table"`
	TargetTable  string `json:"target_table"`
	Action       Action `json:"action"`
	Depth        int    `json:"depth"`
	AffectedRows int64  `json:"affected_rows"`
}

// BlockingConstraint is a RESTRICT / NO ACTION edge with affected rows:
// the engine would refuse the deletion while these rows exist.
type BlockingConstraint struct {
	ConstraintID string `json:"constraint_id"`
	SourceTable  string `json:"source_table"`
	TargetTable  string `json:"target_table"`
	Action       Action `json:"action"`
	AffectedRows int64  `json:"affected_rows"`
}

// SimulationWarning flags a risky pattern discovered during traversal.
type SimulationWarning struct {
	Kind     string   `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
