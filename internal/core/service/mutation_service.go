package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/litecove/litecove/internal/core/domain"
	"github.com/litecove/litecove/internal/core/port"
)

// mutationState names the phases of a table reconstruction.
type mutationState string

const (
	stateValidate mutationState = "validate"
	stateStage    mutationState = "stage"
	stateCopy     mutationState = "copy"
	stateSwap     mutationState = "swap"
	stateReindex  mutationState = "reindex"
)

// tempTablePrefix keeps staging tables out of introspection results.
const tempTablePrefix = "_litecove_tmp_"

// ColumnSpec describes a column to add or the new shape of one being modified.
type ColumnSpec struct {
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	NotNull bool    `json:"not_null"`
	Default *string `json:"default,omitempty"`
}

// ForeignKeySpec describes a foreign key to add.
type ForeignKeySpec struct {
	SourceColumn string `json:"source_column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
	OnDelete     string `json:"on_delete"`
	OnUpdate     string `json:"on_update"`
}

// MutationResult reports a completed schema mutation.
type MutationResult struct {
	Operation string        `json:"operation"`
	Table     string        `json:"table"`
	Detail    string        `json:"detail,omitempty"`
	Warnings  []string      `json:"warnings,omitempty"`
	Duration  time.Duration `json:"-"`
}

// MutationService is the only component that writes. Column adds go through
// the engine's direct ALTER TABLE path; everything else rebuilds the table:
// VALIDATE -> STAGE -> COPY -> SWAP -> REINDEX, with CLEANUP dropping the
// staging table on any failure after STAGE. The original table is never
// dropped until the replacement exists.
type MutationService struct {
	introspector port.SchemaIntrospector
	executor     port.QueryExecutor
	graphs       *GraphService
	cycles       *CycleService
	auditor      port.MutationAuditor
	logger       *slog.Logger

	// The remote engine has no lock of its own; interleaved reconstructions
	// of one table would corrupt the drop/rename sequence, so mutations are
	// serialized per database+table here.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMutationService creates a MutationService. auditor may be nil.
func NewMutationService(introspector port.SchemaIntrospector, executor port.QueryExecutor, graphs *GraphService, cycles *CycleService, auditor port.MutationAuditor, logger *slog.Logger) *MutationService {
	return &MutationService{
		introspector: introspector,
		executor:     executor,
		graphs:       graphs,
		cycles:       cycles,
		auditor:      auditor,
		logger:       logger.With(slog.String("component", "mutation")),
		locks:        make(map[string]*sync.Mutex),
	}
}

// AddColumn appends a column via the engine's direct ALTER TABLE path.
func (s *MutationService) AddColumn(ctx context.Context, databaseID uuid.UUID, table string, spec ColumnSpec) (result *MutationResult, err error) {
	defer s.audit(databaseID, table, "add_column", spec.Name, time.Now(), &result, &err)
	unlock := s.lockTable(databaseID, table)
	defer unlock()

	if table, err = domain.SanitizeIdentifier(table); err != nil {
		return nil, err
	}
	if _, err = domain.SanitizeIdentifier(spec.Name); err != nil {
		return nil, err
	}
	if err = validateColumnType(spec.Type); err != nil {
		return nil, err
	}

	cols, err := s.introspector.TableInfo(ctx, databaseID, table)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if c.Name == spec.Name {
			return nil, domain.ValidationFailedf("column %q already exists on %s", spec.Name, table)
		}
	}
	if spec.NotNull && spec.Default == nil {
		count, err := s.introspector.RowCount(ctx, databaseID, table)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, domain.ValidationFailedf(
				"adding NOT NULL column %q to non-empty table %s requires a default value", spec.Name, table)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD COLUMN %s", domain.QuoteIdentifier(table), domain.QuoteIdentifier(spec.Name))
	if spec.Type != "" {
		b.WriteString(" " + spec.Type)
	}
	if spec.NotNull {
		b.WriteString(" NOT NULL")
	}
	if spec.Default != nil {
		b.WriteString(" DEFAULT " + domain.QuoteDefaultLiteral(*spec.Default))
	}

	if _, err = s.executor.Execute(ctx, databaseID, b.String()); err != nil {
		return nil, domain.TransientIOf(err, "adding column %s to %s", spec.Name, table)
	}

	s.logger.Info("column added",
		slog.String("database_id", databaseID.String()),
		slog.String("table", table),
		slog.String("column", spec.Name),
	)
	return &MutationResult{Operation: "add_column", Table: table, Detail: spec.Name}, nil
}

// DropColumn removes a column by rebuilding the table without it. Foreign
// keys sourced at the column are dropped with it.
func (s *MutationService) DropColumn(ctx context.Context, databaseID uuid.UUID, table, column string) (result *MutationResult, err error) {
	defer s.audit(databaseID, table, "drop_column", column, time.Now(), &result, &err)
	unlock := s.lockTable(databaseID, table)
	defer unlock()

	if table, err = domain.SanitizeIdentifier(table); err != nil {
		return nil, err
	}
	if column, err = domain.SanitizeIdentifier(column); err != nil {
		return nil, err
	}

	def, err := s.tableDef(ctx, databaseID, table)
	if err != nil {
		return nil, err
	}
	col := findColumn(def.Columns, column)
	if col == nil {
		return nil, domain.NotFoundf("column %q does not exist on %s", column, table)
	}
	if len(def.Columns) == 1 {
		return nil, domain.ValidationFailedf("cannot drop the only column of %s", table)
	}
	if col.PKOrdinal > 0 {
		return nil, domain.ValidationFailedf("cannot drop primary key column %q of %s", column, table)
	}

	def.DropColumn(column)
	warnings, err := s.reconstruct(ctx, databaseID, table, def, quotedNames(def.ColumnNames()))
	if err != nil {
		return nil, err
	}
	return &MutationResult{Operation: "drop_column", Table: table, Detail: column, Warnings: warnings}, nil
}

// ModifyColumn redefines a column's type, nullability, or default by
// rebuilding the table. When NOT NULL is introduced together with a default,
// existing NULLs are backfilled with the default during the copy.
func (s *MutationService) ModifyColumn(ctx context.Context, databaseID uuid.UUID, table, column string, spec ColumnSpec) (result *MutationResult, err error) {
	defer s.audit(databaseID, table, "modify_column", column, time.Now(), &result, &err)
	unlock := s.lockTable(databaseID, table)
	defer unlock()

	if table, err = domain.SanitizeIdentifier(table); err != nil {
		return nil, err
	}
	if column, err = domain.SanitizeIdentifier(column); err != nil {
		return nil, err
	}
	if err = validateColumnType(spec.Type); err != nil {
		return nil, err
	}

	def, err := s.tableDef(ctx, databaseID, table)
	if err != nil {
		return nil, err
	}
	old := findColumn(def.Columns, column)
	if old == nil {
		return nil, domain.NotFoundf("column %q does not exist on %s", column, table)
	}

	if spec.NotNull && spec.Default == nil {
		nulls, err := s.countRows(ctx, databaseID, fmt.Sprintf("SELECT COUNT(*) AS count FROM %s WHERE %s IS NULL",
			domain.QuoteIdentifier(table), domain.QuoteIdentifier(column)))
		if err != nil {
			return nil, err
		}
		if nulls > 0 {
			return nil, domain.ValidationFailedf(
				"column %q holds %d NULL rows; set a default or clear them before adding NOT NULL", column, nulls)
		}
	}

	def.ReplaceColumn(column, domain.Column{
		Name:      column,
		Type:      spec.Type,
		NotNull:   spec.NotNull,
		Default:   spec.Default,
		PKOrdinal: old.PKOrdinal,
	})

	exprs := make([]string, 0, len(def.Columns))
	for _, c := range def.Columns {
		if c.Name == column && spec.NotNull && spec.Default != nil {
			exprs = append(exprs, fmt.Sprintf("COALESCE(%s, %s)",
				domain.QuoteIdentifier(column), domain.QuoteDefaultLiteral(*spec.Default)))
			continue
		}
		exprs = append(exprs, domain.QuoteIdentifier(c.Name))
	}

	warnings, err := s.reconstruct(ctx, databaseID, table, def, exprs)
	if err != nil {
		return nil, err
	}
	return &MutationResult{Operation: "modify_column", Table: table, Detail: column, Warnings: warnings}, nil
}

// AddForeignKey adds a foreign-key constraint by rebuilding the table with
// the new clause. Pre-flight validation confirms the referenced column is
// unique, scans for orphan rows, and consults the cycle detector so the
// addition cannot silently re-introduce a cascading loop.
func (s *MutationService) AddForeignKey(ctx context.Context, databaseID uuid.UUID, table string, spec ForeignKeySpec) (result *MutationResult, err error) {
	defer s.audit(databaseID, table, "add_foreign_key", spec.SourceColumn, time.Now(), &result, &err)
	unlock := s.lockTable(databaseID, table)
	defer unlock()

	if table, err = domain.SanitizeIdentifier(table); err != nil {
		return nil, err
	}
	if spec.SourceColumn, err = domain.SanitizeIdentifier(spec.SourceColumn); err != nil {
		return nil, err
	}
	if spec.TargetTable, err = domain.SanitizeIdentifier(spec.TargetTable); err != nil {
		return nil, err
	}
	if spec.TargetColumn, err = domain.SanitizeIdentifier(spec.TargetColumn); err != nil {
		return nil, err
	}
	onDelete, err := domain.NormalizeAction(spec.OnDelete)
	if err != nil {
		return nil, err
	}
	onUpdate, err := domain.NormalizeAction(spec.OnUpdate)
	if err != nil {
		return nil, err
	}

	graph, err := s.graphs.BuildGraph(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	node, ok := graph.Node(table)
	if !ok {
		return nil, domain.NotFoundf("table %q does not exist", table)
	}
	if _, ok := node.Column(spec.SourceColumn); !ok {
		return nil, domain.NotFoundf("column %q does not exist on %s", spec.SourceColumn, table)
	}
	target, ok := graph.Node(spec.TargetTable)
	if !ok {
		return nil, domain.NotFoundf("table %q does not exist", spec.TargetTable)
	}
	targetCol, ok := target.Column(spec.TargetColumn)
	if !ok {
		return nil, domain.NotFoundf("column %q does not exist on %s", spec.TargetColumn, spec.TargetTable)
	}

	constraintID := domain.ConstraintID(table, spec.SourceColumn, spec.TargetTable, spec.TargetColumn)
	for _, e := range graph.EdgesFrom(table) {
		if e.ID == constraintID {
			return nil, domain.ValidationFailedf("constraint %s already exists", constraintID)
		}
	}

	// VALIDATE: the engine requires FK targets to be a primary key or
	// covered by a unique index.
	if targetCol.PKOrdinal == 0 {
		unique, err := s.hasUniqueIndexOn(ctx, databaseID, spec.TargetTable, spec.TargetColumn)
		if err != nil {
			return nil, err
		}
		if !unique {
			return nil, domain.ValidationFailedf(
				"referenced column %s.%s must be a primary key or carry a unique index",
				spec.TargetTable, spec.TargetColumn)
		}
	}

	// VALIDATE: orphan scan. Rows whose value has no match would violate the
	// constraint the moment it exists. The subquery filters NULLs out of the
	// target column: a unique index permits them, and a single NULL would turn
	// NOT IN into NULL for every row and wave orphans through.
	orphans, err := s.countRows(ctx, databaseID, fmt.Sprintf(
		"SELECT COUNT(*) AS count FROM %s WHERE %s IS NOT NULL AND %s NOT IN (SELECT %s FROM %s WHERE %s IS NOT NULL)",
		domain.QuoteIdentifier(table),
		domain.QuoteIdentifier(spec.SourceColumn),
		domain.QuoteIdentifier(spec.SourceColumn),
		domain.QuoteIdentifier(spec.TargetColumn),
		domain.QuoteIdentifier(spec.TargetTable),
		domain.QuoteIdentifier(spec.TargetColumn),
	))
	if err != nil {
		return nil, err
	}
	if orphans > 0 {
		return nil, domain.ValidationFailedf(
			"%d orphan rows in %s.%s have no matching %s.%s; resolve them before adding the constraint",
			orphans, table, spec.SourceColumn, spec.TargetTable, spec.TargetColumn)
	}

	var warnings []string
	check, err := s.cycles.WouldCreateCycle(graph, table, spec.TargetTable)
	if err != nil {
		return nil, err
	}
	if check.WouldCreateCycle {
		if onDelete == domain.ActionCascade {
			return nil, domain.ValidationFailedf(
				"adding this CASCADE constraint would create the cycle %s",
				strings.Join(check.Cycle.Tables, " -> "))
		}
		warnings = append(warnings, fmt.Sprintf(
			"constraint closes the reference cycle %s", strings.Join(check.Cycle.Tables, " -> ")))
	}

	def := domain.TableDefFromNode(node, graph.EdgesFrom(table))
	def.ForeignKeys = append(def.ForeignKeys, domain.ForeignKeyClause{
		SourceColumn: spec.SourceColumn,
		TargetTable:  spec.TargetTable,
		TargetColumn: spec.TargetColumn,
		OnDelete:     onDelete,
		OnUpdate:     onUpdate,
	})

	reWarnings, err := s.reconstruct(ctx, databaseID, table, def, quotedNames(def.ColumnNames()))
	if err != nil {
		return nil, err
	}
	return &MutationResult{
		Operation: "add_foreign_key",
		Table:     table,
		Detail:    constraintID,
		Warnings:  append(warnings, reWarnings...),
	}, nil
}

// ModifyForeignKey replaces the ON DELETE / ON UPDATE actions of an existing
// constraint by rebuilding the table.
func (s *MutationService) ModifyForeignKey(ctx context.Context, databaseID uuid.UUID, table, constraintID, onDeleteRaw, onUpdateRaw string) (result *MutationResult, err error) {
	defer s.audit(databaseID, table, "modify_foreign_key", constraintID, time.Now(), &result, &err)
	unlock := s.lockTable(databaseID, table)
	defer unlock()

	if table, err = domain.SanitizeIdentifier(table); err != nil {
		return nil, err
	}
	if err = domain.CheckConstraintID(constraintID); err != nil {
		return nil, err
	}
	onDelete, err := domain.NormalizeAction(onDeleteRaw)
	if err != nil {
		return nil, err
	}
	onUpdate, err := domain.NormalizeAction(onUpdateRaw)
	if err != nil {
		return nil, err
	}

	graph, err := s.graphs.BuildGraph(ctx, databaseID)
	if err != nil {
		return nil, err
	}
	node, ok := graph.Node(table)
	if !ok {
		return nil, domain.NotFoundf("table %q does not exist", table)
	}

	def := domain.TableDefFromNode(node, graph.EdgesFrom(table))
	if !def.RemoveForeignKey(constraintID) {
		return nil, domain.NotFoundf("constraint %q does not exist on %s", constraintID, table)
	}

	old := edgeByID(graph.EdgesFrom(table), constraintID)
	def.ForeignKeys = append(def.ForeignKeys, domain.ForeignKeyClause{
		SourceColumn: old.SourceColumn,
		TargetTable:  old.TargetTable,
		TargetColumn: old.TargetColumn,
		OnDelete:     onDelete,
		OnUpdate:     onUpdate,
	})

	// Upgrading an edge to CASCADE inside an existing cycle turns a benign
	// loop into a deletion chain; flag it rather than letting it slip by.
	var warnings []string
	if onDelete == domain.ActionCascade && old.OnDelete != domain.ActionCascade {
		for _, cycle := range s.cycles.DetectCycles(graph) {
			if edgeByID(cycle.Edges, constraintID) != nil {
				warnings = append(warnings, fmt.Sprintf(
					"constraint participates in the cycle %s; CASCADE makes it a deletion chain",
					strings.Join(cycle.Tables, " -> ")))
			}
		}
	}

	reWarnings, err := s.reconstruct(ctx, databaseID, table, def, quotedNames(def.ColumnNames()))
	if err != nil {
		return nil, err
	}
	return &MutationResult{
		Operation: "modify_foreign_key",
		Table:     table,
		Detail:    constraintID,
		Warnings:  append(warnings, reWarnings...),
	}, nil
}

// RemoveForeignKey drops a constraint by rebuilding the table without it.
func (s *MutationService) RemoveForeignKey(ctx context.Context, databaseID uuid.UUID, table, constraintID string) (result *MutationResult, err error) {
	defer s.audit(databaseID, table, "remove_foreign_key", constraintID, time.Now(), &result, &err)
	unlock := s.lockTable(databaseID, table)
	defer unlock()

	if table, err = domain.SanitizeIdentifier(table); err != nil {
		return nil, err
	}
	if err = domain.CheckConstraintID(constraintID); err != nil {
		return nil, err
	}

	def, err := s.tableDef(ctx, databaseID, table)
	if err != nil {
		return nil, err
	}
	if !def.RemoveForeignKey(constraintID) {
		return nil, domain.NotFoundf("constraint %q does not exist on %s", constraintID, table)
	}

	warnings, err := s.reconstruct(ctx, databaseID, table, def, quotedNames(def.ColumnNames()))
	if err != nil {
		return nil, err
	}
	return &MutationResult{Operation: "remove_foreign_key", Table: table, Detail: constraintID, Warnings: warnings}, nil
}

// reconstruct rebuilds table under the given definition: create a uniquely
// named staging table, copy rows with an explicit ordered column list, swap
// it in, and recreate user indexes. Any failure after STAGE drops the staging
// table; the original survives untouched until SWAP.
func (s *MutationService) reconstruct(ctx context.Context, databaseID uuid.UUID, table string, def *domain.TableDef, sourceExprs []string) (warnings []string, err error) {
	// Captured before STAGE so REINDEX can replay them post-swap.
	indexDDL, err := s.userIndexDDL(ctx, databaseID, table)
	if err != nil {
		return nil, err
	}

	tmp := tempTablePrefix + table + "_" + uuid.NewString()[:8]
	state := stateStage

	fail := func(cause error) ([]string, error) {
		s.cleanup(ctx, databaseID, tmp)
		return nil, domain.TransientIOf(cause, "%s step of %s reconstruction", state, table)
	}

	s.logger.Info("reconstructing table",
		slog.String("database_id", databaseID.String()),
		slog.String("table", table),
		slog.String("staging", tmp),
	)

	if _, err := s.executor.Execute(ctx, databaseID, def.Render(tmp)); err != nil {
		return fail(err)
	}

	state = stateCopy
	copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		domain.QuoteIdentifier(tmp),
		strings.Join(quotedNames(def.ColumnNames()), ", "),
		strings.Join(sourceExprs, ", "),
		domain.QuoteIdentifier(table),
	)
	if _, err := s.executor.Execute(ctx, databaseID, copySQL); err != nil {
		return fail(err)
	}

	state = stateSwap
	if _, err := s.executor.Execute(ctx, databaseID, "DROP TABLE "+domain.QuoteIdentifier(table)); err != nil {
		return fail(err)
	}
	if _, err := s.executor.Execute(ctx, databaseID,
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", domain.QuoteIdentifier(tmp), domain.QuoteIdentifier(table))); err != nil {
		// The original is already gone; do not drop the staging table, it is
		// the only copy of the data. Surface loudly instead.
		s.logger.Error("rename failed after drop; data remains in staging table",
			slog.String("database_id", databaseID.String()),
			slog.String("table", table),
			slog.String("staging", tmp),
			slog.String("error", err.Error()),
		)
		return nil, domain.TransientIOf(err, "swap step of %s reconstruction; data preserved in %s", table, tmp)
	}

	state = stateReindex
	for name, ddl := range indexDDL {
		if _, err := s.executor.Execute(ctx, databaseID, ddl); err != nil {
			warnings = append(warnings, fmt.Sprintf("index %s could not be recreated: %v", name, err))
			s.logger.Warn("reindex failed",
				slog.String("table", table),
				slog.String("index", name),
				slog.String("error", err.Error()),
			)
		}
	}
	return warnings, nil
}

// cleanup drops the staging table if it exists. Best-effort; the caller
// re-throws the original failure either way.
func (s *MutationService) cleanup(ctx context.Context, databaseID uuid.UUID, tmp string) {
	if _, err := s.executor.Execute(ctx, databaseID, "DROP TABLE IF EXISTS "+domain.QuoteIdentifier(tmp)); err != nil {
		s.logger.Warn("staging table cleanup failed",
			slog.String("database_id", databaseID.String()),
			slog.String("staging", tmp),
			slog.String("error", err.Error()),
		)
	}
}

// tableDef loads the structured definition of a table from live metadata.
func (s *MutationService) tableDef(ctx context.Context, databaseID uuid.UUID, table string) (*domain.TableDef, error) {
	cols, err := s.introspector.TableInfo(ctx, databaseID, table)
	if err != nil {
		return nil, err
	}
	node := &domain.TableNode{Name: table}
	for _, c := range cols {
		node.Columns = append(node.Columns, domain.Column{
			Name:      c.Name,
			Type:      c.Type,
			NotNull:   c.NotNull,
			Default:   c.DefaultValue,
			PKOrdinal: c.PKOrdinal,
		})
	}

	fks, err := s.introspector.ForeignKeys(ctx, databaseID, table)
	if err != nil {
		return nil, err
	}
	var edges []domain.ForeignKeyEdge
	for _, fk := range fks {
		onDelete, err := domain.NormalizeAction(fk.OnDelete)
		if err != nil {
			onDelete = domain.ActionNoAction
		}
		onUpdate, err := domain.NormalizeAction(fk.OnUpdate)
		if err != nil {
			onUpdate = domain.ActionNoAction
		}
		edges = append(edges, domain.NewForeignKeyEdge(table, fk.From, fk.Table, fk.To, onDelete, onUpdate))
	}
	return domain.TableDefFromNode(node, edges), nil
}

func (s *MutationService) userIndexDDL(ctx context.Context, databaseID uuid.UUID, table string) (map[string]string, error) {
	res, err := s.executor.Execute(ctx, databaseID, fmt.Sprintf(
		"SELECT name, sql FROM sqlite_master WHERE type = 'index' AND tbl_name = '%s' AND sql IS NOT NULL", table))
	if err != nil {
		return nil, domain.TransientIOf(err, "capturing index DDL of %s", table)
	}
	ddl := make(map[string]string, len(res.Rows))
	for _, row := range res.Rows {
		name, _ := row["name"].(string)
		sql, _ := row["sql"].(string)
		if name != "" && sql != "" {
			ddl[name] = sql
		}
	}
	return ddl, nil
}

func (s *MutationService) hasUniqueIndexOn(ctx context.Context, databaseID uuid.UUID, table, column string) (bool, error) {
	indexes, err := s.introspector.IndexList(ctx, databaseID, table)
	if err != nil {
		return false, err
	}
	for _, idx := range indexes {
		if !idx.Unique {
			continue
		}
		cols, err := s.introspector.IndexColumns(ctx, databaseID, table, idx.Name)
		if err != nil {
			return false, err
		}
		if len(cols) == 1 && cols[0] == column {
			return true, nil
		}
	}
	return false, nil
}

func (s *MutationService) countRows(ctx context.Context, databaseID uuid.UUID, sql string) (int64, error) {
	res, err := s.executor.Execute(ctx, databaseID, sql)
	if err != nil {
		return 0, domain.TransientIOf(err, "counting rows")
	}
	if len(res.Rows) == 0 {
		return 0, fmt.Errorf("counting rows: empty result")
	}
	switch v := res.Rows[0]["count"].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case int:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("counting rows: unexpected count type %T", v)
	}
}

// lockTable serializes mutations per database+table.
func (s *MutationService) lockTable(databaseID uuid.UUID, table string) func() {
	key := databaseID.String() + "/" + table
	s.mu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (s *MutationService) audit(databaseID uuid.UUID, table, operation, detail string, start time.Time, result **MutationResult, err *error) {
	if *result != nil {
		(*result).Duration = time.Since(start)
	}
	if s.auditor == nil {
		return
	}
	s.auditor.Log(port.MutationEntry{
		DatabaseID: databaseID,
		TableName:  table,
		Operation:  operation,
		Detail:     detail,
		DurationMs: int(time.Since(start).Milliseconds()),
		IsError:    *err != nil,
	})
}

// validateColumnType rejects declared types that could escape DDL text.
// SQLite typing is advisory free text, but only word characters, spaces, and
// parenthesized sizes are accepted here.
func validateColumnType(t string) error {
	for _, r := range t {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == ' ', r == '(', r == ')', r == ',':
		default:
			return domain.ValidationFailedf("column type %q contains disallowed character %q", t, r)
		}
	}
	return nil
}

func findColumn(cols []domain.Column, name string) *domain.Column {
	for i := range cols {
		if cols[i].Name == name {
			return &cols[i]
		}
	}
	return nil
}

func edgeByID(edges []domain.ForeignKeyEdge, id string) *domain.ForeignKeyEdge {
	for i := range edges {
		if edges[i].ID == id {
			return &edges[i]
		}
	}
	return nil
}

func quotedNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = domain.QuoteIdentifier(n)
	}
	return out
}
