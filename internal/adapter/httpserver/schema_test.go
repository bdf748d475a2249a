package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litecove/litecove/internal/core/port"
	"github.com/litecove/litecove/internal/core/service"
)

// stubIntrospector serves a fixed two-table blog schema: users (1 row) and
// posts (5 rows) with posts.author_id -> users.id ON DELETE CASCADE.
type stubIntrospector struct {
	fkCycle bool // add users.featured_post_id -> posts.id to close a cycle
}

func (s *stubIntrospector) ListTables(context.Context, uuid.UUID) ([]port.TableRef, error) {
	return []port.TableRef{
		{Name: "posts", Type: "table"},
		{Name: "users", Type: "table"},
	}, nil
}

func (s *stubIntrospector) TableInfo(_ context.Context, _ uuid.UUID, table string) ([]port.ColumnRecord, error) {
	switch table {
	case "users":
		return []port.ColumnRecord{
			{CID: 0, Name: "id", Type: "INTEGER", PKOrdinal: 1},
			{CID: 1, Name: "email", Type: "TEXT", NotNull: true},
			{CID: 2, Name: "featured_post_id", Type: "INTEGER"},
		}, nil
	case "posts":
		return []port.ColumnRecord{
			{CID: 0, Name: "id", Type: "INTEGER", PKOrdinal: 1},
			{CID: 1, Name: "author_id", Type: "INTEGER"},
		}, nil
	}
	return nil, nil
}

func (s *stubIntrospector) ForeignKeys(_ context.Context, _ uuid.UUID, table string) ([]port.ForeignKeyRecord, error) {
	switch {
	case table == "posts":
		return []port.ForeignKeyRecord{
			{Table: "users", From: "author_id", To: "id", OnDelete: "CASCADE", OnUpdate: "NO ACTION"},
		}, nil
	case table == "users" && s.fkCycle:
		return []port.ForeignKeyRecord{
			{Table: "posts", From: "featured_post_id", To: "id", OnDelete: "NO ACTION", OnUpdate: "NO ACTION"},
		}, nil
	}
	return nil, nil
}

func (s *stubIntrospector) IndexList(context.Context, uuid.UUID, string) ([]port.IndexRecord, error) {
	return nil, nil
}

func (s *stubIntrospector) IndexColumns(context.Context, uuid.UUID, string, string) ([]string, error) {
	return nil, nil
}

func (s *stubIntrospector) RowCount(_ context.Context, _ uuid.UUID, table string) (int64, error) {
	if table == "users" {
		return 1, nil
	}
	return 5, nil
}

type scriptedExecutor struct {
	mu       sync.Mutex
	executed []string
	respond  func(sql string) (*port.QueryResult, error)
}

func (s *scriptedExecutor) Execute(_ context.Context, _ uuid.UUID, sql string) (*port.QueryResult, error) {
	s.mu.Lock()
	s.executed = append(s.executed, sql)
	s.mu.Unlock()
	if s.respond != nil {
		return s.respond(sql)
	}
	return &port.QueryResult{}, nil
}

func (s *scriptedExecutor) statements() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.executed...)
}

func analysisServices(intro port.SchemaIntrospector, exec port.QueryExecutor) Services {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	graphs := service.NewGraphService(intro, logger)
	cycles := service.NewCycleService(logger)
	return Services{
		Graph:        graphs,
		Cycles:       cycles,
		Cascade:      service.NewCascadeService(exec, logger),
		Mutations:    service.NewMutationService(intro, exec, graphs, cycles, nil, logger),
		Introspector: intro,
	}
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestSchemaEndpoint(t *testing.T) {
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, &scriptedExecutor{}))

	resp := doReq(t, apiReq(t, "GET",
		fx.server.URL+"/api/databases/"+fx.scopedDB.String()+"/schema", testScopedKey, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tables []struct {
			Name     string `json:"name"`
			RowCount int64  `json:"row_count"`
			Columns  []struct {
				Name string `json:"name"`
			} `json:"columns"`
		} `json:"tables"`
	}
	decodeBody(t, resp, &body)

	require.Len(t, body.Tables, 2)
	assert.Equal(t, "posts", body.Tables[0].Name)
	assert.Equal(t, int64(5), body.Tables[0].RowCount)
	assert.Equal(t, "users", body.Tables[1].Name)
	require.Len(t, body.Tables[1].Columns, 3)
}

func TestGraphEndpoint(t *testing.T) {
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, &scriptedExecutor{}))

	resp := doReq(t, apiReq(t, "GET",
		fx.server.URL+"/api/databases/"+fx.scopedDB.String()+"/graph", testScopedKey, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Edges []struct {
			ID       string `json:"id"`
			OnDelete string `json:"on_delete"`
		} `json:"edges"`
		Incomplete bool `json:"incomplete"`
	}
	decodeBody(t, resp, &body)

	require.Len(t, body.Edges, 1)
	assert.Equal(t, "fk_posts_author_id_users_id", body.Edges[0].ID)
	assert.Equal(t, "CASCADE", body.Edges[0].OnDelete)
	assert.False(t, body.Incomplete)
}

func TestCyclesEndpoint(t *testing.T) {
	fx := newTestServer(t, analysisServices(&stubIntrospector{fkCycle: true}, &scriptedExecutor{}))

	resp := doReq(t, apiReq(t, "GET",
		fx.server.URL+"/api/databases/"+fx.scopedDB.String()+"/cycles", testScopedKey, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Cycles []struct {
			Tables      []string `json:"tables"`
			Severity    string   `json:"severity"`
			BreakPoints []struct {
				ConstraintID string `json:"constraint_id"`
			} `json:"break_points"`
		} `json:"cycles"`
	}
	decodeBody(t, resp, &body)

	require.Len(t, body.Cycles, 1)
	assert.ElementsMatch(t, []string{"posts", "users"}, body.Cycles[0].Tables)
	assert.NotEmpty(t, body.Cycles[0].BreakPoints)
}

func TestCycleCheckEndpoint(t *testing.T) {
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, &scriptedExecutor{}))
	url := fx.server.URL + "/api/databases/" + fx.scopedDB.String() + "/cycles/check"

	resp := doReq(t, apiReq(t, "POST", url, testScopedKey,
		map[string]string{"source_table": "users", "target_table": "posts"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		WouldCreateCycle bool `json:"would_create_cycle"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.WouldCreateCycle)

	resp = doReq(t, apiReq(t, "POST", url, testScopedKey,
		map[string]string{"source_table": "users"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doReq(t, apiReq(t, "POST", url, testScopedKey,
		map[string]string{"source_table": "users", "target_table": "ghosts"}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSimulateDeleteEndpoint(t *testing.T) {
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, &scriptedExecutor{}))
	url := fx.server.URL + "/api/databases/" + fx.scopedDB.String() + "/simulate-delete"

	resp := doReq(t, apiReq(t, "POST", url, testScopedKey, map[string]string{"table": "users"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		MatchedRows       int64 `json:"matched_rows"`
		TotalAffectedRows int64 `json:"total_affected_rows"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, int64(1), body.MatchedRows)
	assert.Equal(t, int64(6), body.TotalAffectedRows)

	resp = doReq(t, apiReq(t, "POST", url, testScopedKey, map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doReq(t, apiReq(t, "POST", url, testScopedKey, map[string]string{"table": "ghosts"}))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddColumnEndpoint(t *testing.T) {
	exec := &scriptedExecutor{}
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, exec))
	url := fx.server.URL + "/api/databases/" + fx.scopedDB.String() + "/tables/users/columns"

	resp := doReq(t, apiReq(t, "POST", url, testScopedKey,
		map[string]any{"name": "age", "type": "INTEGER"}))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Operation  string `json:"operation"`
		Detail     string `json:"detail"`
		DurationMs int64  `json:"duration_ms"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "add_column", body.Operation)
	assert.Equal(t, "age", body.Detail)

	stmts := exec.statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "age" INTEGER`, stmts[0])
}

func TestAddColumnEndpoint_ValidationFailureIs422(t *testing.T) {
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, &scriptedExecutor{}))
	url := fx.server.URL + "/api/databases/" + fx.scopedDB.String() + "/tables/users/columns"

	// Column already exists.
	resp := doReq(t, apiReq(t, "POST", url, testScopedKey,
		map[string]any{"name": "email", "type": "TEXT"}))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDropColumnEndpoint_PrimaryKeyIs422(t *testing.T) {
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, &scriptedExecutor{}))

	resp := doReq(t, apiReq(t, "DELETE",
		fx.server.URL+"/api/databases/"+fx.scopedDB.String()+"/tables/users/columns/id",
		testScopedKey, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRemoveForeignKeyEndpoint_MalformedConstraintIs400(t *testing.T) {
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, &scriptedExecutor{}))

	resp := doReq(t, apiReq(t, "DELETE",
		fx.server.URL+"/api/databases/"+fx.scopedDB.String()+"/tables/posts/foreign-keys/not-a-constraint",
		testScopedKey, nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutationEndpoint_TransientFailureIs502(t *testing.T) {
	exec := &scriptedExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.HasPrefix(sql, "ALTER TABLE") {
				return nil, context.DeadlineExceeded
			}
			return &port.QueryResult{}, nil
		},
	}
	fx := newTestServer(t, analysisServices(&stubIntrospector{}, exec))

	resp := doReq(t, apiReq(t, "POST",
		fx.server.URL+"/api/databases/"+fx.scopedDB.String()+"/tables/users/columns",
		testScopedKey, map[string]any{"name": "age", "type": "INTEGER"}))
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
