package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litecove/litecove/internal/core/domain"
	"github.com/litecove/litecove/internal/core/port"
)

func newMutationService(t *testing.T, intro *fakeIntrospector, exec *fakeExecutor, auditor port.MutationAuditor) *MutationService {
	t.Helper()
	logger := newTestLogger(t)
	return NewMutationService(intro, exec,
		NewGraphService(intro, logger), NewCycleService(logger), auditor, logger)
}

func findStatement(stmts []string, substr string) (string, bool) {
	for _, s := range stmts {
		if strings.Contains(s, substr) {
			return s, true
		}
	}
	return "", false
}

func ptr(s string) *string { return &s }

func TestAddColumn_DirectAlter(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 0, "id", "email")
	exec := &fakeExecutor{}
	auditor := &fakeAuditor{}
	svc := newMutationService(t, intro, exec, auditor)

	result, err := svc.AddColumn(context.Background(), uuid.New(), "users",
		ColumnSpec{Name: "age", Type: "INTEGER"})
	require.NoError(t, err)

	assert.Equal(t, "add_column", result.Operation)
	assert.Equal(t, "age", result.Detail)
	assert.Positive(t, result.Duration)

	stmts := exec.statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "age" INTEGER`, stmts[0])

	entries := auditor.logged()
	require.Len(t, entries, 1)
	assert.Equal(t, "add_column", entries[0].Operation)
	assert.False(t, entries[0].IsError)
}

func TestAddColumn_NotNullWithDefault(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 5, "id")
	exec := &fakeExecutor{}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.AddColumn(context.Background(), uuid.New(), "users",
		ColumnSpec{Name: "plan", Type: "TEXT", NotNull: true, Default: ptr("free")})
	require.NoError(t, err)

	stmts := exec.statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "plan" TEXT NOT NULL DEFAULT 'free'`, stmts[0])
}

func TestAddColumn_DuplicateRejected(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 0, "id", "email")
	exec := &fakeExecutor{}
	auditor := &fakeAuditor{}
	svc := newMutationService(t, intro, exec, auditor)

	_, err := svc.AddColumn(context.Background(), uuid.New(), "users",
		ColumnSpec{Name: "email", Type: "TEXT"})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Empty(t, exec.statements())

	entries := auditor.logged()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsError)
}

func TestAddColumn_NotNullOnNonEmptyTableNeedsDefault(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 3, "id")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)

	_, err := svc.AddColumn(context.Background(), uuid.New(), "users",
		ColumnSpec{Name: "plan", Type: "TEXT", NotNull: true})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "requires a default value")
}

func TestAddColumn_RejectsHostileInput(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 0, "id")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := svc.AddColumn(ctx, uuid.New(), "users", ColumnSpec{Name: "x; DROP TABLE users", Type: "TEXT"})
	require.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = svc.AddColumn(ctx, uuid.New(), "users", ColumnSpec{Name: "x", Type: "TEXT; DROP TABLE users"})
	require.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = svc.AddColumn(ctx, uuid.New(), "users'--", ColumnSpec{Name: "x", Type: "TEXT"})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestAddColumn_ExecutorFailureIsTransient(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 0, "id")
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			return nil, errors.New("tunnel closed")
		},
	}
	auditor := &fakeAuditor{}
	svc := newMutationService(t, intro, exec, auditor)

	_, err := svc.AddColumn(context.Background(), uuid.New(), "users",
		ColumnSpec{Name: "age", Type: "INTEGER"})
	require.ErrorIs(t, err, domain.ErrTransientIO)

	entries := auditor.logged()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsError)
}

func TestDropColumn_RebuildsWithoutColumn(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 4, "id", "email", "nickname")
	exec := &fakeExecutor{}
	svc := newMutationService(t, intro, exec, nil)

	result, err := svc.DropColumn(context.Background(), uuid.New(), "users", "nickname")
	require.NoError(t, err)
	assert.Equal(t, "drop_column", result.Operation)
	assert.Empty(t, result.Warnings)

	stmts := exec.statements()
	require.Len(t, stmts, 5)
	assert.Contains(t, stmts[0], "sqlite_master")

	create := stmts[1]
	assert.True(t, strings.HasPrefix(create, `CREATE TABLE "_litecove_tmp_users_`), create)
	assert.Contains(t, create, `"id" INTEGER PRIMARY KEY`)
	assert.Contains(t, create, `"email"`)
	assert.NotContains(t, create, "nickname")

	copySQL := stmts[2]
	assert.Contains(t, copySQL, `("id", "email") SELECT "id", "email" FROM "users"`)
	assert.True(t, strings.HasPrefix(copySQL, "INSERT INTO "))

	assert.Equal(t, `DROP TABLE "users"`, stmts[3])
	assert.Contains(t, stmts[4], `RENAME TO "users"`)
}

func TestDropColumn_DropsDependentForeignKey(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id")
	intro.addTable("posts", 5, "id", "author_id", "title")
	intro.addFK("posts", "author_id", "users", "id", "CASCADE", "NO ACTION")
	exec := &fakeExecutor{}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.DropColumn(context.Background(), uuid.New(), "posts", "author_id")
	require.NoError(t, err)

	create, ok := findStatement(exec.statements(), "CREATE TABLE")
	require.True(t, ok)
	assert.NotContains(t, create, "FOREIGN KEY")
	assert.NotContains(t, create, "author_id")
}

func TestDropColumn_Rejections(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "email")
	intro.addTable("singles", 1, "id")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)
	ctx := context.Background()

	_, err := svc.DropColumn(ctx, uuid.New(), "users", "id")
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "primary key")

	_, err = svc.DropColumn(ctx, uuid.New(), "singles", "id")
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "only column")

	_, err = svc.DropColumn(ctx, uuid.New(), "users", "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReconstruct_CopyFailureCleansUpStaging(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "email", "nickname")
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.HasPrefix(sql, "INSERT INTO ") {
				return nil, errors.New("disk full")
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.DropColumn(context.Background(), uuid.New(), "users", "nickname")
	require.ErrorIs(t, err, domain.ErrTransientIO)
	assert.Contains(t, err.Error(), "copy step")

	stmts := exec.statements()
	cleanup, ok := findStatement(stmts, `DROP TABLE IF EXISTS "_litecove_tmp_users_`)
	require.True(t, ok, "staging table must be dropped on copy failure")
	assert.NotEmpty(t, cleanup)
	_, dropped := findStatement(stmts, `DROP TABLE "users"`)
	assert.False(t, dropped, "original table must survive a pre-swap failure")
}

func TestReconstruct_RenameFailurePreservesStaging(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "email", "nickname")
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "RENAME TO") {
				return nil, errors.New("tunnel closed")
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.DropColumn(context.Background(), uuid.New(), "users", "nickname")
	require.ErrorIs(t, err, domain.ErrTransientIO)
	assert.Contains(t, err.Error(), "data preserved in _litecove_tmp_users_")

	_, cleaned := findStatement(exec.statements(), "DROP TABLE IF EXISTS")
	assert.False(t, cleaned, "staging table holds the only copy after the original is dropped")
}

func TestReconstruct_IndexReplayFailureIsWarning(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "email", "nickname")
	indexSQL := `CREATE INDEX idx_users_email ON users (email)`
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "sqlite_master") {
				return &port.QueryResult{Rows: []map[string]any{
					{"name": "idx_users_email", "sql": indexSQL},
				}}, nil
			}
			if strings.HasPrefix(sql, "CREATE INDEX") {
				return nil, errors.New("duplicate column name")
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	result, err := svc.DropColumn(context.Background(), uuid.New(), "users", "nickname")
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "idx_users_email")
}

func TestModifyColumn_NullRowsBlockNotNull(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 3, "id", "plan")
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "IS NULL") {
				return countResult(2), nil
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.ModifyColumn(context.Background(), uuid.New(), "users", "plan",
		ColumnSpec{Name: "plan", Type: "TEXT", NotNull: true})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "2 NULL rows")

	stmts := exec.statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, `SELECT COUNT(*) AS count FROM "users" WHERE "plan" IS NULL`, stmts[0])
}

func TestModifyColumn_BackfillsDefaultDuringCopy(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 3, "id", "plan")
	exec := &fakeExecutor{}
	svc := newMutationService(t, intro, exec, nil)

	result, err := svc.ModifyColumn(context.Background(), uuid.New(), "users", "plan",
		ColumnSpec{Name: "plan", Type: "TEXT", NotNull: true, Default: ptr("free")})
	require.NoError(t, err)
	assert.Equal(t, "modify_column", result.Operation)

	create, ok := findStatement(exec.statements(), "CREATE TABLE")
	require.True(t, ok)
	assert.Contains(t, create, `"plan" TEXT NOT NULL DEFAULT 'free'`)

	copySQL, ok := findStatement(exec.statements(), "INSERT INTO")
	require.True(t, ok)
	assert.Contains(t, copySQL, `COALESCE("plan", 'free')`)
}

func TestModifyColumn_UnknownColumn(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)

	_, err := svc.ModifyColumn(context.Background(), uuid.New(), "users", "ghost",
		ColumnSpec{Name: "ghost", Type: "TEXT"})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddForeignKey_RebuildsWithConstraint(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id")
	intro.addTable("posts", 5, "id", "author_id")
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "NOT IN") {
				return countResult(0), nil
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	result, err := svc.AddForeignKey(context.Background(), uuid.New(), "posts", ForeignKeySpec{
		SourceColumn: "author_id",
		TargetTable:  "users",
		TargetColumn: "id",
		OnDelete:     "set null",
		OnUpdate:     "",
	})
	require.NoError(t, err)
	assert.Equal(t, "add_foreign_key", result.Operation)
	assert.Equal(t, "fk_posts_author_id_users_id", result.Detail)
	assert.Empty(t, result.Warnings)

	orphanScan, ok := findStatement(exec.statements(), "NOT IN")
	require.True(t, ok)
	assert.Equal(t, `SELECT COUNT(*) AS count FROM "posts" WHERE "author_id" IS NOT NULL AND "author_id" NOT IN (SELECT "id" FROM "users" WHERE "id" IS NOT NULL)`, orphanScan)

	create, ok := findStatement(exec.statements(), "CREATE TABLE")
	require.True(t, ok)
	assert.Contains(t, create, `FOREIGN KEY ("author_id") REFERENCES "users" ("id") ON DELETE SET NULL`)
}

func TestAddForeignKey_OrphansAbort(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id")
	intro.addTable("posts", 5, "id", "author_id")
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "NOT IN") {
				return countResult(3), nil
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.AddForeignKey(context.Background(), uuid.New(), "posts", ForeignKeySpec{
		SourceColumn: "author_id", TargetTable: "users", TargetColumn: "id",
	})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "3 orphan rows")

	_, staged := findStatement(exec.statements(), "CREATE TABLE")
	assert.False(t, staged, "no reconstruction may start while orphans exist")
}

func TestAddForeignKey_OrphansCaughtDespiteNullInTarget(t *testing.T) {
	// parent.uid is unique but holds a NULL alongside real values; child.ref
	// holds an orphan. The executor mimics SQLite's three-valued logic: a scan
	// whose subquery does not exclude the NULL sees NOT IN evaluate to NULL
	// everywhere and counts zero, hiding the orphan.
	intro := newFakeIntrospector()
	intro.addTable("parent", 2, "id", "uid")
	intro.addTable("child", 1, "id", "ref")
	intro.indexes["parent"] = []port.IndexRecord{{Name: "parent_uid_key", Unique: true, Origin: "c"}}
	intro.indexCols["parent/parent_uid_key"] = []string{"uid"}
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "NOT IN") {
				if !strings.Contains(sql, `NOT IN (SELECT "uid" FROM "parent" WHERE "uid" IS NOT NULL)`) {
					return countResult(0), nil
				}
				return countResult(1), nil
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.AddForeignKey(context.Background(), uuid.New(), "child", ForeignKeySpec{
		SourceColumn: "ref", TargetTable: "parent", TargetColumn: "uid",
	})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "1 orphan rows")

	_, staged := findStatement(exec.statements(), "CREATE TABLE")
	assert.False(t, staged, "no reconstruction may start while orphans exist")
}

func TestAddForeignKey_TargetMustBeUnique(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "email")
	intro.addTable("posts", 5, "id", "author_email")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)

	_, err := svc.AddForeignKey(context.Background(), uuid.New(), "posts", ForeignKeySpec{
		SourceColumn: "author_email", TargetTable: "users", TargetColumn: "email",
	})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "unique index")
}

func TestAddForeignKey_UniqueIndexSatisfiesTarget(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "email")
	intro.addTable("posts", 5, "id", "author_email")
	intro.indexes["users"] = []port.IndexRecord{{Name: "users_email_key", Unique: true, Origin: "c"}}
	intro.indexCols["users/users_email_key"] = []string{"email"}
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "NOT IN") {
				return countResult(0), nil
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.AddForeignKey(context.Background(), uuid.New(), "posts", ForeignKeySpec{
		SourceColumn: "author_email", TargetTable: "users", TargetColumn: "email",
	})
	require.NoError(t, err)
}

func TestAddForeignKey_DuplicateConstraint(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id")
	intro.addTable("posts", 5, "id", "author_id")
	intro.addFK("posts", "author_id", "users", "id", "CASCADE", "NO ACTION")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)

	_, err := svc.AddForeignKey(context.Background(), uuid.New(), "posts", ForeignKeySpec{
		SourceColumn: "author_id", TargetTable: "users", TargetColumn: "id",
	})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddForeignKey_CascadeIntoCycleRejected(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "team_id")
	intro.addTable("teams", 1, "id", "owner_id")
	intro.addFK("teams", "owner_id", "users", "id", "NO ACTION", "NO ACTION")
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "NOT IN") {
				return countResult(0), nil
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	_, err := svc.AddForeignKey(context.Background(), uuid.New(), "users", ForeignKeySpec{
		SourceColumn: "team_id", TargetTable: "teams", TargetColumn: "id",
		OnDelete: "cascade",
	})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Contains(t, err.Error(), "cycle")
}

func TestAddForeignKey_NonCascadeCycleWarns(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "team_id")
	intro.addTable("teams", 1, "id", "owner_id")
	intro.addFK("teams", "owner_id", "users", "id", "NO ACTION", "NO ACTION")
	exec := &fakeExecutor{
		respond: func(sql string) (*port.QueryResult, error) {
			if strings.Contains(sql, "NOT IN") {
				return countResult(0), nil
			}
			return &port.QueryResult{}, nil
		},
	}
	svc := newMutationService(t, intro, exec, nil)

	result, err := svc.AddForeignKey(context.Background(), uuid.New(), "users", ForeignKeySpec{
		SourceColumn: "team_id", TargetTable: "teams", TargetColumn: "id",
		OnDelete: "set null",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "closes the reference cycle")
}

func TestAddForeignKey_UnknownAction(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id")
	intro.addTable("posts", 5, "id", "author_id")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)

	_, err := svc.AddForeignKey(context.Background(), uuid.New(), "posts", ForeignKeySpec{
		SourceColumn: "author_id", TargetTable: "users", TargetColumn: "id",
		OnDelete: "EXPLODE",
	})
	require.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestModifyForeignKey_ReplacesActions(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id")
	intro.addTable("posts", 5, "id", "author_id")
	intro.addFK("posts", "author_id", "users", "id", "SET NULL", "NO ACTION")
	exec := &fakeExecutor{}
	svc := newMutationService(t, intro, exec, nil)

	result, err := svc.ModifyForeignKey(context.Background(), uuid.New(), "posts",
		"fk_posts_author_id_users_id", "cascade", "no action")
	require.NoError(t, err)
	assert.Equal(t, "modify_foreign_key", result.Operation)
	assert.Empty(t, result.Warnings)

	create, ok := findStatement(exec.statements(), "CREATE TABLE")
	require.True(t, ok)
	assert.Contains(t, create, "ON DELETE CASCADE")
	assert.NotContains(t, create, "ON DELETE SET NULL")
}

func TestModifyForeignKey_CascadeUpgradeInsideCycleWarns(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("users", 1, "id", "team_id")
	intro.addTable("teams", 1, "id", "owner_id")
	intro.addFK("users", "team_id", "teams", "id", "SET NULL", "NO ACTION")
	intro.addFK("teams", "owner_id", "users", "id", "NO ACTION", "NO ACTION")
	exec := &fakeExecutor{}
	svc := newMutationService(t, intro, exec, nil)

	result, err := svc.ModifyForeignKey(context.Background(), uuid.New(), "users",
		"fk_users_team_id_teams_id", "cascade", "no action")
	require.NoError(t, err)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "deletion chain")
}

func TestModifyForeignKey_MalformedConstraintID(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("posts", 5, "id")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)

	_, err := svc.ModifyForeignKey(context.Background(), uuid.New(), "posts",
		"author_fk", "cascade", "no action")
	require.ErrorIs(t, err, domain.ErrConstraintNameMalformed)
}

func TestRemoveForeignKey_RebuildsWithoutConstraint(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("posts", 5, "id", "author_id")
	intro.addFK("posts", "author_id", "users", "id", "CASCADE", "NO ACTION")
	exec := &fakeExecutor{}
	auditor := &fakeAuditor{}
	svc := newMutationService(t, intro, exec, auditor)

	result, err := svc.RemoveForeignKey(context.Background(), uuid.New(), "posts",
		"fk_posts_author_id_users_id")
	require.NoError(t, err)
	assert.Equal(t, "remove_foreign_key", result.Operation)

	create, ok := findStatement(exec.statements(), "CREATE TABLE")
	require.True(t, ok)
	assert.NotContains(t, create, "FOREIGN KEY")
	assert.Contains(t, create, `"author_id"`)

	entries := auditor.logged()
	require.Len(t, entries, 1)
	assert.Equal(t, "remove_foreign_key", entries[0].Operation)
	assert.Equal(t, "fk_posts_author_id_users_id", entries[0].Detail)
}

func TestRemoveForeignKey_UnknownConstraint(t *testing.T) {
	intro := newFakeIntrospector()
	intro.addTable("posts", 5, "id", "author_id")
	svc := newMutationService(t, intro, &fakeExecutor{}, nil)

	_, err := svc.RemoveForeignKey(context.Background(), uuid.New(), "posts",
		"fk_posts_author_id_users_id")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
