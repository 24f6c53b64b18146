package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapalei/fiscal-cli/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresUpsertRuleFirstWriteCreates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO rules`).
		WithArgs("rule-1", "abc123", "leaf-1", "UF_INTRA", pgxmock.AnyArg(), (*string)(nil),
			"2026-01-01", pgxmock.AnyArg(), "draft", "hash16", "worker-codex", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "version"}).AddRow("rule-1", 1))

	id, version, err := s.UpsertRule(context.Background(), model.Rule{
		ID:             "rule-1",
		IdempotencyKey: "abc123",
		LeafID:         "leaf-1",
		TipoRegra:      model.TipoUFIntra,
		UFOrigem:       "SP",
		VigenciaInicio: "2026-01-01",
		Status:         model.RuleStatusDraft,
		ProposalHash:   "hash16",
		CreatedBy:      "worker-codex",
	})
	require.NoError(t, err)
	assert.Equal(t, "rule-1", id)
	assert.Equal(t, 1, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertRuleConflictBumpsVersion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// The existing row wins the conflict: its id comes back and the
	// version increments, so the caller can tell create from update.
	mock.ExpectQuery(`INSERT INTO rules`).
		WithArgs("rule-new", "abc123", "leaf-1", "UF_INTER", pgxmock.AnyArg(), pgxmock.AnyArg(),
			"2026-01-01", pgxmock.AnyArg(), "draft", "hash16", "worker-codex", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "version"}).AddRow("rule-old", 2))

	id, version, err := s.UpsertRule(context.Background(), model.Rule{
		ID:             "rule-new",
		IdempotencyKey: "abc123",
		LeafID:         "leaf-1",
		TipoRegra:      model.TipoUFInter,
		UFOrigem:       "SP",
		UFDestino:      "RJ",
		VigenciaInicio: "2026-01-01",
		Status:         model.RuleStatusDraft,
		ProposalHash:   "hash16",
		CreatedBy:      "worker-codex",
	})
	require.NoError(t, err)
	assert.Equal(t, "rule-old", id)
	assert.Equal(t, 2, version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRuleByKeyNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM rules WHERE idempotency_key`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	rule, err := s.GetRuleByKey(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBulkInsertTasksSingleTransaction(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	tasks := []model.Task{
		{LeafID: "leaf-1", Title: "a", Status: model.TaskStatusTodo, Priority: model.PriorityP2, TipoRegra: model.TipoUFIntra, UFOrigem: "SP", CreatedAt: now, UpdatedAt: now},
		{LeafID: "leaf-1", Title: "b", Status: model.TaskStatusTodo, Priority: model.PriorityP1, TipoRegra: model.TipoPisCofins, CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs("leaf-1", "a", "", "todo", "P2", "UF_INTRA", pgxmock.AnyArg(), (*string)(nil), (*string)(nil), 0, pgxmock.AnyArg(), now, now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs("leaf-1", "b", "", "todo", "P1", "PISCOFINS", (*string)(nil), (*string)(nil), (*string)(nil), 0, pgxmock.AnyArg(), now, now).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectCommit()

	ids, err := s.BulkInsertTasks(context.Background(), tasks)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBulkInsertTasksRollsBackOnFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	tasks := []model.Task{
		{LeafID: "leaf-1", Title: "a", Status: model.TaskStatusTodo, Priority: model.PriorityP2, TipoRegra: model.TipoUFIntra, UFOrigem: "SP", CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs("leaf-1", "a", "", "todo", "P2", "UF_INTRA", pgxmock.AnyArg(), (*string)(nil), (*string)(nil), 0, pgxmock.AnyArg(), now, now).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := s.BulkInsertTasks(context.Background(), tasks)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPatchTaskBuildsOnlyRequestedColumns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	status := model.TaskStatusDone
	attempt := 1
	now := time.Now().UTC()

	mock.ExpectQuery(`UPDATE tasks SET status = \$1, attempt = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("done", 1, pgxmock.AnyArg(), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "leaf_id", "title", "description", "status", "priority", "tipo_regra",
			"uf_origem", "uf_destino", "owner_agent", "attempt", "evidence_refs", "created_at", "updated_at",
		}).AddRow(int64(7), "leaf-1", "a", "", "done", "P2", "UF_INTRA",
			strPtr("SP"), nil, strPtr("worker-codex"), 1, []byte(`["https://sefaz.sp.gov.br"]`), now, now))

	task, err := s.PatchTask(context.Background(), 7, model.TaskPatch{Status: &status, Attempt: &attempt})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusDone, task.Status)
	assert.Equal(t, 1, task.Attempt)
	assert.Equal(t, []string{"https://sefaz.sp.gov.br"}, task.EvidenceRefs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLeafNotFoundReturnsNil(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM leaves WHERE id`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	leaf, err := s.GetLeaf(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, leaf)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateLeafCoverageMissingLeafFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leaves SET coverage_pct`).
		WithArgs(100, 41, "complete", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateLeafCoverage(context.Background(), "missing", 100, 41, model.LeafStatusComplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaf not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDashboardMetrics(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\),`).
		WillReturnRows(pgxmock.NewRows([]string{"count", "complete", "avg"}).AddRow(10, 3, 62))
	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM tasks GROUP BY status`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("todo", 120).
			AddRow("done", 41))

	m, err := s.DashboardMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, m.LeavesTotal)
	assert.Equal(t, 3, m.LeavesComplete)
	assert.Equal(t, 62, m.AvgCoveragePct)
	assert.Equal(t, 120, m.TasksByStatus[model.TaskStatusTodo])
	assert.Equal(t, 41, m.TasksByStatus[model.TaskStatusDone])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string { return &s }
