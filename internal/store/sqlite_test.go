package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapalei/fiscal-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "fiscal.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testLeaf(id string) model.Leaf {
	now := time.Now().UTC()
	return model.Leaf{
		ID:           id,
		Name:         "Smartphones",
		CategoryPath: "eletronicos/celulares/" + id,
		NCM:          "8517.13.00",
		Status:       model.LeafStatusIncomplete,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestSQLiteLeafRoundtrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateLeaf(ctx, testLeaf("leaf-1")))

	got, err := s.GetLeaf(ctx, "leaf-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Smartphones", got.Name)
	assert.Equal(t, "8517.13.00", got.NCM)
	assert.Equal(t, model.LeafStatusIncomplete, got.Status)

	byPath, err := s.GetLeafByPath(ctx, "eletronicos/celulares/leaf-1")
	require.NoError(t, err)
	require.NotNil(t, byPath)
	assert.Equal(t, "leaf-1", byPath.ID)

	missing, err := s.GetLeaf(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteLeafStatusTransitions(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateLeaf(ctx, testLeaf("leaf-1")))
	require.NoError(t, s.UpdateLeafActivation(ctx, "leaf-1", 41, model.LeafStatusInProgress))
	require.NoError(t, s.UpdateLeafCoverage(ctx, "leaf-1", 100, 41, model.LeafStatusComplete))

	got, err := s.GetLeaf(ctx, "leaf-1")
	require.NoError(t, err)
	assert.Equal(t, 41, got.TasksTotal)
	assert.Equal(t, 41, got.TasksDone)
	assert.Equal(t, 100, got.CoveragePct)
	assert.Equal(t, model.LeafStatusComplete, got.Status)

	err = s.UpdateLeafCoverage(ctx, "nope", 0, 0, model.LeafStatusIncomplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaf not found")
}

func TestSQLiteBulkInsertAndListTasks(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateLeaf(ctx, testLeaf("leaf-1")))

	now := time.Now().UTC()
	ids, err := s.BulkInsertTasks(ctx, []model.Task{
		{LeafID: "leaf-1", Title: "[UF_INTRA] Smartphones — SP", Status: model.TaskStatusTodo, Priority: model.PriorityP2, TipoRegra: model.TipoUFIntra, UFOrigem: "SP", OwnerAgent: "worker-codex", CreatedAt: now, UpdatedAt: now},
		{LeafID: "leaf-1", Title: "[UF_INTER] Smartphones — SP→RJ", Status: model.TaskStatusTodo, Priority: model.PriorityP2, TipoRegra: model.TipoUFInter, UFOrigem: "SP", UFDestino: "RJ", OwnerAgent: "worker-codex", CreatedAt: now, UpdatedAt: now},
		{LeafID: "leaf-1", Title: "[PISCOFINS] Smartphones", Status: model.TaskStatusTodo, Priority: model.PriorityP1, TipoRegra: model.TipoPisCofins, OwnerAgent: "worker-codex", CreatedAt: now, UpdatedAt: now},
	})
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	count, err := s.CountTasksForLeaf(ctx, "leaf-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	tasks, err := s.ListTasks(ctx, TaskFilter{LeafID: "leaf-1"})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	todo, err := s.ListTasks(ctx, TaskFilter{LeafID: "leaf-1", Status: model.TaskStatusTodo})
	require.NoError(t, err)
	assert.Len(t, todo, 3)

	done, err := s.ListTasks(ctx, TaskFilter{LeafID: "leaf-1", Status: model.TaskStatusDone})
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestSQLitePatchTask(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateLeaf(ctx, testLeaf("leaf-1")))

	now := time.Now().UTC()
	id, err := s.CreateTask(ctx, model.Task{
		LeafID: "leaf-1", Title: "t", Status: model.TaskStatusTodo, Priority: model.PriorityP2,
		TipoRegra: model.TipoUFIntra, UFOrigem: "SP", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	status := model.TaskStatusDone
	attempt := 2
	owner := "fiscal-agent-opus"
	updated, err := s.PatchTask(ctx, id, model.TaskPatch{
		Status:       &status,
		Attempt:      &attempt,
		OwnerAgent:   &owner,
		EvidenceRefs: []string{"https://sefaz.sp.gov.br/ricms"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusDone, updated.Status)
	assert.Equal(t, 2, updated.Attempt)
	assert.Equal(t, "fiscal-agent-opus", updated.OwnerAgent)
	assert.Equal(t, []string{"https://sefaz.sp.gov.br/ricms"}, updated.EvidenceRefs)

	_, err = s.PatchTask(ctx, 9999, model.TaskPatch{Status: &status})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
}

func TestSQLiteUpsertRuleVersioning(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	rule := model.Rule{
		ID:             "rule-1",
		IdempotencyKey: "key-1",
		LeafID:         "leaf-1",
		TipoRegra:      model.TipoUFIntra,
		UFOrigem:       "SP",
		VigenciaInicio: "2026-01-01",
		Content: model.RuleContent{
			CClassTrib: "000001",
			CST:        "00",
			Aliquotas:  map[string]float64{"icms": 18.0},
		},
		Status:       model.RuleStatusDraft,
		ProposalHash: "aaaa",
		CreatedBy:    "worker-codex",
	}

	id, version, err := s.UpsertRule(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, "rule-1", id)
	assert.Equal(t, 1, version)

	// Same idempotency key from a retry: the original id survives and
	// the version bumps.
	rule.ID = "rule-2"
	rule.ProposalHash = "bbbb"
	id, version, err = s.UpsertRule(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, "rule-1", id)
	assert.Equal(t, 2, version)

	got, err := s.GetRuleByKey(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "bbbb", got.ProposalHash)
	assert.Equal(t, 18.0, got.Content.Aliquotas["icms"])

	missing, err := s.GetRuleByKey(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteAppendAudit(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	err := s.AppendAudit(ctx, model.AuditEvent{
		RuleID:             "rule-1",
		Action:             model.AuditActionCreated,
		ProposalHash:       "aaaa",
		Agent:              "worker-codex",
		GatekeeperDecision: model.DecisionApproved,
		Timestamp:          time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestSQLiteEvidenceLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	ev, err := s.UpsertEvidence(ctx, model.Evidence{
		URL:        "https://sefaz.sp.gov.br/ricms",
		Title:      "RICMS/SP",
		HashSHA256: "deadbeef",
		UF:         "SP",
	})
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)

	// Same url+hash upserts in place instead of duplicating.
	again, err := s.UpsertEvidence(ctx, model.Evidence{
		URL:        "https://sefaz.sp.gov.br/ricms",
		Title:      "RICMS/SP (atualizado)",
		HashSHA256: "deadbeef",
	})
	require.NoError(t, err)
	assert.Equal(t, ev.ID, again.ID)

	ids, err := s.ListEvidenceIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ev.ID}, ids)

	checkedAt := time.Now().UTC()
	require.NoError(t, s.UpdateEvidenceCheck(ctx, ev.ID, "cafef00d", true, "novo texto", checkedAt))

	got, err := s.GetEvidence(ctx, ev.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "cafef00d", got.HashSHA256)
	assert.True(t, got.HashChanged)
	assert.Equal(t, "novo texto", got.ContentSnapshot)
}

func TestSQLiteDashboardMetrics(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	leaf := testLeaf("leaf-1")
	leaf.Status = model.LeafStatusComplete
	leaf.CoveragePct = 100
	require.NoError(t, s.CreateLeaf(ctx, leaf))

	leaf2 := testLeaf("leaf-2")
	leaf2.CategoryPath = "eletronicos/tv/leaf-2"
	require.NoError(t, s.CreateLeaf(ctx, leaf2))

	now := time.Now().UTC()
	_, err := s.CreateTask(ctx, model.Task{LeafID: "leaf-1", Title: "t", Status: model.TaskStatusDone, Priority: model.PriorityP2, TipoRegra: model.TipoUFIntra, UFOrigem: "SP", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	m, err := s.DashboardMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, m.LeavesTotal)
	assert.Equal(t, 1, m.LeavesComplete)
	// (100 + 0) / 2
	assert.Equal(t, 50, m.AvgCoveragePct)
	assert.Equal(t, 1, m.TasksByStatus[model.TaskStatusDone])
}
