package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "fiscal.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTask(t *testing.T, s store.Store) int64 {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.CreateLeaf(ctx, model.Leaf{
		ID:           "leaf-1",
		Name:         "Smartphones",
		CategoryPath: "eletronicos/celulares/smartphones",
		Status:       model.LeafStatusInProgress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
	id, err := s.CreateTask(ctx, model.Task{
		LeafID:    "leaf-1",
		Title:     "[UF_INTRA] Smartphones — SP",
		Status:    model.TaskStatusInResearch,
		Priority:  model.PriorityP2,
		TipoRegra: model.TipoUFIntra,
		UFOrigem:  "SP",
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return id
}

func proposalFor(taskID int64, confidence float64) model.Proposal {
	return model.Proposal{
		TaskID:         taskID,
		LeafID:         "leaf-1",
		TipoRegra:      model.TipoUFIntra,
		UFOrigem:       "SP",
		VigenciaInicio: time.Now().UTC().Format("2006-01-02"),
		OwnerAgent:     "worker-codex",
		Confidence:     confidence,
		Sources:        []model.Source{{URL: "https://sefaz.sp.gov.br/ricms", Title: "RICMS/SP"}},
		Content: model.RuleContent{
			CClassTrib: "000001",
			CST:        "00",
			Aliquotas:  map[string]float64{"icms": 18.0},
		},
	}
}

func TestRunApprovedProposalEndsDone(t *testing.T) {
	s := newTestStore(t)
	taskID := seedTask(t, s)
	ctx := context.Background()

	res := New(s).Run(ctx, proposalFor(taskID, 0.9))

	assert.Equal(t, OutcomeDone, res.Outcome)
	assert.True(t, res.QA.Pass)
	require.NotNil(t, res.Decision)
	assert.Equal(t, model.DecisionApproved, res.Decision.Decision)
	require.NotNil(t, res.Write)
	require.Len(t, res.Write.RuleIDs, 1)

	rule, err := s.GetRuleByKey(ctx, res.Write.IdempotencyKey)
	require.NoError(t, err)
	require.NotNil(t, rule)

	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusDone, task.Status)
	assert.Equal(t, []string{"https://sefaz.sp.gov.br/ricms"}, task.EvidenceRefs)
}

func TestRunQAFailureBouncesTask(t *testing.T) {
	s := newTestStore(t)
	taskID := seedTask(t, s)
	ctx := context.Background()

	p := proposalFor(taskID, 0.9)
	p.Sources = nil
	res := New(s).Run(ctx, p)

	assert.Equal(t, OutcomeQAFailed, res.Outcome)
	assert.False(t, res.QA.Pass)
	assert.Nil(t, res.Decision)
	assert.Nil(t, res.Write)

	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusRework, task.Status)
	assert.Equal(t, 1, task.Attempt)
}

func TestRunOutOfRangeConfidenceNeverReachesGate(t *testing.T) {
	s := newTestStore(t)
	taskID := seedTask(t, s)

	res := New(s).Run(context.Background(), proposalFor(taskID, 1.5))

	assert.Equal(t, OutcomeQAFailed, res.Outcome)
	assert.Equal(t, 0, res.QA.Score)
	assert.Nil(t, res.Decision)
	assert.Nil(t, res.Write)
}

func TestRunMidConfidenceGoesToRework(t *testing.T) {
	s := newTestStore(t)
	taskID := seedTask(t, s)
	ctx := context.Background()

	res := New(s).Run(ctx, proposalFor(taskID, 0.7))

	assert.Equal(t, OutcomeRework, res.Outcome)
	require.NotNil(t, res.Decision)
	assert.Equal(t, model.DecisionRework, res.Decision.Decision)
	assert.Nil(t, res.Write)

	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusRework, task.Status)
	assert.Equal(t, 1, task.Attempt)
}

func TestRunRepeatedReworkCountsAttempts(t *testing.T) {
	s := newTestStore(t)
	taskID := seedTask(t, s)
	ctx := context.Background()
	pipe := New(s)

	pipe.Run(ctx, proposalFor(taskID, 0.7))
	pipe.Run(ctx, proposalFor(taskID, 0.7))

	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, 2, task.Attempt)
}

type upsertFailStore struct {
	store.Store
}

func (s upsertFailStore) UpsertRule(ctx context.Context, rule model.Rule) (string, int, error) {
	return "", 0, assert.AnError
}

func TestRunWriteFailureBlocksTask(t *testing.T) {
	s := newTestStore(t)
	taskID := seedTask(t, s)
	ctx := context.Background()

	res := New(upsertFailStore{Store: s}).Run(ctx, proposalFor(taskID, 0.9))

	assert.Equal(t, OutcomeWriteFailed, res.Outcome)
	require.NotNil(t, res.Write)
	assert.False(t, res.Write.Success)
	assert.NotEmpty(t, res.Write.Error)

	task, err := s.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusBlocked, task.Status)
}

func TestRunDegradedModeStillDecides(t *testing.T) {
	// Without a database the pipeline still validates, decides, and
	// reports a synthesized write.
	res := New(store.NewNoop()).Run(context.Background(), proposalFor(1, 0.9))

	assert.Equal(t, OutcomeDone, res.Outcome)
	require.NotNil(t, res.Write)
	assert.True(t, res.Write.Success)
	assert.Len(t, res.Write.RuleIDs, 1)
}
