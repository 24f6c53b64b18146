package store

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mapalei/fiscal-cli/internal/model"
)

// NoopStore is the degraded-mode backend used when no database is
// configured. Leaf reads synthesize a cold placeholder so coverage and
// activation still answer, other reads return empty, writes succeed
// with synthesized identifiers, and audit events go to the log instead
// of a table. The pipeline keeps validating and deciding; nothing
// persists.
type NoopStore struct {
	taskSeq atomic.Int64
}

func NewNoop() *NoopStore {
	return &NoopStore{}
}

func (s *NoopStore) Migrate(ctx context.Context) error { return nil }
func (s *NoopStore) Close() error                      { return nil }
func (s *NoopStore) Ping(ctx context.Context) error    { return nil }

func (s *NoopStore) CreateLeaf(ctx context.Context, leaf model.Leaf) error { return nil }

// GetLeaf synthesizes a placeholder so degraded-mode callers see the
// cold baseline (incomplete, zero coverage) instead of a missing leaf.
func (s *NoopStore) GetLeaf(ctx context.Context, id string) (*model.Leaf, error) {
	now := time.Now().UTC()
	return &model.Leaf{
		ID:        id,
		Status:    model.LeafStatusIncomplete,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *NoopStore) GetLeafByPath(ctx context.Context, categoryPath string) (*model.Leaf, error) {
	return nil, nil
}

func (s *NoopStore) ListLeaves(ctx context.Context) ([]model.Leaf, error) {
	return nil, nil
}

func (s *NoopStore) UpdateLeafActivation(ctx context.Context, id string, tasksTotal int, status model.LeafStatus) error {
	return nil
}

func (s *NoopStore) UpdateLeafCoverage(ctx context.Context, id string, coveragePct, tasksDone int, status model.LeafStatus) error {
	return nil
}

// BulkInsertTasks hands out sequential mock ids so callers can still
// report how many tasks a backlog would have created.
func (s *NoopStore) BulkInsertTasks(ctx context.Context, tasks []model.Task) ([]int64, error) {
	ids := make([]int64, 0, len(tasks))
	for range tasks {
		ids = append(ids, s.taskSeq.Add(1))
	}
	zap.L().Info("noop store: skipped task persistence", zap.Int("tasks", len(tasks)))
	return ids, nil
}

func (s *NoopStore) CreateTask(ctx context.Context, t model.Task) (int64, error) {
	return s.taskSeq.Add(1), nil
}

func (s *NoopStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	return nil, nil
}

func (s *NoopStore) CountTasksForLeaf(ctx context.Context, leafID string) (int, error) {
	return 0, nil
}

func (s *NoopStore) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	return nil, nil
}

func (s *NoopStore) PatchTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	return nil, nil
}

func (s *NoopStore) UpsertRule(ctx context.Context, rule model.Rule) (string, int, error) {
	id := rule.ID
	if id == "" {
		id = uuid.New().String()
	}
	zap.L().Info("noop store: skipped rule persistence",
		zap.String("leaf_id", rule.LeafID),
		zap.String("tipo_regra", string(rule.TipoRegra)),
	)
	return id, 1, nil
}

func (s *NoopStore) GetRuleByKey(ctx context.Context, idempotencyKey string) (*model.Rule, error) {
	return nil, nil
}

func (s *NoopStore) AppendAudit(ctx context.Context, ev model.AuditEvent) error {
	zap.L().Info("audit event",
		zap.String("rule_id", ev.RuleID),
		zap.String("action", string(ev.Action)),
		zap.String("agent", ev.Agent),
		zap.String("decision", string(ev.GatekeeperDecision)),
		zap.Time("ts", ev.Timestamp),
	)
	return nil
}

func (s *NoopStore) UpsertEvidence(ctx context.Context, ev model.Evidence) (*model.Evidence, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	return &ev, nil
}

func (s *NoopStore) GetEvidence(ctx context.Context, id string) (*model.Evidence, error) {
	return nil, nil
}

func (s *NoopStore) ListEvidenceIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (s *NoopStore) UpdateEvidenceCheck(ctx context.Context, id, newHash string, changed bool, snapshot string, checkedAt time.Time) error {
	return nil
}

func (s *NoopStore) DashboardMetrics(ctx context.Context) (*Metrics, error) {
	return &Metrics{TasksByStatus: map[model.TaskStatus]int{}}, nil
}
