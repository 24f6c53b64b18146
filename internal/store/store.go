package store

import (
	"context"
	"time"

	"github.com/mapalei/fiscal-cli/internal/model"
)

// TaskFilter specifies criteria for listing tasks.
type TaskFilter struct {
	LeafID string           `json:"leaf_id,omitempty"`
	Status model.TaskStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
}

// Metrics aggregates the dashboard counters.
type Metrics struct {
	LeavesTotal    int                      `json:"leaves_total"`
	LeavesComplete int                      `json:"leaves_complete"`
	AvgCoveragePct int                      `json:"avg_coverage_pct"`
	TasksByStatus  map[model.TaskStatus]int `json:"tasks_by_status"`
}

// Store defines the persistence interface for leaves, tasks, rules,
// audit events, and legislative evidence. Implementations must make
// BulkInsertTasks all-or-nothing and enforce rule uniqueness on the
// idempotency key.
type Store interface {
	// Leaves
	CreateLeaf(ctx context.Context, leaf model.Leaf) error
	GetLeaf(ctx context.Context, id string) (*model.Leaf, error)
	GetLeafByPath(ctx context.Context, categoryPath string) (*model.Leaf, error)
	ListLeaves(ctx context.Context) ([]model.Leaf, error)
	UpdateLeafActivation(ctx context.Context, id string, tasksTotal int, status model.LeafStatus) error
	UpdateLeafCoverage(ctx context.Context, id string, coveragePct, tasksDone int, status model.LeafStatus) error

	// Tasks
	BulkInsertTasks(ctx context.Context, tasks []model.Task) ([]int64, error)
	CreateTask(ctx context.Context, task model.Task) (int64, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	CountTasksForLeaf(ctx context.Context, leafID string) (int, error)
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	PatchTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error)

	// Rules
	UpsertRule(ctx context.Context, rule model.Rule) (ruleID string, version int, err error)
	GetRuleByKey(ctx context.Context, idempotencyKey string) (*model.Rule, error)

	// Audit
	AppendAudit(ctx context.Context, ev model.AuditEvent) error

	// Legislative evidence
	UpsertEvidence(ctx context.Context, ev model.Evidence) (*model.Evidence, error)
	GetEvidence(ctx context.Context, id string) (*model.Evidence, error)
	ListEvidenceIDs(ctx context.Context) ([]string, error)
	UpdateEvidenceCheck(ctx context.Context, id, newHash string, changed bool, snapshot string, checkedAt time.Time) error

	// Dashboard
	DashboardMetrics(ctx context.Context) (*Metrics, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
