package model

import "time"

// LeafStatus tracks the lifecycle of a taxonomy leaf through coverage.
type LeafStatus string

const (
	LeafStatusIncomplete LeafStatus = "incomplete"
	LeafStatusInProgress LeafStatus = "in_progress"
	LeafStatusComplete   LeafStatus = "complete"
)

// Leaf is one product category leaf from the mercadological taxonomy,
// tracked here with its rule-mapping coverage. Leaves are created on
// activation and never deleted, only superseded.
type Leaf struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	CategoryPath string     `json:"category_path"`
	NCM          string     `json:"ncm,omitempty"`
	Status       LeafStatus `json:"status"`
	CoveragePct  int        `json:"coverage_pct"`
	TasksTotal   int        `json:"tasks_total"`
	TasksDone    int        `json:"tasks_done"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
