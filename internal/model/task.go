package model

import "time"

// TaskStatus is the kanban lifecycle of a rule-mapping task. Failed
// attempts move to rework or blocked rather than being deleted, so the
// attempt history survives.
type TaskStatus string

const (
	TaskStatusTodo             TaskStatus = "todo"
	TaskStatusInResearch       TaskStatus = "in_research"
	TaskStatusQAReview         TaskStatus = "qa_review"
	TaskStatusSemanticGate     TaskStatus = "semantic_gate"
	TaskStatusApprovedForWrite TaskStatus = "approved_for_write"
	TaskStatusWritingDB        TaskStatus = "writing_db"
	TaskStatusDone             TaskStatus = "done"
	TaskStatusRework           TaskStatus = "rework"
	TaskStatusBlocked          TaskStatus = "blocked"
)

// KanbanStatuses lists every task status in board order.
var KanbanStatuses = []TaskStatus{
	TaskStatusTodo,
	TaskStatusInResearch,
	TaskStatusQAReview,
	TaskStatusSemanticGate,
	TaskStatusApprovedForWrite,
	TaskStatusWritingDB,
	TaskStatusDone,
	TaskStatusRework,
	TaskStatusBlocked,
}

// Priority ranks tasks P0 (highest) through P3.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// TipoRegra identifies which kind of fiscal rule a task or proposal maps.
type TipoRegra string

const (
	TipoUFIntra   TipoRegra = "UF_INTRA"
	TipoUFInter   TipoRegra = "UF_INTER"
	TipoPisCofins TipoRegra = "PISCOFINS"
	TipoIBSCBSIS  TipoRegra = "IBSCBSIS"
)

// ValidTipoRegra reports whether t is one of the four rule kinds.
func ValidTipoRegra(t TipoRegra) bool {
	switch t {
	case TipoUFIntra, TipoUFInter, TipoPisCofins, TipoIBSCBSIS:
		return true
	}
	return false
}

// Task is one unit of rule-mapping work, mapped 1:1 to a checklist item
// for its leaf.
type Task struct {
	ID           int64      `json:"id"`
	LeafID       string     `json:"leaf_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	TipoRegra    TipoRegra  `json:"tipo_regra"`
	UFOrigem     string     `json:"uf_origem,omitempty"`
	UFDestino    string     `json:"uf_destino,omitempty"`
	OwnerAgent   string     `json:"owner_agent,omitempty"`
	Attempt      int        `json:"attempt"`
	EvidenceRefs []string   `json:"evidence_refs,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TaskPatch carries the mutable fields of a task status update.
type TaskPatch struct {
	Status       *TaskStatus `json:"status,omitempty"`
	OwnerAgent   *string     `json:"owner_agent,omitempty"`
	Attempt      *int        `json:"attempt,omitempty"`
	EvidenceRefs []string    `json:"evidence_refs,omitempty"`
}
