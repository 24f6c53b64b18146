package model

import "time"

// RuleStatus is the publication state of a stored fiscal rule.
type RuleStatus string

const (
	RuleStatusDraft  RuleStatus = "draft"
	RuleStatusActive RuleStatus = "active"
)

// Rule is the durable artifact produced by an approved proposal. For a
// given idempotency key there is exactly one logical rule; re-submission
// with identical semantic content updates it in place and increments
// Version.
type Rule struct {
	ID             string      `json:"id"`
	IdempotencyKey string      `json:"idempotency_key"`
	LeafID         string      `json:"leaf_id"`
	TipoRegra      TipoRegra   `json:"tipo_regra"`
	UFOrigem       string      `json:"uf_origem,omitempty"`
	UFDestino      string      `json:"uf_destino,omitempty"`
	VigenciaInicio string      `json:"vigencia_inicio"`
	Content        RuleContent `json:"content"`
	Status         RuleStatus  `json:"status"`
	Version        int         `json:"version"`
	ProposalHash   string      `json:"proposal_hash"`
	CreatedBy      string      `json:"created_by"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// AuditAction classifies an audit-log entry.
type AuditAction string

const (
	AuditActionCreated    AuditAction = "created"
	AuditActionUpdated    AuditAction = "updated"
	AuditActionSuperseded AuditAction = "superseded"
	AuditActionRevoked    AuditAction = "revoked"
)

// AuditEvent is an immutable, append-only record of a rule mutation.
type AuditEvent struct {
	RuleID             string      `json:"rule_id"`
	Action             AuditAction `json:"action"`
	ProposalHash       string      `json:"proposal_hash"`
	Agent              string      `json:"agent"`
	GatekeeperDecision Decision    `json:"gatekeeper_decision"`
	Timestamp          time.Time   `json:"timestamp"`
}

// WriteResult is the writer stage outcome. A skipped write for a
// non-approved decision is a success with no rule ids; persistence
// failures surface in Error rather than as a thrown error.
type WriteResult struct {
	Success        bool     `json:"success"`
	RuleIDs        []string `json:"rule_ids"`
	IdempotencyKey string   `json:"idempotency_key"`
	Error          string   `json:"error,omitempty"`
}
