package model

import "time"

// Source is one legislative reference backing a proposal.
type Source struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Hash  string `json:"hash,omitempty"`
}

// RuleContent is the rule payload a worker proposes for a task.
type RuleContent struct {
	CClassTrib     string             `json:"cclasstrib,omitempty"`
	CST            string             `json:"cst,omitempty"`
	Aliquotas      map[string]float64 `json:"aliquotas,omitempty"`
	Condicoes      map[string]any     `json:"condicoes,omitempty"`
	Efeitos        map[string]any     `json:"efeitos,omitempty"`
	ReviewRequired bool               `json:"review_required"`
	Alertas        []string           `json:"alertas"`
}

// Proposal is a worker's candidate answer for one task. It exists only
// for the duration of one pipeline run; accepted content becomes part of
// a Rule.
type Proposal struct {
	TaskID         int64       `json:"task_id"`
	LeafID         string      `json:"leaf_id"`
	TipoRegra      TipoRegra   `json:"tipo_regra"`
	UFOrigem       string      `json:"uf_origem,omitempty"`
	UFDestino      string      `json:"uf_destino,omitempty"`
	VigenciaInicio string      `json:"vigencia_inicio"`
	OwnerAgent     string      `json:"owner_agent"`
	Confidence     float64     `json:"confidence"`
	Sources        []Source    `json:"sources"`
	Content        RuleContent `json:"proposal"`
}

// QACheck is one named validation with its verdict.
type QACheck struct {
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`
	Message string `json:"message,omitempty"`
}

// QAResult is the outcome of running the QA checks over a proposal.
// Score is the percentage of checks passed, 0-100.
type QAResult struct {
	Pass   bool      `json:"pass"`
	Score  int       `json:"score"`
	Checks []QACheck `json:"checks"`
}

// Decision is a gatekeeper verdict.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRework   Decision = "rework"
	DecisionRejected Decision = "rejected"
)

// GatekeeperDecision is the policy outcome for one QA-validated proposal.
type GatekeeperDecision struct {
	Decision     Decision  `json:"decision"`
	Rationale    string    `json:"rationale"`
	Checklist    []string  `json:"checklist,omitempty"`
	EvidenceRefs []string  `json:"evidence_refs,omitempty"`
	ReviewedBy   string    `json:"reviewed_by"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}
