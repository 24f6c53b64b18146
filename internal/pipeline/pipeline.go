// Package pipeline runs a submitted proposal through QA, the semantic
// gate, and the writer, advancing the owning task across the kanban as
// it goes.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/mapalei/fiscal-cli/internal/gate"
	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/qa"
	"github.com/mapalei/fiscal-cli/internal/store"
	"github.com/mapalei/fiscal-cli/internal/writer"
)

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	OutcomeQAFailed    Outcome = "qa_failed"
	OutcomeRejected    Outcome = "rejected"
	OutcomeRework      Outcome = "rework"
	OutcomeWriteFailed Outcome = "write_failed"
	OutcomeDone        Outcome = "done"
)

// Result carries everything each stage produced. Decision and Write are
// nil for stages the run never reached.
type Result struct {
	Outcome  Outcome                   `json:"outcome"`
	QA       model.QAResult            `json:"qa"`
	Decision *model.GatekeeperDecision `json:"decision,omitempty"`
	Write    *model.WriteResult        `json:"write,omitempty"`
}

// Pipeline wires the three stages over one store.
type Pipeline struct {
	store  store.Store
	writer *writer.Writer
}

func New(s store.Store) *Pipeline {
	return &Pipeline{store: s, writer: writer.New(s)}
}

// Run executes the full pipeline for one proposal. Stage outcomes never
// surface as Go errors: validation failures, gate verdicts, and write
// failures are all states of the Result. Task board updates are
// best-effort; a board that cannot be moved never blocks a rule write.
func (p *Pipeline) Run(ctx context.Context, proposal model.Proposal) *Result {
	log := zap.L().With(
		zap.Int64("task_id", proposal.TaskID),
		zap.String("leaf_id", proposal.LeafID),
		zap.String("tipo_regra", string(proposal.TipoRegra)),
	)

	p.moveTask(ctx, proposal.TaskID, model.TaskStatusQAReview, nil, nil)

	qaResult := qa.Check(proposal)
	if !qaResult.Pass {
		log.Info("pipeline stopped at qa", zap.Int("score", qaResult.Score))
		p.bounceToRework(ctx, proposal.TaskID)
		return &Result{Outcome: OutcomeQAFailed, QA: qaResult}
	}

	p.moveTask(ctx, proposal.TaskID, model.TaskStatusSemanticGate, nil, nil)

	decision := gate.Decide(proposal, qaResult)
	switch decision.Decision {
	case model.DecisionRejected:
		log.Info("pipeline stopped at gate",
			zap.String("decision", "rejected"),
			zap.String("rationale", decision.Rationale),
		)
		p.bounceToRework(ctx, proposal.TaskID)
		return &Result{Outcome: OutcomeRejected, QA: qaResult, Decision: &decision}
	case model.DecisionRework:
		log.Info("pipeline sent task to rework", zap.String("rationale", decision.Rationale))
		p.bounceToRework(ctx, proposal.TaskID)
		return &Result{Outcome: OutcomeRework, QA: qaResult, Decision: &decision}
	}

	p.moveTask(ctx, proposal.TaskID, model.TaskStatusWritingDB, nil, nil)

	writeResult := p.writer.Write(ctx, proposal, decision)
	if !writeResult.Success {
		log.Error("pipeline write failed", zap.String("error", writeResult.Error))
		p.moveTask(ctx, proposal.TaskID, model.TaskStatusBlocked, nil, nil)
		return &Result{Outcome: OutcomeWriteFailed, QA: qaResult, Decision: &decision, Write: writeResult}
	}

	p.moveTask(ctx, proposal.TaskID, model.TaskStatusDone, nil, decision.EvidenceRefs)
	log.Info("pipeline done", zap.Strings("rule_ids", writeResult.RuleIDs))
	return &Result{Outcome: OutcomeDone, QA: qaResult, Decision: &decision, Write: writeResult}
}

// bounceToRework moves a task back to rework and counts the attempt.
func (p *Pipeline) bounceToRework(ctx context.Context, taskID int64) {
	var attempt *int
	if task, err := p.store.GetTask(ctx, taskID); err == nil && task != nil {
		next := task.Attempt + 1
		attempt = &next
	}
	p.moveTask(ctx, taskID, model.TaskStatusRework, attempt, nil)
}

func (p *Pipeline) moveTask(ctx context.Context, taskID int64, status model.TaskStatus, attempt *int, evidenceRefs []string) {
	if taskID <= 0 {
		return
	}
	_, err := p.store.PatchTask(ctx, taskID, model.TaskPatch{
		Status:       &status,
		Attempt:      attempt,
		EvidenceRefs: evidenceRefs,
	})
	if err != nil {
		zap.L().Warn("task board update failed",
			zap.Int64("task_id", taskID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
