// Package writer is the only component allowed to mutate the rules
// store. Every write goes through the idempotency key, so retries and
// duplicate submissions converge on one logical rule.
package writer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/store"
)

// Writer persists approved proposals as rules.
type Writer struct {
	store store.Store
}

func New(s store.Store) *Writer {
	return &Writer{store: s}
}

// ContentHash returns the first 16 hex characters of the SHA-256 of the
// rule content's JSON encoding. It feeds both the idempotency key and
// the audit trail's proposal hash.
func ContentHash(content model.RuleContent) string {
	encoded, err := json.Marshal(content)
	if err != nil {
		// RuleContent only holds JSON-encodable types; this cannot fire
		// for real proposals.
		return "unhashable"
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])[:16]
}

// IdempotencyKey derives the stable identity of a rule from its semantic
// coordinates plus the content hash. Two proposals for the same slot
// with identical content collapse to the same key.
func IdempotencyKey(p model.Proposal) string {
	raw := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		p.LeafID, p.TipoRegra, p.UFOrigem, p.UFDestino, p.VigenciaInicio, ContentHash(p.Content))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Write persists an approved proposal. Failures never escape as Go
// errors; they land in the result so the pipeline can report them
// without tearing down. A non-approved decision is a successful no-op.
func (w *Writer) Write(ctx context.Context, p model.Proposal, decision model.GatekeeperDecision) *model.WriteResult {
	key := IdempotencyKey(p)
	if decision.Decision != model.DecisionApproved {
		return &model.WriteResult{
			Success:        true,
			IdempotencyKey: key,
			Error:          fmt.Sprintf("Ignorado: decisão do gatekeeper foi %s", decision.Decision),
		}
	}

	contentHash := ContentHash(p.Content)

	rule := model.Rule{
		ID:             uuid.New().String(),
		IdempotencyKey: key,
		LeafID:         p.LeafID,
		TipoRegra:      p.TipoRegra,
		UFOrigem:       p.UFOrigem,
		UFDestino:      p.UFDestino,
		VigenciaInicio: p.VigenciaInicio,
		Content:        p.Content,
		Status:         model.RuleStatusDraft,
		ProposalHash:   contentHash,
		CreatedBy:      p.OwnerAgent,
	}

	ruleID, version, err := w.store.UpsertRule(ctx, rule)
	if err != nil {
		zap.L().Error("rule write failed",
			zap.String("leaf_id", p.LeafID),
			zap.String("tipo_regra", string(p.TipoRegra)),
			zap.Error(err),
		)
		return &model.WriteResult{
			Success:        false,
			IdempotencyKey: key,
			Error:          err.Error(),
		}
	}

	action := model.AuditActionCreated
	if version > 1 {
		action = model.AuditActionUpdated
	}

	// Audit is best-effort: a failed audit insert must not undo or fail
	// an already-persisted rule.
	auditErr := w.store.AppendAudit(ctx, model.AuditEvent{
		RuleID:             ruleID,
		Action:             action,
		ProposalHash:       contentHash,
		Agent:              p.OwnerAgent,
		GatekeeperDecision: decision.Decision,
		Timestamp:          time.Now().UTC(),
	})
	if auditErr != nil {
		zap.L().Warn("audit append failed after successful rule write",
			zap.String("rule_id", ruleID),
			zap.Error(auditErr),
		)
	}

	zap.L().Info("rule written",
		zap.String("rule_id", ruleID),
		zap.String("leaf_id", p.LeafID),
		zap.String("tipo_regra", string(p.TipoRegra)),
		zap.Int("version", version),
		zap.String("action", string(action)),
	)

	return &model.WriteResult{
		Success:        true,
		RuleIDs:        []string{ruleID},
		IdempotencyKey: key,
	}
}
