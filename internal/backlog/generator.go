// Package backlog expands an activated taxonomy leaf into its fixed
// research backlog: one task per checklist item, created atomically.
package backlog

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mapalei/fiscal-cli/internal/checklist"
	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/store"
)

// DefaultOwnerAgent receives every generated task.
const DefaultOwnerAgent = "worker-codex"

// Generator creates the per-leaf task backlog.
type Generator struct {
	store store.Store
}

func NewGenerator(s store.Store) *Generator {
	return &Generator{store: s}
}

// Generate inserts one task per checklist item for the leaf and returns
// the created task ids. It does not check whether the leaf already has
// tasks; callers gate activation. The insert is transactional, so a
// partial backlog never persists.
func (g *Generator) Generate(ctx context.Context, leaf model.Leaf) ([]int64, error) {
	now := time.Now().UTC()
	items := checklist.AllItems()

	tasks := make([]model.Task, 0, len(items))
	for _, item := range items {
		tasks = append(tasks, model.Task{
			LeafID:      leaf.ID,
			Title:       taskTitle(item, leaf.Name),
			Description: taskDescription(item, leaf),
			Status:      model.TaskStatusTodo,
			Priority:    taskPriority(item.TipoRegra),
			TipoRegra:   item.TipoRegra,
			UFOrigem:    item.UFOrigem,
			UFDestino:   item.UFDestino,
			OwnerAgent:  DefaultOwnerAgent,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	ids, err := g.store.BulkInsertTasks(ctx, tasks)
	if err != nil {
		return nil, eris.Wrapf(err, "backlog: generate tasks for leaf %s", leaf.ID)
	}

	zap.L().Info("backlog generated",
		zap.String("leaf_id", leaf.ID),
		zap.String("leaf_name", leaf.Name),
		zap.Int("tasks", len(ids)),
	)
	return ids, nil
}

func taskTitle(item checklist.Item, leafName string) string {
	switch item.TipoRegra {
	case model.TipoUFIntra:
		return fmt.Sprintf("[UF_INTRA] %s — %s", leafName, item.UFOrigem)
	case model.TipoUFInter:
		return fmt.Sprintf("[UF_INTER] %s — %s→%s", leafName, item.UFOrigem, item.UFDestino)
	default:
		return fmt.Sprintf("[%s] %s", item.TipoRegra, leafName)
	}
}

func taskDescription(item checklist.Item, leaf model.Leaf) string {
	ncm := leaf.NCM
	if ncm == "" {
		ncm = "NCM não informado"
	}
	switch item.TipoRegra {
	case model.TipoUFIntra:
		return fmt.Sprintf("Mapear regra ICMS intraestadual de %s (%s) em %s: alíquota, ST, benefícios fiscais vigentes.", leaf.Name, ncm, item.UFOrigem)
	case model.TipoUFInter:
		return fmt.Sprintf("Mapear regra ICMS interestadual de %s (%s) na rota %s→%s: alíquota interestadual, DIFAL, ST.", leaf.Name, ncm, item.UFOrigem, item.UFDestino)
	case model.TipoPisCofins:
		return fmt.Sprintf("Mapear regime PIS/COFINS de %s (%s): CST, alíquotas, monofásico ou não.", leaf.Name, ncm)
	default:
		return fmt.Sprintf("Mapear regra IBS/CBS/IS de %s (%s) conforme a reforma tributária.", leaf.Name, ncm)
	}
}

func taskPriority(tipo model.TipoRegra) model.Priority {
	if tipo == model.TipoPisCofins || tipo == model.TipoIBSCBSIS {
		return model.PriorityP1
	}
	return model.PriorityP2
}
