// Package coverage computes how much of a leaf's fixed rule checklist
// its finished tasks actually cover.
package coverage

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/mapalei/fiscal-cli/internal/checklist"
	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/store"
)

// Report is the coverage snapshot for one leaf. Missing preserves
// checklist order so the gap list is stable between runs.
type Report struct {
	LeafID      string           `json:"leaf_id"`
	LeafName    string           `json:"leaf_name"`
	CoveragePct int              `json:"coverage_pct"`
	TasksTotal  int              `json:"tasks_total"`
	TasksDone   int              `json:"tasks_done"`
	Missing     []checklist.Item `json:"missing"`
	Complete    bool             `json:"complete"`
}

// Checker derives coverage from done tasks, never from task counts
// alone: a done task only counts if it matches a checklist item.
type Checker struct {
	store store.Store
}

func NewChecker(s store.Store) *Checker {
	return &Checker{store: s}
}

// Check computes the coverage report for a leaf.
func (c *Checker) Check(ctx context.Context, leafID string) (*Report, error) {
	leaf, err := c.store.GetLeaf(ctx, leafID)
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: load leaf %s", leafID)
	}
	if leaf == nil {
		return nil, eris.Errorf("coverage: leaf not found: %s", leafID)
	}

	done, err := c.store.ListTasks(ctx, store.TaskFilter{
		LeafID: leafID,
		Status: model.TaskStatusDone,
		Limit:  10 * checklist.Size,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "coverage: list done tasks for leaf %s", leafID)
	}

	return buildReport(*leaf, done), nil
}

func buildReport(leaf model.Leaf, done []model.Task) *Report {
	var missing []checklist.Item
	covered := 0
	for _, item := range checklist.AllItems() {
		if anyTaskMatches(item, done) {
			covered++
		} else {
			missing = append(missing, item)
		}
	}

	pct := int(math.Round(100 * float64(covered) / float64(checklist.Size)))
	return &Report{
		LeafID:      leaf.ID,
		LeafName:    leaf.Name,
		CoveragePct: pct,
		TasksTotal:  leaf.TasksTotal,
		TasksDone:   len(done),
		Missing:     missing,
		Complete:    len(missing) == 0,
	}
}

func anyTaskMatches(item checklist.Item, tasks []model.Task) bool {
	for _, t := range tasks {
		if item.Matches(t.TipoRegra, t.UFOrigem, t.UFDestino) {
			return true
		}
	}
	return false
}

// StatusFor maps a report onto the leaf lifecycle. An activated leaf
// stays in_progress even with zero done tasks; only a leaf with no
// backlog at all is incomplete.
func StatusFor(r *Report) model.LeafStatus {
	switch {
	case r.Complete:
		return model.LeafStatusComplete
	case r.TasksTotal > 0 || r.TasksDone > 0:
		return model.LeafStatusInProgress
	default:
		return model.LeafStatusIncomplete
	}
}
