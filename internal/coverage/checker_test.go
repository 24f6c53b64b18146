package coverage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapalei/fiscal-cli/internal/checklist"
	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/store"
)

func leafWithBacklog() model.Leaf {
	return model.Leaf{ID: "leaf-1", Name: "Smartphones", TasksTotal: checklist.Size}
}

func doneTask(tipo model.TipoRegra, origem, destino string) model.Task {
	return model.Task{
		LeafID:    "leaf-1",
		Status:    model.TaskStatusDone,
		TipoRegra: tipo,
		UFOrigem:  origem,
		UFDestino: destino,
	}
}

func TestReportEmptyBacklog(t *testing.T) {
	r := buildReport(model.Leaf{ID: "leaf-1", Name: "Smartphones"}, nil)

	assert.Equal(t, 0, r.CoveragePct)
	assert.False(t, r.Complete)
	assert.Len(t, r.Missing, checklist.Size)
	assert.Equal(t, model.LeafStatusIncomplete, StatusFor(r))
}

func TestReportPartialCoverage(t *testing.T) {
	done := []model.Task{
		doneTask(model.TipoUFIntra, "SP", ""),
		doneTask(model.TipoUFInter, "SP", "RJ"),
		doneTask(model.TipoPisCofins, "", ""),
	}
	r := buildReport(leafWithBacklog(), done)

	// round(100 * 3/41) = round(7.317) = 7
	assert.Equal(t, 7, r.CoveragePct)
	assert.Equal(t, 3, r.TasksDone)
	assert.Len(t, r.Missing, 38)
	assert.False(t, r.Complete)
	assert.Equal(t, model.LeafStatusInProgress, StatusFor(r))
}

func TestReportAllIntraStillMissingRoutesAndFederal(t *testing.T) {
	var done []model.Task
	for _, item := range checklist.AllItems() {
		if item.TipoRegra == model.TipoUFIntra {
			done = append(done, doneTask(item.TipoRegra, item.UFOrigem, ""))
		}
	}
	r := buildReport(leafWithBacklog(), done)

	// round(100 * 27/41) = round(65.85) = 66
	assert.Equal(t, 66, r.CoveragePct)
	assert.False(t, r.Complete)
	assert.Len(t, r.Missing, 14)
	inter, federal := 0, 0
	for _, item := range r.Missing {
		switch item.TipoRegra {
		case model.TipoUFInter:
			inter++
		case model.TipoPisCofins, model.TipoIBSCBSIS:
			federal++
		}
	}
	assert.Equal(t, 12, inter)
	assert.Equal(t, 2, federal)
}

func TestCheckDegradedStoreReportsColdBaseline(t *testing.T) {
	r, err := NewChecker(store.NewNoop()).Check(context.Background(), "leaf-any")

	require.NoError(t, err)
	assert.Equal(t, 0, r.CoveragePct)
	assert.Equal(t, 0, r.TasksDone)
	assert.Len(t, r.Missing, checklist.Size)
	assert.False(t, r.Complete)
}

func TestReportFullCoverage(t *testing.T) {
	var done []model.Task
	for _, item := range checklist.AllItems() {
		done = append(done, doneTask(item.TipoRegra, item.UFOrigem, item.UFDestino))
	}
	r := buildReport(leafWithBacklog(), done)

	assert.Equal(t, 100, r.CoveragePct)
	assert.True(t, r.Complete)
	assert.Empty(t, r.Missing)
	assert.Equal(t, model.LeafStatusComplete, StatusFor(r))
}

func TestReportIgnoresDuplicateDoneTasks(t *testing.T) {
	// A regenerated backlog can leave two done tasks for the same item;
	// coverage still counts the item once.
	done := []model.Task{
		doneTask(model.TipoUFIntra, "SP", ""),
		doneTask(model.TipoUFIntra, "SP", ""),
	}
	r := buildReport(leafWithBacklog(), done)

	// round(100 * 1/41) = 2
	assert.Equal(t, 2, r.CoveragePct)
	assert.Len(t, r.Missing, 40)
}

func TestReportDirectionalRoutes(t *testing.T) {
	// RJ→SP is not on the route list, so it covers nothing.
	done := []model.Task{doneTask(model.TipoUFInter, "RJ", "SP")}
	r := buildReport(leafWithBacklog(), done)

	assert.Equal(t, 0, r.CoveragePct)
	assert.Len(t, r.Missing, checklist.Size)
}

func TestReportMissingPreservesChecklistOrder(t *testing.T) {
	done := []model.Task{doneTask(model.TipoUFIntra, "AC", "")}
	r := buildReport(leafWithBacklog(), done)

	// AC is the first checklist item; AL becomes the first gap.
	assert.Equal(t, "AL", r.Missing[0].UFOrigem)
	assert.Equal(t, model.TipoIBSCBSIS, r.Missing[len(r.Missing)-1].TipoRegra)
}

func TestActivatedLeafWithNoDoneTasksStaysInProgress(t *testing.T) {
	r := buildReport(leafWithBacklog(), nil)
	assert.Equal(t, model.LeafStatusInProgress, StatusFor(r))
}
