package backlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapalei/fiscal-cli/internal/checklist"
	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "fiscal.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func seedLeaf(t *testing.T, s store.Store) model.Leaf {
	t.Helper()
	now := time.Now().UTC()
	leaf := model.Leaf{
		ID:           "leaf-1",
		Name:         "Cerveja artesanal",
		CategoryPath: "bebidas/alcoolicas/cerveja-artesanal",
		NCM:          "2203.00.00",
		Status:       model.LeafStatusIncomplete,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateLeaf(context.Background(), leaf))
	return leaf
}

func TestGenerateCreatesFullChecklist(t *testing.T) {
	s := newTestStore(t)
	leaf := seedLeaf(t, s)

	ids, err := NewGenerator(s).Generate(context.Background(), leaf)
	require.NoError(t, err)
	// 27 intra + 12 inter + PIS/COFINS + IBS/CBS/IS
	assert.Len(t, ids, checklist.Size)

	tasks, err := s.ListTasks(context.Background(), store.TaskFilter{LeafID: leaf.ID, Limit: 100})
	require.NoError(t, err)
	require.Len(t, tasks, 41)

	byTipo := map[model.TipoRegra]int{}
	for _, task := range tasks {
		byTipo[task.TipoRegra]++
		assert.Equal(t, model.TaskStatusTodo, task.Status)
		assert.Equal(t, DefaultOwnerAgent, task.OwnerAgent)
		assert.Zero(t, task.Attempt)
	}
	assert.Equal(t, 27, byTipo[model.TipoUFIntra])
	assert.Equal(t, 12, byTipo[model.TipoUFInter])
	assert.Equal(t, 1, byTipo[model.TipoPisCofins])
	assert.Equal(t, 1, byTipo[model.TipoIBSCBSIS])
}

func TestGenerateTitlesAndPriorities(t *testing.T) {
	s := newTestStore(t)
	leaf := seedLeaf(t, s)

	_, err := NewGenerator(s).Generate(context.Background(), leaf)
	require.NoError(t, err)

	tasks, err := s.ListTasks(context.Background(), store.TaskFilter{LeafID: leaf.ID, Limit: 100})
	require.NoError(t, err)

	titles := map[string]model.Task{}
	for _, task := range tasks {
		titles[task.Title] = task
	}

	intra, ok := titles["[UF_INTRA] Cerveja artesanal — SP"]
	require.True(t, ok)
	assert.Equal(t, model.PriorityP2, intra.Priority)
	assert.Equal(t, "SP", intra.UFOrigem)
	assert.Empty(t, intra.UFDestino)

	inter, ok := titles["[UF_INTER] Cerveja artesanal — SP→RJ"]
	require.True(t, ok)
	assert.Equal(t, model.PriorityP2, inter.Priority)
	assert.Equal(t, "SP", inter.UFOrigem)
	assert.Equal(t, "RJ", inter.UFDestino)

	pis, ok := titles["[PISCOFINS] Cerveja artesanal"]
	require.True(t, ok)
	assert.Equal(t, model.PriorityP1, pis.Priority)
	assert.Empty(t, pis.UFOrigem)

	ibs, ok := titles["[IBSCBSIS] Cerveja artesanal"]
	require.True(t, ok)
	assert.Equal(t, model.PriorityP1, ibs.Priority)
}

func TestGenerateIsNotIdempotent(t *testing.T) {
	s := newTestStore(t)
	leaf := seedLeaf(t, s)
	gen := NewGenerator(s)
	ctx := context.Background()

	_, err := gen.Generate(ctx, leaf)
	require.NoError(t, err)
	_, err = gen.Generate(ctx, leaf)
	require.NoError(t, err)

	// Two unguarded runs double the backlog; the activation service is
	// responsible for refusing a second run.
	count, err := s.CountTasksForLeaf(ctx, leaf.ID)
	require.NoError(t, err)
	assert.Equal(t, 82, count)
}
