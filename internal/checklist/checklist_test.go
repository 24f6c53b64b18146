package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mapalei/fiscal-cli/internal/model"
)

func TestAllItems_Size(t *testing.T) {
	items := AllItems()
	assert.Len(t, items, Size)
	assert.Len(t, items, 41)
}

func TestAllItems_Composition(t *testing.T) {
	counts := map[model.TipoRegra]int{}
	for _, it := range AllItems() {
		counts[it.TipoRegra]++
	}
	assert.Equal(t, 27, counts[model.TipoUFIntra])
	assert.Equal(t, 12, counts[model.TipoUFInter])
	assert.Equal(t, 1, counts[model.TipoPisCofins])
	assert.Equal(t, 1, counts[model.TipoIBSCBSIS])
}

func TestAllItems_Deterministic(t *testing.T) {
	assert.Equal(t, AllItems(), AllItems())
}

func TestAllItems_Order(t *testing.T) {
	items := AllItems()
	// Intrastate first in UF order, then routes, federal rules last.
	assert.Equal(t, Item{TipoRegra: model.TipoUFIntra, UFOrigem: "AC"}, items[0])
	assert.Equal(t, Item{TipoRegra: model.TipoUFIntra, UFOrigem: "TO"}, items[26])
	assert.Equal(t, Item{TipoRegra: model.TipoUFInter, UFOrigem: "SP", UFDestino: "RJ"}, items[27])
	assert.Equal(t, Item{TipoRegra: model.TipoPisCofins}, items[39])
	assert.Equal(t, Item{TipoRegra: model.TipoIBSCBSIS}, items[40])
}

func TestItemMatches_IntraRequiresSameUF(t *testing.T) {
	it := Item{TipoRegra: model.TipoUFIntra, UFOrigem: "SP"}
	assert.True(t, it.Matches(model.TipoUFIntra, "SP", ""))
	assert.False(t, it.Matches(model.TipoUFIntra, "RJ", ""))
	assert.False(t, it.Matches(model.TipoUFInter, "SP", ""))
}

func TestItemMatches_InterIsDirectional(t *testing.T) {
	it := Item{TipoRegra: model.TipoUFInter, UFOrigem: "SP", UFDestino: "RJ"}
	assert.True(t, it.Matches(model.TipoUFInter, "SP", "RJ"))
	// Reversed route does not cover the item.
	assert.False(t, it.Matches(model.TipoUFInter, "RJ", "SP"))
	assert.False(t, it.Matches(model.TipoUFInter, "SP", "MG"))
}

func TestItemMatches_FederalIgnoresUF(t *testing.T) {
	it := Item{TipoRegra: model.TipoPisCofins}
	assert.True(t, it.Matches(model.TipoPisCofins, "", ""))
	assert.True(t, it.Matches(model.TipoPisCofins, "SP", "RJ"))
	assert.False(t, it.Matches(model.TipoIBSCBSIS, "", ""))
}
