// Package checklist defines the fixed universe of rule-mapping items
// required to cover a taxonomy leaf: one intrastate rule per Brazilian
// state, one interstate rule per standard route, and the two federal
// tax-regime rules. The backlog generator and the completeness checker
// both consume these tables; they are never duplicated elsewhere.
package checklist

import "github.com/mapalei/fiscal-cli/internal/model"

// UFs lists the 27 state codes in fixed order. The order and spelling
// must match the stored tasks exactly.
var UFs = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO",
	"MA", "MT", "MS", "MG", "PA", "PB", "PR", "PE", "PI",
	"RJ", "RN", "RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// ValidUF reports whether uf is one of the 27 state codes.
func ValidUF(uf string) bool {
	for _, known := range UFs {
		if uf == known {
			return true
		}
	}
	return false
}

// Route is one directional interstate origin→destination pair.
type Route struct {
	Origem  string
	Destino string
}

// Routes lists the 12 standard interstate routes. Routes are
// one-directional: SP→RJ does not cover RJ→SP.
var Routes = []Route{
	{"SP", "RJ"}, {"SP", "MG"}, {"SP", "PR"}, {"SP", "SC"},
	{"RJ", "MG"}, {"MG", "BA"}, {"BA", "SE"}, {"RS", "SC"},
	{"SC", "PR"}, {"GO", "DF"}, {"AM", "PA"}, {"PE", "PB"},
}

// Item is one required rule slot in a leaf's checklist.
type Item struct {
	TipoRegra model.TipoRegra `json:"tipo_regra"`
	UFOrigem  string          `json:"uf_origem,omitempty"`
	UFDestino string          `json:"uf_destino,omitempty"`
}

// Matches reports whether a task with the given rule fields covers this
// item. UF_INTER requires both origin and destination to match.
func (it Item) Matches(tipo model.TipoRegra, ufOrigem, ufDestino string) bool {
	if tipo != it.TipoRegra {
		return false
	}
	switch it.TipoRegra {
	case model.TipoUFIntra:
		return ufOrigem == it.UFOrigem
	case model.TipoUFInter:
		return ufOrigem == it.UFOrigem && ufDestino == it.UFDestino
	default:
		return true
	}
}

// Size is the total number of checklist items per leaf.
const Size = 41

// AllItems returns the full ordered checklist universe: 27 UF_INTRA,
// 12 UF_INTER, then PISCOFINS and IBSCBSIS. Identical across calls and
// identical for every leaf.
func AllItems() []Item {
	items := make([]Item, 0, Size)
	for _, uf := range UFs {
		items = append(items, Item{TipoRegra: model.TipoUFIntra, UFOrigem: uf})
	}
	for _, r := range Routes {
		items = append(items, Item{TipoRegra: model.TipoUFInter, UFOrigem: r.Origem, UFDestino: r.Destino})
	}
	items = append(items,
		Item{TipoRegra: model.TipoPisCofins},
		Item{TipoRegra: model.TipoIBSCBSIS},
	)
	return items
}
