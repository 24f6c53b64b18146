// Package qa runs the automated structural checks a proposal must pass
// before the semantic gatekeeper sees it. The checker is pure: no store,
// no clock injection beyond time.Now, so the pipeline can run it in
// degraded mode too.
package qa

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/mapalei/fiscal-cli/internal/checklist"
	"github.com/mapalei/fiscal-cli/internal/model"
)

// MinConfidence is the floor below which a proposal fails QA outright.
const MinConfidence = 0.6

// maxVigenciaAge bounds how far in the past a rule's effective date may
// lie. Older legislation needs a fresh research pass, not a blind copy.
const maxVigenciaAge = 2 * 365 * 24 * time.Hour

const checkCount = 6

// vigenciaShape is the date form proposals must carry; whether the
// digits make a real calendar date is vigencia_valid's job.
var vigenciaShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Check runs every QA check in order. A schema failure short-circuits:
// the remaining checks are meaningless on a malformed proposal, so the
// result carries only the schema check and a zero score.
func Check(p model.Proposal) model.QAResult {
	schema := checkSchema(p)
	if !schema.Pass {
		return model.QAResult{Pass: false, Score: 0, Checks: []model.QACheck{schema}}
	}

	checks := []model.QACheck{
		schema,
		checkConfidence(p),
		checkSources(p),
		checkTipoRegraFields(p),
		checkVigencia(p, time.Now().UTC()),
		checkOwnerAgent(p),
	}

	passed := 0
	for _, c := range checks {
		if c.Pass {
			passed++
		}
	}
	return model.QAResult{
		Pass:   passed == len(checks),
		Score:  int(math.Round(100 * float64(passed) / checkCount)),
		Checks: checks,
	}
}

func checkSchema(p model.Proposal) model.QACheck {
	var problems []string
	if p.TaskID <= 0 {
		problems = append(problems, "task_id ausente")
	}
	if p.LeafID == "" {
		problems = append(problems, "leaf_id ausente")
	}
	if !model.ValidTipoRegra(p.TipoRegra) {
		problems = append(problems, fmt.Sprintf("tipo_regra inválido: %q", p.TipoRegra))
	}
	if !vigenciaShape.MatchString(p.VigenciaInicio) {
		problems = append(problems, fmt.Sprintf("vigencia_inicio fora do formato AAAA-MM-DD: %q", p.VigenciaInicio))
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		problems = append(problems, fmt.Sprintf("confidence %.2f fora de [0, 1]", p.Confidence))
	}
	if len(p.Sources) == 0 {
		problems = append(problems, "nenhuma fonte informada")
	}
	if len(problems) > 0 {
		return model.QACheck{Name: "schema_valid", Pass: false, Message: strings.Join(problems, "; ")}
	}
	return model.QACheck{Name: "schema_valid", Pass: true}
}

func checkConfidence(p model.Proposal) model.QACheck {
	if p.Confidence < MinConfidence {
		return model.QACheck{
			Name:    "confidence_sufficient",
			Pass:    false,
			Message: fmt.Sprintf("confidence %.2f abaixo do mínimo %.2f", p.Confidence, MinConfidence),
		}
	}
	return model.QACheck{Name: "confidence_sufficient", Pass: true}
}

func checkSources(p model.Proposal) model.QACheck {
	if len(p.Sources) == 0 {
		return model.QACheck{Name: "has_valid_source", Pass: false, Message: "nenhuma fonte informada"}
	}
	for i, s := range p.Sources {
		if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
			return model.QACheck{
				Name:    "has_valid_source",
				Pass:    false,
				Message: fmt.Sprintf("fonte %d com url inválida: %q", i, s.URL),
			}
		}
		if s.Title == "" {
			return model.QACheck{
				Name:    "has_valid_source",
				Pass:    false,
				Message: fmt.Sprintf("fonte %d sem título", i),
			}
		}
	}
	return model.QACheck{Name: "has_valid_source", Pass: true}
}

func checkTipoRegraFields(p model.Proposal) model.QACheck {
	fail := func(msg string) model.QACheck {
		return model.QACheck{Name: "tipo_regra_fields", Pass: false, Message: msg}
	}
	switch p.TipoRegra {
	case model.TipoUFIntra:
		if !checklist.ValidUF(p.UFOrigem) {
			return fail(fmt.Sprintf("UF_INTRA exige uf_origem válida, recebeu %q", p.UFOrigem))
		}
		if p.UFDestino != "" {
			return fail("UF_INTRA não aceita uf_destino")
		}
	case model.TipoUFInter:
		if !checklist.ValidUF(p.UFOrigem) || !checklist.ValidUF(p.UFDestino) {
			return fail(fmt.Sprintf("UF_INTER exige rota válida, recebeu %q→%q", p.UFOrigem, p.UFDestino))
		}
		if p.UFOrigem == p.UFDestino {
			return fail("UF_INTER exige origem e destino distintos")
		}
	default:
		// Federal regimes apply nationwide; a UF sent along is ignored,
		// not an error, so existing workers keep interoperating.
	}
	return model.QACheck{Name: "tipo_regra_fields", Pass: true}
}

func checkVigencia(p model.Proposal, now time.Time) model.QACheck {
	vigencia, err := time.Parse("2006-01-02", p.VigenciaInicio)
	if err != nil {
		return model.QACheck{
			Name:    "vigencia_valid",
			Pass:    false,
			Message: fmt.Sprintf("vigencia_inicio inválida: %q", p.VigenciaInicio),
		}
	}
	if now.Sub(vigencia) > maxVigenciaAge {
		return model.QACheck{
			Name:    "vigencia_valid",
			Pass:    false,
			Message: fmt.Sprintf("vigencia_inicio %s há mais de 2 anos", p.VigenciaInicio),
		}
	}
	return model.QACheck{Name: "vigencia_valid", Pass: true}
}

func checkOwnerAgent(p model.Proposal) model.QACheck {
	if p.OwnerAgent == "" {
		return model.QACheck{Name: "owner_agent_set", Pass: false, Message: "owner_agent ausente"}
	}
	return model.QACheck{Name: "owner_agent_set", Pass: true}
}
