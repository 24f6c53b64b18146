// Package taxonomy reads candidate leaves from the mercadological
// taxonomy database. Access is strictly read-only: activation state
// lives in this system's own store, never in the catalog.
package taxonomy

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mapalei/fiscal-cli/internal/db"
)

// Candidate is a level-6 taxonomy leaf eligible for activation.
type Candidate struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CategoryPath string `json:"category_path"`
	NCM          string `json:"ncm,omitempty"`
}

// Source queries the taxonomy database.
type Source struct {
	pool db.Pool
}

func NewSource(pool db.Pool) *Source {
	return &Source{pool: pool}
}

const leavesQuery = `SELECT c.id, c.name, c.path, COALESCE(p.ncm, '')
 FROM categories c
 LEFT JOIN LATERAL (
   SELECT ncm FROM products
   WHERE category_id = c.id AND ncm IS NOT NULL
   ORDER BY updated_at DESC
   LIMIT 1
 ) p ON true
 WHERE c.level = 6 AND c.active
 ORDER BY c.path
 LIMIT $1`

// Leaves returns up to limit active level-6 leaves, each with the most
// recently updated product NCM in that category when one exists.
func (s *Source) Leaves(ctx context.Context, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, leavesQuery, limit)
	if err != nil {
		return nil, eris.Wrap(err, "taxonomy: query leaves")
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.CategoryPath, &c.NCM); err != nil {
			return nil, eris.Wrap(err, "taxonomy: scan leaf")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "taxonomy: iterate leaves")
}
