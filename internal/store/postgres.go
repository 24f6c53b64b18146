package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/mapalei/fiscal-cli/internal/db"
	"github.com/mapalei/fiscal-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlGetRuleByKey = `SELECT id, idempotency_key, leaf_id, tipo_regra, uf_origem, uf_destino, vigencia_inicio, content, status, version, proposal_hash, created_by, created_at, updated_at
	 FROM rules WHERE idempotency_key = $1`

	sqlUpsertRule = `INSERT INTO rules (id, idempotency_key, leaf_id, tipo_regra, uf_origem, uf_destino, vigencia_inicio, content, status, version, proposal_hash, created_by, created_at, updated_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10, $11, $12, $12)
	 ON CONFLICT (idempotency_key) DO UPDATE SET
	   content = EXCLUDED.content,
	   proposal_hash = EXCLUDED.proposal_hash,
	   version = rules.version + 1,
	   updated_at = EXCLUDED.updated_at
	 RETURNING id, version`

	sqlAppendAudit = `INSERT INTO audit_log (rule_id, action, proposal_hash, agent, gatekeeper_decision, ts, created_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// preparedStatements lists the hot pipeline queries to prepare on each
// new connection.
var preparedStatements = map[string]string{
	"get_rule_by_key": sqlGetRuleByKey,
	"upsert_rule":     sqlUpsertRule,
	"append_audit":    sqlAppendAudit,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leaves (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	category_path TEXT NOT NULL UNIQUE,
	ncm           TEXT,
	status        TEXT NOT NULL DEFAULT 'incomplete',
	coverage_pct  INTEGER NOT NULL DEFAULT 0,
	tasks_total   INTEGER NOT NULL DEFAULT 0,
	tasks_done    INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tasks (
	id            BIGSERIAL PRIMARY KEY,
	leaf_id       TEXT NOT NULL REFERENCES leaves(id),
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'todo',
	priority      TEXT NOT NULL DEFAULT 'P2',
	tipo_regra    TEXT NOT NULL,
	uf_origem     TEXT,
	uf_destino    TEXT,
	owner_agent   TEXT,
	attempt       INTEGER NOT NULL DEFAULT 0,
	evidence_refs JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tasks_leaf_id ON tasks(leaf_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_leaf_status ON tasks(leaf_id, status);

CREATE TABLE IF NOT EXISTS rules (
	id              TEXT PRIMARY KEY,
	idempotency_key TEXT NOT NULL UNIQUE,
	leaf_id         TEXT NOT NULL,
	tipo_regra      TEXT NOT NULL,
	uf_origem       TEXT,
	uf_destino      TEXT,
	vigencia_inicio TEXT NOT NULL,
	content         JSONB NOT NULL,
	status          TEXT NOT NULL DEFAULT 'draft',
	version         INTEGER NOT NULL DEFAULT 1,
	proposal_hash   TEXT NOT NULL,
	created_by      TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rules_leaf_id ON rules(leaf_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id                  BIGSERIAL PRIMARY KEY,
	rule_id             TEXT NOT NULL,
	action              TEXT NOT NULL,
	proposal_hash       TEXT NOT NULL,
	agent               TEXT NOT NULL,
	gatekeeper_decision TEXT NOT NULL,
	ts                  TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_audit_log_rule_id ON audit_log(rule_id);

CREATE TABLE IF NOT EXISTS legislative_evidence (
	id               TEXT PRIMARY KEY,
	url              TEXT NOT NULL,
	title            TEXT NOT NULL,
	hash_sha256      TEXT NOT NULL,
	hash_changed     BOOLEAN NOT NULL DEFAULT false,
	content_snapshot TEXT,
	task_id          BIGINT,
	agent            TEXT,
	uf               TEXT,
	captured_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_checked_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (url, hash_sha256)
);

CREATE INDEX IF NOT EXISTS idx_evidence_last_checked ON legislative_evidence(last_checked_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Leaves

func (s *PostgresStore) CreateLeaf(ctx context.Context, leaf model.Leaf) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO leaves (id, name, category_path, ncm, status, coverage_pct, tasks_total, tasks_done, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		leaf.ID, leaf.Name, leaf.CategoryPath, nullable(leaf.NCM), string(leaf.Status),
		leaf.CoveragePct, leaf.TasksTotal, leaf.TasksDone, leaf.CreatedAt, leaf.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert leaf")
}

func (s *PostgresStore) GetLeaf(ctx context.Context, id string) (*model.Leaf, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, category_path, ncm, status, coverage_pct, tasks_total, tasks_done, created_at, updated_at
		 FROM leaves WHERE id = $1`,
		id,
	)
	leaf, err := scanLeaf(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get leaf %s", id)
	}
	return leaf, nil
}

func (s *PostgresStore) GetLeafByPath(ctx context.Context, categoryPath string) (*model.Leaf, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, category_path, ncm, status, coverage_pct, tasks_total, tasks_done, created_at, updated_at
		 FROM leaves WHERE category_path = $1`,
		categoryPath,
	)
	leaf, err := scanLeaf(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get leaf by path")
	}
	return leaf, nil
}

func (s *PostgresStore) ListLeaves(ctx context.Context) ([]model.Leaf, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, category_path, ncm, status, coverage_pct, tasks_total, tasks_done, created_at, updated_at
		 FROM leaves ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leaves")
	}
	defer rows.Close()

	var leaves []model.Leaf
	for rows.Next() {
		leaf, err := scanLeaf(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan leaf")
		}
		leaves = append(leaves, *leaf)
	}
	return leaves, eris.Wrap(rows.Err(), "postgres: list leaves iterate")
}

func (s *PostgresStore) UpdateLeafActivation(ctx context.Context, id string, tasksTotal int, status model.LeafStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leaves SET tasks_total = $1, status = $2, updated_at = $3 WHERE id = $4`,
		tasksTotal, string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update leaf activation %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("leaf not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateLeafCoverage(ctx context.Context, id string, coveragePct, tasksDone int, status model.LeafStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leaves SET coverage_pct = $1, tasks_done = $2, status = $3, updated_at = $4 WHERE id = $5`,
		coveragePct, tasksDone, string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update leaf coverage %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("leaf not found: %s", id)
	}
	return nil
}

// Tasks

// BulkInsertTasks inserts all tasks inside one transaction so a leaf's
// backlog is created all-or-nothing.
func (s *PostgresStore) BulkInsertTasks(ctx context.Context, tasks []model.Task) ([]int64, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin bulk task insert")
	}
	defer tx.Rollback(ctx)

	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		refs, err := json.Marshal(refsOrEmpty(t.EvidenceRefs))
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal evidence refs")
		}
		var id int64
		err = tx.QueryRow(ctx,
			`INSERT INTO tasks (leaf_id, title, description, status, priority, tipo_regra, uf_origem, uf_destino, owner_agent, attempt, evidence_refs, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 RETURNING id`,
			t.LeafID, t.Title, t.Description, string(t.Status), string(t.Priority), string(t.TipoRegra),
			nullable(t.UFOrigem), nullable(t.UFDestino), nullable(t.OwnerAgent), t.Attempt, refs,
			t.CreatedAt, t.UpdatedAt,
		).Scan(&id)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert task for leaf %s", t.LeafID)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit bulk task insert")
	}
	return ids, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t model.Task) (int64, error) {
	refs, err := json.Marshal(refsOrEmpty(t.EvidenceRefs))
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal evidence refs")
	}
	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO tasks (leaf_id, title, description, status, priority, tipo_regra, uf_origem, uf_destino, owner_agent, attempt, evidence_refs, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		t.LeafID, t.Title, t.Description, string(t.Status), string(t.Priority), string(t.TipoRegra),
		nullable(t.UFOrigem), nullable(t.UFDestino), nullable(t.OwnerAgent), t.Attempt, refs,
		t.CreatedAt, t.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert task for leaf %s", t.LeafID)
	}
	return id, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT id, leaf_id, title, description, status, priority, tipo_regra, uf_origem, uf_destino, owner_agent, attempt, evidence_refs, created_at, updated_at
	 FROM tasks WHERE true`
	args := []any{}
	argIdx := 1

	if filter.LeafID != "" {
		query += fmt.Sprintf(` AND leaf_id = $%d`, argIdx)
		args = append(args, filter.LeafID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan task")
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "postgres: list tasks iterate")
}

func (s *PostgresStore) CountTasksForLeaf(ctx context.Context, leafID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE leaf_id = $1`, leafID).Scan(&count)
	return count, eris.Wrapf(err, "postgres: count tasks for leaf %s", leafID)
}

func (s *PostgresStore) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, leaf_id, title, description, status, priority, tipo_regra, uf_origem, uf_destino, owner_agent, attempt, evidence_refs, created_at, updated_at
		 FROM tasks WHERE id = $1`,
		id,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get task %d", id)
	}
	return t, nil
}

func (s *PostgresStore) PatchTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	sets := []string{}
	args := []any{}
	argIdx := 1

	if patch.Status != nil {
		sets = append(sets, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*patch.Status))
		argIdx++
	}
	if patch.OwnerAgent != nil {
		sets = append(sets, fmt.Sprintf("owner_agent = $%d", argIdx))
		args = append(args, *patch.OwnerAgent)
		argIdx++
	}
	if patch.Attempt != nil {
		sets = append(sets, fmt.Sprintf("attempt = $%d", argIdx))
		args = append(args, *patch.Attempt)
		argIdx++
	}
	if patch.EvidenceRefs != nil {
		refs, err := json.Marshal(patch.EvidenceRefs)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal evidence refs")
		}
		sets = append(sets, fmt.Sprintf("evidence_refs = $%d", argIdx))
		args = append(args, refs)
		argIdx++
	}
	if len(sets) == 0 {
		return s.GetTask(ctx, id)
	}

	sets = append(sets, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, time.Now().UTC())
	argIdx++
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE tasks SET %s WHERE id = $%d
		 RETURNING id, leaf_id, title, description, status, priority, tipo_regra, uf_origem, uf_destino, owner_agent, attempt, evidence_refs, created_at, updated_at`,
		strings.Join(sets, ", "), argIdx,
	)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("task not found: %d", id)
		}
		return nil, eris.Wrapf(err, "postgres: patch task %d", id)
	}
	return t, nil
}

// Rules

// UpsertRule relies on the unique constraint on idempotency_key: an
// insert for an existing key becomes an in-place update that bumps the
// version. This is the cross-request correctness backstop; callers do
// not need a prior existence check.
func (s *PostgresStore) UpsertRule(ctx context.Context, rule model.Rule) (string, int, error) {
	contentJSON, err := json.Marshal(rule.Content)
	if err != nil {
		return "", 0, eris.Wrap(err, "postgres: marshal rule content")
	}

	var (
		id      string
		version int
	)
	err = s.pool.QueryRow(ctx, sqlUpsertRule,
		rule.ID, rule.IdempotencyKey, rule.LeafID, string(rule.TipoRegra),
		nullable(rule.UFOrigem), nullable(rule.UFDestino), rule.VigenciaInicio,
		contentJSON, string(rule.Status), rule.ProposalHash, rule.CreatedBy, time.Now().UTC(),
	).Scan(&id, &version)
	if err != nil {
		return "", 0, eris.Wrap(err, "postgres: upsert rule")
	}
	return id, version, nil
}

func (s *PostgresStore) GetRuleByKey(ctx context.Context, idempotencyKey string) (*model.Rule, error) {
	var (
		r           model.Rule
		ufOrigem    *string
		ufDestino   *string
		contentJSON []byte
	)
	err := s.pool.QueryRow(ctx, sqlGetRuleByKey, idempotencyKey).Scan(
		&r.ID, &r.IdempotencyKey, &r.LeafID, &r.TipoRegra, &ufOrigem, &ufDestino,
		&r.VigenciaInicio, &contentJSON, &r.Status, &r.Version, &r.ProposalHash,
		&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get rule by key")
	}
	if ufOrigem != nil {
		r.UFOrigem = *ufOrigem
	}
	if ufDestino != nil {
		r.UFDestino = *ufDestino
	}
	if err := json.Unmarshal(contentJSON, &r.Content); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal rule content")
	}
	return &r, nil
}

// Audit

func (s *PostgresStore) AppendAudit(ctx context.Context, ev model.AuditEvent) error {
	_, err := s.pool.Exec(ctx, sqlAppendAudit,
		ev.RuleID, string(ev.Action), ev.ProposalHash, ev.Agent,
		string(ev.GatekeeperDecision), ev.Timestamp, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: append audit event")
}

// Legislative evidence

func (s *PostgresStore) UpsertEvidence(ctx context.Context, ev model.Evidence) (*model.Evidence, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO legislative_evidence (id, url, title, hash_sha256, hash_changed, content_snapshot, task_id, agent, uf, captured_at, last_checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 ON CONFLICT (url, hash_sha256) DO UPDATE SET
		   last_checked_at = EXCLUDED.last_checked_at,
		   title = EXCLUDED.title
		 RETURNING id`,
		ev.ID, ev.URL, ev.Title, ev.HashSHA256, ev.HashChanged, nullable(ev.ContentSnapshot),
		nullableInt64(ev.TaskID), nullable(ev.Agent), nullable(ev.UF), time.Now().UTC(),
	).Scan(&ev.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert evidence")
	}
	return &ev, nil
}

func (s *PostgresStore) GetEvidence(ctx context.Context, id string) (*model.Evidence, error) {
	var (
		ev       model.Evidence
		snapshot *string
		taskID   *int64
		agent    *string
		uf       *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, title, hash_sha256, hash_changed, content_snapshot, task_id, agent, uf, captured_at, last_checked_at
		 FROM legislative_evidence WHERE id = $1`,
		id,
	).Scan(&ev.ID, &ev.URL, &ev.Title, &ev.HashSHA256, &ev.HashChanged, &snapshot, &taskID, &agent, &uf, &ev.CapturedAt, &ev.LastCheckedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get evidence %s", id)
	}
	if snapshot != nil {
		ev.ContentSnapshot = *snapshot
	}
	if taskID != nil {
		ev.TaskID = *taskID
	}
	if agent != nil {
		ev.Agent = *agent
	}
	if uf != nil {
		ev.UF = *uf
	}
	return &ev, nil
}

func (s *PostgresStore) ListEvidenceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM legislative_evidence ORDER BY last_checked_at ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list evidence ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evidence id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: list evidence ids iterate")
}

func (s *PostgresStore) UpdateEvidenceCheck(ctx context.Context, id, newHash string, changed bool, snapshot string, checkedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE legislative_evidence
		 SET hash_sha256 = $1, hash_changed = $2, content_snapshot = COALESCE(NULLIF($3, ''), content_snapshot), last_checked_at = $4
		 WHERE id = $5`,
		newHash, changed, snapshot, checkedAt, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update evidence check %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("evidence not found: %s", id)
	}
	return nil
}

// Dashboard

func (s *PostgresStore) DashboardMetrics(ctx context.Context) (*Metrics, error) {
	m := &Metrics{TasksByStatus: make(map[model.TaskStatus]int)}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'complete'),
		        COALESCE(ROUND(AVG(coverage_pct)), 0)
		 FROM leaves`,
	).Scan(&m.LeavesTotal, &m.LeavesComplete, &m.AvgCoveragePct)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: leaf metrics")
	}

	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: task metrics")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan task metric")
		}
		m.TasksByStatus[model.TaskStatus(status)] = count
	}
	return m, eris.Wrap(rows.Err(), "postgres: task metrics iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanLeaf(row scannable) (*model.Leaf, error) {
	var (
		leaf model.Leaf
		ncm  *string
	)
	err := row.Scan(&leaf.ID, &leaf.Name, &leaf.CategoryPath, &ncm, &leaf.Status,
		&leaf.CoveragePct, &leaf.TasksTotal, &leaf.TasksDone, &leaf.CreatedAt, &leaf.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ncm != nil {
		leaf.NCM = *ncm
	}
	return &leaf, nil
}

func scanTask(row scannable) (*model.Task, error) {
	var (
		t          model.Task
		ufOrigem   *string
		ufDestino  *string
		ownerAgent *string
		refsJSON   []byte
	)
	err := row.Scan(&t.ID, &t.LeafID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.TipoRegra, &ufOrigem, &ufDestino, &ownerAgent, &t.Attempt, &refsJSON,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if ufOrigem != nil {
		t.UFOrigem = *ufOrigem
	}
	if ufDestino != nil {
		t.UFDestino = *ufDestino
	}
	if ownerAgent != nil {
		t.OwnerAgent = *ownerAgent
	}
	if len(refsJSON) > 0 {
		if err := json.Unmarshal(refsJSON, &t.EvidenceRefs); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt64(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

func refsOrEmpty(refs []string) []string {
	if refs == nil {
		return []string{}
	}
	return refs
}
