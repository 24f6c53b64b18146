package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/mapalei/fiscal-cli/internal/model"
)

// SQLiteStore implements Store on a local SQLite file. It mirrors the
// Postgres backend's semantics so the pipeline behaves the same
// regardless of which backend the config selects.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open database")
	}
	// SQLite allows a single writer; serialize everything through one
	// connection to avoid SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leaves (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	category_path TEXT NOT NULL UNIQUE,
	ncm           TEXT,
	status        TEXT NOT NULL DEFAULT 'incomplete',
	coverage_pct  INTEGER NOT NULL DEFAULT 0,
	tasks_total   INTEGER NOT NULL DEFAULT 0,
	tasks_done    INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
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
	evidence_refs TEXT NOT NULL DEFAULT '[]',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_leaf_id ON tasks(leaf_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

CREATE TABLE IF NOT EXISTS rules (
	id              TEXT PRIMARY KEY,
	idempotency_key TEXT NOT NULL UNIQUE,
	leaf_id         TEXT NOT NULL,
	tipo_regra      TEXT NOT NULL,
	uf_origem       TEXT,
	uf_destino      TEXT,
	vigencia_inicio TEXT NOT NULL,
	content         TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'draft',
	version         INTEGER NOT NULL DEFAULT 1,
	proposal_hash   TEXT NOT NULL,
	created_by      TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_leaf_id ON rules(leaf_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	rule_id             TEXT NOT NULL,
	action              TEXT NOT NULL,
	proposal_hash       TEXT NOT NULL,
	agent               TEXT NOT NULL,
	gatekeeper_decision TEXT NOT NULL,
	ts                  TEXT NOT NULL,
	created_at          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_rule_id ON audit_log(rule_id);

CREATE TABLE IF NOT EXISTS legislative_evidence (
	id               TEXT PRIMARY KEY,
	url              TEXT NOT NULL,
	title            TEXT NOT NULL,
	hash_sha256      TEXT NOT NULL,
	hash_changed     INTEGER NOT NULL DEFAULT 0,
	content_snapshot TEXT,
	task_id          INTEGER,
	agent            TEXT,
	uf               TEXT,
	captured_at      TEXT NOT NULL,
	last_checked_at  TEXT NOT NULL,
	UNIQUE (url, hash_sha256)
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return eris.Wrap(s.db.Close(), "sqlite: close")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Timestamps are stored as RFC 3339 text so rows stay readable with the
// sqlite3 shell.
const sqliteTimeFormat = time.RFC3339Nano

func fmtTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(sqliteTimeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Leaves

func (s *SQLiteStore) CreateLeaf(ctx context.Context, leaf model.Leaf) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leaves (id, name, category_path, ncm, status, coverage_pct, tasks_total, tasks_done, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		leaf.ID, leaf.Name, leaf.CategoryPath, nullable(leaf.NCM), string(leaf.Status),
		leaf.CoveragePct, leaf.TasksTotal, leaf.TasksDone, fmtTime(leaf.CreatedAt), fmtTime(leaf.UpdatedAt),
	)
	return eris.Wrap(err, "sqlite: insert leaf")
}

func (s *SQLiteStore) GetLeaf(ctx context.Context, id string) (*model.Leaf, error) {
	leaf, err := scanSQLiteLeaf(s.db.QueryRowContext(ctx,
		`SELECT id, name, category_path, ncm, status, coverage_pct, tasks_total, tasks_done, created_at, updated_at
		 FROM leaves WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get leaf %s", id)
	}
	return leaf, nil
}

func (s *SQLiteStore) GetLeafByPath(ctx context.Context, categoryPath string) (*model.Leaf, error) {
	leaf, err := scanSQLiteLeaf(s.db.QueryRowContext(ctx,
		`SELECT id, name, category_path, ncm, status, coverage_pct, tasks_total, tasks_done, created_at, updated_at
		 FROM leaves WHERE category_path = ?`, categoryPath))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get leaf by path")
	}
	return leaf, nil
}

func (s *SQLiteStore) ListLeaves(ctx context.Context) ([]model.Leaf, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category_path, ncm, status, coverage_pct, tasks_total, tasks_done, created_at, updated_at
		 FROM leaves ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leaves")
	}
	defer rows.Close()

	var leaves []model.Leaf
	for rows.Next() {
		leaf, err := scanSQLiteLeaf(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan leaf")
		}
		leaves = append(leaves, *leaf)
	}
	return leaves, eris.Wrap(rows.Err(), "sqlite: list leaves iterate")
}

func (s *SQLiteStore) UpdateLeafActivation(ctx context.Context, id string, tasksTotal int, status model.LeafStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leaves SET tasks_total = ?, status = ?, updated_at = ? WHERE id = ?`,
		tasksTotal, string(status), fmtTime(time.Now()), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update leaf activation %s", id)
	}
	return requireRowSQLite(res, "leaf not found: %s", id)
}

func (s *SQLiteStore) UpdateLeafCoverage(ctx context.Context, id string, coveragePct, tasksDone int, status model.LeafStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leaves SET coverage_pct = ?, tasks_done = ?, status = ?, updated_at = ? WHERE id = ?`,
		coveragePct, tasksDone, string(status), fmtTime(time.Now()), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update leaf coverage %s", id)
	}
	return requireRowSQLite(res, "leaf not found: %s", id)
}

// Tasks

func (s *SQLiteStore) BulkInsertTasks(ctx context.Context, tasks []model.Task) ([]int64, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin bulk task insert")
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		id, err := insertTaskSQLite(ctx, tx, t)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit bulk task insert")
	}
	return ids, nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, t model.Task) (int64, error) {
	return insertTaskSQLite(ctx, s.db, t)
}

type sqliteExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTaskSQLite(ctx context.Context, ex sqliteExecer, t model.Task) (int64, error) {
	refs, err := json.Marshal(refsOrEmpty(t.EvidenceRefs))
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal evidence refs")
	}
	res, err := ex.ExecContext(ctx,
		`INSERT INTO tasks (leaf_id, title, description, status, priority, tipo_regra, uf_origem, uf_destino, owner_agent, attempt, evidence_refs, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.LeafID, t.Title, t.Description, string(t.Status), string(t.Priority), string(t.TipoRegra),
		nullable(t.UFOrigem), nullable(t.UFDestino), nullable(t.OwnerAgent), t.Attempt, string(refs),
		fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: insert task for leaf %s", t.LeafID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: task insert id")
	}
	return id, nil
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT id, leaf_id, title, description, status, priority, tipo_regra, uf_origem, uf_destino, owner_agent, attempt, evidence_refs, created_at, updated_at
	 FROM tasks WHERE 1 = 1`
	args := []any{}

	if filter.LeafID != "" {
		query += ` AND leaf_id = ?`
		args = append(args, filter.LeafID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "sqlite: list tasks iterate")
}

func (s *SQLiteStore) CountTasksForLeaf(ctx context.Context, leafID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE leaf_id = ?`, leafID).Scan(&count)
	return count, eris.Wrapf(err, "sqlite: count tasks for leaf %s", leafID)
}

func (s *SQLiteStore) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	t, err := scanSQLiteTask(s.db.QueryRowContext(ctx,
		`SELECT id, leaf_id, title, description, status, priority, tipo_regra, uf_origem, uf_destino, owner_agent, attempt, evidence_refs, created_at, updated_at
		 FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get task %d", id)
	}
	return t, nil
}

func (s *SQLiteStore) PatchTask(ctx context.Context, id int64, patch model.TaskPatch) (*model.Task, error) {
	sets := []string{}
	args := []any{}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.OwnerAgent != nil {
		sets = append(sets, "owner_agent = ?")
		args = append(args, *patch.OwnerAgent)
	}
	if patch.Attempt != nil {
		sets = append(sets, "attempt = ?")
		args = append(args, *patch.Attempt)
	}
	if patch.EvidenceRefs != nil {
		refs, err := json.Marshal(patch.EvidenceRefs)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal evidence refs")
		}
		sets = append(sets, "evidence_refs = ?")
		args = append(args, string(refs))
	}
	if len(sets) == 0 {
		return s.GetTask(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, fmtTime(time.Now()))
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE tasks SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: patch task %d", id)
	}
	if err := requireRowSQLite(res, "task not found: %d", id); err != nil {
		return nil, err
	}
	return s.GetTask(ctx, id)
}

// Rules

func (s *SQLiteStore) UpsertRule(ctx context.Context, rule model.Rule) (string, int, error) {
	contentJSON, err := json.Marshal(rule.Content)
	if err != nil {
		return "", 0, eris.Wrap(err, "sqlite: marshal rule content")
	}

	var (
		id      string
		version int
	)
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO rules (id, idempotency_key, leaf_id, tipo_regra, uf_origem, uf_destino, vigencia_inicio, content, status, version, proposal_hash, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		 ON CONFLICT (idempotency_key) DO UPDATE SET
		   content = excluded.content,
		   proposal_hash = excluded.proposal_hash,
		   version = rules.version + 1,
		   updated_at = excluded.updated_at
		 RETURNING id, version`,
		rule.ID, rule.IdempotencyKey, rule.LeafID, string(rule.TipoRegra),
		nullable(rule.UFOrigem), nullable(rule.UFDestino), rule.VigenciaInicio,
		string(contentJSON), string(rule.Status), rule.ProposalHash, rule.CreatedBy,
		fmtTime(time.Now()), fmtTime(time.Now()),
	).Scan(&id, &version)
	if err != nil {
		return "", 0, eris.Wrap(err, "sqlite: upsert rule")
	}
	return id, version, nil
}

func (s *SQLiteStore) GetRuleByKey(ctx context.Context, idempotencyKey string) (*model.Rule, error) {
	var (
		r           model.Rule
		ufOrigem    sql.NullString
		ufDestino   sql.NullString
		contentJSON string
		createdAt   string
		updatedAt   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, idempotency_key, leaf_id, tipo_regra, uf_origem, uf_destino, vigencia_inicio, content, status, version, proposal_hash, created_by, created_at, updated_at
		 FROM rules WHERE idempotency_key = ?`, idempotencyKey,
	).Scan(&r.ID, &r.IdempotencyKey, &r.LeafID, &r.TipoRegra, &ufOrigem, &ufDestino,
		&r.VigenciaInicio, &contentJSON, &r.Status, &r.Version, &r.ProposalHash,
		&r.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get rule by key")
	}
	r.UFOrigem = ufOrigem.String
	r.UFDestino = ufDestino.String
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(contentJSON), &r.Content); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal rule content")
	}
	return &r, nil
}

// Audit

func (s *SQLiteStore) AppendAudit(ctx context.Context, ev model.AuditEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (rule_id, action, proposal_hash, agent, gatekeeper_decision, ts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.RuleID, string(ev.Action), ev.ProposalHash, ev.Agent,
		string(ev.GatekeeperDecision), fmtTime(ev.Timestamp), fmtTime(time.Now()),
	)
	return eris.Wrap(err, "sqlite: append audit event")
}

// Legislative evidence

func (s *SQLiteStore) UpsertEvidence(ctx context.Context, ev model.Evidence) (*model.Evidence, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	now := fmtTime(time.Now())
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO legislative_evidence (id, url, title, hash_sha256, hash_changed, content_snapshot, task_id, agent, uf, captured_at, last_checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (url, hash_sha256) DO UPDATE SET
		   last_checked_at = excluded.last_checked_at,
		   title = excluded.title
		 RETURNING id`,
		ev.ID, ev.URL, ev.Title, ev.HashSHA256, ev.HashChanged, nullable(ev.ContentSnapshot),
		nullableInt64(ev.TaskID), nullable(ev.Agent), nullable(ev.UF), now, now,
	).Scan(&ev.ID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert evidence")
	}
	return &ev, nil
}

func (s *SQLiteStore) GetEvidence(ctx context.Context, id string) (*model.Evidence, error) {
	var (
		ev            model.Evidence
		snapshot      sql.NullString
		taskID        sql.NullInt64
		agent         sql.NullString
		uf            sql.NullString
		capturedAt    string
		lastCheckedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, hash_sha256, hash_changed, content_snapshot, task_id, agent, uf, captured_at, last_checked_at
		 FROM legislative_evidence WHERE id = ?`, id,
	).Scan(&ev.ID, &ev.URL, &ev.Title, &ev.HashSHA256, &ev.HashChanged, &snapshot, &taskID, &agent, &uf, &capturedAt, &lastCheckedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get evidence %s", id)
	}
	ev.ContentSnapshot = snapshot.String
	ev.TaskID = taskID.Int64
	ev.Agent = agent.String
	ev.UF = uf.String
	ev.CapturedAt = parseTime(capturedAt)
	ev.LastCheckedAt = parseTime(lastCheckedAt)
	return &ev, nil
}

func (s *SQLiteStore) ListEvidenceIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM legislative_evidence ORDER BY last_checked_at ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list evidence ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evidence id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: list evidence ids iterate")
}

func (s *SQLiteStore) UpdateEvidenceCheck(ctx context.Context, id, newHash string, changed bool, snapshot string, checkedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE legislative_evidence
		 SET hash_sha256 = ?, hash_changed = ?, content_snapshot = COALESCE(NULLIF(?, ''), content_snapshot), last_checked_at = ?
		 WHERE id = ?`,
		newHash, changed, snapshot, fmtTime(checkedAt), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update evidence check %s", id)
	}
	return requireRowSQLite(res, "evidence not found: %s", id)
}

// Dashboard

func (s *SQLiteStore) DashboardMetrics(ctx context.Context) (*Metrics, error) {
	m := &Metrics{TasksByStatus: make(map[model.TaskStatus]int)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = 'complete' THEN 1 ELSE 0 END), 0),
		        COALESCE(ROUND(AVG(coverage_pct)), 0)
		 FROM leaves`,
	).Scan(&m.LeavesTotal, &m.LeavesComplete, &m.AvgCoveragePct)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: leaf metrics")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: task metrics")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task metric")
		}
		m.TasksByStatus[model.TaskStatus(status)] = count
	}
	return m, eris.Wrap(rows.Err(), "sqlite: task metrics iterate")
}

// helpers

func requireRowSQLite(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf(format, args...)
	}
	return nil
}

func scanSQLiteLeaf(row scannable) (*model.Leaf, error) {
	var (
		leaf      model.Leaf
		ncm       sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&leaf.ID, &leaf.Name, &leaf.CategoryPath, &ncm, &leaf.Status,
		&leaf.CoveragePct, &leaf.TasksTotal, &leaf.TasksDone, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	leaf.NCM = ncm.String
	leaf.CreatedAt = parseTime(createdAt)
	leaf.UpdatedAt = parseTime(updatedAt)
	return &leaf, nil
}

func scanSQLiteTask(row scannable) (*model.Task, error) {
	var (
		t          model.Task
		ufOrigem   sql.NullString
		ufDestino  sql.NullString
		ownerAgent sql.NullString
		refsJSON   string
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(&t.ID, &t.LeafID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.TipoRegra, &ufOrigem, &ufDestino, &ownerAgent, &t.Attempt, &refsJSON,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.UFOrigem = ufOrigem.String
	t.UFDestino = ufDestino.String
	t.OwnerAgent = ownerAgent.String
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	if refsJSON != "" {
		if err := json.Unmarshal([]byte(refsJSON), &t.EvidenceRefs); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
