// Package monitor watches captured legislative sources for content
// drift. A changed hash flags the evidence and reopens research on the
// mapping built from it.
package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/resilience"
	"github.com/mapalei/fiscal-cli/internal/store"
)

// maxSnapshotBytes bounds how much of a source page is stored.
const maxSnapshotBytes = 64 * 1024

// CheckResult summarizes one evidence check.
type CheckResult struct {
	EvidenceID    string `json:"evidence_id"`
	URL           string `json:"url"`
	Changed       bool   `json:"changed"`
	NewHash       string `json:"new_hash"`
	ReworkTaskID  int64  `json:"rework_task_id,omitempty"`
	FetchError    string `json:"fetch_error,omitempty"`
}

// Monitor re-fetches evidence sources and reacts to hash changes.
type Monitor struct {
	store   store.Store
	client  *http.Client
	limiter *rate.Limiter
}

// New builds a Monitor. requestsPerSecond throttles outbound fetches so
// a full sweep does not hammer government portals.
func New(s store.Store, requestsPerSecond float64) *Monitor {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &Monitor{
		store:   s,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Normalize canonicalizes page text before hashing: NFC so accent
// encodings don't masquerade as legislative changes, then whitespace
// collapsed so reformatting doesn't either.
func Normalize(content []byte) string {
	normalized := norm.NFC.String(string(content))
	return strings.Join(strings.Fields(normalized), " ")
}

// Hash returns the hex SHA-256 of the normalized content.
func Hash(content []byte) string {
	sum := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}

// CheckOne re-fetches a single evidence source. On a hash change the
// evidence is flagged and a rework task is opened on the affected leaf.
func (m *Monitor) CheckOne(ctx context.Context, evidenceID string) (*CheckResult, error) {
	ev, err := m.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return nil, eris.Wrapf(err, "monitor: load evidence %s", evidenceID)
	}
	if ev == nil {
		return nil, eris.Errorf("monitor: evidence not found: %s", evidenceID)
	}

	body, err := m.fetch(ctx, ev.URL)
	if err != nil {
		zap.L().Warn("evidence fetch failed",
			zap.String("evidence_id", evidenceID),
			zap.String("url", ev.URL),
			zap.Error(err),
		)
		return &CheckResult{EvidenceID: ev.ID, URL: ev.URL, FetchError: err.Error()}, nil
	}

	newHash := Hash(body)
	changed := newHash != ev.HashSHA256
	snapshot := ""
	if changed {
		snapshot = Normalize(body)
		if len(snapshot) > maxSnapshotBytes {
			snapshot = snapshot[:maxSnapshotBytes]
		}
	}

	if err := m.store.UpdateEvidenceCheck(ctx, ev.ID, newHash, changed, snapshot, time.Now().UTC()); err != nil {
		return nil, eris.Wrapf(err, "monitor: persist check for %s", evidenceID)
	}

	result := &CheckResult{EvidenceID: ev.ID, URL: ev.URL, Changed: changed, NewHash: newHash}
	if changed {
		result.ReworkTaskID = m.openReworkTask(ctx, ev)
		zap.L().Info("legislative source changed",
			zap.String("evidence_id", ev.ID),
			zap.String("url", ev.URL),
			zap.Int64("rework_task_id", result.ReworkTaskID),
		)
	}
	return result, nil
}

// CheckAll sweeps every tracked evidence source with bounded
// concurrency. Per-source fetch failures are recorded in the results,
// not fatal.
func (m *Monitor) CheckAll(ctx context.Context, concurrency int) ([]CheckResult, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	ids, err := m.store.ListEvidenceIDs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitor: list evidence")
	}

	results := make([]CheckResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range ids {
		g.Go(func() error {
			res, err := m.CheckOne(gctx, id)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Capture stores a fresh evidence snapshot for a source that a worker
// cited, keyed by url and content hash.
func (m *Monitor) Capture(ctx context.Context, url, title string, taskID int64, agent, uf string) (*model.Evidence, error) {
	body, err := m.fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "monitor: capture %s", url)
	}

	snapshot := Normalize(body)
	if len(snapshot) > maxSnapshotBytes {
		snapshot = snapshot[:maxSnapshotBytes]
	}

	ev, err := m.store.UpsertEvidence(ctx, model.Evidence{
		URL:             url,
		Title:           title,
		HashSHA256:      Hash(body),
		ContentSnapshot: snapshot,
		TaskID:          taskID,
		Agent:           agent,
		UF:              uf,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "monitor: store evidence for %s", url)
	}
	return ev, nil
}

func (m *Monitor) fetch(ctx context.Context, url string) ([]byte, error) {
	return resilience.DoVal(ctx, resilience.RetryConfig{Operation: "fetch " + url}, func(ctx context.Context) ([]byte, error) {
		return m.fetchOnce(ctx, url)
	})
}

func (m *Monitor) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "monitor: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "monitor: build request for %s", url)
	}
	req.Header.Set("User-Agent", "fiscal-cli-monitor/1.0")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "monitor: fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("monitor: fetch %s: status %d", url, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, eris.Wrapf(err, "monitor: read body of %s", url)
	}
	return body, nil
}

// openReworkTask reopens research on the leaf whose mapping cited the
// changed source. Without a linked task there is nothing to reopen;
// the flagged evidence itself is the signal then.
func (m *Monitor) openReworkTask(ctx context.Context, ev *model.Evidence) int64 {
	if ev.TaskID <= 0 {
		return 0
	}

	origin, err := m.store.GetTask(ctx, ev.TaskID)
	if err != nil || origin == nil {
		zap.L().Warn("changed evidence has no resolvable task",
			zap.String("evidence_id", ev.ID),
			zap.Int64("task_id", ev.TaskID),
			zap.Error(err),
		)
		return 0
	}

	now := time.Now().UTC()
	id, err := m.store.CreateTask(ctx, model.Task{
		LeafID:       origin.LeafID,
		Title:        fmt.Sprintf("[REVISÃO] %s", origin.Title),
		Description:  fmt.Sprintf("Fonte legislativa alterada: %s. Revalidar a regra mapeada na tarefa %d.", ev.URL, origin.ID),
		Status:       model.TaskStatusRework,
		Priority:     model.PriorityP1,
		TipoRegra:    origin.TipoRegra,
		UFOrigem:     origin.UFOrigem,
		UFDestino:    origin.UFDestino,
		OwnerAgent:   origin.OwnerAgent,
		EvidenceRefs: []string{ev.URL},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		zap.L().Error("failed to open rework task for changed evidence",
			zap.String("evidence_id", ev.ID),
			zap.Error(err),
		)
		return 0
	}
	return id
}
