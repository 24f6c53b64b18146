// Package leaves owns the taxonomy-leaf lifecycle: creation, backlog
// activation, and coverage refresh.
package leaves

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mapalei/fiscal-cli/internal/backlog"
	"github.com/mapalei/fiscal-cli/internal/coverage"
	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/store"
)

// ErrAlreadyActivated is returned when activation runs on a leaf that
// already has a backlog. The generator itself re-runs blindly, so this
// gate is what keeps a double activation from doubling the board.
var ErrAlreadyActivated = eris.New("leaf already has a backlog")

// ErrNotFound is returned when a leaf id resolves to nothing.
var ErrNotFound = eris.New("leaf not found")

// Service coordinates leaf state with the backlog generator and the
// coverage checker.
type Service struct {
	store    store.Store
	backlog  *backlog.Generator
	coverage *coverage.Checker
}

func NewService(s store.Store) *Service {
	return &Service{
		store:    s,
		backlog:  backlog.NewGenerator(s),
		coverage: coverage.NewChecker(s),
	}
}

// Create registers a new leaf in incomplete state. The category path is
// unique; re-creating an existing path returns the existing leaf
// untouched.
func (s *Service) Create(ctx context.Context, name, categoryPath, ncm string) (*model.Leaf, error) {
	if name == "" || categoryPath == "" {
		return nil, eris.New("leaves: name and category_path are required")
	}

	existing, err := s.store.GetLeafByPath(ctx, categoryPath)
	if err != nil {
		return nil, eris.Wrap(err, "leaves: check existing path")
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	leaf := model.Leaf{
		ID:           uuid.New().String(),
		Name:         name,
		CategoryPath: categoryPath,
		NCM:          ncm,
		Status:       model.LeafStatusIncomplete,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateLeaf(ctx, leaf); err != nil {
		return nil, eris.Wrapf(err, "leaves: create %s", categoryPath)
	}

	zap.L().Info("leaf created",
		zap.String("leaf_id", leaf.ID),
		zap.String("category_path", categoryPath),
	)
	return &leaf, nil
}

// Activate generates the leaf's backlog and moves it to in_progress.
// A leaf with any existing tasks fails with ErrAlreadyActivated.
func (s *Service) Activate(ctx context.Context, leafID string) ([]int64, error) {
	leaf, err := s.store.GetLeaf(ctx, leafID)
	if err != nil {
		return nil, eris.Wrapf(err, "leaves: load %s", leafID)
	}
	if leaf == nil {
		return nil, ErrNotFound
	}

	count, err := s.store.CountTasksForLeaf(ctx, leafID)
	if err != nil {
		return nil, eris.Wrapf(err, "leaves: count tasks for %s", leafID)
	}
	if count > 0 {
		return nil, ErrAlreadyActivated
	}

	ids, err := s.backlog.Generate(ctx, *leaf)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateLeafActivation(ctx, leafID, len(ids), model.LeafStatusInProgress); err != nil {
		return nil, eris.Wrapf(err, "leaves: mark %s activated", leafID)
	}
	return ids, nil
}

// Coverage computes the current coverage report without persisting it.
func (s *Service) Coverage(ctx context.Context, leafID string) (*coverage.Report, error) {
	return s.coverage.Check(ctx, leafID)
}

// RefreshCoverage recomputes coverage and persists the derived counters
// and status onto the leaf.
func (s *Service) RefreshCoverage(ctx context.Context, leafID string) (*coverage.Report, error) {
	report, err := s.coverage.Check(ctx, leafID)
	if err != nil {
		return nil, err
	}

	status := coverage.StatusFor(report)
	if err := s.store.UpdateLeafCoverage(ctx, leafID, report.CoveragePct, report.TasksDone, status); err != nil {
		return nil, eris.Wrapf(err, "leaves: persist coverage for %s", leafID)
	}

	if status == model.LeafStatusComplete {
		zap.L().Info("leaf checklist complete", zap.String("leaf_id", leafID))
	}
	return report, nil
}

// List returns every tracked leaf.
func (s *Service) List(ctx context.Context) ([]model.Leaf, error) {
	return s.store.ListLeaves(ctx)
}

// Get returns one leaf or ErrNotFound.
func (s *Service) Get(ctx context.Context, leafID string) (*model.Leaf, error) {
	leaf, err := s.store.GetLeaf(ctx, leafID)
	if err != nil {
		return nil, eris.Wrapf(err, "leaves: load %s", leafID)
	}
	if leaf == nil {
		return nil, ErrNotFound
	}
	return leaf, nil
}
