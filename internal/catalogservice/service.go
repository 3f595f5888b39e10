// Package catalogservice implements the catalog engine: imports with
// timestamp propagation, subtree reads with derived category prices,
// cascading deletes, and the trailing-24h sales query.
package catalogservice

import (
	"context"
	"time"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/catalog"
	"github.com/starford/fehu/internal/models"
)

// SalesWindow is how far back from the query timestamp the sales query
// reaches. Both ends of the window are inclusive.
const SalesWindow = 24 * time.Hour

// Publisher receives notifications about successful catalog mutations.
type Publisher interface {
	PublishUnitEvent(kind, id string)
}

// Service coordinates catalog storage and the aggregation engine.
type Service struct {
	db     *catalog.DB
	events Publisher
}

// NewService creates a catalog service. events may be nil.
func NewService(db *catalog.DB, events Publisher) *Service {
	return &Service{db: db, events: events}
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishUnitEvent(kind, id)
	}
}

// UnitNode is a unit together with its resolved children. Children stays nil
// for offers and for categories without children.
type UnitNode struct {
	models.Unit
	Children []*UnitNode `json:"children"`
}

// GetUnit returns the unit with its full descendant tree. Category prices
// are derived on the fly as the floor of the offer-weighted average.
func (s *Service) GetUnit(_ context.Context, id string) (*UnitNode, error) {
	rows, err := s.db.Subtree(id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.ErrNotFound
	}
	root := buildTree(rows, id)
	if !root.IsOffer() {
		aggregatePrices(root)
	}
	return root, nil
}

// buildTree assembles a UnitNode tree from a flat row list ordered
// parents-before-children.
func buildTree(rows []models.Unit, rootID string) *UnitNode {
	byID := make(map[string]*UnitNode, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &UnitNode{Unit: rows[i]}
	}
	for i := range rows {
		node := byID[rows[i].ID]
		if node.ID == rootID || node.ParentID == nil {
			continue
		}
		if parent, ok := byID[*node.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	return byID[rootID]
}

// DeleteUnit removes a unit and every descendant. Deletion does not
// re-trigger timestamp propagation on the remaining ancestors.
func (s *Service) DeleteUnit(_ context.Context, id string) error {
	var found bool
	err := s.db.WithTx(func(tx *catalog.Tx) error {
		var err error
		found, err = tx.DeleteSubtree(id)
		return err
	})
	if err != nil {
		return err
	}
	if !found {
		return apperr.ErrNotFound
	}
	s.publish("deleted", id)
	return nil
}

// Sales returns every offer whose date lies within [date-24h, date],
// inclusive both ends.
func (s *Service) Sales(_ context.Context, date time.Time) ([]models.Unit, error) {
	return s.db.OffersInRange(date.Add(-SalesWindow), date)
}

// Search delegates name search to the store.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	return s.db.Search(query, limit)
}
