package catalogservice

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/starford/fehu/internal/apperr"
	"github.com/starford/fehu/internal/catalog"
	"github.com/starford/fehu/internal/models"
)

// OptionalString tracks presence and value for patch-style imports. A plain
// *string cannot distinguish "field absent" (keep the stored value) from
// "field null" (clear it, e.g. promote a unit to root).
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON implements json.Unmarshaler. Being called at all means the
// field was present in the JSON.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// OptionalInt64 is the integer counterpart of OptionalString.
type OptionalInt64 struct {
	Present bool
	Value   *int64
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	o.Value = &n
	return nil
}

// UnitImport is one element of an import request. Absent fields keep the
// stored value on update; explicit nulls clear where clearing is legal.
type UnitImport struct {
	ID       string          `json:"id"`
	Name     OptionalString  `json:"name"`
	Type     models.UnitType `json:"type"`
	ParentID OptionalString  `json:"parentId"`
	Price    OptionalInt64   `json:"price"`
}

// ImportBatch upserts every item in list order under one shared updateDate.
// The whole batch runs in a single transaction: any validation failure rolls
// back every element, including already-applied ones. Each successful write
// propagates updateDate up the ancestor chain before the element counts as
// committed.
func (s *Service) ImportBatch(_ context.Context, items []UnitImport, updateDate time.Time) error {
	if len(items) == 0 {
		return apperr.Validationf("empty import")
	}

	imported := make([]string, 0, len(items))
	err := s.db.WithTx(func(tx *catalog.Tx) error {
		seen := make(map[string]struct{}, len(items))
		for _, item := range items {
			id, err := resolveID(item.ID)
			if err != nil {
				return err
			}
			if _, dup := seen[id]; dup {
				return apperr.Validationf("duplicate id %s in request", id)
			}
			seen[id] = struct{}{}

			u, existing, err := mergeImport(tx, id, item, updateDate)
			if err != nil {
				return err
			}
			if err := validateParent(tx, u); err != nil {
				return err
			}
			if existing {
				err = tx.Update(u)
			} else {
				err = tx.Insert(u)
			}
			if err != nil {
				return err
			}
			if err := propagate(tx, u.ParentID, updateDate); err != nil {
				return err
			}
			imported = append(imported, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range imported {
		s.publish("imported", id)
	}
	return nil
}

func resolveID(id string) (string, error) {
	if id == "" {
		return uuid.NewString(), nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", apperr.Validationf("malformed id %q", id)
	}
	return id, nil
}

// mergeImport resolves the imported item against the stored unit, applying
// patch semantics on update and requiring a full record on insert.
func mergeImport(tx *catalog.Tx, id string, item UnitImport, updateDate time.Time) (*models.Unit, bool, error) {
	if !item.Type.Valid() {
		return nil, false, apperr.Validationf("unit %s: unknown type %q", id, item.Type)
	}

	stored, err := tx.FindByID(id)
	if err != nil {
		return nil, false, err
	}

	var u models.Unit
	if stored != nil {
		if stored.Type != item.Type {
			return nil, false, apperr.Validationf("unit %s: type is immutable", id)
		}
		u = *stored
	} else {
		u = models.Unit{ID: id, Type: item.Type}
	}

	if item.Name.Present {
		if item.Name.Value == nil {
			return nil, false, apperr.Validationf("unit %s: name cannot be null", id)
		}
		u.Name = *item.Name.Value
	}
	if item.ParentID.Present {
		u.ParentID = item.ParentID.Value // nil promotes to root
	}
	if item.Price.Present {
		if item.Price.Value == nil && item.Type == models.TypeOffer {
			return nil, false, apperr.Validationf("unit %s: offer price cannot be null", id)
		}
		u.Price = item.Price.Value
	}
	u.Date = updateDate

	if err := u.Validate(); err != nil {
		return nil, false, apperr.Validationf("unit %s: %v", id, err)
	}
	return &u, stored != nil, nil
}

// validateParent checks that the parent exists, is a category, and that
// attaching u under it keeps the forest acyclic.
func validateParent(tx *catalog.Tx, u *models.Unit) error {
	if u.ParentID == nil {
		return nil
	}
	parent, err := tx.FindByID(*u.ParentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return apperr.Validationf("unit %s: parent %s not found", u.ID, *u.ParentID)
	}
	if parent.Type != models.TypeCategory {
		return apperr.Validationf("unit %s: parent %s is not a category", u.ID, *u.ParentID)
	}
	// Walk upward from the new parent; reaching u means a cycle.
	for p := parent; p != nil; {
		if p.ID == u.ID {
			return apperr.Validationf("unit %s: parent chain forms a cycle", u.ID)
		}
		if p.ParentID == nil {
			return nil
		}
		p, err = tx.FindByID(*p.ParentID)
		if err != nil {
			return err
		}
	}
	return nil
}

// propagate persists the new timestamp on every ancestor, one write per
// ancestor, until a root is reached. The overwrite is unconditional, so
// repeating the walk for the same (unit, date) is idempotent. seen guards
// against cycles that predate cycle validation.
func propagate(tx *catalog.Tx, parentID *string, date time.Time) error {
	seen := make(map[string]struct{})
	for parentID != nil {
		id := *parentID
		if _, ok := seen[id]; ok {
			return nil
		}
		seen[id] = struct{}{}

		if err := tx.SetDate(id, date); err != nil {
			return err
		}
		p, err := tx.FindByID(id)
		if err != nil {
			return err
		}
		if p == nil {
			return nil
		}
		parentID = p.ParentID
	}
	return nil
}
