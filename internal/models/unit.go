// Package models defines the domain types for Fehu.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// UnitType discriminates catalog units.
type UnitType string

const (
	TypeCategory UnitType = "CATEGORY"
	TypeOffer    UnitType = "OFFER"
)

// Valid reports whether t is a known unit type.
func (t UnitType) Valid() bool {
	return t == TypeCategory || t == TypeOffer
}

// Unit is a single catalog node: a leaf offer with an explicit price, or a
// category whose price is derived from its offer descendants at read time.
type Unit struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     UnitType  `json:"type"`
	ParentID *string   `json:"parentId"`
	Price    *int64    `json:"price"`
	Date     time.Time `json:"date"`
}

// Validate checks the structural invariants of a unit. Exactly one of
// {price nil, type CATEGORY} or {price >= 0, type OFFER} must hold.
func (u *Unit) Validate() error {
	if err := validation.ValidateStruct(u,
		validation.Field(&u.ID, validation.Required),
		validation.Field(&u.Name, validation.Required),
		validation.Field(&u.Type, validation.Required, validation.In(TypeCategory, TypeOffer)),
	); err != nil {
		return err
	}
	switch u.Type {
	case TypeCategory:
		if u.Price != nil {
			return validation.Errors{"price": validation.NewError("price_on_category", "categories must not carry a price")}
		}
	case TypeOffer:
		if u.Price == nil {
			return validation.Errors{"price": validation.NewError("price_required", "offers require a price")}
		}
		if *u.Price < 0 {
			return validation.Errors{"price": validation.NewError("price_negative", "offer price must be non-negative")}
		}
	}
	return nil
}

// IsOffer reports whether the unit is a leaf offer.
func (u *Unit) IsOffer() bool { return u.Type == TypeOffer }
