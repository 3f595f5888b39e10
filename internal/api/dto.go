package api

import (
	"encoding/json"
	"time"

	"github.com/starford/fehu/internal/catalog"
	"github.com/starford/fehu/internal/catalogservice"
	"github.com/starford/fehu/internal/models"
)

// isoTime marshals as ISO-8601 with millisecond precision and a Z suffix,
// e.g. "2022-05-28T21:12:01.000Z".
type isoTime time.Time

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// MarshalJSON implements json.Marshaler.
func (t isoTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(isoMillis) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. Accepts RFC 3339.
func (t *isoTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = isoTime(parsed.UTC())
	return nil
}

// ImportRequest is the request body for POST /imports. All items share one
// updateDate.
type ImportRequest struct {
	Items      []catalogservice.UnitImport `json:"items" validate:"required"`
	UpdateDate *isoTime                    `json:"updateDate" validate:"required"`
}

// UnitResponse is the wire form of a single unit.
type UnitResponse struct {
	ID       string  `json:"id" example:"3fa85f64-5717-4562-b3fc-2c963f66a333" validate:"required"`
	Name     string  `json:"name" example:"Smartphones" validate:"required"`
	Type     string  `json:"type" example:"CATEGORY" validate:"required"`
	ParentID *string `json:"parentId"`
	Price    *int64  `json:"price"`
	Date     isoTime `json:"date"`
}

// NodeResponse is a unit with its resolved child tree. Children is null for
// offers and for categories without children.
type NodeResponse struct {
	UnitResponse
	Children []*NodeResponse `json:"children"`
}

// SalesResponse wraps the offers returned by GET /sales.
type SalesResponse struct {
	Items []UnitResponse `json:"items" validate:"required"`
}

// SearchResponse wraps name-search results.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results" validate:"required"`
}

func toUnitResponse(u models.Unit) UnitResponse {
	return UnitResponse{
		ID:       u.ID,
		Name:     u.Name,
		Type:     string(u.Type),
		ParentID: u.ParentID,
		Price:    u.Price,
		Date:     isoTime(u.Date),
	}
}

func toNodeResponse(n *catalogservice.UnitNode) *NodeResponse {
	out := &NodeResponse{UnitResponse: toUnitResponse(n.Unit)}
	for _, child := range n.Children {
		out.Children = append(out.Children, toNodeResponse(child))
	}
	return out
}
