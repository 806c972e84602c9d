package batch

import (
	"time"

	"github.com/fleetops/dispatchd/core/model"
)

// Batch is a group of orders handed to one driver for combined delivery.
type Batch struct {
	ID      string            `json:"id"`
	Service model.ServiceType `json:"service_type"`
	Orders  []model.Order     `json:"orders"`

	Centroid model.LatLng `json:"centroid"`
	RadiusKm float64      `json:"radius_km"`
	Density  float64      `json:"density"`

	// Sequence is the nearest-neighbour visiting order of member order ids.
	Sequence []string `json:"sequence"`
	// EstimatedMinutes is the projected time to deliver the whole batch.
	EstimatedMinutes float64 `json:"estimated_minutes"`

	Quality    float64 `json:"quality"`
	Efficiency float64 `json:"efficiency"`

	CreatedAt time.Time `json:"created_at"`
}

// Size returns the number of member orders.
func (b Batch) Size() int { return len(b.Orders) }

// OrderIDs returns the member ids in sequence order when sequenced,
// otherwise in member order.
func (b Batch) OrderIDs() []string {
	if len(b.Sequence) == len(b.Orders) {
		return append([]string(nil), b.Sequence...)
	}
	ids := make([]string, 0, len(b.Orders))
	for _, o := range b.Orders {
		ids = append(ids, o.ID)
	}
	return ids
}

// Result is the outcome of one planning run.
type Result struct {
	Batches []Batch `json:"batches"`
	// Unbatchable orders fit no batch and go to individual assignment.
	Unbatchable []model.Order `json:"unbatchable"`
}
