package model

import (
	"fmt"
	"time"
)

// ServiceType identifies the delivery service tier of an order.
type ServiceType string

const (
	// ServiceBarq is the urgent tier with a tight SLA budget.
	ServiceBarq ServiceType = "BARQ"
	// ServiceBullet is the standard tier.
	ServiceBullet ServiceType = "BULLET"
)

// String returns the wire representation of the service type.
func (s ServiceType) String() string { return string(s) }

// Urgent reports whether the service type carries urgent handling rules.
func (s ServiceType) Urgent() bool { return s == ServiceBarq }

// OrderStatus represents the delivery lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAssigned  OrderStatus = "assigned"
	StatusInTransit OrderStatus = "in_transit"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status ends the order lifecycle. Terminal
// orders are never re-evaluated by the SLA monitor.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TimeWindow bounds the acceptable delivery time of an order.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Order is a snapshot of a delivery order as provided by the order
// collaborator. The dispatch core reads snapshots and writes decisions; it
// never owns the record.
type Order struct {
	ID      string      `json:"id"`
	Service ServiceType `json:"service_type"`
	Pickup  LatLng      `json:"pickup"`
	Dropoff LatLng      `json:"dropoff"`

	CreatedAt time.Time   `json:"created_at"`
	Status    OrderStatus `json:"status"`

	// DriverID is empty while the order is unassigned.
	DriverID string `json:"driver_id,omitempty"`

	// ReassignmentCount is monotonic and capped by the reassignment service.
	ReassignmentCount int `json:"reassignment_count"`

	// Window is optional; a nil window means any delivery time is acceptable.
	Window   *TimeWindow `json:"window,omitempty"`
	Priority int         `json:"priority"`
}

// Validate checks that the snapshot is usable by the dispatch core.
func (o Order) Validate() error {
	if o.ID == "" {
		return fmt.Errorf("order id is required")
	}
	if o.Service == "" {
		return fmt.Errorf("order %s: service type is required", o.ID)
	}
	if o.CreatedAt.IsZero() {
		return fmt.Errorf("order %s: created timestamp is required", o.ID)
	}
	return nil
}

// Assigned reports whether a driver currently holds the order.
func (o Order) Assigned() bool { return o.DriverID != "" }
