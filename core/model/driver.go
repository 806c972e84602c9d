package model

// DriverStatus represents the fleet state of a driver.
type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverBusy      DriverStatus = "busy"
	DriverOffline   DriverStatus = "offline"
)

// Driver is a read-only snapshot of a fleet driver. The fleet collaborator
// owns the record; the core only scores snapshots and reports assignment
// outcomes back.
type Driver struct {
	ID       string       `json:"id"`
	Location LatLng       `json:"location"`
	Status   DriverStatus `json:"status"`

	ActiveOrders int `json:"active_orders"`
	Capacity     int `json:"capacity"`

	// Rolling daily metrics maintained by the fleet collaborator.
	OnTimeRate     float64 `json:"on_time_rate"`
	HoursWorked    float64 `json:"hours_worked"`
	DailyTarget    int     `json:"daily_target"`
	DeliveredToday int     `json:"delivered_today"`
}

// TargetGap returns how many deliveries the driver is behind the daily
// target. Zero or negative means the target has been met.
func (d Driver) TargetGap() int { return d.DailyTarget - d.DeliveredToday }

// LoadRatio returns the fraction of capacity currently in use.
func (d Driver) LoadRatio() float64 {
	if d.Capacity <= 0 {
		return 1
	}
	r := float64(d.ActiveOrders) / float64(d.Capacity)
	if r > 1 {
		return 1
	}
	return r
}

// CanAccept reports whether the driver can take one more order.
func (d Driver) CanAccept() bool {
	if d.Status == DriverOffline {
		return false
	}
	return d.Capacity <= 0 || d.ActiveOrders < d.Capacity
}
