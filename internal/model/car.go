package model

import "time"

// Car availability states stored in the cars.status column.
const (
	CarAvailable   = "available"
	CarRented      = "rented"
	CarMaintenance = "maintenance"
)

// ValidCarStatus reports whether s is one of the known car states.
func ValidCarStatus(s string) bool {
	return s == CarAvailable || s == CarRented || s == CarMaintenance
}

// Car represents a vehicle in the rental fleet as stored in the `cars`
// table.  Prices are kept in cents to avoid floating point money.  Cars are
// soft-deactivated via IsActive rather than deleted so historical rentals
// keep a valid reference.
type Car struct {
	ID              uint64    // cars.id
	Make            string    // cars.make
	Model           string    // cars.model
	Year            int       // cars.year
	Color           string    // cars.color
	LicensePlate    string    // cars.license_plate (unique)
	PricePerDayCent uint32    // cars.price_per_day_cents
	Status          string    // cars.status
	IsActive        bool      // cars.is_active
	CreatedAt       time.Time // cars.created_at
	UpdatedAt       time.Time // cars.updated_at
}
