package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/rentiva/car-rental-backend/internal/model"
)

// CarRepo owns the 'cars' table.
type CarRepo struct{ DB *sql.DB }

func NewCarRepo(db *sql.DB) *CarRepo { return &CarRepo{DB: db} }

const carColumns = "id,make,model,year,color,license_plate,price_per_day_cents,status,is_active,created_at,updated_at"

// List returns active cars, optionally filtered by status.  Deactivated cars
// are only included when includeInactive is set (staff views).
func (r *CarRepo) List(ctx context.Context, status string, includeInactive bool) ([]model.Car, error) {
	q := "SELECT " + carColumns + " FROM cars WHERE 1=1"
	args := []any{}
	if !includeInactive {
		q += " AND is_active=1"
	}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	q += " ORDER BY id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cars := make([]model.Car, 0)
	for rows.Next() {
		var c model.Car
		if err := rows.Scan(&c.ID, &c.Make, &c.Model, &c.Year, &c.Color, &c.LicensePlate,
			&c.PricePerDayCent, &c.Status, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

// GetByID fetches a single car.
func (r *CarRepo) GetByID(ctx context.Context, id uint64) (model.Car, error) {
	var c model.Car
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+carColumns+" FROM cars WHERE id=? LIMIT 1", id).
		Scan(&c.ID, &c.Make, &c.Model, &c.Year, &c.Color, &c.LicensePlate,
			&c.PricePerDayCent, &c.Status, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Car{}, ErrNotFound
	}
	return c, err
}

// Create inserts a car and returns its ID.  A license-plate collision
// surfaces as ErrDuplicatePlate via the unique index.
func (r *CarRepo) Create(ctx context.Context, c model.Car) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO cars (make, model, year, color, license_plate, price_per_day_cents, status) VALUES (?,?,?,?,?,?,?)",
		c.Make, c.Model, c.Year, c.Color, c.LicensePlate, c.PricePerDayCent, c.Status)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return 0, ErrDuplicatePlate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update rewrites the mutable fields of a car.
func (r *CarRepo) Update(ctx context.Context, c model.Car) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE cars SET make=?, model=?, year=?, color=?, license_plate=?, price_per_day_cents=?, status=?, updated_at=NOW() WHERE id=?",
		c.Make, c.Model, c.Year, c.Color, c.LicensePlate, c.PricePerDayCent, c.Status, c.ID)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDupEntry {
			return ErrDuplicatePlate
		}
		return err
	}
	return requireRow(res)
}

// Deactivate soft-deletes a car; historical rentals keep a valid reference.
func (r *CarRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE cars SET is_active=0, updated_at=NOW() WHERE id=? AND is_active=1", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
