package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rentiva/car-rental-backend/internal/model"
	"github.com/rentiva/car-rental-backend/internal/repository"
)

// CarHandler serves the car catalog.  Browsing is public (and cached);
// mutations are restricted to staff and admin by the route middleware.
type CarHandler struct {
	Cars *repository.CarRepo
	Log  zerolog.Logger
}

func NewCarHandler(cars *repository.CarRepo, log zerolog.Logger) *CarHandler {
	return &CarHandler{Cars: cars, Log: log}
}

type carReq struct {
	Make            string `json:"make"`
	Model           string `json:"model"`
	Year            int    `json:"year"`
	Color           string `json:"color"`
	LicensePlate    string `json:"license_plate"`
	PricePerDayCent uint32 `json:"price_per_day_cents"`
	Status          string `json:"status"`
}

type carPart struct {
	ID              uint64    `json:"id"`
	Make            string    `json:"make"`
	Model           string    `json:"model"`
	Year            int       `json:"year"`
	Color           string    `json:"color"`
	LicensePlate    string    `json:"license_plate"`
	PricePerDayCent uint32    `json:"price_per_day_cents"`
	Status          string    `json:"status"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

func toCarPart(c model.Car) carPart {
	return carPart{
		ID:              c.ID,
		Make:            c.Make,
		Model:           c.Model,
		Year:            c.Year,
		Color:           c.Color,
		LicensePlate:    c.LicensePlate,
		PricePerDayCent: c.PricePerDayCent,
		Status:          c.Status,
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt,
	}
}

func (r carReq) validate() map[string]string {
	fe := map[string]string{}
	if strings.TrimSpace(r.Make) == "" {
		fe["make"] = "required"
	}
	if strings.TrimSpace(r.Model) == "" {
		fe["model"] = "required"
	}
	if r.Year < 1950 || r.Year > time.Now().Year()+1 {
		fe["year"] = "implausible year"
	}
	if strings.TrimSpace(r.LicensePlate) == "" {
		fe["license_plate"] = "required"
	}
	if r.PricePerDayCent == 0 {
		fe["price_per_day_cents"] = "must be positive"
	}
	if r.Status != "" && !model.ValidCarStatus(r.Status) {
		fe["status"] = "status must be one of available, rented, maintenance"
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// List returns active cars, optionally filtered with ?status=.
func (h *CarHandler) List(c echo.Context) error {
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && !model.ValidCarStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status filter"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	cars, err := h.Cars.List(ctx, status, false)
	if err != nil {
		return h.internal(c, err)
	}
	parts := make([]carPart, 0, len(cars))
	for _, car := range cars {
		parts = append(parts, toCarPart(car))
	}
	return c.JSON(http.StatusOK, echo.Map{"cars": parts, "count": len(parts)})
}

// Get returns a single active car by id.
func (h *CarHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid car id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	car, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "car not found"})
		}
		return h.internal(c, err)
	}
	if !car.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "car not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"car": toCarPart(car)})
}

// Create adds a car to the fleet (staff/admin).
func (h *CarHandler) Create(c echo.Context) error {
	var req carReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = model.CarAvailable
	}
	if fe := req.validate(); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	id, err := h.Cars.Create(ctx, model.Car{
		Make:            strings.TrimSpace(req.Make),
		Model:           strings.TrimSpace(req.Model),
		Year:            req.Year,
		Color:           strings.TrimSpace(req.Color),
		LicensePlate:    strings.ToUpper(strings.TrimSpace(req.LicensePlate)),
		PricePerDayCent: req.PricePerDayCent,
		Status:          req.Status,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePlate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "license plate already registered"})
		}
		return h.internal(c, err)
	}

	car, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"car": toCarPart(car)})
}

// Update rewrites a car's fields (staff/admin).
func (h *CarHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid car id"})
	}

	var req carReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if req.Status == "" {
		req.Status = model.CarAvailable
	}
	if fe := req.validate(); fe != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": fe})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	err = h.Cars.Update(ctx, model.Car{
		ID:              id,
		Make:            strings.TrimSpace(req.Make),
		Model:           strings.TrimSpace(req.Model),
		Year:            req.Year,
		Color:           strings.TrimSpace(req.Color),
		LicensePlate:    strings.ToUpper(strings.TrimSpace(req.LicensePlate)),
		PricePerDayCent: req.PricePerDayCent,
		Status:          req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "car not found"})
		case errors.Is(err, repository.ErrDuplicatePlate):
			return c.JSON(http.StatusConflict, echo.Map{"error": "license plate already registered"})
		}
		return h.internal(c, err)
	}

	car, err := h.Cars.GetByID(ctx, id)
	if err != nil {
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"car": toCarPart(car)})
}

// Delete soft-deactivates a car (staff/admin).
func (h *CarHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid car id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), reqTimeout)
	defer cancel()

	if err := h.Cars.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "car not found"})
		}
		return h.internal(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Car deactivated"})
}

func (h *CarHandler) internal(c echo.Context, err error) error {
	h.Log.Error().Err(err).Str("path", c.Path()).Msg("internal error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
