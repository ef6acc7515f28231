package httpapi

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/solar-weather-analytics/internal/common"
	"github.com/i474232898/solar-weather-analytics/internal/energy"
	"github.com/i474232898/solar-weather-analytics/internal/store"
)

// UserRepository is the user store the handlers read and write.
type UserRepository interface {
	energy.UserStore
	energy.UserWriter
}

type quarterRequest struct {
	Output      *float64 `json:"output" validate:"omitnil,gt=0"`
	Temperature *float64 `json:"temperature"`
	Daylight    *float64 `json:"daylight" validate:"omitnil,gte=0"`
	Radiation   *float64 `json:"radiation" validate:"omitnil,gte=0"`
}

// userRequest is the body of a user record write. Quarters are listed in order, Q1 first.
type userRequest struct {
	Suburb               string           `json:"suburb" validate:"required"`
	Email                string           `json:"email" validate:"omitempty,email"`
	SurfaceArea          *float64         `json:"surface_area" validate:"omitnil,gt=0"`
	Quarters             []quarterRequest `json:"quarters" validate:"max=4,dive"`
	QuarterlyConsumption []float64        `json:"quarterly_energy_consumption" validate:"max=4,dive,gte=0"`
	UpperLimit           *float64         `json:"upper_limit" validate:"omitnil,gte=0"`
	LowerLimit           *float64         `json:"lower_limit" validate:"omitnil,gte=0,lte=100"`
	ReceiveEmails        bool             `json:"receive_emails"`
}

func (r userRequest) profile(userID string) energy.Profile {
	p := energy.Profile{
		UserID:               userID,
		Suburb:               common.Capitalise(r.Suburb),
		Email:                r.Email,
		SurfaceArea:          r.SurfaceArea,
		QuarterlyConsumption: r.QuarterlyConsumption,
		UpperLimit:           r.UpperLimit,
		LowerLimit:           r.LowerLimit,
		ReceiveEmails:        r.ReceiveEmails,
	}
	for i, q := range r.Quarters {
		p.Quarters[i] = energy.Quarter{
			Output:      q.Output,
			Temperature: q.Temperature,
			Daylight:    q.Daylight,
			Radiation:   q.Radiation,
		}
	}
	return p
}

// putUser creates or replaces a user record. Fitted coefficients are dropped so they are
// fitted again from the new quarterly data; the notification history is kept.
func (h *handlers) putUser(c *fiber.Ctx) error {
	userID := c.Params("id")
	ctx := c.UserContext()

	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return toHTTPError(err)
	}
	if req.ReceiveEmails && req.Email == "" {
		return toHTTPError(fmt.Errorf("%w: email is required to receive notifications", errBadRequest))
	}
	if len(h.Suburbs) > 0 && !common.ContainsFold(h.Suburbs, req.Suburb) {
		return toHTTPError(fmt.Errorf("%w: suburb %s is not tracked", errBadRequest, req.Suburb))
	}

	rec := req.profile(userID).Record()

	status := fiber.StatusCreated
	existing, err := h.Users.GetUser(ctx, userID)
	switch {
	case err == nil:
		status = fiber.StatusOK
		if n := existing[energy.FieldNotifications]; n != "" {
			rec[energy.FieldNotifications] = n
		}
	case !errors.Is(err, store.ErrNotFound):
		return toHTTPError(err)
	}

	if err := h.Users.PutUser(ctx, userID, rec); err != nil {
		return toHTTPError(err)
	}
	log.Printf("INFO: stored user record %s", userID)

	return c.Status(status).JSON(fiber.Map{
		"userID": userID,
		"fields": rec,
	})
}

// getUser returns a user record, restricted to the comma-separated fields query when given.
func (h *handlers) getUser(c *fiber.Ctx) error {
	userID := c.Params("id")

	rec, err := h.Users.GetUser(c.UserContext(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	if fields := common.SplitList(c.Query("fields")); len(fields) > 0 {
		selected := energy.Record{}
		for _, f := range fields {
			if v, ok := rec[f]; ok {
				selected[f] = v
			}
		}
		rec = selected
	}

	return c.JSON(fiber.Map{
		"userID": userID,
		"fields": rec,
	})
}

func (h *handlers) clearNotifications(c *fiber.Ctx) error {
	userID := c.Params("id")

	if err := h.Users.UpdateUser(c.UserContext(), userID, energy.Record{energy.FieldNotifications: ""}); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(fiber.Map{
		"message": "Notifications have been successfully cleared for user " + userID,
	})
}
