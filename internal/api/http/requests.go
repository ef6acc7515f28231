package httpapi

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/solar-weather-analytics/internal/common"
)

const dateLayout = "2006-01-02"

// seriesQuery holds the query parameters shared by the stored-series endpoints.
type seriesQuery struct {
	Suburb     string   `validate:"required"`
	StartDate  string   `validate:"omitempty,datetime=2006-01-02"`
	EndDate    string   `validate:"omitempty,datetime=2006-01-02"`
	Attributes []string `validate:"dive,weather_attribute"`
	Aggregates string
	History    bool

	from, to time.Time
}

func bindSeriesQuery(c *fiber.Ctx) (seriesQuery, error) {
	q := seriesQuery{
		Suburb:     c.Query("suburb"),
		StartDate:  c.Query("startDate"),
		EndDate:    c.Query("endDate"),
		Attributes: common.SplitList(c.Query("attributes")),
		Aggregates: c.Query("aggregates"),
		History:    c.QueryBool("history", false),
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	if q.StartDate != "" {
		q.from, _ = time.Parse(dateLayout, q.StartDate)
	}
	if q.EndDate != "" {
		q.to, _ = time.Parse(dateLayout, q.EndDate)
	}
	if !q.from.IsZero() && !q.to.IsZero() && q.to.Before(q.from) {
		return q, fmt.Errorf("%w: endDate %s is before startDate %s", errBadRequest, q.EndDate, q.StartDate)
	}
	return q, nil
}
