package energy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/solar-weather-analytics/internal/common"
)

// User record field names.
const (
	FieldSuburb                = "suburb"
	FieldEmail                 = "email"
	FieldSurfaceArea           = "surface_area"
	FieldTempCoefficient       = "temp_coefficient"
	FieldDaylightCoefficient   = "daylight_coefficient"
	FieldProductionCoefficient = "production_coefficient"
	FieldQuarterlyConsumption  = "quarterly_energy_consumption"
	FieldUpperLimit            = "upper_limit"
	FieldLowerLimit            = "lower_limit"
	FieldReceiveEmails         = "receive_emails"
	FieldNotifications         = "notifications"
)

// ErrInvalidRecord is returned when a user record field cannot be parsed.
var ErrInvalidRecord = errors.New("invalid user record")

// Record is a user record as held by the user store: field name to string value.
type Record map[string]string

// UserStore is the document-table contract for user records.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (Record, error)
	UpdateUser(ctx context.Context, userID string, fields Record) error
	ListUsers(ctx context.Context) ([]string, error)
}

// UserWriter creates or replaces whole user records.
type UserWriter interface {
	PutUser(ctx context.Context, userID string, rec Record) error
}

// Quarter holds one quarter's observations. Nil fields were not recorded.
type Quarter struct {
	Output      *float64 // q{n}_w: energy consumed or produced
	Temperature *float64 // q{n}_t
	Daylight    *float64 // q{n}_d
	Radiation   *float64 // q{n}_r
}

// Profile is the parsed form of a user record.
type Profile struct {
	UserID      string
	Suburb      string
	Email       string
	SurfaceArea *float64

	Quarters [4]Quarter

	TempCoefficient       float64
	DaylightCoefficient   float64
	ProductionCoefficient []float64
	QuarterlyConsumption  []float64

	UpperLimit    *float64
	LowerLimit    *float64
	ReceiveEmails bool
	Notifications []string
}

// ParseProfile converts a user record into a Profile.
func ParseProfile(userID string, rec Record) (Profile, error) {
	p := Profile{
		UserID:        userID,
		Suburb:        rec[FieldSuburb],
		Email:         rec[FieldEmail],
		ReceiveEmails: rec[FieldReceiveEmails] == "true",
	}

	var err error
	if p.SurfaceArea, err = optionalFloat(rec, FieldSurfaceArea); err != nil {
		return Profile{}, err
	}
	if p.UpperLimit, err = optionalFloat(rec, FieldUpperLimit); err != nil {
		return Profile{}, err
	}
	if p.LowerLimit, err = optionalFloat(rec, FieldLowerLimit); err != nil {
		return Profile{}, err
	}

	for i := range p.Quarters {
		q := &p.Quarters[i]
		n := i + 1
		if q.Output, err = optionalFloat(rec, fmt.Sprintf("q%d_w", n)); err != nil {
			return Profile{}, err
		}
		if q.Temperature, err = optionalFloat(rec, fmt.Sprintf("q%d_t", n)); err != nil {
			return Profile{}, err
		}
		if q.Daylight, err = optionalFloat(rec, fmt.Sprintf("q%d_d", n)); err != nil {
			return Profile{}, err
		}
		if q.Radiation, err = optionalFloat(rec, fmt.Sprintf("q%d_r", n)); err != nil {
			return Profile{}, err
		}
	}

	if v, err := optionalFloat(rec, FieldTempCoefficient); err != nil {
		return Profile{}, err
	} else if v != nil {
		p.TempCoefficient = *v
	}
	if v, err := optionalFloat(rec, FieldDaylightCoefficient); err != nil {
		return Profile{}, err
	} else if v != nil {
		p.DaylightCoefficient = *v
	}

	if p.ProductionCoefficient, err = floatList(rec, FieldProductionCoefficient); err != nil {
		return Profile{}, err
	}
	if p.QuarterlyConsumption, err = floatList(rec, FieldQuarterlyConsumption); err != nil {
		return Profile{}, err
	}

	if raw := rec[FieldNotifications]; raw != "" {
		p.Notifications = strings.Split(raw, "\n")
	}

	return p, nil
}

// Record renders the profile back into record fields. Unset optional values are left out.
func (p Profile) Record() Record {
	rec := Record{}
	setString := func(field, v string) {
		if v != "" {
			rec[field] = v
		}
	}
	setFloat := func(field string, v *float64) {
		if v != nil {
			rec[field] = FormatFloat(*v)
		}
	}

	setString(FieldSuburb, p.Suburb)
	setString(FieldEmail, p.Email)
	setFloat(FieldSurfaceArea, p.SurfaceArea)
	setFloat(FieldUpperLimit, p.UpperLimit)
	setFloat(FieldLowerLimit, p.LowerLimit)
	rec[FieldReceiveEmails] = strconv.FormatBool(p.ReceiveEmails)

	for i, q := range p.Quarters {
		n := i + 1
		setFloat(fmt.Sprintf("q%d_w", n), q.Output)
		setFloat(fmt.Sprintf("q%d_t", n), q.Temperature)
		setFloat(fmt.Sprintf("q%d_d", n), q.Daylight)
		setFloat(fmt.Sprintf("q%d_r", n), q.Radiation)
	}

	if p.TempCoefficient != 0 {
		rec[FieldTempCoefficient] = FormatFloat(p.TempCoefficient)
	}
	if p.DaylightCoefficient != 0 {
		rec[FieldDaylightCoefficient] = FormatFloat(p.DaylightCoefficient)
	}
	setString(FieldProductionCoefficient, FormatList(p.ProductionCoefficient))
	setString(FieldQuarterlyConsumption, FormatList(p.QuarterlyConsumption))
	setString(FieldNotifications, FormatNotifications(p.Notifications))
	return rec
}

// FormatFloat renders a float the way record fields store numbers.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatList renders a float list the way record fields store lists.
func FormatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = FormatFloat(v)
	}
	return strings.Join(parts, ",")
}

// FormatNotifications renders notification messages, one per line.
func FormatNotifications(msgs []string) string {
	return strings.Join(msgs, "\n")
}

func optionalFloat(rec Record, field string) (*float64, error) {
	raw, ok := rec[field]
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidRecord, field, err)
	}
	return &v, nil
}

func floatList(rec Record, field string) ([]float64, error) {
	parts := common.SplitList(rec[field])
	if len(parts) == 0 {
		return nil, nil
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidRecord, field, err)
		}
		out = append(out, v)
	}
	return out, nil
}
