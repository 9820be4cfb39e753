package farmapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/inventory"
)

// ErrInvalidBoundary is returned when a parcel's ring fails local checks.
var ErrInvalidBoundary = errors.New("invalid parcel boundary")

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// ID is an opaque identifier. The API may send numbers or strings; both decode.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Parcel is a parcel as returned by the API. Area and Perimeter are computed by the
// server and are authoritative.
type Parcel struct {
	Area      *float64     `json:"area,omitempty"`
	Perimeter *float64     `json:"perimeter,omitempty"`
	ID        ID           `json:"id"`
	Name      string       `json:"name"`
	Culture   string       `json:"culture"`
	SoilType  string       `json:"soil_type"`
	Boundary  geo.Boundary `json:"boundary"`
}

// ParcelInput is the create/update body.
type ParcelInput struct {
	Name     string       `json:"name" validate:"required,max=255"`
	Culture  string       `json:"culture" validate:"max=100"`
	SoilType string       `json:"soil_type" validate:"max=100"`
	Boundary geo.Boundary `json:"boundary"`
}

// Validate runs the local checks made before any network call: a name, and a closed
// ring with at least three distinct vertices that does not cross itself. Field
// errors are returned as validator.ValidationErrors, ring errors wrap
// ErrInvalidBoundary.
func (in ParcelInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return err
	}
	if err := in.Boundary.Ring.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBoundary, err)
	}
	return nil
}

// Credentials authenticate a user.
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Registration creates an account.
type Registration struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// User is a registered account.
type User struct {
	ID        ID     `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Personnel is a farm worker.
type Personnel struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	ID        ID       `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      string   `json:"role"`
	Phone     string   `json:"phone,omitempty"`
}

// FullName joins first and last name.
func (p Personnel) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Equipment is a machine or tool.
type Equipment struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	ID        ID       `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Status    string   `json:"status"`
}

// Input is a consumable with stock levels.
type Input struct {
	inventory.Level
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Unit     string `json:"unit"`
	Category string `json:"category,omitempty"`
}

// Operation is a scheduled field operation.
type Operation struct {
	ID          ID     `json:"id"`
	Type        string `json:"operation_type"`
	Parcel      ID     `json:"parcel"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

// ScheduledOn parses Date, which the API sends as a plain date or an RFC 3339
// timestamp.
func (o Operation) ScheduledOn() (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, o.Date); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, o.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("operation %s: unparseable date %q", o.ID, o.Date)
	}
	return t, nil
}

// Position returns explicit coordinates when both are present and valid.
func Position(lat, lng *float64) *geo.Coordinate {
	if lat == nil || lng == nil {
		return nil
	}
	c := geo.LatLng(*lat, *lng)
	if c.Validate() != nil {
		return nil
	}
	return &c
}
