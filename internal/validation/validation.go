package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidZip is returned when a ZIP code is not 5 digits with an optional +4 suffix.
var ErrInvalidZip = errors.New("invalid ZIP code")

// ErrInvalidCoordinates is returned when lat/lon are missing, not numbers, or out of range.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// coordinates carries the struct rules go-playground/validator enforces.
type coordinates struct {
	Lat *float64 `validate:"required,gte=-90,lte=90"`
	Lon *float64 `validate:"required,gte=-180,lte=180"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateZip trims input and checks it against the US ZIP format.
// Returns the trimmed code or ErrInvalidZip.
func ValidateZip(input string) (string, error) {
	zip := strings.TrimSpace(input)
	if !zipPattern.MatchString(zip) {
		return "", ErrInvalidZip
	}
	return zip, nil
}

// ValidateCoordinates checks latitude in [-90, 90] and longitude in [-180, 180].
// NaN and infinities are rejected.
func ValidateCoordinates(lat, lon float64) error {
	if err := validate.Struct(coordinates{Lat: &lat, Lon: &lon}); err != nil {
		return wrapFieldErrors(err)
	}
	return nil
}

// ParseCoordinates parses query-string values and validates the result.
func ParseCoordinates(latStr, lonStr string) (float64, float64, error) {
	c := coordinates{
		Lat: parseFloat(latStr),
		Lon: parseFloat(lonStr),
	}
	if err := validate.Struct(c); err != nil {
		return 0, 0, wrapFieldErrors(err)
	}
	return *c.Lat, *c.Lon, nil
}

// parseFloat returns nil for empty or unparsable input so "required" reports it.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func wrapFieldErrors(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Join(ErrInvalidCoordinates, err)
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return errors.Join(ErrInvalidCoordinates, errors.New(field+" is required and must be a number"))
	}
	return errors.Join(ErrInvalidCoordinates, errors.New(field+" must be "+fe.Tag()+" "+fe.Param()))
}
