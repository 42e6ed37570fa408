package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ecoroute/ecoroute/internal/api/models"
	"github.com/ecoroute/ecoroute/internal/routing"
)

// validate is shared by all handlers; validator.Validate caches struct metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("lonlat", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag name
		_, err := routing.ParseCoordinate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("modelist", func(fl validator.FieldLevel) bool { //nolint:errcheck // static tag name
		return len(routing.ParseProfiles(fl.Field().String())) > 0
	})
	return v
}

// routeQuery is the query of GET /v1/route.
type routeQuery struct {
	Start string `query:"start" validate:"required,lonlat"`
	End   string `query:"end" validate:"required,lonlat"`
	Mode  string `query:"mode" validate:"required"`
}

// planQuery is the query of GET /v1/eco/plan and /v1/eco/compare.
type planQuery struct {
	Start string `query:"start" validate:"required,lonlat"`
	End   string `query:"end" validate:"required,lonlat"`
	Modes string `query:"modes" validate:"modelist"`
}

// pointQuery is the query of GET /v1/pollution.
type pointQuery struct {
	Lat float64 `query:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `query:"lon" validate:"gte=-180,lte=180"`
}

// defaultPlanModes is used when the modes parameter is absent.
const defaultPlanModes = "driving-car,cycling-regular,foot-walking"

func parseRouteQuery(r *http.Request) (routeQuery, []models.FieldError) {
	q := r.URL.Query()
	rq := routeQuery{
		Start: q.Get("start"),
		End:   q.Get("end"),
		Mode:  strings.TrimSpace(q.Get("mode")),
	}
	if rq.Mode == "" {
		rq.Mode = string(routing.ProfileCar)
	}
	return rq, validateStruct(rq)
}

func parsePlanQuery(r *http.Request) (planQuery, []models.FieldError) {
	q := r.URL.Query()
	pq := planQuery{
		Start: q.Get("start"),
		End:   q.Get("end"),
		Modes: defaultPlanModes,
	}
	if q.Has("modes") {
		pq.Modes = q.Get("modes")
	}
	return pq, validateStruct(pq)
}

func parsePointQuery(r *http.Request) (pointQuery, []models.FieldError) {
	q := r.URL.Query()
	var (
		pq   pointQuery
		errs []models.FieldError
	)
	for _, p := range []struct {
		name string
		dst  *float64
	}{{"lat", &pq.Lat}, {"lon", &pq.Lon}} {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			errs = append(errs, models.FieldError{Field: p.name, Message: "is required", Code: "required"})
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, models.FieldError{Field: p.name, Message: "must be a number", Code: "number"})
			continue
		}
		*p.dst = v
	}
	if len(errs) > 0 {
		return pq, errs
	}
	return pq, validateStruct(pq)
}

// coordinates converts an already validated plan query.
func (pq planQuery) coordinates() (routing.Coordinate, routing.Coordinate, error) {
	start, err := routing.ParseCoordinate(pq.Start)
	if err != nil {
		return routing.Coordinate{}, routing.Coordinate{}, fmt.Errorf("start: %w", err)
	}
	end, err := routing.ParseCoordinate(pq.End)
	if err != nil {
		return routing.Coordinate{}, routing.Coordinate{}, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

// validateStruct runs validator tags and converts failures to field errors named after the query parameter.
func validateStruct(s interface{}) []models.FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []models.FieldError{{Field: "query", Message: err.Error()}}
	}

	out := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, models.FieldError{
			Field:   queryName(fe),
			Message: fieldMessage(fe),
			Code:    fe.Tag(),
		})
	}
	return out
}

func queryName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "lonlat":
		return "must be 'lon,lat' within valid ranges"
	case "modelist":
		return "must list at least one travel mode"
	case "gte", "lte":
		return "is out of range"
	default:
		return "is invalid"
	}
}
