package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/followup"
)

const (
	lookbackWeeksParam  = "lookbackWeeks"
	minConsecutiveParam = "minConsecutive"
	dateParam           = "date"
)

// FollowUpQuery holds the optional query parameters of a follow-up list.
// Absent parameters keep the configured defaults.
type FollowUpQuery struct {
	LookbackWeeks  *int
	MinConsecutive *int
	Date           *calendar.Date
}

func (q *FollowUpQuery) Bind(ctx echo.Context) error {
	var flds []core.FieldError

	intParam := func(name string) *int {
		val := ctx.QueryParam(name)
		if val == "" {
			return nil
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			flds = append(flds, core.FieldError{Field: name, Error: name + " must be an integer"})
			return nil
		}
		return &n
	}
	q.LookbackWeeks = intParam(lookbackWeeksParam)
	q.MinConsecutive = intParam(minConsecutiveParam)

	if val := ctx.QueryParam(dateParam); val != "" {
		d, err := calendar.ParseDate(val)
		if err != nil {
			flds = append(flds, core.FieldError{Field: dateParam, Error: dateParam + " must be a YYYY-MM-DD date"})
		} else {
			q.Date = &d
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Apply overrides the defaults with the parameters that were given.
func (q FollowUpQuery) Apply(opts followup.Options) followup.Options {
	if q.LookbackWeeks != nil {
		opts.LookbackWeeks = *q.LookbackWeeks
	}
	if q.MinConsecutive != nil {
		opts.MinConsecutive = *q.MinConsecutive
	}
	if q.Date != nil {
		opts.ReferenceDate = *q.Date
	}
	return opts
}
