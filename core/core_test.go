package core_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/tests"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")

	assert.Nil(t, core.NewDataAccessError(nil, "listing people"))

	daErr := errors.Wrap(core.NewDataAccessError(cause, "listing people"), "computing follow-up")
	assert.True(t, core.IsDataAccess(daErr))
	assert.False(t, core.IsConflict(daErr))
	assert.True(t, errors.Is(daErr, cause))
	assert.EqualError(t, daErr, "computing follow-up: listing people: connection refused")

	conflict := core.NewConflictError(cause)
	assert.True(t, core.IsConflict(conflict))
	assert.False(t, core.IsShutdown(conflict))

	assert.True(t, core.IsShutdown(errors.Wrap(core.NewShutdownError("integrity issue"), "serving")))

	vErr := core.NewValidationError(nil, core.FieldError{Field: "lookbackWeeks", Error: "must be 1 or greater"})
	assert.EqualError(t, vErr, "lookbackWeeks: must be 1 or greater")
}

func TestFollowUpConfig_Validate(t *testing.T) {
	validate, translator := testutil.NewValidator()

	tests := []struct {
		name       string
		modify     func(fc *core.FollowUpConfig)
		wantFields []string
	}{
		{name: "defaults", modify: func(*core.FollowUpConfig) {}},
		{name: "zero lookback", modify: func(fc *core.FollowUpConfig) { fc.LookbackWeeks = 0 }, wantFields: []string{"lookbackWeeks", "childThreshold", "servantThreshold"}},
		{name: "threshold above lookback", modify: func(fc *core.FollowUpConfig) { fc.ServantThreshold = 13 }, wantFields: []string{"servantThreshold"}},
		{name: "lookback above two years", modify: func(fc *core.FollowUpConfig) { fc.LookbackWeeks = 105 }, wantFields: []string{"lookbackWeeks"}},
		{name: "negative threshold", modify: func(fc *core.FollowUpConfig) { fc.ChildThreshold = -1 }, wantFields: []string{"childThreshold"}},
		{name: "unknown time zone", modify: func(fc *core.FollowUpConfig) { fc.TimeZone = "Mars/Olympus" }, wantFields: []string{"timeZone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := testutil.NewConfig().FollowUp
			fc.TimeZone = "UTC"
			tt.modify(&fc)

			err := core.TranslateValidationErrors(fc.Validate(validate), translator)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
			var fields []string
			for _, fld := range vErr.Fields {
				fields = append(fields, fld.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}
