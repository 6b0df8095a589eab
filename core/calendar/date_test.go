package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_Scan(t *testing.T) {
	want := NewDate(2024, time.May, 3)
	tests := []struct {
		name    string
		src     interface{}
		want    Date
		wantErr bool
	}{
		{name: "nil", src: nil, want: Date{}},
		{name: "string", src: "2024-05-03", want: want},
		{name: "bytes", src: []byte("2024-05-03"), want: want},
		{name: "timestamp string", src: "2024-05-03T00:00:00Z", want: want},
		{name: "time keeps its own date", src: time.Date(2024, time.May, 3, 0, 0, 0, 0, time.FixedZone("X", -5*3600)), want: want},
		{name: "garbage", src: "lol", wantErr: true},
		{name: "unsupported", src: 42, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			err := d.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Date  Date  `json:"date"`
		Maybe *Date `json:"maybe"`
	}
	d := NewDate(2024, time.February, 29)

	data, err := json.Marshal(payload{Date: d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-02-29","maybe":null}`, string(data))

	var got payload
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, d, got.Date)
	assert.Nil(t, got.Maybe)
}

func TestDate_Compare(t *testing.T) {
	a := NewDate(2024, time.May, 3)
	b := NewDate(2024, time.June, 1)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.Equal(t, 0, a.Compare(NewDate(2024, time.April, 33)))
	assert.Equal(t, 29, b.DaysSince(a))
}
