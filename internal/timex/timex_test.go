package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: `"1500ms"`, want: 1500 * time.Millisecond},
		{name: "nanoseconds", in: `1000000000`, want: time.Second},
		{name: "bad string", in: `"soon"`, wantErr: true},
		{name: "bool", in: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 2 * time.Minute})
	require.NoError(t, err)
	assert.Equal(t, `"2m0s"`, string(b))
}

func TestMonotonicClock_NeverGoesBackwards(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ticks := []time.Time{base, base.Add(time.Second), base.Add(-time.Hour), base.Add(2 * time.Second)}
	i := 0
	c := NewMonotonicClock(ClockFunc(func() time.Time {
		v := ticks[i]
		i++
		return v
	}))

	assert.Equal(t, base, c.Now())
	assert.Equal(t, base.Add(time.Second), c.Now())
	assert.Equal(t, base.Add(time.Second), c.Now(), "earlier source value is clamped")
	assert.Equal(t, base.Add(2*time.Second), c.Now())
}

func TestMonotonicClock_TruncatesToPrecision(t *testing.T) {
	src := time.Date(2026, 1, 2, 3, 4, 5, 123456789, time.FixedZone("X", 3600))
	c := NewMonotonicClock(ClockFunc(func() time.Time { return src }))

	got := c.Now()
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123456000, got.Nanosecond())
}
