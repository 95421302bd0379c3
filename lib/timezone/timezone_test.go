package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	cases := []struct {
		now    time.Time
		expect time.Time
	}{
		{
			now:    time.Date(2021, time.March, 3, 14, 15, 0, 0, Location),
			expect: time.Date(2021, time.March, 3, 0, 0, 0, 0, Location),
		},
		{
			now:    time.Date(2021, time.March, 3, 0, 0, 0, 0, Location),
			expect: time.Date(2021, time.March, 3, 0, 0, 0, 0, Location),
		},
		{
			// 2:30 UTC is still the previous day on the site
			now:    time.Date(2021, time.March, 4, 2, 30, 0, 0, time.UTC).In(Location),
			expect: time.Date(2021, time.March, 3, 0, 0, 0, 0, Location),
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expect, StartOfDay(test.now))
	}
}

func TestToday(t *testing.T) {
	today := Today()
	require.Equal(t, Location, today.Location())
	require.Zero(t, today.Hour())
	require.Zero(t, today.Minute())
}
