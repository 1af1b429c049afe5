package months

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLastDay(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2024, time.February, 1), date(2024, time.February, 29)},
		{date(2023, time.February, 1), date(2023, time.February, 28)},
		{date(2024, time.December, 1), date(2024, time.December, 31)},
		{date(2024, time.April, 17), date(2024, time.April, 30)},
		{date(1900, time.February, 10), date(1900, time.February, 28)},
		{date(2000, time.February, 10), date(2000, time.February, 29)},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LastDay(tc.in), tc.in.String())
	}
}

func TestLastCompleted(t *testing.T) {
	assert.Equal(t, date(2025, time.April, 1), LastCompleted(date(2025, time.May, 8)))
	assert.Equal(t, date(2025, time.April, 1), LastCompleted(time.Date(2025, time.May, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, date(2025, time.May, 1), LastCompleted(date(2025, time.June, 1)))
	assert.Equal(t, date(2024, time.December, 1), LastCompleted(date(2025, time.January, 15)))
}

func TestParseAndLabel(t *testing.T) {
	m, err := Parse("2024-03")
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 1), m)
	assert.Equal(t, "2024-03", Label(m))

	_, err = Parse("2024-13")
	assert.Error(t, err)
	_, err = Parse("March")
	assert.Error(t, err)
}

func TestBetween(t *testing.T) {
	got := Between(date(2024, time.January, 1), date(2024, time.March, 1))
	require.Len(t, got, 3)
	assert.Equal(t, "2024-01", Label(got[0]))
	assert.Equal(t, "2024-02", Label(got[1]))
	assert.Equal(t, "2024-03", Label(got[2]))

	assert.Len(t, Between(date(2023, time.November, 20), date(2024, time.February, 3)), 4)
	assert.Len(t, Between(date(2024, time.May, 1), date(2024, time.May, 31)), 1)
	assert.Nil(t, Between(date(2024, time.May, 1), date(2024, time.April, 1)))
}
