package fields

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlcks7456/diaryCleaning/pkg/contracts/domain"
)

func TestSplitPair(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Pair
		wantErr bool
	}{
		{"canonical", "3|15", Pair{3, 15}, false},
		{"zero padded", "03|05", Pair{3, 5}, false},
		{"whitespace", " 12 | 1 ", Pair{12, 1}, false},
		{"negative is still an int", "-1|2", Pair{-1, 2}, false},
		{"missing separator", "315", Pair{}, true},
		{"too many parts", "1|2|3", Pair{}, true},
		{"empty", "", Pair{}, true},
		{"non numeric left", "a|2", Pair{}, true},
		{"non numeric right", "1|b", Pair{}, true},
		{"float half", "1.5|2", Pair{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitPair(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairRoundTrip(t *testing.T) {
	for _, packed := range []string{"1|1", "3|15", "12|31", "0|0", "23|59", "9|5"} {
		p, err := SplitPair(packed)
		require.NoError(t, err)
		assert.Equal(t, packed, p.String(), "round trip of %q", packed)
	}
}

func TestParseDate(t *testing.T) {
	p, err := ParseDate("3|15")
	require.NoError(t, err)
	assert.Equal(t, Pair{3, 15}, p)

	_, err = ParseDate("13|1")
	assert.ErrorContains(t, err, "month 13")
	_, err = ParseDate("1|0")
	assert.ErrorContains(t, err, "day 0")
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    domain.Clock
		wantErr string
	}{
		{"14|30", domain.Clock{Hour: 14, Minute: 30}, ""},
		{"0|0", domain.Clock{}, ""},
		{"23|59", domain.Clock{Hour: 23, Minute: 59}, ""},
		{"24|0", domain.Clock{}, "hour 24"},
		{"10|60", domain.Clock{}, "minute 60"},
		{"10:30", domain.Clock{}, "expected"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrder(t *testing.T) {
	n, err := ParseOrder(" 4 ")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = ParseOrder("7.0")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = ParseOrder("7.5")
	assert.Error(t, err)
	_, err = ParseOrder("first")
	assert.Error(t, err)
}

func TestFieldErrors(t *testing.T) {
	var errs FieldErrors
	assert.NoError(t, errs.Err())

	errs.Add(4, "Q1", "3-15", errors.New("expected int|int"))
	errs.Add(9, "Q4", "25|00", errors.New("hour 25 out of range"))

	err := errs.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 malformed fields")
	assert.Contains(t, err.Error(), `row 4 column Q1 value "3-15"`)

	var fe FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 9, fe[1].RowID)
	assert.Equal(t, "Q4", fe[1].Column)
}

func TestFieldErrorsTruncatesMessage(t *testing.T) {
	var errs FieldErrors
	for i := 1; i <= 8; i++ {
		errs.Add(i, "Q2", "x", errors.New("expected an integer"))
	}
	assert.Contains(t, errs.Error(), "and 3 more")
	assert.NotContains(t, errs.Error(), "row 7")
}
