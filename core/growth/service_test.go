package growth

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendancePoints(t *testing.T) {
	tests := []struct {
		absences int
		want     float64
	}{
		{0, 30},
		{1, 30},
		{2, 27.5},
		{7, 15},
		{13, 0},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, AttendancePoints(tc.absences), 1e-9, "absences=%d", tc.absences)
	}
}

func TestEvangelismPoints(t *testing.T) {
	assert.Equal(t, 0, EvangelismPoints(0))
	assert.Equal(t, 10, EvangelismPoints(2))
	assert.Equal(t, 15, EvangelismPoints(3))
	assert.Equal(t, 15, EvangelismPoints(5))
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		in        Input
		wantTotal int
		wantTier  string
	}{
		{name: "defaults", in: DefaultInput(), wantTotal: 79, wantTier: TierPass},
		{
			name:      "perfect",
			in:        Input{Absences: 0, Bible: 20, Prayer: 15, Evangelism: 5, Service: 10, Special: 10},
			wantTotal: 100,
			wantTier:  TierS,
		},
		{
			name:      "exactly 90",
			in:        Input{Absences: 1, Bible: 20, Prayer: 15, Evangelism: 1, Service: 10, Special: 10},
			wantTotal: 90,
			wantTier:  TierS,
		},
		{
			name:      "rounds half up",
			in:        Input{Absences: 2, Bible: 15, Prayer: 8, Evangelism: 0, Service: 10, Special: 10},
			wantTotal: 71, // 27.5 + 43
			wantTier:  TierPass,
		},
		{
			name:      "fail",
			in:        Input{Absences: 13, Bible: 5, Prayer: 0, Evangelism: 0, Service: 3, Special: 3},
			wantTotal: 11,
			wantTier:  TierFail,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			score, err := Calculate(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantTotal, score.Total)
			assert.Equal(t, tc.wantTier, score.Tier.Code)
		})
	}
}

func TestCalculate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{name: "absences over 13", in: Input{Absences: 14, Bible: 20, Prayer: 15, Service: 7, Special: 7}, field: "absences"},
		{name: "bible off choices", in: Input{Bible: 12, Prayer: 15, Service: 7, Special: 7}, field: "bible"},
		{name: "prayer off choices", in: Input{Bible: 20, Prayer: 10, Service: 7, Special: 7}, field: "prayer"},
		{name: "service off choices", in: Input{Bible: 20, Prayer: 15, Service: 5, Special: 7}, field: "service"},
		{name: "negative evangelism", in: Input{Bible: 20, Prayer: 15, Evangelism: -1, Service: 7, Special: 7}, field: "evangelism"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.in)
			require.Error(t, err)
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tc.field, vErrs[0].Field())
		})
	}
}

func TestFormatWon(t *testing.T) {
	assert.Equal(t, "₩25,000", FormatWon(25000))
	assert.Equal(t, "₩500", FormatWon(500))
}

func TestGetCriteria(t *testing.T) {
	c := GetCriteria()
	var total int
	for _, cr := range c.Criteria {
		total += cr.Points
	}
	assert.Equal(t, 100, total)
	assert.Equal(t, "₩20,000", c.Rewards[2].AmountText)
}
