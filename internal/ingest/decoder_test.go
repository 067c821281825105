package ingest

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fibivi/internal/contracts"
)

const header = "sleep_log_entry_id,timestamp,overall_score,composition_score,revitalization_score,duration_score,deep_sleep_in_minutes,resting_heart_rate,restlessness"

func TestParseTable_Fixture(t *testing.T) {
	f, err := os.Open("testdata/sleep_score.csv")
	require.NoError(t, err)
	defer f.Close()

	ds, err := ParseTable(f)
	require.NoError(t, err)
	require.Equal(t, 5, ds.Len())

	first := ds.Records[0]
	assert.Equal(t, int64(41001), first.EntryID)
	assert.Equal(t, "2024-06-01T06:12:30Z", first.Timestamp)
	require.NotNil(t, first.OverallScore)
	assert.Equal(t, 82, *first.OverallScore)
	require.NotNil(t, first.Restlessness)
	assert.InDelta(t, 0.071, *first.Restlessness, 1e-9)

	// Empty cells are missing values
	gap := ds.Records[3]
	assert.Nil(t, gap.OverallScore)
	assert.Nil(t, gap.DeepSleepMinutes)
	assert.Nil(t, gap.Restlessness)
	require.NotNil(t, gap.CompositionScore)
	assert.Equal(t, 17, *gap.CompositionScore)
}

func TestParseTable_ColumnOrderAndExtras(t *testing.T) {
	input := "note,restlessness,resting_heart_rate,deep_sleep_in_minutes,duration_score,revitalization_score,composition_score,overall_score,timestamp,sleep_log_entry_id,hrv\n" +
		"woke early,0.1,60,90,40,18,20,80,2024-01-02T06:00:00Z,9,41.5\n"

	ds, err := ParseTable(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	rec := ds.Records[0]
	assert.Equal(t, int64(9), rec.EntryID)
	assert.Equal(t, 80, *rec.OverallScore)
	assert.Equal(t, []contracts.Field{
		{Name: "note", Value: "woke early"},
		{Name: "hrv", Value: "41.5"},
	}, rec.Extra)

	// Header order is preserved as read
	assert.Equal(t, "note", ds.Header[0])
	assert.Equal(t, "hrv", ds.Header[len(ds.Header)-1])
}

func TestParseTable_IntegralFloats(t *testing.T) {
	input := header + "\n1,2024-01-02T06:00:00Z,80.0,20,18,40,90.0,60,0.1\n"

	ds, err := ParseTable(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 80, *ds.Records[0].OverallScore)
	assert.Equal(t, 90, *ds.Records[0].DeepSleepMinutes)
}

func TestParseTable_BOM(t *testing.T) {
	input := "\ufeff" + header + "\n1,2024-01-02T06:00:00Z,80,20,18,40,90,60,0.1\n"

	ds, err := ParseTable(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, contracts.ColEntryID, ds.Header[0])
}

func TestParseTable_HeaderOnly(t *testing.T) {
	ds, err := ParseTable(strings.NewReader(header + "\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestParseTable_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantCol  string
	}{
		{
			name:  "empty input",
			input: "",
		},
		{
			name:     "missing required column",
			input:    "sleep_log_entry_id,timestamp\n1,2024-01-01\n",
			wantLine: 1,
			wantCol:  contracts.ColOverallScore,
		},
		{
			name:     "inconsistent column count",
			input:    header + "\n1,2024-01-02T06:00:00Z,80,20,18,40,90,60\n",
			wantLine: 2,
		},
		{
			name:     "non-integer score",
			input:    header + "\n1,2024-01-02T06:00:00Z,eighty,20,18,40,90,60,0.1\n",
			wantLine: 2,
			wantCol:  contracts.ColOverallScore,
		},
		{
			name:     "fractional score",
			input:    header + "\n1,2024-01-02T06:00:00Z,80.5,20,18,40,90,60,0.1\n",
			wantLine: 2,
			wantCol:  contracts.ColOverallScore,
		},
		{
			name:     "overflowing float score",
			input:    header + "\n1,2024-01-02T06:00:00Z,1e30,20,18,40,90,60,0.1\n",
			wantLine: 2,
			wantCol:  contracts.ColOverallScore,
		},
		{
			name:     "infinite score",
			input:    header + "\n1,2024-01-02T06:00:00Z,80,20,18,40,+Inf,60,0.1\n",
			wantLine: 2,
			wantCol:  contracts.ColDeepSleepMinutes,
		},
		{
			name:     "bad restlessness",
			input:    header + "\n1,2024-01-02T06:00:00Z,80,20,18,40,90,60,restless\n",
			wantLine: 2,
			wantCol:  contracts.ColRestlessness,
		},
		{
			name:     "missing entry id",
			input:    header + "\n,2024-01-02T06:00:00Z,80,20,18,40,90,60,0.1\n",
			wantLine: 2,
			wantCol:  contracts.ColEntryID,
		},
		{
			name:     "duplicate column",
			input:    header + ",overall_score\n",
			wantLine: 1,
			wantCol:  contracts.ColOverallScore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrMalformedTable)

			var te *contracts.TableError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.wantLine, te.Line)
			if tt.wantCol != "" {
				assert.Equal(t, tt.wantCol, te.Column)
			}
		})
	}
}
