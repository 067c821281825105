package ingest

import (
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fibivi/internal/contracts"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	raw, err := os.ReadFile("testdata/sleep_score.csv")
	require.NoError(t, err)

	env := EncodeEnvelope("", raw)
	assert.True(t, len(env) > len(DefaultEnvelopeMeta))

	got, err := DecodeEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestDecodeEnvelope_SplitsOnFirstComma(t *testing.T) {
	content := []byte("a,b,c\n1,2,3\n")
	payload := "data:text/csv;name=x,y;base64," + base64.StdEncoding.EncodeToString(content)

	// The metadata itself holds a comma: everything after the first one is content,
	// which is then not valid base64.
	_, err := DecodeEnvelope([]byte(payload))
	assert.ErrorIs(t, err, contracts.ErrMalformedEnvelope)

	got, err := DecodeEnvelope([]byte("meta," + base64.StdEncoding.EncodeToString(content)))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDecodeEnvelope_Unpadded(t *testing.T) {
	content := []byte("ab")
	got, err := DecodeEnvelope([]byte("m," + base64.RawStdEncoding.EncodeToString(content)))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"no separator", "data:text/csv;base64"},
		{"invalid base64", "data:text/csv;base64,!!!not-base64!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.payload))
			assert.ErrorIs(t, err, contracts.ErrMalformedEnvelope)
		})
	}
}

func TestDecode(t *testing.T) {
	raw, err := os.ReadFile("testdata/sleep_score.csv")
	require.NoError(t, err)

	ds, err := Decode(EncodeEnvelope(DefaultEnvelopeMeta, raw))
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())

	_, err = Decode([]byte("no-comma"))
	assert.ErrorIs(t, err, contracts.ErrMalformedEnvelope)
}
