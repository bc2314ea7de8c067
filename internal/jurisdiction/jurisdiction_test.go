package jurisdiction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected Code
	}{
		{"California", "CA"},
		{"california", "CA"},
		{"  CALIFORNIA  ", "CA"},
		{"CA", "CA"},
		{"ca", "CA"},
		{"New Mexico", "NM"},
		{"District of Columbia", "DC"},
		{"Washington DC", "DC"},
		{"Washington", "WA"},
		{"Ontario", "ON"},
		{"Québec", "QC"},
		{"Newfoundland", "NL"},
		{"Yukon", "YT"},
		{"Unknown", Unknown},
		{"UNK", Unknown},
		{"", Unknown},
		{"   ", Unknown},
		{"Puerto Rico", Unknown},
		{"Narnia", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestCoverage(t *testing.T) {
	var us, ca, ifta int
	for _, code := range All() {
		assert.Equal(t, code, Normalize(code.Name()), "name of %s must map back", code)
		switch code.Country() {
		case CountryUS:
			us++
		case CountryCA:
			ca++
		}
		if code.IsIFTA() {
			ifta++
		}
	}

	assert.Equal(t, 51, us, "50 states plus DC")
	assert.Equal(t, 13, ca)
	assert.Equal(t, 59, ifta, "48 contiguous states, DC and 10 provinces")
}

func TestCodeProperties(t *testing.T) {
	assert.True(t, Code("NV").Valid())
	assert.True(t, Code("NV").IsIFTA())
	assert.False(t, Code("AK").IsIFTA())
	assert.False(t, Code("YT").IsIFTA())
	assert.False(t, Unknown.Valid())
	assert.Equal(t, "Unknown", Unknown.Name())
	assert.Equal(t, "", Unknown.Country())
	assert.Equal(t, "Nevada", Code("NV").Name())
}

func TestUnmarshalJSONKeysAndValues(t *testing.T) {
	var miles map[Code]float64
	require.NoError(t, json.Unmarshal([]byte(`{"California": 300, "nv": 100}`), &miles))
	assert.Equal(t, map[Code]float64{"CA": 300, "NV": 100}, miles)

	var payload struct {
		Jurisdiction Code `json:"jurisdiction"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"jurisdiction": "texas"}`), &payload))
	assert.Equal(t, Code("TX"), payload.Jurisdiction)
}

func TestAllSorted(t *testing.T) {
	codes := All()
	require.Len(t, codes, 64)
	for i := 1; i < len(codes); i++ {
		assert.Less(t, string(codes[i-1]), string(codes[i]))
	}
}
