package lpci

import (
	"bytes"
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	res := &Results{
		Alpha:     0.1,
		Quantiles: []float64{0.025, 0.075, 0.925, 0.975},
		Rows: []Row{
			{
				Unit: "ca", Period: 2015, Split: 0,
				Pred: 10, Actual: 10.4,
				QuantilePreds: []float64{-2, -1, 1, 2},
				LowerResidual: -1, UpperResidual: 1,
				LowerProb: 0.075, UpperProb: 0.925,
				Lower: 9, Upper: 11,
			},
			{
				Unit: "ca", Period: 2016, Split: 1,
				Pred: 10, Actual: math.NaN(),
				QuantilePreds: []float64{-2, -1, 1, 2},
				LowerResidual: -1, UpperResidual: 1,
				LowerProb: 0.075, UpperProb: 0.925,
				Lower: 9, Upper: 11,
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, res.WriteJSON(&buf))

	var decoded struct {
		Alpha     float64   `json:"alpha"`
		Quantiles []float64 `json:"quantiles"`
		Rows      []struct {
			Unit   string   `json:"unit"`
			Period int      `json:"period"`
			Actual *float64 `json:"actual"`
			Lower  float64  `json:"lower"`
			Upper  float64  `json:"upper"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, 0.1, decoded.Alpha)
	assert.Equal(t, res.Quantiles, decoded.Quantiles)
	require.Len(t, decoded.Rows, 2)

	require.NotNil(t, decoded.Rows[0].Actual)
	assert.Equal(t, 10.4, *decoded.Rows[0].Actual)
	assert.Equal(t, 9.0, decoded.Rows[0].Lower)

	// a NaN actual serializes as null rather than breaking the encoder
	assert.Nil(t, decoded.Rows[1].Actual)
	assert.Equal(t, "ca", decoded.Rows[1].Unit)
	assert.Equal(t, 2016, decoded.Rows[1].Period)
}
