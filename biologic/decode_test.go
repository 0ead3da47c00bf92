package biologic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32bits(f float32) uint32 { return math.Float32bits(f) }

func TestConvertOCVTimeSeries(t *testing.T) {
	// one row: ticks=1000 (timebase 1e-3 -> 1.0s), Ewe=0.5V, I=0.01A.
	words := []uint32{1000, 0, f32bits(0.5), f32bits(0.01)}
	raw := DataBuffer{ProcessIndex: ProcessTimeSeries, Rows: 1, Cols: 4, Words: words}

	converted, err := Convert(TechniqueOCV, ProcessTimeSeries, raw, 1e-3)
	require.NoError(t, err)
	require.Len(t, converted.Columns, 3)
	assert.Equal(t, "Time", converted.Columns[0].Name)
	assert.InDelta(t, 1.0, converted.Columns[0].Values[0], 1e-9)
	assert.InDelta(t, 0.5, converted.Columns[1].Values[0], 1e-6)
	assert.InDelta(t, 0.01, converted.Columns[2].Values[0], 1e-6)
}

func TestConvertImpedanceComputesReIm(t *testing.T) {
	cols := 15
	words := make([]uint32, cols)
	words[0] = f32bits(1000)  // Frequency
	words[1] = f32bits(0.1)   // |Ewe|
	words[2] = f32bits(0.01)  // |I|
	words[3] = f32bits(45)    // Phase_Zwe degrees
	words[13] = 500           // time ticks (single word per §9's resolution)

	raw := DataBuffer{ProcessIndex: ProcessImpedance, Rows: 1, Cols: cols, Words: words}
	converted, err := Convert(TechniquePEIS, ProcessImpedance, raw, 1e-3)
	require.NoError(t, err)
	require.Len(t, converted.Columns, 11)

	magnitude := 0.1 / 0.01
	wantRe := magnitude * math.Cos(45*math.Pi/180)
	wantIm := magnitude * math.Sin(45*math.Pi/180)

	var re, im, timeCol float64
	for _, c := range converted.Columns {
		switch c.Name {
		case "Re(Zwe)":
			re = c.Values[0]
		case "Im(Zwe)":
			im = c.Values[0]
		case "Time":
			timeCol = c.Values[0]
		}
	}
	assert.InDelta(t, wantRe, re, 1e-6)
	assert.InDelta(t, wantIm, im, 1e-6)
	assert.InDelta(t, 0.5, timeCol, 1e-9)
}

func TestConvertSPEISAddsStepColumn(t *testing.T) {
	cols := 16
	words := make([]uint32, cols)
	words[0] = f32bits(1000)
	words[1] = f32bits(0.1)
	words[2] = f32bits(0.01)
	words[15] = f32bits(3) // Step

	raw := DataBuffer{ProcessIndex: ProcessImpedance, Rows: 1, Cols: cols, Words: words}
	converted, err := Convert(TechniqueSPEIS, ProcessImpedance, raw, 1e-3)
	require.NoError(t, err)
	require.Len(t, converted.Columns, 12)
	assert.Equal(t, "Step", converted.Columns[11].Name)
	assert.InDelta(t, 3, converted.Columns[11].Values[0], 1e-6)
}

func TestConvertUnknownTechniquePassesThrough(t *testing.T) {
	raw := DataBuffer{Rows: 2, Cols: 3, Words: []uint32{1, 2, 3, 4, 5, 6}}
	converted, err := Convert(Technique(99), ProcessTimeSeries, raw, 1e-3)
	require.NoError(t, err)
	require.Len(t, converted.Columns, 3)
	for _, c := range converted.Columns {
		assert.Empty(t, c.Name)
	}
	assert.Equal(t, []float64{1, 4}, converted.Columns[0].Values)
}

func TestConvertEmptyBufferErrors(t *testing.T) {
	_, err := Convert(TechniqueOCV, ProcessTimeSeries, DataBuffer{}, 1e-3)
	assert.Error(t, err)
}
