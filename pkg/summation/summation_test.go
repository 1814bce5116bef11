package summation_test

import (
	"testing"

	"productapi/pkg/summation"

	"github.com/stretchr/testify/assert"
)

func TestVariantsAgreeWithClosedForm(t *testing.T) {
	for _, v := range summation.Variants() {
		t.Run(v.Name, func(t *testing.T) {
			for n := 0; n <= 2000; n++ {
				if got, want := v.Func(n), n*(n+1)/2; got != want {
					t.Fatalf("%s(%d) = %d, want %d", v.Name, n, got, want)
				}
			}
		})
	}
}

func TestSumToFive(t *testing.T) {
	assert.Equal(t, 15, summation.SumToNLoop(5))
	assert.Equal(t, 15, summation.SumToNFormula(5))
	assert.Equal(t, 15, summation.SumToNRange(5))
}

func TestZeroAndNegative(t *testing.T) {
	for _, v := range summation.Variants() {
		assert.Equal(t, 0, v.Func(0), v.Name)
		assert.Equal(t, 0, v.Func(-7), v.Name)
	}
}

func TestFormulaLargeN(t *testing.T) {
	// n(n+1) alone would overflow int64 here, the halved form does not.
	n := 4_000_000_000
	assert.Equal(t, 8_000_000_002_000_000_000, summation.SumToNFormula(n))
}

func TestLookup(t *testing.T) {
	v, ok := summation.Lookup("formula")
	assert.True(t, ok)
	assert.Equal(t, 55, v.Func(10))

	_, ok = summation.Lookup("recursive")
	assert.False(t, ok)
}
