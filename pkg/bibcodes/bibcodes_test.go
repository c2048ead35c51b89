package bibcodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	valid := []string{
		"2019ApJ...886...76D",
		"2020MNRAS.492.2285S",
		"2019arXiv190905032D",
		"1975CMaPh..43..199H",
		"2004PhRvL..93y0602C",
	}
	for _, bibcode := range valid {
		assert.True(t, Valid(bibcode), bibcode)
	}

	invalid := []string{
		"",
		"not-a-bibcode",
		"2019ApJ...886...76",    // too short
		"2019ApJ...886...76DX",  // too long
		"0019ApJ...886...76D",   // year cannot start with 0
		"2019Ap#...886...76D",   // bad journal character
		"2019ApJ...88a...76D",   // letter in volume
		"2019ApJ...886...76d",   // lowercase author initial
	}
	for _, bibcode := range invalid {
		assert.False(t, Valid(bibcode), bibcode)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "2019ApJ...886...76D", Normalize("  2019ApJ...886...76D\n"))
	assert.Equal(t, "2019ApJ...886...76D", Normalize("2019ApJ...886...76D"))
}
