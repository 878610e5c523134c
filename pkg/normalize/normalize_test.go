package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntake(t *testing.T) {
	cases := map[string]string{
		"":            "",
		"   ":         "",
		"Sept":        "9",
		"September":   "9",
		"sep 2023":    "9",
		"January":     "1",
		"DEC":         "12",
		"9":           "9",
		"Intake 10":   "10",
		"weird token": "",
	}
	for input, want := range cases {
		assert.Equal(t, want, Intake(input), "input %q", input)
	}
}

func TestYear(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"Year 1":  "1",
		"year 2":  "2",
		"YEAR 3":  "3",
		"2":       "2",
		" Year1 ": "1",
		"Final":   "final",
	}
	for input, want := range cases {
		assert.Equal(t, want, Year(input), "input %q", input)
	}
}
