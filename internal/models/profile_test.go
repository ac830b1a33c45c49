package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfileIsValid(t *testing.T) {
	require.NoError(t, DefaultProfile().Validate())
}

func TestValidateRejectsUnknownEnumsAndNonPositiveNumbers(t *testing.T) {
	p := DefaultProfile()
	p.Age = 0
	p.Sex = "other"
	p.FastingType = "8-16"

	err := p.Validate()
	require.ErrorIs(t, err, ErrInvalidProfile)
	assert.Contains(t, err.Error(), "age must be positive")
	assert.Contains(t, err.Error(), `unknown sex "other"`)
	assert.Contains(t, err.Error(), `unknown fasting window "8-16"`)
}

func TestFastingWindowBounds(t *testing.T) {
	start, end, ok := FastingNoonToEight.Bounds()
	assert.True(t, ok)
	assert.Equal(t, "12:00", start)
	assert.Equal(t, "20:00", end)

	start, end, ok = FastingNineToFive.Bounds()
	assert.True(t, ok)
	assert.Equal(t, "09:00", start)
	assert.Equal(t, "17:00", end)

	_, _, ok = FastingNone.Bounds()
	assert.False(t, ok)
}
