package countries

import (
	"testing"

	"github.com/Veraticus/osm-powerplants/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		token string
		code  string
		name  string
	}{
		{"Germany", "DE", "Germany"},
		{"germany", "DE", "Germany"},
		{"DE", "DE", "Germany"},
		{"DEU", "DE", "Germany"},
		{"France", "FR", "France"},
		{"fr", "FR", "France"},
		{"Malta", "MT", "Malta"},
		{"Czech Republic", "CZ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			c, ok := Lookup(tt.token)
			require.True(t, ok)
			assert.Equal(t, tt.code, c.Alpha2)
			if tt.name != "" {
				assert.Equal(t, tt.name, c.Name)
			}
		})
	}

	_, ok := Lookup("InvalidCountry")
	assert.False(t, ok)
	_, ok = Lookup("")
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	for _, c := range All() {
		byName, ok := Lookup(c.Name)
		require.True(t, ok, c.Name)
		assert.Equal(t, c, byName)

		byAlpha2, ok := Lookup(c.Alpha2)
		require.True(t, ok, c.Alpha2)
		assert.Equal(t, c, byAlpha2)

		byAlpha3, ok := Lookup(c.Alpha3)
		require.True(t, ok, c.Alpha3)
		assert.Equal(t, c, byAlpha3)
	}
}

func TestStandardName(t *testing.T) {
	name, ok := StandardName("DE")
	require.True(t, ok)
	assert.Equal(t, "Germany", name)

	name, ok = StandardName("FR")
	require.True(t, ok)
	assert.Equal(t, "France", name)
}

func TestValidate(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		got, err := Validate([]string{"Germany", "France"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "DE", got[0].Alpha2)
		assert.Equal(t, "FR", got[1].Alpha2)
	})

	t.Run("iso codes", func(t *testing.T) {
		got, err := Validate([]string{"DE", "FR", "ES"})
		require.NoError(t, err)
		assert.Equal(t, "ES", got[2].Alpha2)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Validate([]string{"Germany", "InvalidCountryName"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid")
		assert.Contains(t, err.Error(), "InvalidCountryName")
		assert.ErrorIs(t, err, model.ErrInvalidRegion)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Validate(nil)
		assert.ErrorIs(t, err, model.ErrInvalidRegion)
	})
}

func TestCountry_Region(t *testing.T) {
	c, ok := Lookup("Luxembourg")
	require.True(t, ok)

	r := c.Region()
	assert.Equal(t, model.RegionCountry, r.Kind)
	assert.Equal(t, "LU", r.CountryCode)
	assert.Equal(t, "Luxembourg", r.Name)
	assert.NoError(t, r.Validate())
}
