package models

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiteral(t *testing.T) {
	t.Run("should keep the text as entered", func(t *testing.T) {
		for _, in := range []string{"0.50", "8.0", "1e1", "150.00", "-20"} {
			lit, err := ParseLiteral(in)
			require.NoError(t, err)
			assert.Equal(t, in, lit.String())

			data, err := json.Marshal(lit)
			require.NoError(t, err)
			assert.Equal(t, `"`+in+`"`, string(data))
		}
	})

	t.Run("should reject non numeric text", func(t *testing.T) {
		for _, in := range []string{"", "abc", "1,5"} {
			_, err := ParseLiteral(in)
			assert.Error(t, err, in)
		}
	})

	t.Run("should decode strings and numbers verbatim", func(t *testing.T) {
		var v struct {
			A Literal `json:"a"`
			B Literal `json:"b"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"a":"0.50","b":8.0}`), &v))
		assert.Equal(t, Literal("0.50"), v.A)
		assert.Equal(t, Literal("8.0"), v.B)

		d, err := v.B.Decimal()
		require.NoError(t, err)
		assert.Equal(t, "8", d.String())
	})
}
