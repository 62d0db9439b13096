package sqlguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFieldName(t *testing.T) {
	tests := []struct {
		name            string
		field           string
		expectInjection bool
	}{
		{name: "dbf style name", field: "YEAR_BUILT"},
		{name: "lower case name", field: "height"},
		{name: "name with spaces", field: "Lot Area"},
		{name: "empty name", field: ""},
		{name: "apostrophe in name", field: "O'Brien"},
		{name: "tautology", field: "' OR '1'='1", expectInjection: true},
		{name: "drop table", field: "'; DROP TABLE sites--", expectInjection: true},
		{name: "union select", field: "1 UNION SELECT * FROM passwords", expectInjection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckFieldName(tt.field)
			if !tt.expectInjection {
				assert.Nil(t, result)
				return
			}
			require.NotNil(t, result)
			assert.True(t, result.IsSQLi)
			assert.Equal(t, tt.field, result.Name)
			assert.NotEmpty(t, result.Fingerprint)
		})
	}
}
