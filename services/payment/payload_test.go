package paymentsvc

import (
	"testing"

	"helpdesk/models"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func strPtr(s string) *string { return &s }

func TestUniqueCode_TypedColumnWins(t *testing.T) {
	p := &models.Payment{
		UniqueCode: strPtr("123"),
		RawPayload: datatypes.JSON(`{"unique_code":"999"}`),
	}
	code, ok := UniqueCode(p)
	require.True(t, ok)
	require.Equal(t, "123", code)
}

func TestUniqueCode_FromRawPayload(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"snake_case", `{"unique_code":"456","status":"pending"}`, "456"},
		{"camelCase", `{"uniqueCode":"789"}`, "789"},
		{"legacy indonesian key", `{"kode_unik":"321"}`, "321"},
		{"numeric value", `{"unique_code":111}`, "111"},
		{"whitespace trimmed", `{"unique_code":" 42 "}`, "42"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &models.Payment{RawPayload: datatypes.JSON(c.raw)}
			code, ok := UniqueCode(p)
			require.True(t, ok)
			require.Equal(t, c.want, code)
		})
	}
}

func TestUniqueCode_AbsentNeverErrors(t *testing.T) {
	cases := []struct {
		name string
		p    *models.Payment
	}{
		{"nil payment", nil},
		{"empty payload", &models.Payment{}},
		{"malformed json", &models.Payment{RawPayload: datatypes.JSON(`{"unique_code":`)}},
		{"not an object", &models.Payment{RawPayload: datatypes.JSON(`[1,2,3]`)}},
		{"missing field", &models.Payment{RawPayload: datatypes.JSON(`{"status":"pending"}`)}},
		{"wrong type", &models.Payment{RawPayload: datatypes.JSON(`{"unique_code":{"a":1}}`)}},
		{"empty string", &models.Payment{RawPayload: datatypes.JSON(`{"unique_code":""}`)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			code, ok := UniqueCode(c.p)
			require.False(t, ok)
			require.Empty(t, code)
		})
	}
}
