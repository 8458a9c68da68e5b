package dto

import (
	"encoding/json"
	"testing"

	"github.com/amoylab/cleanbill/internal/apiserver/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAssignment(t *testing.T) {
	a := database.PropertyServiceType{
		PropertyID:    "p1",
		ServiceTypeID: "s1",
		CustomPrice:   decimal.NewNullDecimal(decimal.RequireFromString("40")),
		IsActive:      true,
		ServiceType:   &database.ServiceType{Name: "Deep clean", BasePrice: decimal.RequireFromString("50")},
	}
	a.ID = "a1"

	raw, err := json.Marshal(FromAssignment(a))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "40.00", body["effectivePrice"])
	assert.Equal(t, "40.00", body["customPrice"])
	assert.Equal(t, "Deep clean", body["serviceTypeName"])
	require.Contains(t, body, "isInherited")
	assert.Equal(t, false, body["isInherited"])
}
