package database

import (
	"testing"

	"github.com/amoylab/cleanbill/internal/common/errorx"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheckScale(t *testing.T) {
	for _, v := range []string{"0", "12", "1.5", "19.99", "1.500", "-3.10"} {
		assert.NoError(t, CheckScale("amount", decimal.RequireFromString(v)), v)
	}
	for _, v := range []string{"0.005", "0.333", "-1.001"} {
		err := CheckScale("amount", decimal.RequireFromString(v))
		assert.ErrorIs(t, err, errorx.ErrValidation, v)
	}
}
