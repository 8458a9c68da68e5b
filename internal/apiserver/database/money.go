package database

import (
	"fmt"

	"github.com/amoylab/cleanbill/internal/common/errorx"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the scale of every decimal(10,2) column
const MoneyPlaces = 2

// CheckScale rejects values with digits past MoneyPlaces; trailing zeros are fine
func CheckScale(field string, d decimal.Decimal) error {
	if d.Equal(d.Truncate(MoneyPlaces)) {
		return nil
	}
	return errorx.ErrValidation.
		WithDetail("reason", fmt.Sprintf("%s must have at most %d decimal places", field, MoneyPlaces)).
		WithDetail("field", field)
}
