package earnings

import (
	"github.com/shopspring/decimal"

	"github.com/swiftdrop/driver-backend/pkg/enums"
)

var (
	permanentRate   = decimal.NewFromFloat(0.05)
	oldPerPairRate  = decimal.NewFromInt(30)
	tempPerPairRate = decimal.NewFromInt(50)
	two             = decimal.NewFromInt(2)
)

// Calculate returns the delivery fee for a completed delivery.
//
// Permanent drivers earn a commission on the declared parcel value. Old and
// temporary drivers earn a flat rate per started pair of items; any unknown
// driver class falls back to the temporary rate. A non-positive items count
// yields zero for the per-item classes; callers validate their inputs.
func Calculate(driverType enums.DriverType, itemsCount int, declaredValue decimal.Decimal) decimal.Decimal {
	switch driverType {
	case enums.DriverTypePermanent:
		return declaredValue.Mul(permanentRate).Round(2)
	case enums.DriverTypeOld:
		return itemPairs(itemsCount).Mul(oldPerPairRate)
	default:
		return itemPairs(itemsCount).Mul(tempPerPairRate)
	}
}

func itemPairs(itemsCount int) decimal.Decimal {
	if itemsCount <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(itemsCount)).Div(two).Ceil()
}
