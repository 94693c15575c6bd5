package payments

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencies whose smallest unit is the main unit
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// ToMinorUnits converts a display price such as 19.99 into 1999, rounding half away from zero
func ToMinorUnits(price float64, currency string) int64 {
	d := decimal.NewFromFloat(price)
	if !zeroDecimal[strings.ToLower(currency)] {
		d = d.Shift(2)
	}
	return d.Round(0).IntPart()
}
