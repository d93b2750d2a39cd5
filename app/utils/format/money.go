package format

import (
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
)

var usd = accounting.Accounting{
	Symbol:    "$",
	Precision: 2,
	Thousand:  ",",
	Decimal:   ".",
}

func Money(amount decimal.Decimal) string {
	return usd.FormatMoneyDecimal(amount)
}

// Discount renders a deduction the way the checkout summary shows it.
func Discount(amount decimal.Decimal) string {
	return "-" + Money(amount)
}
