package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The mini-app renders amounts with toFixed, so money goes out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type User struct {
	ID           int64           `json:"id" db:"id"`
	Username     *string         `json:"username,omitempty" db:"username"`
	FirstName    *string         `json:"first_name,omitempty" db:"first_name"`
	LastName     *string         `json:"last_name,omitempty" db:"last_name"`
	LanguageCode *string         `json:"language_code,omitempty" db:"language_code"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// MoneyPlaces is the number of decimal places every stored amount is rounded to.
const MoneyPlaces = 2

const (
	// MoneyIntDigits is how many integer digits a NUMERIC(18, 2) column holds.
	MoneyIntDigits = 16
	// maxMoneyScale bounds trailing zeros such as "1.5000" that are still
	// accepted as money.
	maxMoneyScale = 32
	maxMoneyBits  = 256
)

// IsMoney reports whether d fits a money column at currency precision.
// The exponent and coefficient are bounded before any arithmetic, since
// rounding or comparing 1e-1000000000 would materialise a billion-digit number.
func IsMoney(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < -maxMoneyScale || exp > MoneyIntDigits {
		return false
	}
	if d.Coefficient().BitLen() > maxMoneyBits {
		return false
	}
	if d.NumDigits()+int(exp) > MoneyIntDigits {
		return false
	}
	return d.Equal(d.Round(MoneyPlaces))
}
