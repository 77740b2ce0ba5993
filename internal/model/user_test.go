package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestIsMoney(t *testing.T) {
	for _, s := range []string{"0", "1", "0.01", "125.50", "1.5000", "-3.25", "9999999999999999.99"} {
		assert.True(t, IsMoney(decimal.RequireFromString(s)), s)
	}
	for _, s := range []string{"0.001", "1.005", "10000000000000000", "1e17"} {
		assert.False(t, IsMoney(decimal.RequireFromString(s)), s)
	}
}

func TestIsMoneyRejectsExtremeExponents(t *testing.T) {
	for _, d := range []decimal.Decimal{
		decimal.New(1, -1_000_000_000),
		decimal.New(1, 1_000_000_000),
		decimal.New(0, -1_000_000_000),
		decimal.RequireFromString("1e-2000000000"),
		decimal.New(15, -33),
	} {
		assert.False(t, IsMoney(d), d.Exponent())
	}
}
