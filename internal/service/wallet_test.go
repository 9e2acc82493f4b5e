package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gettruefans/truefans-api/internal/domain"
)

func TestWalletContent(t *testing.T) {
	lastVisit := time.Date(2025, 2, 20, 18, 30, 0, 0, time.UTC)
	until := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	pass := domain.IssuedPass{
		Serial:     "0123456789abcdef0123456789abcdef",
		DinerName:  "Maria Lopez",
		Points:     120,
		Visits:     7,
		Status:     domain.PassActive,
		IsActive:   true,
		LastUsedAt: &lastVisit,
		ExpiresAt:  time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC),
	}
	brand := domain.Brand{
		Name: "Taco Bros",
		Wallet: domain.WalletStyling{
			PrimaryColor:  "#E63946",
			CardTextColor: "#FFFFFF",
			CustomMessage: "Thanks for eating with us!",
		},
		Promotion: domain.Promotion{
			Title:       "Taco Tuesday",
			Description: "All tacos",
			Discount:    decimal.NewFromInt(20),
			ValidUntil:  &until,
		},
	}
	tmpl := &domain.PassTemplate{Name: "Taco Tuesday Club", Benefits: "Free taco on your 5th visit", Punches: 5}

	c := walletContent(pass, brand, tmpl, testNow)

	assert.Equal(t, "Taco Tuesday Club", c.Description)
	assert.Equal(t, "#E63946", c.BackgroundColor, "falls back to the primary color")
	assert.Equal(t, "#FFFFFF", c.ForegroundColor)
	assert.Equal(t, "#FFFFFF", c.LabelColor)
	assert.False(t, c.Voided)

	require.Len(t, c.StoreCard.SecondaryFields, 2)
	assert.Equal(t, 120, c.StoreCard.SecondaryFields[0].Value)
	assert.Equal(t, "Feb 20, 2025", c.StoreCard.SecondaryFields[1].Value)

	require.Len(t, c.StoreCard.AuxiliaryFields, 2)
	assert.Equal(t, "Mar 31, 2025", c.StoreCard.AuxiliaryFields[0].Value)
	assert.Equal(t, "5/5", c.StoreCard.AuxiliaryFields[1].Value)

	keys := make([]string, 0, len(c.StoreCard.BackFields))
	for _, f := range c.StoreCard.BackFields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"member", "benefits", "message", "promotion"}, keys)
	assert.Equal(t, "All tacos (20% off), valid until Mar 31, 2025", c.StoreCard.BackFields[3].Value)
}

func TestWalletContent_NoTemplate(t *testing.T) {
	pass := domain.IssuedPass{
		Serial:    "0123456789abcdef0123456789abcdef",
		Status:    domain.PassRevoked,
		ExpiresAt: testNow.AddDate(1, 0, 0),
	}

	c := walletContent(pass, domain.Brand{Name: "Taco Bros"}, nil, testNow)

	assert.Equal(t, "Taco Bros loyalty pass", c.Description)
	assert.Equal(t, defaultBackground, c.BackgroundColor)
	assert.Equal(t, defaultForeground, c.ForegroundColor)
	assert.True(t, c.Voided)
	assert.Len(t, c.StoreCard.AuxiliaryFields, 1)
	assert.Equal(t, "Never", c.StoreCard.SecondaryFields[1].Value)
}
