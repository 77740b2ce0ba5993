package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]OfferInput{
		"missing title":   {Link: "https://example.com", RewardAmount: dec("1")},
		"zero reward":     {Title: "x", Link: "https://example.com", RewardAmount: dec("0")},
		"sub-cent reward": {Title: "x", Link: "https://example.com", RewardAmount: dec("0.005")},
		"relative link":   {Title: "x", Link: "/offer", RewardAmount: dec("1")},
		"ftp link":        {Title: "x", Link: "ftp://example.com", RewardAmount: dec("1")},
	}
	for name, in := range cases {
		_, err := f.offers.Create(f.ctx, adminID, in)
		assert.ErrorIs(t, err, ErrValidation, name)
	}

	offers, err := f.offers.List(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestOfferLifecycle(t *testing.T) {
	f := newFixture(t)

	offer, err := f.offers.Create(f.ctx, adminID, OfferInput{
		Title:        "  Join the channel ",
		Link:         "https://t.me/example",
		RewardAmount: dec("2.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Join the channel", offer.Title)
	assert.True(t, offer.IsActive)

	title := "Join our channel"
	reward := dec("3.00")
	updated, err := f.offers.Update(f.ctx, adminID, offer.ID, OfferPatch{Title: &title, RewardAmount: &reward})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.True(t, updated.RewardAmount.Equal(reward))
	assert.Equal(t, "https://t.me/example", updated.Link)

	bad := "mailto:someone@example.com"
	_, err = f.offers.Update(f.ctx, adminID, offer.ID, OfferPatch{Link: &bad})
	assert.ErrorIs(t, err, ErrValidation)

	active, err := f.offers.List(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, f.offers.Delete(f.ctx, adminID, offer.ID))
	active, err = f.offers.List(f.ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	assert.ErrorIs(t, f.offers.Delete(f.ctx, adminID, offer.ID), ErrNotFound)
	_, err = f.offers.Update(f.ctx, adminID, offer.ID, OfferPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.offers.Delete(f.ctx, adminID, uuid.New()), ErrNotFound)
}
