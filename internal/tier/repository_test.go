package tier_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billdesk/billdesk/internal/database/dbtest"
	"github.com/billdesk/billdesk/internal/pricing"
	"github.com/billdesk/billdesk/internal/tier"
)

func setupTierRepo(t *testing.T) (tier.Repository, uuid.UUID) {
	t.Helper()
	pool := dbtest.Open(t)
	owner := dbtest.CreateUser(t, pool, "tier-owner")
	return tier.NewPostgresRepository(pool), owner
}

func newTestTier(owner uuid.UUID, credits int64, price string) *tier.Tier {
	p := decimal.RequireFromString(price)
	up, _ := pricing.UnitPriceFor(p, credits)
	return &tier.Tier{
		OwnerID:    owner,
		Credits:    credits,
		MinNumbers: 100,
		MaxNumbers: 200,
		UnitPrice:  up,
		Price:      p,
	}
}

func TestTierRepository_CreateAndGet(t *testing.T) {
	repo, owner := setupTierRepo(t)
	ctx := context.Background()

	tr := newTestTier(owner, 10000, "30")
	require.NoError(t, repo.Create(ctx, tr))
	assert.NotEqual(t, uuid.Nil, tr.ID)
	assert.False(t, tr.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, owner, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Credits)
	assert.True(t, decimal.NewFromInt(30).Equal(got.Price))
	assert.True(t, decimal.RequireFromString("0.003").Equal(got.UnitPrice))
}

func TestTierRepository_DuplicateCredits(t *testing.T) {
	repo, owner := setupTierRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestTier(owner, 10000, "30")))
	err := repo.Create(ctx, newTestTier(owner, 10000, "31"))
	assert.ErrorIs(t, err, tier.ErrDuplicateCredits)
}

func TestTierRepository_OwnerScoping(t *testing.T) {
	repo, owner := setupTierRepo(t)
	ctx := context.Background()

	tr := newTestTier(owner, 10000, "30")
	require.NoError(t, repo.Create(ctx, tr))

	other := uuid.New()
	_, err := repo.GetByID(ctx, other, tr.ID)
	assert.ErrorIs(t, err, tier.ErrTierNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, other, tr.ID), tier.ErrTierNotFound)

	tiers, err := repo.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, tiers)
}

func TestTierRepository_ListOrderedByCredits(t *testing.T) {
	repo, owner := setupTierRepo(t)
	ctx := context.Background()

	for _, c := range []int64{50000, 10000, 30000} {
		require.NoError(t, repo.Create(ctx, newTestTier(owner, c, "100")))
	}

	tiers, err := repo.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tiers, 3)
	assert.Equal(t, int64(10000), tiers[0].Credits)
	assert.Equal(t, int64(30000), tiers[1].Credits)
	assert.Equal(t, int64(50000), tiers[2].Credits)
}

func TestTierRepository_Update(t *testing.T) {
	repo, owner := setupTierRepo(t)
	ctx := context.Background()

	tr := newTestTier(owner, 10000, "30")
	require.NoError(t, repo.Create(ctx, tr))

	price := decimal.RequireFromString("32.50")
	sortOrder := 4
	updated, err := repo.Update(ctx, owner, tr.ID, tier.UpdateFields{Price: &price, SortOrder: &sortOrder})
	require.NoError(t, err)
	assert.True(t, price.Equal(updated.Price))
	assert.Equal(t, 4, updated.SortOrder)
	assert.Equal(t, int64(10000), updated.Credits)

	noop, err := repo.Update(ctx, owner, tr.ID, tier.UpdateFields{})
	require.NoError(t, err)
	assert.Equal(t, tr.ID, noop.ID)

	_, err = repo.Update(ctx, owner, uuid.New(), tier.UpdateFields{Price: &price})
	assert.ErrorIs(t, err, tier.ErrTierNotFound)
}

func TestTierRepository_UpdateDuplicateCredits(t *testing.T) {
	repo, owner := setupTierRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestTier(owner, 10000, "30")))
	second := newTestTier(owner, 20000, "55")
	require.NoError(t, repo.Create(ctx, second))

	credits := int64(10000)
	_, err := repo.Update(ctx, owner, second.ID, tier.UpdateFields{Credits: &credits})
	assert.ErrorIs(t, err, tier.ErrDuplicateCredits)
}

func TestTierRepository_Delete(t *testing.T) {
	repo, owner := setupTierRepo(t)
	ctx := context.Background()

	tr := newTestTier(owner, 10000, "30")
	require.NoError(t, repo.Create(ctx, tr))

	require.NoError(t, repo.Delete(ctx, owner, tr.ID))
	assert.ErrorIs(t, repo.Delete(ctx, owner, tr.ID), tier.ErrTierNotFound)
}

func TestTierRepository_BulkCreateDefaults(t *testing.T) {
	repo, owner := setupTierRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestTier(owner, 10000, "29")))

	inserted, err := repo.BulkCreate(ctx, owner, tier.FromDefaults(owner))
	require.NoError(t, err)
	assert.Equal(t, len(pricing.DefaultTiers())-1, inserted)

	tiers, err := repo.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tiers, len(pricing.DefaultTiers()))
	// The pre-existing row is kept.
	assert.True(t, decimal.NewFromInt(29).Equal(tiers[0].Price))

	q, err := pricing.Interpolate(tier.Snapshot(tiers), 600000)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1110).Equal(q.Price))
}
