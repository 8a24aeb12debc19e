package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansatask/mansatask-api/models"
)

func TestProductRepositoryListSearch(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	other := seedUser(t, db, "other@example.com")
	ctx := context.Background()

	for _, name := range []string{"Premium T-Shirt", "Basic T-Shirt", "Coffee Mug"} {
		require.NoError(t, repo.Create(ctx, &models.Product{UserID: user.ID, Name: name, Price: decimal.NewFromInt(10), Currency: "XOF", Quantity: models.UnlimitedQuantity}))
	}
	require.NoError(t, repo.Create(ctx, &models.Product{UserID: other.ID, Name: "Other T-Shirt", Price: decimal.NewFromInt(10), Currency: "XOF"}))

	products, total, err := repo.List(ctx, user.ID, "t-SHIRT", Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, products, 2)

	products, total, err = repo.List(ctx, user.ID, "", Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, products, 1)
}

func TestProductRepositoryUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	user := seedUser(t, db, "merchant@example.com")
	ctx := context.Background()

	product := &models.Product{UserID: user.ID, Name: "Mug", Price: decimal.NewFromInt(10), Currency: "XOF", Quantity: 0}
	require.NoError(t, repo.Create(ctx, product))

	found, err := repo.FindByID(ctx, user.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.Quantity)

	require.NoError(t, repo.Update(ctx, found, map[string]interface{}{"name": "Big Mug", "price": decimal.NewFromInt(15)}))
	found, err = repo.FindByID(ctx, user.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", found.Name)
	assert.True(t, decimal.NewFromInt(15).Equal(found.Price))

	assert.ErrorIs(t, repo.Delete(ctx, user.ID+1, product.ID), ErrNotFound)
	require.NoError(t, repo.Delete(ctx, user.ID, product.ID))
	_, err = repo.FindByID(ctx, user.ID, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
