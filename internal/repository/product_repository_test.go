package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/secondhand/marketplace-backend/internal/models"
)

func TestBuildProductFilter_AllFields(t *testing.T) {
	cat := int64(3)
	minPrice, maxPrice := 10.0, 500.0

	where, args := buildProductFilter(models.ProductFilter{
		OnlyAvailable: true,
		CategoryID:    &cat,
		Query:         "  50%_off  ",
		MinPrice:      &minPrice,
		MaxPrice:      &maxPrice,
	})

	assert.Equal(t,
		" WHERE p.is_avail = TRUE AND p.category_id = $1 AND (p.name ILIKE $2 OR p.description ILIKE $2) AND p.price >= $3 AND p.price <= $4",
		where)
	assert.Equal(t, []interface{}{int64(3), `%50\%\_off%`, 10.0, 500.0}, args)
}

func TestBuildProductFilter_Empty(t *testing.T) {
	where, args := buildProductFilter(models.ProductFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildProductUpdate(t *testing.T) {
	name := "Road bike"
	price := 420.5
	clause, args := buildProductUpdate(models.ProductUpdate{Name: &name, Price: &price})

	assert.Equal(t, "name = $1, price = $2", clause)
	assert.Equal(t, []interface{}{"Road bike", 420.5}, args)
}

func TestImageLimitError(t *testing.T) {
	err := &ImageLimitError{Limit: 5, Remaining: 2}
	assert.Contains(t, err.Error(), "2 slot(s) remaining")
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{4, 1, 9}, uniqueIDs([]int64{4, 1, 4, 9, 1}))
}
