package services

import (
	"context"
	"fmt"
	"strconv"

	"campusshop/internal/models"

	"golang.org/x/sync/singleflight"
)

// Catalog is the remote product catalog.
type Catalog interface {
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, id int64) (*models.Product, error)
}

// ProductService handles business logic related to products.
type ProductService struct {
	catalog Catalog
	sfg     singleflight.Group // Collapses concurrent lookups of the same product
}

// NewProductService creates a new ProductService.
func NewProductService(catalog Catalog) *ProductService {
	return &ProductService{
		catalog: catalog,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	v, err := s.shared(ctx, "products", func(ctx context.Context) (interface{}, error) {
		return s.catalog.Products(ctx)
	})
	if err != nil {
		return nil, err
	}

	products, _ := v.([]models.Product)
	if products == nil {
		return []models.Product{}, nil
	}
	// Callers sharing a flight must not share the backing array.
	out := make([]models.Product, len(products))
	copy(out, products)
	return out, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	v, err := s.shared(ctx, "product:"+strconv.FormatInt(id, 10), func(ctx context.Context) (interface{}, error) {
		return s.catalog.Product(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	found, _ := v.(*models.Product)
	if found == nil {
		return nil, fmt.Errorf("product %d: empty response", id)
	}
	product := *found
	return &product, nil
}

// shared runs fn once for all concurrent callers of key. The lookup is not
// bound to any single caller's cancellation; each caller stops waiting when
// its own ctx is done.
func (s *ProductService) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	flight := context.WithoutCancel(ctx)
	ch := s.sfg.DoChan(key, func() (interface{}, error) {
		return fn(flight)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}
