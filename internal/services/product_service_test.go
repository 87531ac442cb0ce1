package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"campusshop/internal/models"
	"campusshop/internal/services"
	"campusshop/internal/shopapi"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCatalog is a mock implementation of services.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Products(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockCatalog) Product(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func TestProductService_GetAllProducts(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	productService := services.NewProductService(catalog)

	expectedProducts := []models.Product{
		{ID: 1, Name: "Notebook", Price: decimal.RequireFromString("10.00")},
		{ID: 2, Name: "Pen", Price: decimal.RequireFromString("5.00")},
	}
	catalog.On("Products", mock.Anything).Return(expectedProducts, nil).Once()

	products, err := productService.GetAllProducts(ctx)
	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, products)

	// An empty catalog is an empty list, not nil
	catalog.On("Products", mock.Anything).Return(nil, nil).Once()
	products, err = productService.GetAllProducts(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	catalog.AssertExpectations(t)
}

func TestProductService_GetAllProducts_Error(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	productService := services.NewProductService(catalog)

	catalog.On("Products", mock.Anything).Return(nil, &shopapi.HTTPError{StatusCode: 500, Message: "boom"}).Once()

	_, err := productService.GetAllProducts(ctx)
	var httpErr *shopapi.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "boom", httpErr.Message)
	catalog.AssertExpectations(t)
}

func TestProductService_GetProductByID(t *testing.T) {
	ctx := context.Background()
	catalog := new(MockCatalog)
	productService := services.NewProductService(catalog)

	expectedProduct := &models.Product{ID: 1, Name: "Notebook", Price: decimal.RequireFromString("10.00")}
	catalog.On("Product", mock.Anything, int64(1)).Return(expectedProduct, nil).Once()

	product, err := productService.GetProductByID(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	// Test not found
	catalog.On("Product", mock.Anything, int64(99)).
		Return(nil, &shopapi.HTTPError{StatusCode: 404, Message: "product not found"}).Once()
	_, err = productService.GetProductByID(ctx, 99)
	assert.ErrorIs(t, err, shopapi.ErrNotFound)

	catalog.AssertExpectations(t)
}

func TestProductService_GetProductByID_CollapsesConcurrentLookups(t *testing.T) {
	catalog := new(MockCatalog)
	productService := services.NewProductService(catalog)

	release := make(chan time.Time)
	catalog.On("Product", mock.Anything, int64(1)).
		WaitUntil(release).
		Return(&models.Product{ID: 1, Name: "Notebook"}, nil).Once()

	var wg sync.WaitGroup
	results := make([]*models.Product, 5)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := productService.GetProductByID(context.Background(), 1)
			assert.NoError(t, err)
			results[i] = p
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, p := range results {
		require.NotNil(t, p)
		assert.Equal(t, "Notebook", p.Name)
	}
	// Every caller gets its own copy.
	results[0].Name = "Changed"
	assert.Equal(t, "Notebook", results[1].Name)
	catalog.AssertNumberOfCalls(t, "Product", 1)
}

func TestProductService_GetProductByID_CancelledCallerDoesNotFailOthers(t *testing.T) {
	catalog := new(MockCatalog)
	productService := services.NewProductService(catalog)

	release := make(chan time.Time)
	catalog.On("Product", mock.Anything, int64(1)).
		WaitUntil(release).
		Run(func(args mock.Arguments) {
			// The shared lookup outlives the caller that started it.
			assert.NoError(t, args.Get(0).(context.Context).Err())
		}).
		Return(&models.Product{ID: 1, Name: "Notebook"}, nil).Once()

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := productService.GetProductByID(firstCtx, 1)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	type result struct {
		product *models.Product
		err     error
	}
	second := make(chan result, 1)
	go func() {
		p, err := productService.GetProductByID(context.Background(), 1)
		second <- result{p, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, "Notebook", res.product.Name)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
	catalog.AssertNumberOfCalls(t, "Product", 1)
}
