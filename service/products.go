package service

import (
	"context"
	"net/url"

	"github.com/jewelcart/storefront/client"
	"github.com/jewelcart/storefront/pkg/cache"
)

// Cache families
const (
	FamilyProducts = "products"
	FamilyProduct  = "product"
)

// ProductService reads and mutates the catalogue. Any successful mutation flushes the whole
// cache, since listings, categories and analytics all derive from products.
type ProductService struct {
	*readThrough
}

// NewProductService creates a product service
func NewProductService(api API, store cache.Store, opts ...Option) *ProductService {
	return &ProductService{readThrough: newReadThrough(api, store, opts...)}
}

// GetProducts lists products matching the filter
func (s *ProductService) GetProducts(ctx context.Context, filter ProductFilter) (*ProductList, error) {
	if err := validate("GetProducts", filter); err != nil {
		return nil, err
	}

	params := filter.Params()
	key := s.keys.GenerateKey(FamilyProducts, "list", params)
	products, pagination, err := fetchCached[[]Product](ctx, s.readThrough, FamilyProducts, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, "/products", params)
		})
	if err != nil {
		return nil, err
	}

	list := &ProductList{Products: products}
	if pagination != nil {
		list.Pagination = *pagination
	}
	return list, nil
}

// GetProductByID returns one product
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*Product, error) {
	if err := requireID("GetProductByID", "id", id); err != nil {
		return nil, err
	}

	product, _, err := fetchCached[*Product](ctx, s.readThrough, FamilyProduct, cache.EntityKey(FamilyProduct, id),
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, productPath(id), nil)
		})
	return product, err
}

// GetCategories lists the product categories
func (s *ProductService) GetCategories(ctx context.Context) ([]Category, error) {
	key := s.keys.GenerateKey(FamilyProducts, "categories", nil)
	categories, _, err := fetchCached[[]Category](ctx, s.readThrough, FamilyProducts, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, "/products/categories", nil)
		})
	return categories, err
}

// CreateProduct creates a product
func (s *ProductService) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	if err := validate("CreateProduct", input); err != nil {
		return nil, err
	}

	res, err := s.api.Post(ctx, "/products", input)
	if err != nil {
		return nil, err
	}
	s.invalidateAll("product created")
	return decodeResult[*Product](res)
}

// UpdateProduct replaces a product
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input ProductInput) (*Product, error) {
	if err := requireID("UpdateProduct", "id", id); err != nil {
		return nil, err
	}
	if err := validate("UpdateProduct", input); err != nil {
		return nil, err
	}

	res, err := s.api.Put(ctx, productPath(id), input)
	if err != nil {
		return nil, err
	}
	s.invalidateAll("product updated")
	return decodeResult[*Product](res)
}

// DeleteProduct removes a product
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if err := requireID("DeleteProduct", "id", id); err != nil {
		return err
	}

	if _, err := s.api.Delete(ctx, productPath(id)); err != nil {
		return err
	}
	s.invalidateAll("product deleted")
	return nil
}

// PublishProduct makes a product visible in the storefront
func (s *ProductService) PublishProduct(ctx context.Context, id string) (*Product, error) {
	return s.setPublished(ctx, "PublishProduct", id, "publish")
}

// UnpublishProduct hides a product from the storefront
func (s *ProductService) UnpublishProduct(ctx context.Context, id string) (*Product, error) {
	return s.setPublished(ctx, "UnpublishProduct", id, "unpublish")
}

func (s *ProductService) setPublished(ctx context.Context, op, id, action string) (*Product, error) {
	if err := requireID(op, "id", id); err != nil {
		return nil, err
	}

	res, err := s.api.Patch(ctx, productPath(id)+"/"+action, nil)
	if err != nil {
		return nil, err
	}
	s.invalidateAll("product " + action)
	return decodeResult[*Product](res)
}

// UploadProductImages attaches images to a product
func (s *ProductService) UploadProductImages(ctx context.Context, id string, images []client.File) (*Product, error) {
	if err := requireID("UploadProductImages", "id", id); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, validationErr("UploadProductImages", "images", "cannot be blank")
	}

	files := make([]client.File, len(images))
	for i, img := range images {
		if img.FieldName == "" {
			img.FieldName = "images"
		}
		files[i] = img
	}

	res, err := s.api.Upload(ctx, productPath(id)+"/images", files, nil)
	if err != nil {
		return nil, err
	}
	s.invalidateAll("product images uploaded")
	return decodeResult[*Product](res)
}

func productPath(id string) string {
	return "/products/" + url.PathEscape(id)
}
