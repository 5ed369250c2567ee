package service

import (
	"context"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/jewelcart/storefront"
	"github.com/jewelcart/storefront/client"
	"github.com/jewelcart/storefront/pkg/cache"
)

// FamilyPrices is the cache family of price reads
const FamilyPrices = "prices"

// PriceService reads metal rates
type PriceService struct {
	*readThrough
}

// NewPriceService creates a price service
func NewPriceService(api API, store cache.Store, opts ...Option) *PriceService {
	return &PriceService{readThrough: newReadThrough(api, store, opts...)}
}

// GetCurrentPrices returns today's rates
func (s *PriceService) GetCurrentPrices(ctx context.Context) (*CurrentPrices, error) {
	key := s.keys.GenerateKey(FamilyPrices, "current", nil)
	prices, _, err := fetchCached[*CurrentPrices](ctx, s.readThrough, FamilyPrices, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, "/prices/current", nil)
		})
	return prices, err
}

// GetPricePrediction returns the forecast for one metal
func (s *PriceService) GetPricePrediction(ctx context.Context, q PredictionQuery) (*PricePrediction, error) {
	if err := validate("GetPricePrediction", q); err != nil {
		return nil, err
	}

	params := q.Params()
	key := s.keys.GenerateKey(FamilyPrices, "predict", params)
	prediction, _, err := fetchCached[*PricePrediction](ctx, s.readThrough, FamilyPrices, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, "/prices/predict", params)
		})
	return prediction, err
}

// GetPriceHistory returns the last days of rates for metal
func (s *PriceService) GetPriceHistory(ctx context.Context, metal string, days int) ([]PricePoint, error) {
	err := validation.Errors{
		"metal": validation.Validate(metal, validation.Required, validation.In(metals...)),
		"days":  validation.Validate(days, validation.Required, validation.Min(1), validation.Max(365)),
	}.Filter()
	if err != nil {
		return nil, &storefront.ValidationError{Op: "GetPriceHistory", Err: err}
	}

	params := url.Values{"metal": {metal}, "days": {strconv.Itoa(days)}}
	key := s.keys.GenerateKey(FamilyPrices, "history", params)
	history, _, err := fetchCached[[]PricePoint](ctx, s.readThrough, FamilyPrices, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, "/prices/history", params)
		})
	return history, err
}
