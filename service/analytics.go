package service

import (
	"context"

	"github.com/jewelcart/storefront/client"
	"github.com/jewelcart/storefront/pkg/cache"
)

// FamilyAnalytics is the cache family of analytics reads
const FamilyAnalytics = "analytics"

// AnalyticsService reads the admin reports
type AnalyticsService struct {
	*readThrough
}

// NewAnalyticsService creates an analytics service
func NewAnalyticsService(api API, store cache.Store, opts ...Option) *AnalyticsService {
	return &AnalyticsService{readThrough: newReadThrough(api, store, opts...)}
}

// GetDashboardStats returns the dashboard summary
func (s *AnalyticsService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	key := s.keys.GenerateKey(FamilyAnalytics, "dashboard", nil)
	stats, _, err := fetchCached[*DashboardStats](ctx, s.readThrough, FamilyAnalytics, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, "/analytics/dashboard", nil)
		})
	return stats, err
}

// GetSalesReport returns the sales between two dates
func (s *AnalyticsService) GetSalesReport(ctx context.Context, r DateRange) (*SalesReport, error) {
	if err := validate("GetSalesReport", r); err != nil {
		return nil, err
	}

	params := r.Params()
	key := s.keys.GenerateKey(FamilyAnalytics, "sales", params)
	report, _, err := fetchCached[*SalesReport](ctx, s.readThrough, FamilyAnalytics, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, "/analytics/sales", params)
		})
	return report, err
}
