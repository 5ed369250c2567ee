package service

import (
	"context"
	"net/url"

	"github.com/jewelcart/storefront/client"
	"github.com/jewelcart/storefront/pkg/cache"
)

// FamilyKhata is the cache family of the customer ledger
const FamilyKhata = "khata"

// KhataService manages the customer credit ledger. Mutations clear only the khata family.
type KhataService struct {
	*readThrough
}

// NewKhataService creates a khata service
func NewKhataService(api API, store cache.Store, opts ...Option) *KhataService {
	return &KhataService{readThrough: newReadThrough(api, store, opts...)}
}

// ListCustomers lists ledger customers
func (s *KhataService) ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, error) {
	params := filter.Params()
	key := s.keys.GenerateKey(FamilyKhata, "customers", params)
	customers, _, err := fetchCached[[]Customer](ctx, s.readThrough, FamilyKhata, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, "/khata/customers", params)
		})
	return customers, err
}

// GetLedger returns a customer's entries and balance
func (s *KhataService) GetLedger(ctx context.Context, customerID string) (*Ledger, error) {
	if err := requireID("GetLedger", "customerID", customerID); err != nil {
		return nil, err
	}

	key := cache.EntityKey(FamilyKhata, "ledger:"+customerID)
	ledger, _, err := fetchCached[*Ledger](ctx, s.readThrough, FamilyKhata, key,
		func(ctx context.Context) (*client.Result, error) {
			return s.api.Get(ctx, customerPath(customerID)+"/ledger", nil)
		})
	return ledger, err
}

// AddCustomer registers a ledger customer
func (s *KhataService) AddCustomer(ctx context.Context, input CustomerInput) (*Customer, error) {
	if err := validate("AddCustomer", input); err != nil {
		return nil, err
	}

	res, err := s.api.Post(ctx, "/khata/customers", input)
	if err != nil {
		return nil, err
	}
	s.invalidatePrefix(FamilyKhata+cache.KeySeparator, "customer added")
	return decodeResult[*Customer](res)
}

// AddEntry records a credit or debit for a customer
func (s *KhataService) AddEntry(ctx context.Context, customerID string, input EntryInput) (*LedgerEntry, error) {
	if err := requireID("AddEntry", "customerID", customerID); err != nil {
		return nil, err
	}
	if err := validate("AddEntry", input); err != nil {
		return nil, err
	}

	res, err := s.api.Post(ctx, customerPath(customerID)+"/entries", input)
	if err != nil {
		return nil, err
	}
	s.invalidatePrefix(FamilyKhata+cache.KeySeparator, "entry added")
	return decodeResult[*LedgerEntry](res)
}

// SettleEntry marks an entry as paid
func (s *KhataService) SettleEntry(ctx context.Context, entryID string) (*LedgerEntry, error) {
	if err := requireID("SettleEntry", "entryID", entryID); err != nil {
		return nil, err
	}

	res, err := s.api.Patch(ctx, "/khata/entries/"+url.PathEscape(entryID)+"/settle", nil)
	if err != nil {
		return nil, err
	}
	s.invalidatePrefix(FamilyKhata+cache.KeySeparator, "entry settled")
	return decodeResult[*LedgerEntry](res)
}

func customerPath(id string) string {
	return "/khata/customers/" + url.PathEscape(id)
}
