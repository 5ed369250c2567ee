package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jewelcart/storefront"
)

func TestKhataService_ReadsAreCached(t *testing.T) {
	e := newEnv(t)
	e.backend.handle("GET /api/khata/customers", http.StatusOK, `{"success":true,"data":[{"id":"c1","name":"Lata","phone":"9876543210","balance":4500}]}`)
	e.backend.handle("GET /api/khata/customers/c1/ledger", http.StatusOK,
		`{"success":true,"data":{"customer":{"id":"c1"},"balance":4500,"entries":[{"id":"e1","type":"debit","amount":4500}]}}`)
	svc := NewKhataService(e.client, e.cache)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		customers, err := svc.ListCustomers(ctx, CustomerFilter{WithBalance: true})
		require.NoError(t, err)
		require.Len(t, customers, 1)

		ledger, err := svc.GetLedger(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, 4500.0, ledger.Balance)
		require.Len(t, ledger.Entries, 1)
		assert.Equal(t, EntryDebit, ledger.Entries[0].Type)
	}

	assert.Equal(t, 1, e.backend.Hits("GET /api/khata/customers"))
	assert.Equal(t, 1, e.backend.Hits("GET /api/khata/customers/c1/ledger"))
	_, ok := e.cache.Get("khata:ledger:c1")
	assert.True(t, ok)
}

func TestKhataService_WritesClearOnlyKhata(t *testing.T) {
	e := newEnv(t)
	e.backend.handle("POST /api/khata/customers", http.StatusCreated, `{"success":true,"data":{"id":"c2","name":"Gopal"}}`)
	e.backend.handle("POST /api/khata/customers/c1/entries", http.StatusCreated, `{"success":true,"data":{"id":"e2","type":"credit","amount":1000}}`)
	e.backend.handle("PATCH /api/khata/entries/e1/settle", http.StatusOK, `{"success":true,"data":{"id":"e1","settled":true}}`)
	svc := NewKhataService(e.client, e.cache)
	ctx := context.Background()

	writes := map[string]func() error{
		"add customer": func() error {
			_, err := svc.AddCustomer(ctx, CustomerInput{Name: "Gopal", Phone: "9876500000"})
			return err
		},
		"add entry": func() error {
			entry, err := svc.AddEntry(ctx, "c1", EntryInput{Type: EntryCredit, Amount: 1000, DueDate: "2026-11-30"})
			if err == nil {
				assert.Equal(t, 1000.0, entry.Amount)
			}
			return err
		},
		"settle": func() error {
			entry, err := svc.SettleEntry(ctx, "e1")
			if err == nil {
				assert.True(t, entry.Settled)
			}
			return err
		},
	}

	for name, write := range writes {
		t.Run(name, func(t *testing.T) {
			e.cache.Set("khata:customers", []byte(`{}`), time.Minute)
			e.cache.Set("khata:ledger:c1", []byte(`{}`), time.Minute)
			e.cache.Set("product:p1", []byte(`{}`), time.Minute)

			require.NoError(t, write())

			assert.Equal(t, 1, e.cache.Len())
			_, ok := e.cache.Get("product:p1")
			assert.True(t, ok)
		})
	}
}

func TestKhataService_Validation(t *testing.T) {
	e := newEnv(t)
	svc := NewKhataService(e.client, e.cache)
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, "c1", EntryInput{Type: "refund", Amount: 10})
	var vErr *storefront.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = svc.AddEntry(ctx, "c1", EntryInput{Type: EntryDebit, Amount: 10, DueDate: "30/11/2026"})
	require.ErrorAs(t, err, &vErr)

	_, err = svc.AddCustomer(ctx, CustomerInput{Name: "Gopal", Phone: "12"})
	require.ErrorAs(t, err, &vErr)

	_, err = svc.GetLedger(ctx, "")
	require.ErrorAs(t, err, &vErr)

	assert.Equal(t, 0, e.backend.Total())
}
