package service

import (
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/jewelcart/storefront"
	"github.com/jewelcart/storefront/pkg/session"
)

var (
	metals        = []interface{}{"gold", "silver", "platinum"}
	phonePattern  = regexp.MustCompile(`^\+?[0-9]{10,13}$`)
	purityPattern = regexp.MustCompile(`^(24K|22K|18K|14K|925|950|999)$`)
)

// Products

// Product is a catalogue item
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category"`
	Metal        string    `json:"metal"`
	Purity       string    `json:"purity,omitempty"`
	WeightGrams  float64   `json:"weight"`
	MakingCharge float64   `json:"makingCharges,omitempty"`
	Price        float64   `json:"price"`
	Stock        int       `json:"stock"`
	Images       []string  `json:"images,omitempty"`
	Published    bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ProductInput is the body of create and update
type ProductInput struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	Category     string  `json:"category"`
	Metal        string  `json:"metal"`
	Purity       string  `json:"purity,omitempty"`
	WeightGrams  float64 `json:"weight"`
	MakingCharge float64 `json:"makingCharges,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Stock        int     `json:"stock"`
}

// Validate checks the input before it is sent
func (p ProductInput) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(2, 120)),
		validation.Field(&p.Category, validation.Required),
		validation.Field(&p.Metal, validation.Required, validation.In(metals...)),
		validation.Field(&p.Purity, validation.Match(purityPattern)),
		validation.Field(&p.WeightGrams, validation.Required, validation.Min(0.0)),
		validation.Field(&p.MakingCharge, validation.Min(0.0)),
		validation.Field(&p.Price, validation.Min(0.0)),
		validation.Field(&p.Stock, validation.Min(0)),
	)
}

// ProductFilter narrows a product listing. Zero fields are omitted from the query.
type ProductFilter struct {
	Category  string
	Metal     string
	Search    string
	MinPrice  float64
	MaxPrice  float64
	Published *bool
	Page      int
	Limit     int
	Sort      string
}

// Validate checks the filter ranges
func (f ProductFilter) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Metal, validation.In(metals...)),
		validation.Field(&f.MinPrice, validation.Min(0.0)),
		validation.Field(&f.MaxPrice, validation.Min(f.MinPrice)),
		validation.Field(&f.Page, validation.Min(0)),
		validation.Field(&f.Limit, validation.Min(0), validation.Max(100)),
	)
}

// Params encodes the filter as query parameters
func (f ProductFilter) Params() url.Values {
	q := url.Values{}
	set(q, "category", f.Category)
	set(q, "metal", f.Metal)
	set(q, "search", f.Search)
	setFloat(q, "minPrice", f.MinPrice)
	setFloat(q, "maxPrice", f.MaxPrice)
	if f.Published != nil {
		q.Set("isPublished", strconv.FormatBool(*f.Published))
	}
	setInt(q, "page", f.Page)
	setInt(q, "limit", f.Limit)
	set(q, "sort", f.Sort)
	return q
}

// ProductList is one page of products
type ProductList struct {
	Products   []Product
	Pagination storefront.Pagination
}

// Category is a product category with its item count
type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Auth

// Credentials is the login body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the credentials before they are sent
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.EmailFormat),
		validation.Field(&c.Password, validation.Required),
	)
}

// SignupInput is the signup body
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// Validate checks the signup input
func (s SignupInput) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.Length(2, 80)),
		validation.Field(&s.Email, validation.Required, is.EmailFormat),
		validation.Field(&s.Password, validation.Required, validation.Length(8, 0)),
		validation.Field(&s.Phone, validation.Match(phonePattern)),
	)
}

// AuthPayload is returned by login and signup
type AuthPayload struct {
	Token string       `json:"token"`
	User  session.User `json:"user"`
}

// Prices

// CurrentPrices holds the per-gram rate of each metal
type CurrentPrices struct {
	Gold      float64   `json:"gold"`
	Silver    float64   `json:"silver"`
	Platinum  float64   `json:"platinum"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PricePoint is one day of price history
type PricePoint struct {
	Date  string  `json:"date"`
	Metal string  `json:"metal"`
	Price float64 `json:"price"`
}

// PredictionQuery selects a price prediction
type PredictionQuery struct {
	Metal string
	Days  int
}

// Validate checks the query
func (q PredictionQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Metal, validation.Required, validation.In(metals...)),
		validation.Field(&q.Days, validation.Required, validation.Min(1), validation.Max(90)),
	)
}

// Params encodes the query
func (q PredictionQuery) Params() url.Values {
	v := url.Values{}
	set(v, "metal", q.Metal)
	setInt(v, "days", q.Days)
	return v
}

// PricePrediction is the forecast for one metal
type PricePrediction struct {
	Metal       string       `json:"metal"`
	Predictions []PricePoint `json:"predictions"`
	Confidence  float64      `json:"confidence"`
	Trend       string       `json:"trend"`
}

// Analytics

// DashboardStats is the admin dashboard summary
type DashboardStats struct {
	TotalSales     float64 `json:"totalSales"`
	TotalOrders    int     `json:"totalOrders"`
	TotalProducts  int     `json:"totalProducts"`
	TotalCustomers int     `json:"totalCustomers"`
	PendingKhata   float64 `json:"pendingKhata"`
}

// DateRange bounds a report, dates formatted as YYYY-MM-DD
type DateRange struct {
	From string
	To   string
}

// Validate checks both dates and their order
func (r DateRange) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Required, validation.Date(time.DateOnly)),
		validation.Field(&r.To, validation.Required, validation.Date(time.DateOnly), validation.By(r.notBeforeFrom)),
	)
}

func (r DateRange) notBeforeFrom(value interface{}) error {
	from, err := time.Parse(time.DateOnly, r.From)
	if err != nil {
		return nil
	}
	to, err := time.Parse(time.DateOnly, value.(string))
	if err != nil {
		return nil
	}
	if to.Before(from) {
		return errors.New("must not be before from")
	}
	return nil
}

// Params encodes the range
func (r DateRange) Params() url.Values {
	v := url.Values{}
	set(v, "from", r.From)
	set(v, "to", r.To)
	return v
}

// SalesReport is the sales summary for a date range
type SalesReport struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Total  float64     `json:"total"`
	Orders int         `json:"orders"`
	Daily  []DailySale `json:"daily"`
}

// DailySale is one day of a sales report
type DailySale struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Orders int     `json:"orders"`
}

// Khata

// Customer is a ledger customer
type Customer struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Address string  `json:"address,omitempty"`
	Balance float64 `json:"balance"`
}

// CustomerInput is the body of AddCustomer
type CustomerInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

// Validate checks the customer input
func (c CustomerInput) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(2, 80)),
		validation.Field(&c.Phone, validation.Required, validation.Match(phonePattern)),
	)
}

// CustomerFilter narrows the customer listing
type CustomerFilter struct {
	Search      string
	WithBalance bool
	Page        int
	Limit       int
}

// Params encodes the filter
func (f CustomerFilter) Params() url.Values {
	q := url.Values{}
	set(q, "search", f.Search)
	if f.WithBalance {
		q.Set("hasBalance", "true")
	}
	setInt(q, "page", f.Page)
	setInt(q, "limit", f.Limit)
	return q
}

// Entry types
const (
	EntryCredit = "credit"
	EntryDebit  = "debit"
)

// EntryInput is the body of AddEntry
type EntryInput struct {
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	DueDate     string  `json:"dueDate,omitempty"`
}

// Validate checks the entry
func (e EntryInput) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Type, validation.Required, validation.In(EntryCredit, EntryDebit)),
		validation.Field(&e.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&e.DueDate, validation.Date(time.DateOnly)),
	)
}

// LedgerEntry is one credit or debit
type LedgerEntry struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	DueDate     string    `json:"dueDate,omitempty"`
	Settled     bool      `json:"settled"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Ledger is a customer's balance and entries
type Ledger struct {
	Customer Customer      `json:"customer"`
	Entries  []LedgerEntry `json:"entries"`
	Balance  float64       `json:"balance"`
}

func set(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func setInt(q url.Values, key string, value int) {
	if value != 0 {
		q.Set(key, strconv.Itoa(value))
	}
}

func setFloat(q url.Values, key string, value float64) {
	if value != 0 {
		q.Set(key, strconv.FormatFloat(value, 'f', -1, 64))
	}
}
