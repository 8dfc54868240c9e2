package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Order is one row of the sales spreadsheet. It doubles as the bun model for
// the orders table used by the database source.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID             int64               `bun:",pk,autoincrement" json:"-"`
	OrderID        string              `bun:"order_id,notnull" json:"order_id"`
	OrderDate      *time.Time          `bun:"order_date" json:"order_date,omitempty"`
	Status         string              `bun:"status" json:"status"`
	Fulfilment     string              `bun:"fulfilment" json:"fulfilment,omitempty"`
	SalesChannel   string              `bun:"sales_channel" json:"sales_channel,omitempty"`
	ServiceLevel   string              `bun:"service_level" json:"service_level"`
	Style          string              `bun:"style" json:"style,omitempty"`
	SKU            string              `bun:"sku" json:"sku,omitempty"`
	Category       string              `bun:"category" json:"category"`
	Currency       string              `bun:"currency" json:"currency,omitempty"`
	Amount         decimal.NullDecimal `bun:"amount,type:numeric" json:"amount"`
	ShipCity       string              `bun:"ship_city" json:"ship_city,omitempty"`
	ShipState      string              `bun:"ship_state" json:"ship_state,omitempty"`
	ShipPostalCode string              `bun:"ship_postal_code" json:"ship_postal_code,omitempty"`
	ShipCountry    string              `bun:"ship_country" json:"ship_country,omitempty"`
	PromotionIDs   string              `bun:"promotion_ids" json:"promotion_ids,omitempty"`
	B2B            bool                `bun:"b2b" json:"b2b"`
	FulfilledBy    string              `bun:"fulfilled_by" json:"fulfilled_by,omitempty"`
	CreatedAt      time.Time           `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt      time.Time           `bun:"updated_at,nullzero" json:"-"`
}

// AmountFloat returns the order value as float64 and whether it is present.
func (o Order) AmountFloat() (float64, bool) {
	if !o.Amount.Valid {
		return 0, false
	}
	return o.Amount.Decimal.InexactFloat64(), true
}

// HasDate reports whether the order date was parsed.
func (o Order) HasDate() bool {
	return o.OrderDate != nil
}
