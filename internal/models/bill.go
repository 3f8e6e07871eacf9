package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCustomerName is recorded when a bill carries no customer name
const DefaultCustomerName = "Walk-in Customer"

// DocumentKind distinguishes a finalised sale from a non-binding quote
type DocumentKind string

const (
	KindBill     DocumentKind = "Bill"
	KindEstimate DocumentKind = "Estimate"
)

// IsValid reports whether k is a known document kind
func (k DocumentKind) IsValid() bool {
	return k == KindBill || k == KindEstimate
}

// PaymentStatus is the settlement state of a bill
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPending PaymentStatus = "Pending"
	PaymentPartial PaymentStatus = "Partial"
)

// IsValid reports whether s is a known payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentPaid, PaymentPending, PaymentPartial:
		return true
	}
	return false
}

// PaymentMethod is how the customer paid
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "Cash"
	PaymentCard         PaymentMethod = "Card"
	PaymentUPI          PaymentMethod = "UPI"
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
)

// IsValid reports whether m is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentBankTransfer:
		return true
	}
	return false
}

// Bill is an immutable invoice or estimate. Once stored it is only read.
type Bill struct {
	ID                string          `json:"id" db:"id"`
	BillNumber        string          `json:"bill_number" db:"bill_number"`
	CustomerName      string          `json:"customer_name" db:"customer_name"`
	CustomerPhone     *string         `json:"customer_phone,omitempty" db:"customer_phone"`
	Items             []BillItem      `json:"items"`
	TotalMetalPrice   decimal.Decimal `json:"total_metal_price" db:"total_metal_price"`
	TotalWastage      decimal.Decimal `json:"total_wastage" db:"total_wastage"`
	TotalMakingCharge decimal.Decimal `json:"total_making_charge" db:"total_making_charge"`
	Subtotal          decimal.Decimal `json:"subtotal" db:"subtotal"`
	TotalGST          decimal.Decimal `json:"total_gst" db:"total_gst"`
	Discount          decimal.Decimal `json:"discount" db:"discount"`
	GrandTotal        decimal.Decimal `json:"grand_total" db:"grand_total"`
	MetalType         MetalType       `json:"metal_type" db:"metal_type"`
	Kind              DocumentKind    `json:"type" db:"kind"`
	PaymentStatus     PaymentStatus   `json:"payment_status" db:"payment_status"`
	PaymentMethod     PaymentMethod   `json:"payment_method" db:"payment_method"`
	RateSnapshotID    string          `json:"rate_snapshot_id" db:"rate_snapshot_id"`
	CreatedBy         *string         `json:"created_by,omitempty" db:"created_by"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// BillItem is the persisted pricing snapshot of one bill line
type BillItem struct {
	ID             string          `json:"id" db:"id"`
	BillID         string          `json:"bill_id" db:"bill_id"`
	Position       int             `json:"position" db:"position"`
	ProductID      string          `json:"product_id" db:"product_id"`
	Name           string          `json:"name" db:"name"`
	Category       Category        `json:"category" db:"category"`
	Weight         decimal.Decimal `json:"weight" db:"weight"`
	Rate           decimal.Decimal `json:"rate" db:"rate"`
	MetalPrice     decimal.Decimal `json:"metal_price" db:"metal_price"`
	WastagePercent decimal.Decimal `json:"wastage_percent" db:"wastage_percent"`
	WastageAmount  decimal.Decimal `json:"wastage_amount" db:"wastage_amount"`
	MakingCharge   decimal.Decimal `json:"making_charge" db:"making_charge"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	GSTPercent     decimal.Decimal `json:"gst_percent" db:"gst_percent"`
	GSTAmount      decimal.Decimal `json:"gst_amount" db:"gst_amount"`
	Total          decimal.Decimal `json:"total" db:"total"`
	Quantity       int             `json:"quantity" db:"quantity"`
}

// NewBill creates an empty bill of the given kind with defaults applied
func NewBill(kind DocumentKind) *Bill {
	return &Bill{
		ID:            uuid.New().String(),
		CustomerName:  DefaultCustomerName,
		Items:         []BillItem{},
		Discount:      decimal.Zero,
		Kind:          kind,
		PaymentStatus: PaymentPaid,
		PaymentMethod: PaymentCash,
		CreatedAt:     time.Now().UTC(),
	}
}

// AddItem appends a line, assigning its ID, bill reference and position
func (b *Bill) AddItem(item BillItem) {
	item.ID = uuid.New().String()
	item.BillID = b.ID
	item.Position = len(b.Items) + 1
	b.Items = append(b.Items, item)
}

// CalculateTotals sums the already rounded line values into the bill totals.
// Each sum is rounded again, then the grand total is derived from the rounded
// subtotal, GST and discount. A discount larger than the bill gives a
// negative grand total.
func (b *Bill) CalculateTotals() {
	metal := decimal.Zero
	wastage := decimal.Zero
	making := decimal.Zero
	gst := decimal.Zero

	for _, item := range b.Items {
		metal = metal.Add(item.MetalPrice)
		wastage = wastage.Add(item.WastageAmount)
		making = making.Add(item.MakingCharge)
		gst = gst.Add(item.GSTAmount)
	}

	b.TotalMetalPrice = Round2(metal)
	b.TotalWastage = Round2(wastage)
	b.TotalMakingCharge = Round2(making)
	b.Subtotal = Round2(metal.Add(wastage).Add(making))
	b.TotalGST = Round2(gst)
	b.GrandTotal = Round2(b.Subtotal.Add(b.TotalGST).Sub(b.Discount))
}

// DeriveMetalType labels the bill with the category of its first line
func (b *Bill) DeriveMetalType() {
	if len(b.Items) == 0 {
		return
	}
	b.MetalType = b.Items[0].Category.MetalType()
}

// IsEstimate reports whether the document is a quote
func (b *Bill) IsEstimate() bool {
	return b.Kind == KindEstimate
}

// Year returns the calendar year the bill was created in, in loc
func (b *Bill) Year(loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return b.CreatedAt.In(loc).Year()
}

// Validate validates the bill before it is stored
func (b *Bill) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("bill ID is required")
	}

	if strings.TrimSpace(b.BillNumber) == "" {
		return fmt.Errorf("bill number is required")
	}

	if len(b.Items) == 0 {
		return fmt.Errorf("bill must have at least one item")
	}

	if !b.Kind.IsValid() {
		return fmt.Errorf("invalid document kind: %s", b.Kind)
	}

	if !b.PaymentStatus.IsValid() {
		return fmt.Errorf("invalid payment status: %s", b.PaymentStatus)
	}

	if !b.PaymentMethod.IsValid() {
		return fmt.Errorf("invalid payment method: %s", b.PaymentMethod)
	}

	if !b.MetalType.IsValid() {
		return fmt.Errorf("invalid metal type: %s", b.MetalType)
	}

	if b.Kind == KindEstimate && b.PaymentStatus != PaymentPending {
		return fmt.Errorf("estimates must be pending, got %s", b.PaymentStatus)
	}

	expected := Round2(b.Subtotal.Add(b.TotalGST).Sub(b.Discount))
	if !b.GrandTotal.Equal(expected) {
		return fmt.Errorf("grand total %s does not match subtotal + GST - discount (%s)", b.GrandTotal, expected)
	}

	for i, item := range b.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be at least 1", i+1)
		}
		if item.ProductID == "" {
			return fmt.Errorf("item %d: product ID is required", i+1)
		}
	}

	return nil
}
