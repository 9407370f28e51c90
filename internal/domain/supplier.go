package domain

import "time"

// SupplierCategory groups support vendors.
type SupplierCategory string

const (
	SupplierCategoryCarrier       SupplierCategory = "carrier"
	SupplierCategoryBillingSystem SupplierCategory = "billing-system-vendor"
	SupplierCategoryITVendor      SupplierCategory = "it-vendor"
	SupplierCategoryOther         SupplierCategory = "other"
)

// Valid reports whether c is a known category.
func (c SupplierCategory) Valid() bool {
	switch c {
	case SupplierCategoryCarrier, SupplierCategoryBillingSystem, SupplierCategoryITVendor, SupplierCategoryOther:
		return true
	}
	return false
}

// Supplier is a support vendor with a default SLA duration.
type Supplier struct {
	ID        string
	Name      string
	Category  SupplierCategory
	SLAHours  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
