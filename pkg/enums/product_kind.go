package enums

import "slices"

// ProductKind classifies a listing for delivery handling.
type ProductKind string

const (
	ProductKindStandard   ProductKind = "standard"
	ProductKindFragile    ProductKind = "fragile"
	ProductKindPerishable ProductKind = "perishable"
	ProductKindOversized  ProductKind = "oversized"
)

var validProductKinds = []ProductKind{
	ProductKindStandard,
	ProductKindFragile,
	ProductKindPerishable,
	ProductKindOversized,
}

// IsValid reports whether the value is a known ProductKind.
func (k ProductKind) IsValid() bool {
	return slices.Contains(validProductKinds, k)
}

// ParseProductKind converts raw input into a ProductKind.
func ParseProductKind(value string) (ProductKind, error) {
	return parse("product kind", validProductKinds, value)
}
