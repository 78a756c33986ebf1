package quotes

import (
	"sort"
	"strings"
)

// SortOrder selects how active quotes are presented to the buyer.
type SortOrder string

const (
	SortByFeeOrder    SortOrder = "fee"
	SortByRatingOrder SortOrder = "rating"
)

// ParseSortOrder defaults to fee ordering for empty input.
func ParseSortOrder(value string) (SortOrder, bool) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(value))) {
	case "", SortByFeeOrder:
		return SortByFeeOrder, true
	case SortByRatingOrder:
		return SortByRatingOrder, true
	}
	return "", false
}

// SortByFee orders quotes by delivery fee ascending.
func SortByFee(quotes []ActiveQuote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if quotes[i].DeliveryFeeCents != quotes[j].DeliveryFeeCents {
			return quotes[i].DeliveryFeeCents < quotes[j].DeliveryFeeCents
		}
		return earlier(quotes[i], quotes[j])
	})
}

// SortByRating orders quotes by provider rating descending. Unrated
// providers sort as zero.
func SortByRating(quotes []ActiveQuote) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if cmp := quotes[i].ProviderRating.Cmp(quotes[j].ProviderRating); cmp != 0 {
			return cmp > 0
		}
		return earlier(quotes[i], quotes[j])
	})
}

func earlier(a, b ActiveQuote) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func applySort(quotes []ActiveQuote, order SortOrder) {
	switch order {
	case SortByRatingOrder:
		SortByRating(quotes)
	default:
		SortByFee(quotes)
	}
}
