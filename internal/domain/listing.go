package domain

import (
	"strings"
	"time"
)

// ListingStatus enumerates moderation states.
type ListingStatus string

const (
	ListingPending  ListingStatus = "pending"
	ListingApproved ListingStatus = "approved"
	ListingRejected ListingStatus = "rejected"
)

// NoDescription is stored when the seller skips the description step.
const NoDescription = "No description"

// Category is one of the fixed marketplace sections.
type Category string

const (
	CategoryAcademicBooks  Category = "Academic Books"
	CategoryElectronics    Category = "Electronics"
	CategoryClothes        Category = "Clothes & Fashion"
	CategoryFurniture      Category = "Furniture & Home"
	CategoryStudyMaterials Category = "Study Materials"
	CategoryEntertainment  Category = "Entertainment"
	CategoryFoodDrinks     Category = "Food & Drinks"
	CategoryTransportation Category = "Transportation"
	CategoryAccessories    Category = "Accessories"
	CategoryOthers         Category = "Others"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAcademicBooks,
	CategoryElectronics,
	CategoryClothes,
	CategoryFurniture,
	CategoryStudyMaterials,
	CategoryEntertainment,
	CategoryFoodDrinks,
	CategoryTransportation,
	CategoryAccessories,
	CategoryOthers,
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(string(c), raw) {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// Listing is a marketplace item and its moderation record.
type Listing struct {
	ID          int64
	OwnerID     int64
	Title       string
	Price       int64
	Category    Category
	Description string
	MediaRef    string
	Status      ListingStatus
	CreatedAt   time.Time
	ModeratorID *int64
	DecidedAt   *time.Time
}

// IsDecided reports whether moderation already ran.
func (l Listing) IsDecided() bool {
	return l.Status == ListingApproved || l.Status == ListingRejected
}

// Decision is a moderator verdict.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Status maps a decision onto the listing status it produces.
func (d Decision) Status() ListingStatus {
	if d == DecisionApprove {
		return ListingApproved
	}
	return ListingRejected
}
