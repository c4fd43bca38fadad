package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Item is a garment listed for exchange by its owner.
type Item struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Type        ItemType   `json:"type"`
	Size        Size       `json:"size"`
	Condition   Condition  `json:"condition"`
	Tags        []string   `json:"tags"`
	Images      []string   `json:"images"`
	PointsValue int        `json:"pointsValue"`
	Status      ItemStatus `json:"status"`
	IsApproved  bool       `json:"isApproved"`
	Brand       string     `json:"brand,omitempty"`
	Color       string     `json:"color,omitempty"`
	Material    string     `json:"material,omitempty"`
	Location    string     `json:"location,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Joined fields (not always populated).
	Owner *UserSummary `json:"owner,omitempty"`
}

// Browsable reports whether the item may be requested in a swap.
func (i *Item) Browsable() bool {
	return i.IsApproved && i.Status == ItemStatusAvailable
}

// ItemStatus is the lifecycle state of a listing.
type ItemStatus string

// Item statuses.
const (
	ItemStatusAvailable ItemStatus = "available"
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusSwapped   ItemStatus = "swapped"
	ItemStatusRemoved   ItemStatus = "removed"
)

// ParseItemStatus validates an item status string.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch st := ItemStatus(s); st {
	case ItemStatusAvailable, ItemStatusPending, ItemStatusSwapped, ItemStatusRemoved:
		return st, nil
	}
	return "", Invalid("status", fmt.Sprintf("unknown item status %q", s))
}

// Category groups garments by what they are.
type Category string

// Categories.
const (
	CategoryTops        Category = "tops"
	CategoryBottoms     Category = "bottoms"
	CategoryDresses     Category = "dresses"
	CategoryOuterwear   Category = "outerwear"
	CategoryShoes       Category = "shoes"
	CategoryAccessories Category = "accessories"
	CategoryOther       Category = "other"
)

// Categories lists all categories in display order.
var Categories = []Category{
	CategoryTops, CategoryBottoms, CategoryDresses, CategoryOuterwear,
	CategoryShoes, CategoryAccessories, CategoryOther,
}

// ParseCategory validates a category string.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", Invalid("category", "invalid category")
}

// ItemType is the style of a garment.
type ItemType string

// Item types.
const (
	ItemTypeCasual     ItemType = "casual"
	ItemTypeFormal     ItemType = "formal"
	ItemTypeSportswear ItemType = "sportswear"
	ItemTypeVintage    ItemType = "vintage"
	ItemTypeDesigner   ItemType = "designer"
	ItemTypeOther      ItemType = "other"
)

// ItemTypes lists all item types in display order.
var ItemTypes = []ItemType{
	ItemTypeCasual, ItemTypeFormal, ItemTypeSportswear,
	ItemTypeVintage, ItemTypeDesigner, ItemTypeOther,
}

// ParseItemType validates an item type string.
func ParseItemType(s string) (ItemType, error) {
	for _, t := range ItemTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", Invalid("type", "invalid type")
}

// Size is a garment size label.
type Size string

// Sizes lists all sizes in display order.
var Sizes = []Size{"XS", "S", "M", "L", "XL", "XXL", "One Size"}

// ParseSize validates a size string.
func ParseSize(s string) (Size, error) {
	for _, sz := range Sizes {
		if string(sz) == s {
			return sz, nil
		}
	}
	return "", Invalid("size", "invalid size")
}

// Condition describes garment wear.
type Condition string

// Conditions lists all conditions from best to worst.
var Conditions = []Condition{"new", "like-new", "good", "fair", "worn"}

// ParseCondition validates a condition string.
func ParseCondition(s string) (Condition, error) {
	for _, c := range Conditions {
		if string(c) == s {
			return c, nil
		}
	}
	return "", Invalid("condition", "invalid condition")
}

// Listing limits.
const (
	MinPointsValue      = 10
	MaxPointsValue      = 500
	MinTitleLength      = 3
	MaxTitleLength      = 100
	MinDescriptionLen   = 10
	MaxDescriptionLen   = 1000
	MaxImagesPerRequest = 5
)

// ValidatePointsValue checks the listing points range.
func ValidatePointsValue(v int) error {
	if v < MinPointsValue || v > MaxPointsValue {
		return Invalid("pointsValue", fmt.Sprintf("points value must be between %d and %d", MinPointsValue, MaxPointsValue))
	}
	return nil
}

// ValidateTitle checks the listing title length.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < MinTitleLength || n > MaxTitleLength {
		return Invalid("title", fmt.Sprintf("title must be between %d and %d characters", MinTitleLength, MaxTitleLength))
	}
	return nil
}

// ValidateDescription checks the listing description length.
func ValidateDescription(desc string) error {
	n := utf8.RuneCountInString(desc)
	if n < MinDescriptionLen || n > MaxDescriptionLen {
		return Invalid("description", fmt.Sprintf("description must be between %d and %d characters", MinDescriptionLen, MaxDescriptionLen))
	}
	return nil
}

// ParseTags splits a comma-separated tag list, dropping empty entries.
func ParseTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ItemSummary is the denormalized item view embedded in swaps.
type ItemSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Images      []string   `json:"images"`
	PointsValue int        `json:"pointsValue"`
	Status      ItemStatus `json:"status"`
	OwnerID     string     `json:"owner"`
}
