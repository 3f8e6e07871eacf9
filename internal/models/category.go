package models

import (
	"fmt"
	"strings"
)

// Category is the closed set of metal categories a product can belong to
type Category string

const (
	CategoryGold    Category = "Gold"
	CategorySilver  Category = "Silver"
	CategoryDiamond Category = "Diamond"
)

// Categories lists every category in display order
var Categories = []Category{CategoryGold, CategorySilver, CategoryDiamond}

// ParseCategory accepts a category name in any letter case
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q: must be one of Gold, Silver, Diamond", s)
}

// IsValid reports whether c is one of the known categories
func (c Category) IsValid() bool {
	switch c {
	case CategoryGold, CategorySilver, CategoryDiamond:
		return true
	}
	return false
}

// MetalType returns the upper-case invoice bucket for the category
func (c Category) MetalType() MetalType {
	return MetalType(strings.ToUpper(string(c)))
}

// MetalType is the invoice-numbering bucket of a bill (GOLD, SILVER, DIAMOND)
type MetalType string

const (
	MetalTypeGold    MetalType = "GOLD"
	MetalTypeSilver  MetalType = "SILVER"
	MetalTypeDiamond MetalType = "DIAMOND"
)

// IsValid reports whether m is one of the known metal types
func (m MetalType) IsValid() bool {
	switch m {
	case MetalTypeGold, MetalTypeSilver, MetalTypeDiamond:
		return true
	}
	return false
}
