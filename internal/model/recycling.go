package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// WasteCategory is the enumerated recycling category.
type WasteCategory string

const (
	CategoryPlastic WasteCategory = "Plastic"
	CategoryPaper   WasteCategory = "Paper"
	CategoryGlass   WasteCategory = "Glass"
	CategoryMetal   WasteCategory = "Metal"
	CategoryOther   WasteCategory = "Other"
)

// categoryMultiplier converts kilograms into points.  Categories missing
// from the table (Other) earn defaultMultiplier.  Stored logs keep the
// points computed at logging time, so editing this table never rewrites
// history.
var categoryMultiplier = map[WasteCategory]int64{
	CategoryPlastic: 5,
	CategoryPaper:   3,
	CategoryGlass:   4,
	CategoryMetal:   6,
}

const defaultMultiplier int64 = 2

// ParseCategory accepts a category name case-insensitively.
func ParseCategory(s string) (WasteCategory, error) {
	for _, c := range []WasteCategory{CategoryPlastic, CategoryPaper, CategoryGlass, CategoryMetal, CategoryOther} {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown waste category %q", s)
}

// Multiplier returns the points-per-kilogram coefficient for c.
func (c WasteCategory) Multiplier() int64 {
	if m, ok := categoryMultiplier[c]; ok {
		return m
	}
	return defaultMultiplier
}

// Points returns floor(weightKg * multiplier).
func (c WasteCategory) Points(weightKg float64) int64 {
	return int64(math.Floor(weightKg * float64(c.Multiplier())))
}

// RecyclingLog mirrors the `recycling_logs` table.  PickupID is set when the
// log was recorded by a collector while completing a pickup.
type RecyclingLog struct {
	ID         uint64
	ResidentID string
	PickupID   *uint64
	Category   WasteCategory
	WeightKg   float64
	Points     int64
	ImageRef   *string
	LoggedAt   time.Time
}

// RecyclingEntry is the weight/category pair attached to a completion.
type RecyclingEntry struct {
	Category WasteCategory
	WeightKg float64
	ImageRef string
}
