// Package model defines the records produced and reconciled by a lead hunt.
package model

import (
	"strconv"
	"strings"
)

// Sentinels mark a value that could not be resolved.
const (
	UnknownName = "Unknown Store"
	NotFound    = "Not found"
	NotAvail    = "N/A"
)

// ExtractionMethod records which kind of strategy produced a record.
type ExtractionMethod string

const (
	MethodStructured ExtractionMethod = "Structured"
	MethodRegex      ExtractionMethod = "Regex"
	MethodAI         ExtractionMethod = "AIAssisted"
)

// BusinessRecord is one row per visited entity. Records are treated as
// immutable once assembled; reconciliation replaces whole records.
type BusinessRecord struct {
	Number       int              `json:"number" yaml:"number"`
	Name         string           `json:"store_name" yaml:"store_name"`
	Rating       *float64         `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReviewCount  *int             `json:"reviews_count,omitempty" yaml:"reviews_count,omitempty"`
	Phone        string           `json:"phone_number" yaml:"phone_number"`
	Address      string           `json:"address" yaml:"address"`
	Hours        string           `json:"opening_hours" yaml:"opening_hours"`
	Website      string           `json:"website" yaml:"website"`
	PlusCode     string           `json:"plus_code" yaml:"plus_code"`
	Latitude     string           `json:"latitude" yaml:"latitude"`
	Longitude    string           `json:"longitude" yaml:"longitude"`
	PermalinkURL string           `json:"google_maps_url" yaml:"google_maps_url"`
	PlaceID      string           `json:"place_id" yaml:"place_id"`
	Method       ExtractionMethod `json:"extraction_method" yaml:"extraction_method"`
}

// IsSentinel reports whether s is empty or one of the "value absent" markers.
func IsSentinel(s string) bool {
	switch strings.TrimSpace(s) {
	case "", NotFound, NotAvail, UnknownName:
		return true
	}
	return false
}

// Present returns s, or the empty string when s is a sentinel.
func Present(s string) string {
	if IsSentinel(s) {
		return ""
	}
	return s
}

// RatingValue returns the rating, treating an absent rating as zero.
func (r BusinessRecord) RatingValue() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}

// RatingText formats the rating for display, "N/A" when absent.
func (r BusinessRecord) RatingText() string {
	if r.Rating == nil {
		return NotAvail
	}
	return strconv.FormatFloat(*r.Rating, 'f', 1, 64)
}

// ReviewCountText formats the review count for display, "N/A" when absent.
func (r BusinessRecord) ReviewCountText() string {
	if r.ReviewCount == nil {
		return NotAvail
	}
	return strconv.Itoa(*r.ReviewCount)
}

// Coordinates parses the latitude/longitude pair. ok is false when either
// side is absent or not a number.
func (r BusinessRecord) Coordinates() (lat, lng float64, ok bool) {
	if IsSentinel(r.Latitude) || IsSentinel(r.Longitude) {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(r.Latitude, 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(r.Longitude, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
