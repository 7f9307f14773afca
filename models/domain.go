package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing represents one property submitted by its owner
type Listing struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	OwnerID         string         `json:"owner_id" db:"owner_id"`
	Contact         Contact        `json:"contact"`
	Timeline        string         `json:"timeline" db:"timeline"`
	Address         Address        `json:"address"`
	Bedrooms        *int           `json:"bedrooms" db:"bedrooms"`
	Bathrooms       *int           `json:"bathrooms" db:"bathrooms"`
	CarSpaces       *int           `json:"car_spaces" db:"car_spaces"`
	FloorArea       *int           `json:"floor_area" db:"floor_area"`
	PropertyType    string         `json:"property_type" db:"property_type"` // house, apartment, townhouse, land, other
	Price           string         `json:"price" db:"price"`                 // free text as entered, e.g. "$1,250,000"
	Estimate        *float64       `json:"estimate" db:"estimate"`
	Features        []string       `json:"features" db:"features"`
	ImageURLs       []string       `json:"image_urls" db:"image_urls"`
	Upload          UploadProgress `json:"upload"`
	Active          bool           `json:"active" db:"active"`
	Visibility      bool           `json:"visibility" db:"visibility"`
	AcceptingOffers bool           `json:"accepting_offers" db:"accepting_offers"`
	Stats           ViewStats      `json:"stats"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Contact holds the owner contact fields captured on the first wizard step
type Contact struct {
	Name  string `json:"name" db:"contact_name"`
	Email string `json:"email" db:"contact_email"`
	Phone string `json:"phone" db:"contact_phone"`
}

// Address is a resolved display address with optional coordinates
type Address struct {
	Display string   `json:"display" db:"address_display"`
	Lat     *float64 `json:"lat" db:"lat"`
	Lng     *float64 `json:"lng" db:"lng"`
}

// UploadProgress tracks multi-file media upload on a listing.
// InProgress is true iff Uploaded < Total.
type UploadProgress struct {
	Uploaded   int  `json:"uploaded" db:"upload_uploaded"`
	Total      int  `json:"total" db:"upload_total"`
	InProgress bool `json:"in_progress" db:"upload_in_progress"`
}

// NewUploadProgress builds a consistent progress record
func NewUploadProgress(uploaded, total int) UploadProgress {
	if uploaded > total {
		uploaded = total
	}
	return UploadProgress{Uploaded: uploaded, Total: total, InProgress: uploaded < total}
}

// Valid reports whether the progress record satisfies its invariants
func (p UploadProgress) Valid() bool {
	return p.Uploaded >= 0 && p.Uploaded <= p.Total && p.InProgress == (p.Uploaded < p.Total)
}

// ViewStats is incremented every time a listing detail view is rendered
type ViewStats struct {
	Views        int        `json:"views" db:"views"`
	LastViewedAt *time.Time `json:"last_viewed_at" db:"last_viewed_at"`
}

// UploadJob is one file of a listing's media upload, persisted so a reload can
// resume from the first item that is not done
type UploadJob struct {
	ListingID   uuid.UUID `json:"listing_id" db:"listing_id"`
	Position    int       `json:"position" db:"position"`
	Name        string    `json:"name" db:"name"`
	ContentType string    `json:"content_type" db:"content_type"`
	Status      string    `json:"status" db:"status"` // pending, uploading, done, failed
	URL         string    `json:"url" db:"url"`
	Attempts    int       `json:"attempts" db:"attempts"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ListingDraft is the copy of a finalized listing kept for operator review
type ListingDraft struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ListingID uuid.UUID `json:"listing_id" db:"listing_id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Status    string    `json:"status" db:"status"` // pending_review, approved, rejected
	Listing   Listing   `json:"listing" db:"snapshot"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Notification is a message addressed to an account
type Notification struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	AccountID string     `json:"account_id" db:"account_id"`
	ListingID *uuid.UUID `json:"listing_id" db:"listing_id"`
	Type      string     `json:"type" db:"type"`
	Message   string     `json:"message" db:"message"`
	Read      bool       `json:"read" db:"read"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Property types
const (
	PropertyTypeHouse     = "house"
	PropertyTypeApartment = "apartment"
	PropertyTypeTownhouse = "townhouse"
	PropertyTypeLand      = "land"
	PropertyTypeOther     = "other"
)

// ValidPropertyType reports whether t is one of the known property types
func ValidPropertyType(t string) bool {
	switch t {
	case PropertyTypeHouse, PropertyTypeApartment, PropertyTypeTownhouse, PropertyTypeLand, PropertyTypeOther:
		return true
	}
	return false
}

// Upload job status
const (
	UploadStatusPending   = "pending"
	UploadStatusUploading = "uploading"
	UploadStatusDone      = "done"
	UploadStatusFailed    = "failed"
)

// Draft status
const (
	DraftStatusPendingReview = "pending_review"
	DraftStatusApproved      = "approved"
	DraftStatusRejected      = "rejected"
)

// Notification types
const (
	NotificationListingSubmitted = "listing_submitted"
)
