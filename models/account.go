package models

import "time"

// Account is a registered user, created by the interest flow or the wizard
type Account struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Company      string    `json:"company" db:"company"`
	Phone        string    `json:"phone" db:"phone"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// BuyerPreferences is written for a new account at the end of interest registration
type BuyerPreferences struct {
	AccountID     string        `json:"account_id" db:"account_id"`
	Locations     []string      `json:"locations" db:"locations"`
	PropertyType  string        `json:"property_type" db:"property_type"`
	MinBedrooms   int           `json:"min_bedrooms" db:"min_bedrooms"`
	BudgetMin     int64         `json:"budget_min" db:"budget_min"`
	BudgetMax     int64         `json:"budget_max" db:"budget_max"`
	Qualification Qualification `json:"qualification"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}
