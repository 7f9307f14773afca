package models

import "time"

// ListingReport is the operator-facing summary of buyer signal for one listing
type ListingReport struct {
	ListingID      string     `json:"listing_id" db:"listing_id"`
	Views          int        `json:"views" db:"views"`
	LastViewedAt   *time.Time `json:"last_viewed_at" db:"last_viewed_at"`
	Opinions       int        `json:"opinions" db:"opinions"`
	SeriousCount   int        `json:"serious_count" db:"serious_count"`
	PassiveCount   int        `json:"passive_count" db:"passive_count"`
	SeriousMedian  float64    `json:"serious_median" db:"serious_median"`
	PassiveMedian  float64    `json:"passive_median" db:"passive_median"`
	CombinedMedian float64    `json:"combined_median" db:"combined_median"`
	Likes          int        `json:"likes" db:"likes"`
	DataErrors     []string   `json:"data_errors,omitempty" db:"data_errors"`
	GeneratedAt    time.Time  `json:"generated_at" db:"generated_at"`
}

// OwnerSummary groups listings by owning account for the operator dashboard
type OwnerSummary struct {
	OwnerID  string `json:"owner_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Listings int    `json:"listings"`
	Live     int    `json:"live"`
}

// ReportRun records one scheduled refresh of report snapshots
type ReportRun struct {
	ID         int64      `json:"id" db:"id"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at" db:"finished_at"`
	Status     RunStatus  `json:"status" db:"status"`
	Listings   int        `json:"listings" db:"listings"`
	Errors     int        `json:"errors" db:"errors"`
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)
