package models

import "time"

// Signal correlates one visitor or account to one listing: a price opinion,
// a like, an offer or a registered interest
type Signal struct {
	ID            string        `json:"id" db:"id"`
	ListingID     string        `json:"property_id" db:"listing_id"`
	Kind          string        `json:"kind" db:"kind"`
	SessionID     string        `json:"session_id" db:"session_id"`
	UserID        *string       `json:"user_id,omitempty" db:"user_id"`
	Amount        int64         `json:"amount" db:"amount"`
	Serious       bool          `json:"serious" db:"serious"`
	Qualification Qualification `json:"qualification"`
	FromWeb       bool          `json:"from_web" db:"from_web"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// Qualification is captured by the interest registration flow.
// A serious signal always carries BuyerType and SeriousnessLevel.
type Qualification struct {
	BuyerType        string `json:"buyer_type,omitempty" db:"buyer_type"`
	SeriousnessLevel string `json:"seriousness_level,omitempty" db:"seriousness_level"`
	FirstHomeBuyer   bool   `json:"first_home_buyer" db:"first_home_buyer"`
	Investor         bool   `json:"investor" db:"investor"`
}

// Complete reports whether both required qualification answers are present
func (q Qualification) Complete() bool {
	return ValidBuyerType(q.BuyerType) && ValidSeriousnessLevel(q.SeriousnessLevel)
}

// SignalPatch is a partial update of a signal. Nil fields are left untouched;
// fields are only ever added, never removed.
type SignalPatch struct {
	Amount        *int64
	UserID        *string
	Serious       *bool
	Qualification *Qualification
}

// Signal kinds
const (
	SignalKindOpinion  = "opinion"
	SignalKindLike     = "like"
	SignalKindOffer    = "offer"
	SignalKindInterest = "interest"
)

// Buyer types
const (
	BuyerTypeCash            = "cash"
	BuyerTypeApprovedFinance = "approved_finance"
	BuyerTypePreApproval     = "pre_approval"
	BuyerTypeNotYet          = "not_yet"
)

// Seriousness levels
const (
	SeriousnessJustBrowsing   = "just_browsing"
	SeriousnessInterested     = "interested"
	SeriousnessVeryInterested = "very_interested"
	SeriousnessReadyToBuy     = "ready_to_buy"
)

func ValidBuyerType(t string) bool {
	switch t {
	case BuyerTypeCash, BuyerTypeApprovedFinance, BuyerTypePreApproval, BuyerTypeNotYet:
		return true
	}
	return false
}

func ValidSeriousnessLevel(l string) bool {
	switch l {
	case SeriousnessJustBrowsing, SeriousnessInterested, SeriousnessVeryInterested, SeriousnessReadyToBuy:
		return true
	}
	return false
}
