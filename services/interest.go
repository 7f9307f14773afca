package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"propsignal/accounts"
	"propsignal/metrics"
	"propsignal/models"
	"propsignal/session"
)

var (
	ErrNoOpinion = errors.New("share your price opinion before registering interest")
	ErrWrongStep = errors.New("not available at this step")
)

// ValidationError is a recoverable problem with the visitor's input
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type InterestStep int

const (
	InterestStepLocked InterestStep = iota
	InterestStepQualification
	InterestStepAccount
	InterestStepDone
)

func (s InterestStep) String() string {
	switch s {
	case InterestStepLocked:
		return "locked"
	case InterestStepQualification:
		return "qualification"
	case InterestStepAccount:
		return "account"
	case InterestStepDone:
		return "done"
	}
	return fmt.Sprintf("interest_step(%d)", int(s))
}

// AccountRequest is the account step of interest registration
type AccountRequest struct {
	Name         string
	Email        string
	Password     string
	Phone        string
	Company      string
	Locations    string // comma or semicolon separated
	PropertyType string
	MinBedrooms  int
	BudgetMin    int64
	BudgetMax    int64
}

// InterestFlow escalates a session's price opinion into a serious, identified
// signal. It is per-session state.
type InterestFlow struct {
	store      InterestStore
	accounts   AccountCreator
	reconciler *session.Reconciler
	sc         session.SessionContext
	listingID  string

	step          InterestStep
	qualification models.Qualification
	account       *models.Account
}

func NewInterestFlow(store InterestStore, accts AccountCreator, reconciler *session.Reconciler, sc session.SessionContext, listingID string) *InterestFlow {
	return &InterestFlow{
		store:      store,
		accounts:   accts,
		reconciler: reconciler,
		sc:         sc,
		listingID:  listingID,
	}
}

func (f *InterestFlow) Step() InterestStep                  { return f.step }
func (f *InterestFlow) Qualification() models.Qualification { return f.qualification }

// Start opens the flow once the session has an opinion on the listing
func (f *InterestFlow) Start(ctx context.Context) error {
	if !f.sc.Correlatable() {
		return ErrNoOpinion
	}
	sig, err := f.store.FindLatestSignal(ctx, f.listingID, f.sc.SessionID, models.SignalKindOpinion)
	if err != nil {
		return fmt.Errorf("check opinion: %w", err)
	}
	if sig == nil {
		return ErrNoOpinion
	}
	if f.step == InterestStepLocked {
		f.step = InterestStepQualification
	}
	return nil
}

// SubmitQualification records the qualification answers. Buyer type and
// seriousness are both required.
func (f *InterestFlow) SubmitQualification(q models.Qualification) error {
	if f.step != InterestStepQualification && f.step != InterestStepAccount {
		return ErrWrongStep
	}
	if !models.ValidBuyerType(q.BuyerType) {
		return &ValidationError{Field: "buyer_type", Message: "please tell us how you are buying"}
	}
	if !models.ValidSeriousnessLevel(q.SeriousnessLevel) {
		return &ValidationError{Field: "seriousness_level", Message: "please tell us how serious you are"}
	}
	f.qualification = q
	f.step = InterestStepAccount
	return nil
}

// SubmitAccount creates the account, stores buyer preferences and promotes the
// session's signal. Account service errors are returned unchanged and leave
// the flow on the account step with no signal touched.
func (f *InterestFlow) SubmitAccount(ctx context.Context, req AccountRequest) (*models.Account, error) {
	if f.step != InterestStepAccount {
		return nil, ErrWrongStep
	}
	if req.MinBedrooms < 0 {
		return nil, &ValidationError{Field: "min_bedrooms", Message: "bedrooms cannot be negative"}
	}
	if req.BudgetMin < 0 || req.BudgetMax < 0 || (req.BudgetMax > 0 && req.BudgetMin > req.BudgetMax) {
		return nil, &ValidationError{Field: "budget", Message: "please check your budget range"}
	}
	if req.PropertyType != "" && !models.ValidPropertyType(req.PropertyType) {
		return nil, &ValidationError{Field: "property_type", Message: "please choose a property type"}
	}

	// A retry after a failed write reuses the account already created
	account := f.account
	if account == nil {
		created, err := f.accounts.CreateAccount(ctx, accounts.CreateRequest{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Company:  req.Company,
			Phone:    req.Phone,
		})
		if err != nil {
			metrics.RecordInterest("account_rejected")
			return nil, err
		}
		account = created
		f.account = account
	}

	prefs := &models.BuyerPreferences{
		AccountID:     account.ID,
		Locations:     ParseLocations(req.Locations),
		PropertyType:  req.PropertyType,
		MinBedrooms:   req.MinBedrooms,
		BudgetMin:     req.BudgetMin,
		BudgetMax:     req.BudgetMax,
		Qualification: f.qualification,
	}
	if err := f.store.SaveBuyerPreferences(ctx, prefs); err != nil {
		metrics.RecordInterest("failed")
		log.Printf("Interest: save preferences for %s failed: %v", account.ID, err)
		return account, fmt.Errorf("save preferences: %w", err)
	}

	serious := true
	q := f.qualification
	if _, err := f.reconciler.Promote(ctx, f.sc, f.listingID, account.ID, models.SignalPatch{
		Serious:       &serious,
		Qualification: &q,
	}); err != nil {
		metrics.RecordInterest("failed")
		log.Printf("Interest: promote signal for %s failed: %v", account.ID, err)
		return account, fmt.Errorf("promote signal: %w", err)
	}

	if n, err := f.reconciler.LinkSession(ctx, f.sc, account.ID); err != nil {
		log.Printf("Interest: link session %s failed after %d signals: %v", f.sc.SessionID, n, err)
	}

	f.step = InterestStepDone
	metrics.RecordInterest("registered")
	return account, nil
}

// ParseLocations splits a free-text list of suburbs on commas and semicolons.
// Entries are trimmed; blanks and case-insensitive repeats are dropped.
func ParseLocations(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		key := strings.ToLower(p)
		if p == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}
