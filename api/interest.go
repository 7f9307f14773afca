package api

import (
	"net/http"

	"propsignal/models"
	"propsignal/services"
	"propsignal/session"
)

type interestResponse struct {
	Step    string          `json:"step"`
	Account *models.Account `json:"account,omitempty"`
}

type accountRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone"`
	Company      string `json:"company"`
	Locations    string `json:"locations"`
	PropertyType string `json:"property_type"`
	MinBedrooms  int    `json:"min_bedrooms"`
	BudgetMin    int64  `json:"budget_min"`
	BudgetMax    int64  `json:"budget_max"`
}

func (s *Server) interestTarget(w http.ResponseWriter, r *http.Request) (session.SessionContext, string, bool) {
	id, ok := listingID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid listing id")
		return session.SessionContext{}, "", false
	}
	sc := sessionFrom(r.Context())
	if !sc.Correlatable() {
		writeError(w, r, services.ErrNoOpinion)
		return sc, "", false
	}
	return sc, id.String(), true
}

// lockInterest returns the locked, started flow for this session and listing.
// The caller must unlock it.
func (s *Server) lockInterest(w http.ResponseWriter, r *http.Request) (*interestEntry, bool) {
	sc, listing, ok := s.interestTarget(w, r)
	if !ok {
		return nil, false
	}
	entry := s.sessions.interestFlow(sc.SessionID, listing)
	if entry == nil {
		writeError(w, r, services.ErrWrongStep)
		return nil, false
	}
	entry.mu.Lock()
	return entry, true
}

// handleInterestStart opens the flow. State is only kept once the gate passes.
func (s *Server) handleInterestStart(w http.ResponseWriter, r *http.Request) {
	sc, listing, ok := s.interestTarget(w, r)
	if !ok {
		return
	}

	entry := s.sessions.interestFlow(sc.SessionID, listing)
	if entry == nil {
		flow := services.NewInterestFlow(s.deps.Store, s.deps.Accounts, s.deps.Reconciler, sc, listing)
		if err := flow.Start(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		entry = s.sessions.storeInterest(sc.SessionID, listing, flow)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if err := entry.flow.Start(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interestResponse{Step: entry.flow.Step().String()})
}

func (s *Server) handleInterestQualification(w http.ResponseWriter, r *http.Request) {
	var q models.Qualification
	if err := decodeJSON(r, &q); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, ok := s.lockInterest(w, r)
	if !ok {
		return
	}
	defer entry.mu.Unlock()

	if err := entry.flow.SubmitQualification(q); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interestResponse{Step: entry.flow.Step().String()})
}

func (s *Server) handleInterestAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, ok := s.lockInterest(w, r)
	if !ok {
		return
	}
	defer entry.mu.Unlock()

	account, err := entry.flow.SubmitAccount(r.Context(), services.AccountRequest{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Phone:        req.Phone,
		Company:      req.Company,
		Locations:    req.Locations,
		PropertyType: req.PropertyType,
		MinBedrooms:  req.MinBedrooms,
		BudgetMin:    req.BudgetMin,
		BudgetMax:    req.BudgetMax,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, interestResponse{Step: entry.flow.Step().String(), Account: account})
}
