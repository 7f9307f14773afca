package api

import (
	"net/http"

	"propsignal/models"
	"propsignal/services"
)

type opinionResponse struct {
	Range        services.PriceRange `json:"range"`
	Value        int64               `json:"value"`
	SavedID      string              `json:"saved_id,omitempty"`
	Correlatable bool                `json:"correlatable"`
}

type opinionRequest struct {
	Value int64 `json:"value"`
}

func (s *Server) loadListing(w http.ResponseWriter, r *http.Request) (*models.Listing, bool) {
	id, ok := listingID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid listing id")
		return nil, false
	}
	listing, err := s.deps.Store.GetListing(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if listing == nil {
		writeError(w, r, services.ErrListingNotFound)
		return nil, false
	}
	return listing, true
}

// handleGetListing renders a listing detail and counts the view
func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, ok := s.loadListing(w, r)
	if !ok {
		return
	}
	if s.deps.Views != nil {
		s.deps.Views.Record(listing.ID)
	}
	writeJSON(w, http.StatusOK, listing)
}

func (s *Server) handleGetOpinion(w http.ResponseWriter, r *http.Request) {
	listing, ok := s.loadListing(w, r)
	if !ok {
		return
	}
	sc := sessionFrom(r.Context())
	engine := services.NewOpinionEngine(s.deps.Store, s.deps.Pricing, sc, listing)
	if err := engine.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opinionFor(engine, sc.Correlatable()))
}

// handleSaveOpinion is one completed slider gesture: the body carries the
// value at release
func (s *Server) handleSaveOpinion(w http.ResponseWriter, r *http.Request) {
	listing, ok := s.loadListing(w, r)
	if !ok {
		return
	}
	var req opinionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sc := sessionFrom(r.Context())
	engine := services.NewOpinionEngine(s.deps.Store, s.deps.Pricing, sc, listing)
	if err := engine.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	engine.BeginAdjustment()
	engine.SetValue(req.Value)
	if err := engine.EndAdjustment(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opinionFor(engine, sc.Correlatable()))
}

func opinionFor(e *services.OpinionEngine, correlatable bool) opinionResponse {
	return opinionResponse{
		Range:        e.Range(),
		Value:        e.Value(),
		SavedID:      e.SavedSignalID(),
		Correlatable: correlatable,
	}
}
