package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"propsignal/accounts"
	"propsignal/services"
	"propsignal/wizard"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Step  string `json:"step,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError maps domain errors onto HTTP statuses. Validation and account
// messages are shown as-is; anything unknown is logged and hidden.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var wizErr *wizard.ValidationError
	var valErr *services.ValidationError
	switch {
	case errors.As(err, &wizErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: wizErr.Message, Field: wizErr.Field, Step: wizErr.Step.String()})
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: valErr.Message, Field: valErr.Field})
	case errors.Is(err, accounts.ErrDuplicateEmail):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, accounts.ErrWeakPassword), errors.Is(err, accounts.ErrInvalidEmail):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNoOpinion):
		writeMessage(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, services.ErrWrongStep), errors.Is(err, wizard.ErrTransitionNotAllowed):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrListingNotFound), errors.Is(err, services.ErrNothingToResume):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrSubmitFailed):
		writeMessage(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("API: %s %s: %v", r.Method, r.URL.Path, err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
