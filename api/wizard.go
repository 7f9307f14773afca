package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"
	"propsignal/services"
	"propsignal/wizard"
	"propsignal/workers"
)

const uploadField = "files"

type wizardRequest struct {
	wizard.Data
	Password string `json:"password"`
}

type wizardResponse struct {
	Step    string        `json:"step"`
	Actions []string      `json:"actions"`
	State   *wizard.State `json:"state"`
}

type submitFailure struct {
	Error     string    `json:"error"`
	ListingID uuid.UUID `json:"listing_id"`
	Resume    string    `json:"resume"`
}

func stateResponse(st *wizard.State) wizardResponse {
	actions := []string{}
	for _, a := range []wizard.Action{wizard.ActionBack, wizard.ActionNext, wizard.ActionSubmit} {
		if wizard.Allowed(st.Step, a) {
			actions = append(actions, a.String())
		}
	}
	return wizardResponse{Step: st.Step.String(), Actions: actions, State: st}
}

var errNotYourUpload = errors.New("this upload belongs to another session")

// lockWizard returns the session's locked wizard. Without create, a session
// that has none gets a nil entry and ok true. The caller must unlock.
func (s *Server) lockWizard(w http.ResponseWriter, r *http.Request, create bool) (*wizardEntry, string, bool) {
	sc := sessionFrom(r.Context())
	if !sc.Correlatable() {
		writeMessage(w, http.StatusBadRequest, "cookies are required to list a property")
		return nil, "", false
	}
	entry := s.sessions.wizard(sc.SessionID, create)
	if entry != nil {
		entry.mu.Lock()
	}
	return entry, sc.SessionID, true
}

func (s *Server) handleWizardState(w http.ResponseWriter, r *http.Request) {
	entry, _, ok := s.lockWizard(w, r, false)
	if !ok {
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusOK, stateResponse(wizard.NewState("")))
		return
	}
	defer entry.mu.Unlock()
	writeJSON(w, http.StatusOK, stateResponse(entry.state))
}

// handleWizardNext takes the full collected data and moves forward one step
func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	var req wizardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, _, ok := s.lockWizard(w, r, true)
	if !ok {
		return
	}
	defer entry.mu.Unlock()

	st := entry.state
	files := st.Data.Files
	st.Data = req.Data
	st.Data.Files = files
	if st.ListingID == uuid.Nil {
		st.Data.Password = req.Password
	}

	if err := s.deps.Submissions.Advance(r.Context(), st, wizard.ActionNext); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(st))
}

func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	entry, _, ok := s.lockWizard(w, r, false)
	if !ok {
		return
	}
	if entry == nil {
		writeError(w, r, wizard.ErrTransitionNotAllowed)
		return
	}
	defer entry.mu.Unlock()

	if err := s.deps.Submissions.Advance(r.Context(), entry.state, wizard.ActionBack); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(entry.state))
}

// handleWizardSubmit receives the media files as multipart, in selection order
func (s *Server) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	headers, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	entry, sessionID, ok := s.lockWizard(w, r, false)
	if !ok {
		return
	}
	if entry == nil {
		writeError(w, r, wizard.ErrTransitionNotAllowed)
		return
	}
	defer entry.mu.Unlock()

	st := entry.state
	files, sources := multipartSources(headers)
	st.Data.Files = files

	err := s.deps.Submissions.Submit(r.Context(), st, sources)
	if errors.Is(err, services.ErrSubmitFailed) && st.ListingID != uuid.Nil {
		writeJSON(w, http.StatusBadGateway, submitFailure{
			Error:     err.Error(),
			ListingID: st.ListingID,
			Resume:    "/listings/" + st.ListingID.String() + "/media/resume",
		})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.sessions.forgetWizard(sessionID)
	writeJSON(w, http.StatusCreated, stateResponse(st))
}

// handleResumeUpload continues an interrupted upload of the session's own
// listing. All files are sent again; those already uploaded are not read.
func (s *Server) handleResumeUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := listingID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	headers, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	entry, sessionID, ok := s.lockWizard(w, r, false)
	if !ok {
		return
	}
	if entry == nil {
		writeMessage(w, http.StatusForbidden, errNotYourUpload.Error())
		return
	}
	defer entry.mu.Unlock()
	if entry.state.ListingID != id {
		writeMessage(w, http.StatusForbidden, errNotYourUpload.Error())
		return
	}

	_, sources := multipartSources(headers)
	if err := s.deps.Submissions.Resume(r.Context(), id, sources); err != nil {
		writeError(w, r, err)
		return
	}

	entry.state.Step = wizard.StepComplete
	s.sessions.forgetWizard(sessionID)
	writeJSON(w, http.StatusOK, stateResponse(entry.state))
}

func (s *Server) handleMediaStatus(w http.ResponseWriter, r *http.Request) {
	listing, ok := s.loadListing(w, r)
	if !ok {
		return
	}
	jobs, err := s.deps.Media.Jobs(r.Context(), listing.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	depth, err := s.deps.Media.QueueDepth(r.Context(), listing.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"upload": listing.Upload,
		"jobs":   jobs,
		"counts": depth,
	})
}

func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) ([]*multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid upload")
		return nil, false
	}
	return r.MultipartForm.File[uploadField], true
}

func multipartSources(headers []*multipart.FileHeader) ([]wizard.File, []workers.Source) {
	files := make([]wizard.File, 0, len(headers))
	sources := make([]workers.Source, 0, len(headers))
	for _, fh := range headers {
		ct := fh.Header.Get("Content-Type")
		files = append(files, wizard.File{Name: fh.Filename, ContentType: ct, Size: fh.Size})
		sources = append(sources, workers.Source{
			Name:        fh.Filename,
			ContentType: ct,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}
	return files, sources
}
