package wizard

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"propsignal/models"
)

// Step is one screen of the listing submission wizard
type Step int

const (
	StepContact Step = iota
	StepTimeline
	StepAddress
	StepType
	StepPrice
	StepDetails
	StepMedia
	StepComplete
)

var stepNames = map[Step]string{
	StepContact:  "contact",
	StepTimeline: "timeline",
	StepAddress:  "address",
	StepType:     "type",
	StepPrice:    "price",
	StepDetails:  "details",
	StepMedia:    "media",
	StepComplete: "complete",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// ParseStep maps a step name back to its Step
func ParseStep(name string) (Step, bool) {
	for step, n := range stepNames {
		if n == name {
			return step, true
		}
	}
	return 0, false
}

// Action is what the visitor asked the wizard to do
type Action int

const (
	ActionNext Action = iota
	ActionBack
	ActionSubmit
)

func (a Action) String() string {
	switch a {
	case ActionNext:
		return "next"
	case ActionBack:
		return "back"
	case ActionSubmit:
		return "submit"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

var ErrTransitionNotAllowed = errors.New("transition not allowed")

// ValidationError is a recoverable, inline problem with the current step
type ValidationError struct {
	Step    Step
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// File is one media file the owner selected, in selection order
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Data is everything the wizard collects before final submission
type Data struct {
	Contact      models.Contact `json:"contact"`
	Password     string         `json:"-"`
	Timeline     string         `json:"timeline"`
	Address      models.Address `json:"address"`
	PropertyType string         `json:"property_type"`
	Price        string         `json:"price"`
	Bedrooms     *int           `json:"bedrooms"`
	Bathrooms    *int           `json:"bathrooms"`
	CarSpaces    *int           `json:"car_spaces"`
	FloorArea    *int           `json:"floor_area"`
	Features     []string       `json:"features"`
	Files        []File         `json:"files"`
}

// State is one visitor's progress through the wizard. ListingID is set once
// the draft listing exists.
type State struct {
	Step      Step      `json:"step"`
	Data      Data      `json:"data"`
	ListingID uuid.UUID `json:"listing_id"`
	OwnerID   string    `json:"owner_id"`
}

// NewState starts a wizard at the contact step
func NewState(ownerID string) *State {
	return &State{Step: StepContact, OwnerID: ownerID}
}

// Listing builds the listing record from the collected data
func (d *Data) Listing(id uuid.UUID, ownerID string) models.Listing {
	return models.Listing{
		ID:           id,
		OwnerID:      ownerID,
		Contact:      d.Contact,
		Timeline:     d.Timeline,
		Address:      d.Address,
		Bedrooms:     d.Bedrooms,
		Bathrooms:    d.Bathrooms,
		CarSpaces:    d.CarSpaces,
		FloorArea:    d.FloorArea,
		PropertyType: d.PropertyType,
		Price:        d.Price,
		Features:     dedupe(d.Features),
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
