package wizard

import (
	"fmt"
	"strings"

	"propsignal/accounts"
	"propsignal/identity"
	"propsignal/models"
)

func invalid(step Step, field, message string) *ValidationError {
	return &ValidationError{Step: step, Field: field, Message: message}
}

func validateContact(d *Data) error {
	if strings.TrimSpace(d.Contact.Name) == "" {
		return invalid(StepContact, "name", "please enter your name")
	}
	email, ok := accounts.NormalizeEmail(d.Contact.Email)
	if !ok {
		return invalid(StepContact, "email", "please enter a valid email address")
	}
	d.Contact.Email = email
	return nil
}

func (m *Machine) validateTimeline(d *Data) error {
	for _, t := range m.rules.Timelines {
		if d.Timeline == t {
			return nil
		}
	}
	return invalid(StepTimeline, "timeline", "please choose when you are looking to sell")
}

func validateAddress(d *Data) error {
	if strings.TrimSpace(d.Address.Display) == "" {
		return invalid(StepAddress, "address", "please select an address from the suggestions")
	}
	if d.Address.Lat == nil || d.Address.Lng == nil {
		return invalid(StepAddress, "address", "we could not locate that address, please pick a suggestion")
	}
	return nil
}

func validateType(d *Data) error {
	if !models.ValidPropertyType(d.PropertyType) {
		return invalid(StepType, "property_type", "please choose a property type")
	}
	return nil
}

func validatePrice(d *Data) error {
	if _, ok := identity.ParsePrice(d.Price); !ok {
		return invalid(StepPrice, "price", "please enter a price")
	}
	return nil
}

func validateDetails(d *Data) error {
	if d.Bedrooms == nil || *d.Bedrooms < 0 {
		return invalid(StepDetails, "bedrooms", "please enter the number of bedrooms")
	}
	if d.Bathrooms == nil || *d.Bathrooms < 0 {
		return invalid(StepDetails, "bathrooms", "please enter the number of bathrooms")
	}
	if d.CarSpaces != nil && *d.CarSpaces < 0 {
		return invalid(StepDetails, "car_spaces", "car spaces cannot be negative")
	}
	if d.FloorArea != nil && *d.FloorArea < 0 {
		return invalid(StepDetails, "floor_area", "floor area cannot be negative")
	}
	return nil
}

func (m *Machine) validateMedia(d *Data) error {
	if len(d.Files) == 0 {
		return invalid(StepMedia, "files", "please add at least one photo")
	}
	if m.rules.MaxFiles > 0 && len(d.Files) > m.rules.MaxFiles {
		return invalid(StepMedia, "files", fmt.Sprintf("please select at most %d files", m.rules.MaxFiles))
	}
	for _, f := range d.Files {
		if m.rules.MaxFileBytes > 0 && f.Size > m.rules.MaxFileBytes {
			return invalid(StepMedia, "files", fmt.Sprintf("%s is too large", f.Name))
		}
		if f.ContentType != "" && !strings.HasPrefix(f.ContentType, "image/") && !strings.HasPrefix(f.ContentType, "video/") {
			return invalid(StepMedia, "files", fmt.Sprintf("%s is not a photo or video", f.Name))
		}
	}
	return nil
}
