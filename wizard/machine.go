package wizard

import "propsignal/config"

type edge struct {
	from   Step
	action Action
}

// transitions is the whole wizard. Back is missing from the first and
// terminal steps, and media only leaves forward through Submit.
var transitions = map[edge]Step{
	{StepContact, ActionNext}:  StepTimeline,
	{StepTimeline, ActionNext}: StepAddress,
	{StepAddress, ActionNext}:  StepType,
	{StepType, ActionNext}:     StepPrice,
	{StepPrice, ActionNext}:    StepDetails,
	{StepDetails, ActionNext}:  StepMedia,
	{StepMedia, ActionSubmit}:  StepComplete,

	{StepTimeline, ActionBack}: StepContact,
	{StepAddress, ActionBack}:  StepTimeline,
	{StepType, ActionBack}:     StepAddress,
	{StepPrice, ActionBack}:    StepType,
	{StepDetails, ActionBack}:  StepPrice,
	{StepMedia, ActionBack}:    StepDetails,
}

// Machine applies the transition table with step validators
type Machine struct {
	rules Rules
}

// Rules are the configurable limits the validators check against
type Rules struct {
	Timelines    []string
	MaxFiles     int
	MaxFileBytes int64
}

// RulesFromTuning builds wizard rules from the tuning file
func RulesFromTuning(t config.Tuning) Rules {
	return Rules{
		Timelines:    t.Wizard.Timelines,
		MaxFiles:     t.Upload.MaxFiles,
		MaxFileBytes: t.Upload.MaxFileBytes,
	}
}

func NewMachine(rules Rules) *Machine {
	if len(rules.Timelines) == 0 {
		rules.Timelines = config.DefaultTuning().Wizard.Timelines
	}
	return &Machine{rules: rules}
}

// Allowed reports whether the table has an edge for (from, action)
func Allowed(from Step, action Action) bool {
	_, ok := transitions[edge{from, action}]
	return ok
}

// Transition returns the step reached from `from` by action. Forward moves
// run the validator of the step being left; Back never validates.
func (m *Machine) Transition(from Step, action Action, d *Data) (Step, error) {
	to, ok := transitions[edge{from, action}]
	if !ok {
		return from, ErrTransitionNotAllowed
	}
	if action != ActionBack {
		if err := m.Validate(from, d); err != nil {
			return from, err
		}
	}
	return to, nil
}

// Validate runs the predicate of one step
func (m *Machine) Validate(step Step, d *Data) error {
	switch step {
	case StepContact:
		return validateContact(d)
	case StepTimeline:
		return m.validateTimeline(d)
	case StepAddress:
		return validateAddress(d)
	case StepType:
		return validateType(d)
	case StepPrice:
		return validatePrice(d)
	case StepDetails:
		return validateDetails(d)
	case StepMedia:
		return m.validateMedia(d)
	}
	return nil
}
