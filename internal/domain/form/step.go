package form

import (
	"fmt"
	"strings"
)

const (
	// FirstStep is the step a new record starts on
	FirstStep = 1
	// TotalSteps is the fixed number of wizard steps
	TotalSteps = 7
)

// StepDefinition describes one wizard step and the fields a submit must carry
type StepDefinition struct {
	Number         int      `json:"number"`
	Key            string   `json:"key"`
	Title          string   `json:"title"`
	RequiredFields []string `json:"required_fields"`
}

var stepDefinitions = [TotalSteps]StepDefinition{
	{
		Number:         1,
		Key:            "personal_information",
		Title:          "Personal Information",
		RequiredFields: []string{"surnames", "given_names", "sex", "marital_status", "birth_date", "birth_city", "birth_country", "nationality"},
	},
	{
		Number:         2,
		Key:            "travel_information",
		Title:          "Travel Information",
		RequiredFields: []string{"trip_purpose", "intended_arrival_date", "intended_length_of_stay", "us_address", "trip_payer"},
	},
	{
		Number:         3,
		Key:            "address_and_phone",
		Title:          "Address and Phone",
		RequiredFields: []string{"home_address", "home_city", "home_country", "primary_phone", "email"},
	},
	{
		Number:         4,
		Key:            "passport_information",
		Title:          "Passport Information",
		RequiredFields: []string{"passport_type", "passport_number", "passport_issuing_country", "passport_issue_date", "passport_expiration_date"},
	},
	{
		Number:         5,
		Key:            "us_contact",
		Title:          "U.S. Point of Contact",
		RequiredFields: []string{"us_contact_name", "us_contact_relationship", "us_contact_address", "us_contact_phone"},
	},
	{
		Number:         6,
		Key:            "family_information",
		Title:          "Family Information",
		RequiredFields: []string{"father_surnames", "father_given_names", "mother_surnames", "mother_given_names"},
	},
	{
		Number:         7,
		Key:            "work_and_education",
		Title:          "Work, Education and Security",
		RequiredFields: []string{"primary_occupation", "present_employer", "education_level", "security_declaration"},
	},
}

// IsValidStep reports whether step is within 1..TotalSteps
func IsValidStep(step int) bool {
	return step >= FirstStep && step <= TotalSteps
}

// StepDefinitions returns the definitions of all wizard steps in order
func StepDefinitions() []StepDefinition {
	out := make([]StepDefinition, TotalSteps)
	copy(out, stepDefinitions[:])
	return out
}

// GetStepDefinition returns the definition of the given step
func GetStepDefinition(step int) (StepDefinition, bool) {
	if !IsValidStep(step) {
		return StepDefinition{}, false
	}
	return stepDefinitions[step-1], true
}

// ValidateStepFields checks that every required field of step is present and
// non-empty in the union of the stored fields and the incoming payload.
// Only presence is checked; DS-160 content rules are not enforced.
func ValidateStepFields(step int, existing, payload map[string]any) error {
	def, ok := GetStepDefinition(step)
	if !ok {
		return ErrInvalidStep
	}

	var missing []string
	for _, key := range def.RequiredFields {
		value, present := payload[key]
		if !present {
			value, present = existing[key]
		}
		if !present || isBlank(value) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return NewValidationError(step, missing)
	}
	return nil
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		return strings.TrimSpace(fmt.Sprint(v)) == ""
	}
}

func clampStep(step int) int {
	if step < FirstStep {
		return FirstStep
	}
	if step > TotalSteps {
		return TotalSteps
	}
	return step
}
