// internal/common/validation/apartment.go
package validation

import (
	"encoding/json"
	"fmt"
	"net/mail"

	apperrors "rent-predictor/internal/common/errors"
	"rent-predictor/internal/models"
)

// ApartmentValidator turns raw form values into a range- and enum-checked ApartmentInput.
type ApartmentValidator struct {
	validator *Validator
}

func NewApartmentValidator() (*ApartmentValidator, error) {
	v, err := NewValidator(SchemaFromFields(models.FormFields()))
	if err != nil {
		return nil, err
	}
	return &ApartmentValidator{validator: v}, nil
}

// Parse validates raw JSON and decodes it over the form defaults.
func (a *ApartmentValidator) Parse(data []byte) (models.ApartmentInput, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.ApartmentInput{}, apperrors.NewInputValidationFailedError(fmt.Sprintf("invalid JSON: %v", err))
	}
	return a.FromMap(doc)
}

// FromMap validates already-decoded values, such as Zeebe job variables.
func (a *ApartmentValidator) FromMap(doc map[string]interface{}) (models.ApartmentInput, error) {
	if doc == nil {
		doc = map[string]interface{}{}
	}

	result, err := a.validator.Validate(doc)
	if err != nil {
		return models.ApartmentInput{}, apperrors.NewInputValidationFailedError(err.Error())
	}
	if !result.Valid {
		return models.ApartmentInput{}, apperrors.NewInputValidationFailedError(result.Summary()).
			WithMetadata("errors", result.Errors)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return models.ApartmentInput{}, apperrors.NewInputValidationFailedError(err.Error())
	}

	input := models.DefaultApartmentInput()
	if err := json.Unmarshal(raw, &input); err != nil {
		return models.ApartmentInput{}, apperrors.NewInputValidationFailedError(err.Error())
	}
	return input, nil
}

// NotifyAddress checks an optional recipient value. Absent or empty values yield "".
func (a *ApartmentValidator) NotifyAddress(field string, raw interface{}) (string, error) {
	return NotifyAddress(field, raw)
}

// NotifyAddress normalizes "Name <addr>" forms down to the bare address.
func NotifyAddress(field string, raw interface{}) (string, error) {
	if raw == nil {
		return "", nil
	}
	email, ok := raw.(string)
	if !ok {
		return "", apperrors.NewInputValidationFailedError(field + " must be a string")
	}
	if email == "" {
		return "", nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", apperrors.NewInputValidationFailedError(field + " is not a valid address")
	}
	return addr.Address, nil
}
