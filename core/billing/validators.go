package billing

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/estetika/academy/core"
)

var (
	gtTag  = "gt"
	gtText = "{0} must be greater than zero"

	gteTag  = "gte"
	gteText = "{0} cannot be negative"
)

// InitValidators registers the translations used by the billing inputs.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterCustomTranslation(validate, translator, gtTag, gtText, true)
	core.RegisterCustomTranslation(validate, translator, gteTag, gteText, true)
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.UserID = core.CleanString(np.UserID)
	np.ProgramID = core.CleanString(np.ProgramID)
	np.Comment = core.CleanString(np.Comment)
	return validate.Struct(np)
}

func (up *UpdatePayment) Validate(validate *validator.Validate) error {
	if up.Comment != nil {
		c := core.CleanString(*up.Comment)
		up.Comment = &c
	}
	return validate.Struct(up)
}

func (ne *NewExpense) Validate(validate *validator.Validate) error {
	ne.Description = core.CleanString(ne.Description)
	ne.ProgramID = core.CleanString(ne.ProgramID)
	return validate.Struct(ne)
}

func (ue *UpdateExpense) Validate(validate *validator.Validate) error {
	if ue.Description != nil {
		d := core.CleanString(*ue.Description)
		ue.Description = &d
	}
	if ue.ProgramID != nil {
		id := core.CleanString(*ue.ProgramID)
		ue.ProgramID = &id
	}
	return validate.Struct(ue)
}
