package program

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/estetika/academy/core"
)

var (
	oneOfTag  = "oneof"
	oneOfText = "{0} has an invalid value"
)

// InitValidators registers the translations used by the program inputs.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterCustomTranslation(validate, translator, oneOfTag, oneOfText, true)
}

func (np *NewProgram) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	np.CoverImage = core.CleanString(np.CoverImage)
	return validate.Struct(np)
}

func (up *UpdateProgram) Validate(validate *validator.Validate) error {
	if up.Title != nil {
		title := core.CleanString(*up.Title)
		up.Title = &title
	}
	if up.CoverImage != nil {
		img := core.CleanString(*up.CoverImage)
		up.CoverImage = &img
	}
	return validate.Struct(up)
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.ParentID = core.CleanString(nl.ParentID)
	nl.Title = core.CleanString(nl.Title)
	return validate.Struct(nl)
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	if ul.Title != nil {
		title := core.CleanString(*ul.Title)
		ul.Title = &title
	}
	return validate.Struct(ul)
}

func (nn *NewNode) Validate(validate *validator.Validate) error {
	nn.ParentID = core.CleanString(nn.ParentID)
	nn.Title = core.CleanString(nn.Title)
	return validate.Struct(nn)
}

func (mn *MoveNode) Validate(validate *validator.Validate) error {
	mn.ParentID = core.CleanString(mn.ParentID)
	return validate.Struct(mn)
}

func (rn *RenameNode) Validate(validate *validator.Validate) error {
	rn.Title = core.CleanString(rn.Title)
	return validate.Struct(rn)
}

func (na *NewAttachment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.URL = core.CleanString(na.URL)
	return validate.Struct(na)
}
