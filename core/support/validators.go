package support

import (
	"github.com/go-playground/validator/v10"

	"github.com/estetika/academy/core"
)

func (nt *NewTicket) Validate(validate *validator.Validate) error {
	nt.Subject = core.CleanString(nt.Subject)
	nt.Message = core.CleanString(nt.Message)
	nt.AttachmentURL = core.CleanString(nt.AttachmentURL)
	return validate.Struct(nt)
}

func (rt *ReplyTicket) Validate(validate *validator.Validate) error {
	rt.Reply = core.CleanString(rt.Reply)
	return validate.Struct(rt)
}
