package learning

import (
	"github.com/go-playground/validator/v10"

	"github.com/estetika/academy/core"
)

func (ng *NewGrant) Validate(validate *validator.Validate) error {
	ng.UserID = core.CleanString(ng.UserID)
	ng.ProgramID = core.CleanString(ng.ProgramID)
	ng.Reason = core.CleanString(ng.Reason)
	return validate.Struct(ng)
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Content = core.CleanString(ns.Content)
	ns.FileURL = core.CleanString(ns.FileURL)
	return validate.Struct(ns)
}

func (rs *ReviewSubmission) Validate(validate *validator.Validate) error {
	rs.AdminReply = core.CleanString(rs.AdminReply)
	return validate.Struct(rs)
}
