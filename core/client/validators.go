package client

import (
	"github.com/go-playground/validator/v10"

	"github.com/estetika/academy/core"
)

func (nn *NewNote) Validate(validate *validator.Validate) error {
	nn.Content = core.CleanString(nn.Content)
	return validate.Struct(nn)
}
