package user

import (
	"context"

	"github.com/estetika/academy/core"
)

type serviceMock struct {
	*service
}

// NewServiceMock returns a Service that sends its emails synchronously.
func NewServiceMock(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &serviceMock{service: newService(repo, mailSvc, logger, conf)}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

// MakeResetToken returns the uid and token of a password reset link for usr.
func (svc *serviceMock) MakeResetToken(usr User) (uid, token string) {
	return EncodeUID(usr), svc.tokens.makeToken(usr)
}
