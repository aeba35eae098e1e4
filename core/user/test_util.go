package user

import (
	"context"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose async side effects run synchronously
// so tests can observe them deterministically.
func NewServiceMock(repo Repository, mailSvc core.EmailService, logger core.Logger) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
			logger:  logger,
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}
