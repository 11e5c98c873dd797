package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/user"
)

// addUser updates or creates the active user.User of email.
func (cli *commandLine) addUser(ctx context.Context, name, email, pwd string, isAdmin bool) (user.User, error) {
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	found := err == nil
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
		usr = user.User{Email: email, Roles: append([]string(nil), user.StudentRoles...)}
	}
	if name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = email
	}
	if isAdmin {
		usr.Roles = append([]string(nil), user.AdminRoles...)
	}
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	tstamp := time.Now().UTC()
	usr.UpdatedAt = tstamp
	if found {
		return cli.usrRepo.UpdateUser(ctx, usr)
	}
	usr.CreatedAt = tstamp
	return cli.usrRepo.CreateUser(ctx, usr)
}
