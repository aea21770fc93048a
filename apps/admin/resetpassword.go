package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}

	pc := user.NewPasswordChange(usr, pwd, pwd)
	if err = pc.Validate(cli.validate); err != nil {
		if msg, ok := cli.validationMessage(err); ok {
			return errors.New(msg)
		}
		return err
	}
	_, err = cli.usrSvc.ChangePassword(ctx, pc)
	return err
}
