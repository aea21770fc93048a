package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/user"
)

var roleFlags = map[string]string{
	"admin":   user.RoleAdmin,
	"teacher": user.RoleTeacher,
	"student": user.RoleStudent,
}

func (cli *commandLine) addUser(name, uname, email, role, pwd string) error {
	r, ok := roleFlags[role]
	if !ok {
		return errors.Errorf("unknown role %q", role)
	}

	ctx := context.Background()
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           []string{r},
	}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		if msg, ok := cli.validationMessage(err); ok {
			return errors.New(msg)
		}
		return errors.Wrap(err, "validating user")
	}

	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	fmt.Fprintf(cli.out, "user #%d created\n", usr.ID)
	return nil
}
