package main

import (
	"context"
)

// resetPassword replaces the password of `email` and lifts any login lockout.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return cli.usrSvc.SetPassword(ctx, usr.Account, pwd)
}
