package main

import (
	"context"

	"github.com/trezcool/campus/core/user"
)

// addUser creates a verified user after running the same checks as the API.
func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return cli.describe(err)
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return cli.describe(err)
	}
	logger.WithField("profileId", usr.Profile.ID.Hex()).Infof("created %s %s", usr.Profile.Role, usr.Profile.Email)
	return nil
}
