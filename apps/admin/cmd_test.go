package main

import (
	"context"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/storage/database/inmem"
	"github.com/trezcool/campus/tests"
)

func setup(t *testing.T) (*commandLine, *emailsvc.ConsoleServiceMock) {
	std := logrus.New()
	std.SetOutput(io.Discard)
	logger = logrus.NewEntry(std)

	conf := core.NewTestConfig()
	repos := inmem.NewRepositories()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger(conf))
	validate, translator := testutil.NewValidator()

	return &commandLine{
		usrSvc:     user.NewService(repos.Accounts, repos.Profiles, mailSvc, conf),
		validate:   validate,
		translator: translator,
	}, mailSvc
}

// withPassword makes the terminal prompt answer `pwd`.
func withPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (cli *commandLine) runTests(t *testing.T, tests []cliTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)
	cli.runTests(t, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "adduser without args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "resetpassword without args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "empty password", args: []string{"resetpassword", "-email", "a@campus.test"}, wantErr: errHelp},
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, mailSvc := setup(t)

	cli.runTests(t, []cliTest{
		{
			name: "super admin", pwd: testutil.Password,
			args: []string{"adduser", "-name", "Root Admin", "-email", "Root@Campus.test"},
		},
		{
			name: "same email", pwd: testutil.Password, wantErrStr: "email: a user with this email already exists",
			args: []string{"adduser", "-name", "Root Again", "-email", "root@campus.test"},
		},
		{
			name: "weak password", pwd: "12345678", wantErrStr: "password",
			args: []string{"adduser", "-name", "Weak Admin", "-email", "weak@campus.test"},
		},
		{
			name: "faculty needs a department", pwd: testutil.Password, wantErrStr: "department",
			args: []string{"adduser", "-name", "Fay Faculty", "-email", "fay@campus.test", "-role", "faculty"},
		},
		{
			name: "faculty", pwd: testutil.Password,
			args: []string{"adduser", "-name", "Fay Faculty", "-email", "fay@campus.test", "-role", "faculty", "-department", "CSE"},
		},
		{
			name: "unknown role", pwd: testutil.Password, wantErrStr: "role",
			args: []string{"adduser", "-name", "Jan Itor", "-email", "jan@campus.test", "-role", "janitor"},
		},
	})

	usr, err := cli.usrSvc.GetByEmail(context.Background(), "root@campus.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleSuperAdmin, usr.Profile.Role)
	assert.True(t, usr.Account.IsVerified)
	assert.True(t, usr.Profile.IsActive)

	fay, err := cli.usrSvc.GetByEmail(context.Background(), "fay@campus.test")
	require.NoError(t, err)
	assert.Equal(t, "CSE", fay.Profile.Department)

	assert.Empty(t, mailSvc.SentMessages(), "verified users get no verification email")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)
	usr := testutil.CreateUser(t, cli.usrSvc, "Ada Admin", "admin@campus.test", user.RoleSuperAdmin, user.Attributes{})

	const newPassword = "Tr0ub4dor&3-horse"
	cli.runTests(t, []cliTest{
		{name: "user not found", args: []string{"resetpassword", "-email", "nobody@campus.test"}, pwd: newPassword, wantErr: core.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "ADMIN@campus.test"}, pwd: newPassword},
	})

	refreshed, err := cli.usrSvc.GetByEmail(context.Background(), usr.Account.Email)
	require.NoError(t, err)
	assert.NotEqual(t, usr.Account.PasswordHash, refreshed.Account.PasswordHash)
	assert.NoError(t, refreshed.Account.CheckPassword(newPassword))
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	calls := 0
	orig := ensureIndexesFunc
	ensureIndexesFunc = func(context.Context, *mongo.Database) error {
		calls++
		if calls > 1 {
			return errors.New("connection refused")
		}
		return nil
	}
	t.Cleanup(func() { ensureIndexesFunc = orig })

	cli.runTests(t, []cliTest{
		{name: "indexes", args: []string{"migrate"}},
		{name: "database down", args: []string{"migrate"}, wantErrStr: "connection refused"},
	})
	assert.Equal(t, 2, calls)
}
