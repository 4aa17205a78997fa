package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/storage/database/inmem"
	"github.com/trezcool/campus/tests"
)

// stuckProfiles refuses to delete anything.
type stuckProfiles struct {
	core.Store[user.Profile]
}

func (stuckProfiles) Delete(context.Context, primitive.ObjectID) error {
	return errors.New("connection reset")
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, testutil.NewLogger(conf))

	t.Run("account and profile", func(t *testing.T) {
		repos := inmem.NewRepositories()
		svc := user.NewService(repos.Accounts, repos.Profiles, mailSvc, conf)
		usr := testutil.CreateUser(t, svc, "Dan Director", "dan@campus.test", user.RoleDirector, user.Attributes{})

		require.NoError(t, svc.Delete(ctx, usr))
		_, err := svc.Resolve(ctx, usr.Account.ID.Hex())
		assert.Equal(t, core.ErrAccountNotFound, errors.Cause(err))
		_, err = repos.Profiles.Get(ctx, usr.Profile.ID)
		assert.Equal(t, core.ErrNotFound, errors.Cause(err))
	})

	t.Run("profile delete fails", func(t *testing.T) {
		repos := inmem.NewRepositories()
		svc := user.NewService(repos.Accounts, stuckProfiles{repos.Profiles}, mailSvc, conf)
		usr := testutil.CreateUser(t, svc, "Dan Director", "dan@campus.test", user.RoleDirector, user.Attributes{})

		assert.Error(t, svc.Delete(ctx, usr))
		_, err := svc.Resolve(ctx, usr.Account.ID.Hex())
		assert.Equal(t, core.ErrAccountNotFound, errors.Cause(err), "tokens of the user stop working")
	})
}
