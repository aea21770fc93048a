package di

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/masomo-portal/apps/api/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
)

func TestNew(t *testing.T) {
	c := New(core.NewTestConfig())

	err := c.Invoke(func(server *echoapi.Server, usrSvc *user.Service, repo classroom.Repository, closer DBCloser) {
		assert.NotNil(t, server)
		assert.NoError(t, closer())

		_, err := usrSvc.GetByID(context.Background(), 1)
		assert.Equal(t, user.ErrNotFound, err)

		courses, err := repo.QueryCourses(context.Background(), 1)
		assert.NoError(t, err)
		assert.Empty(t, courses)

		assert.NoError(t, server.Shutdown(context.Background()))
	})
	require.NoError(t, err)
}

func TestNew_unknownEngine(t *testing.T) {
	conf := core.NewTestConfig()
	conf.Database.Engine = "mongo"
	c := New(conf)

	err := c.Invoke(func(user.Repository) {})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), `unknown database engine "mongo"`)
	}
}
