package health

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDep struct {
	err error
}

func (f fakeDep) Healthy() error { return f.err }

func TestDatabaseChecker(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	check := DatabaseChecker(db)
	assert.NoError(t, check())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseChecker_PingFails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	check := DatabaseChecker(db)
	assert.Error(t, check())
}

func TestRedisChecker(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")

	check := RedisChecker(client)
	assert.NoError(t, check())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisChecker_PingFails(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectPing().SetErr(errors.New("redis down"))

	check := RedisChecker(client)
	assert.Error(t, check())
}

func TestDependencyChecker(t *testing.T) {
	assert.NoError(t, DependencyChecker(fakeDep{})())

	down := errors.New("broker unreachable")
	err := DependencyChecker(fakeDep{err: down})()
	assert.ErrorIs(t, err, down)
}

func TestPoolChecker_ReturnsChecker(t *testing.T) {
	assert.NotNil(t, PoolChecker(nil))
}
