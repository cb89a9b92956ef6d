package repository_test

import (
	"context"
	"testing"

	"opencourse_backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestUnlockRepository_Balance(t *testing.T) {
	// GIVEN 学习者当前有 42 积分
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT `points` FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(42))

	// WHEN 解锁前置校验读取余额
	repo := repository.NewUnlockRepository(db)
	balance, err := repo.Balance(context.Background(), 7)

	// THEN 返回账户积分
	require.NoError(t, err)
	require.Equal(t, 42, balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnlockRepository_BalanceUnknownUser(t *testing.T) {
	// GIVEN 用户不存在
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT `points` FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"points"}))

	// WHEN 读取余额
	repo := repository.NewUnlockRepository(db)
	_, err := repo.Balance(context.Background(), 404)

	// THEN 报未找到而不是返回零余额
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
