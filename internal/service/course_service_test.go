package service

import (
	"testing"

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

// 结构重建必须发真正的 DELETE。软删只会置 deleted_at，
// 位置唯一索引仍覆盖软删行，按原位置重建会撞唯一键。
func TestPurgeChaptersIssuesHardDeletes(t *testing.T) {
	// GIVEN 课程下有两个章节、一个课时及其作业
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM `assignments`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `lessons`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `chapters`").WillReturnResult(sqlmock.NewResult(0, 2))

	// WHEN 整树清空旧结构
	err := purgeChapters(db, 1, []uint{10, 11}, []uint{100})

	// THEN 三张表各收到一条 DELETE，而不是软删 UPDATE
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeChaptersWithoutLessons(t *testing.T) {
	// GIVEN 章节下没有任何课时
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM `lessons`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `chapters`").WillReturnResult(sqlmock.NewResult(0, 1))

	// WHEN 清空旧结构
	err := purgeChapters(db, 1, []uint{10}, nil)

	// THEN 跳过作业表，课时与章节照常硬删
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
