package repository

import (
	"context"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UnlockRepository struct {
	DB *gorm.DB
}

func NewUnlockRepository(db *gorm.DB) *UnlockRepository {
	return &UnlockRepository{DB: db}
}

// UnlockedIDs 学习者在某课程内已提前解锁的章节与课时 ID 集合
func (r *UnlockRepository) UnlockedIDs(ctx context.Context, userID, courseID uint) (map[uint]bool, map[uint]bool, error) {
	var chapterIDs []uint
	err := r.DB.WithContext(ctx).
		Model(&model.EarlyUnlock{}).
		Select("early_unlocks.chapter_id").
		Joins("JOIN chapters ON chapters.id = early_unlocks.chapter_id").
		Where("early_unlocks.user_id = ? AND chapters.course_id = ?", userID, courseID).
		Scan(&chapterIDs).Error
	if err != nil {
		return nil, nil, err
	}

	var lessonIDs []uint
	err = r.DB.WithContext(ctx).
		Model(&model.EarlyUnlock{}).
		Select("early_unlocks.lesson_id").
		Joins("JOIN lessons ON lessons.id = early_unlocks.lesson_id").
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
		Where("early_unlocks.user_id = ? AND chapters.course_id = ?", userID, courseID).
		Scan(&lessonIDs).Error
	if err != nil {
		return nil, nil, err
	}

	chapters := make(map[uint]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		chapters[id] = true
	}
	lessons := make(map[uint]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		lessons[id] = true
	}
	return chapters, lessons, nil
}

// Balance 读取当前积分余额，解锁前置校验用
func (r *UnlockRepository) Balance(ctx context.Context, userID uint) (int, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Select("points").First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.Points, nil
}

// ApplyUnlock 在单个数据库事务内完成解锁落库与扣费，部分状态不可观测：
//
//  1. 先插入解锁行（唯一键冲突则 DoNothing），已解锁过的目标直接返回
//     现有记录，不重复扣费，同目标并发请求靠唯一键天然幂等；
//  2. 条件扣费 UPDATE users SET points = points - price
//     WHERE id = ? AND points >= price，余额不足时影响行数为 0，
//     事务回滚（解锁行随之撤销），重读余额后返回结构化错误；
//  3. 同一事务内追加积分流水。
//
// 返回 (解锁记录, 新余额, 是否本就已解锁, error)。
// 余额永远不会被并发请求打成负数：检查与扣减是同一条条件更新。
func (r *UnlockRepository) ApplyUnlock(ctx context.Context, userID uint, target access.Target, price int, now time.Time) (*model.EarlyUnlock, int, bool, error) {
	var unlock model.EarlyUnlock
	var balance int
	already := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unlock = model.EarlyUnlock{
			UserID:      userID,
			PointsSpent: price,
			UnlockedAt:  now,
		}
		targetID := target.ID()
		switch target.Kind() {
		case access.TargetChapter:
			unlock.ChapterID = &targetID
		case access.TargetLesson:
			unlock.LessonID = &targetID
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&unlock)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			// 已有记录：不扣费，读回现有行与当前余额
			already = true
			q := tx.Where("user_id = ?", userID)
			if target.Kind() == access.TargetChapter {
				q = q.Where("chapter_id = ?", targetID)
			} else {
				q = q.Where("lesson_id = ?", targetID)
			}
			if err := q.First(&unlock).Error; err != nil {
				return err
			}
			var user model.User
			if err := tx.Select("points").First(&user, userID).Error; err != nil {
				return err
			}
			balance = user.Points
			return nil
		}

		debit := tx.Model(&model.User{}).
			Where("id = ? AND points >= ?", userID, price).
			UpdateColumn("points", gorm.Expr("points - ?", price))
		if debit.Error != nil {
			return debit.Error
		}
		if debit.RowsAffected == 0 {
			// 余额不足（或输掉了并发扣费）：回滚解锁行，带回实际余额
			var user model.User
			if err := tx.Select("points").First(&user, userID).Error; err != nil {
				return err
			}
			return &access.InsufficientPointsError{Balance: user.Points, Price: price}
		}

		var user model.User
		if err := tx.Select("points").First(&user, userID).Error; err != nil {
			return err
		}
		balance = user.Points

		return tx.Create(&model.PointTransaction{
			UserID:       userID,
			Amount:       -price,
			Kind:         "early_unlock",
			Reference:    target.String(),
			BalanceAfter: balance,
		}).Error
	})
	if err != nil {
		return nil, 0, false, err
	}
	return &unlock, balance, already, nil
}
