package repository

import (
	"context"
	"fmt"
	"time"

	"opencourse_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) Save(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", time.Now()).Error
}

// Balance 读取当前积分余额
func (r *UserRepository) Balance(ctx context.Context, userID uint) (int, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Select("points").First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.Points, nil
}

// CreditPoints 原子加分并在同一事务内落积分流水，返回新余额。
// 扣减不走这里，扣减只发生在解锁事务（UnlockRepository.ApplyUnlock）。
func (r *UserRepository) CreditPoints(ctx context.Context, userID uint, amount int, kind, reference string) (int, error) {
	var balance int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.User{}).
			Where("id = ?", userID).
			UpdateColumn("points", gorm.Expr("points + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var user model.User
		if err := tx.Select("points").First(&user, userID).Error; err != nil {
			return err
		}
		balance = user.Points

		return tx.Create(&model.PointTransaction{
			UserID:       userID,
			Amount:       amount,
			Kind:         kind,
			Reference:    reference,
			BalanceAfter: balance,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *UserRepository) RecentTransactions(ctx context.Context, userID uint, limit int) ([]model.PointTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var txs []model.PointTransaction
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("load point transactions: %w", err)
	}
	return txs, nil
}
