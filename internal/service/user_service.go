package service

import (
	"context"

	"opencourse_backend/internal/model"
	"opencourse_backend/internal/repository"
)

type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

func (s *UserService) Profile(userID uint) (*model.User, error) {
	return s.UserRepo.FindByID(userID)
}

func (s *UserService) UpdateProfile(userID uint, name, language string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		user.Name = name
	}
	if language != "" {
		user.Language = language
	}
	if err := s.UserRepo.Save(user); err != nil {
		return nil, err
	}
	return user, nil
}

// PointsSummary 积分余额与最近流水
type PointsSummary struct {
	Balance      int                      `json:"balance"`
	Transactions []model.PointTransaction `json:"transactions"`
}

func (s *UserService) Points(ctx context.Context, userID uint) (*PointsSummary, error) {
	balance, err := s.UserRepo.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.UserRepo.RecentTransactions(ctx, userID, 20)
	if err != nil {
		return nil, err
	}
	return &PointsSummary{Balance: balance, Transactions: txs}, nil
}
