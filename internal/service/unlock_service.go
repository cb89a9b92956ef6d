package service

import (
	"context"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/model"
	"opencourse_backend/pkg/logger"

	"go.uber.org/zap"
)

// CourseSource 按解锁目标反查并加载整棵课程树
type CourseSource interface {
	CourseForTarget(ctx context.Context, target access.Target) (*model.Course, error)
}

// StateLoader 加载学习者快照
type StateLoader interface {
	Load(ctx context.Context, userID, courseID uint) (access.LearnerState, error)
}

// UnlockLedger 积分账本：余额读取与原子解锁落账
type UnlockLedger interface {
	Balance(ctx context.Context, userID uint) (int, error)
	ApplyUnlock(ctx context.Context, userID uint, target access.Target, price int, now time.Time) (*model.EarlyUnlock, int, bool, error)
}

// CacheInvalidator 解锁成功后由调用方刷新已缓存的解析视图
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID, courseID uint)
}

// UnlockService 提前解锁事务，本引擎唯一会改状态的入口。
// 所有校验都基于当前数据重新执行，不信任客户端缓存的视图。
type UnlockService struct {
	Courses CourseSource
	States  StateLoader
	Ledger  UnlockLedger
	Cache   CacheInvalidator // 可为 nil
}

func NewUnlockService(courses CourseSource, states StateLoader, ledger UnlockLedger, cache CacheInvalidator) *UnlockService {
	return &UnlockService{
		Courses: courses,
		States:  states,
		Ledger:  ledger,
		Cache:   cache,
	}
}

// UnlockResult 解锁成功（或目标本就已解锁）时的返回
type UnlockResult struct {
	Unlock          *model.EarlyUnlock `json:"unlock"`
	Balance         int                `json:"balance"`
	AlreadyUnlocked bool               `json:"alreadyUnlocked"`
	CourseID        uint               `json:"courseId"`
}

// UnlockEarly 花费积分解锁一个尚未到发布时间的章节或课时。
// 校验顺序：目标存在 → 已解锁幂等短路 → 余额 → 是否已可见 → 前置序列，
// 最后由账本在单个事务里完成"条件扣费 + 解锁落库"。
// 提前解锁只加速时间，不允许用积分跳过未完成的前置课时。
func (s *UnlockService) UnlockEarly(ctx context.Context, learnerID uint, target access.Target, now time.Time) (*UnlockResult, error) {
	course, err := s.Courses.CourseForTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	state, err := s.States.Load(ctx, learnerID, course.ID)
	if err != nil {
		return nil, err
	}

	// 重复解锁：直接返回现有记录，绝不二次扣费
	if state.Unlocked(target) {
		unlock, balance, _, err := s.Ledger.ApplyUnlock(ctx, learnerID, target, target.Price(), now)
		if err != nil {
			return nil, err
		}
		return &UnlockResult{Unlock: unlock, Balance: balance, AlreadyUnlocked: true, CourseID: course.ID}, nil
	}

	price := target.Price()
	balance, err := s.Ledger.Balance(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if balance < price {
		return nil, &access.InsufficientPointsError{Balance: balance, Price: price}
	}

	releaseAt, ok := access.TargetReleaseAt(course, target)
	if !ok {
		return nil, access.ErrTargetNotFound
	}
	if releaseAt == nil || !releaseAt.After(now) {
		// 内容已可见，不收这笔冤枉钱
		return nil, access.ErrAlreadyAvailable
	}

	if err := access.CheckPrerequisites(course, state, target); err != nil {
		return nil, err
	}

	unlock, newBalance, already, err := s.Ledger.ApplyUnlock(ctx, learnerID, target, price, now)
	if err != nil {
		// 条件扣费输掉了并发竞争：按重读后的余额返回余额不足，不做无限重试
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Invalidate(ctx, learnerID, course.ID)
	}

	logger.Log.Info("early unlock applied",
		zap.Uint("userId", learnerID),
		zap.String("target", target.String()),
		zap.Int("pointsSpent", price),
		zap.Int("balance", newBalance),
		zap.Bool("alreadyUnlocked", already))

	return &UnlockResult{
		Unlock:          unlock,
		Balance:         newBalance,
		AlreadyUnlocked: already,
		CourseID:        course.ID,
	}, nil
}
