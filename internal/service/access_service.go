package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"opencourse_backend/internal/access"
	"opencourse_backend/internal/repository"
	"opencourse_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resolvedCourseKeyPrefix = "resolved_course:"

// 解析结果只做短 TTL 缓存：锁定状态是派生值，时间锁会随时钟翻转，
// 完成/提交/解锁三类变更各自主动失效
const resolvedCourseTTL = 30 * time.Second

// AccessService 只读的访问状态解析：加载课程树与学习者快照，
// 跑纯函数 access.Resolve，结果进 Redis。自身不改任何状态。
type AccessService struct {
	CourseRepo *repository.CourseRepository
	States     *LearnerStateLoader
	Redis      *redis.Client
}

func NewAccessService(courseRepo *repository.CourseRepository, states *LearnerStateLoader, rdb *redis.Client) *AccessService {
	return &AccessService{
		CourseRepo: courseRepo,
		States:     states,
		Redis:      rdb,
	}
}

func resolvedCourseKey(userID, courseID uint) string {
	return fmt.Sprintf("%s%d:%d", resolvedCourseKeyPrefix, userID, courseID)
}

// ResolveCourse 返回带锁定标记的课程树，可在每次页面加载时调用
func (s *AccessService) ResolveCourse(ctx context.Context, userID, courseID uint, now time.Time) (*access.ResolvedCourse, error) {
	key := resolvedCourseKey(userID, courseID)

	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, key).Result()
		if err == nil {
			var cached access.ResolvedCourse
			if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("resolved course cache read failed", zap.Error(err))
		}
	}

	course, err := s.CourseRepo.FindWithContent(ctx, courseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, access.ErrTargetNotFound
		}
		return nil, err
	}

	state, err := s.States.Load(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	resolved := access.Resolve(course, state, now)

	if s.Redis != nil {
		if data, err := json.Marshal(resolved); err == nil {
			if err := s.Redis.Set(ctx, key, data, resolvedCourseTTL).Err(); err != nil {
				logger.Log.Warn("resolved course cache write failed", zap.Error(err))
			}
		}
	}

	return resolved, nil
}

// Invalidate 在完成/提交/解锁任一变更后丢弃缓存的解析视图
func (s *AccessService) Invalidate(ctx context.Context, userID, courseID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, resolvedCourseKey(userID, courseID)).Err(); err != nil {
		logger.Log.Warn("resolved course cache invalidate failed", zap.Error(err))
	}
}
