package service

import (
	"context"
	"time"

	"followup-server/utils"
)

// SweepMissed 将所有已过期且仍为Pending的跟进批量置为Missed，返回影响条数
// 重复执行是幂等的：第二次巡检不会再找到可变更的记录
// TODO: 批量巡检目前不为每条被置为Missed的跟进写历史记录，
// 与其他状态流转路径不一致，是否补齐待产品确认
func (s *FollowUpService) SweepMissed(ctx context.Context) (int64, error) {
	now := utils.FormatTimestamp(s.nowFn())
	return s.store.MarkOverdueMissed(ctx, now)
}

// StartMissedFollowUpSweeper 启动后台巡检，按固定间隔执行
// 单次失败只记录日志，不中断循环
func (s *FollowUpService) StartMissedFollowUpSweeper(interval time.Duration) {
	go func() {
		for {
			count, err := s.SweepMissed(context.Background())
			if err != nil {
				utils.Logger.Error().Err(err).Msg("错过跟进巡检失败")
			} else if count > 0 {
				utils.Logger.Info().Int64("count", count).Msg("已将过期跟进置为Missed")
			}
			time.Sleep(interval)
		}
	}()
}
