// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れのパスワードリセットトークンの削除と、終了済み会議の
// レジストリからの間引きを日次バッチで行う。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredResetDeleter は期限切れリセットトークンの削除に必要なインターフェース。
// repository.PasswordResetRepositoryの部分集合として定義する。
type ExpiredResetDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// MeetingPruner は終了済み会議の間引きに必要なインターフェース。
// meeting.Registryが満たす。APIサーバーと別プロセスで動くため、
// 間引きの前に必ずRestoreで最新スナップショットを読み直す。
// さもないと起動時点の古いコレクションを上書き保存してしまう。
type MeetingPruner interface {
	Restore(ctx context.Context) error
	PruneEnded(ctx context.Context) int
}

// CleanupJob は期限切れデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	resets   ExpiredResetDeleter
	meetings MeetingPruner // nilの場合は会議の間引きをスキップする
	logger   *slog.Logger
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(resets ExpiredResetDeleter, meetings MeetingPruner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		resets:   resets,
		meetings: meetings,
		logger:   logger,
	}
}

// Run は期限切れリセットトークンを削除し、終了済み会議を間引く。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedResets, err := j.resets.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れリセットトークンの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れリセットトークンの削除に失敗: %w", err)
	}

	prunedMeetings := 0
	if j.meetings != nil {
		// APIサーバーが作成した会議を失わないよう、保存済みの
		// 最新コレクションに同期してから間引く
		if err := j.meetings.Restore(ctx); err != nil {
			j.logger.Error("会議スナップショットの再読み込みに失敗しました",
				slog.String("error", err.Error()),
			)
			return fmt.Errorf("会議スナップショットの再読み込みに失敗: %w", err)
		}
		prunedMeetings = j.meetings.PruneEnded(ctx)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_resets", deletedResets),
		slog.Int("pruned_meetings", prunedMeetings),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
