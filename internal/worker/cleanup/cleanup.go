// Package cleanup は定期実行のクリーンアップジョブを提供する。
// 期限切れセッションの削除、放置された編集リクエストの自動取り下げ、
// どのレコードからも参照されていない孤立画像ファイルの回収を行う。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/midori/internal/repository"
	"github.com/hitoshi/midori/internal/storage"
)

// DB はクリーンアップに必要なSQL実行の抽象。
// *sql.DB や *sql.Tx を受け付けることができる。
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Recorder はクリーンアップ結果のメトリクス記録インターフェース。
type Recorder interface {
	RecordCleanup(target string, count int)
}

// CleanupJob は定期実行のクリーンアップジョブ。
// 冪等な削除処理として設計されており、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	db       DB
	sessions repository.SessionRepository
	images   storage.ImageStore
	logger   *slog.Logger
	recorder Recorder // nil可

	// StaleEditRequestDays は放置された編集リクエストを取り下げるまでの日数。
	StaleEditRequestDays int
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトでは30日間応答のない編集リクエストを取り下げる。
func NewCleanupJob(db DB, sessions repository.SessionRepository, images storage.ImageStore, logger *slog.Logger, recorder Recorder) *CleanupJob {
	return &CleanupJob{
		db:                   db,
		sessions:             sessions,
		images:               images,
		logger:               logger,
		recorder:             recorder,
		StaleEditRequestDays: 30,
	}
}

// Run は全クリーンアップ処理を順に実行する。
// 個別処理の失敗は記録した上で残りの処理を継続し、最後のエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	var lastErr error

	if err := j.cleanupSessions(ctx); err != nil {
		lastErr = err
	}
	if err := j.cleanupStaleEditRequests(ctx); err != nil {
		lastErr = err
	}
	if err := j.cleanupOrphanedImages(ctx); err != nil {
		lastErr = err
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return lastErr
}

// cleanupSessions は期限切れセッションを削除する。
func (j *CleanupJob) cleanupSessions(ctx context.Context) error {
	count, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	j.record("sessions", int(count))
	j.logger.Info("期限切れセッションを削除しました",
		slog.Int64("deleted_count", count),
	)
	return nil
}

// cleanupStaleEditRequests は一定期間応答のない編集リクエストを自動で取り下げる。
// 著者が承認も拒否もしないまま放置されたpendingリクエストが対象。
func (j *CleanupJob) cleanupStaleEditRequests(ctx context.Context) error {
	interval := fmt.Sprintf("%d days", j.StaleEditRequestDays)

	result, err := j.db.ExecContext(ctx,
		`UPDATE articles
		    SET edit_request = 'none', updated_at = now(), version = version + 1
		  WHERE edit_request = 'pending' AND updated_at < now() - $1::interval`,
		interval)
	if err != nil {
		j.logger.Error("放置編集リクエストの取り下げに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("stale_days", j.StaleEditRequestDays),
		)
		return fmt.Errorf("放置編集リクエストの取り下げに失敗: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("取り下げ件数の取得に失敗: %w", err)
	}

	j.record("edit_requests", int(count))
	j.logger.Info("放置された編集リクエストを取り下げました",
		slog.Int64("cancelled_count", count),
		slog.Int("stale_days", j.StaleEditRequestDays),
	)
	return nil
}

// cleanupOrphanedImages はどのレコードからも参照されていない画像ファイルを削除する。
// 画像差し替え失敗時などに残った孤立ファイルを回収する。
func (j *CleanupJob) cleanupOrphanedImages(ctx context.Context) error {
	referenced, err := j.referencedImageURLs(ctx)
	if err != nil {
		j.logger.Error("参照中画像URLの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return err
	}

	stored, err := j.images.ListURLs()
	if err != nil {
		j.logger.Error("保存済み画像一覧の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("保存済み画像一覧の取得に失敗: %w", err)
	}

	deleted := 0
	for _, url := range stored {
		if _, ok := referenced[url]; ok {
			continue
		}
		if err := j.images.Delete(url); err != nil {
			j.logger.Warn("孤立画像の削除に失敗しました",
				slog.String("url", url),
				slog.String("error", err.Error()),
			)
			continue
		}
		deleted++
	}

	j.record("images", deleted)
	j.logger.Info("孤立画像を削除しました",
		slog.Int("deleted_count", deleted),
		slog.Int("stored_count", len(stored)),
	)
	return nil
}

// referencedImageURLs は全テーブルから参照中の画像URLの集合を取得する。
func (j *CleanupJob) referencedImageURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT image_url FROM articles WHERE image_url IS NOT NULL
		 UNION
		 SELECT image_url FROM plants WHERE image_url IS NOT NULL
		 UNION
		 SELECT image_url FROM events WHERE image_url IS NOT NULL
		 UNION
		 SELECT image_url FROM competition_entries WHERE image_url IS NOT NULL
		 UNION
		 SELECT hero_image_url FROM site_settings WHERE hero_image_url IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("参照中画像URLの取得に失敗: %w", err)
	}
	defer rows.Close()

	referenced := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("画像URLの読み取りに失敗: %w", err)
		}
		referenced[url] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("画像URLの走査に失敗: %w", err)
	}
	return referenced, nil
}

// record はメトリクスレコーダーが設定されている場合のみ記録する。
func (j *CleanupJob) record(target string, count int) {
	if j.recorder != nil {
		j.recorder.RecordCleanup(target, count)
	}
}
