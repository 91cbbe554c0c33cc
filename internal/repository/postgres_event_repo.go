package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/midori/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

// scanEvent はイベント行を読み取る。
func scanEvent(row rowScanner, e *model.Event) error {
	var imageURL sql.NullString
	err := row.Scan(
		&e.ID, &e.TitleJa, &e.TitleEn, &e.DescriptionJa, &e.DescriptionEn,
		&imageURL, &e.StartsAt, &e.EndsAt, &e.EntryDeadline,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	e.ImageURL = nullStringValue(imageURL)
	return nil
}

const eventColumns = `id, title_ja, title_en, description_ja, description_en,
	        image_url, starts_at, ends_at, entry_deadline, created_at, updated_at`

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	e := &model.Event{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)

	err := scanEvent(row, e)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	return e, nil
}

// ListUpcoming は終了日時が指定時刻以降のイベントを開始日時昇順で返す。
func (r *PostgresEventRepo) ListUpcoming(ctx context.Context, now time.Time) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE ends_at >= $1 ORDER BY starts_at ASC`, now)
	if err != nil {
		return nil, fmt.Errorf("開催予定イベントの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListAll は全イベントを開始日時降順で返す。
func (r *PostgresEventRepo) ListAll(ctx context.Context) ([]*model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY starts_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// collectEvents はイベント行の走査結果をスライスにまとめる。
func collectEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		e := &model.Event{}
		if err := scanEvent(rows, e); err != nil {
			return nil, fmt.Errorf("イベント一覧の読み取りに失敗しました: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("イベント一覧の走査に失敗しました: %w", err)
	}
	return events, nil
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title_ja, title_en, description_ja, description_en,
		                     image_url, starts_at, ends_at, entry_deadline, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		event.ID, event.TitleJa, event.TitleEn, event.DescriptionJa, event.DescriptionEn,
		nullString(event.ImageURL), event.StartsAt, event.EndsAt, event.EntryDeadline,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はイベントを更新する。
func (r *PostgresEventRepo) Update(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET
		    title_ja = $2, title_en = $3, description_ja = $4, description_en = $5,
		    image_url = $6, starts_at = $7, ends_at = $8, entry_deadline = $9,
		    updated_at = now()
		 WHERE id = $1`,
		event.ID, event.TitleJa, event.TitleEn, event.DescriptionJa, event.DescriptionEn,
		nullString(event.ImageURL), event.StartsAt, event.EndsAt, event.EntryDeadline,
	)
	if err != nil {
		return fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのイベントを削除する。関連する応募作品はCASCADE削除される。
func (r *PostgresEventRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
