package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/midori/internal/model"
)

// PostgresEntryRepo はPostgreSQLを使用したコンペ応募作品リポジトリ。
type PostgresEntryRepo struct {
	db *sql.DB
}

// NewPostgresEntryRepo はPostgresEntryRepoを生成する。
func NewPostgresEntryRepo(db *sql.DB) *PostgresEntryRepo {
	return &PostgresEntryRepo{db: db}
}

// FindByID は指定IDの応募作品を取得する。見つからない場合はnilを返す。
func (r *PostgresEntryRepo) FindByID(ctx context.Context, id string) (*model.CompetitionEntry, error) {
	e := &model.CompetitionEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, image_url, caption, status, created_at, updated_at
		 FROM competition_entries WHERE id = $1`, id,
	).Scan(&e.ID, &e.EventID, &e.UserID, &e.ImageURL, &e.Caption, &e.Status,
		&e.CreatedAt, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("応募作品の取得に失敗しました: %w", err)
	}
	return e, nil
}

// FindByEventAndUser はイベントIDとユーザーIDで応募作品を検索する。見つからない場合はnilを返す。
func (r *PostgresEntryRepo) FindByEventAndUser(ctx context.Context, eventID, userID string) (*model.CompetitionEntry, error) {
	e := &model.CompetitionEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, image_url, caption, status, created_at, updated_at
		 FROM competition_entries WHERE event_id = $1 AND user_id = $2`, eventID, userID,
	).Scan(&e.ID, &e.EventID, &e.UserID, &e.ImageURL, &e.Caption, &e.Status,
		&e.CreatedAt, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("応募作品の検索に失敗しました: %w", err)
	}
	return e, nil
}

// ListByEvent はイベントの応募作品を応募者名付きで返す。
// statusが空でない場合はモデレーション状態で絞り込む。
func (r *PostgresEntryRepo) ListByEvent(ctx context.Context, eventID string, status model.EntryStatus) ([]model.EntryWithUser, error) {
	query := `SELECT e.id, e.event_id, e.user_id, e.image_url, e.caption, e.status,
	                 e.created_at, e.updated_at, u.name
	          FROM competition_entries e
	          INNER JOIN users u ON e.user_id = u.id
	          WHERE e.event_id = $1`
	args := []interface{}{eventID}
	if status != "" {
		query += ` AND e.status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY e.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("応募作品一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// ListSubmitted は未審査の応募作品を応募者名付きで古い順に返す。
func (r *PostgresEntryRepo) ListSubmitted(ctx context.Context) ([]model.EntryWithUser, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.event_id, e.user_id, e.image_url, e.caption, e.status,
		        e.created_at, e.updated_at, u.name
		 FROM competition_entries e
		 INNER JOIN users u ON e.user_id = u.id
		 WHERE e.status = 'submitted'
		 ORDER BY e.created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("未審査応募の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// collectEntries は応募作品行の走査結果をスライスにまとめる。
func collectEntries(rows *sql.Rows) ([]model.EntryWithUser, error) {
	var entries []model.EntryWithUser
	for rows.Next() {
		var e model.EntryWithUser
		if err := rows.Scan(&e.ID, &e.EventID, &e.UserID, &e.ImageURL, &e.Caption,
			&e.Status, &e.CreatedAt, &e.UpdatedAt, &e.UserName); err != nil {
			return nil, fmt.Errorf("応募作品一覧の読み取りに失敗しました: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("応募作品一覧の走査に失敗しました: %w", err)
	}
	return entries, nil
}

// Create は応募作品を作成する。
func (r *PostgresEntryRepo) Create(ctx context.Context, entry *model.CompetitionEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO competition_entries (id, event_id, user_id, image_url, caption, status,
		                                  created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.EventID, entry.UserID, entry.ImageURL, entry.Caption, entry.Status,
		entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("応募作品の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateStatus は応募作品のモデレーション状態を更新する。
func (r *PostgresEntryRepo) UpdateStatus(ctx context.Context, id string, status model.EntryStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE competition_entries SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("応募作品の状態更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの応募作品を削除する。
func (r *PostgresEntryRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM competition_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("応募作品の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ EntryRepository = (*PostgresEntryRepo)(nil)
