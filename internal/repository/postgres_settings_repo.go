package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/midori/internal/model"
)

// PostgresSettingsRepo はPostgreSQLを使用したサイト設定リポジトリ。
// site_settingsは常に1行のみ保持するシングルトンテーブル。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

// Get はサイト設定を取得する。行が存在しない場合は既定値を返す。
func (r *PostgresSettingsRepo) Get(ctx context.Context) (*model.SiteSettings, error) {
	s := &model.SiteSettings{}
	var heroImageURL sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT site_title_ja, site_title_en, contact_email, hero_image_url,
		        articles_per_page, updated_at
		 FROM site_settings WHERE id = 1`,
	).Scan(&s.SiteTitleJa, &s.SiteTitleEn, &s.ContactEmail, &heroImageURL,
		&s.ArticlesPerPage, &s.UpdatedAt)

	if err == sql.ErrNoRows {
		return &model.SiteSettings{ArticlesPerPage: model.DefaultArticlesPerPage}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サイト設定の取得に失敗しました: %w", err)
	}

	s.HeroImageURL = nullStringValue(heroImageURL)
	return s, nil
}

// Update はサイト設定を保存する。行が存在しない場合は作成する。
func (r *PostgresSettingsRepo) Update(ctx context.Context, settings *model.SiteSettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO site_settings (id, site_title_ja, site_title_en, contact_email,
		                            hero_image_url, articles_per_page, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, now())
		 ON CONFLICT (id) DO UPDATE SET
		    site_title_ja = EXCLUDED.site_title_ja,
		    site_title_en = EXCLUDED.site_title_en,
		    contact_email = EXCLUDED.contact_email,
		    hero_image_url = EXCLUDED.hero_image_url,
		    articles_per_page = EXCLUDED.articles_per_page,
		    updated_at = now()`,
		settings.SiteTitleJa, settings.SiteTitleEn, settings.ContactEmail,
		nullString(settings.HeroImageURL), settings.ArticlesPerPage,
	)
	if err != nil {
		return fmt.Errorf("サイト設定の保存に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SettingsRepository = (*PostgresSettingsRepo)(nil)
