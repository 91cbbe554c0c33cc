package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/midori/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
func (r *PostgresCategoryRepo) FindByID(ctx context.Context, id string) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name_ja, name_en, created_at, updated_at
		 FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Slug, &c.NameJa, &c.NameEn, &c.CreatedAt, &c.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	return c, nil
}

// List は全カテゴリをslug昇順で返す。
func (r *PostgresCategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, name_ja, name_en, created_at, updated_at
		 FROM categories ORDER BY slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var categories []*model.Category
	for rows.Next() {
		c := &model.Category{}
		if err := rows.Scan(&c.ID, &c.Slug, &c.NameJa, &c.NameEn, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("カテゴリ一覧の読み取りに失敗しました: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}
	return categories, nil
}

// Create はカテゴリを作成する。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, slug, name_ja, name_en, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		category.ID, category.Slug, category.NameJa, category.NameEn,
		category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はカテゴリを更新する。
func (r *PostgresCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE categories SET slug = $2, name_ja = $3, name_en = $4, updated_at = now()
		 WHERE id = $1`,
		category.ID, category.Slug, category.NameJa, category.NameEn,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのカテゴリを削除する。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}
	return nil
}

// PostgresPlantTypeRepo はPostgreSQLを使用した植物タイプリポジトリ。
type PostgresPlantTypeRepo struct {
	db *sql.DB
}

// NewPostgresPlantTypeRepo はPostgresPlantTypeRepoを生成する。
func NewPostgresPlantTypeRepo(db *sql.DB) *PostgresPlantTypeRepo {
	return &PostgresPlantTypeRepo{db: db}
}

// FindByID は指定IDの植物タイプを取得する。見つからない場合はnilを返す。
func (r *PostgresPlantTypeRepo) FindByID(ctx context.Context, id string) (*model.PlantType, error) {
	pt := &model.PlantType{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name_ja, name_en, created_at, updated_at
		 FROM plant_types WHERE id = $1`, id,
	).Scan(&pt.ID, &pt.Slug, &pt.NameJa, &pt.NameEn, &pt.CreatedAt, &pt.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("植物タイプの取得に失敗しました: %w", err)
	}
	return pt, nil
}

// List は全植物タイプをslug昇順で返す。
func (r *PostgresPlantTypeRepo) List(ctx context.Context) ([]*model.PlantType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, name_ja, name_en, created_at, updated_at
		 FROM plant_types ORDER BY slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("植物タイプ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var types []*model.PlantType
	for rows.Next() {
		pt := &model.PlantType{}
		if err := rows.Scan(&pt.ID, &pt.Slug, &pt.NameJa, &pt.NameEn, &pt.CreatedAt, &pt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("植物タイプ一覧の読み取りに失敗しました: %w", err)
		}
		types = append(types, pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("植物タイプ一覧の走査に失敗しました: %w", err)
	}
	return types, nil
}

// Create は植物タイプを作成する。
func (r *PostgresPlantTypeRepo) Create(ctx context.Context, plantType *model.PlantType) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plant_types (id, slug, name_ja, name_en, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		plantType.ID, plantType.Slug, plantType.NameJa, plantType.NameEn,
		plantType.CreatedAt, plantType.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("植物タイプの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は植物タイプを更新する。
func (r *PostgresPlantTypeRepo) Update(ctx context.Context, plantType *model.PlantType) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE plant_types SET slug = $2, name_ja = $3, name_en = $4, updated_at = now()
		 WHERE id = $1`,
		plantType.ID, plantType.Slug, plantType.NameJa, plantType.NameEn,
	)
	if err != nil {
		return fmt.Errorf("植物タイプの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの植物タイプを削除する。
func (r *PostgresPlantTypeRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM plant_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("植物タイプの削除に失敗しました: %w", err)
	}
	return nil
}

// --- compile-time interface checks ---

var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
var _ PlantTypeRepository = (*PostgresPlantTypeRepo)(nil)
