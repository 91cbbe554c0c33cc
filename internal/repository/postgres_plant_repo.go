package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/midori/internal/model"
)

// PostgresPlantRepo はPostgreSQLを使用した植物カタログリポジトリ。
type PostgresPlantRepo struct {
	db *sql.DB
}

// NewPostgresPlantRepo はPostgresPlantRepoを生成する。
func NewPostgresPlantRepo(db *sql.DB) *PostgresPlantRepo {
	return &PostgresPlantRepo{db: db}
}

// scanPlant は植物行を読み取る。
func scanPlant(row rowScanner, p *model.Plant) error {
	var imageURL sql.NullString
	err := row.Scan(
		&p.ID, &p.PlantTypeID, &p.NameJa, &p.NameEn, &p.ScientificName,
		&p.DescriptionJa, &p.DescriptionEn, &imageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	p.ImageURL = nullStringValue(imageURL)
	return nil
}

// FindByID は指定IDの植物を取得する。見つからない場合はnilを返す。
func (r *PostgresPlantRepo) FindByID(ctx context.Context, id string) (*model.Plant, error) {
	p := &model.Plant{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, plant_type_id, name_ja, name_en, scientific_name,
		        description_ja, description_en, image_url, created_at, updated_at
		 FROM plants WHERE id = $1`, id)

	err := scanPlant(row, p)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("植物の取得に失敗しました: %w", err)
	}
	return p, nil
}

// List は植物一覧を名前昇順で返す。plantTypeIDが空でない場合はタイプで絞り込む。
func (r *PostgresPlantRepo) List(ctx context.Context, plantTypeID string) ([]*model.Plant, error) {
	query := `SELECT id, plant_type_id, name_ja, name_en, scientific_name,
	                 description_ja, description_en, image_url, created_at, updated_at
	          FROM plants`
	args := []interface{}{}
	if plantTypeID != "" {
		query += ` WHERE plant_type_id = $1`
		args = append(args, plantTypeID)
	}
	query += ` ORDER BY name_ja ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("植物一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var plants []*model.Plant
	for rows.Next() {
		p := &model.Plant{}
		if err := scanPlant(rows, p); err != nil {
			return nil, fmt.Errorf("植物一覧の読み取りに失敗しました: %w", err)
		}
		plants = append(plants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("植物一覧の走査に失敗しました: %w", err)
	}
	return plants, nil
}

// Create は植物を作成する。
func (r *PostgresPlantRepo) Create(ctx context.Context, plant *model.Plant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plants (id, plant_type_id, name_ja, name_en, scientific_name,
		                     description_ja, description_en, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		plant.ID, plant.PlantTypeID, plant.NameJa, plant.NameEn, plant.ScientificName,
		plant.DescriptionJa, plant.DescriptionEn, nullString(plant.ImageURL),
		plant.CreatedAt, plant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("植物の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は植物を更新する。
func (r *PostgresPlantRepo) Update(ctx context.Context, plant *model.Plant) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE plants SET
		    plant_type_id = $2, name_ja = $3, name_en = $4, scientific_name = $5,
		    description_ja = $6, description_en = $7, image_url = $8, updated_at = now()
		 WHERE id = $1`,
		plant.ID, plant.PlantTypeID, plant.NameJa, plant.NameEn, plant.ScientificName,
		plant.DescriptionJa, plant.DescriptionEn, nullString(plant.ImageURL),
	)
	if err != nil {
		return fmt.Errorf("植物の更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDの植物を削除する。
func (r *PostgresPlantRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM plants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("植物の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PlantRepository = (*PostgresPlantRepo)(nil)
