package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/midori/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// articleColumns は記事取得クエリのSELECT句。全メソッドで列順を共有する。
const articleColumns = `id, author_id, status, edit_request, feedback, image_url,
	        title_ja, title_en, excerpt_ja, excerpt_en, body_ja, body_en,
	        category_id, plant_type_id, source_guid, published_at, version,
	        created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanArticle はarticleColumnsの列順で1行を読み取る。
func scanArticle(row rowScanner, a *model.Article) error {
	var feedback, imageURL, categoryID, plantTypeID, sourceGUID sql.NullString
	var publishedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.AuthorID, &a.Status, &a.EditRequest, &feedback, &imageURL,
		&a.TitleJa, &a.TitleEn, &a.ExcerptJa, &a.ExcerptEn, &a.BodyJa, &a.BodyEn,
		&categoryID, &plantTypeID, &sourceGUID, &publishedAt, &a.Version,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return err
	}

	a.Feedback = nullStringValue(feedback)
	a.ImageURL = nullStringValue(imageURL)
	a.CategoryID = nullStringValue(categoryID)
	a.PlantTypeID = nullStringValue(plantTypeID)
	a.SourceGUID = nullStringValue(sourceGUID)
	if publishedAt.Valid {
		t := publishedAt.Time
		a.PublishedAt = &t
	}
	return nil
}

// scanArticleWithAuthor はarticleColumns + 著者名の列順で1行を読み取る。
func scanArticleWithAuthor(row rowScanner, a *model.ArticleWithAuthor) error {
	var feedback, imageURL, categoryID, plantTypeID, sourceGUID sql.NullString
	var publishedAt sql.NullTime

	err := row.Scan(
		&a.ID, &a.AuthorID, &a.Status, &a.EditRequest, &feedback, &imageURL,
		&a.TitleJa, &a.TitleEn, &a.ExcerptJa, &a.ExcerptEn, &a.BodyJa, &a.BodyEn,
		&categoryID, &plantTypeID, &sourceGUID, &publishedAt, &a.Version,
		&a.CreatedAt, &a.UpdatedAt, &a.AuthorName,
	)
	if err != nil {
		return err
	}

	a.Feedback = nullStringValue(feedback)
	a.ImageURL = nullStringValue(imageURL)
	a.CategoryID = nullStringValue(categoryID)
	a.PlantTypeID = nullStringValue(plantTypeID)
	a.SourceGUID = nullStringValue(sourceGUID)
	if publishedAt.Valid {
		t := publishedAt.Time
		a.PublishedAt = &t
	}
	return nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	article := &model.Article{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)

	err := scanArticle(row, article)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return article, nil
}

// FindWithAuthor は指定IDの記事を著者表示名付きで取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindWithAuthor(ctx context.Context, id string) (*model.ArticleWithAuthor, error) {
	article := &model.ArticleWithAuthor{}
	row := r.db.QueryRowContext(ctx,
		`SELECT a.id, a.author_id, a.status, a.edit_request, a.feedback, a.image_url,
		        a.title_ja, a.title_en, a.excerpt_ja, a.excerpt_en, a.body_ja, a.body_en,
		        a.category_id, a.plant_type_id, a.source_guid, a.published_at, a.version,
		        a.created_at, a.updated_at, u.name
		 FROM articles a
		 INNER JOIN users u ON a.author_id = u.id
		 WHERE a.id = $1`, id)

	err := scanArticleWithAuthor(row, article)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return article, nil
}

// FindBySourceGUID はインポート元GUIDで記事を検索する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindBySourceGUID(ctx context.Context, guid string) (*model.Article, error) {
	article := &model.Article{}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE source_guid = $1`, guid)

	err := scanArticle(row, article)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("インポート元GUIDによる記事の検索に失敗しました: %w", err)
	}
	return article, nil
}

// ListPublished は公開済み記事をpublished_at降順・ページ単位で返す。
func (r *PostgresArticleRepo) ListPublished(ctx context.Context, filter ArticleFilter) ([]model.ArticleWithAuthor, int, error) {
	where := `a.status = 'published'`
	args := []interface{}{}
	argN := 1

	if filter.CategoryID != "" {
		where += fmt.Sprintf(" AND a.category_id = $%d", argN)
		args = append(args, filter.CategoryID)
		argN++
	}
	if filter.PlantTypeID != "" {
		where += fmt.Sprintf(" AND a.plant_type_id = $%d", argN)
		args = append(args, filter.PlantTypeID)
		argN++
	}

	var total int
	countQuery := `SELECT count(*) FROM articles a WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("公開記事数の取得に失敗しました: %w", err)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = model.DefaultArticlesPerPage
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * perPage

	query := fmt.Sprintf(
		`SELECT a.id, a.author_id, a.status, a.edit_request, a.feedback, a.image_url,
		        a.title_ja, a.title_en, a.excerpt_ja, a.excerpt_en, a.body_ja, a.body_en,
		        a.category_id, a.plant_type_id, a.source_guid, a.published_at, a.version,
		        a.created_at, a.updated_at, u.name
		 FROM articles a
		 INNER JOIN users u ON a.author_id = u.id
		 WHERE %s
		 ORDER BY a.published_at DESC
		 LIMIT $%d OFFSET $%d`, where, argN, argN+1)
	args = append(args, perPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("公開記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []model.ArticleWithAuthor
	for rows.Next() {
		var a model.ArticleWithAuthor
		if err := scanArticleWithAuthor(rows, &a); err != nil {
			return nil, 0, fmt.Errorf("公開記事一覧の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("公開記事一覧の走査に失敗しました: %w", err)
	}

	return articles, total, nil
}

// ListByAuthor は指定著者の記事一覧をupdated_at降順で返す。
func (r *PostgresArticleRepo) ListByAuthor(ctx context.Context, authorID string) ([]*model.Article, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE author_id = $1 ORDER BY updated_at DESC`,
		authorID)
	if err != nil {
		return nil, fmt.Errorf("著者別記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		a := &model.Article{}
		if err := scanArticle(rows, a); err != nil {
			return nil, fmt.Errorf("著者別記事一覧の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("著者別記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// ListByStatuses は指定ステータス集合に含まれる記事を著者名付きで返す。
func (r *PostgresArticleRepo) ListByStatuses(ctx context.Context, statuses []model.ArticleStatus) ([]model.ArticleWithAuthor, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.author_id, a.status, a.edit_request, a.feedback, a.image_url,
		        a.title_ja, a.title_en, a.excerpt_ja, a.excerpt_en, a.body_ja, a.body_en,
		        a.category_id, a.plant_type_id, a.source_guid, a.published_at, a.version,
		        a.created_at, a.updated_at, u.name
		 FROM articles a
		 INNER JOIN users u ON a.author_id = u.id
		 WHERE a.status = ANY($1)
		 ORDER BY a.updated_at ASC`,
		pq.Array(values))
	if err != nil {
		return nil, fmt.Errorf("ステータス別記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []model.ArticleWithAuthor
	for rows.Next() {
		var a model.ArticleWithAuthor
		if err := scanArticleWithAuthor(rows, &a); err != nil {
			return nil, fmt.Errorf("ステータス別記事一覧の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ステータス別記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// ListPendingEditRequests は編集リクエストがpendingの記事を著者名付きで返す。
func (r *PostgresArticleRepo) ListPendingEditRequests(ctx context.Context) ([]model.ArticleWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.author_id, a.status, a.edit_request, a.feedback, a.image_url,
		        a.title_ja, a.title_en, a.excerpt_ja, a.excerpt_en, a.body_ja, a.body_en,
		        a.category_id, a.plant_type_id, a.source_guid, a.published_at, a.version,
		        a.created_at, a.updated_at, u.name
		 FROM articles a
		 INNER JOIN users u ON a.author_id = u.id
		 WHERE a.edit_request = 'pending'
		 ORDER BY a.updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("編集リクエスト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []model.ArticleWithAuthor
	for rows.Next() {
		var a model.ArticleWithAuthor
		if err := scanArticleWithAuthor(rows, &a); err != nil {
			return nil, fmt.Errorf("編集リクエスト一覧の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("編集リクエスト一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// CountByStatusForAuthor は指定著者のステータス別記事数を返す。
func (r *PostgresArticleRepo) CountByStatusForAuthor(ctx context.Context, authorID string) (*model.StatusCounts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, count(*) FROM articles WHERE author_id = $1 GROUP BY status`,
		authorID)
	if err != nil {
		return nil, fmt.Errorf("ステータス別記事数の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	counts := &model.StatusCounts{}
	for rows.Next() {
		var status model.ArticleStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("ステータス別記事数の読み取りに失敗しました: %w", err)
		}
		switch status {
		case model.StatusDraft:
			counts.Draft = n
		case model.StatusInReview:
			counts.InReview = n
		case model.StatusNeedsRevision:
			counts.NeedsRevision = n
		case model.StatusRevising:
			counts.Revising = n
		case model.StatusRevised:
			counts.Revised = n
		case model.StatusPublished:
			counts.Published = n
		case model.StatusRejected:
			counts.Rejected = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ステータス別記事数の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// CountByCategory は指定カテゴリを参照する記事数を返す。
func (r *PostgresArticleRepo) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM articles WHERE category_id = $1`, categoryID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("カテゴリ参照記事数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// Create は記事を作成する。Versionは1で初期化される。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article) error {
	article.Version = 1
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, author_id, status, edit_request, feedback, image_url,
		                       title_ja, title_en, excerpt_ja, excerpt_en, body_ja, body_en,
		                       category_id, plant_type_id, source_guid, published_at, version,
		                       created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		article.ID, article.AuthorID, article.Status, article.EditRequest,
		nullString(article.Feedback), nullString(article.ImageURL),
		article.TitleJa, article.TitleEn, article.ExcerptJa, article.ExcerptEn,
		article.BodyJa, article.BodyEn,
		nullString(article.CategoryID), nullString(article.PlantTypeID),
		nullString(article.SourceGUID), article.PublishedAt, article.Version,
		article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は記事の全フィールドをCASで更新する。
// WHERE句でバージョンを比較し、0行更新だった場合はErrVersionConflictを返す。
func (r *PostgresArticleRepo) Update(ctx context.Context, article *model.Article) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET
		    status = $3, edit_request = $4, feedback = $5, image_url = $6,
		    title_ja = $7, title_en = $8, excerpt_ja = $9, excerpt_en = $10,
		    body_ja = $11, body_en = $12, category_id = $13, plant_type_id = $14,
		    published_at = $15, version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $2`,
		article.ID, article.Version,
		article.Status, article.EditRequest,
		nullString(article.Feedback), nullString(article.ImageURL),
		article.TitleJa, article.TitleEn, article.ExcerptJa, article.ExcerptEn,
		article.BodyJa, article.BodyEn,
		nullString(article.CategoryID), nullString(article.PlantTypeID),
		article.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("記事更新の結果取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	article.Version++
	return nil
}

// Delete は指定IDの記事を削除する。
func (r *PostgresArticleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	return nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
