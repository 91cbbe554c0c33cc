// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/midori/internal/model"
)

// ErrVersionConflict は楽観的ロックの競合を表すセンチネルエラー。
// CAS更新のWHERE句がバージョン不一致で0行だった場合に返される。
var ErrVersionConflict = errors.New("article version conflict")

// ArticleFilter は公開記事一覧の絞り込み条件。
type ArticleFilter struct {
	CategoryID  string
	PlantTypeID string
	Page        int // 1始まり
	PerPage     int
}

// ArticleRepository は記事データの永続化インターフェース。
// Update はバージョン列によるcompare-and-swapであり、
// 競合した場合はErrVersionConflictを返して一切書き込まない。
type ArticleRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Article, error)

	// FindWithAuthor は指定IDの記事を著者表示名付きで取得する。見つからない場合はnilを返す。
	FindWithAuthor(ctx context.Context, id string) (*model.ArticleWithAuthor, error)

	// FindBySourceGUID はインポート元GUIDで記事を検索する。見つからない場合はnilを返す。
	FindBySourceGUID(ctx context.Context, guid string) (*model.Article, error)

	// ListPublished は公開済み記事をpublished_at降順・ページ単位で返す。
	// 戻り値の2番目は絞り込み後の総件数。
	ListPublished(ctx context.Context, filter ArticleFilter) ([]model.ArticleWithAuthor, int, error)

	// ListByAuthor は指定著者の記事一覧をupdated_at降順で返す。
	ListByAuthor(ctx context.Context, authorID string) ([]*model.Article, error)

	// ListByStatuses は指定ステータス集合に含まれる記事を著者名付きで返す。
	// 管理者のレビューキュー表示に使用する。
	ListByStatuses(ctx context.Context, statuses []model.ArticleStatus) ([]model.ArticleWithAuthor, error)

	// ListPendingEditRequests は編集リクエストがpendingの記事を著者名付きで返す。
	ListPendingEditRequests(ctx context.Context) ([]model.ArticleWithAuthor, error)

	// CountByStatusForAuthor は指定著者のステータス別記事数を返す。
	CountByStatusForAuthor(ctx context.Context, authorID string) (*model.StatusCounts, error)

	// CountByCategory は指定カテゴリを参照する記事数を返す。
	CountByCategory(ctx context.Context, categoryID string) (int, error)

	// Create は記事を作成する。Versionは1で初期化される。
	Create(ctx context.Context, article *model.Article) error

	// Update は記事の全フィールドをCASで更新する。
	// article.Versionが保存済みの値と一致しない場合はErrVersionConflictを返す。
	// 成功時はarticle.Versionをインクリメント後の値に更新する。
	Update(ctx context.Context, article *model.Article) error

	// Delete は指定IDの記事を削除する。
	Delete(ctx context.Context, id string) error
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateRole はユーザーの役割を更新する。
	UpdateRole(ctx context.Context, id string, role model.Role) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CategoryRepository はカテゴリの永続化インターフェース。
type CategoryRepository interface {
	// FindByID は指定IDのカテゴリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Category, error)
	// List は全カテゴリをslug昇順で返す。
	List(ctx context.Context) ([]*model.Category, error)
	// Create はカテゴリを作成する。
	Create(ctx context.Context, category *model.Category) error
	// Update はカテゴリを更新する。
	Update(ctx context.Context, category *model.Category) error
	// Delete は指定IDのカテゴリを削除する。
	Delete(ctx context.Context, id string) error
}

// PlantTypeRepository は植物タイプの永続化インターフェース。
type PlantTypeRepository interface {
	// FindByID は指定IDの植物タイプを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.PlantType, error)
	// List は全植物タイプをslug昇順で返す。
	List(ctx context.Context) ([]*model.PlantType, error)
	// Create は植物タイプを作成する。
	Create(ctx context.Context, plantType *model.PlantType) error
	// Update は植物タイプを更新する。
	Update(ctx context.Context, plantType *model.PlantType) error
	// Delete は指定IDの植物タイプを削除する。
	Delete(ctx context.Context, id string) error
}

// PlantRepository は植物カタログの永続化インターフェース。
type PlantRepository interface {
	// FindByID は指定IDの植物を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Plant, error)
	// List は植物一覧を名前昇順で返す。plantTypeIDが空でない場合はタイプで絞り込む。
	List(ctx context.Context, plantTypeID string) ([]*model.Plant, error)
	// Create は植物を作成する。
	Create(ctx context.Context, plant *model.Plant) error
	// Update は植物を更新する。
	Update(ctx context.Context, plant *model.Plant) error
	// Delete は指定IDの植物を削除する。
	Delete(ctx context.Context, id string) error
}

// EventRepository はイベントの永続化インターフェース。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Event, error)
	// ListUpcoming は終了日時が指定時刻以降のイベントを開始日時昇順で返す。
	ListUpcoming(ctx context.Context, now time.Time) ([]*model.Event, error)
	// ListAll は全イベントを開始日時降順で返す。
	ListAll(ctx context.Context) ([]*model.Event, error)
	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.Event) error
	// Update はイベントを更新する。
	Update(ctx context.Context, event *model.Event) error
	// Delete は指定IDのイベントを削除する。関連する応募作品はCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// EntryRepository はコンペ応募作品の永続化インターフェース。
type EntryRepository interface {
	// FindByID は指定IDの応募作品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CompetitionEntry, error)
	// FindByEventAndUser はイベントIDとユーザーIDで応募作品を検索する。見つからない場合はnilを返す。
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*model.CompetitionEntry, error)
	// ListByEvent はイベントの応募作品を応募者名付きで返す。
	// statusが空でない場合はモデレーション状態で絞り込む。
	ListByEvent(ctx context.Context, eventID string, status model.EntryStatus) ([]model.EntryWithUser, error)
	// ListSubmitted は未審査の応募作品を応募者名付きで古い順に返す。
	ListSubmitted(ctx context.Context) ([]model.EntryWithUser, error)
	// Create は応募作品を作成する。
	Create(ctx context.Context, entry *model.CompetitionEntry) error
	// UpdateStatus は応募作品のモデレーション状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.EntryStatus) error
	// Delete は指定IDの応募作品を削除する。
	Delete(ctx context.Context, id string) error
}

// SettingsRepository はサイト設定の永続化インターフェース。
type SettingsRepository interface {
	// Get はサイト設定を取得する。行が存在しない場合は既定値を返す。
	Get(ctx context.Context) (*model.SiteSettings, error)
	// Update はサイト設定を保存する。行が存在しない場合は作成する。
	Update(ctx context.Context, settings *model.SiteSettings) error
}
