// Package model はドメインモデルを定義する。
package model

import "time"

// ArticleStatus は記事の編集ワークフロー上の状態を表す。
type ArticleStatus string

const (
	// StatusDraft は下書き状態。作成直後の初期状態。
	StatusDraft ArticleStatus = "draft"
	// StatusInReview はレビュー待ち状態。著者が提出した後の状態。
	StatusInReview ArticleStatus = "in_review"
	// StatusNeedsRevision は管理者が修正を要求した状態。
	StatusNeedsRevision ArticleStatus = "needs_revision"
	// StatusRevising は著者が修正作業中の状態。
	StatusRevising ArticleStatus = "journalist_revising"
	// StatusRevised は修正完了・再提出待ちの状態。
	StatusRevised ArticleStatus = "revised"
	// StatusPublished は公開済み状態。再提出サイクルで再到達可能。
	StatusPublished ArticleStatus = "published"
	// StatusRejected は却下された状態。
	StatusRejected ArticleStatus = "rejected"
)

// EditRequestState は管理者編集リクエストの状態を表す。
// 記事ステータスとは独立した軸として遷移する。
type EditRequestState string

const (
	// EditRequestNone はリクエストが存在しない状態。
	EditRequestNone EditRequestState = "none"
	// EditRequestPending は管理者が編集権限を要求中の状態。
	EditRequestPending EditRequestState = "pending"
	// EditRequestApproved は著者がリクエストを承認した状態。
	EditRequestApproved EditRequestState = "approved"
	// EditRequestDenied は著者がリクエストを拒否した状態。
	EditRequestDenied EditRequestState = "denied"
)

// Article は編集ワークフローの管理対象となる記事を表す。
// タイトル・抜粋・本文は日英バイリンガルで保持する。
type Article struct {
	ID          string
	AuthorID    string
	Status      ArticleStatus
	EditRequest EditRequestState
	Feedback    string
	ImageURL    string
	TitleJa     string
	TitleEn     string
	ExcerptJa   string
	ExcerptEn   string
	BodyJa      string
	BodyEn      string
	CategoryID  string
	PlantTypeID string
	SourceGUID  string // RSSインポート由来の記事の重複判定キー。手動作成では空。
	PublishedAt *time.Time
	Version     int // 楽観的ロック用。更新ごとにインクリメントされる。
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ArticleContent は記事の編集可能なコンテンツフィールドをまとめた値。
// 編集権限を持つアクターのみがサービス層経由で適用できる。
type ArticleContent struct {
	TitleJa     string
	TitleEn     string
	ExcerptJa   string
	ExcerptEn   string
	BodyJa      string
	BodyEn      string
	CategoryID  string
	PlantTypeID string
}

// ArticleWithAuthor は記事と著者表示名を結合したモデル。
// usersテーブルとJOINして取得される。
type ArticleWithAuthor struct {
	Article
	AuthorName string
}

// StatusCounts はダッシュボード用のステータス別記事数。
type StatusCounts struct {
	Draft         int
	InReview      int
	NeedsRevision int
	Revising      int
	Revised       int
	Published     int
	Rejected      int
}
