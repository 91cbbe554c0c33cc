// Package model はドメインモデルを定義する。
package model

import "time"

// EntryStatus はコンペ応募作品のモデレーション状態を表す。
type EntryStatus string

const (
	// EntrySubmitted は応募直後の未審査状態。
	EntrySubmitted EntryStatus = "submitted"
	// EntryApproved は管理者が承認し公開された状態。
	EntryApproved EntryStatus = "approved"
	// EntryRejected は管理者が却下した状態。
	EntryRejected EntryStatus = "rejected"
)

// Event はコミュニティイベント（コンテスト等）を表す。
type Event struct {
	ID            string
	TitleJa       string
	TitleEn       string
	DescriptionJa string
	DescriptionEn string
	ImageURL      string
	StartsAt      time.Time
	EndsAt        time.Time
	EntryDeadline time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CompetitionEntry はユーザーがイベントに応募した作品を表す。
// 1ユーザー1イベントにつき1件まで。
type CompetitionEntry struct {
	ID        string
	EventID   string
	UserID    string
	ImageURL  string
	Caption   string
	Status    EntryStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryWithUser は応募作品と応募者表示名を結合したモデル。
type EntryWithUser struct {
	CompetitionEntry
	UserName string
}
