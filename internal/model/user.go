// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
type Role string

const (
	// RoleAdmin は記事のレビュー・公開・却下と全体管理を行う役割。
	RoleAdmin Role = "admin"
	// RoleJournalist は記事を執筆しレビューパイプラインに載せる役割。
	RoleJournalist Role = "journalist"
	// RoleUser は閲覧とイベント応募のみを行う一般ユーザー。
	RoleUser Role = "user"
)

// User はサービス利用ユーザーを表す。
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Actor は認証済みリクエストの実行者を表す。
// 認証コラボレーターが検証済みの値を渡す前提であり、ワークフロー側では再検証しない。
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin は実行者が管理者かどうかを返す。
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
