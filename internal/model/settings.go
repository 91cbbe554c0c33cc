// Package model はドメインモデルを定義する。
package model

import "time"

// SiteSettings はサイト全体の設定を表すシングルトン行。
type SiteSettings struct {
	SiteTitleJa     string
	SiteTitleEn     string
	ContactEmail    string
	HeroImageURL    string
	ArticlesPerPage int
	UpdatedAt       time.Time
}

// DefaultArticlesPerPage は記事一覧の既定ページサイズ。
const DefaultArticlesPerPage = 12
