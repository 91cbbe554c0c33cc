// Package model はドメインモデルを定義する。
package model

import "time"

// Category は記事の分類カテゴリを表す。
type Category struct {
	ID        string
	Slug      string
	NameJa    string
	NameEn    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlantType は植物の分類（観葉植物、多肉植物など）を表す。
// 記事と植物カタログの両方から参照される。
type PlantType struct {
	ID        string
	Slug      string
	NameJa    string
	NameEn    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plant は植物カタログのエントリを表す。
type Plant struct {
	ID             string
	PlantTypeID    string
	NameJa         string
	NameEn         string
	ScientificName string
	DescriptionJa  string
	DescriptionEn  string
	ImageURL       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
