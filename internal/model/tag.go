// Package model はドメインモデルを定義する。
package model

import "time"

// Tag は記事の分類タグを表す。
// Nameは正規化済み（trim + 小文字化）かつstorage層のUNIQUE制約で一意。
type Tag struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
