package model

import "time"

// Post は1件のタレントセッション募集を表す。
// 応募者集合とマッチ集合はpost_applications / post_matchesテーブルで管理され、
// マッチ集合は常に応募者集合の部分集合である。
type Post struct {
	ID          string
	WriterID    string
	Category    string
	Title       string
	Subtitle    string
	Description string
	Address     string
	Status      string // 自由形式。空文字列で作成される。
	CreatedAt   time.Time
	TeachAt     time.Time
}
