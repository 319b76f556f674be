// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gachitda/gachitda/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// ユーザー単位の更新はすべて単一ステートメントのread-modify-writeで行い、
// 同一ユーザーに対する並行リクエストが保留コードの不変条件を壊さないようにする。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByProviderID は外部プロバイダーIDでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderID(ctx context.Context, providerID string) (*model.User, error)

	// Create はユーザーを作成する。provider_idはユニーク制約を持つ。
	Create(ctx context.Context, user *model.User) error

	// SetRole はユーザーのロールを設定する。
	SetRole(ctx context.Context, userID, role string) error

	// SetPendingCode は認証対象メールアドレス・保留コード・有効期限を
	// 1回の更新で設定する。既存の保留コードは上書きされる。
	SetPendingCode(ctx context.Context, userID, email, code string, expiresAt time.Time) error

	// ConfirmPendingCode は保留コードがcodeと一致する場合に限り、
	// email_verifiedをtrueにし保留コードと有効期限をクリアする（compare-and-swap）。
	// 更新が行われた場合はtrueを返す。並行する上書きでコードが変わっていた場合はfalse。
	ConfirmPendingCode(ctx context.Context, userID, code string) (bool, error)

	// SetPushSubscription はプッシュ購読情報を保存する。
	SetPushSubscription(ctx context.Context, userID string, subscription json.RawMessage) error
}

// PostWithApplicantCount は投稿と応募者数を結合した一覧用の構造体。
type PostWithApplicantCount struct {
	model.Post
	ApplicantCount int
}

// PostWithWriter は投稿と投稿者の表示情報を結合した構造体。
type PostWithWriter struct {
	model.Post
	WriterNickname     string
	WriterProfileImage string
	WriterEmail        string
}

// PostRepository は投稿データの永続化インターフェース。
// 応募集合とマッチ集合の一意性はpost_applications / post_matchesの
// 主キー制約で保証される。
type PostRepository interface {
	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// ListAll は全投稿を応募者数付きで作成日時の降順で返す。
	ListAll(ctx context.Context) ([]PostWithApplicantCount, error)

	// AddApplication はユーザーを投稿の応募集合に追加する。
	// 既に応募済みの場合はmodel.ErrAlreadyAppliedを返す。
	AddApplication(ctx context.Context, postID, userID string) error

	// ListApplicants は応募ユーザーを応募順で返す。
	ListApplicants(ctx context.Context, postID string) ([]*model.User, error)

	// ListMatched はマッチ済みユーザーをマッチ順で返す。
	ListMatched(ctx context.Context, postID string) ([]*model.User, error)

	// MatchApplicants は指定ユーザー群をマッチ集合へ一括追加する。
	// 全員が「応募済みかつ未マッチ」の場合のみコミットし、
	// 1人でも条件を満たさない場合は何も書き込まず、そのユーザーIDの一覧を返す。
	// 投稿行をロックして実行するためマッチ集合は常に応募集合の部分集合となる。
	MatchApplicants(ctx context.Context, postID string, userIDs []string) (failed []string, err error)

	// ListWrittenByUser はユーザーが作成した投稿を応募者数付きで返す。
	ListWrittenByUser(ctx context.Context, userID string) ([]PostWithApplicantCount, error)

	// ListAppliedByUser はユーザーが応募した投稿を投稿者情報付きで応募順に返す。
	ListAppliedByUser(ctx context.Context, userID string) ([]PostWithWriter, error)
}
