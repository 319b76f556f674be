package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gachitda/gachitda/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, provider_id, nickname, profile_image, kakao_email,
	email, email_verified, pending_code, code_expires_at, role, push_subscription,
	created_at, updated_at`

// scanUser は1行をmodel.Userへ読み込む。
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	var email, role sql.NullString
	var pendingCode sql.NullString
	var codeExpiresAt sql.NullTime
	var subscription []byte

	err := row.Scan(
		&user.ID, &user.ProviderID, &user.Nickname, &user.ProfileImage, &user.KakaoEmail,
		&email, &user.EmailVerified, &pendingCode, &codeExpiresAt, &role, &subscription,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Email = email.String
	user.Role = role.String
	if pendingCode.Valid {
		user.PendingCode = &pendingCode.String
	}
	if codeExpiresAt.Valid {
		t := codeExpiresAt.Time
		user.CodeExpiresAt = &t
	}
	if len(subscription) > 0 {
		user.PushSubscription = json.RawMessage(subscription)
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByProviderID は外部プロバイダーIDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByProviderID(ctx context.Context, providerID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider_id = $1`, providerID)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider ID: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, provider_id, nickname, profile_image, kakao_email,
		    email_verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.ProviderID, user.Nickname, user.ProfileImage, user.KakaoEmail,
		user.EmailVerified, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// SetRole はユーザーのロールを設定する。
func (r *PostgresUserRepo) SetRole(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	return nil
}

// SetPendingCode は認証対象メール・保留コード・有効期限を1回の更新で設定する。
// 単一ステートメントのため、保留コードと有効期限が片方だけ更新されることはない。
func (r *PostgresUserRepo) SetPendingCode(ctx context.Context, userID, email, code string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET email = $2, pending_code = $3, code_expires_at = $4, updated_at = now()
		 WHERE id = $1`,
		userID, email, code, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set pending code: %w", err)
	}
	return nil
}

// ConfirmPendingCode は保留コードがcodeと一致する場合のみ認証済みへ遷移させる。
// WHERE句にコード一致条件を含めることで、並行するrequestCodeの上書きと
// 競合した古いverifyが誤ってコミットされることを防ぐ。
func (r *PostgresUserRepo) ConfirmPendingCode(ctx context.Context, userID, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET email_verified = TRUE, pending_code = NULL, code_expires_at = NULL, updated_at = now()
		 WHERE id = $1 AND pending_code = $2`,
		userID, code,
	)
	if err != nil {
		return false, fmt.Errorf("failed to confirm pending code: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// SetPushSubscription はプッシュ購読情報を保存する。
func (r *PostgresUserRepo) SetPushSubscription(ctx context.Context, userID string, subscription json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET push_subscription = $2, updated_at = now() WHERE id = $1`,
		userID, []byte(subscription),
	)
	if err != nil {
		return fmt.Errorf("failed to set push subscription: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
