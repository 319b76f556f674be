package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gachitda/gachitda/internal/model"
	"github.com/lib/pq"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const pqUniqueViolation = "23505"

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

const postColumns = `id, writer_id, category, title, subtitle, description, address,
	status, created_at, teach_at`

func scanPost(row interface{ Scan(...any) error }, extra ...any) (*model.Post, error) {
	post := &model.Post{}
	dest := []any{
		&post.ID, &post.WriterID, &post.Category, &post.Title, &post.Subtitle,
		&post.Description, &post.Address, &post.Status, &post.CreatedAt, &post.TeachAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return post, nil
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, writer_id, category, title, subtitle, description,
		    address, status, created_at, teach_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		post.ID, post.WriterID, post.Category, post.Title, post.Subtitle,
		post.Description, post.Address, post.Status, post.CreatedAt, post.TeachAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}
	return post, nil
}

// ListAll は全投稿を応募者数付きで作成日時の降順で返す。
func (r *PostgresPostRepo) ListAll(ctx context.Context) ([]PostWithApplicantCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.writer_id, p.category, p.title, p.subtitle, p.description,
		    p.address, p.status, p.created_at, p.teach_at,
		    (SELECT COUNT(*) FROM post_applications a WHERE a.post_id = p.id)
		 FROM posts p
		 ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return collectPostsWithCount(rows)
}

// AddApplication はユーザーを投稿の応募集合に追加する。
// 応募集合の一意性は主キー制約で保証され、違反はmodel.ErrAlreadyAppliedとして返す。
func (r *PostgresPostRepo) AddApplication(ctx context.Context, postID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO post_applications (post_id, user_id, applied_at)
		 VALUES ($1, $2, now())`,
		postID, userID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return model.ErrAlreadyApplied
		}
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// ListApplicants は応募ユーザーを応募順で返す。
func (r *PostgresPostRepo) ListApplicants(ctx context.Context, postID string) ([]*model.User, error) {
	return r.listPostUsers(ctx, postID, "post_applications", "applied_at")
}

// ListMatched はマッチ済みユーザーをマッチ順で返す。
func (r *PostgresPostRepo) ListMatched(ctx context.Context, postID string) ([]*model.User, error) {
	return r.listPostUsers(ctx, postID, "post_matches", "matched_at")
}

func (r *PostgresPostRepo) listPostUsers(ctx context.Context, postID, table, orderColumn string) ([]*model.User, error) {
	// tableとorderColumnは呼び出し側の定数のみ
	query := fmt.Sprintf(
		`SELECT u.id, u.provider_id, u.nickname, u.profile_image, u.kakao_email,
		    u.email, u.email_verified, u.pending_code, u.code_expires_at, u.role,
		    u.push_subscription, u.created_at, u.updated_at
		 FROM %s t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.post_id = $1
		 ORDER BY t.%s`, table, orderColumn)

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list post users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post users: %w", err)
	}
	return users, nil
}

// MatchApplicants は指定ユーザー群をマッチ集合へall-or-nothingで追加する。
// 投稿行をFOR UPDATEでロックし、検証から挿入までを同一トランザクションで行うため、
// 並行するapply/matchと競合してもマッチ集合が応募集合の部分集合であることが保たれる。
func (r *PostgresPostRepo) MatchApplicants(ctx context.Context, postID string, userIDs []string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID,
	).Scan(&lockedID)
	if err == sql.ErrNoRows {
		return nil, model.ErrInvalidPostID
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock post: %w", err)
	}

	// 現在の応募集合とマッチ集合を取得
	applied, err := collectIDSet(ctx, tx,
		`SELECT user_id FROM post_applications WHERE post_id = $1`, postID)
	if err != nil {
		return nil, err
	}
	matched, err := collectIDSet(ctx, tx,
		`SELECT user_id FROM post_matches WHERE post_id = $1`, postID)
	if err != nil {
		return nil, err
	}

	// 全件検証: 応募済みかつ未マッチであること
	var failed []string
	for _, userID := range userIDs {
		if !applied[userID] || matched[userID] {
			failed = append(failed, userID)
		}
	}
	if len(failed) > 0 {
		return failed, nil
	}

	for _, userID := range userIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_matches (post_id, user_id, matched_at)
			 VALUES ($1, $2, now())`,
			postID, userID,
		); err != nil {
			return nil, fmt.Errorf("failed to insert match: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit match transaction: %w", err)
	}
	return nil, nil
}

// ListWrittenByUser はユーザーが作成した投稿を応募者数付きで作成順に返す。
func (r *PostgresPostRepo) ListWrittenByUser(ctx context.Context, userID string) ([]PostWithApplicantCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.writer_id, p.category, p.title, p.subtitle, p.description,
		    p.address, p.status, p.created_at, p.teach_at,
		    (SELECT COUNT(*) FROM post_applications a WHERE a.post_id = p.id)
		 FROM posts p
		 WHERE p.writer_id = $1
		 ORDER BY p.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list written posts: %w", err)
	}
	defer rows.Close()

	return collectPostsWithCount(rows)
}

// ListAppliedByUser はユーザーが応募した投稿を投稿者の表示情報付きで応募順に返す。
func (r *PostgresPostRepo) ListAppliedByUser(ctx context.Context, userID string) ([]PostWithWriter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.writer_id, p.category, p.title, p.subtitle, p.description,
		    p.address, p.status, p.created_at, p.teach_at,
		    w.nickname, w.profile_image, COALESCE(w.email, '')
		 FROM post_applications a
		 JOIN posts p ON p.id = a.post_id
		 JOIN users w ON w.id = p.writer_id
		 WHERE a.user_id = $1
		 ORDER BY a.applied_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied posts: %w", err)
	}
	defer rows.Close()

	var posts []PostWithWriter
	for rows.Next() {
		var pw PostWithWriter
		post, err := scanPost(rows, &pw.WriterNickname, &pw.WriterProfileImage, &pw.WriterEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan applied post: %w", err)
		}
		pw.Post = *post
		posts = append(posts, pw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applied posts: %w", err)
	}
	return posts, nil
}

func collectPostsWithCount(rows *sql.Rows) ([]PostWithApplicantCount, error) {
	var posts []PostWithApplicantCount
	for rows.Next() {
		var pc PostWithApplicantCount
		post, err := scanPost(rows, &pc.ApplicantCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		pc.Post = *post
		posts = append(posts, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

func collectIDSet(ctx context.Context, tx *sql.Tx, query, postID string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query id set: %w", err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		set[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate id set: %w", err)
	}
	return set, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
