package verification

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/gachitda/gachitda/internal/metrics"
	"github.com/gachitda/gachitda/internal/model"
	"github.com/gachitda/gachitda/internal/repository"
)

// MailSender はメール送信トランスポートのインターフェース。
// 実際の配送はスコープ外であり、このコントラクトのみを消費する。
type MailSender interface {
	// Send は認証コードをメールで送信する。
	Send(ctx context.Context, email, code string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	CodeLength      int
	CodeTTL         time.Duration
	AllowedSuffixes []string // 学校メールとして許可するドメインサフィックス
}

// Service はメール認証のビジネスロジックを提供する。
type Service struct {
	users     repository.UserRepository
	sender    MailSender
	config    ServiceConfig
	collector metrics.Collector
	now       func() time.Time // テストで固定するためのフック
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, sender MailSender, config ServiceConfig, collector metrics.Collector) *Service {
	return &Service{
		users:     users,
		sender:    sender,
		config:    config,
		collector: collector,
		now:       time.Now,
	}
}

// emailPattern はメールアドレスのローカル部とドメイン部の粗い検証。
// 厳密なRFC検証はせず、空白と@の混入だけを弾く。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+$`)

// validateEmail はemailが許可された学校ドメインのアドレスかを検証する。
func (s *Service) validateEmail(email string) bool {
	if !emailPattern.MatchString(email) {
		return false
	}
	for _, suffix := range s.config.AllowedSuffixes {
		if strings.HasSuffix(email, suffix) {
			return true
		}
	}
	return false
}

// RequestCode は認証コードを生成してユーザーに保存し、メールで送信する。
// 既存の保留コードは上書きされ、常に最新のコードだけが有効になる。
// メール送信に失敗しても保存済みのコードはロールバックせず有効なまま残す。
func (s *Service) RequestCode(ctx context.Context, user *model.User, email string) error {
	if !s.validateEmail(email) {
		return model.ErrInvalidEmail
	}

	code, err := GenerateCode(s.config.CodeLength)
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	expiresAt := s.now().Add(s.config.CodeTTL)
	if err := s.users.SetPendingCode(ctx, user.ID, email, code, expiresAt); err != nil {
		return fmt.Errorf("failed to store pending code: %w", err)
	}

	s.collector.RecordVerification(metrics.VerificationRequested)

	if err := s.sender.Send(ctx, email, code); err != nil {
		slog.Error("failed to send verification email",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return model.ErrEmailSendFailed
	}

	slog.Info("verification code sent", slog.String("user_id", user.ID))
	return nil
}

// VerifyCode は提出されたコードを検証し、成功時にemail_verifiedをtrueへ遷移させる。
// 期限切れの判定は検証時に遅延評価され、期限切れコードはクリアされずに残る。
// コードは一度だけ使用でき、成功後の再検証はNO_VERIFICATION_PENDINGで失敗する。
func (s *Service) VerifyCode(ctx context.Context, user *model.User, code string) error {
	if !user.HasPendingCode() {
		s.collector.RecordVerification(metrics.VerificationNoPending)
		return model.ErrNoVerificationPending
	}

	if s.now().After(*user.CodeExpiresAt) {
		s.collector.RecordVerification(metrics.VerificationExpired)
		return model.ErrCodeExpired
	}

	if *user.PendingCode != code {
		s.collector.RecordVerification(metrics.VerificationInvalid)
		return model.ErrInvalidCode
	}

	// compare-and-swapで遷移させる。読み取り後に並行リクエストがコードを
	// 上書きしていた場合は更新されず、提出コードはもはや有効ではない。
	confirmed, err := s.users.ConfirmPendingCode(ctx, user.ID, code)
	if err != nil {
		return fmt.Errorf("failed to confirm code: %w", err)
	}
	if !confirmed {
		s.collector.RecordVerification(metrics.VerificationInvalid)
		return model.ErrInvalidCode
	}

	s.collector.RecordVerification(metrics.VerificationVerified)
	slog.Info("email verified", slog.String("user_id", user.ID))
	return nil
}
