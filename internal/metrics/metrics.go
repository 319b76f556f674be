// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はメトリクス収集のインターフェース。サービス層から利用する。
type Collector interface {
	RecordLogin(success bool)
	RecordVerification(result string)
	RecordPostCreated()
	RecordApplication()
	RecordMatch(count int)
	RecordHTTPStatus(statusCode int)
}

// 認証コード検証の結果ラベル。
const (
	VerificationRequested = "requested"
	VerificationVerified  = "verified"
	VerificationExpired   = "expired"
	VerificationInvalid   = "invalid"
	VerificationNoPending = "no_pending"
)

// PromCollector はPrometheusメトリクスを収集する実装。
type PromCollector struct {
	loginSuccess prometheus.Counter
	loginFail    prometheus.Counter
	verification *prometheus.CounterVec
	postsCreated prometheus.Counter
	applications prometheus.Counter
	matches      prometheus.Counter
	httpStatus   *prometheus.CounterVec
}

// NewCollector は新しいPromCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *PromCollector {
	c := &PromCollector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gachitda_login_success_total",
			Help: "Kakaoログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gachitda_login_fail_total",
			Help: "Kakaoログイン失敗の合計数",
		}),
		verification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gachitda_email_verification_total",
			Help: "メール認証操作の結果別の合計数",
		}, []string{"result"}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gachitda_posts_created_total",
			Help: "作成された投稿の合計数",
		}),
		applications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gachitda_applications_total",
			Help: "投稿への応募の合計数",
		}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gachitda_matches_total",
			Help: "成立したマッチの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gachitda_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.verification,
		c.postsCreated,
		c.applications,
		c.matches,
		c.httpStatus,
	)

	return c
}

// RecordLogin はログイン結果を記録する。
func (c *PromCollector) RecordLogin(success bool) {
	if success {
		c.loginSuccess.Inc()
	} else {
		c.loginFail.Inc()
	}
}

// RecordVerification はメール認証操作の結果を記録する。
func (c *PromCollector) RecordVerification(result string) {
	c.verification.WithLabelValues(result).Inc()
}

// RecordPostCreated は投稿作成を記録する。
func (c *PromCollector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordApplication は応募を記録する。
func (c *PromCollector) RecordApplication() {
	c.applications.Inc()
}

// RecordMatch は成立したマッチ数を記録する。
func (c *PromCollector) RecordMatch(count int) {
	c.matches.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *PromCollector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないCollector実装。テストで使用する。
type NopCollector struct{}

func (NopCollector) RecordLogin(bool)          {}
func (NopCollector) RecordVerification(string) {}
func (NopCollector) RecordPostCreated()        {}
func (NopCollector) RecordApplication()        {}
func (NopCollector) RecordMatch(int)           {}
func (NopCollector) RecordHTTPStatus(int)      {}

// compile-time interface checks
var (
	_ Collector = (*PromCollector)(nil)
	_ Collector = NopCollector{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
