// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordRegistration()
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordPasswordReset()
	RecordMeetingCreated()
	RecordMeetingJoined()
	RecordMeetingEnded()
	SetActiveMeetings(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations  prometheus.Counter
	loginSuccess   prometheus.Counter
	loginFail      prometheus.Counter
	passwordResets prometheus.Counter
	meetingCreated prometheus.Counter
	meetingJoined  prometheus.Counter
	meetingEnded   prometheus.Counter
	activeMeetings prometheus.Gauge
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetflow_registrations_total",
			Help: "ユーザー登録の合計数",
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetflow_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetflow_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		passwordResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetflow_password_resets_total",
			Help: "完了したパスワードリセットの合計数",
		}),
		meetingCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetflow_meetings_created_total",
			Help: "作成された会議の合計数",
		}),
		meetingJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetflow_meeting_joins_total",
			Help: "会議参加の合計数",
		}),
		meetingEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meetflow_meetings_ended_total",
			Help: "終了した会議の合計数",
		}),
		activeMeetings: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meetflow_active_meetings",
			Help: "現在アクティブな会議数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meetflow_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.registrations,
		c.loginSuccess,
		c.loginFail,
		c.passwordResets,
		c.meetingCreated,
		c.meetingJoined,
		c.meetingEnded,
		c.activeMeetings,
		c.httpStatus,
	)

	return c
}

// RecordRegistration はユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordPasswordReset はパスワードリセットの完了を記録する。
func (c *Collector) RecordPasswordReset() {
	c.passwordResets.Inc()
}

// RecordMeetingCreated は会議作成を記録する。
func (c *Collector) RecordMeetingCreated() {
	c.meetingCreated.Inc()
}

// RecordMeetingJoined は会議参加を記録する。
func (c *Collector) RecordMeetingJoined() {
	c.meetingJoined.Inc()
}

// RecordMeetingEnded は会議終了を記録する。
func (c *Collector) RecordMeetingEnded() {
	c.meetingEnded.Inc()
}

// SetActiveMeetings は現在のアクティブ会議数を設定する。
func (c *Collector) SetActiveMeetings(count int) {
	c.activeMeetings.Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

var _ MetricsCollector = (*Collector)(nil)
