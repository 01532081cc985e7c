package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Rohit00112/meetflow/internal/metrics"
	"github.com/Rohit00112/meetflow/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 会議
	MeetingRegistry MeetingRegistryInterface

	// 観測
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (StatusMetrics)
//	認証が必要なルートではさらに Auth → RateLimit(General)
//
// 認証エンドポイント（登録/ログイン/リセット）は認証ミドルウェアの外に置き、
// 代わりにIP単位のレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(middleware.NewStatusMetricsMiddleware(deps.Metrics.RecordHTTPStatus))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	meetingHandler := NewMeetingHandler(deps.MeetingRegistry, deps.Metrics)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.Ping(); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプエンドポイント
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// 認証エンドポイント（IP単位のレート制限のみ）
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthEndpointMiddleware())

		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
		r.Post("/api/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/api/auth/reset-password", authHandler.ResetPassword)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// アカウント管理
		r.Route("/api/auth", func(r chi.Router) {
			r.Get("/me", authHandler.Me)
			r.Put("/update-profile", authHandler.UpdateProfile)
			r.Post("/change-password", authHandler.ChangePassword)
		})

		// 会議管理
		r.Route("/api/meetings", func(r chi.Router) {
			r.Get("/", meetingHandler.ListActiveMeetings)
			r.Post("/", meetingHandler.CreateMeeting)
			r.Get("/hosted", meetingHandler.ListHostedMeetings)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", meetingHandler.GetMeeting)
				r.Post("/join", meetingHandler.JoinMeeting)
				r.Post("/leave", meetingHandler.LeaveMeeting)
				r.Post("/end", meetingHandler.EndMeeting)

				r.Route("/participants/{participantId}", func(r chi.Router) {
					r.Post("/toggle-mute", meetingHandler.ToggleMute)
					r.Post("/toggle-video", meetingHandler.ToggleVideo)
				})
			})
		})
	})

	return r
}
