package middleware

import "net/http"

// NewStatusMetricsMiddleware はレスポンスのHTTPステータスコードを
// recordコールバックに通知するミドルウェアを返す。
// メトリクス収集（ステータスコード別カウンタ）に使用する。
func NewStatusMetricsMiddleware(record func(statusCode int)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			if record != nil {
				record(rec.statusCode)
			}
		})
	}
}
