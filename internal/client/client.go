// Package client はサーバーAPIを呼び出すHTTPクライアントを提供する。
// 認証系の操作はセッションマネージャーと連動し、取得したトークンを
// 以降のリクエストのAuthorizationヘッダーに自動付与する。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Rohit00112/meetflow/internal/model"
	"github.com/Rohit00112/meetflow/internal/session"
)

const defaultTimeout = 10 * time.Second

// ErrNotAuthenticated は有効なセッションなしで認証必須の操作を呼んだ場合に返る。
var ErrNotAuthenticated = errors.New("not authenticated")

// Client はサーバーAPIへのHTTPクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Manager
}

// NewClient は指定ベースURLとセッションマネージャーでClientを生成する。
func NewClient(baseURL string, sessionManager *session.Manager) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    sessionManager,
	}
}

// Session はこのクライアントが使用するセッションマネージャーを返す。
func (c *Client) Session() *session.Manager {
	return c.session
}

// doJSON はJSONリクエストを送信し、成功時はoutへデコードする。
// authenticatedの場合はセッションのトークンをBearerとして付与する。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any, authenticated bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authenticated {
		_, tokenString, err := c.session.Current()
		if err != nil {
			return err
		}
		if tokenString == "" {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+tokenString)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeAPIError はエラーレスポンスを統一エラーフォーマットとして読み出す。
// デコードできない場合はステータスコードのみのエラーを返す。
func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Category string `json:"category"`
		Action   string `json:"action"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Code == "" {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return &model.APIError{
		Code:     payload.Code,
		Message:  payload.Message,
		Category: payload.Category,
		Action:   payload.Action,
	}
}
