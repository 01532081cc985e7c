package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Rohit00112/meetflow/internal/model"
	"github.com/Rohit00112/meetflow/internal/token"
)

// Listener はセッション状態の変化を受け取るコールバック。
// userはログイン中のユーザー、未ログインの場合はnil。
type Listener func(user *model.User)

// Manager はクライアント側の唯一のセッション保持者。
// トークンとユーザー情報をストレージに保存し、読み出し時に
// 整合性と有効期限を遅延検証する。検証に失敗した資格情報は
// その場で破棄される。
type Manager struct {
	mu        sync.Mutex
	storage   Storage
	now       func() time.Time
	listeners []Listener
}

// NewManager は指定ストレージを使うManagerを生成する。
func NewManager(storage Storage) *Manager {
	return &Manager{
		storage: storage,
		now:     time.Now,
	}
}

// Establish はログイン成功後に資格情報を保存し、リスナーへ通知する。
func (m *Manager) Establish(user *model.User, tokenString string) error {
	if user == nil || tokenString == "" {
		return fmt.Errorf("both user and token are required to establish a session")
	}

	m.mu.Lock()
	userJSON, err := json.Marshal(user)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to marshal session user: %w", err)
	}
	if err := m.storage.Write(tokenKey, tokenString); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.storage.Write(userKey, string(userJSON)); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.notify(user)
	return nil
}

// UpdateUser はプロフィール更新などでユーザー情報とトークンを差し替える。
// 現在のセッションがなければ何もしない。
func (m *Manager) UpdateUser(user *model.User, tokenString string) error {
	current, _, err := m.Current()
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	return m.Establish(user, tokenString)
}

// Current は有効なセッションのユーザーとトークンを返す。
// 未ログイン・不整合・期限切れの場合は(nil, "", nil)を返し、
// 不整合・期限切れの資格情報はストレージから除去する。
func (m *Manager) Current() (*model.User, string, error) {
	m.mu.Lock()

	tokenString, err := m.storage.Read(tokenKey)
	if err != nil {
		m.mu.Unlock()
		return nil, "", err
	}
	userJSON, err := m.storage.Read(userKey)
	if err != nil {
		m.mu.Unlock()
		return nil, "", err
	}

	if tokenString == "" && userJSON == "" {
		m.mu.Unlock()
		return nil, "", nil
	}

	// 片方だけ存在する不整合状態は全消去する
	if tokenString == "" || userJSON == "" {
		err := m.clearLocked()
		m.mu.Unlock()
		m.notify(nil)
		return nil, "", err
	}

	expiresAt := token.ExpiresAt(tokenString)
	if !expiresAt.After(m.now()) {
		clearErr := m.clearLocked()
		m.mu.Unlock()
		m.notify(nil)
		return nil, "", clearErr
	}

	var user model.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		clearErr := m.clearLocked()
		m.mu.Unlock()
		m.notify(nil)
		return nil, "", clearErr
	}

	m.mu.Unlock()
	return &user, tokenString, nil
}

// Clear はログアウト時に資格情報を破棄し、リスナーへ通知する。
func (m *Manager) Clear() error {
	m.mu.Lock()
	err := m.clearLocked()
	m.mu.Unlock()

	m.notify(nil)
	return err
}

// Subscribe はセッション状態の変化を受け取るリスナーを登録する。
func (m *Manager) Subscribe(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

func (m *Manager) clearLocked() error {
	if err := m.storage.Remove(tokenKey); err != nil {
		return err
	}
	return m.storage.Remove(userKey)
}

func (m *Manager) notify(user *model.User) {
	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener(user)
	}
}
