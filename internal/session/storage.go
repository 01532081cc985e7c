// Package session はクライアント側のセッション状態管理を提供する。
// サーバーが発行したトークンとユーザー情報のペアをローカルストレージに保持し、
// 両者の整合性とトークンの有効期限を検証する。
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ストレージ上の固定キー。
const (
	tokenKey = "meetflow_token"
	userKey  = "meetflow_user"
)

// Storage はセッション資格情報の永続化インターフェース。
// キーが存在しない場合、Readは空文字列とnilエラーを返す。
type Storage interface {
	Read(key string) (string, error)
	Write(key, value string) error
	Remove(key string) error
}

// FileStorage はJSONファイルにキーバリューを保存するStorage実装。
// CLIクライアントのホームディレクトリ配下での利用を想定する。
type FileStorage struct {
	mu   sync.Mutex
	path string
}

// NewFileStorage は指定パスのファイルを使うFileStorageを生成する。
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Read はキーに対応する値を返す。ファイルまたはキーが存在しない場合は空文字列を返す。
func (s *FileStorage) Read(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Write はキーバリューを保存する。
func (s *FileStorage) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

// Remove はキーを削除する。存在しないキーの削除はエラーにならない。
func (s *FileStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	delete(values, key)
	return s.save(values)
}

func (s *FileStorage) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		// 壊れたファイルは空として扱う（フェイルオープン）
		return map[string]string{}, nil
	}
	return values, nil
}

func (s *FileStorage) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal session values: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// MemoryStorage はインメモリのStorage実装。テスト用。
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStorage は空のMemoryStorageを生成する。
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: map[string]string{}}
}

// Read はキーに対応する値を返す。
func (s *MemoryStorage) Read(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// Write はキーバリューを保存する。
func (s *MemoryStorage) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// Remove はキーを削除する。
func (s *MemoryStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

var (
	_ Storage = (*FileStorage)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
