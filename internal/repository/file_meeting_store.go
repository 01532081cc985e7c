package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Rohit00112/meetflow/internal/model"
)

// FileMeetingStore はJSONファイルに会議コレクション全体を保存するストア。
// 元のクライアントローカル永続化（固定キーへの単一ブロブ書き込み）と同じ規律を保つ。
// 壊れた保存データは空のレジストリとして扱い、ファイルをリセットする。
type FileMeetingStore struct {
	path string
}

// NewFileMeetingStore はFileMeetingStoreを生成する。
func NewFileMeetingStore(path string) *FileMeetingStore {
	return &FileMeetingStore{path: path}
}

// Load は保存済みの会議コレクション全体を読み込む。
// ファイルが存在しない場合は空を返す。JSONが壊れている場合は
// 空を返し、ファイルを削除する（フェイルオープン）。
// time.TimeフィールドはJSONデコードで自動的に復元される。
func (s *FileMeetingStore) Load(ctx context.Context) ([]*model.Meeting, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*model.Meeting{}, nil
		}
		return nil, fmt.Errorf("failed to read meeting store: %w", err)
	}

	var meetings []*model.Meeting
	if err := json.Unmarshal(data, &meetings); err != nil {
		slog.Warn("会議ストアの保存データが壊れているためリセットします",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		if removeErr := os.Remove(s.path); removeErr != nil && !os.IsNotExist(removeErr) {
			return nil, fmt.Errorf("failed to reset corrupt meeting store: %w", removeErr)
		}
		return []*model.Meeting{}, nil
	}

	return meetings, nil
}

// Save は会議コレクション全体をシリアライズして書き込む。
// 一時ファイル経由のrenameで、書き込み途中のファイルが読まれないようにする。
func (s *FileMeetingStore) Save(ctx context.Context, meetings []*model.Meeting) error {
	if meetings == nil {
		meetings = []*model.Meeting{}
	}

	data, err := json.Marshal(meetings)
	if err != nil {
		return fmt.Errorf("failed to marshal meetings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create meeting store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "meetings-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write meeting store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace meeting store: %w", err)
	}

	return nil
}

// compile-time interface check
var _ MeetingStore = (*FileMeetingStore)(nil)
