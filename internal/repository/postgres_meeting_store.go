package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Rohit00112/meetflow/internal/model"
)

// snapshotID はmeeting_snapshotsテーブルの固定行ID。
// レジストリはコレクション全体を1行のJSONBブロブとして保存する。
const snapshotID = 1

// PostgresMeetingStore はPostgreSQLの単一行JSONBスナップショットを使用するストア。
// 書き込み規律はFileMeetingStoreと同じで、毎回コレクション全体を上書きする。
type PostgresMeetingStore struct {
	db *sql.DB
}

// NewPostgresMeetingStore はPostgresMeetingStoreを生成する。
func NewPostgresMeetingStore(db *sql.DB) *PostgresMeetingStore {
	return &PostgresMeetingStore{db: db}
}

// Load は保存済みの会議コレクション全体を読み込む。
// スナップショット行が存在しない場合は空を返す。
// JSONが壊れている場合は空を返し、行を削除する（フェイルオープン）。
func (s *PostgresMeetingStore) Load(ctx context.Context) ([]*model.Meeting, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM meeting_snapshots WHERE id = $1`,
		snapshotID,
	).Scan(&data)

	if err == sql.ErrNoRows {
		return []*model.Meeting{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting snapshot: %w", err)
	}

	var meetings []*model.Meeting
	if err := json.Unmarshal(data, &meetings); err != nil {
		slog.Warn("会議スナップショットが壊れているためリセットします",
			slog.String("error", err.Error()),
		)
		if _, delErr := s.db.ExecContext(ctx,
			`DELETE FROM meeting_snapshots WHERE id = $1`, snapshotID,
		); delErr != nil {
			return nil, fmt.Errorf("failed to reset corrupt meeting snapshot: %w", delErr)
		}
		return []*model.Meeting{}, nil
	}

	return meetings, nil
}

// Save は会議コレクション全体をシリアライズして1行にUPSERTする。
func (s *PostgresMeetingStore) Save(ctx context.Context, meetings []*model.Meeting) error {
	if meetings == nil {
		meetings = []*model.Meeting{}
	}

	data, err := json.Marshal(meetings)
	if err != nil {
		return fmt.Errorf("failed to marshal meetings: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meeting_snapshots (id, data, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		snapshotID, data,
	)
	if err != nil {
		return fmt.Errorf("failed to save meeting snapshot: %w", err)
	}

	return nil
}

// compile-time interface check
var _ MeetingStore = (*PostgresMeetingStore)(nil)
