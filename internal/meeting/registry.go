// Package meeting は会議レジストリを提供する。
// 会議コレクション全体をメモリ上で管理し、変更のたびにスナップショットとして
// ストアへ書き出す。起動時にスナップショットを読み戻して復元する。
package meeting

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Rohit00112/meetflow/internal/model"
	"github.com/Rohit00112/meetflow/internal/repository"
)

// Registry は会議セッションと参加者ロスターを管理する。
// 全操作はミューテックスで直列化され、返却される会議はディープコピーである。
type Registry struct {
	mu       sync.Mutex
	meetings []*model.Meeting
	index    map[string]*model.Meeting
	store    repository.MeetingStore
	now      func() time.Time
}

// NewRegistry はRegistryを生成する。storeにnilは渡せない。
func NewRegistry(store repository.MeetingStore) *Registry {
	return &Registry{
		index: make(map[string]*model.Meeting),
		store: store,
		now:   time.Now,
	}
}

// Restore はストアからスナップショットを読み込み、レジストリを復元する。
// 構造的に壊れたレコードは除外する。除外が発生した場合は
// クリーンアップ後の状態を保存し直す。
func (r *Registry) Restore(ctx context.Context) error {
	loaded, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load meeting snapshot: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.meetings = r.meetings[:0]
	r.index = make(map[string]*model.Meeting)

	dropped := 0
	for _, m := range loaded {
		if !m.IsValid() {
			dropped++
			continue
		}
		r.meetings = append(r.meetings, m)
		r.index[m.ID] = m
	}

	if dropped > 0 {
		slog.Warn("dropped invalid meeting records on restore", slog.Int("count", dropped))
		r.persist(ctx)
	}

	slog.Info("meeting registry restored", slog.Int("count", len(r.meetings)))

	return nil
}

// Create は新しい会議を作成し、ホストを最初の参加者として登録する。
// settingsがnilの場合はデフォルト設定を適用する。
// ホストは入室時ミュート設定に関わらずミュートなし・ビデオオフで開始する。
func (r *Registry) Create(ctx context.Context, hostID, hostName string, settings *model.MeetingSettings) (*model.Meeting, error) {
	s := model.DefaultMeetingSettings()
	if settings != nil {
		s = *settings
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.uniqueCodeLocked()
	if err != nil {
		return nil, err
	}

	now := r.now()
	m := &model.Meeting{
		ID:        code,
		HostID:    hostID,
		HostName:  hostName,
		StartTime: now,
		Participants: []*model.Participant{
			{
				ID:        hostID,
				Name:      hostName,
				IsHost:    true,
				IsMuted:   false,
				IsVideoOn: false,
				JoinTime:  now,
			},
		},
		IsActive: true,
		Settings: s,
	}

	r.meetings = append(r.meetings, m)
	r.index[m.ID] = m
	r.persist(ctx)

	slog.Info("meeting created",
		slog.String("meeting_id", m.ID),
		slog.String("host_id", hostID),
	)

	return cloneMeeting(m), nil
}

// Get は指定IDの会議を返す。見つからない場合はnilを返す。
func (r *Registry) Get(ctx context.Context, meetingID string) *model.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.index[meetingID]
	if !ok {
		return nil
	}
	return cloneMeeting(m)
}

// Join は参加者を会議に追加する。会議が存在しないか終了済みの場合はnilを返す。
// 同一IDの参加者が既に在室している場合はJoinTimeのみ更新する（冪等な再入室）。
// 新規参加者のミュート初期値は会議設定の入室時ミュートに従う。
func (r *Registry) Join(ctx context.Context, meetingID, participantID, participantName string) *model.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.index[meetingID]
	if !ok || !m.IsActive {
		return nil
	}

	now := r.now()
	if existing := m.FindParticipant(participantID); existing != nil {
		existing.JoinTime = now
	} else {
		m.Participants = append(m.Participants, &model.Participant{
			ID:        participantID,
			Name:      participantName,
			IsHost:    false,
			IsMuted:   m.Settings.MuteParticipantsOnEntry,
			IsVideoOn: false,
			JoinTime:  now,
		})
		slog.Info("participant joined",
			slog.String("meeting_id", meetingID),
			slog.String("participant_id", participantID),
		)
	}

	r.persist(ctx)

	return cloneMeeting(m)
}

// Leave は参加者を会議から削除する。会議が存在しない場合はfalseを返す。
// 退室するのがホストの場合、会議全体を終了する（ホスト移譲は行わない）。
func (r *Registry) Leave(ctx context.Context, meetingID, participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.index[meetingID]
	if !ok {
		return false
	}

	p := m.FindParticipant(participantID)
	if p != nil && p.IsHost {
		return r.endLocked(ctx, m)
	}

	for i, cur := range m.Participants {
		if cur.ID == participantID {
			m.Participants = append(m.Participants[:i], m.Participants[i+1:]...)
			break
		}
	}

	r.persist(ctx)

	slog.Info("participant left",
		slog.String("meeting_id", meetingID),
		slog.String("participant_id", participantID),
	)

	return true
}

// End は会議を終了する。会議が存在しない場合はfalseを返す。
// 終了は終端状態であり、終了済みの会議は再開しない。
func (r *Registry) End(ctx context.Context, meetingID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.index[meetingID]
	if !ok {
		return false
	}
	return r.endLocked(ctx, m)
}

func (r *Registry) endLocked(ctx context.Context, m *model.Meeting) bool {
	m.IsActive = false
	r.persist(ctx)

	slog.Info("meeting ended", slog.String("meeting_id", m.ID))

	return true
}

// ToggleMute は参加者のミュート状態を反転する。
// 会議または参加者が見つからない場合はfalseを返す。
func (r *Registry) ToggleMute(ctx context.Context, meetingID, participantID string) bool {
	return r.toggle(ctx, meetingID, participantID, func(p *model.Participant) {
		p.IsMuted = !p.IsMuted
	})
}

// ToggleVideo は参加者のビデオ状態を反転する。
// 会議または参加者が見つからない場合はfalseを返す。
func (r *Registry) ToggleVideo(ctx context.Context, meetingID, participantID string) bool {
	return r.toggle(ctx, meetingID, participantID, func(p *model.Participant) {
		p.IsVideoOn = !p.IsVideoOn
	})
}

func (r *Registry) toggle(ctx context.Context, meetingID, participantID string, flip func(*model.Participant)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.index[meetingID]
	if !ok {
		return false
	}

	p := m.FindParticipant(participantID)
	if p == nil {
		return false
	}

	flip(p)
	r.persist(ctx)

	return true
}

// ListActive はアクティブな会議の一覧を返す。
func (r *Registry) ListActive(ctx context.Context) []*model.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*model.Meeting, 0)
	for _, m := range r.meetings {
		if m.IsActive {
			result = append(result, cloneMeeting(m))
		}
	}
	return result
}

// ListByHost は指定ホストが作成した会議の一覧を返す（終了済みを含む）。
func (r *Registry) ListByHost(ctx context.Context, hostID string) []*model.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*model.Meeting, 0)
	for _, m := range r.meetings {
		if m.HostID == hostID {
			result = append(result, cloneMeeting(m))
		}
	}
	return result
}

// PruneEnded は終了済みの会議をレジストリから取り除き、削除件数を返す。
// 定期クリーンアップワーカーから呼ばれる。
func (r *Registry) PruneEnded(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.meetings[:0]
	pruned := 0
	for _, m := range r.meetings {
		if m.IsActive {
			kept = append(kept, m)
		} else {
			delete(r.index, m.ID)
			pruned++
		}
	}
	r.meetings = kept

	if pruned > 0 {
		r.persist(ctx)
	}

	return pruned
}

// CountActive はアクティブな会議数を返す。メトリクス収集に使用する。
func (r *Registry) CountActive() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, m := range r.meetings {
		if m.IsActive {
			count++
		}
	}
	return count
}

// persist は現在のコレクション全体をストアへ書き出す。
// 永続化の失敗は操作自体を失敗させず、警告ログのみ残す。
// 呼び出し側はr.muを保持していること。
func (r *Registry) persist(ctx context.Context) {
	if err := r.store.Save(ctx, r.meetings); err != nil {
		slog.Warn("failed to persist meeting snapshot", slog.String("error", err.Error()))
	}
}

// uniqueCodeLocked は現在追跡中の会議と衝突しないコードを生成する。
// 呼び出し側はr.muを保持していること。
func (r *Registry) uniqueCodeLocked() (string, error) {
	for i := 0; i < 10; i++ {
		code, err := generateMeetingCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate meeting code: %w", err)
		}
		if _, exists := r.index[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique meeting code")
}

// cloneMeeting は会議のディープコピーを返す。
// レジストリ内部の状態を呼び出し側に共有しないために使用する。
func cloneMeeting(m *model.Meeting) *model.Meeting {
	c := *m
	c.Participants = make([]*model.Participant, len(m.Participants))
	for i, p := range m.Participants {
		pc := *p
		c.Participants[i] = &pc
	}
	return &c
}

const codeLetters = "abcdefghijklmnopqrstuvwxyz"

// generateMeetingCode は「abc-defg-hij」形式の会議コードを生成する。
func generateMeetingCode() (string, error) {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeLetters[int(b[i])%len(codeLetters)]
	}
	return fmt.Sprintf("%s-%s-%s", b[0:3], b[3:7], b[7:10]), nil
}
