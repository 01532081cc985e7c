// Package model はドメインモデルを定義する。
package model

import "time"

// Meeting は会議セッションを表す。
// IDは「abc-defg-hij」形式の3パートコード。
// IsActiveはtrue→falseへ一度だけ遷移し、終了後に再開することはない。
type Meeting struct {
	ID           string          `json:"id"`
	HostID       string          `json:"hostId"`
	HostName     string          `json:"hostName"`
	StartTime    time.Time       `json:"startTime"`
	Participants []*Participant  `json:"participants"`
	IsActive     bool            `json:"isActive"`
	Settings     MeetingSettings `json:"settings"`
}

// Participant は会議の参加者を表す。
// IsHost=trueの参加者はアクティブな会議につき常に1人（作成者）。
type Participant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsHost    bool      `json:"isHost"`
	IsMuted   bool      `json:"isMuted"`
	IsVideoOn bool      `json:"isVideoOn"`
	JoinTime  time.Time `json:"joinTime"`
}

// MeetingSettings は会議の動作設定を表す。作成時に確定し、セッション中は変更しない。
type MeetingSettings struct {
	AllowScreenSharing        bool `json:"allowScreenSharing"`
	AllowChat                 bool `json:"allowChat"`
	MuteParticipantsOnEntry   bool `json:"muteParticipantsOnEntry"`
	AllowParticipantsToUnmute bool `json:"allowParticipantsToUnmute"`
	AllowRecording            bool `json:"allowRecording"`
}

// DefaultMeetingSettings は会議設定のデフォルト値を返す。
// 画面共有・チャット・入室時ミュート・自己ミュート解除は有効、録画は無効。
func DefaultMeetingSettings() MeetingSettings {
	return MeetingSettings{
		AllowScreenSharing:        true,
		AllowChat:                 true,
		MuteParticipantsOnEntry:   true,
		AllowParticipantsToUnmute: true,
		AllowRecording:            false,
	}
}

// FindParticipant はIDが一致する参加者を返す。見つからない場合はnilを返す。
func (m *Meeting) FindParticipant(participantID string) *Participant {
	for _, p := range m.Participants {
		if p.ID == participantID {
			return p
		}
	}
	return nil
}

// IsValid は会議レコードが構造的に有効かを判定する。
// ロード時のクリーンアップで、壊れたレコードの除外に使用する。
func (m *Meeting) IsValid() bool {
	return m != nil && m.ID != "" && m.HostID != "" && m.HostName != "" &&
		len(m.Participants) > 0
}
