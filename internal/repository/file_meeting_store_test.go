package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Rohit00112/meetflow/internal/model"
)

func testMeeting(id string) *model.Meeting {
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return &model.Meeting{
		ID:        id,
		HostID:    "host-1",
		HostName:  "Taro",
		StartTime: now,
		Participants: []*model.Participant{
			{ID: "host-1", Name: "Taro", IsHost: true, JoinTime: now},
		},
		IsActive: true,
		Settings: model.DefaultMeetingSettings(),
	}
}

func TestFileMeetingStore_SaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetings.json")
	store := NewFileMeetingStore(path)
	ctx := context.Background()

	want := []*model.Meeting{testMeeting("abc-defg-hij"), testMeeting("klm-nopq-rst")}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(meetings) = %d, want 2", len(got))
	}
	if got[0].ID != "abc-defg-hij" {
		t.Errorf("meetings[0].ID = %q, want %q", got[0].ID, "abc-defg-hij")
	}
	// 日付フィールドがシリアライズ経由で復元されること
	if !got[0].StartTime.Equal(want[0].StartTime) {
		t.Errorf("StartTime = %v, want %v", got[0].StartTime, want[0].StartTime)
	}
	if !got[0].Participants[0].JoinTime.Equal(want[0].Participants[0].JoinTime) {
		t.Errorf("JoinTime = %v, want %v", got[0].Participants[0].JoinTime, want[0].Participants[0].JoinTime)
	}
}

func TestFileMeetingStore_Load_MissingFile_ReturnsEmpty(t *testing.T) {
	store := NewFileMeetingStore(filepath.Join(t.TempDir(), "missing.json"))

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(meetings) = %d, want 0", len(got))
	}
}

func TestFileMeetingStore_Load_CorruptData_ResetsToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	store := NewFileMeetingStore(path)
	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(meetings) = %d, want 0", len(got))
	}

	// 壊れたファイルはリセットされること
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("corrupt store file should be removed, stat err = %v", err)
	}
}

func TestFileMeetingStore_Save_NilCollection_WritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetings.json")
	store := NewFileMeetingStore(path)
	ctx := context.Background()

	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load after Save(nil) = %v, want empty slice", got)
	}
}
