package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Rohit00112/meetflow/internal/model"
)

// DefaultWatchInterval は会議状態ポーリングの既定間隔。
const DefaultWatchInterval = 5 * time.Second

// CreateMeeting は新しい会議を作成する。settingsがnilの場合は既定値が使われる。
func (c *Client) CreateMeeting(ctx context.Context, settings *model.MeetingSettings) (*model.Meeting, error) {
	var body any
	if settings != nil {
		body = map[string]*model.MeetingSettings{"settings": settings}
	}

	var meeting model.Meeting
	if err := c.doJSON(ctx, http.MethodPost, "/api/meetings", body, &meeting, true); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// GetMeeting は会議の現在状態を取得する。
func (c *Client) GetMeeting(ctx context.Context, meetingID string) (*model.Meeting, error) {
	var meeting model.Meeting
	if err := c.doJSON(ctx, http.MethodGet, "/api/meetings/"+meetingID, nil, &meeting, true); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// JoinMeeting は現在のユーザーとして会議に参加する。
func (c *Client) JoinMeeting(ctx context.Context, meetingID string) (*model.Meeting, error) {
	var meeting model.Meeting
	if err := c.doJSON(ctx, http.MethodPost, "/api/meetings/"+meetingID+"/join", nil, &meeting, true); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// LeaveMeeting は会議から退出する。ホストの退出は会議の終了を伴う。
func (c *Client) LeaveMeeting(ctx context.Context, meetingID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/meetings/"+meetingID+"/leave", nil, nil, true)
}

// EndMeeting は会議を終了する。
func (c *Client) EndMeeting(ctx context.Context, meetingID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/meetings/"+meetingID+"/end", nil, nil, true)
}

// ToggleMute は参加者のミュート状態を切り替え、最新の会議状態を返す。
func (c *Client) ToggleMute(ctx context.Context, meetingID, participantID string) (*model.Meeting, error) {
	path := fmt.Sprintf("/api/meetings/%s/participants/%s/toggle-mute", meetingID, participantID)

	var meeting model.Meeting
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &meeting, true); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// ToggleVideo は参加者のビデオ状態を切り替え、最新の会議状態を返す。
func (c *Client) ToggleVideo(ctx context.Context, meetingID, participantID string) (*model.Meeting, error) {
	path := fmt.Sprintf("/api/meetings/%s/participants/%s/toggle-video", meetingID, participantID)

	var meeting model.Meeting
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &meeting, true); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// ListActiveMeetings は進行中の会議一覧を取得する。
func (c *Client) ListActiveMeetings(ctx context.Context) ([]*model.Meeting, error) {
	var meetings []*model.Meeting
	if err := c.doJSON(ctx, http.MethodGet, "/api/meetings", nil, &meetings, true); err != nil {
		return nil, err
	}
	return meetings, nil
}

// ListHostedMeetings は現在のユーザーがホストする会議一覧を取得する。
func (c *Client) ListHostedMeetings(ctx context.Context) ([]*model.Meeting, error) {
	var meetings []*model.Meeting
	if err := c.doJSON(ctx, http.MethodGet, "/api/meetings/hosted", nil, &meetings, true); err != nil {
		return nil, err
	}
	return meetings, nil
}

// WatchMeeting は会議状態を一定間隔でポーリングし、取得のたびにonUpdateを呼ぶ。
// 会議が見つからない、または終了状態になった時点で正常終了する。
// intervalが0以下の場合はDefaultWatchIntervalを使う。
// コンテキストのキャンセルで中断でき、その場合はctx.Err()を返す。
func (c *Client) WatchMeeting(ctx context.Context, meetingID string, interval time.Duration, onUpdate func(*model.Meeting)) error {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		meeting, err := c.GetMeeting(ctx, meetingID)
		if err != nil {
			var apiErr *model.APIError
			if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeMeetingNotFound {
				return nil
			}
			return err
		}

		if onUpdate != nil {
			onUpdate(meeting)
		}
		if !meeting.IsActive {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
