package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Rohit00112/meetflow/internal/metrics"
	"github.com/Rohit00112/meetflow/internal/middleware"
	"github.com/Rohit00112/meetflow/internal/model"
)

// MeetingRegistryInterface は会議ハンドラーが必要とするレジストリインターフェース。
type MeetingRegistryInterface interface {
	Create(ctx context.Context, hostID, hostName string, settings *model.MeetingSettings) (*model.Meeting, error)
	Get(ctx context.Context, meetingID string) *model.Meeting
	Join(ctx context.Context, meetingID, participantID, participantName string) *model.Meeting
	Leave(ctx context.Context, meetingID, participantID string) bool
	End(ctx context.Context, meetingID string) bool
	ToggleMute(ctx context.Context, meetingID, participantID string) bool
	ToggleVideo(ctx context.Context, meetingID, participantID string) bool
	ListActive(ctx context.Context) []*model.Meeting
	ListByHost(ctx context.Context, hostID string) []*model.Meeting
	CountActive() int
}

// MeetingHandler は会議管理のHTTPハンドラー。
type MeetingHandler struct {
	registry  MeetingRegistryInterface
	collector metrics.MetricsCollector // nilの場合はメトリクスを記録しない
}

// NewMeetingHandler はMeetingHandlerを生成する。
func NewMeetingHandler(registry MeetingRegistryInterface, collector metrics.MetricsCollector) *MeetingHandler {
	return &MeetingHandler{
		registry:  registry,
		collector: collector,
	}
}

// createMeetingRequest は会議作成リクエストのボディ。
// settings省略時はデフォルト設定を適用する。
type createMeetingRequest struct {
	Settings *model.MeetingSettings `json:"settings"`
}

// CreateMeeting は会議作成を処理する。ホストは認証済みユーザー。
// POST /api/meetings
func (h *MeetingHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createMeetingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInvalidBodyError(w)
			return
		}
	}

	meeting, err := h.registry.Create(r.Context(), identity.UserID, identity.Name, req.Settings)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordMeetingCreated()
		h.collector.SetActiveMeetings(h.registry.CountActive())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(meeting)
}

// GetMeeting は会議詳細を返す。
// GET /api/meetings/{id}
func (h *MeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "id")

	meeting := h.registry.Get(r.Context(), meetingID)
	if meeting == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewMeetingNotFoundError(meetingID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meeting)
}

// JoinMeeting は会議への参加を処理する。参加者は認証済みユーザー。
// 存在しない・終了済みの会議への参加は404として扱う。
// POST /api/meetings/{id}/join
func (h *MeetingHandler) JoinMeeting(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	meetingID := chi.URLParam(r, "id")

	meeting := h.registry.Join(r.Context(), meetingID, identity.UserID, identity.Name)
	if meeting == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewMeetingNotFoundError(meetingID))
		return
	}

	if h.collector != nil {
		h.collector.RecordMeetingJoined()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meeting)
}

// LeaveMeeting は会議からの退室を処理する。
// ホストの退室は会議全体を終了させる。
// POST /api/meetings/{id}/leave
func (h *MeetingHandler) LeaveMeeting(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	meetingID := chi.URLParam(r, "id")

	if !h.registry.Leave(r.Context(), meetingID, identity.UserID) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewMeetingNotFoundError(meetingID))
		return
	}

	if h.collector != nil {
		h.collector.SetActiveMeetings(h.registry.CountActive())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "会議から退室しました。"})
}

// EndMeeting は会議の終了を処理する。
// POST /api/meetings/{id}/end
func (h *MeetingHandler) EndMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "id")

	if !h.registry.End(r.Context(), meetingID) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewMeetingNotFoundError(meetingID))
		return
	}

	if h.collector != nil {
		h.collector.RecordMeetingEnded()
		h.collector.SetActiveMeetings(h.registry.CountActive())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "会議を終了しました。"})
}

// ToggleMute は参加者のミュート状態の反転を処理する。
// POST /api/meetings/{id}/participants/{participantId}/toggle-mute
func (h *MeetingHandler) ToggleMute(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "id")
	participantID := chi.URLParam(r, "participantId")

	if !h.registry.ToggleMute(r.Context(), meetingID, participantID) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewParticipantNotFoundError(participantID))
		return
	}

	h.writeMeeting(w, r, meetingID)
}

// ToggleVideo は参加者のビデオ状態の反転を処理する。
// POST /api/meetings/{id}/participants/{participantId}/toggle-video
func (h *MeetingHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	meetingID := chi.URLParam(r, "id")
	participantID := chi.URLParam(r, "participantId")

	if !h.registry.ToggleVideo(r.Context(), meetingID, participantID) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewParticipantNotFoundError(participantID))
		return
	}

	h.writeMeeting(w, r, meetingID)
}

// ListActiveMeetings はアクティブな会議の一覧を返す。
// GET /api/meetings
func (h *MeetingHandler) ListActiveMeetings(w http.ResponseWriter, r *http.Request) {
	meetings := h.registry.ListActive(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meetings)
}

// ListHostedMeetings は認証済みユーザーがホストの会議一覧を返す（終了済みを含む）。
// GET /api/meetings/hosted
func (h *MeetingHandler) ListHostedMeetings(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	meetings := h.registry.ListByHost(r.Context(), identity.UserID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meetings)
}

// writeMeeting はトグル操作後の最新の会議状態を書き込む。
func (h *MeetingHandler) writeMeeting(w http.ResponseWriter, r *http.Request, meetingID string) {
	meeting := h.registry.Get(r.Context(), meetingID)
	if meeting == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewMeetingNotFoundError(meetingID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meeting)
}
