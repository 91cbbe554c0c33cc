package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/midori/internal/event"
	"github.com/hitoshi/midori/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	ListUpcoming(ctx context.Context) ([]*model.Event, error)
	ListAll(ctx context.Context, actor model.Actor) ([]*model.Event, error)
	Get(ctx context.Context, id string) (*model.Event, error)
	Create(ctx context.Context, actor model.Actor, input event.EventInput) (*model.Event, error)
	Update(ctx context.Context, actor model.Actor, id string, input event.EventInput) (*model.Event, error)
	Delete(ctx context.Context, actor model.Actor, id string) error
	SubmitEntry(ctx context.Context, actor model.Actor, eventID string, imageData []byte, caption string) (*model.CompetitionEntry, error)
	ListApprovedEntries(ctx context.Context, eventID string) ([]model.EntryWithUser, error)
	ListSubmittedEntries(ctx context.Context, actor model.Actor) ([]model.EntryWithUser, error)
	ModerateEntry(ctx context.Context, actor model.Actor, entryID string, approve bool) (*model.CompetitionEntry, error)
	WithdrawEntry(ctx context.Context, actor model.Actor, entryID string) error
}

// EventHandler はイベントとコンペ応募のHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// eventResponse はイベントのAPIレスポンス。
type eventResponse struct {
	ID            string    `json:"id"`
	TitleJa       string    `json:"title_ja"`
	TitleEn       string    `json:"title_en"`
	DescriptionJa string    `json:"description_ja,omitempty"`
	DescriptionEn string    `json:"description_en,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	EntryDeadline time.Time `json:"entry_deadline"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toEventResponse(e *model.Event) eventResponse {
	return eventResponse{
		ID:            e.ID,
		TitleJa:       e.TitleJa,
		TitleEn:       e.TitleEn,
		DescriptionJa: e.DescriptionJa,
		DescriptionEn: e.DescriptionEn,
		ImageURL:      e.ImageURL,
		StartsAt:      e.StartsAt,
		EndsAt:        e.EndsAt,
		EntryDeadline: e.EntryDeadline,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// entryResponse はコンペ応募作品のAPIレスポンス。
type entryResponse struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	ImageURL  string    `json:"image_url"`
	Caption   string    `json:"caption,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toEntryResponse(e *model.CompetitionEntry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		EventID:   e.EventID,
		UserID:    e.UserID,
		ImageURL:  e.ImageURL,
		Caption:   e.Caption,
		Status:    string(e.Status),
		CreatedAt: e.CreatedAt,
	}
}

func toEntryWithUserResponse(e *model.EntryWithUser) entryResponse {
	resp := toEntryResponse(&e.CompetitionEntry)
	resp.UserName = e.UserName
	return resp
}

// parseEventInput はmultipartフォームからイベントの入力を読み取る。
// 日時フィールドはRFC 3339形式で受け付ける。
func parseEventInput(r *http.Request) (event.EventInput, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return event.EventInput{}, model.NewValidationError("マルチパートフォームの解析に失敗しました")
	}

	input := event.EventInput{
		TitleJa:       r.FormValue("title_ja"),
		TitleEn:       r.FormValue("title_en"),
		DescriptionJa: r.FormValue("description_ja"),
		DescriptionEn: r.FormValue("description_en"),
	}

	for _, field := range []struct {
		name string
		dst  *time.Time
	}{
		{"starts_at", &input.StartsAt},
		{"ends_at", &input.EndsAt},
		{"entry_deadline", &input.EntryDeadline},
	} {
		value := r.FormValue(field.name)
		if value == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return event.EventInput{}, model.NewValidationError(
				field.name + " はRFC 3339形式で指定してください")
		}
		*field.dst = parsed
	}

	imageData, err := readImageFile(r)
	if err != nil {
		return event.EventInput{}, err
	}
	input.ImageData = imageData
	return input, nil
}

// ListUpcoming は開催予定・開催中のイベント一覧を返す。未認証でアクセスできる。
// GET /api/events
func (h *EventHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListUpcoming(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]eventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, responses)
}

// ListAll は過去分を含む全イベント一覧を返す。管理者のみ。
// GET /api/admin/events
func (h *EventHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	events, err := h.service.ListAll(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]eventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, toEventResponse(e))
	}
	writeJSON(w, http.StatusOK, responses)
}

// Get はイベントを1件返す。未認証でアクセスできる。
// GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(found))
}

// Create はイベントを作成する。管理者のみ。
// POST /api/admin/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	input, err := parseEventInput(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventResponse(created))
}

// Update はイベントを更新する。管理者のみ。
// PUT /api/admin/events/{id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	id := chi.URLParam(r, "id")

	input, err := parseEventInput(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.Update(r.Context(), actor, id, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(updated))
}

// Delete はイベントを削除する。管理者のみ。応募作品もカスケード削除される。
// DELETE /api/admin/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitEntry はコンペ応募を受け付ける。画像必須、1ユーザー1件まで。
// POST /api/events/{id}/entries
func (h *EventHandler) SubmitEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	eventID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("マルチパートフォームの解析に失敗しました"))
		return
	}
	imageData, err := readImageFile(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	entry, err := h.service.SubmitEntry(r.Context(), actor, eventID, imageData, r.FormValue("caption"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEntryResponse(entry))
}

// ListApprovedEntries は承認済みの応募作品一覧を返す。未認証でアクセスできる。
// GET /api/events/{id}/entries
func (h *EventHandler) ListApprovedEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListApprovedEntries(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]entryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, toEntryWithUserResponse(&entries[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

// ListSubmittedEntries は未審査の応募作品一覧を返す。管理者のみ。
// GET /api/admin/entries
func (h *EventHandler) ListSubmittedEntries(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	entries, err := h.service.ListSubmittedEntries(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]entryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, toEntryWithUserResponse(&entries[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

// moderateEntryRequest は応募審査リクエストのボディ。
type moderateEntryRequest struct {
	Approve bool `json:"approve"`
}

// ModerateEntry は応募作品を承認または却下する。管理者のみ。
// POST /api/admin/entries/{id}/moderate
func (h *EventHandler) ModerateEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	entryID := chi.URLParam(r, "id")

	var req moderateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	entry, err := h.service.ModerateEntry(r.Context(), actor, entryID, req.Approve)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryResponse(entry))
}

// WithdrawEntry は自分の応募を取り下げる。応募者本人のみ。
// DELETE /api/entries/{id}
func (h *EventHandler) WithdrawEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.WithdrawEntry(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
