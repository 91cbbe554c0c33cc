// Package event はイベントとコンペ応募のドメインロジックを提供する。
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
	"github.com/hitoshi/midori/internal/security"
	"github.com/hitoshi/midori/internal/storage"
)

// EventInput はイベントの作成・更新の入力。
type EventInput struct {
	TitleJa       string
	TitleEn       string
	DescriptionJa string
	DescriptionEn string
	StartsAt      time.Time
	EndsAt        time.Time
	EntryDeadline time.Time
	ImageData     []byte // 任意
}

// EntryRecorder は応募受付のメトリクス記録インターフェース。
type EntryRecorder interface {
	RecordEntrySubmitted()
}

// Service はイベント管理と応募受付のサービス層。
type Service struct {
	eventRepo repository.EventRepository
	entryRepo repository.EntryRepository
	images    storage.ImageStore
	sanitizer security.ContentSanitizerService
	recorder  EntryRecorder    // nil可
	now       func() time.Time // テストで固定するためのクロック
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	eventRepo repository.EventRepository,
	entryRepo repository.EntryRepository,
	images storage.ImageStore,
	sanitizer security.ContentSanitizerService,
	recorder EntryRecorder,
) *Service {
	return &Service{
		eventRepo: eventRepo,
		entryRepo: entryRepo,
		images:    images,
		sanitizer: sanitizer,
		recorder:  recorder,
		now:       time.Now,
	}
}

// ListUpcoming は開催中・開催予定のイベントを返す。
func (s *Service) ListUpcoming(ctx context.Context) ([]*model.Event, error) {
	events, err := s.eventRepo.ListUpcoming(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("開催予定イベントの取得に失敗しました: %w", err)
	}
	return events, nil
}

// ListAll は全イベントを返す。管理者のみ。
func (s *Service) ListAll(ctx context.Context, actor model.Actor) ([]*model.Event, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	events, err := s.eventRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// Get は指定IDのイベントを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(id)
	}
	return event, nil
}

// Create はイベントを作成する。管理者のみ。
func (s *Service) Create(ctx context.Context, actor model.Actor, input EventInput) (*model.Event, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	if err := validateEventInput(&input); err != nil {
		return nil, err
	}

	imageURL := ""
	if len(input.ImageData) > 0 {
		url, err := s.images.Store(input.ImageData)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	now := s.now()
	event := &model.Event{
		ID:            uuid.New().String(),
		TitleJa:       input.TitleJa,
		TitleEn:       input.TitleEn,
		DescriptionJa: input.DescriptionJa,
		DescriptionEn: input.DescriptionEn,
		ImageURL:      imageURL,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		EntryDeadline: input.EntryDeadline,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		if imageURL != "" {
			_ = s.images.Delete(imageURL)
		}
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}
	return event, nil
}

// Update はイベントを更新する。管理者のみ。
func (s *Service) Update(ctx context.Context, actor model.Actor, id string, input EventInput) (*model.Event, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	if err := validateEventInput(&input); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(id)
	}

	oldImageURL := ""
	if len(input.ImageData) > 0 {
		newURL, err := s.images.Store(input.ImageData)
		if err != nil {
			return nil, err
		}
		oldImageURL = event.ImageURL
		event.ImageURL = newURL
	}

	event.TitleJa = input.TitleJa
	event.TitleEn = input.TitleEn
	event.DescriptionJa = input.DescriptionJa
	event.DescriptionEn = input.DescriptionEn
	event.StartsAt = input.StartsAt
	event.EndsAt = input.EndsAt
	event.EntryDeadline = input.EntryDeadline

	if err := s.eventRepo.Update(ctx, event); err != nil {
		if oldImageURL != "" {
			_ = s.images.Delete(event.ImageURL)
		}
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}

	if oldImageURL != "" && oldImageURL != event.ImageURL {
		_ = s.images.Delete(oldImageURL)
	}
	return event, nil
}

// Delete はイベントを削除する。管理者のみ。応募作品はCASCADE削除される。
func (s *Service) Delete(ctx context.Context, actor model.Actor, id string) error {
	if !actor.IsAdmin() {
		return model.NewForbiddenError()
	}

	event, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return model.NewEventNotFoundError(id)
	}

	if err := s.eventRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}

	if event.ImageURL != "" {
		_ = s.images.Delete(event.ImageURL)
	}
	return nil
}

// SubmitEntry はイベントへの応募を受け付ける。
// 締切前かつ未応募のユーザーのみ、画像必須で応募できる。
func (s *Service) SubmitEntry(ctx context.Context, actor model.Actor, eventID string, imageData []byte, caption string) (*model.CompetitionEntry, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	if s.now().After(event.EntryDeadline) {
		return nil, model.NewDeadlinePassedError()
	}

	existing, err := s.entryRepo.FindByEventAndUser(ctx, eventID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("応募作品の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateEntryError()
	}

	if len(imageData) == 0 {
		return nil, model.NewValidationError("応募には画像が必須です")
	}

	imageURL, err := s.images.Store(imageData)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := &model.CompetitionEntry{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    actor.ID,
		ImageURL:  imageURL,
		Caption:   s.sanitizer.SanitizeText(caption),
		Status:    model.EntrySubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.entryRepo.Create(ctx, entry); err != nil {
		_ = s.images.Delete(imageURL)
		return nil, fmt.Errorf("応募作品の作成に失敗しました: %w", err)
	}

	if s.recorder != nil {
		s.recorder.RecordEntrySubmitted()
	}
	return entry, nil
}

// ListApprovedEntries はイベントの承認済み応募作品を返す。公開用。
func (s *Service) ListApprovedEntries(ctx context.Context, eventID string) ([]model.EntryWithUser, error) {
	entries, err := s.entryRepo.ListByEvent(ctx, eventID, model.EntryApproved)
	if err != nil {
		return nil, fmt.Errorf("応募作品一覧の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// ListSubmittedEntries は未審査の応募作品を返す。管理者のみ。
func (s *Service) ListSubmittedEntries(ctx context.Context, actor model.Actor) ([]model.EntryWithUser, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	entries, err := s.entryRepo.ListSubmitted(ctx)
	if err != nil {
		return nil, fmt.Errorf("未審査応募の取得に失敗しました: %w", err)
	}
	return entries, nil
}

// ModerateEntry は応募作品を承認または却下する。管理者のみ。
// 未審査（submitted）の応募のみ審査できる。
func (s *Service) ModerateEntry(ctx context.Context, actor model.Actor, entryID string, approve bool) (*model.CompetitionEntry, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}

	entry, err := s.entryRepo.FindByID(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("応募作品の取得に失敗しました: %w", err)
	}
	if entry == nil {
		return nil, model.NewEntryNotFoundError(entryID)
	}
	if entry.Status != model.EntrySubmitted {
		return nil, model.NewInvalidStateError(
			"状態 " + string(entry.Status) + " の応募は審査できません")
	}

	status := model.EntryRejected
	if approve {
		status = model.EntryApproved
	}

	if err := s.entryRepo.UpdateStatus(ctx, entryID, status); err != nil {
		return nil, fmt.Errorf("応募作品の状態更新に失敗しました: %w", err)
	}

	entry.Status = status
	return entry, nil
}

// WithdrawEntry はユーザー自身の応募を取り下げる。
// 他者の応募は存在有無を漏らさないようNotFoundを返す。
func (s *Service) WithdrawEntry(ctx context.Context, actor model.Actor, entryID string) error {
	entry, err := s.entryRepo.FindByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("応募作品の取得に失敗しました: %w", err)
	}
	if entry == nil || entry.UserID != actor.ID {
		return model.NewEntryNotFoundError(entryID)
	}

	if err := s.entryRepo.Delete(ctx, entryID); err != nil {
		return fmt.Errorf("応募作品の削除に失敗しました: %w", err)
	}

	if entry.ImageURL != "" {
		_ = s.images.Delete(entry.ImageURL)
	}
	return nil
}

// validateEventInput はイベント入力の必須フィールドと日時整合を検証する。
func validateEventInput(input *EventInput) error {
	if input.TitleJa == "" || input.TitleEn == "" {
		return model.NewValidationError("タイトルは日英両方必須です")
	}
	if input.StartsAt.IsZero() || input.EndsAt.IsZero() || input.EntryDeadline.IsZero() {
		return model.NewValidationError("開始・終了・応募締切の日時は必須です")
	}
	if input.EndsAt.Before(input.StartsAt) {
		return model.NewValidationError("終了日時は開始日時より後にしてください")
	}
	if input.EntryDeadline.After(input.EndsAt) {
		return model.NewValidationError("応募締切はイベント終了以前にしてください")
	}
	return nil
}
