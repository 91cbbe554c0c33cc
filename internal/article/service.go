// Package article は記事編集ワークフローのドメインロジックを提供する。
//
// ステータス遷移の可否判定はworkflowパッケージの宣言テーブルに委譲し、
// このサービスは存在チェック・永続化・画像の副作用の順序制御を担う。
package article

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
	"github.com/hitoshi/midori/internal/security"
	"github.com/hitoshi/midori/internal/storage"
	"github.com/hitoshi/midori/internal/workflow"
)

// TransitionRecorder はワークフロー遷移のメトリクス記録インターフェース。
type TransitionRecorder interface {
	RecordTransition(transition string, outcome string)
}

// Service は記事ワークフローのサービス層。
type Service struct {
	articleRepo   repository.ArticleRepository
	categoryRepo  repository.CategoryRepository
	plantTypeRepo repository.PlantTypeRepository
	images        storage.ImageStore
	sanitizer     security.ContentSanitizerService
	recorder      TransitionRecorder // nil可
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	articleRepo repository.ArticleRepository,
	categoryRepo repository.CategoryRepository,
	plantTypeRepo repository.PlantTypeRepository,
	images storage.ImageStore,
	sanitizer security.ContentSanitizerService,
	recorder TransitionRecorder,
) *Service {
	return &Service{
		articleRepo:   articleRepo,
		categoryRepo:  categoryRepo,
		plantTypeRepo: plantTypeRepo,
		images:        images,
		sanitizer:     sanitizer,
		recorder:      recorder,
	}
}

// CreateInput は記事作成の入力。
type CreateInput struct {
	Content    model.ArticleContent
	ImageData  []byte // 任意。指定された場合は保存してImageURLに設定する。
	PublishNow bool   // 管理者のみ。画像必須で即時公開する。
}

// UpdateInput はコンテンツ編集の入力。
type UpdateInput struct {
	Content   model.ArticleContent
	ImageData []byte // 任意。指定された場合は画像を差し替える。
}

// Create は記事を作成する。ジャーナリストまたは管理者のみが実行できる。
// 通常はdraftで作成されるが、管理者がPublishNowを指定し画像を添付した場合は
// 即時公開される。
func (s *Service) Create(ctx context.Context, actor model.Actor, input CreateInput) (*model.Article, error) {
	if actor.Role != model.RoleAdmin && actor.Role != model.RoleJournalist {
		return nil, model.NewForbiddenError()
	}

	if err := s.validateContent(ctx, &input.Content); err != nil {
		return nil, err
	}

	// 即時公開の前提条件は画像を保存する前に検証し、ファイルを残さない
	if input.PublishNow {
		if !actor.IsAdmin() {
			return nil, model.NewForbiddenError()
		}
		if len(input.ImageData) == 0 {
			return nil, model.NewInvalidStateError("アイキャッチ画像が設定されていません")
		}
	}

	imageURL := ""
	if len(input.ImageData) > 0 {
		url, err := s.images.Store(input.ImageData)
		if err != nil {
			return nil, err
		}
		imageURL = url
	}

	now := time.Now()
	article := &model.Article{
		ID:          uuid.New().String(),
		AuthorID:    actor.ID,
		Status:      model.StatusDraft,
		EditRequest: model.EditRequestNone,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.applyContent(article, &input.Content)

	if input.PublishNow {
		article.Status = model.StatusPublished
		article.PublishedAt = &now
	}

	if err := s.articleRepo.Create(ctx, article); err != nil {
		// 保存に失敗した場合、保存済みの画像を残さない
		if imageURL != "" {
			_ = s.images.Delete(imageURL)
		}
		return nil, fmt.Errorf("記事の作成に失敗しました: %w", err)
	}

	s.record("create", "success")
	return article, nil
}

// Get は記事を取得する。公開済みなら誰でも、それ以外は著者と管理者のみ閲覧できる。
// 他者所有の非公開記事は存在しない記事と区別できないようNotFoundを返す。
func (s *Service) Get(ctx context.Context, actor model.Actor, articleID string) (*model.ArticleWithAuthor, error) {
	article, err := s.articleRepo.FindWithAuthor(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	if article.Status != model.StatusPublished {
		if !actor.IsAdmin() && article.AuthorID != actor.ID {
			return nil, model.NewArticleNotFoundError(articleID)
		}
	}
	return article, nil
}

// GetPublished は公開済み記事を取得する。未認証の公開APIから使用される。
func (s *Service) GetPublished(ctx context.Context, articleID string) (*model.ArticleWithAuthor, error) {
	article, err := s.articleRepo.FindWithAuthor(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil || article.Status != model.StatusPublished {
		return nil, model.NewArticleNotFoundError(articleID)
	}
	return article, nil
}

// PublishedList は公開記事一覧の取得結果。
type PublishedList struct {
	Articles []model.ArticleWithAuthor
	Total    int
	Page     int
	PerPage  int
}

// ListPublished は公開済み記事をページ単位で返す。
func (s *Service) ListPublished(ctx context.Context, filter repository.ArticleFilter) (*PublishedList, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = model.DefaultArticlesPerPage
	}

	articles, total, err := s.articleRepo.ListPublished(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("公開記事一覧の取得に失敗しました: %w", err)
	}
	return &PublishedList{
		Articles: articles,
		Total:    total,
		Page:     filter.Page,
		PerPage:  filter.PerPage,
	}, nil
}

// ListMine は実行者が著者である記事の一覧を返す。ジャーナリストダッシュボード用。
func (s *Service) ListMine(ctx context.Context, actor model.Actor) ([]*model.Article, error) {
	articles, err := s.articleRepo.ListByAuthor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("自分の記事一覧の取得に失敗しました: %w", err)
	}
	return articles, nil
}

// CountsMine は実行者のステータス別記事数を返す。
func (s *Service) CountsMine(ctx context.Context, actor model.Actor) (*model.StatusCounts, error) {
	counts, err := s.articleRepo.CountByStatusForAuthor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("ステータス別記事数の取得に失敗しました: %w", err)
	}
	return counts, nil
}

// ReviewQueue はレビュー待ち（in_reviewとrevised）の記事を返す。管理者のみ。
func (s *Service) ReviewQueue(ctx context.Context, actor model.Actor) ([]model.ArticleWithAuthor, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	articles, err := s.articleRepo.ListByStatuses(ctx,
		[]model.ArticleStatus{model.StatusInReview, model.StatusRevised})
	if err != nil {
		return nil, fmt.Errorf("レビューキューの取得に失敗しました: %w", err)
	}
	return articles, nil
}

// PendingEditRequests は編集リクエストがpendingの記事を返す。管理者のみ。
func (s *Service) PendingEditRequests(ctx context.Context, actor model.Actor) ([]model.ArticleWithAuthor, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	articles, err := s.articleRepo.ListPendingEditRequests(ctx)
	if err != nil {
		return nil, fmt.Errorf("編集リクエスト一覧の取得に失敗しました: %w", err)
	}
	return articles, nil
}

// Transition は記事ステータスの遷移を実行する。
// ガードチェーン（存在→権限→状態）を通過した場合のみ永続化し、
// 違反時は記事を一切変更しない。
func (s *Service) Transition(ctx context.Context, actor model.Actor, articleID string, tr workflow.Transition, feedback string) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		s.record(string(tr), "not_found")
		return nil, model.NewArticleNotFoundError(articleID)
	}

	decision, err := workflow.Decide(article, tr, actor)
	if err != nil {
		s.record(string(tr), "denied")
		return nil, err
	}

	article.Status = decision.Next
	if decision.SetsFeedback {
		article.Feedback = s.sanitizer.SanitizeText(feedback)
	}
	if decision.ClearsFeedback {
		article.Feedback = ""
	}
	if decision.ResetEditRequest {
		article.EditRequest = model.EditRequestNone
	}
	if decision.Next == model.StatusPublished {
		now := time.Now()
		article.PublishedAt = &now
	}

	if err := s.update(ctx, article); err != nil {
		s.record(string(tr), "conflict")
		return nil, err
	}

	s.record(string(tr), "success")
	return article, nil
}

// EditRequestTransition は編集リクエスト軸の遷移を実行する。
func (s *Service) EditRequestTransition(ctx context.Context, actor model.Actor, articleID string, tr workflow.EditRequestTransition) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		s.record(string(tr), "not_found")
		return nil, model.NewArticleNotFoundError(articleID)
	}

	next, err := workflow.DecideEditRequest(article, tr, actor)
	if err != nil {
		s.record(string(tr), "denied")
		return nil, err
	}

	article.EditRequest = next

	if err := s.update(ctx, article); err != nil {
		s.record(string(tr), "conflict")
		return nil, err
	}

	s.record(string(tr), "success")
	return article, nil
}

// UpdateContent は記事のコンテンツフィールドを更新する。ステータスは変更しない。
// 編集権限はジャーナリスト経路（著者かつdraft/needs_revision/journalist_revising）と
// 管理者経路（自著・承認済みリクエスト・公開済みのいずれか）で判定する。
// 画像差し替え時は新しい画像の保存と行更新が成功してから旧ファイルを削除する。
func (s *Service) UpdateContent(ctx context.Context, actor model.Actor, articleID string, input UpdateInput) (*model.Article, error) {
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	if actor.IsAdmin() {
		if !workflow.CanAdminEdit(article, actor) {
			return nil, model.NewForbiddenError()
		}
	} else {
		if article.AuthorID != actor.ID {
			return nil, model.NewForbiddenError()
		}
		if !workflow.CanJournalistEdit(article, actor) {
			return nil, model.NewInvalidStateError(
				"ステータス " + string(article.Status) + " の記事は編集できません")
		}
	}

	if err := s.validateContent(ctx, &input.Content); err != nil {
		return nil, err
	}

	// 画像差し替え: 新ファイルを先に保存し、行更新の成功後に旧ファイルを消す。
	// 途中で失敗しても記事が画像なしになることはない。
	oldImageURL := ""
	if len(input.ImageData) > 0 {
		newURL, err := s.images.Store(input.ImageData)
		if err != nil {
			return nil, err
		}
		oldImageURL = article.ImageURL
		article.ImageURL = newURL
	}

	s.applyContent(article, &input.Content)

	if err := s.update(ctx, article); err != nil {
		// 行更新に失敗した場合は新しい画像を残さない
		if oldImageURL != "" {
			_ = s.images.Delete(article.ImageURL)
		}
		return nil, err
	}

	if oldImageURL != "" && oldImageURL != article.ImageURL {
		if err := s.images.Delete(oldImageURL); err != nil {
			// 旧ファイルの削除失敗は致命的ではない。孤立ファイルは日次掃除で回収される。
			_ = err
		}
	}

	s.record("edit", "success")
	return article, nil
}

// Delete は記事を削除する。著者のみが実行でき、削除後に保存済み画像も除去する。
func (s *Service) Delete(ctx context.Context, actor model.Actor, articleID string) error {
	article, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return model.NewArticleNotFoundError(articleID)
	}

	if err := workflow.CheckDelete(article, actor); err != nil {
		s.record("delete", "denied")
		return err
	}

	if err := s.articleRepo.Delete(ctx, articleID); err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}

	if article.ImageURL != "" {
		_ = s.images.Delete(article.ImageURL)
	}

	s.record("delete", "success")
	return nil
}

// update はCAS更新を実行し、バージョン競合をAPIエラーに変換する。
func (s *Service) update(ctx context.Context, article *model.Article) error {
	err := s.articleRepo.Update(ctx, article)
	if errors.Is(err, repository.ErrVersionConflict) {
		return model.NewVersionConflictError()
	}
	if err != nil {
		return fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	return nil
}

// validateContent は必須バイリンガルフィールドとタクソノミー参照を検証する。
func (s *Service) validateContent(ctx context.Context, content *model.ArticleContent) error {
	if content.TitleJa == "" || content.TitleEn == "" {
		return model.NewValidationError("タイトルは日英両方必須です")
	}
	if content.BodyJa == "" || content.BodyEn == "" {
		return model.NewValidationError("本文は日英両方必須です")
	}

	if content.CategoryID != "" {
		category, err := s.categoryRepo.FindByID(ctx, content.CategoryID)
		if err != nil {
			return fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
		}
		if category == nil {
			return model.NewValidationError("存在しないカテゴリが指定されています: " + content.CategoryID)
		}
	}
	if content.PlantTypeID != "" {
		plantType, err := s.plantTypeRepo.FindByID(ctx, content.PlantTypeID)
		if err != nil {
			return fmt.Errorf("植物タイプの取得に失敗しました: %w", err)
		}
		if plantType == nil {
			return model.NewValidationError("存在しない植物タイプが指定されています: " + content.PlantTypeID)
		}
	}
	return nil
}

// applyContent はサニタイズ済みのコンテンツを記事に適用する。
func (s *Service) applyContent(article *model.Article, content *model.ArticleContent) {
	article.TitleJa = s.sanitizer.SanitizeText(content.TitleJa)
	article.TitleEn = s.sanitizer.SanitizeText(content.TitleEn)
	article.ExcerptJa = s.sanitizer.SanitizeText(content.ExcerptJa)
	article.ExcerptEn = s.sanitizer.SanitizeText(content.ExcerptEn)
	article.BodyJa = s.sanitizer.Sanitize(content.BodyJa)
	article.BodyEn = s.sanitizer.Sanitize(content.BodyEn)
	article.CategoryID = content.CategoryID
	article.PlantTypeID = content.PlantTypeID
	article.UpdatedAt = time.Now()
}

// record はメトリクスレコーダーが設定されている場合のみ記録する。
func (s *Service) record(transition, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordTransition(transition, outcome)
	}
}
