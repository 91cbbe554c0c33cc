package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/midori/internal/article"
	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
	"github.com/hitoshi/midori/internal/workflow"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	Create(ctx context.Context, actor model.Actor, input article.CreateInput) (*model.Article, error)
	Get(ctx context.Context, actor model.Actor, articleID string) (*model.ArticleWithAuthor, error)
	GetPublished(ctx context.Context, articleID string) (*model.ArticleWithAuthor, error)
	ListPublished(ctx context.Context, filter repository.ArticleFilter) (*article.PublishedList, error)
	ListMine(ctx context.Context, actor model.Actor) ([]*model.Article, error)
	CountsMine(ctx context.Context, actor model.Actor) (*model.StatusCounts, error)
	ReviewQueue(ctx context.Context, actor model.Actor) ([]model.ArticleWithAuthor, error)
	PendingEditRequests(ctx context.Context, actor model.Actor) ([]model.ArticleWithAuthor, error)
	Transition(ctx context.Context, actor model.Actor, articleID string, tr workflow.Transition, feedback string) (*model.Article, error)
	EditRequestTransition(ctx context.Context, actor model.Actor, articleID string, tr workflow.EditRequestTransition) (*model.Article, error)
	UpdateContent(ctx context.Context, actor model.Actor, articleID string, input article.UpdateInput) (*model.Article, error)
	Delete(ctx context.Context, actor model.Actor, articleID string) error
}

// ArticleHandler は記事のHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface) *ArticleHandler {
	return &ArticleHandler{service: service}
}

// articleResponse は記事のAPIレスポンス。
type articleResponse struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	AuthorName  string     `json:"author_name,omitempty"`
	Status      string     `json:"status"`
	EditRequest string     `json:"edit_request"`
	Feedback    string     `json:"feedback,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	TitleJa     string     `json:"title_ja"`
	TitleEn     string     `json:"title_en"`
	ExcerptJa   string     `json:"excerpt_ja,omitempty"`
	ExcerptEn   string     `json:"excerpt_en,omitempty"`
	BodyJa      string     `json:"body_ja"`
	BodyEn      string     `json:"body_en"`
	CategoryID  string     `json:"category_id,omitempty"`
	PlantTypeID string     `json:"plant_type_id,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		ID:          a.ID,
		AuthorID:    a.AuthorID,
		Status:      string(a.Status),
		EditRequest: string(a.EditRequest),
		Feedback:    a.Feedback,
		ImageURL:    a.ImageURL,
		TitleJa:     a.TitleJa,
		TitleEn:     a.TitleEn,
		ExcerptJa:   a.ExcerptJa,
		ExcerptEn:   a.ExcerptEn,
		BodyJa:      a.BodyJa,
		BodyEn:      a.BodyEn,
		CategoryID:  a.CategoryID,
		PlantTypeID: a.PlantTypeID,
		PublishedAt: a.PublishedAt,
		Version:     a.Version,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toArticleWithAuthorResponse(a *model.ArticleWithAuthor) articleResponse {
	resp := toArticleResponse(&a.Article)
	resp.AuthorName = a.AuthorName
	return resp
}

// articleListResponse は公開記事一覧のページング付きレスポンス。
type articleListResponse struct {
	Articles []articleResponse `json:"articles"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PerPage  int               `json:"per_page"`
}

// articleContentRequest は記事コンテンツのJSONボディ。
type articleContentRequest struct {
	TitleJa     string `json:"title_ja"`
	TitleEn     string `json:"title_en"`
	ExcerptJa   string `json:"excerpt_ja"`
	ExcerptEn   string `json:"excerpt_en"`
	BodyJa      string `json:"body_ja"`
	BodyEn      string `json:"body_en"`
	CategoryID  string `json:"category_id"`
	PlantTypeID string `json:"plant_type_id"`
	PublishNow  bool   `json:"publish_now"`
}

func (req *articleContentRequest) toContent() model.ArticleContent {
	return model.ArticleContent{
		TitleJa:     req.TitleJa,
		TitleEn:     req.TitleEn,
		ExcerptJa:   req.ExcerptJa,
		ExcerptEn:   req.ExcerptEn,
		BodyJa:      req.BodyJa,
		BodyEn:      req.BodyEn,
		CategoryID:  req.CategoryID,
		PlantTypeID: req.PlantTypeID,
	}
}

// parseArticleContent はmultipartまたはJSONから記事コンテンツと画像を読み取る。
// 画像を添付できるようmultipart/form-dataを受け付け、画像なしの編集は
// application/jsonでも送信できる。
func parseArticleContent(r *http.Request) (*articleContentRequest, []byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, nil, model.NewValidationError("マルチパートフォームの解析に失敗しました")
		}
		req := &articleContentRequest{
			TitleJa:     r.FormValue("title_ja"),
			TitleEn:     r.FormValue("title_en"),
			ExcerptJa:   r.FormValue("excerpt_ja"),
			ExcerptEn:   r.FormValue("excerpt_en"),
			BodyJa:      r.FormValue("body_ja"),
			BodyEn:      r.FormValue("body_en"),
			CategoryID:  r.FormValue("category_id"),
			PlantTypeID: r.FormValue("plant_type_id"),
			PublishNow:  r.FormValue("publish_now") == "true",
		}
		imageData, err := readImageFile(r)
		if err != nil {
			return nil, nil, err
		}
		return req, imageData, nil
	}

	var req articleContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, nil, model.NewValidationError("リクエストボディの解析に失敗しました")
	}
	return &req, nil, nil
}

// ListPublished は公開記事一覧を返す。未認証でアクセスできる。
// GET /api/articles?category_id=&plant_type_id=&page=&per_page=
func (h *ArticleHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.ArticleFilter{
		CategoryID:  query.Get("category_id"),
		PlantTypeID: query.Get("plant_type_id"),
	}
	if page, err := strconv.Atoi(query.Get("page")); err == nil {
		filter.Page = page
	}
	if perPage, err := strconv.Atoi(query.Get("per_page")); err == nil {
		filter.PerPage = perPage
	}

	list, err := h.service.ListPublished(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	articles := make([]articleResponse, 0, len(list.Articles))
	for i := range list.Articles {
		articles = append(articles, toArticleWithAuthorResponse(&list.Articles[i]))
	}
	writeJSON(w, http.StatusOK, articleListResponse{
		Articles: articles,
		Total:    list.Total,
		Page:     list.Page,
		PerPage:  list.PerPage,
	})
}

// Get は記事を1件返す。公開済みなら誰でも、それ以外は著者と管理者のみ。
// GET /api/articles/{id}
func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "id")

	// セッションは任意。未認証の場合は公開記事のみ取得できる。
	actor, ok := actorFromRequest(r)
	if !ok {
		found, err := h.service.GetPublished(r.Context(), articleID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toArticleWithAuthorResponse(found))
		return
	}

	found, err := h.service.Get(r.Context(), actor, articleID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleWithAuthorResponse(found))
}

// Create は記事を作成する。ジャーナリストと管理者のみ。
// POST /api/articles
func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	req, imageData, err := parseArticleContent(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	created, err := h.service.Create(r.Context(), actor, article.CreateInput{
		Content:    req.toContent(),
		ImageData:  imageData,
		PublishNow: req.PublishNow,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toArticleResponse(created))
}

// Update は記事のコンテンツを更新する。ステータスは変更しない。
// PUT /api/articles/{id}
func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	articleID := chi.URLParam(r, "id")

	req, imageData, err := parseArticleContent(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.UpdateContent(r.Context(), actor, articleID, article.UpdateInput{
		Content:   req.toContent(),
		ImageData: imageData,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResponse(updated))
}

// Delete は記事を削除する。著者のみ。
// DELETE /api/articles/{id}
func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	articleID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), actor, articleID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// transitionRequest はステータス遷移リクエストのボディ。
type transitionRequest struct {
	Action   string `json:"action"`
	Feedback string `json:"feedback"`
}

// Transition は記事ステータスの遷移を実行する。
// 未定義のアクションはサービス層でバリデーションエラーになる。
// POST /api/articles/{id}/transitions
func (h *ArticleHandler) Transition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	articleID := chi.URLParam(r, "id")

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.Transition(r.Context(), actor, articleID,
		workflow.Transition(req.Action), req.Feedback)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResponse(updated))
}

// editRequestRequest は編集リクエスト遷移のボディ。
type editRequestRequest struct {
	Action string `json:"action"`
}

// EditRequest は編集リクエスト軸の遷移を実行する。
// POST /api/articles/{id}/edit-request
func (h *ArticleHandler) EditRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	articleID := chi.URLParam(r, "id")

	var req editRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.EditRequestTransition(r.Context(), actor, articleID,
		workflow.EditRequestTransition(req.Action))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toArticleResponse(updated))
}

// ListMine は実行者が著者である記事一覧を返す。ダッシュボード用。
// GET /api/articles/mine
func (h *ArticleHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	articles, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		responses = append(responses, toArticleResponse(a))
	}
	writeJSON(w, http.StatusOK, responses)
}

// statusCountsResponse はステータス別記事数のレスポンス。
type statusCountsResponse struct {
	Draft         int `json:"draft"`
	InReview      int `json:"in_review"`
	NeedsRevision int `json:"needs_revision"`
	Revising      int `json:"journalist_revising"`
	Revised       int `json:"revised"`
	Published     int `json:"published"`
	Rejected      int `json:"rejected"`
}

// CountsMine は実行者のステータス別記事数を返す。ダッシュボード用。
// GET /api/articles/mine/counts
func (h *ArticleHandler) CountsMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	counts, err := h.service.CountsMine(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statusCountsResponse{
		Draft:         counts.Draft,
		InReview:      counts.InReview,
		NeedsRevision: counts.NeedsRevision,
		Revising:      counts.Revising,
		Revised:       counts.Revised,
		Published:     counts.Published,
		Rejected:      counts.Rejected,
	})
}

// ReviewQueue はレビュー待ちの記事一覧を返す。管理者のみ。
// GET /api/admin/articles/review-queue
func (h *ArticleHandler) ReviewQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	articles, err := h.service.ReviewQueue(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]articleResponse, 0, len(articles))
	for i := range articles {
		responses = append(responses, toArticleWithAuthorResponse(&articles[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

// PendingEditRequests は編集リクエストが保留中の記事一覧を返す。管理者のみ。
// GET /api/admin/articles/edit-requests
func (h *ArticleHandler) PendingEditRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	articles, err := h.service.PendingEditRequests(r.Context(), actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]articleResponse, 0, len(articles))
	for i := range articles {
		responses = append(responses, toArticleWithAuthorResponse(&articles[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}
