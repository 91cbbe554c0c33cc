// Package importer は外部RSS/Atomフィードからの下書き取り込みを提供する。
//
// フィードをSSRF防止付きクライアントで取得し、gofeedでパースして
// 各アイテムを実行者所有のdraft記事として保存する。
// source_guidによる重複排除で同じフィードを何度取り込んでも冪等に動作する。
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
	"github.com/hitoshi/midori/internal/security"
	"github.com/hitoshi/midori/internal/storage"
)

// maxImportItems は1回の取り込みで処理するアイテム数の上限。
const maxImportItems = 50

// leadImageTimeout はアイキャッチ画像取得のタイムアウト。
const leadImageTimeout = 5 * time.Second

// Recorder は取り込み結果のメトリクス記録インターフェース。
type Recorder interface {
	RecordImport(outcome string)
}

// Service はRSS下書き取り込みのサービス層。
type Service struct {
	articleRepo repository.ArticleRepository
	images      storage.ImageStore
	sanitizer   security.ContentSanitizerService
	ssrfGuard   security.SSRFGuardService
	logger      *slog.Logger
	recorder    Recorder // nil可
	timeout     time.Duration
	maxBodySize int64
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	articleRepo repository.ArticleRepository,
	images storage.ImageStore,
	sanitizer security.ContentSanitizerService,
	ssrfGuard security.SSRFGuardService,
	logger *slog.Logger,
	recorder Recorder,
	timeout time.Duration,
	maxBodySize int64,
) *Service {
	return &Service{
		articleRepo: articleRepo,
		images:      images,
		sanitizer:   sanitizer,
		ssrfGuard:   ssrfGuard,
		logger:      logger,
		recorder:    recorder,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Result はフィード取り込みの結果集計。
type Result struct {
	FeedTitle string
	Imported  int
	Skipped   int
}

// ImportFromFeed はフィードURLから記事を取り込み、実行者所有のdraftとして保存する。
// 外部へのHTTPアクセスを伴う管理者専用ツールのため、ジャーナリストには開放しない。
// 既にsource_guidが一致する記事が存在するアイテムはスキップされる。
func (s *Service) ImportFromFeed(ctx context.Context, actor model.Actor, feedURL string) (*Result, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}

	// SSRF検証
	if err := s.ssrfGuard.ValidateURL(feedURL); err != nil {
		s.logger.Warn("取り込み元URLをブロックしました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewImportFetchFailedError("このURLからは取り込めません")
	}

	body, err := s.fetchFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	// gofeedでフィードをパース
	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		s.logger.Warn("フィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		s.record("parse_failed")
		return nil, model.NewImportParseFailedError()
	}

	result := &Result{FeedTitle: parsedFeed.Title}

	items := parsedFeed.Items
	if len(items) > maxImportItems {
		items = items[:maxImportItems]
	}

	for _, item := range items {
		if item == nil {
			continue
		}

		imported, err := s.importItem(ctx, actor, item)
		if err != nil {
			return nil, err
		}
		if imported {
			result.Imported++
			s.record("imported")
		} else {
			result.Skipped++
			s.record("skipped")
		}
	}

	s.logger.Info("フィード取り込みが完了しました",
		slog.String("feed_url", feedURL),
		slog.String("feed_title", parsedFeed.Title),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
	)

	return result, nil
}

// fetchFeed はSSRF防止付きクライアントでフィード本文を取得する。
func (s *Service) fetchFeed(ctx context.Context, feedURL string) ([]byte, error) {
	client := s.ssrfGuard.NewSafeClient(s.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, model.NewImportFetchFailedError(err.Error())
	}
	req.Header.Set("User-Agent", "Midori/1.0 Plant CMS")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		s.logger.Warn("フィードのHTTPリクエストに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		s.record("fetch_failed")
		return nil, model.NewImportFetchFailedError("接続できませんでした")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.record("fetch_failed")
		return nil, model.NewImportFetchFailedError(
			fmt.Sprintf("HTTPステータス %d が返されました", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		s.record("fetch_failed")
		return nil, model.NewImportFetchFailedError("レスポンスの読み取りに失敗しました")
	}
	return body, nil
}

// importItem はフィードアイテム1件をdraft記事に変換して保存する。
// 重複アイテムの場合はfalseを返し、保存は行わない。
func (s *Service) importItem(ctx context.Context, actor model.Actor, item *gofeed.Item) (bool, error) {
	guid := item.GUID
	if guid == "" {
		guid = item.Link
	}
	if guid == "" || item.Title == "" {
		// 識別子もタイトルもないアイテムは取り込み対象外
		return false, nil
	}

	existing, err := s.articleRepo.FindBySourceGUID(ctx, guid)
	if err != nil {
		return false, fmt.Errorf("取り込み済み記事の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}

	title := s.sanitizer.SanitizeText(item.Title)
	excerpt := s.sanitizer.SanitizeText(item.Description)
	body := s.sanitizer.Sanitize(content)

	// アイキャッチ画像: 本文中の先頭imgをベストエフォートで取得する。
	// 失敗しても取り込み自体は続行する（提出時まで画像は必須にならない）。
	imageURL := ""
	if src := ExtractLeadImageURL(content); src != "" {
		imageURL = s.fetchLeadImage(ctx, src)
	}

	now := time.Now()
	article := &model.Article{
		ID:          uuid.New().String(),
		AuthorID:    actor.ID,
		Status:      model.StatusDraft,
		EditRequest: model.EditRequestNone,
		ImageURL:    imageURL,
		// 翻訳前の取り込み直後は両言語に同一の原文を入れておき、
		// 著者が下書き編集で翻訳する
		TitleJa:    title,
		TitleEn:    title,
		ExcerptJa:  excerpt,
		ExcerptEn:  excerpt,
		BodyJa:     body,
		BodyEn:     body,
		SourceGUID: guid,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.articleRepo.Create(ctx, article); err != nil {
		if imageURL != "" {
			_ = s.images.Delete(imageURL)
		}
		return false, fmt.Errorf("取り込み記事の作成に失敗しました: %w", err)
	}
	return true, nil
}

// fetchLeadImage は画像URLをSSRF検証付きでダウンロードしてストアに保存する。
// 取得失敗時は空文字列を返す。
func (s *Service) fetchLeadImage(ctx context.Context, imageSrc string) string {
	if err := s.ssrfGuard.ValidateURL(imageSrc); err != nil {
		s.logger.Warn("アイキャッチ画像のURLをブロックしました",
			slog.String("url", imageSrc),
			slog.String("error", err.Error()),
		)
		return ""
	}

	client := s.ssrfGuard.NewSafeClient(leadImageTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageSrc, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Midori/1.0 Plant CMS")

	resp, err := client.Do(req)
	if err != nil {
		s.logger.Warn("アイキャッチ画像の取得に失敗しました",
			slog.String("url", imageSrc),
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return ""
	}

	url, err := s.images.Store(data)
	if err != nil {
		// 形式不正やサイズ超過はストア側で弾かれる
		s.logger.Warn("アイキャッチ画像の保存に失敗しました",
			slog.String("url", imageSrc),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return url
}

// record はメトリクスレコーダーが設定されている場合のみ記録する。
func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordImport(outcome)
	}
}
