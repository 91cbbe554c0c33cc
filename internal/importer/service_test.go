package importer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/midori/internal/model"
	"github.com/hitoshi/midori/internal/repository"
)

// importArticleRepo は取り込みで使用するメソッドのみを実装した最小モック。
type importArticleRepo struct {
	repository.ArticleRepository
	findBySourceGUIDFunc func(ctx context.Context, guid string) (*model.Article, error)
	created              []*model.Article
	createErr            error
}

func (m *importArticleRepo) FindBySourceGUID(ctx context.Context, guid string) (*model.Article, error) {
	if m.findBySourceGUIDFunc != nil {
		return m.findBySourceGUIDFunc(ctx, guid)
	}
	return nil, nil
}

func (m *importArticleRepo) Create(ctx context.Context, article *model.Article) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, article)
	return nil
}

type mockImageStore struct {
	deletedURLs []string
}

func (m *mockImageStore) Store(data []byte) (string, error) { return "/uploads/lead.jpg", nil }
func (m *mockImageStore) Delete(url string) error {
	m.deletedURLs = append(m.deletedURLs, url)
	return nil
}
func (m *mockImageStore) ListURLs() ([]string, error) { return nil, nil }

// passthroughGuard は検証を素通しし、通常のHTTPクライアントを返す。
// httptestサーバーはループバックで動くため、実実装は使えない。
type passthroughGuard struct {
	validateErr error
}

func (g *passthroughGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (g *passthroughGuard) ValidateURL(rawURL string) error { return g.validateErr }

type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(raw string) string     { return raw }
func (passthroughSanitizer) SanitizeText(raw string) string { return raw }

type countingRecorder struct {
	outcomes map[string]int
}

func (r *countingRecorder) RecordImport(outcome string) {
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

var (
	admin      = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
	journalist = model.Actor{ID: "writer-1", Role: model.RoleJournalist}
	reader     = model.Actor{ID: "user-1", Role: model.RoleUser}
)

func newTestService(repo *importArticleRepo, guard *passthroughGuard, recorder Recorder) *Service {
	return NewService(
		repo,
		&mockImageStore{},
		passthroughSanitizer{},
		guard,
		slog.New(slog.DiscardHandler),
		recorder,
		5*time.Second,
		1<<20,
	)
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", wantCode)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %s, want %s", apiErr.Code, wantCode)
	}
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Garden Notes</title>
    <item>
      <title>Repotting a ficus</title>
      <guid>guid-1</guid>
      <description>Step by step</description>
    </item>
    <item>
      <title>Watering succulents</title>
      <guid>guid-2</guid>
      <description>Less is more</description>
    </item>
    <item>
      <description>No title, no guid is fine in RSS but not for us</description>
    </item>
  </channel>
</rss>`

func serveFeed(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// 取り込みは外部アクセスを伴う管理者専用ツール。管理者以外は
// URL検証やフィード取得に進む前に拒否される。
func TestImportFromFeed_AdminOnly(t *testing.T) {
	guard := &passthroughGuard{validateErr: errors.New("should not be reached")}
	service := newTestService(&importArticleRepo{}, guard, nil)

	for _, actor := range []model.Actor{reader, journalist} {
		_, err := service.ImportFromFeed(context.Background(), actor, "https://example.com/feed")
		assertAPIErrorCode(t, err, model.ErrCodeForbidden)
	}
}

func TestImportFromFeed_BlockedURLFails(t *testing.T) {
	guard := &passthroughGuard{validateErr: errors.New("blocked IP address")}
	service := newTestService(&importArticleRepo{}, guard, nil)

	_, err := service.ImportFromFeed(context.Background(), admin, "http://169.254.169.254/feed")
	assertAPIErrorCode(t, err, model.ErrCodeImportFetchFailed)
}

func TestImportFromFeed_CreatesDraftsForActor(t *testing.T) {
	server := serveFeed(t, sampleRSS, http.StatusOK)
	repo := &importArticleRepo{}
	recorder := &countingRecorder{}
	service := newTestService(repo, &passthroughGuard{}, recorder)

	result, err := service.ImportFromFeed(context.Background(), admin, server.URL)
	if err != nil {
		t.Fatalf("ImportFromFeed() error = %v", err)
	}
	if result.FeedTitle != "Garden Notes" {
		t.Errorf("FeedTitle = %q", result.FeedTitle)
	}
	if result.Imported != 2 || result.Skipped != 1 {
		t.Errorf("Imported = %d, Skipped = %d, want 2/1", result.Imported, result.Skipped)
	}
	if len(repo.created) != 2 {
		t.Fatalf("created %d articles, want 2", len(repo.created))
	}
	for _, article := range repo.created {
		if article.AuthorID != admin.ID {
			t.Errorf("AuthorID = %s, want %s", article.AuthorID, admin.ID)
		}
		if article.Status != model.StatusDraft {
			t.Errorf("Status = %s, want draft", article.Status)
		}
		if article.SourceGUID == "" {
			t.Error("SourceGUID should be set for imported articles")
		}
		if article.TitleJa != article.TitleEn {
			t.Error("imported title should be mirrored to both languages")
		}
	}
	if recorder.outcomes["imported"] != 2 || recorder.outcomes["skipped"] != 1 {
		t.Errorf("recorded outcomes = %v", recorder.outcomes)
	}
}

// 同じフィードの再取り込みはsource_guidで重複排除される。
func TestImportFromFeed_DeduplicatesBySourceGUID(t *testing.T) {
	server := serveFeed(t, sampleRSS, http.StatusOK)
	repo := &importArticleRepo{
		findBySourceGUIDFunc: func(ctx context.Context, guid string) (*model.Article, error) {
			if guid == "guid-1" {
				return &model.Article{ID: "existing"}, nil
			}
			return nil, nil
		},
	}
	service := newTestService(repo, &passthroughGuard{}, nil)

	result, err := service.ImportFromFeed(context.Background(), admin, server.URL)
	if err != nil {
		t.Fatalf("ImportFromFeed() error = %v", err)
	}
	if result.Imported != 1 || result.Skipped != 2 {
		t.Errorf("Imported = %d, Skipped = %d, want 1/2", result.Imported, result.Skipped)
	}
}

func TestImportFromFeed_ParseFailure(t *testing.T) {
	server := serveFeed(t, "this is not a feed", http.StatusOK)
	recorder := &countingRecorder{}
	service := newTestService(&importArticleRepo{}, &passthroughGuard{}, recorder)

	_, err := service.ImportFromFeed(context.Background(), admin, server.URL)
	assertAPIErrorCode(t, err, model.ErrCodeImportParseFailed)
	if recorder.outcomes["parse_failed"] != 1 {
		t.Errorf("recorded outcomes = %v", recorder.outcomes)
	}
}

func TestImportFromFeed_HTTPErrorStatus(t *testing.T) {
	server := serveFeed(t, "", http.StatusInternalServerError)
	service := newTestService(&importArticleRepo{}, &passthroughGuard{}, nil)

	_, err := service.ImportFromFeed(context.Background(), admin, server.URL)
	assertAPIErrorCode(t, err, model.ErrCodeImportFetchFailed)
}
