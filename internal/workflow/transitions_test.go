package workflow

import (
	"errors"
	"testing"

	"github.com/hitoshi/midori/internal/model"
)

var (
	author      = model.Actor{ID: "author-1", Role: model.RoleJournalist}
	otherAuthor = model.Actor{ID: "author-2", Role: model.RoleJournalist}
	admin       = model.Actor{ID: "admin-1", Role: model.RoleAdmin}
)

func newArticle(status model.ArticleStatus) *model.Article {
	return &model.Article{
		ID:          "article-1",
		AuthorID:    author.ID,
		Status:      status,
		EditRequest: model.EditRequestNone,
		ImageURL:    "http://localhost:8080/uploads/a.jpg",
	}
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

func TestDecide_AuthorTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     model.ArticleStatus
		tr       Transition
		wantNext model.ArticleStatus
	}{
		{"下書きから提出", model.StatusDraft, TransitionSubmit, model.StatusInReview},
		{"要修正から直接再提出", model.StatusNeedsRevision, TransitionSubmit, model.StatusInReview},
		{"修正完了から再提出", model.StatusRevised, TransitionSubmit, model.StatusInReview},
		{"要修正から修正開始", model.StatusNeedsRevision, TransitionStartRevision, model.StatusRevising},
		{"修正中から修正完了", model.StatusRevising, TransitionFinishRevision, model.StatusRevised},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := newArticle(tt.from)
			decision, err := Decide(article, tt.tr, author)
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if decision.Next != tt.wantNext {
				t.Errorf("Next = %s, want %s", decision.Next, tt.wantNext)
			}
		})
	}
}

func TestDecide_AdminTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     model.ArticleStatus
		tr       Transition
		wantNext model.ArticleStatus
	}{
		{"レビュー待ちから公開", model.StatusInReview, TransitionPublish, model.StatusPublished},
		{"修正完了から公開", model.StatusRevised, TransitionPublish, model.StatusPublished},
		{"レビュー待ちから修正要求", model.StatusInReview, TransitionRequestRevision, model.StatusNeedsRevision},
		{"公開済みから修正要求", model.StatusPublished, TransitionRequestRevision, model.StatusNeedsRevision},
		{"レビュー待ちから却下", model.StatusInReview, TransitionReject, model.StatusRejected},
		{"下書きから却下", model.StatusDraft, TransitionReject, model.StatusRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := newArticle(tt.from)
			decision, err := Decide(article, tt.tr, admin)
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if decision.Next != tt.wantNext {
				t.Errorf("Next = %s, want %s", decision.Next, tt.wantNext)
			}
		})
	}
}

func TestDecide_InvalidStateTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  model.ArticleStatus
		tr    Transition
		actor model.Actor
	}{
		{"公開済みは再提出できない", model.StatusPublished, TransitionSubmit, author},
		{"却下済みは提出できない", model.StatusRejected, TransitionSubmit, author},
		{"下書きから修正開始はできない", model.StatusDraft, TransitionStartRevision, author},
		{"レビュー待ちから修正完了はできない", model.StatusInReview, TransitionFinishRevision, author},
		{"下書きは直接公開できない", model.StatusDraft, TransitionPublish, admin},
		{"修正中は公開できない", model.StatusRevising, TransitionPublish, admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := newArticle(tt.from)
			_, err := Decide(article, tt.tr, tt.actor)
			assertAPIErrorCode(t, err, model.ErrCodeInvalidState)
		})
	}
}

// 役割・所有権チェックは状態チェックより先に評価される。
// 状態も不正なケースでもForbiddenが返ることを検証する。
func TestDecide_RoleCheckPrecedesStateCheck(t *testing.T) {
	tests := []struct {
		name  string
		from  model.ArticleStatus
		tr    Transition
		actor model.Actor
	}{
		{"他人の記事は提出できない", model.StatusPublished, TransitionSubmit, otherAuthor},
		{"ジャーナリストは公開できない", model.StatusDraft, TransitionPublish, author},
		{"ジャーナリストは却下できない", model.StatusDraft, TransitionReject, author},
		{"ジャーナリストは修正要求できない", model.StatusDraft, TransitionRequestRevision, author},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := newArticle(tt.from)
			_, err := Decide(article, tt.tr, tt.actor)
			assertAPIErrorCode(t, err, model.ErrCodeForbidden)
		})
	}
}

func TestDecide_NilArticleReturnsNotFound(t *testing.T) {
	_, err := Decide(nil, TransitionSubmit, author)
	assertAPIErrorCode(t, err, model.ErrCodeArticleNotFound)
}

func TestDecide_UndefinedTransitionReturnsValidationError(t *testing.T) {
	article := newArticle(model.StatusDraft)
	_, err := Decide(article, Transition("teleport"), author)
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

func TestDecide_SubmitRequiresImage(t *testing.T) {
	article := newArticle(model.StatusDraft)
	article.ImageURL = ""

	_, err := Decide(article, TransitionSubmit, author)
	assertAPIErrorCode(t, err, model.ErrCodeInvalidState)
}

func TestDecide_PublishRequiresImage(t *testing.T) {
	article := newArticle(model.StatusInReview)
	article.ImageURL = ""

	_, err := Decide(article, TransitionPublish, admin)
	assertAPIErrorCode(t, err, model.ErrCodeInvalidState)
}

func TestDecide_PublishResetsEditRequestAndClearsFeedback(t *testing.T) {
	article := newArticle(model.StatusInReview)
	article.EditRequest = model.EditRequestPending

	decision, err := Decide(article, TransitionPublish, admin)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !decision.ResetEditRequest {
		t.Error("publish should reset edit request")
	}
	if !decision.ClearsFeedback {
		t.Error("publish should clear feedback")
	}
}

func TestDecide_RequestRevisionSetsFeedback(t *testing.T) {
	article := newArticle(model.StatusInReview)

	decision, err := Decide(article, TransitionRequestRevision, admin)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !decision.SetsFeedback {
		t.Error("request_revision should record feedback")
	}
}

func TestDecide_GuardViolationDoesNotMutateArticle(t *testing.T) {
	article := newArticle(model.StatusPublished)
	article.Feedback = "元のフィードバック"
	before := *article

	if _, err := Decide(article, TransitionSubmit, author); err == nil {
		t.Fatal("expected error")
	}

	if *article != before {
		t.Error("guard violation must not mutate the article")
	}
}

// 公開 → 修正要求 → 再提出 → 再公開のサイクルが成立することを検証する。
func TestDecide_RepublishCycle(t *testing.T) {
	article := newArticle(model.StatusPublished)

	decision, err := Decide(article, TransitionRequestRevision, admin)
	if err != nil {
		t.Fatalf("request_revision error = %v", err)
	}
	article.Status = decision.Next

	decision, err = Decide(article, TransitionSubmit, author)
	if err != nil {
		t.Fatalf("submit error = %v", err)
	}
	article.Status = decision.Next

	decision, err = Decide(article, TransitionPublish, admin)
	if err != nil {
		t.Fatalf("publish error = %v", err)
	}
	if decision.Next != model.StatusPublished {
		t.Errorf("Next = %s, want %s", decision.Next, model.StatusPublished)
	}
}

func TestCanJournalistEdit(t *testing.T) {
	tests := []struct {
		name   string
		status model.ArticleStatus
		actor  model.Actor
		want   bool
	}{
		{"下書きは編集できる", model.StatusDraft, author, true},
		{"要修正は編集できる", model.StatusNeedsRevision, author, true},
		{"修正中は編集できる", model.StatusRevising, author, true},
		{"レビュー待ちは編集できない", model.StatusInReview, author, false},
		{"公開済みは編集できない", model.StatusPublished, author, false},
		{"却下済みは編集できない", model.StatusRejected, author, false},
		{"他人の記事は編集できない", model.StatusDraft, otherAuthor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := newArticle(tt.status)
			if got := CanJournalistEdit(article, tt.actor); got != tt.want {
				t.Errorf("CanJournalistEdit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAdminEdit(t *testing.T) {
	tests := []struct {
		name        string
		status      model.ArticleStatus
		editRequest model.EditRequestState
		authorID    string
		actor       model.Actor
		want        bool
	}{
		{"自著は編集できる", model.StatusDraft, model.EditRequestNone, admin.ID, admin, true},
		{"承認済みリクエストで編集できる", model.StatusDraft, model.EditRequestApproved, author.ID, admin, true},
		{"公開済みは編集できる", model.StatusPublished, model.EditRequestNone, author.ID, admin, true},
		{"経路なしでは編集できない", model.StatusDraft, model.EditRequestNone, author.ID, admin, false},
		{"保留中リクエストでは編集できない", model.StatusDraft, model.EditRequestPending, author.ID, admin, false},
		{"拒否済みリクエストでは編集できない", model.StatusDraft, model.EditRequestDenied, author.ID, admin, false},
		{"管理者以外はfalse", model.StatusPublished, model.EditRequestApproved, author.ID, author, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := newArticle(tt.status)
			article.AuthorID = tt.authorID
			article.EditRequest = tt.editRequest
			if got := CanAdminEdit(article, tt.actor); got != tt.want {
				t.Errorf("CanAdminEdit() = %v, want %v", got, tt.want)
			}
		})
	}
}

// 公開済み経路は編集リクエストの拒否より優先される。
func TestCanAdminEdit_PublishedOverridesDeniedRequest(t *testing.T) {
	article := newArticle(model.StatusPublished)
	article.EditRequest = model.EditRequestDenied

	if !CanAdminEdit(article, admin) {
		t.Error("published articles should be admin-editable even after a denied edit request")
	}
}

func TestCheckDelete(t *testing.T) {
	tests := []struct {
		name     string
		status   model.ArticleStatus
		actor    model.Actor
		wantCode string // 空文字列は成功を期待する
	}{
		{"下書きは削除できる", model.StatusDraft, author, ""},
		{"却下済みは削除できる", model.StatusRejected, author, ""},
		{"要修正は削除できる", model.StatusNeedsRevision, author, ""},
		{"公開済みは削除できる", model.StatusPublished, author, ""},
		{"レビュー待ちは削除できない", model.StatusInReview, author, model.ErrCodeInvalidState},
		{"修正中は削除できない", model.StatusRevising, author, model.ErrCodeInvalidState},
		{"修正完了は削除できない", model.StatusRevised, author, model.ErrCodeInvalidState},
		{"他人の記事は削除できない", model.StatusDraft, otherAuthor, model.ErrCodeForbidden},
		{"管理者でも他人の記事は削除できない", model.StatusDraft, admin, model.ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := newArticle(tt.status)
			err := CheckDelete(article, tt.actor)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("CheckDelete() error = %v, want nil", err)
				}
				return
			}
			assertAPIErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestCheckDelete_NilArticleReturnsNotFound(t *testing.T) {
	err := CheckDelete(nil, author)
	assertAPIErrorCode(t, err, model.ErrCodeArticleNotFound)
}
