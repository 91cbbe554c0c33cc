// Package workflow は記事編集ワークフローの状態遷移エンジンを提供する。
//
// 全ての遷移はテーブル駆動で宣言され、ガードは必ず以下の順で評価される:
//  1. 存在チェック（サービス層がNotFoundを返す）
//  2. 役割・所有権チェック（Forbidden）
//  3. 状態前提条件チェック（InvalidState）
//
// ガード違反時は記事を一切変更しない。判定は純粋関数であり、永続化は呼び出し側の責務。
package workflow

import (
	"github.com/hitoshi/midori/internal/model"
)

// Transition は記事ステータスに対する名前付き遷移を表す。
type Transition string

const (
	// TransitionSubmit は著者によるレビュー提出。
	TransitionSubmit Transition = "submit_for_review"
	// TransitionStartRevision は著者による修正作業の開始。
	TransitionStartRevision Transition = "start_revision"
	// TransitionFinishRevision は著者による修正作業の完了。
	TransitionFinishRevision Transition = "finish_revision"
	// TransitionPublish は管理者による公開決定。
	TransitionPublish Transition = "publish"
	// TransitionRequestRevision は管理者による修正要求。
	TransitionRequestRevision Transition = "request_revision"
	// TransitionReject は管理者による却下。
	TransitionReject Transition = "reject"
)

// rule は1つの遷移のガードと効果を宣言する。
type rule struct {
	// adminOnly がtrueなら管理者のみ、falseなら記事の著者のみが実行できる。
	adminOnly bool
	// from は遷移を許可する現在ステータスの集合。nilは任意のステータスを意味する。
	from []model.ArticleStatus
	// requireImage がtrueならImageURLが空でないことを要求する。
	requireImage bool
	// next は遷移後のステータス。
	next model.ArticleStatus
	// resetEditRequest がtrueなら遷移時にEditRequestをnoneへ強制リセットする。
	resetEditRequest bool
	// setsFeedback がtrueなら遷移時に管理者フィードバックを記録する。
	setsFeedback bool
	// clearsFeedback がtrueなら遷移時にフィードバックを消去する。
	clearsFeedback bool
}

// rules は全遷移の宣言テーブル。ガードはここで一度だけ定義され、
// HTTPハンドラー側で重複実装されることはない。
var rules = map[Transition]rule{
	TransitionSubmit: {
		from:         []model.ArticleStatus{model.StatusDraft, model.StatusNeedsRevision, model.StatusRevised},
		requireImage: true,
		next:         model.StatusInReview,
	},
	TransitionStartRevision: {
		from: []model.ArticleStatus{model.StatusNeedsRevision},
		next: model.StatusRevising,
	},
	TransitionFinishRevision: {
		from: []model.ArticleStatus{model.StatusRevising},
		next: model.StatusRevised,
	},
	TransitionPublish: {
		adminOnly: true,
		// 厳密な直前状態の検証ではなく許可ステータスリストによる緩い制約。
		from:             []model.ArticleStatus{model.StatusInReview, model.StatusRevised},
		requireImage:     true,
		next:             model.StatusPublished,
		resetEditRequest: true,
		clearsFeedback:   true,
	},
	TransitionRequestRevision: {
		adminOnly:    true,
		from:         nil, // 任意のステータスから実行可能
		next:         model.StatusNeedsRevision,
		setsFeedback: true,
	},
	TransitionReject: {
		adminOnly:    true,
		from:         nil,
		next:         model.StatusRejected,
		setsFeedback: true,
	},
}

// Decision は承認された遷移の効果を表す。
type Decision struct {
	Next             model.ArticleStatus
	ResetEditRequest bool
	SetsFeedback     bool
	ClearsFeedback   bool
}

// Decide は遷移リクエストをガードチェーンに通し、許可される場合は効果を返す。
// 記事がnilの場合は呼び出し側の存在チェック漏れであり、NotFoundを返す。
func Decide(article *model.Article, tr Transition, actor model.Actor) (*Decision, error) {
	if article == nil {
		return nil, model.NewArticleNotFoundError("")
	}

	r, ok := rules[tr]
	if !ok {
		return nil, model.NewValidationError("未定義の遷移です: " + string(tr))
	}

	// 役割・所有権チェック。状態チェックより先に評価する。
	if r.adminOnly {
		if !actor.IsAdmin() {
			return nil, model.NewForbiddenError()
		}
	} else {
		if article.AuthorID != actor.ID {
			return nil, model.NewForbiddenError()
		}
	}

	// 状態前提条件チェック
	if r.from != nil && !statusIn(article.Status, r.from) {
		return nil, model.NewInvalidStateError(
			"ステータス " + string(article.Status) + " からは " + string(tr) + " を実行できません")
	}

	// 追加述語: 画像必須
	if r.requireImage && article.ImageURL == "" {
		return nil, model.NewInvalidStateError("アイキャッチ画像が設定されていません")
	}

	return &Decision{
		Next:             r.next,
		ResetEditRequest: r.resetEditRequest,
		SetsFeedback:     r.setsFeedback,
		ClearsFeedback:   r.clearsFeedback,
	}, nil
}

// CanJournalistEdit は著者としてのコンテンツ編集が許可されるかを返す。
// 編集はステータスを変更しない操作であり、下書き・要修正・修正中のみ許可される。
func CanJournalistEdit(article *model.Article, actor model.Actor) bool {
	if article.AuthorID != actor.ID {
		return false
	}
	return statusIn(article.Status, []model.ArticleStatus{
		model.StatusDraft, model.StatusNeedsRevision, model.StatusRevising,
	})
}

// CanAdminEdit は管理者としてのコンテンツ編集が許可されるかを返す。
// 3つの独立した許可経路のいずれかを満たせばよい:
// 自身が著者である、編集リクエストが承認済みである、または記事が公開済みである。
// 公開済み経路は編集リクエストがdeniedでも優先される。
func CanAdminEdit(article *model.Article, actor model.Actor) bool {
	if !actor.IsAdmin() {
		return false
	}
	if article.AuthorID == actor.ID {
		return true
	}
	if article.EditRequest == model.EditRequestApproved {
		return true
	}
	return article.Status == model.StatusPublished
}

// deletableStatuses は著者による削除が許可されるステータスの集合。
var deletableStatuses = []model.ArticleStatus{
	model.StatusDraft, model.StatusRejected, model.StatusNeedsRevision, model.StatusPublished,
}

// CheckDelete は削除リクエストをガードチェーンに通す。
// 削除できるのは著者本人のみで、レビュー中・修正サイクル途中の記事は削除できない。
func CheckDelete(article *model.Article, actor model.Actor) error {
	if article == nil {
		return model.NewArticleNotFoundError("")
	}
	if article.AuthorID != actor.ID {
		return model.NewForbiddenError()
	}
	if !statusIn(article.Status, deletableStatuses) {
		return model.NewInvalidStateError(
			"ステータス " + string(article.Status) + " の記事は削除できません")
	}
	return nil
}

// statusIn はステータスが集合に含まれるかを返す。
func statusIn(s model.ArticleStatus, set []model.ArticleStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
