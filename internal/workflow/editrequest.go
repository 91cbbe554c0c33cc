package workflow

import (
	"github.com/hitoshi/midori/internal/model"
)

// EditRequestTransition は管理者編集リクエスト軸の名前付き遷移を表す。
type EditRequestTransition string

const (
	// EditRequestTransitionRequest は管理者による編集権限の要求。none → pending。
	EditRequestTransitionRequest EditRequestTransition = "request_edit"
	// EditRequestTransitionCancel は管理者による要求の取り下げ。pending → none。
	EditRequestTransitionCancel EditRequestTransition = "cancel_request"
	// EditRequestTransitionApprove は著者による承認。pending → approved。
	EditRequestTransitionApprove EditRequestTransition = "approve_request"
	// EditRequestTransitionDeny は著者による拒否。pending → denied。
	EditRequestTransitionDeny EditRequestTransition = "deny_request"
	// EditRequestTransitionRevert は管理者による承認の取り消し。approved → none。
	EditRequestTransitionRevert EditRequestTransition = "revert_approval"
)

// editRequestRule は編集リクエスト軸の1遷移のガードと効果を宣言する。
type editRequestRule struct {
	adminOnly bool
	from      model.EditRequestState
	next      model.EditRequestState
}

// editRequestRules は編集リクエスト軸の宣言テーブル。
// 記事ステータス軸とは独立しており、記事がどのステータスでも実行できる。
var editRequestRules = map[EditRequestTransition]editRequestRule{
	EditRequestTransitionRequest: {
		adminOnly: true,
		from:      model.EditRequestNone,
		next:      model.EditRequestPending,
	},
	EditRequestTransitionCancel: {
		adminOnly: true,
		from:      model.EditRequestPending,
		next:      model.EditRequestNone,
	},
	EditRequestTransitionApprove: {
		from: model.EditRequestPending,
		next: model.EditRequestApproved,
	},
	EditRequestTransitionDeny: {
		from: model.EditRequestPending,
		next: model.EditRequestDenied,
	},
	EditRequestTransitionRevert: {
		adminOnly: true,
		from:      model.EditRequestApproved,
		next:      model.EditRequestNone,
	},
}

// DecideEditRequest は編集リクエスト軸の遷移をガードチェーンに通し、
// 許可される場合は遷移後の状態を返す。
// 承認・拒否は記事の著者のみ、要求・取り下げ・承認取り消しは管理者のみが実行できる。
func DecideEditRequest(article *model.Article, tr EditRequestTransition, actor model.Actor) (model.EditRequestState, error) {
	if article == nil {
		return "", model.NewArticleNotFoundError("")
	}

	r, ok := editRequestRules[tr]
	if !ok {
		return "", model.NewValidationError("未定義の遷移です: " + string(tr))
	}

	if r.adminOnly {
		if !actor.IsAdmin() {
			return "", model.NewForbiddenError()
		}
	} else {
		if article.AuthorID != actor.ID {
			return "", model.NewForbiddenError()
		}
	}

	if article.EditRequest != r.from {
		return "", model.NewInvalidStateError(
			"編集リクエストが " + string(article.EditRequest) + " の状態では " + string(tr) + " を実行できません")
	}

	return r.next, nil
}
