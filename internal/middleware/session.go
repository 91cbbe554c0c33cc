// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/midori/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// actorContextKey はリクエストコンテキストに実行者を格納するためのキー。
var actorContextKey = contextKey("actor")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// UserFinder はユーザーの検索に必要なインターフェース。
// 役割はセッションではなくユーザーレコードから毎回解決する。
// 役割変更が次のリクエストから即座に反映される。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 実行者（ユーザーID + 役割）をリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401 Unauthorizedを返す。
func NewSessionMiddleware(sessions SessionFinder, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := resolveActor(r, sessions, users)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalSessionMiddleware はセッションがあれば実行者を注入し、
// なければ匿名のままリクエストを通すミドルウェアを返す。
// 公開記事の閲覧など、認証の有無で応答が変わるエンドポイントで使用する。
func NewOptionalSessionMiddleware(sessions SessionFinder, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor, ok := resolveActor(r, sessions, users); ok {
				r = r.WithContext(ContextWithActor(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveActor はCookieのセッションIDから実行者を解決する。
func resolveActor(r *http.Request, sessions SessionFinder, users UserFinder) (model.Actor, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return model.Actor{}, false
	}

	session, err := sessions.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("セッションの検索に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.Actor{}, false
	}
	if session == nil {
		// 期限切れまたは無効なセッション
		return model.Actor{}, false
	}

	user, err := users.FindByID(r.Context(), session.UserID)
	if err != nil {
		slog.Error("セッションユーザーの検索に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.Actor{}, false
	}
	if user == nil {
		return model.Actor{}, false
	}

	return model.Actor{ID: user.ID, Role: user.Role}, true
}

// ActorFromContext はリクエストコンテキストから実行者を取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ActorFromContext(ctx context.Context) (model.Actor, error) {
	actor, ok := ctx.Value(actorContextKey).(model.Actor)
	if !ok || actor.ID == "" {
		return model.Actor{}, fmt.Errorf("actor not found in context")
	}
	return actor, nil
}

// ContextWithActor はコンテキストに実行者を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}
