// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, workflow, content, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeArticleNotFound    = "ARTICLE_NOT_FOUND"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidState       = "INVALID_STATE"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeVersionConflict    = "VERSION_CONFLICT"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeCategoryNotFound   = "CATEGORY_NOT_FOUND"
	ErrCodeCategoryInUse      = "CATEGORY_IN_USE"
	ErrCodePlantTypeNotFound  = "PLANT_TYPE_NOT_FOUND"
	ErrCodePlantNotFound      = "PLANT_NOT_FOUND"
	ErrCodeEventNotFound      = "EVENT_NOT_FOUND"
	ErrCodeEntryNotFound      = "ENTRY_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeDeadlinePassed     = "ENTRY_DEADLINE_PASSED"
	ErrCodeDuplicateEntry     = "DUPLICATE_ENTRY"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidImage       = "INVALID_IMAGE"
	ErrCodeImportFetchFailed  = "IMPORT_FETCH_FAILED"
	ErrCodeImportParseFailed  = "IMPORT_PARSE_FAILED"
)

// NewArticleNotFoundError は記事未検出エラーを生成する。
// 存在しない記事と他者所有の記事は意図的に区別しない。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "content",
		Action:   "記事IDを確認してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "必要な役割を持つアカウントでログインしてください。",
	}
}

// NewInvalidStateError は遷移前提条件違反エラーを生成する。
func NewInvalidStateError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidState,
		Message:  fmt.Sprintf("現在の状態ではこの操作を実行できません: %s", reason),
		Category: "workflow",
		Action:   "記事の最新の状態を確認してから再度お試しください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を修正してから再度お試しください。",
	}
}

// NewVersionConflictError は楽観的ロックの競合エラーを生成する。
// 同一記事への同時更新で後から書き込んだ側が受け取る。
func NewVersionConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeVersionConflict,
		Message:  "記事が他の操作によって更新されています。",
		Category: "workflow",
		Action:   "最新の記事を再読み込みしてから、もう一度操作してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError(categoryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", categoryID),
		Category: "content",
		Action:   "カテゴリIDを確認してください。",
	}
}

// NewCategoryInUseError は使用中カテゴリの削除エラーを生成する。
func NewCategoryInUseError() *APIError {
	return &APIError{
		Code:     ErrCodeCategoryInUse,
		Message:  "このカテゴリは記事から参照されているため削除できません。",
		Category: "validation",
		Action:   "参照している記事のカテゴリを変更してから削除してください。",
	}
}

// NewPlantTypeNotFoundError は植物タイプ未検出エラーを生成する。
func NewPlantTypeNotFoundError(plantTypeID string) *APIError {
	return &APIError{
		Code:     ErrCodePlantTypeNotFound,
		Message:  fmt.Sprintf("指定された植物タイプが見つかりません: %s", plantTypeID),
		Category: "content",
		Action:   "植物タイプIDを確認してください。",
	}
}

// NewPlantNotFoundError は植物未検出エラーを生成する。
func NewPlantNotFoundError(plantID string) *APIError {
	return &APIError{
		Code:     ErrCodePlantNotFound,
		Message:  fmt.Sprintf("指定された植物が見つかりません: %s", plantID),
		Category: "content",
		Action:   "植物IDを確認してください。",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "content",
		Action:   "イベントIDを確認してください。",
	}
}

// NewEntryNotFoundError は応募作品未検出エラーを生成する。
func NewEntryNotFoundError(entryID string) *APIError {
	return &APIError{
		Code:     ErrCodeEntryNotFound,
		Message:  fmt.Sprintf("指定された応募作品が見つかりません: %s", entryID),
		Category: "content",
		Action:   "応募IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewDeadlinePassedError は応募締切超過エラーを生成する。
func NewDeadlinePassedError() *APIError {
	return &APIError{
		Code:     ErrCodeDeadlinePassed,
		Message:  "このイベントの応募締切を過ぎています。",
		Category: "validation",
		Action:   "開催中の他のイベントへの応募をご検討ください。",
	}
}

// NewDuplicateEntryError は重複応募エラーを生成する。
func NewDuplicateEntryError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEntry,
		Message:  "このイベントには既に応募済みです。",
		Category: "validation",
		Action:   "応募は1イベントにつき1件までです。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidImageError は画像アップロード検証エラーを生成する。
func NewInvalidImageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImage,
		Message:  fmt.Sprintf("画像を受け付けられません: %s", reason),
		Category: "validation",
		Action:   "JPEG/PNG/WebP形式でサイズ上限以内の画像を指定してください。",
	}
}

// NewImportFetchFailedError はフィード取得失敗エラーを生成する。
func NewImportFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImportFetchFailed,
		Message:  fmt.Sprintf("フィードの取得に失敗しました: %s", reason),
		Category: "content",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewImportParseFailedError はフィード解析失敗エラーを生成する。
func NewImportParseFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeImportParseFailed,
		Message:  "フィードの解析に失敗しました。",
		Category: "content",
		Action:   "有効なRSS/Atomフィードかどうか確認してください。",
	}
}
