// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, practice, report, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeMissingVerifier     = "MISSING_VERIFIER"
	ErrCodeStateMismatch       = "STATE_MISMATCH"
	ErrCodeAuthenticationError = "AUTHENTICATION_ERROR"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodePracticeNotFound    = "PRACTICE_NOT_FOUND"
	ErrCodeReportNotFound      = "REPORT_NOT_FOUND"
	ErrCodeInvalidID           = "INVALID_ID"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeInvalidGrade        = "INVALID_GRADE"
	ErrCodeInvalidURL          = "INVALID_URL"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeEmptyReport         = "EMPTY_REPORT"
	ErrCodePracticeClosed      = "PRACTICE_CLOSED"
	ErrCodeCSRFInvalid         = "CSRF_INVALID"
)

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "No autenticado",
		Category: "auth",
		Action:   "Inicie sesión nuevamente.",
	}
}

// NewForbiddenError はロール不一致による認可エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "No autorizado",
		Category: "auth",
		Action:   "Su rol no tiene acceso a este recurso.",
	}
}

// NewServiceUnavailableError はIdP未準備エラーを生成する。
func NewServiceUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeServiceUnavailable,
		Message:  "Servicio de autenticación no disponible",
		Category: "auth",
		Action:   "Espere unos segundos y vuelva a intentarlo.",
	}
}

// NewMissingVerifierError はPKCE verifierがセッションにない場合のエラーを生成する。
func NewMissingVerifierError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingVerifier,
		Message:  "Falta codeVerifier",
		Category: "auth",
		Action:   "Inicie el proceso de inicio de sesión desde el principio.",
	}
}

// NewStateMismatchError はコールバックのstateがセッションと一致しない場合のエラーを生成する。
func NewStateMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeStateMismatch,
		Message:  "El parámetro state no coincide con la sesión",
		Category: "auth",
		Action:   "Inicie el proceso de inicio de sesión desde el principio.",
	}
}

// NewAuthenticationError はトークン交換やユーザー保存に失敗した場合のエラーを生成する。
// 失敗した段階はログにのみ記録し、レスポンスには含めない。
func NewAuthenticationError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationError,
		Message:  "Error en autenticación",
		Category: "auth",
		Action:   "Vuelva a intentarlo más tarde.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "Usuario no encontrado",
		Category: "auth",
		Action:   "Inicie sesión nuevamente.",
	}
}

// NewPracticeNotFoundError は実習が見つからない場合のエラーを生成する。
func NewPracticeNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodePracticeNotFound,
		Message:  fmt.Sprintf("Práctica no encontrada: %d", id),
		Category: "practice",
		Action:   "Verifique el identificador de la práctica.",
	}
}

// NewReportNotFoundError はレポートが見つからない場合のエラーを生成する。
func NewReportNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeReportNotFound,
		Message:  fmt.Sprintf("Informe no encontrado: %d", id),
		Category: "report",
		Action:   "Verifique el identificador del informe.",
	}
}

// NewInvalidIDError はパスパラメータのIDが不正な場合のエラーを生成する。
func NewInvalidIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("Identificador inválido: %s", raw),
		Category: "validation",
		Action:   "Use un identificador numérico.",
	}
}

// NewInvalidRequestError はリクエストボディが不正な場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "Cuerpo de la solicitud inválido",
		Category: "validation",
		Action:   "Envíe un JSON válido.",
	}
}

// NewMissingFieldError は必須フィールドが欠けている場合のエラーを生成する。
func NewMissingFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingField,
		Message:  fmt.Sprintf("%s es requerido", field),
		Category: "validation",
		Action:   fmt.Sprintf("Incluya el campo %s.", field),
	}
}

// NewInvalidStatusError は未知の状態値が指定された場合のエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("Estado inválido: %s", status),
		Category: "validation",
		Action:   "Use borrador, publicada o cerrada.",
	}
}

// NewInvalidGradeError は評点が範囲外の場合のエラーを生成する。
func NewInvalidGradeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidGrade,
		Message:  "Nota fuera de rango",
		Category: "validation",
		Action:   "La nota debe estar entre 0 y 999.99.",
	}
}

// NewInvalidURLError は添付URLが不正な場合のエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("URL inválida: %s", reason),
		Category: "validation",
		Action:   "Use una URL http(s) o una ruta absoluta que comience con /.",
	}
}

// NewEmptyReportError はファイルも本文もないレポートのエラーを生成する。
func NewEmptyReportError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyReport,
		Message:  "Debe enviar archivo_url o contenido_texto",
		Category: "validation",
		Action:   "Adjunte un archivo o escriba el contenido del informe.",
	}
}

// NewPracticeClosedError は締め切り済みの実習へ提出しようとした場合のエラーを生成する。
func NewPracticeClosedError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodePracticeClosed,
		Message:  fmt.Sprintf("La práctica %d está cerrada", id),
		Category: "practice",
		Action:   "Consulte con su docente.",
	}
}

// NewCSRFInvalidError はCSRFトークンの検証に失敗した場合のエラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFInvalid,
		Message:  "Token CSRF inválido o ausente",
		Category: "auth",
		Action:   "Recargue la página e intente de nuevo.",
	}
}
