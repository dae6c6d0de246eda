package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/labpractice/internal/middleware"
	"github.com/hitoshi/labpractice/internal/model"
)

// リクエストボディの上限サイズ。
const maxRequestBodyBytes = 1 << 20

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外のエラーは詳細をログに記録し、500を返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeCSRFInvalid:
		return http.StatusForbidden
	case model.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeUserNotFound, model.ErrCodePracticeNotFound, model.ErrCodeReportNotFound:
		return http.StatusNotFound
	case model.ErrCodePracticeClosed:
		return http.StatusConflict
	case model.ErrCodeInvalidID, model.ErrCodeInvalidRequest, model.ErrCodeInvalidStatus,
		model.ErrCodeInvalidGrade, model.ErrCodeInvalidURL, model.ErrCodeMissingField,
		model.ErrCodeEmptyReport, model.ErrCodeMissingVerifier, model.ErrCodeStateMismatch:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseIDParam はパスパラメータnameを正の整数IDとして読み取る。
func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, model.NewInvalidIDError(raw)
	}
	return id, nil
}

// decodeJSON はリクエストボディをvにデコードする。
// 空のボディ・不正なJSON・上限超過はINVALID_REQUESTを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		slog.Debug("rejected request body", slog.String("error", err.Error()))
		return model.NewInvalidRequestError()
	}
	return nil
}
