package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/logging"
)

var (
	errBadRequestBody      = errors.New("無効なリクエスト形式です。")
	errMissingSessionToken = errors.New("認証トークンを指定してください。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(c *gin.Context, status int, payload any) {
	if status == http.StatusNoContent || payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func (r responder) badRequest(c *gin.Context, err error) {
	r.loggerFor(c.Request.Context()).WarnContext(c.Request.Context(), "malformed request", "error", err)
	r.writeJSON(c, http.StatusBadRequest, errorResponse{
		ErrorCode: "BAD_REQUEST",
		Message:   errBadRequestBody.Error(),
	})
}

func (r responder) forbidden(c *gin.Context) {
	r.writeJSON(c, http.StatusForbidden, errorResponse{
		ErrorCode: "FORBIDDEN",
		Message:   errorMessages["forbidden"],
	})
}

// handleServiceError maps application errors to a status code, a stable
// error code and a localized message.
func (r responder) handleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	if err == nil {
		err = errors.New("unknown error")
	}

	status := statusFor(err)
	kind := application.ErrorKind(err)
	logger := r.loggerFor(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "status", status, "error", err, "error_kind", kind)
		r.writeJSON(c, status, errorResponse{ErrorCode: "INTERNAL", Message: localizedStatusMessage(status)})
		return
	}
	logger.InfoContext(ctx, "request rejected", "status", status, "error", err, "error_kind", kind)

	resp := errorResponse{ErrorCode: strings.ToUpper(kind), Message: messageFor(kind, status)}
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		resp.Errors = localizeValidationErrors(vErr)
		if len(resp.Errors) > 1 {
			resp.Message = localizedStatusMessage(http.StatusUnprocessableEntity)
		}
	}
	r.writeJSON(c, status, resp)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Or(ctx, r.logger)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrInvalidCredentials),
		errors.Is(err, application.ErrUnauthenticated),
		errors.Is(err, application.ErrSessionExpired),
		errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, application.ErrRoomNotFound),
		errors.Is(err, application.ErrNotFound),
		errors.Is(err, application.ErrBookingNotFound),
		errors.Is(err, application.ErrInvitationNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrRoomOverlap),
		errors.Is(err, application.ErrPersonalOverlap),
		errors.Is(err, application.ErrCapacityExceeded),
		errors.Is(err, application.ErrCapacityFull),
		errors.Is(err, application.ErrAlreadyExists),
		errors.Is(err, application.ErrUserOwnsBookings):
		return http.StatusConflict
	}
	if application.IsDomainError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

var errorMessages = map[string]string{
	"missing_field":        "必須項目が入力されていません。",
	"invalid_field":        "入力値の形式が正しくありません。",
	"invalid_time":         "開始時刻は正時で指定してください。",
	"out_of_window":        "開始時刻が予約可能な時間帯の外です。",
	"past_booking":         "過去の日時は予約できません。",
	"duration_too_short":   "利用時間が短すぎます。",
	"duration_too_long":    "利用時間が長すぎます。",
	"room_not_found":       "指定された教室は存在しません。",
	"room_overlap":         "指定された時間帯の教室は既に予約されています。",
	"capacity_exceeded":    "招待者数が教室の定員を超えています。",
	"not_found":            "指定されたリソースが見つかりません。",
	"forbidden":            "この操作を実行する権限がありません。",
	"reason_required":      "辞退理由を入力してください。",
	"invitation_not_found": "招待が見つかりません。",
	"booking_not_found":    "予約が見つかりません。",
	"personal_overlap":     "同じ時間帯に参加予定の予約があります。",
	"capacity_full":        "教室の定員に達しています。",
	"invalid_credentials":  "メールアドレスまたはパスワードが正しくありません。",
	"unauthenticated":      "認証が必要です。",
	"session_expired":      "セッションの有効期限が切れました。再度ログインしてください。",
	"session_revoked":      "セッションは無効化されています。再度ログインしてください。",
	"already_exists":       "既に登録されています。",
	"user_owns_bookings":   "このユーザーが作成した予約が残っているため削除できません。",
}

func messageFor(kind string, status int) string {
	if msg, ok := errorMessages[kind]; ok {
		return msg
	}
	return localizedStatusMessage(status)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}
	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, kind := range vErr.FieldErrors {
		translated[field] = messageFor(kind, http.StatusUnprocessableEntity)
	}
	return translated
}

// invalidField builds a validation error for a request field that could not
// be parsed.
func invalidField(field string) error {
	return &application.ValidationError{
		FieldErrors: map[string]string{field: application.ErrorKind(application.ErrInvalidField)},
		Cause:       application.ErrInvalidField,
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
