package httpapi

import (
	"context"
	"net/http"
	"strings"

	"mediwatch-vitals/internal/models"
	"mediwatch-vitals/internal/repository"

	"go.uber.org/zap"
)

// NotificationStore 通知查询与状态更新接口
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string, filters repository.NotificationFilters, page, size int) ([]*models.Notification, int, error)
	MarkRead(ctx context.Context, notificationID string) error
}

// NotificationsHandler 通知收件箱
type NotificationsHandler struct {
	notifications NotificationStore
	logger        *zap.Logger
}

// NewNotificationsHandler 创建通知 Handler
func NewNotificationsHandler(notifications NotificationStore, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// ListNotificationsModel 通知列表响应
type ListNotificationsModel struct {
	Items      []*models.Notification `json:"items"`
	Pagination Pagination             `json:"pagination"`
}

// ListNotifications 查询某个用户的通知
// GET /vitals/api/v1/notifications?user_id=&unread=&page=&size=
func (h *NotificationsHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("user_id is required"))
		return
	}

	page := parseInt(r.URL.Query().Get("page"), 1)
	size := parseInt(r.URL.Query().Get("size"), 20)

	filters := repository.NotificationFilters{
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filters.Type = &t
	}

	notifications, total, err := h.notifications.ListNotifications(ctx, userID, filters, page, size)
	if err != nil {
		h.logger.Error("Failed to list notifications",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list notifications"))
		return
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}

	writeJSON(w, http.StatusOK, Ok(ListNotificationsModel{
		Items:      notifications,
		Pagination: Pagination{Page: page, Size: size, Count: total},
	}))
}

// MarkRead 将通知标记为已读
// POST /vitals/api/v1/notifications/{id}/read
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request, notificationID string) {
	ctx := r.Context()

	if err := h.notifications.MarkRead(ctx, notificationID); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeJSON(w, http.StatusNotFound, Fail(err.Error()))
			return
		}
		h.logger.Error("Failed to mark notification read",
			zap.String("notification_id", notificationID),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("failed to mark notification read"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(notificationID))
}
