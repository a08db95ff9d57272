package repository

import (
	"context"
	"database/sql"
	"fmt"

	"mediwatch-vitals/internal/models"

	"go.uber.org/zap"
)

// NotificationsRepository 通知仓库
type NotificationsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationsRepository 创建通知仓库
func NewNotificationsRepository(db *sql.DB, logger *zap.Logger) *NotificationsRepository {
	return &NotificationsRepository{
		db:     db,
		logger: logger,
	}
}

// NotificationFilters 通知查询过滤条件
type NotificationFilters struct {
	Type       *string
	UnreadOnly bool
	PatientID  *string
}

// CreateNotification 写入一条通知
func (r *NotificationsRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return fmt.Errorf("notification is required")
	}
	if n.NotificationID == "" {
		return fmt.Errorf("notification_id is required")
	}
	if n.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if n.Message == "" {
		return fmt.Errorf("message is required")
	}

	query := `
		INSERT INTO notifications (
			notification_id, user_id, type, message,
			related_patient_id, related_reading_id, is_read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.NotificationID,
		n.UserID,
		n.Type,
		n.Message,
		n.RelatedPatientID,
		n.RelatedReadingID,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListNotifications 查询某个用户的通知（新到旧），返回列表和总数
func (r *NotificationsRepository) ListNotifications(
	ctx context.Context,
	userID string,
	filters NotificationFilters,
	page, size int,
) ([]*models.Notification, int, error) {
	if userID == "" {
		return nil, 0, fmt.Errorf("user_id is required")
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	where := "WHERE user_id = $1"
	args := []interface{}{userID}
	argIdx := 2

	if filters.Type != nil {
		where += fmt.Sprintf(" AND type = $%d", argIdx)
		args = append(args, *filters.Type)
		argIdx++
	}
	if filters.PatientID != nil {
		where += fmt.Sprintf(" AND related_patient_id = $%d", argIdx)
		args = append(args, *filters.PatientID)
		argIdx++
	}
	if filters.UnreadOnly {
		where += " AND is_read = false"
	}

	countQuery := "SELECT COUNT(*) FROM notifications " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT
			notification_id, user_id, type, message,
			related_patient_id, related_reading_id, is_read, created_at
		FROM notifications
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, argIdx, argIdx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.NotificationID,
			&n.UserID,
			&n.Type,
			&n.Message,
			&n.RelatedPatientID,
			&n.RelatedReadingID,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkRead 将通知标记为已读
func (r *NotificationsRepository) MarkRead(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return fmt.Errorf("notification_id is required")
	}

	query := `
		UPDATE notifications
		SET is_read = true
		WHERE notification_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("notification not found: %s", notificationID)
	}

	return nil
}
