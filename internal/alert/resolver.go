package alert

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mediwatch-vitals/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignmentStore 查询患者的有效护理分配
type AssignmentStore interface {
	FindActiveAssignments(ctx context.Context, patientID string) ([]models.CareAssignment, error)
}

// CaseStore 查询患者当前在诊病例
type CaseStore interface {
	FindOpenCase(ctx context.Context, patientID string) (*models.CaseInfo, error)
}

// NotificationStore 写入通知记录
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Pusher forwards a stored notification to the real-time gateway.
// Implementations must be best-effort: a push failure never fails the fan-out.
type Pusher interface {
	Push(ctx context.Context, n models.Notification)
}

// Target 报警接收人
type Target struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"` // "nurse" or "doctor"
}

// Resolver 危急报警接收人解析与通知扇出
// Recipients are the nurse of every active assignment, the assignment's
// doctor when one is set, and the open case's doctor. Targets are not
// deduplicated: a doctor covering both an assignment and the open case gets
// two notification records, matching how the wards actually escalate.
type Resolver struct {
	assignments   AssignmentStore
	cases         CaseStore
	notifications NotificationStore
	pusher        Pusher // may be nil
	logger        *zap.Logger
}

// NewResolver 创建接收人解析器
func NewResolver(
	assignments AssignmentStore,
	cases CaseStore,
	notifications NotificationStore,
	pusher Pusher,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		assignments:   assignments,
		cases:         cases,
		notifications: notifications,
		pusher:        pusher,
		logger:        logger,
	}
}

// BuildAlertMessage 构建共享的报警消息
func BuildAlertMessage(fullName string, conditions []string) string {
	return fmt.Sprintf("CRITICAL: Patient %s - %s", fullName, strings.Join(conditions, "; "))
}

// Resolve 解析报警接收人列表
// The assignment and case lookups fail independently; a failure on one side
// is logged and the other side is still consulted. An empty target list with
// both lookups healthy is a legitimate outcome (unassigned patient), not an
// error.
func (r *Resolver) Resolve(ctx context.Context, patientID string) ([]Target, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient_id is required")
	}

	var targets []Target
	var lookupErr error

	assignments, err := r.assignments.FindActiveAssignments(ctx, patientID)
	if err != nil {
		lookupErr = fmt.Errorf("failed to find active assignments: %w", err)
		r.logger.Error("Assignment lookup failed, continuing with case lookup",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
	} else {
		for _, a := range assignments {
			targets = append(targets, Target{UserID: a.NurseID, Role: "nurse"})
			if a.DoctorID != nil && *a.DoctorID != "" {
				targets = append(targets, Target{UserID: *a.DoctorID, Role: "doctor"})
			}
		}
	}

	openCase, err := r.cases.FindOpenCase(ctx, patientID)
	if err != nil {
		lookupErr = fmt.Errorf("failed to find open case: %w", err)
		r.logger.Error("Open case lookup failed",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
	} else if openCase != nil {
		targets = append(targets, Target{UserID: openCase.DoctorID, Role: "doctor"})
	}

	// Surface the lookup failure only when it may have cost us every target.
	if len(targets) == 0 && lookupErr != nil {
		return nil, lookupErr
	}

	return targets, nil
}

// Dispatch 解析接收人并为每人写入一条通知
// The full target set is resolved first, then writes go out concurrently;
// an individual write failure is logged and skipped, already-written
// notifications stay. Returns the number of notifications created.
func (r *Resolver) Dispatch(
	ctx context.Context,
	patient models.Patient,
	reading models.StoredReading,
	verdict models.SeverityVerdict,
) (int, error) {
	targets, err := r.Resolve(ctx, patient.PatientID)
	if err != nil {
		return 0, err
	}
	if len(targets) == 0 {
		r.logger.Info("No alert recipients for patient, skipping fan-out",
			zap.String("patient_id", patient.PatientID),
			zap.String("reading_id", reading.ReadingID),
		)
		return 0, nil
	}

	message := BuildAlertMessage(patient.FullName, verdict.Conditions)
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for _, target := range targets {
		n := models.Notification{
			NotificationID:   uuid.New().String(),
			UserID:           target.UserID,
			Type:             "critical",
			Message:          message,
			RelatedPatientID: patient.PatientID,
			RelatedReadingID: reading.ReadingID,
			CreatedAt:        now,
		}

		wg.Add(1)
		go func(target Target, n models.Notification) {
			defer wg.Done()

			if err := r.notifications.CreateNotification(ctx, &n); err != nil {
				r.logger.Error("Failed to create notification",
					zap.String("user_id", target.UserID),
					zap.String("role", target.Role),
					zap.String("reading_id", reading.ReadingID),
					zap.Error(err),
				)
				return
			}

			mu.Lock()
			created++
			mu.Unlock()

			if r.pusher != nil {
				r.pusher.Push(ctx, n)
			}
		}(target, n)
	}
	wg.Wait()

	r.logger.Info("Critical alert fan-out complete",
		zap.String("patient_id", patient.PatientID),
		zap.String("reading_id", reading.ReadingID),
		zap.Int("targets", len(targets)),
		zap.Int("created", created),
	)

	return created, nil
}
