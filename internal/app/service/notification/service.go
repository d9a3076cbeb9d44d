package notification

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/app/service/template"
	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/internal/platform/channels"
	"github.com/santrihub/sppbilling/pkg/apperr"
	cfgpkg "github.com/santrihub/sppbilling/pkg/config"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/metrics"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

// Service fans rendered messages out across channels and tracks per-channel
// delivery state.
type Service struct {
	cfg      *cfgpkg.Config
	db       *gorm.DB
	log      *zap.SugaredLogger
	tmpl     *template.Service
	registry *channels.Registry
}

func NewService(cfg *cfgpkg.Config, db *gorm.DB, log *zap.SugaredLogger, tmpl *template.Service, registry *channels.Registry) *Service {
	return &Service{cfg: cfg, db: db, log: log, tmpl: tmpl, registry: registry}
}

// SendRequest is the direct, non-templated send path.
type SendRequest struct {
	RecipientID string                     `json:"recipient_id"`
	Title       string                     `json:"title"`
	Message     string                     `json:"message"`
	Category    types.NotificationCategory `json:"category"`
	Priority    types.NotificationPriority `json:"priority"`
	Channels    []types.Channel            `json:"channels"`
	ScheduledAt *time.Time                 `json:"scheduled_at"`
	CreatedBy   string                     `json:"created_by"`

	templateID *string
}

func (r *SendRequest) validate() error {
	if r.RecipientID == "" {
		return apperr.Validationf("recipient_id required")
	}
	if r.Title == "" || r.Message == "" {
		return apperr.Validationf("title and message required")
	}
	if len(r.Channels) == 0 {
		return apperr.Validationf("at least one channel required")
	}
	for _, ch := range r.Channels {
		if !ch.Valid() {
			return apperr.Validationf("unknown channel: %s", ch)
		}
	}
	return nil
}

// SendFromTemplate renders the named template with vars and fans the result
// out to the recipient on the template's channels.
func (s *Service) SendFromTemplate(ctx context.Context, templateName, recipientID string, vars map[string]string, createdBy string) (*models.Notification, error) {
	rendered, err := s.tmpl.Render(ctx, templateName, vars)
	if err != nil {
		return nil, err
	}
	req := &SendRequest{
		RecipientID: recipientID,
		Title:       rendered.Title,
		Message:     rendered.Message,
		Category:    rendered.Template.Category,
		Priority:    types.PriorityNormal,
		Channels:    rendered.Template.Channels,
		CreatedBy:   createdBy,
		templateID:  lo.ToPtr(rendered.Template.ID),
	}
	return s.Create(ctx, req)
}

// Create persists the notification with one queued job per requested channel,
// then delivers each job independently. A channel failure never aborts the
// other channels; it is recorded on that job only.
func (s *Service) Create(ctx context.Context, req *SendRequest) (*models.Notification, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Priority == "" {
		req.Priority = types.PriorityNormal
	}
	if req.Category == "" {
		req.Category = types.CategoryGeneral
	}

	n := &models.Notification{
		ID:          tool.GenerateUUIDV7(),
		TemplateID:  req.templateID,
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Message:     req.Message,
		Category:    req.Category,
		Priority:    req.Priority,
		ScheduledAt: req.ScheduledAt,
		CreatedBy:   req.CreatedBy,
	}
	jobs := lo.Map(req.Channels, func(ch types.Channel, _ int) *models.NotificationChannelJob {
		return &models.NotificationChannelJob{
			ID:             tool.GenerateUUIDV7(),
			NotificationID: n.ID,
			Channel:        ch,
			Status:         types.DeliveryStatusQueued,
		}
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return apperr.Persistencef(err, "failed to create notification")
		}
		if err := tx.Create(jobs).Error; err != nil {
			return apperr.Persistencef(err, "failed to create channel jobs")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipient := s.lookupRecipient(ctx, req.RecipientID)
	for _, job := range jobs {
		s.deliverJob(ctx, n, job, recipient)
	}
	n.Jobs = jobs
	return n, nil
}

// deliverJob pushes one channel job through its adapter and records the
// outcome on the job row.
func (s *Service) deliverJob(ctx context.Context, n *models.Notification, job *models.NotificationChannelJob, to channels.Recipient) {
	lg := logctx.FromCtx(ctx, s.log)
	now := time.Now()
	job.Attempts++

	// in_app delivery is the row itself; it becomes readable immediately.
	if job.Channel == types.ChannelInApp {
		job.Status = types.DeliveryStatusSent
		job.SentAt = &now
		s.saveJob(ctx, job)
		metrics.NotificationsDispatched.WithLabelValues(string(job.Channel), string(job.Status)).Inc()
		return
	}

	adapter, ok := s.registry.Get(job.Channel)
	if !ok {
		s.failJob(ctx, job, apperr.Validationf("no adapter configured for channel %s", job.Channel))
		return
	}

	handle, err := adapter.SendMessage(ctx, to, channels.Message{
		Title:    n.Title,
		Body:     n.Message,
		Priority: n.Priority,
	})
	if err != nil {
		lg.Warnw("channel_send_failed", "notification_id", n.ID, "channel", job.Channel, "err", err)
		s.failJob(ctx, job, err)
		return
	}

	job.Status = types.DeliveryStatusSent
	job.SentAt = &now
	job.ProviderMessageID = &handle
	s.saveJob(ctx, job)
	metrics.NotificationsDispatched.WithLabelValues(string(job.Channel), string(job.Status)).Inc()
}

func (s *Service) failJob(ctx context.Context, job *models.NotificationChannelJob, cause error) {
	now := time.Now()
	job.Status = types.DeliveryStatusFailed
	job.FailedAt = &now
	job.LastError = lo.ToPtr(cause.Error())
	s.saveJob(ctx, job)
	metrics.NotificationsDispatched.WithLabelValues(string(job.Channel), string(job.Status)).Inc()
}

func (s *Service) saveJob(ctx context.Context, job *models.NotificationChannelJob) {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to save channel job", "job_id", job.ID, "err", err)
	}
}

func (s *Service) lookupRecipient(ctx context.Context, recipientID string) channels.Recipient {
	var student models.Student
	err := s.db.WithContext(ctx).Where("id = ?", recipientID).First(&student).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logctx.FromCtx(ctx, s.log).Warnw("recipient_lookup_failed", "recipient_id", recipientID, "err", err)
		}
		return channels.Recipient{ID: recipientID}
	}
	return channels.Recipient{
		ID:    student.ID,
		Name:  student.GuardianName,
		Phone: student.GuardianPhone,
		Email: student.GuardianEmail,
	}
}

// Get loads a notification with its channel jobs.
func (s *Service) Get(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).Preload("Jobs").Where("id = ?", id).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("notification not found: %s", id)
		}
		return nil, apperr.Persistencef(err, "failed to load notification")
	}
	return &n, nil
}

// ListByRecipient returns the in-app inbox of one recipient, newest first.
func (s *Service) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var items []*models.Notification
	if err := q.Order("id desc").Limit(limit).Find(&items).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to list notifications")
	}
	return items, nil
}
