package template

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/santrihub/sppbilling/internal/models"
	"github.com/santrihub/sppbilling/pkg/apperr"
	"github.com/santrihub/sppbilling/pkg/logctx"
	"github.com/santrihub/sppbilling/pkg/tool"
	"github.com/santrihub/sppbilling/pkg/types"
)

// Service stores reusable notification templates and renders them.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

type CreateTemplateRequest struct {
	Name      string                     `json:"name"`
	Title     string                     `json:"title"`
	Body      string                     `json:"body"`
	Category  types.NotificationCategory `json:"category"`
	Channels  []types.Channel            `json:"channels"`
	Variables []string                   `json:"variables"`
	CreatedBy string                     `json:"created_by"`
}

func (r *CreateTemplateRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(r.Body) == "" {
		missing = append(missing, "body")
	}
	if len(r.Channels) == 0 {
		missing = append(missing, "channels")
	}
	if len(missing) > 0 {
		return apperr.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	for _, ch := range r.Channels {
		if !ch.Valid() {
			return apperr.Validationf("unknown channel: %s", ch)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, req *CreateTemplateRequest) (*models.NotificationTemplate, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Category == "" {
		req.Category = types.CategoryGeneral
	}

	tmpl := &models.NotificationTemplate{
		ID:        tool.GenerateUUIDV7(),
		Name:      req.Name,
		Title:     req.Title,
		Body:      req.Body,
		Category:  req.Category,
		Channels:  req.Channels,
		Variables: req.Variables,
		IsActive:  true,
		CreatedBy: req.CreatedBy,
	}

	if err := s.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflictf("template name already exists: %s", req.Name)
		}
		return nil, apperr.Persistencef(err, "failed to create template")
	}
	logctx.FromCtx(ctx, s.log).Infow("template_created", "name", tmpl.Name, "id", tmpl.ID)
	return tmpl, nil
}

type UpdateTemplateRequest struct {
	Title     *string                     `json:"title"`
	Body      *string                     `json:"body"`
	Category  *types.NotificationCategory `json:"category"`
	Channels  []types.Channel             `json:"channels"`
	Variables []string                    `json:"variables"`
	IsActive  *bool                       `json:"is_active"`
}

func (s *Service) Update(ctx context.Context, id string, req *UpdateTemplateRequest) (*models.NotificationTemplate, error) {
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apperr.Validationf("title must not be empty")
		}
		tmpl.Title = *req.Title
	}
	if req.Body != nil {
		if strings.TrimSpace(*req.Body) == "" {
			return nil, apperr.Validationf("body must not be empty")
		}
		tmpl.Body = *req.Body
	}
	if req.Category != nil {
		tmpl.Category = *req.Category
	}
	if len(req.Channels) > 0 {
		for _, ch := range req.Channels {
			if !ch.Valid() {
				return nil, apperr.Validationf("unknown channel: %s", ch)
			}
		}
		tmpl.Channels = req.Channels
	}
	if req.Variables != nil {
		tmpl.Variables = req.Variables
	}
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}
	if err := s.db.WithContext(ctx).Save(tmpl).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to update template")
	}
	return tmpl, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.NotificationTemplate, error) {
	var tmpl models.NotificationTemplate
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("template not found: %s", id)
		}
		return nil, apperr.Persistencef(err, "failed to load template")
	}
	return &tmpl, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	var tmpl models.NotificationTemplate
	if err := s.db.WithContext(ctx).Where("name = ? AND is_active = ?", name, true).First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("template not found: %s", name)
		}
		return nil, apperr.Persistencef(err, "failed to load template")
	}
	return &tmpl, nil
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]*models.NotificationTemplate, error) {
	q := s.db.WithContext(ctx).Model(&models.NotificationTemplate{})
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var items []*models.NotificationTemplate
	if err := q.Order("name asc").Find(&items).Error; err != nil {
		return nil, apperr.Persistencef(err, "failed to list templates")
	}
	return items, nil
}

// Deactivate soft-deletes a template; renders by name stop resolving it.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.NotificationTemplate{}).
		Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return apperr.Persistencef(res.Error, "failed to deactivate template")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("template not found: %s", id)
	}
	return nil
}

// Rendered is the output of a template render.
type Rendered struct {
	Title    string
	Message  string
	Template *models.NotificationTemplate
}

// Render resolves the template by name and substitutes every declared
// {variable}. A missing declared variable fails the render; tokens the
// template never declared are left literal and logged.
func (s *Service) Render(ctx context.Context, name string, vars map[string]string) (*Rendered, error) {
	tmpl, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if missing := missingVariables(tmpl.Variables, vars); len(missing) > 0 {
		return nil, apperr.Validationf("template %s: missing variables: %s", name, strings.Join(missing, ", "))
	}

	title := substitute(tmpl.Title, vars)
	message := substitute(tmpl.Body, vars)

	if leftover := leftoverTokens(title + " " + message); len(leftover) > 0 {
		logctx.FromCtx(ctx, s.log).Warnw("template_undeclared_tokens",
			"template", name, "tokens", leftover)
	}

	return &Rendered{Title: title, Message: message, Template: tmpl}, nil
}
