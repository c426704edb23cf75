package lib

import (
	"context"
	"errors"

	"github.com/inventerdesign/pushdeck/lib/models"
	"gorm.io/gorm"
)

type TemplateInput struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Icon      string `json:"icon"`
	Badge     string `json:"badge"`
	Image     string `json:"image"`
	URL       string `json:"url"`
	CreatedBy string `json:"-"`
}

func (svc *Service) CreateTemplate(ctx context.Context, input TemplateInput) (*models.Template, error) {
	if input.Name == "" || input.Title == "" || input.Body == "" {
		return nil, errors.New("template name, title and body are required")
	}

	tmpl := &models.Template{
		Name:      input.Name,
		Title:     input.Title,
		Body:      input.Body,
		Icon:      input.Icon,
		Badge:     input.Badge,
		Image:     input.Image,
		URL:       input.URL,
		CreatedBy: input.CreatedBy,
	}
	if err := svc.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (svc *Service) ListTemplates(ctx context.Context) (models.Templates, error) {
	templates := models.Templates{}
	tx := svc.db.WithContext(ctx).Order("created_at desc").Find(&templates)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (svc *Service) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	tmpl := &models.Template{}
	tx := svc.db.WithContext(ctx).Where("id = ?", id).First(tmpl)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	} else if tx.Error != nil {
		return nil, tx.Error
	}
	return tmpl, nil
}

func (svc *Service) DeleteTemplate(ctx context.Context, id string) error {
	return svc.db.WithContext(ctx).Delete(&models.Template{}, "id = ?", id).Error
}
