package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/sheet-invoices/internal/models"
	"github.com/diewo77/sheet-invoices/validation"
)

// TemplateInput is the admin "add line item" form.
type TemplateInput struct {
	Name        string `schema:"name"`
	Description string `schema:"description"`
}

// TemplateService manages reusable line-item templates.
type TemplateService struct {
	db *gorm.DB
}

func NewTemplateService(db *gorm.DB) *TemplateService {
	return &TemplateService{db: db}
}

func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*models.LineItemTemplate, error) {
	name := strings.TrimSpace(in.Name)
	v := validation.Violations{}
	validation.Required("name", name, v)
	validation.MaxLen("name", name, 100, v)
	if !v.Empty() {
		return nil, v
	}
	item := models.LineItemTemplate{Name: name}
	if d := strings.TrimSpace(in.Description); d != "" {
		item.Description = &d
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create line item %s: %w", name, err)
	}
	return &item, nil
}

// List returns templates ordered by name.
func (s *TemplateService) List(ctx context.Context) ([]models.LineItemTemplate, error) {
	var items []models.LineItemTemplate
	err := s.db.WithContext(ctx).Order("name ASC, id ASC").Find(&items).Error
	return items, err
}

func (s *TemplateService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.LineItemTemplate{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
