package shippingrules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/textnorm"
)

// RuleInput is the full writable state of a free-shipping rule.
type RuleInput struct {
	Name          string
	Type          enums.FreeShippingRuleType
	MinimumAmount *int64
	Cities        []string
	Departments   []string
	IsActive      bool
	Priority      int
}

type Repository interface {
	Create(ctx context.Context, rule *models.FreeShippingRule) error
	Save(ctx context.Context, rule *models.FreeShippingRule) error
	List(ctx context.Context, onlyActive bool) ([]models.FreeShippingRule, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.FreeShippingRule, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, rule *models.FreeShippingRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) Save(ctx context.Context, rule *models.FreeShippingRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *repository) List(ctx context.Context, onlyActive bool) ([]models.FreeShippingRule, error) {
	q := r.db.WithContext(ctx).Model(&models.FreeShippingRule{})
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.FreeShippingRule
	err := q.Order("priority DESC").Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FreeShippingRule, error) {
	var row models.FreeShippingRule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.FreeShippingRule{})
	return res.RowsAffected > 0, res.Error
}

// Service administers free-shipping rules.
type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipping rule repository required")
	}
	return &Service{repo: repo}, nil
}

func (s *Service) Create(ctx context.Context, input RuleInput) (*models.FreeShippingRule, error) {
	rule := &models.FreeShippingRule{}
	if err := apply(rule, input); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create free shipping rule")
	}
	return rule, nil
}

// Update replaces every writable field of the rule.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input RuleInput) (*models.FreeShippingRule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(rule, input); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update free shipping rule")
	}
	return rule, nil
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.FreeShippingRule, error) {
	rule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.IsActive == active {
		return rule, nil
	}
	rule.IsActive = active
	if err := s.repo.Save(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update free shipping rule")
	}
	return rule, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.FreeShippingRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load free shipping rule")
	}
	if rule == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "free shipping rule not found")
	}
	return rule, nil
}

func (s *Service) List(ctx context.Context, onlyActive bool) ([]models.FreeShippingRule, error) {
	rows, err := s.repo.List(ctx, onlyActive)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list free shipping rules")
	}
	return rows, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete free shipping rule")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "free shipping rule not found")
	}
	return nil
}

func apply(rule *models.FreeShippingRule, input RuleInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return pkgerrors.Field("name", "name is required")
	}
	if !input.Type.IsValid() {
		return pkgerrors.Field("type", fmt.Sprintf("type must be one of %s, %s, %s",
			enums.FreeShippingMinimumPurchase, enums.FreeShippingSpecificLocation, enums.FreeShippingAlwaysFree))
	}

	minimum := input.MinimumAmount
	if input.Type == enums.FreeShippingMinimumPurchase {
		if minimum == nil {
			return pkgerrors.Field("minimumAmount", "minimum amount is required for MINIMUM_PURCHASE rules")
		}
		if *minimum <= 0 {
			return pkgerrors.Field("minimumAmount", "minimum amount must be positive")
		}
	} else if minimum != nil {
		return pkgerrors.Field("minimumAmount", "minimum amount only applies to MINIMUM_PURCHASE rules")
	}

	cities := cleanList(input.Cities)
	departments := cleanList(input.Departments)
	if input.Type == enums.FreeShippingSpecificLocation && len(cities) == 0 && len(departments) == 0 {
		return pkgerrors.Field("cities", "SPECIFIC_LOCATION rules need at least one city or department")
	}

	rule.Name = name
	rule.Type = input.Type
	rule.MinimumAmount = minimum
	rule.Cities = cities
	rule.Departments = departments
	rule.IsActive = input.IsActive
	rule.Priority = input.Priority
	return nil
}

// cleanList trims entries and drops blanks and normalised duplicates.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := textnorm.Key(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
