package discounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/crumbly-backend/internal/pricing"
	"github.com/angelmondragon/crumbly-backend/pkg/db"
	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/logger"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox/payloads"
)

const maxCodeLength = 32

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type CreateInput struct {
	Code        string
	Percent     int
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Activate    bool
}

type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxPublisher
	Logger *logger.Logger
}

// Service administers discount codes. At most one code is active at a time.
type Service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &Service{repo: params.Repo, tx: params.Tx, outbox: params.Outbox, logg: params.Logger}, nil
}

func (s *Service) Create(ctx context.Context, input CreateInput, actor *outbox.ActorRef) (*models.DiscountCode, error) {
	code := pricing.NormalizeCode(input.Code)
	if err := validateCreate(code, input); err != nil {
		return nil, err
	}

	row := &models.DiscountCode{
		Code:        code,
		Percent:     input.Percent,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "uq_discount_codes_code", "discount_codes.code") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "discount code already exists").
					WithDetails(map[string]string{"field": "code"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create discount code")
		}
		if input.Activate {
			return s.activateTx(ctx, tx, row, actor)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func validateCreate(code string, input CreateInput) error {
	switch {
	case code == "":
		return pkgerrors.Field("code", "code is required")
	case len(code) > maxCodeLength:
		return pkgerrors.Field("code", fmt.Sprintf("code must be at most %d characters", maxCodeLength))
	case strings.ContainsAny(code, " \t\n"):
		return pkgerrors.Field("code", "code must not contain spaces")
	case input.Percent < 1 || input.Percent > 100:
		return pkgerrors.Field("percent", "percent must be between 1 and 100")
	case input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate):
		return pkgerrors.Field("endDate", "end date must not be before start date")
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]models.DiscountCode, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list discount codes")
	}
	return rows, nil
}

// Activate makes id the only active code. Every other code is switched off in
// the same transaction.
func (s *Service) Activate(ctx context.Context, id uuid.UUID, actor *outbox.ActorRef) (*models.DiscountCode, error) {
	var row *models.DiscountCode
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		found, err := s.find(ctx, s.repo.WithTx(tx), id)
		if err != nil {
			return err
		}
		row = found
		return s.activateTx(ctx, tx, row, actor)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) activateTx(ctx context.Context, tx *gorm.DB, row *models.DiscountCode, actor *outbox.ActorRef) error {
	repo := s.repo.WithTx(tx)
	// Others go first so the single-active index never sees two rows.
	deactivated, err := repo.DeactivateOthers(ctx, row.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate discount codes")
	}
	if err := repo.SetActive(ctx, row.ID, true); err != nil {
		if db.IsUniqueViolation(err, "uq_discount_codes_single_active") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "another discount code was activated concurrently; retry activation")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate discount code")
	}
	row.IsActive = true

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"discount_code": row.Code, "deactivated": deactivated})
		s.logg.Info(logCtx, "discount code activated")
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventDiscountActivated,
		AggregateType: enums.AggregateDiscountCode,
		AggregateID:   row.ID,
		Actor:         actor,
		Data: payloads.DiscountActivatedEvent{
			DiscountCodeID: row.ID,
			Code:           row.Code,
			Percent:        row.Percent,
			Deactivated:    deactivated,
		},
	})
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*models.DiscountCode, error) {
	row, err := s.find(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !row.IsActive {
		return row, nil
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate discount code")
	}
	row.IsActive = false
	return row, nil
}

// Delete removes the code. Redemptions stay, so the code cannot be
// recreated and reused by the same customers.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete discount code")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}
	return nil
}

func (s *Service) find(ctx context.Context, repo Repository, id uuid.UUID) (*models.DiscountCode, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load discount code")
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found")
	}
	return row, nil
}
