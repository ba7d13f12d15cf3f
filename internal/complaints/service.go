package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librisvault/librisvault-backend/pkg/auth"
	"github.com/librisvault/librisvault-backend/pkg/db/models"
	"github.com/librisvault/librisvault-backend/pkg/enums"
	pkgerrors "github.com/librisvault/librisvault-backend/pkg/errors"
	"github.com/librisvault/librisvault-backend/pkg/logger"
	"github.com/librisvault/librisvault-backend/pkg/pagination"
)

// Service files and triages complaints. Customers file and read their own;
// admins see everything and move complaints through review.
type Service interface {
	File(ctx context.Context, actor auth.Actor, input FileInput) (*ComplaintDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ComplaintDTO, error)
	List(ctx context.Context, actor auth.Actor, input ListInput) (*ListResult, error)
	Transition(ctx context.Context, actor auth.Actor, id uuid.UUID, input TransitionInput) (*ComplaintDTO, error)
}

type orderLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type ServiceParams struct {
	Repo   Repository
	Orders orderLookup
	Logger *logger.Logger
}

type service struct {
	repo   Repository
	orders orderLookup
	logg   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("complaint repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order lookup required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &service{repo: params.Repo, orders: params.Orders, logg: params.Logger}, nil
}

func (s *service) File(ctx context.Context, actor auth.Actor, input FileInput) (*ComplaintDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.Role != enums.RoleCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can file complaints")
	}
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if subject == "" || body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject and body are required")
	}

	if input.OrderID != nil {
		order, err := s.orders.FindByID(ctx, *input.OrderID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err != nil || order.UserID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
	}

	complaint := &models.Complaint{
		UserID:  actor.UserID,
		OrderID: input.OrderID,
		Subject: subject,
		Body:    body,
		Status:  enums.ComplaintStatusOpen,
	}
	if err := s.repo.Create(ctx, complaint); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create complaint")
	}
	s.logg.Info(s.logg.WithField(ctx, "complaint_id", complaint.ID.String()), "complaint filed")

	dto := newComplaintDTO(*complaint)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*ComplaintDTO, error) {
	complaint, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && complaint.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
	}
	dto := newComplaintDTO(*complaint)
	return &dto, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	filter := ListFilter{Status: input.Status, Limit: input.Limit, Cursor: cursor}
	if !actor.IsAdmin() {
		userID := actor.UserID
		filter.UserID = &userID
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list complaints")
	}
	rows, next := pagination.Trim(rows, input.Limit, func(c models.Complaint) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	out := make([]ComplaintDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, newComplaintDTO(row))
	}
	return &ListResult{Complaints: out, NextCursor: next}, nil
}

// Transition moves a complaint forward. Closed complaints are final and a
// resolution note is required to resolve.
func (s *service) Transition(ctx context.Context, actor auth.Actor, id uuid.UUID, input TransitionInput) (*ComplaintDTO, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin only")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	resolution := trimmed(input.Resolution)
	if input.Status == enums.ComplaintStatusResolved && resolution == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "resolution is required to resolve a complaint")
	}

	complaint, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(complaint.Status, input.Status) {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move complaint from %s to %s", complaint.Status, input.Status).
			WithDetails(map[string]any{"from": complaint.Status, "to": input.Status})
	}

	ok, err := s.repo.UpdateStatus(ctx, id, complaint.Status, input.Status, resolution)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update complaint")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "complaint changed concurrently")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"complaint_id": id.String(),
		"from":         string(complaint.Status),
		"to":           string(input.Status),
	}), "complaint transitioned")

	complaint.Status = input.Status
	if resolution != nil {
		complaint.Resolution = resolution
	}
	dto := newComplaintDTO(*complaint)
	return &dto, nil
}

func canTransition(from, to enums.ComplaintStatus) bool {
	if from.IsClosed() || from == to {
		return false
	}
	switch from {
	case enums.ComplaintStatusOpen:
		return true
	case enums.ComplaintStatusInReview:
		return to.IsClosed()
	}
	return false
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Complaint, error) {
	complaint, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "complaint not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load complaint")
	}
	return complaint, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
