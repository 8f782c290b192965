package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/auth"
	"github.com/supawave/supawave-backend/pkg/db"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type managerLookup interface {
	FindManager(ctx context.Context, businessID, userID uuid.UUID) (*models.User, error)
}

// Service exposes store registry operations.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateStoreInput) (*StoreDTO, error)
	Get(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*StoreDTO, error)
	List(ctx context.Context, actor auth.Actor) ([]StoreDTO, error)
	Update(ctx context.Context, actor auth.Actor, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error)
	Remove(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*RemoveResult, error)
	SetMainStore(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*StoreDTO, error)
	AssignManager(ctx context.Context, actor auth.Actor, storeID, userID uuid.UUID) (*StoreDTO, error)
	Accessible(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*models.Store, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	users  managerLookup
	outbox outbox.Emitter
	logg   *logger.Logger
}

// NewService builds a store service with the provided repositories.
func NewService(repo *Repository, tx txRunner, users managerLookup, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, users: users, outbox: emitter, logg: logg}, nil
}

func requireOwner(actor auth.Actor) error {
	if !actor.IsOwner() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the business owner can manage stores")
	}
	return nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if len(name) > 100 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "store name must be at most 100 characters")
	}
	return name, nil
}

func duplicateName(name string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a store named %q already exists", name)).
		WithDetails(map[string]any{"field": "name"})
}

func storeNotFound(storeID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "store not found").
		WithDetails(map[string]any{"store_id": storeID})
}

func lookupErr(err error, storeID uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storeNotFound(storeID)
	}
	return pkgerrors.Storage(err, "load store")
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateStoreInput) (*StoreDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	name, err := normalizeName(input.Name)
	if err != nil {
		return nil, err
	}

	store := &models.Store{
		BusinessID: actor.BusinessID,
		Name:       name,
		Address:    strings.TrimSpace(input.Address),
		Phone:      input.Phone,
		IsActive:   true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		taken, err := repo.ActiveNameTaken(ctx, actor.BusinessID, name, nil)
		if err != nil {
			return err
		}
		if taken {
			return duplicateName(name)
		}
		existing, err := repo.CountByBusiness(ctx, actor.BusinessID)
		if err != nil {
			return err
		}
		store.IsMainStore = existing == 0
		if err := repo.Create(ctx, store); err != nil {
			if db.IsUniqueViolation(err) {
				return duplicateName(name)
			}
			return err
		}
		if store.IsMainStore {
			return s.emitMainChanged(ctx, tx, actor, store.ID, nil)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "create store")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"store_id": store.ID.String(), "main": store.IsMainStore})
	s.logg.Info(logCtx, "store created")
	return FromModel(store), nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*StoreDTO, error) {
	store, err := s.Accessible(ctx, actor, storeID)
	if err != nil {
		return nil, err
	}
	return FromModel(store), nil
}

func (s *service) List(ctx context.Context, actor auth.Actor) ([]StoreDTO, error) {
	var (
		rows []models.Store
		err  error
	)
	switch actor.Role {
	case enums.UserRoleOwner:
		rows, err = s.repo.ListByBusiness(ctx, actor.BusinessID)
	case enums.UserRoleManager:
		rows, err = s.repo.FindManagedBy(ctx, actor.BusinessID, actor.UserID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot view stores")
	}
	if err != nil {
		return nil, pkgerrors.Storage(err, "list stores")
	}
	out := make([]StoreDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// Accessible resolves a store of the actor's business. Managers only reach
// the store they manage; staff reach none.
func (s *service) Accessible(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*models.Store, error) {
	store, err := s.repo.FindInBusiness(ctx, actor.BusinessID, storeID)
	if err != nil {
		return nil, lookupErr(err, storeID)
	}
	switch actor.Role {
	case enums.UserRoleOwner:
		return store, nil
	case enums.UserRoleManager:
		if store.ManagerUserID != nil && *store.ManagerUserID == actor.UserID {
			return store, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store is managed by another user")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot access stores")
	}
}

func (s *service) Update(ctx context.Context, actor auth.Actor, storeID uuid.UUID, input UpdateStoreInput) (*StoreDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	var store *models.Store
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockInBusiness(ctx, actor.BusinessID, storeID)
		if err != nil {
			return lookupErr(err, storeID)
		}
		fields := map[string]any{}
		if input.Name != nil {
			name, err := normalizeName(*input.Name)
			if err != nil {
				return err
			}
			if current.IsActive {
				taken, err := repo.ActiveNameTaken(ctx, actor.BusinessID, name, &storeID)
				if err != nil {
					return err
				}
				if taken {
					return duplicateName(name)
				}
			}
			fields["name"] = name
		}
		if input.Address != nil {
			fields["address"] = strings.TrimSpace(*input.Address)
		}
		if input.Phone != nil {
			fields["phone"] = *input.Phone
		}
		if len(fields) > 0 {
			if err := repo.UpdateFields(ctx, storeID, fields); err != nil {
				if db.IsUniqueViolation(err) {
					return duplicateName(fmt.Sprint(fields["name"]))
				}
				return err
			}
		}
		store, err = repo.FindInBusiness(ctx, actor.BusinessID, storeID)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "update store")
	}
	return FromModel(store), nil
}

// Remove hard-deletes a store that never held stock nor took part in a
// transfer, and deactivates it otherwise.
func (s *service) Remove(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*RemoveResult, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	result := &RemoveResult{StoreID: storeID}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		store, err := repo.LockInBusiness(ctx, actor.BusinessID, storeID)
		if err != nil {
			return lookupErr(err, storeID)
		}
		if store.IsMainStore {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot remove the main store; set another main store first")
		}
		open, err := repo.HasOpenTransfers(ctx, storeID)
		if err != nil {
			return err
		}
		if open {
			return pkgerrors.New(pkgerrors.CodeConflict, "store has pending or in-transit transfers")
		}
		history, err := repo.HasHistory(ctx, storeID)
		if err != nil {
			return err
		}
		if !history {
			result.Deleted = true
			return repo.Delete(ctx, storeID)
		}
		result.Deactivated = true
		return repo.UpdateFields(ctx, storeID, map[string]any{
			"is_active":       false,
			"manager_user_id": nil,
			"manager_name":    nil,
		})
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "remove store")
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"store_id": storeID.String(), "deleted": result.Deleted})
	s.logg.Info(logCtx, "store removed")
	return result, nil
}

// SetMainStore moves the main flag in one transaction so the business never
// has zero or two main stores.
func (s *service) SetMainStore(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*StoreDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	var store *models.Store
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		target, err := repo.LockInBusiness(ctx, actor.BusinessID, storeID)
		if err != nil {
			return lookupErr(err, storeID)
		}
		if !target.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "an inactive store cannot be the main store")
		}
		if target.IsMainStore {
			store = target
			return nil
		}
		previous, err := repo.MainStore(ctx, actor.BusinessID)
		if err != nil {
			return err
		}
		if err := repo.ClearMainExcept(ctx, actor.BusinessID, storeID); err != nil {
			return err
		}
		if err := repo.UpdateFields(ctx, storeID, map[string]any{"is_main_store": true}); err != nil {
			return err
		}
		var previousID *uuid.UUID
		if previous != nil {
			previousID = &previous.ID
		}
		if err := s.emitMainChanged(ctx, tx, actor, storeID, previousID); err != nil {
			return err
		}
		store, err = repo.FindInBusiness(ctx, actor.BusinessID, storeID)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "set main store")
	}
	return FromModel(store), nil
}

// AssignManager makes userID the manager of storeID, detaching them from any
// store they managed before.
func (s *service) AssignManager(ctx context.Context, actor auth.Actor, storeID, userID uuid.UUID) (*StoreDTO, error) {
	if err := requireOwner(actor); err != nil {
		return nil, err
	}
	manager, err := s.users.FindManager(ctx, actor.BusinessID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "manager not found").
				WithDetails(map[string]any{"user_id": userID})
		}
		return nil, pkgerrors.Storage(err, "load manager")
	}

	var store *models.Store
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		target, err := repo.LockInBusiness(ctx, actor.BusinessID, storeID)
		if err != nil {
			return lookupErr(err, storeID)
		}
		if !target.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot assign a manager to an inactive store")
		}
		if err := repo.DetachManager(ctx, userID, storeID); err != nil {
			return err
		}
		name := manager.DisplayName()
		if err := repo.UpdateFields(ctx, storeID, map[string]any{
			"manager_user_id": manager.ID,
			"manager_name":    name,
		}); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "user already manages another store")
			}
			return err
		}
		store, err = repo.FindInBusiness(ctx, actor.BusinessID, storeID)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "assign manager")
	}
	return FromModel(store), nil
}

func (s *service) emitMainChanged(ctx context.Context, tx *gorm.DB, actor auth.Actor, storeID uuid.UUID, previous *uuid.UUID) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventMainStoreChanged,
		AggregateType: enums.AggregateStore,
		AggregateID:   storeID,
		Actor:         outbox.ActorFor(actor),
		Data: payloads.MainStoreChangedEvent{
			BusinessID:        actor.BusinessID,
			StoreID:           storeID,
			PreviousMainStore: previous,
		},
	})
}
