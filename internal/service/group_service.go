package service

import (
	"context"
	"fmt"
	"time"

	"github.com/eckinger/uchomp/internal/domain"
	"github.com/eckinger/uchomp/internal/repository"
	"github.com/eckinger/uchomp/pkg/events"
	"github.com/eckinger/uchomp/pkg/logger"
)

// GroupService is the group lifecycle engine. Every mutating operation runs
// its check-then-act sequence inside a single group transaction so that
// concurrent requests against the same group serialize.
type GroupService interface {
	Create(ctx context.Context, req *domain.CreateGroupRequest) (int64, error)
	Join(ctx context.Context, orderID, userID int64) error
	Leave(ctx context.Context, orderID, userID int64) error
	UpdateStatus(ctx context.Context, orderID int64, isOpen bool) error
	Delete(ctx context.Context, orderID int64) error
	ListActive(ctx context.Context) ([]domain.GroupSummary, error)
	GetDetail(ctx context.Context, orderID int64) (*domain.GroupDetail, error)
}

type groupService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	eventBus  events.Publisher
	now       func() time.Time
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	eventBus events.Publisher,
) GroupService {
	return &groupService{
		groupRepo: groupRepo,
		userRepo:  userRepo,
		eventBus:  eventBus,
		now:       time.Now,
	}
}

func (s *groupService) Create(ctx context.Context, req *domain.CreateGroupRequest) (int64, error) {
	req.Normalize()
	if err := req.Validate(s.now()); err != nil {
		return 0, err
	}

	var orderID int64
	err := s.groupRepo.InTx(ctx, func(tx repository.GroupTx) error {
		exists, err := tx.UserExists(ctx, req.OwnerID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrUserNotFound
		}

		group, err := tx.InsertGroupWithOwner(ctx, req.OwnerID, req.Restaurant, req.ExpiresAt(), req.Loc)
		if err != nil {
			return err
		}
		orderID = group.ID
		return nil
	})
	if err != nil {
		return 0, wrapTxErr("create group", err)
	}

	return orderID, nil
}

func (s *groupService) Join(ctx context.Context, orderID, userID int64) error {
	var restaurant string
	err := s.groupRepo.InTx(ctx, func(tx repository.GroupTx) error {
		group, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrOrderNotFound
		}
		if !group.IsOpen {
			return domain.ErrGroupClosed
		}
		if group.OwnerID == userID {
			return domain.ErrCannotJoinOwnGroup
		}
		if group.IsExpired(s.now()) {
			return domain.ErrGroupExpired
		}

		// The unique (order_id, user_id) constraint backs this up if a
		// concurrent join slipped past the row lock.
		if _, err := tx.InsertMember(ctx, orderID, userID); err != nil {
			return err
		}

		restaurant = group.Restaurant
		return nil
	})
	if err != nil {
		return wrapTxErr("join group", err)
	}

	s.publishMemberEvent(ctx, events.GroupMemberJoined, orderID, restaurant, userID)
	return nil
}

func (s *groupService) Leave(ctx context.Context, orderID, userID int64) error {
	var restaurant string
	err := s.groupRepo.InTx(ctx, func(tx repository.GroupTx) error {
		group, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrOrderNotFound
		}
		if !group.IsOpen {
			return domain.ErrGroupClosed
		}

		members, err := tx.ListMembers(ctx, orderID)
		if err != nil {
			return err
		}

		isMember := false
		for _, m := range members {
			if m.UserID == userID {
				isMember = true
				break
			}
		}
		if !isMember {
			return domain.ErrNotAMember
		}

		// Last member out deletes the group; memberships cascade.
		if len(members) == 1 {
			restaurant = group.Restaurant
			return tx.DeleteGroup(ctx, orderID)
		}

		// Ownership passes to the earliest remaining joiner before the
		// leaving membership goes away, so the group never holds an owner
		// without a membership.
		if group.OwnerID == userID {
			for _, m := range members {
				if m.UserID != userID {
					if err := tx.SetOwner(ctx, orderID, m.UserID); err != nil {
						return err
					}
					break
				}
			}
		}

		removed, err := tx.DeleteMember(ctx, orderID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.ErrNotAMember
		}

		restaurant = group.Restaurant
		return nil
	})
	if err != nil {
		return wrapTxErr("leave group", err)
	}

	s.publishMemberEvent(ctx, events.GroupMemberLeft, orderID, restaurant, userID)
	return nil
}

func (s *groupService) UpdateStatus(ctx context.Context, orderID int64, isOpen bool) error {
	err := s.groupRepo.InTx(ctx, func(tx repository.GroupTx) error {
		group, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrOrderNotFound
		}
		if isOpen && !group.IsOpen {
			return domain.ErrCannotReopen
		}
		if group.IsOpen == isOpen {
			return nil
		}
		return tx.SetOpen(ctx, orderID, isOpen)
	})
	return wrapTxErr("update group status", err)
}

func (s *groupService) Delete(ctx context.Context, orderID int64) error {
	err := s.groupRepo.InTx(ctx, func(tx repository.GroupTx) error {
		group, err := tx.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if group == nil {
			return domain.ErrOrderNotFound
		}
		return tx.DeleteGroup(ctx, orderID)
	})
	return wrapTxErr("delete group", err)
}

func (s *groupService) ListActive(ctx context.Context) ([]domain.GroupSummary, error) {
	groups, err := s.groupRepo.ListActive(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list active groups: %w", err)
	}
	return groups, nil
}

func (s *groupService) GetDetail(ctx context.Context, orderID int64) (*domain.GroupDetail, error) {
	detail, err := s.groupRepo.GetDetail(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group detail: %w", err)
	}
	if detail == nil {
		return nil, domain.ErrOrderNotFound
	}
	return detail, nil
}

// publishMemberEvent fans a membership change out to the notify worker.
// Failures are logged, never surfaced; the lifecycle mutation already
// committed.
func (s *groupService) publishMemberEvent(ctx context.Context, subject string, orderID int64, restaurant string, userID int64) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || user == nil {
		logger.WarnContext(ctx, "Could not resolve user for notification", "error", err, "user_id", userID)
		return
	}

	event := events.GroupMemberEvent{
		OrderID:    orderID,
		Restaurant: restaurant,
		UserEmail:  user.Email,
		OccurredAt: s.now(),
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish group event", "error", err, "subject", subject, "order_id", orderID)
	}
}

// wrapTxErr keeps classified domain errors intact and wraps everything else
// as an infrastructure failure.
func wrapTxErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != domain.KindInfrastructure {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
