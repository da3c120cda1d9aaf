package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcclellann/bankLoan/pkg/models"
	"github.com/mcclellann/bankLoan/pkg/store"
)

var ErrInactiveUser = errors.New("user is inactive")

// ResolveActor loads a user and the record behind its role.
func ResolveActor(ctx context.Context, q store.Queries, userID uuid.UUID) (*models.Actor, error) {
	user, err := q.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	actor := &models.Actor{User: user}
	switch user.Role {
	case models.RoleAdmin:
		actor.Role = models.AdminRole{}
	case models.RoleBankPersonnel:
		p, err := q.GetPersonnelByUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve personnel for user %s: %w", user.ID, err)
		}
		actor.Role = models.PersonnelRole{Personnel: p}
	case models.RoleLoanProvider:
		p, err := q.GetProviderByUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve provider for user %s: %w", user.ID, err)
		}
		actor.Role = models.ProviderRole{Provider: p}
	case models.RoleLoanCustomer:
		c, err := q.GetCustomerByUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve customer for user %s: %w", user.ID, err)
		}
		actor.Role = models.CustomerRole{Customer: c}
	default:
		return nil, fmt.Errorf("user %s has unknown role %q", user.ID, user.Role)
	}
	return actor, nil
}
