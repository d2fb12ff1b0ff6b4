package mongostore

import (
	"context"
	"time"

	"mentorhub/internal/shared/model"
	"mentorhub/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ============================================================================
// AccountStore
// ============================================================================

func (s *Store) CreateAccount(ctx context.Context, account *model.Account) error {
	return insertOne(ctx, s.col(ColAccounts), account)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	return findOne[model.Account](ctx, s.col(ColAccounts), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return findOne[model.Account](ctx, s.col(ColAccounts), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) UpdateAccount(ctx context.Context, id string, update storage.AccountUpdate) (*model.Account, error) {
	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	if update.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *update.Name})
	}
	if update.PasswordHash != nil {
		set = append(set, bson.E{Key: "password_hash", Value: *update.PasswordHash})
	}
	if update.Role != nil {
		set = append(set, bson.E{Key: "role", Value: *update.Role})
	}
	if update.Status != nil {
		set = append(set, bson.E{Key: "status", Value: *update.Status})
	}
	if update.LastLoginAt != nil {
		set = append(set, bson.E{Key: "last_login_at", Value: *update.LastLoginAt})
	}
	return updateAndFetch[model.Account](ctx, s.col(ColAccounts), id, set)
}
