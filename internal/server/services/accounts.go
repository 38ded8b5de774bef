package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/godex/internal/common"
	"github.com/dmitrijs2005/godex/internal/dbx"
	"github.com/dmitrijs2005/godex/internal/logging"
	"github.com/dmitrijs2005/godex/internal/server/events"
	"github.com/dmitrijs2005/godex/internal/server/models"
	"github.com/dmitrijs2005/godex/internal/server/repositories/repomanager"
)

// AccountUpdate is a patch for an account. Setting IsMain to true demotes
// every other account of the user in the same transaction.
type AccountUpdate struct {
	Name   *string
	IsMain *bool
}

// AccountService manages a user's game accounts and the per-account
// statistics derived from their captures.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	publisher   events.Publisher
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, publisher events.Publisher) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "accounts"),
		publisher:   publisher,
	}
}

func validateAccountName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: account name is required", common.ErrorValidation)
	}
	return name, nil
}

// ListAccounts returns the user's accounts, primary first, then by
// case-insensitive name.
func (s *AccountService) ListAccounts(ctx context.Context, userID int64) ([]models.Account, error) {
	list, err := s.repomanager.Accounts(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	models.SortAccounts(list)
	return list, nil
}

func (s *AccountService) GetAccount(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	acc, err := s.repomanager.Accounts(s.db).GetByID(ctx, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("error loading account: %w", err)
	}
	return acc, nil
}

// ComputeStats aggregates the captures logged against one account.
func (s *AccountService) ComputeStats(ctx context.Context, userID, accountID int64) (models.AccountStats, error) {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return models.AccountStats{}, err
	}

	list, err := s.repomanager.Captures(s.db).List(ctx, userID, &accountID)
	if err != nil {
		return models.AccountStats{}, fmt.Errorf("error listing captures: %w", err)
	}
	return models.ComputeStats(list), nil
}

// ListAccountsWithStats returns every account with its stats using a single
// scan of the user's captures.
func (s *AccountService) ListAccountsWithStats(ctx context.Context, userID int64) ([]models.AccountWithStats, error) {
	accounts, err := s.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}

	list, err := s.repomanager.Captures(s.db).List(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("error listing captures: %w", err)
	}
	return withStats(accounts, models.GroupStatsByAccount(list)), nil
}

func withStats(accounts []models.Account, stats map[int64]models.AccountStats) []models.AccountWithStats {
	out := make([]models.AccountWithStats, len(accounts))
	for i, a := range accounts {
		out[i] = models.AccountWithStats{Account: a, Stats: stats[a.ID]}
	}
	return out
}

func (s *AccountService) CreateAccount(ctx context.Context, userID int64, name string, isMain bool) (*models.Account, error) {
	name, err := validateAccountName(name)
	if err != nil {
		return nil, err
	}

	var created *models.Account
	err = serializable(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		if isMain {
			if err := repo.ClearMain(ctx, userID); err != nil {
				return err
			}
		}
		var err error
		created, err = repo.Create(ctx, &models.Account{UserID: userID, Name: name, IsMain: isMain})
		return err
	})
	if err != nil {
		return nil, txError("create account", err)
	}

	s.logger.Info(ctx, "account created", "user_id", userID, "account_id", created.ID)
	if created.IsMain {
		s.publishPrimary(ctx, userID, created.ID)
	}
	return created, nil
}

func (s *AccountService) UpdateAccount(ctx context.Context, userID, accountID int64, patch AccountUpdate) (*models.Account, error) {
	var name string
	if patch.Name != nil {
		var err error
		if name, err = validateAccountName(*patch.Name); err != nil {
			return nil, err
		}
	}

	var (
		updated  *models.Account
		promoted bool
	)
	err := serializable(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		acc, err := repo.GetByID(ctx, userID, accountID)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			acc.Name = name
		}
		if patch.IsMain != nil {
			if *patch.IsMain && !acc.IsMain {
				if err := repo.ClearMain(ctx, userID); err != nil {
					return err
				}
				promoted = true
			}
			acc.IsMain = *patch.IsMain
		}

		if err := repo.Update(ctx, acc); err != nil {
			return err
		}
		updated = acc
		return nil
	})
	if err != nil {
		return nil, txError("update account", err)
	}

	if promoted {
		s.publishPrimary(ctx, userID, accountID)
	}
	return updated, nil
}

// SetPrimary makes accountID the user's only primary account. Clearing the
// old flag and setting the new one commit together.
func (s *AccountService) SetPrimary(ctx context.Context, userID, accountID int64) error {
	err := serializable(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		if _, err := repo.GetByID(ctx, userID, accountID); err != nil {
			return err
		}
		if err := repo.ClearMain(ctx, userID); err != nil {
			return err
		}
		return repo.SetMain(ctx, userID, accountID)
	})
	if err != nil {
		return txError("set primary account", err)
	}

	s.logger.Info(ctx, "primary account changed", "user_id", userID, "account_id", accountID)
	s.publishPrimary(ctx, userID, accountID)
	return nil
}

// DeleteAccount removes an account. Its captures stay in the collection
// without an account.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, accountID int64) error {
	if err := s.repomanager.Accounts(s.db).Delete(ctx, userID, accountID); err != nil {
		return fmt.Errorf("error deleting account: %w", err)
	}
	return nil
}

func (s *AccountService) DeleteAllAccounts(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repomanager.Accounts(s.db).DeleteAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error deleting accounts: %w", err)
	}
	s.logger.Info(ctx, "accounts deleted", "user_id", userID, "count", n)
	return n, nil
}

func (s *AccountService) publishPrimary(ctx context.Context, userID, accountID int64) {
	publish(ctx, s.publisher, s.logger, events.SubjectAccountPrimary, events.AccountEvent{
		UserID:    userID,
		AccountID: accountID,
		At:        time.Now().UTC(),
	})
}
