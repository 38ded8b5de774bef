// Package httpapi exposes the collection tracker over HTTP/JSON using gin.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/godex/internal/server/models"
	"github.com/dmitrijs2005/godex/internal/server/services"
)

// The handlers depend on these narrow views of the services package.

type UserService interface {
	Register(ctx context.Context, username, password string, home *string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
}

type HomeService interface {
	UpdateHome(ctx context.Context, userID int64, raw string) (*services.HomeUpdate, error)
}

type CaptureService interface {
	CreateCapture(ctx context.Context, userID int64, in services.CaptureInput) (*models.Capture, error)
	UpdateCapture(ctx context.Context, userID, id int64, patch services.CaptureUpdate) (*models.Capture, error)
	DeleteCapture(ctx context.Context, userID, id int64) error
	GetCapture(ctx context.Context, userID, id int64) (*models.Capture, error)
	ListCaptures(ctx context.Context, userID int64, q services.CaptureQuery) ([]models.Capture, error)
	DeleteAllCaptures(ctx context.Context, userID int64) (int64, error)
}

type AccountService interface {
	ListAccountsWithStats(ctx context.Context, userID int64) ([]models.AccountWithStats, error)
	GetAccount(ctx context.Context, userID, accountID int64) (*models.Account, error)
	ComputeStats(ctx context.Context, userID, accountID int64) (models.AccountStats, error)
	CreateAccount(ctx context.Context, userID int64, name string, isMain bool) (*models.Account, error)
	UpdateAccount(ctx context.Context, userID, accountID int64, patch services.AccountUpdate) (*models.Account, error)
	SetPrimary(ctx context.Context, userID, accountID int64) error
	DeleteAccount(ctx context.Context, userID, accountID int64) error
	DeleteAllAccounts(ctx context.Context, userID int64) (int64, error)
}

type ExportService interface {
	Export(ctx context.Context, userID int64) (*services.ExportResult, error)
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type RouterConfig struct {
	Users    UserService
	Home     HomeService
	Captures CaptureService
	Accounts AccountService
	Export   ExportService

	JWTSecret      []byte
	CORSOrigins    []string
	RequestTimeout time.Duration
	ReadyChecks    map[string]ReadyCheck
}
