package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/godex/internal/geo"
	"github.com/dmitrijs2005/godex/internal/logging"
	sc "github.com/dmitrijs2005/godex/internal/server/config"
	"github.com/dmitrijs2005/godex/internal/server/models"
	"github.com/dmitrijs2005/godex/internal/server/observability"
	"github.com/dmitrijs2005/godex/internal/server/repositories/repomanager"
)

const exportLinkValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// CollectionExport is the document written to object storage.
type CollectionExport struct {
	UserID     int64                     `json:"user_id"`
	UserName   string                    `json:"username"`
	Home       *string                   `json:"home"`
	ExportedAt time.Time                 `json:"exported_at"`
	Accounts   []models.AccountWithStats `json:"accounts"`
	Captures   []models.Capture          `json:"captures"`
}

// ExportResult points at an uploaded export.
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService snapshots a user's collection to S3-compatible storage.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, config *sc.Config, logger logging.Logger) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: m,
		config:      config,
		logger:      logger.With("module", "export"),
	}
}

// ExportKey returns a fresh object key under the user's export prefix.
func ExportKey(userID int64, d time.Time) string {
	return fmt.Sprintf("exports/%d/%d/%d/%d/%v.json", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ExportService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Snapshot reads everything an export contains from the same transaction,
// so accounts, stats and captures agree with each other.
func (s *ExportService) Snapshot(ctx context.Context, userID int64) (*CollectionExport, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("error starting snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	user, err := s.repomanager.Users(tx).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	accounts, err := s.repomanager.Accounts(tx).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	captures, err := s.repomanager.Captures(tx).List(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("error listing captures: %w", err)
	}

	models.SortAccounts(accounts)

	out := &CollectionExport{
		UserID:     user.ID,
		UserName:   user.UserName,
		ExportedAt: time.Now().UTC(),
		Accounts:   withStats(accounts, models.GroupStatsByAccount(captures)),
		Captures:   captures,
	}
	if user.Home != nil {
		h := geo.FormatPoint(*user.Home)
		out.Home = &h
	}
	return out, nil
}

// Export uploads a JSON snapshot of the user's collection and returns a
// presigned download link.
func (s *ExportService) Export(ctx context.Context, userID int64) (*ExportResult, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("error encoding export: %w", err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := ExportKey(userID, snap.ExportedAt)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(exportLinkValidity))
	if err != nil {
		return nil, fmt.Errorf("error presigning export: %w", err)
	}

	observability.ExportsCreated.Inc()
	s.logger.Info(ctx, "collection exported", "user_id", userID, "key", key, "captures", len(snap.Captures))

	return &ExportResult{Key: key, URL: req.URL, ExpiresAt: time.Now().Add(exportLinkValidity).UTC()}, nil
}
