package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	auditapp "github.com/khanhnv2901/privscan/internal/application/audit"
	scanapp "github.com/khanhnv2901/privscan/internal/application/scan"
	"github.com/khanhnv2901/privscan/internal/checker"
	"github.com/khanhnv2901/privscan/internal/domain/audit"
	"github.com/khanhnv2901/privscan/internal/domain/result"
	"github.com/khanhnv2901/privscan/internal/infrastructure/cookiedb"
	"github.com/khanhnv2901/privscan/internal/infrastructure/persistence/json"
)

// Options selects the optional collaborators wired into the container.
type Options struct {
	ResultsDir   string
	CookieDBPath string // empty disables cookie annotation
	NoProbe      bool
	NoAudit      bool
	Scan         scanapp.Config
}

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Repositories
	ResultRepo result.Repository
	AuditRepo  audit.Repository
	CookieDB   *cookiedb.DB

	// Services
	Prober       *checker.EncryptionProber
	AuditService *auditapp.Service
	ScanService  *scanapp.Service
}

// NewContainer creates a new application service container
func NewContainer(ctx context.Context, opts Options, logger *zap.SugaredLogger) (*Container, error) {
	// Initialize repositories
	resultRepo, err := json.NewResultRepository(opts.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create result repository: %w", err)
	}

	auditRepo, err := json.NewAuditRepository(opts.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit repository: %w", err)
	}

	c := &Container{
		ResultRepo:   resultRepo,
		AuditRepo:    auditRepo,
		AuditService: auditapp.NewService(auditRepo),
	}

	if opts.CookieDBPath != "" {
		db, err := cookiedb.Load(ctx, opts.CookieDBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to load cookie database: %w", err)
		}
		c.CookieDB = db
		opts.Scan.Annotator = db
	}

	// Initialize services
	c.Prober = checker.NewEncryptionProber(logger)
	if !opts.NoProbe {
		opts.Scan.Prober = c.Prober
	}
	if !opts.NoAudit {
		opts.Scan.Audit = c.AuditService
	}
	c.ScanService = scanapp.NewService(resultRepo, opts.Scan, logger)

	return c, nil
}

// Close releases resources held by the container.
func (c *Container) Close() error {
	if c.CookieDB != nil {
		return c.CookieDB.Close()
	}
	return nil
}
