package scan

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	auditapp "github.com/khanhnv2901/privscan/internal/application/audit"
	"github.com/khanhnv2901/privscan/internal/checker"
	"github.com/khanhnv2901/privscan/internal/compliance"
	"github.com/khanhnv2901/privscan/internal/domain/audit"
	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/result"
	"github.com/khanhnv2901/privscan/internal/domain/session"
	"github.com/khanhnv2901/privscan/internal/infrastructure/archive"
	"github.com/khanhnv2901/privscan/internal/infrastructure/sessionlog"
	"github.com/khanhnv2901/privscan/internal/observability"
	"github.com/khanhnv2901/privscan/internal/shared/constants"
)

// Prober runs the live transport-security checks for a page URL.
type Prober interface {
	ProbeURL(ctx context.Context, rawURL string) finding.EncryptionResult
}

// Config controls how a scan classifies and schedules folders.
type Config struct {
	Rules         checker.Rules
	LocalAllow    []string
	SessionAllow  []string
	Concurrency   int
	RateLimit     int
	FolderTimeout time.Duration
	// Prober is nil when live probing is disabled.
	Prober    Prober
	Annotator checker.CookieAnnotator
	// Audit records one trail row per folder and seals the trail; nil disables it.
	Audit *auditapp.Service
	// OnFolder is called after each folder finishes, from the worker goroutine.
	OnFolder func(FolderReport)
}

// FolderReport is the outcome of one session folder.
type FolderReport struct {
	Folder   string
	Path     string // saved result document
	Result   *result.SessionResult
	Err      error
	Duration time.Duration
}

// Report summarizes a whole-archive scan.
type Report struct {
	ScanID     string
	Archive    string
	Folders    []FolderReport
	Diagnostic string
	// AuditHash is the sha256 seal of the scan's audit trail, empty when auditing is off.
	AuditHash string
}

// Failed returns the number of folders that produced no document.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Folders {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Service runs archive scans and persists one result document per folder.
type Service struct {
	repo    result.Repository
	cfg     Config
	logger  *zap.SugaredLogger
	now     func() time.Time
	newID   func() string
	tempDir string
}

// NewService creates a new scan service
func NewService(repo result.Repository, cfg Config, logger *zap.SugaredLogger) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if len(cfg.Rules.Cookies.EssentialTerms) == 0 && len(cfg.Rules.Tracking.ResourceTerms) == 0 {
		cfg.Rules = checker.DefaultRules()
	}
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: observability.OrNop(logger),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Run extracts the archive into a scratch directory, analyzes every session
// folder and saves a result document per folder. The scratch directory is
// removed before Run returns. A missing or unreadable archive is an error; an
// archive without session logs yields an empty report.
func (s *Service) Run(ctx context.Context, archivePath string) (*Report, error) {
	scratch, err := os.MkdirTemp(s.tempDir, constants.ScratchDirPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			s.logger.Warnw("failed to remove scratch directory", "dir", scratch, "error", err)
		}
	}()

	sessions, err := archive.Ingest(archivePath, scratch, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest archive: %w", err)
	}

	report := &Report{ScanID: s.newID(), Archive: archivePath}
	if len(sessions) == 0 {
		report.Diagnostic = fmt.Sprintf("no %s found in archive", constants.SessionLogFileName)
		return report, nil
	}

	s.logger.Infow("scan started", "scan_id", report.ScanID, "folders", len(sessions))

	runner := &checker.Runner{
		Concurrency: s.cfg.Concurrency,
		RateLimit:   s.cfg.RateLimit,
		Timeout:     s.cfg.FolderTimeout,
	}
	auditFn := func(sess archive.ExtractedSession, fr FolderReport, err error, duration float64) {
		if err != nil {
			s.logger.Warnw("folder failed", "folder", sess.Folder, "error", err, "duration_s", duration)
		} else {
			s.logger.Infow("folder analyzed", "folder", sess.Folder, "document", fr.Path,
				"passed", fr.Result.OverallPassed(), "duration_s", duration)
		}
		if s.cfg.Audit == nil {
			return
		}
		rec := folderRecord(sess.Folder, fr, err, duration)
		if aerr := s.cfg.Audit.RecordFolder(context.WithoutCancel(ctx), report.ScanID, rec); aerr != nil {
			s.logger.Warnw("failed to record audit entry", "folder", sess.Folder, "error", aerr)
		}
	}
	outcomes := checker.Run(ctx, runner, sessions, func(ctx context.Context, sess archive.ExtractedSession) (FolderReport, error) {
		fr, err := s.analyzeFolder(ctx, report.ScanID, sess)
		if s.cfg.OnFolder != nil {
			fr.Err = err
			s.cfg.OnFolder(fr)
		}
		return fr, err
	}, auditFn)

	report.Folders = make([]FolderReport, len(outcomes))
	for i, o := range outcomes {
		fr := o.Value
		fr.Folder = sessions[i].Folder
		fr.Err = o.Err
		fr.Duration = o.Duration
		report.Folders[i] = fr
	}

	if s.cfg.Audit != nil {
		hash, err := s.cfg.Audit.SealAuditTrail(context.WithoutCancel(ctx), report.ScanID, auditapp.DefaultHashAlgorithm)
		if err != nil {
			s.logger.Warnw("failed to seal audit trail", "scan_id", report.ScanID, "error", err)
		} else {
			report.AuditHash = hash
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	s.logger.Infow("scan finished", "scan_id", report.ScanID, "folders", len(report.Folders), "failed", report.Failed())
	return report, nil
}

// analyzeFolder runs every checker over one session folder and saves the result.
func (s *Service) analyzeFolder(ctx context.Context, scanID string, sess archive.ExtractedSession) (FolderReport, error) {
	start := time.Now()
	fr := FolderReport{Folder: sess.Folder}

	res, err := result.New(scanID, sess.Folder)
	if err != nil {
		return fr, err
	}

	reader, err := sessionlog.Open(sess.LogPath, s.logger)
	if err != nil {
		return fr, err
	}
	entries, err := sessionlog.Collect(reader)
	if err != nil {
		return fr, fmt.Errorf("failed to read session log: %w", err)
	}
	requests, err := sessionlog.LoadRequests(sess.RequestsPath, s.logger)
	if err != nil {
		s.logger.Warnw("ignoring network requests", "folder", sess.Folder, "error", err)
		requests = nil
	}

	if err := res.SetSkippedLines(reader.Skipped()); err != nil {
		return fr, err
	}

	if len(entries) == 0 {
		err = s.fillUnanalyzable(res, reader.Skipped())
	} else {
		err = s.fill(ctx, res, entries, requests)
	}
	if err != nil {
		return fr, err
	}
	if err := ctx.Err(); err != nil {
		return fr, err
	}

	if err := res.SetCriteria(compliance.Evaluate(res)); err != nil {
		return fr, err
	}
	if err := res.Finalize(s.now()); err != nil {
		return fr, err
	}

	path, err := s.repo.Save(ctx, res)
	if err != nil {
		return fr, fmt.Errorf("failed to save result: %w", err)
	}

	fr.Path = path
	fr.Result = res
	fr.Duration = time.Since(start)
	return fr, nil
}

func (s *Service) fillUnanalyzable(res *result.SessionResult, skipped int) error {
	reason := "session log has no valid entries"
	if skipped > 0 {
		reason = fmt.Sprintf("%s (%d malformed line(s) skipped)", reason, skipped)
	}
	if err := res.MarkUnanalyzable(reason); err != nil {
		return err
	}
	return res.SetEncryption(finding.Unprobed(reason))
}

// fill runs the cookie, tracking, storage and encryption checks concurrently.
func (s *Service) fill(ctx context.Context, res *result.SessionResult, entries []session.Entry, requests []session.NetworkRequest) error {
	var (
		cookieIssues []finding.CookieIssue
		trackIssues  []finding.Issue
		crossPage    finding.CrossPageAnalysis
		local, sess  []finding.UnauthorizedEntry
		enc          finding.EncryptionResult
	)

	target := entries[0].URL
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cc := checker.NewCookieChecker(s.cfg.Rules.Cookies, s.cfg.Annotator)
		cookieIssues = cc.Check(cc.Collect(entries))
		return nil
	})
	g.Go(func() error {
		trackIssues = checker.NewTrackingChecker(s.cfg.Rules.Tracking).Check(entries, requests)
		crossPage = checker.Correlate(trackIssues)
		return nil
	})
	g.Go(func() error {
		local, sess = checker.NewStorageAuditor(s.cfg.LocalAllow, s.cfg.SessionAllow).Check(entries)
		return nil
	})
	g.Go(func() error {
		if s.cfg.Prober == nil {
			enc = finding.Unprobed("live probing disabled")
			return nil
		}
		enc = s.cfg.Prober.ProbeURL(gctx, target)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := res.SetTarget(target); err != nil {
		return err
	}
	if err := res.AddCookieIssues(cookieIssues); err != nil {
		return err
	}
	if err := res.AddTrackingIssues(trackIssues); err != nil {
		return err
	}
	if err := res.SetCrossPage(crossPage); err != nil {
		return err
	}
	if err := res.AddStorageViolations(local, sess); err != nil {
		return err
	}
	return res.SetEncryption(enc)
}

func folderRecord(folder string, fr FolderReport, err error, duration float64) auditapp.FolderRecord {
	rec := auditapp.FolderRecord{Folder: folder, Document: fr.Path, Err: err, Duration: duration}
	res := fr.Result
	if res == nil {
		return rec
	}
	rec.Target = res.TargetURL()
	rec.Issues = res.TrackingIssueCount() + len(res.CookieIssues()) +
		len(res.LocalStorageIssues()) + len(res.SessionStorageIssues())
	switch {
	case !res.Analyzable():
		rec.Status = audit.StatusUnanalyzable
	case res.OverallPassed():
		rec.Status = audit.StatusPassed
	default:
		rec.Status = audit.StatusFailed
	}
	return rec
}

// Results returns saved documents, newest first, optionally limited to a folder.
func (s *Service) Results(ctx context.Context, folder string) ([]*result.SessionResult, error) {
	if folder == "" {
		return s.repo.FindAll(ctx)
	}
	return s.repo.FindByFolder(ctx, folder)
}
