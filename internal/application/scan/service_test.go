package scan

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditapp "github.com/khanhnv2901/privscan/internal/application/audit"
	"github.com/khanhnv2901/privscan/internal/domain/audit"
	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/result"
	"github.com/khanhnv2901/privscan/internal/infrastructure/persistence/json"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
)

const (
	homePage  = `{"url":"https://www.example.com/","cookies_and_origins":{"cookies":[{"name":"_ga","domain":".example.com"},{"name":"PHPSESSID"}]},"local_storage":{"auth_token":"x"},"session_storage":{},"resources":[{"type":"img","url":"https://tracker.net/p.gif","width":1,"height":1}]}`
	aboutPage = `{"url":"https://www.example.com/about","cookies_and_origins":{"cookies":[{"name":"_ga","domain":"other"}]},"local_storage":{"auth_token":"y","uid":"42"},"session_storage":{},"resources":[{"type":"img","url":"https://tracker.net/p.gif","width":1,"height":1},{"type":"img","url":"https://www.example.com/logo.png","width":200,"height":80}]}`
	cleanPage = `{"url":"https://clean.example.org/","cookies_and_origins":{"cookies":[{"name":"PHPSESSID"}]},"local_storage":{},"session_storage":{},"resources":[]}`
)

type fakeProber struct {
	mu   sync.Mutex
	urls []string
}

func (p *fakeProber) ProbeURL(_ context.Context, rawURL string) finding.EncryptionResult {
	p.mu.Lock()
	p.urls = append(p.urls, rawURL)
	p.mu.Unlock()
	return finding.EncryptionResult{
		Domain:              "probed",
		HTTPSAvailable:      true,
		HTTPToHTTPSRedirect: true,
		TLSSSLSecure:        true,
		Probes:              []finding.ProbeOutcome{finding.Succeeded(finding.ProbeHTTPS)},
	}
}

func writeArchive(t *testing.T, members map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	p := filepath.Join(t.TempDir(), "capture.zip")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	return p
}

func newTestService(t *testing.T, cfg Config) (*Service, *json.ResultRepository, string) {
	t.Helper()
	repo, err := json.NewResultRepository(t.TempDir())
	require.NoError(t, err)

	svc := NewService(repo, cfg, nil)
	scratchParent := t.TempDir()
	svc.tempDir = scratchParent
	svc.newID = func() string { return "scan-test" }
	return svc, repo, scratchParent
}

func folderByName(t *testing.T, report *Report, name string) FolderReport {
	t.Helper()
	for _, f := range report.Folders {
		if f.Folder == name {
			return f
		}
	}
	t.Fatalf("folder %q not in report", name)
	return FolderReport{}
}

func TestRun_AnalyzesEveryFolder(t *testing.T) {
	prober := &fakeProber{}
	var mu sync.Mutex
	var seen []string

	svc, repo, scratchParent := newTestService(t, Config{
		LocalAllow:  []string{"auth_token"},
		Concurrency: 2,
		Prober:      prober,
		OnFolder: func(fr FolderReport) {
			mu.Lock()
			seen = append(seen, fr.Folder)
			mu.Unlock()
		},
	})

	archivePath := writeArchive(t, map[string]string{
		"site_a/browser_data_log.jsonl": homePage + "\nnot json\n" + aboutPage + "\n",
		"site_b/browser_data_log.jsonl": cleanPage + "\n",
		"broken/browser_data_log.jsonl": "{\"url\":\n",
		"notes.txt":                     "ignored",
	})

	report, err := svc.Run(context.Background(), archivePath)
	require.NoError(t, err)
	assert.Equal(t, "scan-test", report.ScanID)
	require.Len(t, report.Folders, 3)
	assert.Zero(t, report.Failed())
	assert.ElementsMatch(t, []string{"site_a", "site_b", "broken"}, seen)

	t.Run("tracking and storage findings", func(t *testing.T) {
		res := folderByName(t, report, "site_a").Result
		require.NotNil(t, res)

		assert.Equal(t, "https://www.example.com/", res.TargetURL())
		assert.Equal(t, 1, res.SkippedLines())
		assert.Equal(t, []string{"https://tracker.net/p.gif"}, res.TrackingPixels())
		assert.True(t, res.CrossPageTrackingFound())
		assert.Equal(t, []string{"https://tracker.net/p.gif"}, res.ThirdPartyResources())

		assert.Equal(t, []string{"_ga"}, res.UnnecessaryCookies())
		issues := res.CookieIssues()
		require.Len(t, issues, 1)
		assert.Equal(t, ".example.com", issues[0].Domain, "first record for a name wins")

		local := res.LocalStorageIssues()
		require.Len(t, local, 1)
		assert.Equal(t, "uid", local[0].Key)
		assert.Equal(t, "https://www.example.com/about", local[0].PageURL)
		assert.True(t, res.SessionStoragePassed())

		assert.False(t, res.OverallPassed())
		assert.True(t, res.Encryption().HTTPSAvailable)
		assert.NotEmpty(t, res.Criteria())
	})

	t.Run("clean folder passes", func(t *testing.T) {
		res := folderByName(t, report, "site_b").Result
		require.NotNil(t, res)
		assert.True(t, res.OverallPassed())
		assert.Empty(t, res.TrackingPixels())
		assert.Empty(t, res.UnnecessaryCookies())
	})

	t.Run("folder without valid entries is unanalyzable", func(t *testing.T) {
		res := folderByName(t, report, "broken").Result
		require.NotNil(t, res)
		assert.False(t, res.Analyzable())
		assert.Contains(t, res.Diagnostic(), "no valid entries")
		assert.False(t, res.Encryption().HTTPSAvailable)
		assert.False(t, res.Encryption().TLSSSLSecure)
	})

	t.Run("prober called once per analyzable folder", func(t *testing.T) {
		assert.ElementsMatch(t, []string{"https://www.example.com/", "https://clean.example.org/"}, prober.urls)
	})

	t.Run("documents persisted per folder", func(t *testing.T) {
		all, err := repo.FindAll(context.Background())
		require.NoError(t, err)
		assert.Len(t, all, 3)

		saved, err := svc.Results(context.Background(), "site_a")
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.Equal(t, "scan-test", saved[0].ScanID())
		assert.Equal(t, []string{"https://tracker.net/p.gif"}, saved[0].TrackingPixels())

		for _, f := range report.Folders {
			_, err := os.Stat(f.Path)
			assert.NoError(t, err, "document for %s", f.Folder)
		}
	})

	t.Run("scratch directory removed", func(t *testing.T) {
		left, err := os.ReadDir(scratchParent)
		require.NoError(t, err)
		assert.Empty(t, left)
	})
}

func TestRun_NoProberMarksEncryptionUnprobed(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	archivePath := writeArchive(t, map[string]string{
		"browser_data_log.jsonl": cleanPage + "\n",
	})

	report, err := svc.Run(context.Background(), archivePath)
	require.NoError(t, err)
	require.Len(t, report.Folders, 1)

	f := report.Folders[0]
	require.NoError(t, f.Err)
	assert.Equal(t, "root", f.Folder)
	enc := f.Result.Encryption()
	assert.False(t, enc.HTTPSAvailable)
	require.Len(t, enc.Probes, 1)
	assert.Contains(t, enc.Probes[0].Reason, "probing disabled")
	assert.True(t, f.Result.OverallPassed(), "encryption does not factor into overall_passed")
}

func TestRun_RecordsSealedAuditTrail(t *testing.T) {
	auditRepo, err := json.NewAuditRepository(t.TempDir())
	require.NoError(t, err)
	auditSvc := auditapp.NewService(auditRepo)

	svc, _, _ := newTestService(t, Config{Audit: auditSvc, LocalAllow: []string{"auth_token"}})
	archivePath := writeArchive(t, map[string]string{
		"site_a/browser_data_log.jsonl": homePage + "\n",
		"site_b/browser_data_log.jsonl": cleanPage + "\n",
		"broken/browser_data_log.jsonl": "garbage\n",
	})

	report, err := svc.Run(context.Background(), archivePath)
	require.NoError(t, err)
	assert.Len(t, report.AuditHash, 64)

	trail, err := auditSvc.GetAuditTrail(context.Background(), "scan-test")
	require.NoError(t, err)
	assert.True(t, trail.IsSealed())
	assert.Equal(t, map[string]int{
		audit.StatusPassed:       1,
		audit.StatusFailed:       1,
		audit.StatusUnanalyzable: 1,
	}, trail.Counts())

	for _, e := range trail.Entries() {
		assert.NotEmpty(t, e.Document, "folder %s", e.Folder)
		if e.Folder == "site_a" {
			assert.Equal(t, "https://www.example.com/", e.Target)
			assert.Positive(t, e.Issues)
		}
	}

	ok, err := auditSvc.VerifyIntegrity(context.Background(), "scan-test")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRun_ArchiveWithoutLogs(t *testing.T) {
	svc, repo, scratchParent := newTestService(t, Config{})
	archivePath := writeArchive(t, map[string]string{"readme.txt": "nothing here"})

	report, err := svc.Run(context.Background(), archivePath)
	require.NoError(t, err)
	assert.Empty(t, report.Folders)
	assert.Contains(t, report.Diagnostic, "browser_data_log.jsonl")

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	left, err := os.ReadDir(scratchParent)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRun_MissingArchive(t *testing.T) {
	svc, _, scratchParent := newTestService(t, Config{})

	_, err := svc.Run(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sharedErrors.ErrArchiveNotFound))

	left, err := os.ReadDir(scratchParent)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestRun_CanceledContext(t *testing.T) {
	svc, repo, _ := newTestService(t, Config{Prober: &fakeProber{}})
	archivePath := writeArchive(t, map[string]string{
		"site_a/browser_data_log.jsonl": homePage + "\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Run(ctx, archivePath)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, report.Folders, 1)
	assert.Error(t, report.Folders[0].Err)
	assert.Equal(t, 1, report.Failed())

	var saved []*result.SessionResult
	saved, err = repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved)
}
