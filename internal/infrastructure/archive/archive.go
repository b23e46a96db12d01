// Package archive locates and extracts per-folder session captures from a zip archive.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/khanhnv2901/privscan/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/privscan/internal/shared/errors"
	"github.com/khanhnv2901/privscan/internal/shared/security"
)

// SessionRef identifies one session folder inside an archive.
type SessionRef struct {
	// Folder is the last element of the log file's directory, or "root".
	Folder string
	// LogName is the archive member name of the session log.
	LogName string
	// RequestsName is the companion network requests member, empty when absent.
	RequestsName string
}

// ExtractedSession points at the extracted files of one session folder.
type ExtractedSession struct {
	Folder       string
	LogPath      string
	RequestsPath string
	// RequestsErr is set when the requests member exists but could not be
	// extracted; the folder is still analyzed without requests.
	RequestsErr error
}

// Archive is an opened capture archive.
type Archive struct {
	path  string
	rc    *zip.ReadCloser
	files map[string]*zip.File
}

// Open opens the archive at path. A missing file yields ErrArchiveNotFound.
func Open(p string) (*Archive, error) {
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", sharedErrors.ErrArchiveNotFound, p)
		}
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrArchiveInvalid, err)
	}

	files := make(map[string]*zip.File, len(rc.File))
	for _, f := range rc.File {
		files[f.Name] = f
	}
	return &Archive{path: p, rc: rc, files: files}, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error {
	return a.rc.Close()
}

// Sessions lists one SessionRef per directory containing a session log,
// ordered by member name.
func (a *Archive) Sessions() []SessionRef {
	var refs []SessionRef
	for name, f := range a.files {
		if f.FileInfo().IsDir() || path.Base(name) != constants.SessionLogFileName {
			continue
		}

		dir := path.Dir(name)
		ref := SessionRef{Folder: folderName(dir), LogName: name}
		companion := path.Join(dir, constants.NetworkRequestsFileName)
		if dir == "." {
			companion = constants.NetworkRequestsFileName
		}
		if _, ok := a.files[companion]; ok {
			ref.RequestsName = companion
		}
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].LogName < refs[j].LogName })
	return refs
}

// Extract writes the session log (and companion requests file, when present)
// under destDir, preserving the member's directory structure. Only a failure
// on the session log is returned as an error.
func (a *Archive) Extract(ref SessionRef, destDir string) (ExtractedSession, error) {
	out := ExtractedSession{Folder: ref.Folder}

	logPath, err := a.extractMember(ref.LogName, destDir)
	if err != nil {
		return ExtractedSession{}, fmt.Errorf("extract session log for %s: %w", ref.Folder, err)
	}
	out.LogPath = logPath

	if ref.RequestsName != "" {
		reqPath, err := a.extractMember(ref.RequestsName, destDir)
		if err != nil {
			out.RequestsErr = fmt.Errorf("extract network requests for %s: %w", ref.Folder, err)
		} else {
			out.RequestsPath = reqPath
		}
	}

	return out, nil
}

func (a *Archive) extractMember(name, destDir string) (string, error) {
	f, ok := a.files[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", sharedErrors.ErrNoSessionLog, name)
	}
	if f.UncompressedSize64 > uint64(constants.MaxExtractBytes) {
		return "", fmt.Errorf("%w: %s", sharedErrors.ErrMemberTooLarge, name)
	}

	target, err := security.ResolveWithin(destDir, filepath.FromSlash(name))
	if err != nil {
		return "", fmt.Errorf("%w: %v", sharedErrors.ErrUnsafePath, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), constants.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("create extraction directory: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open member %s: %w", name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.DefaultFilePerm)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}

	// The header size can lie; cap what is actually copied.
	n, copyErr := io.Copy(dst, io.LimitReader(src, constants.MaxExtractBytes+1))
	closeErr := dst.Close()
	if copyErr != nil {
		return "", fmt.Errorf("write %s: %w", target, copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close %s: %w", target, closeErr)
	}
	if n > constants.MaxExtractBytes {
		_ = os.Remove(target)
		return "", fmt.Errorf("%w: %s", sharedErrors.ErrMemberTooLarge, name)
	}

	return target, nil
}

// Ingest opens the archive, extracts every session folder into destDir and
// returns the extracted sessions. Folders that fail to extract are logged and
// skipped. An archive without session logs returns an empty slice and no error.
func Ingest(archivePath, destDir string, logger *zap.SugaredLogger) ([]ExtractedSession, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	a, err := Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	refs := a.Sessions()
	if len(refs) == 0 {
		logger.Warnw("no session logs found in archive", "archive", archivePath, "expected", constants.SessionLogFileName)
		return []ExtractedSession{}, nil
	}
	logger.Infow("found session logs", "archive", archivePath, "count", len(refs))

	sessions := make([]ExtractedSession, 0, len(refs))
	for _, ref := range refs {
		s, err := a.Extract(ref, destDir)
		if err != nil {
			logger.Warnw("skipping folder", "folder", ref.Folder, "member", ref.LogName, "error", err)
			continue
		}
		if s.RequestsErr != nil {
			logger.Warnw("ignoring network requests", "folder", ref.Folder, "member", ref.RequestsName, "error", s.RequestsErr)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func folderName(dir string) string {
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || dir == "." {
		return constants.RootFolderName
	}
	return path.Base(dir)
}
