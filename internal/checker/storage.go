package checker

import (
	"sort"
	"strings"

	"github.com/khanhnv2901/privscan/internal/domain/finding"
	"github.com/khanhnv2901/privscan/internal/domain/session"
)

// StorageAuditor checks browser storage keys against allow-lists.
type StorageAuditor struct {
	localAllow   []string
	sessionAllow []string
}

// NewStorageAuditor creates an auditor. Each allow-list entry matches a key
// exactly or as a prefix; empty entries are ignored.
func NewStorageAuditor(localAllow, sessionAllow []string) *StorageAuditor {
	return &StorageAuditor{
		localAllow:   compactAllow(localAllow),
		sessionAllow: compactAllow(sessionAllow),
	}
}

// IsAuthorized reports whether key equals or starts with an allow-list entry.
func IsAuthorized(key string, allow []string) bool {
	for _, a := range allow {
		if a == "" {
			continue
		}
		if key == a || strings.HasPrefix(key, a) {
			return true
		}
	}
	return false
}

// Audit returns the unauthorized keys of one storage map, sorted by key.
func Audit(pageURL string, storage map[string]string, allow []string) []finding.UnauthorizedEntry {
	keys := make([]string, 0, len(storage))
	for k := range storage {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []finding.UnauthorizedEntry
	for _, k := range keys {
		if IsAuthorized(k, allow) {
			continue
		}
		out = append(out, finding.UnauthorizedEntry{PageURL: pageURL, Key: k, Value: storage[k]})
	}
	return out
}

// Check audits local and session storage of every entry independently.
func (a *StorageAuditor) Check(entries []session.Entry) (local, sess []finding.UnauthorizedEntry) {
	for _, e := range entries {
		local = append(local, Audit(e.URL, e.LocalStorage, a.localAllow)...)
		sess = append(sess, Audit(e.URL, e.SessionStorage, a.sessionAllow)...)
	}
	return local, sess
}

func compactAllow(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
