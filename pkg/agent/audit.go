package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// AuditLog appends before/after memory snapshots for each cross-domain
// training step to a plain-text case-study file. It is an optional debug
// surface; failures to write are swallowed after a best-effort attempt so
// an unwritable log never fails a step.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog creates the case-study log's parent directory if needed.
func NewAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("agent: create audit log directory: %w", err)
	}
	return &AuditLog{path: path}, nil
}

// Before records the state read at the start of a step.
func (a *AuditLog) Before(userID, itemID, domain, privateMem, crossPref, itemMem string) {
	a.append(fmt.Sprintf("===before update===\nuserid:%s\nitemid:%s\ndomain:%s\nprivate_memory:\n%s\ncross_domain_preference:\n%s\nitem_memory:\n%s\n\n",
		userID, itemID, domain, privateMem, crossPref, itemMem))
}

// After records the state persisted at the end of a step.
func (a *AuditLog) After(userID, itemID, domain, privateMem, privateAll, crossPref, itemMem string) {
	a.append(fmt.Sprintf("===after update===\nuserid:%s\nitemid:%s\ndomain:%s\nprivate_memory:\n%s\nprivate_descriptions:\n%s\ncross_domain_preference:\n%s\nitem_memory:\n%s\n\n",
		userID, itemID, domain, privateMem, privateAll, crossPref, itemMem))
}

func (a *AuditLog) append(block string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(block)
}
