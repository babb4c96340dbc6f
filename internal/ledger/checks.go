package ledger

import (
	"fmt"
	"os"
	"regexp"
)

// CheckSize records an error when path is missing or empty on disk. It
// returns true when the file is acceptable for ingestion.
func (l *Ledger) CheckSize(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		l.Error(path, "file does not exist")
		return false
	}
	if info.Size() == 0 {
		l.Error(path, "file has length = 0")
		return false
	}
	return true
}

// CheckName records an error when fileID matches none of the accepted
// patterns. With report false the failure is not recorded, so the check can
// be used to filter candidate lists. An empty pattern list accepts every
// fileID.
func (l *Ledger) CheckName(path, fileID string, patterns []*regexp.Regexp, report bool) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if pattern.MatchString(fileID) {
			return true
		}
	}
	if report {
		l.Error(path, fmt.Sprintf("file_id %q failed namecheck", fileID))
	}
	return false
}
