package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// maxLineSize bounds scanner buffers when reading the log.
const maxLineSize = 1 << 20

// Read returns all complete entries in the log. A trailing partial line
// (from a crash mid-write) is ignored; a malformed line anywhere else is
// an error. A missing file yields no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	var pendingErr error
	var pendingLine int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		// A parse failure only counts once a later line proves the bad
		// line was not the trailing partial write.
		if pendingErr != nil {
			return nil, fmt.Errorf("audit: line %d: %w", pendingLine, pendingErr)
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			pendingErr = err
			pendingLine = lineNum
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: read log: %w", err)
	}
	return entries, nil
}

// Tail returns the last n complete entries.
func Tail(path string, n int) ([]Entry, error) {
	entries, err := Read(path)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// VerifyResult holds the outcome of a log integrity check.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Records   int    `json:"records"`
	Partial   bool   `json:"partial,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify walks the log and checks that every line is an independently
// parseable record. A single unparseable trailing line is reported as
// Partial but does not invalidate the log.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	res := VerifyResult{}
	var pendingErr string
	var pendingLine int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if pendingErr != "" {
			return VerifyResult{
				Records:   res.Records,
				Error:     pendingErr,
				ErrorLine: pendingLine,
			}
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			pendingErr = fmt.Sprintf("parse error: %v", err)
			pendingLine = lineNum
			continue
		}
		res.Records++
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{Records: res.Records, Error: fmt.Sprintf("scan: %v", err)}
	}

	res.Valid = true
	res.Partial = pendingErr != ""
	return res
}
