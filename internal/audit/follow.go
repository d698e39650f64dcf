package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Follow streams entries appended to the log file after the call,
// invoking fn for each complete record. It blocks until ctx is
// cancelled. The file may not exist yet; it is picked up on creation.
func Follow(ctx context.Context, path string, fn func(Entry)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("audit: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: the log may be created or
	// replaced while following.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("audit: create directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("audit: watch %s: %w", dir, err)
	}

	var f *os.File
	var offset int64
	var buf []byte
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	// Existing records are not replayed; following starts at the
	// current end of file.
	if file, err := os.Open(path); err == nil {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			_ = file.Close()
			return fmt.Errorf("audit: seek: %w", err)
		}
		f, offset = file, end
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("audit: open log: %w", err)
	}

	drain := func() error {
		if f == nil {
			file, err := os.Open(path)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return fmt.Errorf("audit: open log: %w", err)
			}
			f, offset = file, 0
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("audit: seek: %w", err)
		}
		data, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("audit: read log: %w", err)
		}
		offset += int64(len(data))
		buf = append(buf, data...)

		// Emit complete lines only; the remainder stays buffered until
		// the writer finishes it.
		for {
			i := bytes.IndexByte(buf, '\n')
			if i < 0 {
				return nil
			}
			line := buf[:i]
			buf = buf[i+1:]
			var e Entry
			if err := json.Unmarshal(line, &e); err != nil {
				continue
			}
			fn(e)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := drain(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("audit: watcher: %w", err)
		}
	}
}
