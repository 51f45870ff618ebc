// Package archive compresses aged raw session logs with zstd and prunes
// archives past their retention horizon. Housekeeping is best-effort and
// never fails a pipeline run.
package archive

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Compress writes srcPath into archiveDir as <name>.zst and removes the
// original on success. Returns the archive path.
func Compress(srcPath, archiveDir string) (string, error) {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	destPath := filepath.Join(archiveDir, filepath.Base(srcPath)+".zst")

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer dest.Close()

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		return "", fmt.Errorf("create zstd encoder: %w", err)
	}

	if _, err := io.Copy(encoder, src); err != nil {
		encoder.Close()
		return "", fmt.Errorf("compress: %w", err)
	}

	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("finalize compression: %w", err)
	}

	src.Close()
	if err := os.Remove(srcPath); err != nil {
		log.Printf("warning: could not remove archived log %s: %v", srcPath, err)
	}

	return destPath, nil
}

// Decompress extracts archivePath to a temp file so an archived session
// can be re-analyzed. Returns the temp file path and a cleanup function
// the caller must defer.
func Decompress(archivePath string) (string, func(), error) {
	src, err := os.Open(archivePath)
	if err != nil {
		return "", nil, fmt.Errorf("open archive: %w", err)
	}
	defer src.Close()

	decoder, err := zstd.NewReader(src)
	if err != nil {
		return "", nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()

	tmp, err := os.CreateTemp("", "ctxmap-log-*.log")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, decoder); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("decompress: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("close temp: %w", err)
	}

	cleanup := func() { os.Remove(tmp.Name()) }
	return tmp.Name(), cleanup, nil
}

// SweepResult summarizes one housekeeping pass.
type SweepResult struct {
	Compressed int
	Pruned     int
}

// Sweep compresses completed logs in logsDir older than maxAge and removes
// archives in archiveDir older than retention. Partial logs from live or
// killed recorders are never touched.
func Sweep(logsDir, archiveDir string, maxAge, retention time.Duration, now time.Time) (SweepResult, error) {
	var res SweepResult

	entries, err := os.ReadDir(logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, fmt.Errorf("read logs dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if _, err := Compress(filepath.Join(logsDir, e.Name()), archiveDir); err != nil {
			log.Printf("warning: archive %s: %v", e.Name(), err)
			continue
		}
		res.Compressed++
	}

	archives, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, fmt.Errorf("read archive dir: %w", err)
	}

	for _, e := range archives {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zst") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < retention {
			continue
		}
		if err := os.Remove(filepath.Join(archiveDir, e.Name())); err != nil {
			log.Printf("warning: prune %s: %v", e.Name(), err)
			continue
		}
		res.Pruned++
	}

	return res, nil
}
