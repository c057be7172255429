package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ogzhanolguncu/product-stats/logger"
	"github.com/ogzhanolguncu/product-stats/map_reduce"
)

const (
	PartFile    = "part-r-00000"
	SuccessFile = "_SUCCESS"
)

// DirSink writes a run into an output directory: the sorted result lines in
// PartFile and the run manifest in SuccessFile. A directory without
// SuccessFile holds no committed output.
type DirSink struct {
	log *logger.Logger
	dir string
}

func NewDirSink(dir string, log *logger.Logger) *DirSink {
	return &DirSink{dir: dir, log: log}
}

func (s *DirSink) Dir() string {
	return s.dir
}

// Prepare clears whatever is at the output path and checks that the file
// system has at least reserve bytes available.
func (s *DirSink) Prepare(reserve int64) error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("%w: clearing output %s: %w", map_reduce.ErrIO, s.dir, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating output %s: %w", map_reduce.ErrIO, s.dir, err)
	}

	free, ok, err := availableBytes(s.dir)
	if err != nil {
		return fmt.Errorf("%w: checking free space in %s: %w", map_reduce.ErrIO, s.dir, err)
	}
	if ok && reserve > 0 && free < uint64(reserve) {
		return fmt.Errorf("%w: %s has %d bytes free, need %d", map_reduce.ErrIO, s.dir, free, reserve)
	}
	s.log.Debugf("Output directory %s ready (free=%d, reserve=%d)", s.dir, free, reserve)
	return nil
}

// Commit stages both files as synced temp files before renaming either, and
// removes the part file again if the success marker cannot be put in place.
func (s *DirSink) Commit(lines []string, m Manifest) error {
	manifest, err := marshalManifest(m)
	if err != nil {
		return fmt.Errorf("%w: encoding manifest: %w", map_reduce.ErrIO, err)
	}

	partTmp, err := writeTemp(s.dir, func(w *bufio.Writer) error {
		for _, line := range lines {
			if _, err := w.WriteString(line); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: staging %s: %w", map_reduce.ErrIO, PartFile, err)
	}
	successTmp, err := writeTemp(s.dir, func(w *bufio.Writer) error {
		_, err := w.Write(manifest)
		return err
	})
	if err != nil {
		os.Remove(partTmp)
		return fmt.Errorf("%w: staging %s: %w", map_reduce.ErrIO, SuccessFile, err)
	}

	part := filepath.Join(s.dir, PartFile)
	if err := os.Rename(partTmp, part); err != nil {
		os.Remove(partTmp)
		os.Remove(successTmp)
		return fmt.Errorf("%w: writing %s: %w", map_reduce.ErrIO, part, err)
	}
	success := filepath.Join(s.dir, SuccessFile)
	if err := os.Rename(successTmp, success); err != nil {
		os.Remove(part)
		os.Remove(successTmp)
		return fmt.Errorf("%w: writing %s: %w", map_reduce.ErrIO, success, err)
	}

	s.log.Infof("Committed %d lines to %s", len(lines), part)
	return nil
}

// writeTemp fills a hidden temp file in dir, syncs it and returns its path.
func writeTemp(dir string, fill func(w *bufio.Writer) error) (_ string, err error) {
	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := bufio.NewWriter(f)
	if err = fill(w); err != nil {
		return "", err
	}
	if err = w.Flush(); err != nil {
		return "", err
	}
	if err = f.Sync(); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return tmp, nil
}

// ReadManifest returns the manifest of a committed output directory.
func ReadManifest(dir string) (Manifest, error) {
	b, err := os.ReadFile(filepath.Join(dir, SuccessFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: reading manifest: %w", map_reduce.ErrIO, err)
	}
	return unmarshalManifest(b)
}
