package journal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/velostream/velostream/internal/runtime/config"
)

// fileJournal is the shared machinery of the file-backed strategies: a ring
// of preallocated journal files written sequentially, rotating to the next
// file when the current one is exhausted.
type fileJournal struct {
	dir      string
	fileSize int64
	pageSize int
	count    int

	files    []*os.File
	index    int
	position int64
}

func newFileJournal(dir string, fileSize int64, pageSize, count int) *fileJournal {
	if fileSize <= 0 {
		fileSize = config.DefaultJournalFileSize
	}
	if pageSize <= 0 {
		pageSize = config.DefaultJournalPageSize
	}
	if count <= 0 {
		count = 1
	}
	return &fileJournal{dir: dir, fileSize: fileSize, pageSize: pageSize, count: count}
}

func (j *fileJournal) open() error {
	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return fmt.Errorf("velostream: journal dir: %w", err)
	}

	j.files = make([]*os.File, j.count)
	for i := 0; i < j.count; i++ {
		name := filepath.Join(j.dir, fmt.Sprintf("journal-%d.dat", i))
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			j.closeAll()
			return fmt.Errorf("velostream: journal file %s: %w", name, err)
		}
		if err := preallocate(f, j.fileSize, j.pageSize); err != nil {
			j.closeAll()
			return fmt.Errorf("velostream: preallocate %s: %w", name, err)
		}
		j.files[i] = f
	}
	j.index = 0
	j.position = 0
	return nil
}

// preallocate forces the file to its full size in page-sized chunks so later
// writes never extend it.
func preallocate(f *os.File, size int64, pageSize int) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() >= size {
		return nil
	}

	page := make([]byte, pageSize)
	for offset := info.Size(); offset < size; offset += int64(pageSize) {
		chunk := page
		if remaining := size - offset; remaining < int64(pageSize) {
			chunk = page[:remaining]
		}
		if _, err := f.WriteAt(chunk, offset); err != nil {
			return err
		}
	}
	return nil
}

// advance rotates to the next journal file if the record does not fit in the
// current one. Records larger than a whole journal file are refused.
func (j *fileJournal) advance(recordLength int) error {
	if int64(recordLength) > j.fileSize {
		return fmt.Errorf("velostream: record of %d bytes exceeds journal file size %d", recordLength, j.fileSize)
	}
	if j.position+int64(recordLength) > j.fileSize {
		j.index = (j.index + 1) % j.count
		j.position = 0
	}
	return nil
}

func (j *fileJournal) current() *os.File {
	return j.files[j.index]
}

func (j *fileJournal) flush() error {
	return j.current().Sync()
}

func (j *fileJournal) closeAll() error {
	var first error
	for _, f := range j.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	j.files = nil
	return first
}

// Seek is the seek-based file strategy: one Seek to the write position, then
// a sequential write.
type Seek struct {
	*fileJournal
}

// NewSeek builds a seek-based journalling strategy over count preallocated
// files of fileSize bytes under dir.
func NewSeek(dir string, fileSize int64, pageSize, count int) *Seek {
	return &Seek{fileJournal: newFileJournal(dir, fileSize, pageSize, count)}
}

func (s *Seek) Open() error { return s.open() }

func (s *Seek) Write(p []byte) (int, error) {
	if err := s.advance(len(p)); err != nil {
		return 0, err
	}
	f := s.current()
	if _, err := f.Seek(s.position, 0); err != nil {
		return 0, err
	}
	n, err := f.Write(p)
	s.position += int64(n)
	return n, err
}

func (s *Seek) Flush() error { return s.flush() }
func (s *Seek) Close() error { return s.closeAll() }

// Positional is the positional-I/O file strategy: WriteAt against a tracked
// offset, no seeking.
type Positional struct {
	*fileJournal
}

// NewPositional builds a positional journalling strategy over count
// preallocated files of fileSize bytes under dir.
func NewPositional(dir string, fileSize int64, pageSize, count int) *Positional {
	return &Positional{fileJournal: newFileJournal(dir, fileSize, pageSize, count)}
}

func (s *Positional) Open() error { return s.open() }

func (s *Positional) Write(p []byte) (int, error) {
	if err := s.advance(len(p)); err != nil {
		return 0, err
	}
	n, err := s.current().WriteAt(p, s.position)
	s.position += int64(n)
	return n, err
}

func (s *Positional) Flush() error { return s.flush() }
func (s *Positional) Close() error { return s.closeAll() }
