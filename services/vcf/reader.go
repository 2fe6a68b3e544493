package vcf

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	verrors "variationutil/api/errors"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/pgzip"
)

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns the decompressed content of a VCF. Block-gzip files are
// read with the BGZF reader, other gzip files with pgzip, and anything
// else is read as text.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.Wrap(verrors.KindNotFound, err, "%s does not exist", path)
		}
		return nil, verrors.Wrap(verrors.KindFormat, err, "unable to open %s", path)
	}

	magic := make([]byte, 2)
	n, _ := io.ReadFull(f, magic)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, verrors.Wrap(verrors.KindFormat, err, "unable to read %s", path)
	}
	if n < 2 || !bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		return f, nil
	}

	if bg, err := bgzf.NewReader(f, 1); err == nil {
		return &multiCloser{Reader: bg, closers: []io.Closer{f, bg}}, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, verrors.Wrap(verrors.KindFormat, err, "unable to read %s", path)
	}
	gz, err := pgzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, verrors.Wrap(verrors.KindFormat, err, "unable to decompress %s", path)
	}
	return &multiCloser{Reader: gz, closers: []io.Closer{f, gz}}, nil
}

// lineReader yields lines without their terminator. Lines of any length
// are supported; wide sample sets produce very long records.
type lineReader struct {
	r    *bufio.Reader
	line int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 1<<20)}
}

func (l *lineReader) next() (string, error) {
	text, err := l.r.ReadString('\n')
	if len(text) == 0 && err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", verrors.Wrap(verrors.KindFormat, err, "read failed after line %d", l.line)
	}
	l.line++
	return strings.TrimRight(text, "\r\n"), nil
}

// DeclaredVersion returns the raw ##fileformat value, i.e. "VCFv4.1".
func DeclaredVersion(path string) (string, error) {
	rc, err := Open(path)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	lr := newLineReader(rc)
	for {
		line, err := lr.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		if strings.HasPrefix(line, "##fileformat=") {
			return strings.TrimSpace(strings.TrimPrefix(line, "##fileformat=")), nil
		}
		if !strings.HasPrefix(line, "##") {
			break
		}
	}
	return "", verrors.New(verrors.KindVersion, "no ##fileformat line declared in %s", path)
}
