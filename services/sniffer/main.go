package sniffer

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	verrors "variationutil/api/errors"
	"variationutil/api/models/constants"
	"variationutil/api/models/constants/encoding"

	"github.com/klauspost/pgzip"
)

// The #CHROM line always sits near the top of a VCF; files can run to
// millions of records, so the scan stops here.
const MaxHeaderScanLines = 100000

var (
	gzipMagic      = []byte{0x1f, 0x8b}
	errUnsupported = errors.New("content is not text")
)

// Sniff classifies the file at path as gzip-compressed or plain VCF text.
// It is pure: the file is only read.
func Sniff(path string) (constants.Encoding, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return encoding.Unsupported, verrors.Wrap(verrors.KindNotFound, err, "%s does not exist", path)
		}
		return encoding.Unsupported, verrors.Wrap(verrors.KindFormat, err, "unable to read %s", path)
	}
	defer f.Close()

	magic := make([]byte, 2)
	n, err := io.ReadFull(f, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return encoding.Unsupported, verrors.Wrap(verrors.KindFormat, err, "unable to read %s", path)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return encoding.Unsupported, verrors.Wrap(verrors.KindFormat, err, "unable to read %s", path)
	}

	var (
		r   io.Reader = f
		enc           = encoding.Text
	)
	if n == 2 && bytes.Equal(magic, gzipMagic) {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return encoding.Unsupported, verrors.Wrap(verrors.KindFormat, err, "unsupported file format: %s", path)
		}
		defer gz.Close()

		r = gz
		enc = encoding.Gzip
	}

	found, err := scanForHeader(r, MaxHeaderScanLines)
	if err != nil {
		return encoding.Unsupported, verrors.Wrap(verrors.KindFormat, err, "unsupported file format: %s", path)
	}
	if !found {
		return encoding.Unsupported, verrors.New(verrors.KindFormat, "no valid VCF header line found in %s", path)
	}

	return enc, nil
}

func scanForHeader(r io.Reader, maxLines int) (bool, error) {
	reader := bufio.NewReader(r)
	for i := 0; i < maxLines; i++ {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if strings.IndexByte(line, 0) >= 0 || !utf8.ValidString(line) {
				return false, errUnsupported
			}
			if strings.HasPrefix(line, "#CHROM") {
				return true, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
	}
	return false, nil
}
