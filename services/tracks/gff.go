package tracks

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	verrors "variationutil/api/errors"

	. "github.com/ahmetb/go-linq"
)

type gffLine struct {
	seqid string
	start int64
	line  int
	text  string
}

// SortGff writes src to dst with comment lines first and features ordered
// by seqid, then numeric start, then input order.
func SortGff(src string, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return verrors.Wrap(verrors.KindNotFound, err, "unable to open %s", src)
	}
	defer f.Close()

	var comments []string
	var features []gffLine

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 0; scanner.Scan(); n++ {
		text := scanner.Text()
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "#") {
			comments = append(comments, text)
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) < 9 {
			return verrors.New(verrors.KindFormat, "%s line %d: expected 9 columns, got %d", src, n+1, len(cols))
		}
		start, err := strconv.ParseInt(cols[3], 10, 64)
		if err != nil {
			return verrors.Wrap(verrors.KindFormat, err, "%s line %d: bad start %q", src, n+1, cols[3])
		}
		features = append(features, gffLine{seqid: cols[0], start: start, line: n, text: text})
	}
	if err := scanner.Err(); err != nil {
		return verrors.Wrap(verrors.KindFormat, err, "unable to read %s", src)
	}

	var sorted []gffLine
	From(features).
		OrderByT(func(g gffLine) string { return g.seqid }).
		ThenByT(func(g gffLine) int64 { return g.start }).
		ThenByT(func(g gffLine) int { return g.line }).
		ToSlice(&sorted)

	return writeLines(dst, func(w *bufio.Writer) {
		for _, c := range comments {
			w.WriteString(c + "\n")
		}
		for _, g := range sorted {
			w.WriteString(g.text + "\n")
		}
	})
}
