package executor

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"incresql/internal/jsontape"
	"incresql/internal/types"
)

// fileScanIter walks directory recursively and parses each non-blank line
// of every file as one JSON tuple (file_scan.rs: "walks all the files in
// the directory, reads them in as json"), yielding (filename, line_no,
// value) per line — the original's get() was left unimplemented, so the
// three-column row shape is inferred from its column_count() == 3 and doc
// comment alone.
type fileScanIter struct {
	directory string

	lines    []fileLine
	walked   bool
	pos      int
}

type fileLine struct {
	file string
	no   int64
	text string
}

func NewFileScan(directory string) TupleIter {
	return &fileScanIter{directory: directory, pos: -1}
}

func (f *fileScanIter) walk() error {
	return filepath.Walk(f.directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		scanner := bufio.NewScanner(file)
		var lineNo int64
		for scanner.Scan() {
			lineNo++
			text := scanner.Text()
			if strings.TrimSpace(text) == "" {
				continue
			}
			f.lines = append(f.lines, fileLine{file: path, no: lineNo, text: text})
		}
		return scanner.Err()
	})
}

func (f *fileScanIter) Advance() error {
	if !f.walked {
		if err := f.walk(); err != nil {
			return err
		}
		f.walked = true
	}
	f.pos++
	return nil
}

func (f *fileScanIter) Get() ([]types.Datum, int64, bool) {
	if f.pos < 0 || f.pos >= len(f.lines) {
		return nil, 0, false
	}
	l := f.lines[f.pos]
	tape, err := jsontape.Parse([]byte(l.text))
	if err != nil {
		return nil, 0, false
	}
	row := []types.Datum{
		types.NewTextString(l.file),
		types.NewBigInt(l.no),
		types.NewJSON(tape, true),
	}
	return row, 1, true
}

func (f *fileScanIter) ColumnCount() int { return 3 }
