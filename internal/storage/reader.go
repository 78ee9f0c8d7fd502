package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"regexp"

	"github.com/IshaanNene/dhscrape/internal/article"
)

// maxLineSize bounds a record; records with page content run to megabytes.
const maxLineSize = 64 * 1024 * 1024

// idRegex reads the id of a record without decoding it. The id is the
// first "id" key of every record.
var idRegex = regexp.MustCompile(`"id"\s*:\s*"([^"]+)"`)

// Filter selects the records a reader decodes. An empty filter keeps every
// record. Indices, when set, override IDs.
type Filter struct {
	IDs     map[string]bool
	Indices map[int]bool
}

func (f Filter) keep(index int, line []byte) (bool, error) {
	if len(f.Indices) > 0 {
		return f.Indices[index], nil
	}
	if len(f.IDs) > 0 {
		id, err := lineID(line)
		if err != nil {
			return false, err
		}
		return f.IDs[id], nil
	}
	return true, nil
}

func lineID(line []byte) (string, error) {
	m := idRegex.FindSubmatch(line)
	if m == nil {
		return "", fmt.Errorf("no id in record")
	}
	return string(m[1]), nil
}

// ReadJSONL decodes the records of path kept by filter and passes each to
// fn with its line index. opts are applied to every decoded article.
func ReadJSONL(path string, filter Filter, fn func(index int, a *article.Article) error, opts ...article.Option) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeJSONL(f, filter, fn, opts...)
}

// DecodeJSONL is ReadJSONL over a reader.
func DecodeJSONL(r io.Reader, filter Filter, fn func(index int, a *article.Article) error, opts ...article.Option) error {
	return scanLines(r, func(index int, line []byte) error {
		keep, err := filter.keep(index, line)
		if err != nil {
			return fmt.Errorf("line %d: %w", index, err)
		}
		if !keep {
			return nil
		}
		a, err := article.Decode(line, opts...)
		if err != nil {
			return fmt.Errorf("line %d: %w", index, err)
		}
		return fn(index, a)
	})
}

// LoadJSONL returns the kept articles of path in file order.
func LoadJSONL(path string, filter Filter, opts ...article.Option) ([]*article.Article, error) {
	var out []*article.Article
	err := ReadJSONL(path, filter, func(_ int, a *article.Article) error {
		out = append(out, a)
		return nil
	}, opts...)
	return out, err
}

// ReadIDs returns the id of every record of path without decoding the
// records. A missing file is not an error: it yields no ids.
func ReadIDs(path string, logger *slog.Logger) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("no file found, returning no ids", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var ids []string
	err = scanLines(f, func(index int, line []byte) error {
		id, err := lineID(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", index, err)
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

// scanLines calls fn for every non-blank line. Blank lines still count
// toward the index.
func scanLines(r io.Reader, fn func(index int, line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for index := 0; sc.Scan(); index++ {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(index, line); err != nil {
			return err
		}
	}
	return sc.Err()
}
