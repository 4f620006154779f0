// Package archive reads files out of tar archives uploaded for bulk ingestion.
package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/klauspost/pgzip"
)

var (
	// two entries of an archive have the same basename.
	ErrDuplicatedName = errors.New("duplicated file name in archive")

	ErrBrokenArchive = errors.New("broken archive")
)

type walkBreak struct {
	error string
}

func (w walkBreak) Error() string {
	return w.error
}

func WalkBreak() walkBreak {
	return walkBreak{}
}

// handler of tar entry.
//
// args:
//   - header: header of tar entry
//   - payload: `io.Reader` points the content of the tar entry.
//
// return:
//
//	any error which caused in a handler.
//	You can early terminate with return `WalkBreak()`
type TarWalker func(header *tar.Header, payload io.Reader) error

// traverse tar entries.
//
// args:
//   - from io.Reader: tar stream, or gzipped tar stream.
//     Compression is detected by the magic bytes, not by the file name.
//     This function does not close `from`.
//   - walker TarWalker: tar entry handler.
//
// return: error, caused reading the archive or returned by walker.
//
//	If nothing happens, it returns `nil`.
func TarWalk(from io.Reader, walker TarWalker) error {
	br := bufio.NewReader(from)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	var in io.Reader = br
	if bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gzin, err := pgzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBrokenArchive, err)
		}
		defer gzin.Close()
		in = gzin
	}

	tarin := tar.NewReader(in)
	for {
		header, err := tarin.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBrokenArchive, err)
		}
		err = walker(header, tarin)
		if err == nil {
			continue
		}
		switch err.(type) {
		case walkBreak:
			return nil
		default:
			return err
		}
	}
}

// ReadFiles reads all regular files in the archive, keyed by their basenames.
//
// Directory structure in the archive is ignored.
// If two files share a basename, it returns an error wrapping ErrDuplicatedName.
func ReadFiles(from io.Reader) (map[string][]byte, error) {
	files := map[string][]byte{}
	err := TarWalk(from, func(header *tar.Header, payload io.Reader) error {
		if header.Typeflag != tar.TypeReg {
			return nil
		}
		name := path.Base(header.Name)
		if _, ok := files[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatedName, name)
		}
		content, err := io.ReadAll(payload)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBrokenArchive, err)
		}
		files[name] = content
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
