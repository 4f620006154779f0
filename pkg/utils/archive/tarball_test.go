package archive_test

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/opst/yeastregulatorydb/pkg/utils/archive"
)

type entry struct {
	name    string
	dir     bool
	content string
}

func tarball(t *testing.T, gzipped bool, entries ...entry) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	var w io.Writer = buf
	var gz *pgzip.Writer
	if gzipped {
		gz = pgzip.NewWriter(buf)
		w = gz
	}
	tw := tar.NewWriter(w)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.content)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if !e.dir {
			if _, err := tw.Write([]byte(e.content)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			t.Fatal(err)
		}
	}
	return buf.Bytes()
}

func TestReadFiles(t *testing.T) {
	for name, gzipped := range map[string]bool{"plain tar": false, "tar.gz": true} {
		t.Run("when it is "+name+", it reads regular files by basename", func(t *testing.T) {
			in := tarball(
				t, gzipped,
				entry{name: "uploads/", dir: true},
				entry{name: "uploads/hap4_1.qbed.gz", content: "a"},
				entry{name: "uploads/deeper/gcn4_1.qbed.gz", content: "bb"},
			)
			files, err := archive.ReadFiles(bytes.NewReader(in))
			if err != nil {
				t.Fatal(err)
			}
			if len(files) != 2 {
				t.Fatalf("unexpected files: %v", files)
			}
			if string(files["hap4_1.qbed.gz"]) != "a" || string(files["gcn4_1.qbed.gz"]) != "bb" {
				t.Errorf("unexpected content: %v", files)
			}
		})
	}

	t.Run("when basenames collide, it returns ErrDuplicatedName", func(t *testing.T) {
		in := tarball(
			t, true,
			entry{name: "a/hap4.qbed.gz", content: "1"},
			entry{name: "b/hap4.qbed.gz", content: "2"},
		)
		_, err := archive.ReadFiles(bytes.NewReader(in))
		if !errors.Is(err, archive.ErrDuplicatedName) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when it is not a tar, it returns ErrBrokenArchive", func(t *testing.T) {
		_, err := archive.ReadFiles(bytes.NewReader(bytes.Repeat([]byte("not a tar "), 100)))
		if !errors.Is(err, archive.ErrBrokenArchive) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestTarWalk(t *testing.T) {
	t.Run("when walker returns WalkBreak, it stops without error", func(t *testing.T) {
		in := tarball(
			t, false,
			entry{name: "1.txt", content: "1"},
			entry{name: "2.txt", content: "2"},
		)
		seen := []string{}
		err := archive.TarWalk(bytes.NewReader(in), func(h *tar.Header, _ io.Reader) error {
			seen = append(seen, h.Name)
			return archive.WalkBreak()
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(seen) != 1 || seen[0] != "1.txt" {
			t.Errorf("unexpected walk: %v", seen)
		}
	})
}
