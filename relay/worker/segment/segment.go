// Package segment splits a finished media file into ordered parts
// small enough for the transport. Concatenating the parts in order
// reproduces the source byte for byte; the source itself is never
// touched.
package segment

import (
	"fmt"
	"io"
	"os"

	"github.com/valyala/bytebufferpool"
)

// Part is one bounded piece of a split file. Seq is 1-based and
// matches the order the bytes appeared in the source.
type Part struct {
	Path string
	Seq  int
	Size int64
}

const copyBufSize = 1 << 20

var bufPool bytebufferpool.Pool

// PartName returns the name of the seq-th part of path, e.g.
// "video.mp4.part003".
func PartName(path string, seq int) string {
	return fmt.Sprintf("%s.part%03d", path, seq)
}

// Split cuts the file at path into sequential parts of at most
// partSize bytes each; only the final part may be shorter. An empty
// source yields no parts. On error the parts written so far are
// returned with it so the caller can reclaim them.
func Split(path string, partSize int64) ([]Part, error) {
	if partSize <= 0 {
		return nil, fmt.Errorf("invalid part size %d", partSize)
	}
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	buf := bufPool.Get()
	defer bufPool.Put(buf)
	if cap(buf.B) < copyBufSize {
		buf.B = make([]byte, copyBufSize)
	}
	buf.B = buf.B[:copyBufSize]

	var parts []Part
	for seq := 1; ; seq++ {
		name := PartName(path, seq)
		written, err := writePart(src, name, partSize, buf.B)
		if written == 0 {
			// the previous window ended exactly at EOF
			_ = os.Remove(name)
			return parts, err
		}
		parts = append(parts, Part{Path: name, Seq: seq, Size: written})
		if err != nil {
			return parts, err
		}
		if written < partSize {
			return parts, nil
		}
	}
}

func writePart(src io.Reader, name string, partSize int64, buf []byte) (int64, error) {
	dst, err := os.Create(name)
	if err != nil {
		return 0, err
	}
	written, err := io.CopyBuffer(dst, io.LimitReader(src, partSize), buf)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	return written, err
}
