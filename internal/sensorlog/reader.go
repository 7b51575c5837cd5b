package sensorlog

import (
	"bytes"
	"io"
)

const defaultBlockSize = 64 * 1024

// backwardReader yields the lines of an io.ReaderAt from last to first.
type backwardReader struct {
	r     io.ReaderAt
	off   int64 // bytes before off have not been read yet
	block int64
	tail  []byte // read but not yet returned, always starts at off
	done  bool
}

func newBackwardReader(r io.ReaderAt, size int64, block int) *backwardReader {
	if block <= 0 {
		block = defaultBlockSize
	}
	br := &backwardReader{r: r, off: size, block: int64(block)}
	if size == 0 {
		br.done = true
	}
	return br
}

// Line returns the previous line without its terminator, or io.EOF once the
// start of the input has been returned.
func (br *backwardReader) Line() (string, error) {
	for {
		if br.done {
			return "", io.EOF
		}
		if i := bytes.LastIndexByte(br.tail, '\n'); i >= 0 {
			line := br.tail[i+1:]
			br.tail = br.tail[:i]
			return string(bytes.TrimSuffix(line, []byte{'\r'})), nil
		}
		if br.off == 0 {
			br.done = true
			return string(bytes.TrimSuffix(br.tail, []byte{'\r'})), nil
		}
		if err := br.fill(); err != nil {
			return "", err
		}
	}
}

func (br *backwardReader) fill() error {
	n := br.block
	if n > br.off {
		n = br.off
	}
	br.off -= n
	chunk := make([]byte, n, n+int64(len(br.tail)))
	if _, err := br.r.ReadAt(chunk, br.off); err != nil && err != io.EOF {
		return err
	}
	br.tail = append(chunk, br.tail...)
	return nil
}
