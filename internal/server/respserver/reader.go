package respserver

import (
	"errors"
	"io"
)

const (
	// DefaultReadBufferSize is the initial size of a FrameReader buffer.
	DefaultReadBufferSize = 16 * 1024

	// maxIdleBufferSize is the largest buffer kept once it has been drained.
	maxIdleBufferSize = 1024 * 1024

	maxEmptyReads = 100
)

// FrameReader accumulates bytes from a stream and yields complete frames.
// A frame may arrive split across any number of reads, and one read may
// carry several frames.
type FrameReader struct {
	rd    io.Reader
	buf   []byte
	start int
	end   int
}

// NewFrameReader returns a FrameReader reading from rd.
func NewFrameReader(rd io.Reader) *FrameReader {
	return &FrameReader{
		rd:  rd,
		buf: make([]byte, DefaultReadBufferSize),
	}
}

// ReadCommand returns the next command. Buffered frames are returned
// without reading. The command's arguments are only valid until the next
// call to ReadCommand.
//
// A stream that ends between frames yields io.EOF; one that ends inside a
// frame yields io.ErrUnexpectedEOF. Malformed input yields an error
// wrapping ErrProtocol or ErrLimitExceeded.
func (r *FrameReader) ReadCommand() (Command, error) {
	for {
		if r.end > r.start {
			cmd, n, err := ParseFrame(r.buf[r.start:r.end])
			if err == nil {
				r.start += n
				return cmd, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				return nil, err
			}
		}

		if err := r.fill(); err != nil {
			if errors.Is(err, io.EOF) {
				if r.end > r.start {
					return nil, io.ErrUnexpectedEOF
				}
				return nil, io.EOF
			}
			return nil, err
		}
	}
}

// Buffered returns the number of unconsumed bytes.
func (r *FrameReader) Buffered() int {
	return r.end - r.start
}

// fill performs one read into the free tail of the buffer, compacting or
// growing it first when needed.
func (r *FrameReader) fill() error {
	if r.start == r.end {
		r.start, r.end = 0, 0
		if len(r.buf) > maxIdleBufferSize {
			r.buf = make([]byte, DefaultReadBufferSize)
		}
	} else if r.start > 0 {
		// Earlier commands may alias these bytes; they are no longer valid.
		r.end = copy(r.buf, r.buf[r.start:r.end])
		r.start = 0
	}

	if r.end == len(r.buf) {
		grown := make([]byte, 2*len(r.buf))
		copy(grown, r.buf[:r.end])
		r.buf = grown
	}

	for i := 0; i < maxEmptyReads; i++ {
		n, err := r.rd.Read(r.buf[r.end:])
		r.end += n
		if n > 0 {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return io.ErrNoProgress
}
