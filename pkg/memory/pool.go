// Package memory pools the buffers used to read and render upstream
// responses.
package memory

import (
	"bytes"
	"io"
	"sync"
)

// BufferPool manages a pool of reusable bytes.Buffer instances.
type BufferPool struct {
	pool      sync.Pool
	maxPooled int
}

// NewBufferPool creates a buffer pool. Buffers that grew beyond maxPooled
// bytes are dropped on Put instead of being kept alive.
func NewBufferPool(maxPooled int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return &bytes.Buffer{}
			},
		},
		maxPooled: maxPooled,
	}
}

// Get retrieves an empty buffer from the pool.
func (bp *BufferPool) Get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool for reuse.
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > bp.maxPooled {
		return
	}
	bp.pool.Put(buf)
}

// ReadLimited appends at most limit bytes of r to buf and reports whether r
// held more than that.
func ReadLimited(buf *bytes.Buffer, r io.Reader, limit int64) (bool, error) {
	start := buf.Len()
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return false, err
	}
	if n > limit {
		buf.Truncate(start + int(limit))
		return true, nil
	}
	return false, nil
}
