package platform

import (
	"io"
	"sync"
)

// rwBufferSize is the pooled buffer size for the portable copy path.
const rwBufferSize = 1 << 20

var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, rwBufferSize)
		return &b
	},
}

// copyReadWrite copies data with a pooled buffer. Works everywhere and
// on every filesystem; used when the fast paths are unavailable.
func copyReadWrite(req Request) (int64, error) {
	bufp := bufPool.Get().(*[]byte)
	defer bufPool.Put(bufp)
	buf := *bufp

	step := req.chunk()
	if step > rwBufferSize {
		step = rwBufferSize
	}

	var written int64
	for written < req.Size {
		toRead := min64(step, req.Size-written)

		n, err := req.Src.Read(buf[:toRead])
		if n > 0 {
			if _, werr := req.Dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if perr := req.step(int64(n)); perr != nil {
				return written, perr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
