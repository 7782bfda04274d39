//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// Copy moves req.Size bytes using the most efficient method available,
// falling through on unsupported/cross-device errors. Returns the bytes
// written and the method that produced them.
func Copy(req Request) (int64, Method, error) {
	preallocate(req.Dst, req.Size)

	written, err := copyFileRange(req)
	if err == nil {
		return written, CopyFileRange, nil
	}
	if !fallbackErr(err) || written > 0 {
		return written, CopyFileRange, err
	}

	written, err = copySendfile(req)
	if err == nil {
		return written, Sendfile, nil
	}
	if !fallbackErr(err) || written > 0 {
		return written, Sendfile, err
	}

	written, err = copyReadWrite(req)
	return written, ReadWrite, err
}

func copyFileRange(req Request) (int64, error) {
	var (
		written int64
		roff    int64
		woff    int64
	)
	for written < req.Size {
		step := min64(req.chunk(), req.Size-written)
		n, err := unix.CopyFileRange(
			int(req.Src.Fd()), &roff,
			int(req.Dst.Fd()), &woff,
			int(step), 0,
		)
		if err != nil {
			return written, err
		}
		if n == 0 {
			break
		}
		written += int64(n)
		if err := req.step(int64(n)); err != nil {
			return written, err
		}
	}
	return written, nil
}

func copySendfile(req Request) (int64, error) {
	var (
		written int64
		off     int64
	)
	for written < req.Size {
		step := min64(req.chunk(), req.Size-written)
		n, err := unix.Sendfile(int(req.Dst.Fd()), int(req.Src.Fd()), &off, int(step))
		if err != nil {
			return written, err
		}
		if n == 0 {
			break
		}
		written += int64(n)
		if err := req.step(int64(n)); err != nil {
			return written, err
		}
	}
	return written, nil
}

// preallocate reserves disk space up front. Errors are ignored:
// fallocate is not supported on all filesystems.
func preallocate(fd *os.File, size int64) {
	if size > 0 {
		_ = unix.Fallocate(int(fd.Fd()), 0, 0, size)
	}
}

// fallbackErr reports whether err should trigger the next copy strategy.
func fallbackErr(err error) bool {
	switch err {
	case unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP:
		return true
	}
	if e, ok := err.(*os.PathError); ok {
		return fallbackErr(e.Err)
	}
	return false
}
