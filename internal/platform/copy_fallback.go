//go:build !linux

package platform

// Copy uses the portable read/write path on platforms without
// copy_file_range or sendfile support.
func Copy(req Request) (int64, Method, error) {
	written, err := copyReadWrite(req)
	return written, ReadWrite, err
}
