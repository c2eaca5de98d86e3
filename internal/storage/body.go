package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// readBody loads the local file into memory, gzip-compressing it when asked.
// S3-style APIs need a seekable body with a known length for request signing.
func readBody(localPath string, compress bool) (*bytes.Reader, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if compress {
		if err := gzipTo(&buf, f); err != nil {
			return nil, err
		}
	} else if _, err := io.Copy(&buf, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", localPath, err)
	}
	return bytes.NewReader(buf.Bytes()), nil
}

func gzipTo(dst io.Writer, src io.Reader) error {
	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		zw.Close()
		return fmt.Errorf("gzip body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("gzip body: %w", err)
	}
	return nil
}

func contentEncoding(compress bool) string {
	if compress {
		return "gzip"
	}
	return ""
}
