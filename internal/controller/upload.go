package controller

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Upload is a file offered for analysis. Open is only called once the name
// and size passed validation.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// FileUpload describes the file at path.
func FileUpload(path string) (Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, err
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("%s is a directory", path)
	}
	return Upload{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// BytesUpload wraps in-memory content.
func BytesUpload(name string, data []byte) Upload {
	return Upload{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// ValidationError is a user-facing rejection raised before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (c *Controller) validateUpload(up Upload) error {
	if up.Size > c.cfg.MaxUploadBytes {
		return &ValidationError{Message: fmt.Sprintf("File size must be less than %s", humanSize(c.cfg.MaxUploadBytes))}
	}
	ext := strings.ToLower(filepath.Ext(up.Name))
	for _, allowed := range c.cfg.AllowedExtensions {
		if ext != "" && ext == strings.ToLower(allowed) {
			return nil
		}
	}
	return &ValidationError{Message: "Please upload a " + extensionList(c.cfg.AllowedExtensions) + " file"}
}

// readUpload reads at most limit bytes; content longer than its declared
// size is still rejected.
func (c *Controller) readUpload(up Upload) ([]byte, error) {
	rc, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", up.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, c.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", up.Name, err)
	}
	if int64(len(data)) > c.cfg.MaxUploadBytes {
		return nil, &ValidationError{Message: fmt.Sprintf("File size must be less than %s", humanSize(c.cfg.MaxUploadBytes))}
	}
	return data, nil
}

func humanSize(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	if n >= 1024 {
		return fmt.Sprintf("%.0fKB", float64(n)/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}

// extensionList renders [".txt", ".csv", ".json"] as "TXT, CSV, or JSON".
func extensionList(exts []string) string {
	names := make([]string, 0, len(exts))
	for _, e := range exts {
		names = append(names, strings.ToUpper(strings.TrimPrefix(e, ".")))
	}
	switch len(names) {
	case 0:
		return "supported"
	case 1:
		return names[0]
	case 2:
		return names[0] + " or " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
	}
}
