package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrFileTooLarge is returned when an upload exceeds the configured limit.
var ErrFileTooLarge = errors.New("file exceeds maximum upload size")

// ErrExtensionNotAllowed is returned for uploads outside the allowed set.
var ErrExtensionNotAllowed = errors.New("file extension not allowed")

// Store writes uploaded files into a disk-backed bucket and hands out public
// URLs. Object names are collision-resistant: unix-millis plus a random token,
// so two uploads of identically named files in the same millisecond still get
// distinct paths.
type Store struct {
	Dir         string   // bucket root on disk
	Prefix      string   // object key prefix, e.g. "resumes"
	BaseURL     string   // public URL under which Dir is served
	MaxBytes    int64    // zero means unlimited
	AllowedExts []string // e.g. [".pdf", ".doc", ".docx"]; empty means any
	Now         func() time.Time
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Store) extAllowed(ext string) bool {
	if len(s.AllowedExts) == 0 {
		return true
	}
	for _, allowed := range s.AllowedExts {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func randomToken() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ObjectName builds a collision-resistant object name keeping the original
// file's extension.
func (s Store) ObjectName(originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !s.extAllowed(ext) {
		return "", fmt.Errorf("%w: %s", ErrExtensionNotAllowed, ext)
	}
	token, err := randomToken()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), token, ext), nil
}

// Save streams r into the bucket under the configured prefix and returns the
// public URL of the stored object.
func (s Store) Save(originalName string, r io.Reader) (string, error) {
	name, err := s.ObjectName(originalName)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(s.Dir, s.Prefix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	src := r
	if s.MaxBytes > 0 {
		src = io.LimitReader(r, s.MaxBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		os.Remove(dst)
		return "", err
	}
	if s.MaxBytes > 0 && n > s.MaxBytes {
		os.Remove(dst)
		return "", ErrFileTooLarge
	}
	return s.PublicURL(name), nil
}

// PublicURL returns the URL under which the named object is served.
func (s Store) PublicURL(name string) string {
	base := strings.TrimRight(s.BaseURL, "/")
	return base + "/" + path.Join(s.Prefix, name)
}

// Delete removes a stored object given its public URL. Used as saga
// compensation when an insert fails after its upload succeeded.
func (s Store) Delete(publicURL string) error {
	name := path.Base(publicURL)
	if name == "" || name == "." || name == "/" {
		return fmt.Errorf("invalid object url %q", publicURL)
	}
	return os.Remove(filepath.Join(s.Dir, s.Prefix, filepath.Base(name)))
}
