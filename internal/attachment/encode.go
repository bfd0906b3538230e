// Package attachment turns uploaded files and recorded audio into the
// base64 attachments embedded in capsules.
package attachment

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/hpungsan/timeless/internal/capsule"
	"github.com/hpungsan/timeless/internal/errors"
)

// DefaultMaxBytes bounds attachments when no limit is configured.
const DefaultMaxBytes int64 = 25 << 20

// FromReader reads r fully and encodes it as an attachment.
// An empty or generic mimeType is sniffed from the content.
func FromReader(name, mimeType string, r io.Reader, maxBytes int64) (*capsule.AttachmentFile, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("failed to read attachment: %v", err))
	}
	if n > maxBytes {
		return nil, errors.NewAttachmentTooLarge(maxBytes, n)
	}
	return FromBytes(name, mimeType, buf.Bytes()), nil
}

// FromBytes encodes data as an attachment.
func FromBytes(name, mimeType string, data []byte) *capsule.AttachmentFile {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return &capsule.AttachmentFile{
		Name:     name,
		Type:     mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
		Checksum: Checksum(data),
	}
}

// Checksum returns the hex BLAKE3 digest of data.
func Checksum(data []byte) string {
	h := blake3.New()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Decode returns the raw bytes of f, verifying the checksum when present.
func Decode(f *capsule.AttachmentFile) ([]byte, error) {
	if f == nil {
		return nil, errors.NewInvalidRequest("no attachment")
	}
	data, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("attachment %q is not valid base64", f.Name))
	}
	if f.Checksum != "" && Checksum(data) != f.Checksum {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("attachment %q failed checksum verification", f.Name))
	}
	return data, nil
}

// DataURL renders f as a data: URL for inline playback.
func DataURL(f *capsule.AttachmentFile) string {
	if f == nil {
		return ""
	}
	return "data:" + f.Type + ";base64," + f.Data
}

// ParseDataURL splits a base64 data: URL into its MIME type and content.
func ParseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URL has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data URL payload: %w", err)
	}
	return mimeType, data, nil
}

// IsImageDataURL reports whether s is a base64 data: URL with an image/* type.
func IsImageDataURL(s string) bool {
	mimeType, _, err := ParseDataURL(s)
	return err == nil && strings.HasPrefix(mimeType, "image/")
}
