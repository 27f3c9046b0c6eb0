package model

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// DecodeImageDataURI decodes a browser-supplied data URI into raw bytes and
// a sniffed MIME type. The declared MIME type in the URI is advisory; the
// returned type comes from content sniffing so a mislabeled payload cannot
// smuggle an unsupported format past validation.
func DecodeImageDataURI(uri string) ([]byte, string, error) {
	const prefix = "data:"
	if !strings.HasPrefix(uri, prefix) {
		return nil, "", fmt.Errorf("%w: not a data uri", ErrInvalidImageFormat)
	}

	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, "", fmt.Errorf("%w: malformed data uri", ErrInvalidImageFormat)
	}

	meta, payload := uri[len(prefix):comma], uri[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("%w: only base64 data uris are supported", ErrInvalidImageFormat)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImageFormat, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidImageFormat)
	}

	mimeType := http.DetectContentType(data)
	if !supportedImageMIMETypes[mimeType] {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidImageFormat, mimeType)
	}
	return data, mimeType, nil
}
