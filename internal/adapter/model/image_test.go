package model

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is the 8-byte PNG signature plus enough trailing bytes for
// content sniffing to identify it.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func pngDataURI() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
}

func TestDecodeImageDataURI_PNG(t *testing.T) {
	data, mimeType, err := DecodeImageDataURI(pngDataURI())
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, pngHeader, data)
}

func TestDecodeImageDataURI_SniffedTypeWinsOverDeclared(t *testing.T) {
	// PNG bytes declared as JPEG: the sniffed type is returned.
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(pngHeader)

	_, mimeType, err := DecodeImageDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
}

func TestDecodeImageDataURI_Rejections(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"not a data uri", "https://example.com/cat.png"},
		{"no comma", "data:image/png;base64"},
		{"not base64 encoded", "data:image/png,rawbytes"},
		{"invalid base64 payload", "data:image/png;base64,!!!not-base64!!!"},
		{"empty payload", "data:image/png;base64,"},
		{"unsupported content", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("just plain text"))},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeImageDataURI(tt.uri)
			assert.ErrorIs(t, err, ErrInvalidImageFormat)
		})
	}
}
