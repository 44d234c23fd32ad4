package uploads

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biblioteka/biblioteka/pkg/errcodes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngMagic is a minimal valid PNG header, enough for content sniffing.
var pngMagic = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

func multipartFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["image"][0]
}

func TestStoreSaveImage(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := multipartFileHeader(t, "cover.png", pngMagic)

	publicPath, err := store.SaveImage(header)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(publicPath, "images/"))
	assert.True(t, strings.HasSuffix(publicPath, ".png"))

	// The stored filename is random, not the upload's name.
	assert.NotContains(t, publicPath, "cover")

	stored := filepath.Join(store.Dir(), filepath.Base(publicPath))
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, pngMagic, data)
}

func TestStoreSaveImage_RejectsNonImage(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := multipartFileHeader(t, "cover.png", []byte("#!/bin/sh\necho hi\n"))

	_, err = store.SaveImage(header)
	var ec *errcodes.Error
	require.ErrorAs(t, err, &ec)
	assert.Equal(t, http.StatusUnsupportedMediaType, ec.HTTPCode)
}

func TestStoreRemove(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	header := multipartFileHeader(t, "cover.png", pngMagic)
	publicPath, err := store.SaveImage(header)
	require.NoError(t, err)

	require.NoError(t, store.Remove(publicPath))
	_, err = os.Stat(filepath.Join(store.Dir(), filepath.Base(publicPath)))
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	require.NoError(t, store.Remove(publicPath))
}
