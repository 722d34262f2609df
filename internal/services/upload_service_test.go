package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"relief_backend/internal/imageprocessor"
	"relief_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStorage - хранилище в памяти; failAfter > 0 ломает запись с этого по счету файла
type memoryStorage struct {
	mu        sync.Mutex
	files     map[string][]byte
	saves     int
	failAfter int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (s *memoryStorage) Save(_ context.Context, key string, reader io.Reader, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failAfter > 0 && s.saves >= s.failAfter {
		return errors.New("disk full")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.files[key] = data
	return nil
}

func (s *memoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

func (s *memoryStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok, nil
}

func (s *memoryStorage) GetURL(key string) string {
	return "/uploads/" + key
}

func (s *memoryStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for k := range s.files {
		out = append(out, k)
	}
	return out
}

type testFile struct {
	name        string
	contentType string
	data        []byte
}

// multipartFiles собирает настоящие *multipart.FileHeader через ReadForm
func multipartFiles(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		if f.contentType != "" {
			header.Set("Content-Type", f.contentType)
		}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUpload_StoresFilesAndThumbnails(t *testing.T) {
	store := newMemoryStorage()
	svc := NewUploadService(store, nil, imageprocessor.NewProcessor(85))

	resp, err := svc.Upload(context.Background(), multipartFiles(t,
		testFile{name: "flood.png", contentType: "image/png", data: pngBytes(t, 800, 400)},
		testFile{name: "clip.mp4", contentType: "video/mp4", data: []byte("fake video")},
	))

	require.NoError(t, err)
	require.Len(t, resp.Files, 2)
	assert.Len(t, resp.URLs, 2)

	photo := resp.Files[0]
	assert.True(t, strings.HasPrefix(photo.Key, "incidents/"))
	assert.True(t, strings.HasSuffix(photo.Key, ".png"))
	assert.Equal(t, "/uploads/"+photo.Key, photo.URL)
	assert.Contains(t, photo.ThumbnailURL, "/uploads/incidents/thumbs/")

	assert.Empty(t, resp.Files[1].ThumbnailURL)
	assert.Equal(t, "video/mp4", resp.Files[1].ContentType)
	assert.Len(t, store.keys(), 3)
}

func TestUpload_ValidationRejectsBeforeWriting(t *testing.T) {
	store := newMemoryStorage()
	config := GetDefaultUploadConfig()
	config.MaxFileSize = 1024
	svc := NewUploadService(store, config, nil)

	t.Run("no files", func(t *testing.T) {
		_, err := svc.Upload(context.Background(), nil)
		assert.ErrorIs(t, err, apperrors.ErrNoFiles)
	})

	t.Run("disallowed type", func(t *testing.T) {
		_, err := svc.Upload(context.Background(), multipartFiles(t,
			testFile{name: "ok.jpg", contentType: "image/jpeg", data: []byte("jpeg")},
			testFile{name: "run.exe", contentType: "application/x-msdownload", data: []byte("MZ")},
		))
		assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := svc.Upload(context.Background(), multipartFiles(t,
			testFile{name: "big.png", contentType: "image/png", data: bytes.Repeat([]byte("x"), 2048)},
		))
		assert.ErrorIs(t, err, apperrors.ErrFileTooLarge)
	})

	assert.Empty(t, store.keys())
	assert.Equal(t, 0, store.saves)
}

func TestUpload_MimeFromExtension(t *testing.T) {
	store := newMemoryStorage()
	svc := NewUploadService(store, nil, nil)

	resp, err := svc.Upload(context.Background(), multipartFiles(t,
		testFile{name: "photo.webp", data: []byte("webp")},
	))

	require.NoError(t, err)
	assert.Equal(t, "image/webp", resp.Files[0].ContentType)
}

func TestUpload_KeyExtensionFollowsValidatedType(t *testing.T) {
	store := newMemoryStorage()
	svc := NewUploadService(store, nil, nil)

	resp, err := svc.Upload(context.Background(), multipartFiles(t,
		testFile{name: "evil.html", contentType: "image/png", data: []byte("<script>alert(1)</script>")},
		testFile{name: "photo.JPEG", contentType: "image/jpeg", data: []byte("jpeg")},
	))

	require.NoError(t, err)
	require.Len(t, resp.Files, 2)
	assert.True(t, strings.HasSuffix(resp.Files[0].Key, ".png"), resp.Files[0].Key)
	assert.True(t, strings.HasSuffix(resp.Files[1].Key, ".jpg"), resp.Files[1].Key)
	for _, key := range store.keys() {
		assert.NotContains(t, key, ".html")
	}

	// без объявленного типа html остается вне списка разрешенных
	_, err = svc.Upload(context.Background(), multipartFiles(t,
		testFile{name: "evil.html", data: []byte("<script>alert(1)</script>")},
	))
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)
}

func TestUpload_RollsBackOnStorageFailure(t *testing.T) {
	store := newMemoryStorage()
	store.failAfter = 2
	svc := NewUploadService(store, nil, nil)

	_, err := svc.Upload(context.Background(), multipartFiles(t,
		testFile{name: "a.jpg", contentType: "image/jpeg", data: []byte("a")},
		testFile{name: "b.jpg", contentType: "image/jpeg", data: []byte("b")},
	))

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInternalError, appErr.Code)
	assert.Empty(t, store.keys(), "already stored files must be removed")
}
