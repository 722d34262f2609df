package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"relief_backend/internal/imageprocessor"
	"relief_backend/internal/logger"
	"relief_backend/internal/services/dto"
	"relief_backend/internal/storage"
	"relief_backend/pkg/apperrors"
)

// ============================================
// КОНФИГУРАЦИЯ
// ============================================

type UploadConfig struct {
	MaxFileSize  int64
	AllowedTypes []string
	// KeyPrefix - каталог внутри хранилища
	KeyPrefix string
}

func GetDefaultUploadConfig() *UploadConfig {
	return &UploadConfig{
		MaxFileSize: 10 * 1024 * 1024, // 10MB
		AllowedTypes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"video/mp4", "video/webm", "video/ogg",
		},
		KeyPrefix: "incidents",
	}
}

type UploadService interface {
	// Upload сохраняет все файлы или ни одного
	Upload(ctx context.Context, files []*multipart.FileHeader) (*dto.UploadResponse, error)
}

type uploadService struct {
	storage    storage.Storage
	config     *UploadConfig
	thumbnails *imageprocessor.Processor
	now        func() time.Time
}

// NewUploadService - thumbnails == nil отключает превью
func NewUploadService(storage storage.Storage, config *UploadConfig, thumbnails *imageprocessor.Processor) UploadService {
	if config == nil {
		config = GetDefaultUploadConfig()
	}
	return &uploadService{
		storage:    storage,
		config:     config,
		thumbnails: thumbnails,
		now:        time.Now,
	}
}

func (s *uploadService) Upload(ctx context.Context, files []*multipart.FileHeader) (*dto.UploadResponse, error) {
	if len(files) == 0 {
		return nil, apperrors.ErrNoFiles
	}

	// Сначала проверяем все файлы, чтобы не писать ничего при первой же ошибке
	contentTypes := make([]string, len(files))
	for i, file := range files {
		contentType, err := s.validateFile(file)
		if err != nil {
			return nil, err
		}
		contentTypes[i] = contentType
	}

	resp := &dto.UploadResponse{
		URLs:  make([]string, 0, len(files)),
		Files: make([]dto.UploadedFile, 0, len(files)),
	}
	written := make([]string, 0, len(files))

	for i, file := range files {
		key := s.generateKey(contentTypes[i])

		if err := s.saveFile(ctx, key, file, contentTypes[i]); err != nil {
			logger.CtxWithError(ctx, "upload failed, removing already stored files", err, "key", key, "stored", len(written))
			s.rollback(ctx, written)
			return nil, apperrors.InternalError(err)
		}
		written = append(written, key)

		url := s.storage.GetURL(key)
		uploaded := dto.UploadedFile{
			URL:         url,
			Key:         key,
			Name:        file.Filename,
			Size:        file.Size,
			ContentType: contentTypes[i],
		}
		if thumbKey, ok := s.saveThumbnail(ctx, key, file, contentTypes[i]); ok {
			written = append(written, thumbKey)
			uploaded.ThumbnailURL = s.storage.GetURL(thumbKey)
		}

		resp.URLs = append(resp.URLs, url)
		resp.Files = append(resp.Files, uploaded)
	}

	logger.CtxInfo(ctx, "files uploaded", "count", len(written))
	return resp, nil
}

func (s *uploadService) saveFile(ctx context.Context, key string, file *multipart.FileHeader, contentType string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	return s.storage.Save(ctx, key, src, contentType)
}

// saveThumbnail кладет превью рядом с оригиналом: incidents/thumbs/{имя}.
// Ошибка превью не отменяет загрузку.
func (s *uploadService) saveThumbnail(ctx context.Context, key string, file *multipart.FileHeader, contentType string) (string, bool) {
	if s.thumbnails == nil || !imageprocessor.Supports(contentType) {
		return "", false
	}

	src, err := file.Open()
	if err != nil {
		logger.CtxWarn(ctx, "thumbnail skipped", "key", key, "error", err.Error())
		return "", false
	}
	defer src.Close()

	thumb, thumbType, err := s.thumbnails.Thumbnail(src, imageprocessor.SizeThumbnail)
	if err != nil {
		logger.CtxWarn(ctx, "thumbnail skipped", "key", key, "error", err.Error())
		return "", false
	}

	thumbKey := s.config.KeyPrefix + "/thumbs/" + strings.TrimPrefix(key, s.config.KeyPrefix+"/")
	if err := s.storage.Save(ctx, thumbKey, thumb, thumbType); err != nil {
		logger.CtxWarn(ctx, "thumbnail skipped", "key", key, "error", err.Error())
		return "", false
	}
	return thumbKey, true
}

func (s *uploadService) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			logger.CtxWithError(ctx, "failed to remove uploaded file", err, "key", key)
		}
	}
}

// validateFile возвращает объявленный MIME-тип без параметров
func (s *uploadService) validateFile(file *multipart.FileHeader) (string, error) {
	if file.Size > s.config.MaxFileSize {
		return "", apperrors.ErrFileTooLarge.WithDetails(map[string]interface{}{
			"file":    file.Filename,
			"maxSize": s.config.MaxFileSize,
		})
	}

	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = getMimeTypeFromFilename(file.Filename)
	}
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	mimeType = strings.ToLower(mimeType)

	if !contains(s.config.AllowedTypes, mimeType) {
		return "", apperrors.ErrInvalidFileType.WithDetails(map[string]interface{}{
			"file":    file.Filename,
			"type":    mimeType,
			"allowed": s.config.AllowedTypes,
		})
	}
	return mimeType, nil
}

// generateKey - {prefix}/{unixMillis}_{random}.{ext}.
// Расширение берется только из проверенного MIME-типа, имя файла клиента не используется.
func (s *uploadService) generateKey(contentType string) string {
	ext := extensionForMime(contentType)
	return fmt.Sprintf("%s/%d_%s%s", s.config.KeyPrefix, s.now().UnixMilli(), generateSecureRandomString(12), ext)
}

func getMimeTypeFromFilename(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".ogg", ".ogv":
		return "video/ogg"
	default:
		return "application/octet-stream"
	}
}

func extensionForMime(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/ogg":
		return ".ogv"
	}
	// типы, добавленные в конфиг
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func generateSecureRandomString(length int) string {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)[:length]
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
