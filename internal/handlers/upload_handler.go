package handlers

import (
	"net/http"

	"relief_backend/internal/services"
	"relief_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ============================================
// UPLOAD HANDLER
// ============================================

type UploadHandler struct {
	*BaseHandler
	uploadService services.UploadService
}

func NewUploadHandler(base *BaseHandler, uploadService services.UploadService) *UploadHandler {
	return &UploadHandler{
		BaseHandler:   base,
		uploadService: uploadService,
	}
}

func (h *UploadHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/upload", h.Auth.AuthMiddleware(), h.UploadFiles)
}

// UploadFiles - загрузка изображений и видео к инциденту (поле files)
func (h *UploadHandler) UploadFiles(c *gin.Context) {
	if _, ok := h.GetAndAuthorizeUserID(c); !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("failed to parse form: "+err.Error()))
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		apperrors.HandleError(c, apperrors.NewBadRequestError("no files provided"))
		return
	}

	response, err := h.uploadService.Upload(c.Request.Context(), files)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}
