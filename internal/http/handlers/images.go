package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lessonforge-backend/internal/http/response"
	"github.com/yungbote/lessonforge-backend/internal/platform/apierr"
	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
	"github.com/yungbote/lessonforge-backend/internal/platform/stockphoto"
	"github.com/yungbote/lessonforge-backend/internal/services"
)

const (
	maxImageSide      = 4096
	slideImageMaxKB   = 500
	defaultSlideWidth = 1280
	defaultSlideHigh  = 720
)

type ImageHandler struct {
	log         *logger.Logger
	photos      stockphoto.Service
	placeholder services.PlaceholderImageService
	processor   services.ImageProcessor
}

func NewImageHandler(
	log *logger.Logger,
	photos stockphoto.Service,
	placeholder services.PlaceholderImageService,
	processor services.ImageProcessor,
) *ImageHandler {
	return &ImageHandler{
		log:         log.With("handler", "ImageHandler"),
		photos:      photos,
		placeholder: placeholder,
		processor:   processor,
	}
}

// GET /api/images/search?query=&orientation=&subject=&format=
//
// format=jpeg downloads the photo and returns it cropped and compressed for a slide.
// When nothing is found the JSON body points at the placeholder endpoint instead.
func (h *ImageHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, errors.New("query is required"))
		return
	}
	orientation := c.DefaultQuery("orientation", "landscape")
	subject := c.Query("subject")

	var (
		img *stockphoto.Image
		err error
	)
	if h.photos != nil {
		img, err = h.photos.FetchImage(c.Request.Context(), query, orientation)
		if err != nil {
			h.log.Warn("stock photo search failed", "error", err, "query", query)
		}
	}
	if img == nil {
		response.RespondOK(c, gin.H{
			"image":          nil,
			"placeholderUrl": placeholderURL(query, subject),
		})
		return
	}
	if c.Query("format") != "jpeg" {
		response.RespondOK(c, gin.H{"image": img})
		return
	}

	width, height, err := sizeParams(c, defaultSlideWidth, defaultSlideHigh)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	if err := h.photos.Download(c.Request.Context(), img); err != nil {
		h.log.Warn("stock photo download failed", "error", err, "source", img.Source)
		response.RespondError(c, http.StatusBadGateway, apierr.CodeUpstreamFailed, err)
		return
	}
	out, err := h.processor.CenterCrop(img.Data, width, height)
	if err == nil {
		out, err = h.processor.Compress(out, slideImageMaxKB)
	}
	if err != nil {
		h.log.Error("image processing failed", "error", err, "source", img.Source)
		response.RespondError(c, http.StatusInternalServerError, apierr.CodeGenerationFailed, err)
		return
	}
	c.Header("X-Image-Attribution", img.Attribution)
	c.Data(http.StatusOK, "image/jpeg", out)
}

// GET /api/images/placeholder?query=&subject=&width=&height=
func (h *ImageHandler) Placeholder(c *gin.Context) {
	if h.placeholder == nil {
		response.RespondError(c, http.StatusServiceUnavailable, apierr.CodeUnavailable, errors.New("placeholder images disabled"))
		return
	}
	width, height, err := sizeParams(c, services.PlaceholderWidth, services.PlaceholderHeight)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidRequest, err)
		return
	}
	png, err := h.placeholder.Generate(c.Query("query"), c.Query("subject"), width, height)
	if err != nil {
		h.log.Error("placeholder render failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, apierr.CodeGenerationFailed, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", png)
}

func sizeParams(c *gin.Context, defW, defH int) (int, int, error) {
	w, err := intParam(c, "width", defW)
	if err != nil {
		return 0, 0, err
	}
	h, err := intParam(c, "height", defH)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func intParam(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxImageSide {
		return 0, fmt.Errorf("%s must be between 1 and %d", key, maxImageSide)
	}
	return n, nil
}

func placeholderURL(query, subject string) string {
	v := url.Values{}
	v.Set("query", query)
	if subject != "" {
		v.Set("subject", subject)
	}
	return "/api/images/placeholder?" + v.Encode()
}
