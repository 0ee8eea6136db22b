package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/inkwellhq/inkwell-backend/internal/upload"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// UploadHandler exposes the upload collaborator: signed upload authorization
// and direct binary upload
type UploadHandler struct {
	provider *upload.Provider
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(provider *upload.Provider) *UploadHandler {
	return &UploadHandler{provider: provider}
}

// RegisterUploadRoutes registers upload-related routes
func (h *UploadHandler) RegisterUploadRoutes(g *echo.Group) {
	g.GET("/upload-auth", h.UploadAuth)
	g.POST("/upload", h.Upload)
}

// UploadAuth exchanges the server credentials for a time-boxed signed upload
// authorization
func (h *UploadHandler) UploadAuth(c echo.Context) error {
	if h.provider == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Upload provider not configured")
	}

	objectName, err := objectName(c.QueryParam("filename"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	auth, err := h.provider.SignUpload(c.Request().Context(), objectName)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, auth)
}

// Upload stores the posted binary and returns its stable URL
func (h *UploadHandler) Upload(c echo.Context) error {
	if h.provider == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Upload provider not configured")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "File is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to open uploaded file")
	}
	defer file.Close()

	name, err := objectName(fileHeader.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	url, err := h.provider.Store(c.Request().Context(), name,
		fileHeader.Header.Get("Content-Type"), file, fileHeader.Size)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// objectName builds a collision-free object key, keeping the original
// extension so the store serves a sensible content type
func objectName(filename string) (string, error) {
	token, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate object name: %w", err)
	}
	return token + filepath.Ext(filename), nil
}
