package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// PackageStore resolves a job ID to its packaged artifact on disk.
// Satisfied by *workspace.Manager.
type PackageStore interface {
	ZipPath(runID string) (string, bool)
}

type DownloadHandler struct {
	store  PackageStore
	logger *slog.Logger
}

func NewDownloadHandler(store PackageStore, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{store: store, logger: logger.With("component", "download_handler")}
}

func (h *DownloadHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	path, ok := h.store.ZipPath(id)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": errPackageNotFound})
		return
	}

	ctx.FileAttachment(path, id+".zip")
}
