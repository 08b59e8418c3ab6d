package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yonaskd/fleetms/backup"
	"github.com/yonaskd/fleetms/utils"
)

// BackupController exposes the database backup utility over HTTP. Every
// route is admin-only.
type BackupController struct {
	manager *backup.Manager
}

// NewBackupController creates a new BackupController instance.
func NewBackupController(manager *backup.Manager) *BackupController {
	return &BackupController{manager: manager}
}

// Run triggers an immediate backup.
func (b *BackupController) Run(ctx *gin.Context) {
	name, err := b.manager.Run(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "backup failed")
		return
	}
	utils.Success(ctx, gin.H{"archive": name})
}

// List returns the archives on disk, newest first.
func (b *BackupController) List(ctx *gin.Context) {
	infos, err := b.manager.List()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to list backups")
		return
	}
	utils.Success(ctx, infos)
}

// Download streams one archive file.
func (b *BackupController) Download(ctx *gin.Context) {
	path, err := b.manager.Path(ctx.Param("name"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid archive name")
		return
	}
	ctx.FileAttachment(path, ctx.Param("name"))
}

// Restore replaces the database contents from an archive. Destructive, so
// the request must carry confirm=true.
func (b *BackupController) Restore(ctx *gin.Context) {
	var req struct {
		Archive string `json:"archive" binding:"required"`
		Confirm bool   `json:"confirm"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40091, "invalid request payload")
		return
	}
	if !req.Confirm {
		utils.Error(ctx, http.StatusBadRequest, 40092, "restore requires confirm=true")
		return
	}

	if err := b.manager.Restore(ctx.Request.Context(), req.Archive); err != nil {
		switch {
		case errors.Is(err, backup.ErrBadArchiveName):
			utils.Error(ctx, http.StatusBadRequest, 40090, "invalid archive name")
		case errors.Is(err, backup.ErrUnknownArchive):
			utils.Error(ctx, http.StatusNotFound, 40480, "archive not found")
		default:
			utils.Error(ctx, http.StatusInternalServerError, 50082, "restore failed")
		}
		return
	}

	// Everything cached may now be stale.
	utils.InvalidateByPrefix("cache:")
	utils.Success(ctx, nil)
}
