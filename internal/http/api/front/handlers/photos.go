package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/eventhub-saas/eventhub/internal/events"
	"github.com/eventhub-saas/eventhub/internal/http/response"
	"github.com/eventhub-saas/eventhub/internal/models"
	"github.com/eventhub-saas/eventhub/internal/photos"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// PhotoHandler serves gallery and moderation endpoints.
type PhotoHandler struct {
	svc    *photos.Service
	events *events.Service
}

// NewPhotoHandler constructs a PhotoHandler.
func NewPhotoHandler(svc *photos.Service, eventSvc *events.Service) *PhotoHandler {
	return &PhotoHandler{svc: svc, events: eventSvc}
}

type photoStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved rejected"`
}

// readUpload extracts the multipart "file" field. The caller closes the returned body.
func readUpload(c *gin.Context) (photos.Upload, func(), bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, photos.MaxUploadBytes+(1<<20))
	header, errFile := c.FormFile("file")
	if errFile != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(errFile, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, "file too large")
			return photos.Upload{}, nil, false
		}
		response.Fail(c, http.StatusBadRequest, "file is required")
		return photos.Upload{}, nil, false
	}
	if header.Size > photos.MaxUploadBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB", photos.MaxUploadBytes>>20))
		return photos.Upload{}, nil, false
	}
	file, errOpen := header.Open()
	if errOpen != nil {
		response.Fail(c, http.StatusBadRequest, "read file failed")
		return photos.Upload{}, nil, false
	}
	upload := photos.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Caption:     strings.TrimSpace(c.PostForm("caption")),
	}
	return upload, func() { _ = file.Close() }, true
}

// Upload stores an organizer photo.
func (h *PhotoHandler) Upload(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	upload, closeFn, ok := readUpload(c)
	if !ok {
		return
	}
	defer closeFn()
	view, errUpload := h.svc.Upload(c.Request.Context(), sess.TenantID(), eventID, upload)
	if errUpload != nil {
		response.Error(c, errUpload, "upload photo failed")
		return
	}
	response.OK(c, http.StatusCreated, photoView(view))
}

// List returns one page of photos, optionally filtered by status.
func (h *PhotoHandler) List(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	page, errList := h.svc.List(c.Request.Context(), sess.TenantID(), eventID, photos.ListQuery{
		Status: strings.TrimSpace(c.Query("status")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", photos.DefaultPageSize),
	})
	if errList != nil {
		response.Error(c, errList, "list photos failed")
		return
	}
	response.Paged(c, photoViews(page.Photos), response.Meta{Page: page.Page, Limit: page.Limit, Total: page.Total})
}

// SetStatus moves a photo between moderation states.
func (h *PhotoHandler) SetStatus(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	photoID, ok := parseIDParam(c, "photo_id")
	if !ok {
		return
	}
	var body photoStatusRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		response.BindError(c, errBind)
		return
	}
	view, errStatus := h.svc.SetStatus(c.Request.Context(), sess.TenantID(), eventID, photoID, body.Status)
	if errStatus != nil {
		response.Error(c, errStatus, "update photo failed")
		return
	}
	response.OK(c, http.StatusOK, photoView(view))
}

// Delete removes the record, then the stored object.
func (h *PhotoHandler) Delete(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	photoID, ok := parseIDParam(c, "photo_id")
	if !ok {
		return
	}
	if errDelete := h.svc.Delete(c.Request.Context(), sess.TenantID(), eventID, photoID); errDelete != nil {
		response.Error(c, errDelete, "delete photo failed")
		return
	}
	response.OK(c, http.StatusOK, gin.H{"id": photoID})
}

// Archive streams the filtered photos as one zip download.
func (h *PhotoHandler) Archive(c *gin.Context) {
	sess, eventID, ok := eventScope(c)
	if !ok {
		return
	}
	status := strings.TrimSpace(c.Query("status"))
	switch status {
	case "", "all", models.PhotoPending, models.PhotoApproved, models.PhotoRejected:
	default:
		response.Fail(c, http.StatusBadRequest, "invalid status")
		return
	}
	event, errGet := h.events.Get(c.Request.Context(), sess.TenantID(), eventID)
	if errGet != nil {
		response.Error(c, errGet, "load event failed")
		return
	}
	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", photos.ArchiveName(event)))
	c.Status(http.StatusOK)
	result, errArchive := h.svc.WriteArchive(c.Request.Context(), sess.TenantID(), eventID, status, c.Writer)
	if errArchive != nil {
		// Headers are gone; the truncated body is all the client gets.
		log.WithError(errArchive).WithField("event_id", eventID).Error("photo archive failed")
		return
	}
	log.WithFields(log.Fields{"event_id": eventID, "added": result.Added, "skipped": result.Skipped}).Info("photo archive sent")
}
