package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mediflow-server/internal/middleware"
	"mediflow-server/internal/models"
	"mediflow-server/internal/storage"
	"mediflow-server/internal/utils"
)

// maxDocumentBytes caps a single uploaded document.
const maxDocumentBytes = 10 << 20 // 10 MiB

// MedicalRecordHandler handles patient-owned medical records and their
// attached documents. Record rows live in the database; document bytes live
// in the storage backend, referenced by opaque paths.
type MedicalRecordHandler struct {
	DB    *gorm.DB
	Store storage.Store
	Log   zerolog.Logger
}

// NewMedicalRecordHandler creates a new MedicalRecordHandler.
func NewMedicalRecordHandler(db *gorm.DB, store storage.Store, log zerolog.Logger) *MedicalRecordHandler {
	return &MedicalRecordHandler{DB: db, Store: store, Log: log}
}

// CreateMedicalRecord creates a record owned by the calling patient. The
// request is multipart: title, description and folder fields plus zero or
// more files under the "documents" field.
func (h *MedicalRecordHandler) CreateMedicalRecord(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	title := c.PostForm("title")
	if title == "" {
		utils.BadRequest(c, "Title is required")
		return
	}

	record := models.MedicalRecord{
		PatientID:   actor.ID,
		Title:       title,
		Description: c.PostForm("description"),
		Folder:      c.PostForm("folder"),
	}

	form, err := c.MultipartForm()
	if err != nil && err != http.ErrNotMultipart {
		utils.BadRequest(c, "Invalid multipart form: "+err.Error())
		return
	}

	var paths []string
	if form != nil {
		for _, fileHeader := range form.File["documents"] {
			if fileHeader.Size > maxDocumentBytes {
				utils.BadRequest(c, "Document exceeds the 10 MB limit: "+fileHeader.Filename)
				return
			}
			f, err := fileHeader.Open()
			if err != nil {
				utils.InternalServerError(c, "Failed to read upload: "+err.Error())
				return
			}
			path, err := h.Store.Save(c.Request.Context(), actor.ID, fileHeader.Filename, f)
			f.Close()
			if err != nil {
				utils.InternalServerError(c, "Failed to store document: "+err.Error())
				return
			}
			paths = append(paths, path)
		}
	}

	docs, err := utils.ToJSON(paths)
	if err != nil {
		utils.InternalServerError(c, "Failed to encode document list: "+err.Error())
		return
	}
	record.Documents = datatypes.JSON(docs)

	if err := h.DB.Create(&record).Error; err != nil {
		// Rows and files stay consistent: on a failed insert the uploaded
		// bytes are removed again.
		for _, p := range paths {
			if derr := h.Store.Delete(c.Request.Context(), p); derr != nil {
				h.Log.Warn().Err(derr).Str("path", p).Msg("orphaned document cleanup failed")
			}
		}
		utils.InternalServerError(c, "Failed to create medical record: "+err.Error())
		return
	}

	utils.Created(c, "Medical record created successfully", record)
}

// ListMedicalRecords returns the calling patient's records, newest first.
// An optional folder query narrows the listing.
func (h *MedicalRecordHandler) ListMedicalRecords(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	query := h.DB.Where("patient_id = ?", actor.ID).Order("created_at DESC")
	if folder := c.Query("folder"); folder != "" {
		query = query.Where("folder = ?", folder)
	}

	var records []models.MedicalRecord
	if err := query.Find(&records).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medical records: "+err.Error())
		return
	}

	utils.Success(c, "Medical records fetched successfully", records)
}

// canReadRecord reports whether the actor may read the record: the owning
// patient, an admin, or a doctor who shares an active or completed
// appointment with the patient.
func (h *MedicalRecordHandler) canReadRecord(actor middleware.Actor, record *models.MedicalRecord) (bool, error) {
	if actor.ID == record.PatientID || actor.Role == models.RoleAdmin {
		return true, nil
	}
	if actor.Role != models.RoleDoctor {
		return false, nil
	}

	readable := append([]models.AppointmentStatus{models.StatusCompleted}, models.ActiveStatuses...)
	var count int64
	err := h.DB.Model(&models.Appointment{}).
		Where("doctor_id = ? AND patient_id = ? AND status IN ?", actor.ID, record.PatientID, readable).
		Count(&count).Error
	return count > 0, err
}

// GetMedicalRecord fetches one record.
func (h *MedicalRecordHandler) GetMedicalRecord(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	recordID := c.Param("id")

	var record models.MedicalRecord
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	allowed, err := h.canReadRecord(actor, &record)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if !allowed {
		utils.Forbidden(c, "You are not authorized to view this medical record")
		return
	}

	utils.Success(c, "Medical record fetched successfully", record)
}

// DownloadDocument streams one attached document. The path query names the
// opaque storage path, which must appear in the record's document list.
func (h *MedicalRecordHandler) DownloadDocument(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	recordID := c.Param("id")
	docPath := c.Query("path")
	if docPath == "" {
		utils.BadRequest(c, "path query parameter is required")
		return
	}

	var record models.MedicalRecord
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	allowed, err := h.canReadRecord(actor, &record)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if !allowed {
		utils.Forbidden(c, "You are not authorized to view this medical record")
		return
	}

	var paths []string
	if len(record.Documents) > 0 {
		if err := json.Unmarshal(record.Documents, &paths); err != nil {
			utils.InternalServerError(c, "Stored document list is malformed")
			return
		}
	}
	found := false
	for _, p := range paths {
		if p == docPath {
			found = true
			break
		}
	}
	if !found {
		utils.NotFound(c, "Document not found on this record")
		return
	}

	reader, err := h.Store.Open(c.Request.Context(), docPath)
	if err != nil {
		if err == storage.ErrNotFound || err == storage.ErrInvalidPath {
			utils.NotFound(c, "Document not found")
		} else {
			utils.InternalServerError(c, "Failed to open document: "+err.Error())
		}
		return
	}
	defer reader.Close()

	contentType := mime.TypeByExtension(filepath.Ext(docPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		h.Log.Warn().Err(err).Str("path", docPath).Msg("document stream interrupted")
	}
}

// UpdateMedicalRecordRequest is the body for editing record metadata.
// Documents are managed at creation time; editing the file set is a delete
// and re-create.
type UpdateMedicalRecordRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Folder      string `json:"folder"`
}

// UpdateMedicalRecord edits a record's metadata. Only the owning patient may
// update it.
func (h *MedicalRecordHandler) UpdateMedicalRecord(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	recordID := c.Param("id")

	var record models.MedicalRecord
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if record.PatientID != actor.ID {
		utils.Forbidden(c, "You are not authorized to modify this medical record")
		return
	}

	var req UpdateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if req.Title != "" {
		record.Title = req.Title
	}
	if req.Description != "" {
		record.Description = req.Description
	}
	if req.Folder != "" {
		record.Folder = req.Folder
	}

	if err := h.DB.Save(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to update medical record: "+err.Error())
		return
	}

	utils.Success(c, "Medical record updated successfully", record)
}

// DeleteMedicalRecord removes a record and its stored documents. Only the
// owning patient may delete it.
func (h *MedicalRecordHandler) DeleteMedicalRecord(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	recordID := c.Param("id")

	var record models.MedicalRecord
	if err := h.DB.First(&record, "id = ?", recordID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Medical record not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if record.PatientID != actor.ID {
		utils.Forbidden(c, "You are not authorized to delete this medical record")
		return
	}

	if err := h.DB.Delete(&record).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete medical record: "+err.Error())
		return
	}

	var paths []string
	if len(record.Documents) > 0 && json.Unmarshal(record.Documents, &paths) == nil {
		for _, p := range paths {
			if err := h.Store.Delete(c.Request.Context(), p); err != nil && err != storage.ErrNotFound {
				h.Log.Warn().Err(err).Str("path", p).Msg("document cleanup failed")
			}
		}
	}

	utils.Success(c, "Medical record deleted successfully", nil)
}
