package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/service"
	"github.com/ignatzorin/marketplace-backend/internal/storage"
)

// Разрешённые типы файлов результата работы
var allowedAttachmentMimeTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
	"application/zip": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
}

// MilestoneHandler обслуживает маршруты этапов проекта.
type MilestoneHandler struct {
	milestones *service.MilestoneService
	storage    *storage.AttachmentStorage
}

// NewMilestoneHandler создаёт новый хэндлер.
func NewMilestoneHandler(milestones *service.MilestoneService, storage *storage.AttachmentStorage) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones, storage: storage}
}

// ListByProject обрабатывает GET /api/milestones/project/:id.
func (h *MilestoneHandler) ListByProject(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	milestones, err := h.milestones.ListProjectMilestones(c.Request.Context(), projectID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, milestones)
}

type updateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// UpdateStatus обрабатывает PUT /api/milestones/:id/status.
// Повторный запрос с тем же статусом идемпотентен.
func (h *MilestoneHandler) UpdateStatus(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	milestoneID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req updateStatusRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	milestone, err := h.milestones.Transition(c.Request.Context(), milestoneID, userID, req.Status, req.Notes)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, milestone)
}

// Submit обрабатывает POST /api/milestones/:id/submit.
// Принимает multipart форму с файлами результата: файлы сохраняются,
// после чего статус и вложения фиксируются одной операцией.
func (h *MilestoneHandler) Submit(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	milestoneID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ожидается multipart форма с файлами"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "необходимо приложить хотя бы один файл результата"})
		return
	}

	attachments := make([]models.MilestoneAttachment, 0, len(files))
	saved := make([]string, 0, len(files))

	for _, file := range files {
		mimeType, err := sniffAttachmentType(file)
		if err != nil {
			h.cleanupSaved(c, saved)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		src, err := file.Open()
		if err != nil {
			h.cleanupSaved(c, saved)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		relativePath, size, err := h.storage.Save(c.Request.Context(), milestoneID, file.Filename, src)
		src.Close()
		if err != nil {
			h.cleanupSaved(c, saved)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		saved = append(saved, relativePath)

		attachments = append(attachments, models.MilestoneAttachment{
			FileName:  filepath.Base(file.Filename),
			FilePath:  filepath.ToSlash(relativePath),
			MimeType:  mimeType,
			SizeBytes: size,
			CreatedAt: time.Now(),
		})
	}

	milestone, err := h.milestones.SubmitWork(c.Request.Context(), milestoneID, userID, attachments)
	if err != nil {
		h.cleanupSaved(c, saved)
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, milestone)
}

type fundRequest struct {
	PaymentID string `json:"payment_id" binding:"required,uuid"`
}

// Fund обрабатывает POST /api/milestones/:id/fund.
// Подтверждает поступление платежа и переводит этап в funded.
func (h *MilestoneHandler) Fund(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	milestoneID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req fundRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_id должен быть валидным UUID"})
		return
	}

	milestone, err := h.milestones.ConfirmFunding(c.Request.Context(), milestoneID, userID, paymentID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, milestone)
}

// Escrow обрабатывает GET /api/milestones/:id/escrow.
func (h *MilestoneHandler) Escrow(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	milestoneID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transactions, err := h.milestones.EscrowView(c.Request.Context(), milestoneID, userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

type planStepRequest struct {
	Title      string     `json:"title" binding:"required"`
	Amount     float64    `json:"amount" binding:"required,gt=0"`
	DeadlineAt *time.Time `json:"deadline_at"`
}

type approvePlanRequest struct {
	Steps []planStepRequest `json:"steps" binding:"required,min=1,dive"`
}

// ApprovePlan обрабатывает POST /api/projects/:id/milestones/plan.
// Утверждение плана создаёт этапы проекта в статусе pending.
func (h *MilestoneHandler) ApprovePlan(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	// Утверждать план может только клиент; владение проектом проверит сервис.
	if role, err := common.CurrentUserRole(c); err != nil || role != models.RoleClient {
		c.JSON(http.StatusForbidden, gin.H{"error": "план этапов утверждает заказчик"})
		return
	}

	projectID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req approvePlanRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	steps := make([]service.PlanStep, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, service.PlanStep{
			Title:      s.Title,
			Amount:     s.Amount,
			DeadlineAt: s.DeadlineAt,
		})
	}

	milestones, err := h.milestones.ApprovePlan(c.Request.Context(), projectID, userID, steps)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, milestones)
}

// sniffAttachmentType проверяет магические байты и возвращает реальный MIME тип.
func sniffAttachmentType(file *multipart.FileHeader) (string, error) {
	if file.Size == 0 {
		return "", fmt.Errorf("файл %s пустой", file.Filename)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("не удалось открыть файл %s", file.Filename)
	}
	defer src.Close()

	buffer := make([]byte, 512)
	n, err := src.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("не удалось прочитать файл %s", file.Filename)
	}

	kind, err := filetype.Match(buffer[:n])
	if err != nil || kind == filetype.Unknown {
		return "", fmt.Errorf("не удалось определить тип файла %s", file.Filename)
	}

	mimeType := kind.MIME.Value
	if !allowedAttachmentMimeTypes[mimeType] {
		return "", fmt.Errorf("неподдерживаемый тип файла %s (%s)", file.Filename, mimeType)
	}

	return mimeType, nil
}

// cleanupSaved удаляет уже сохранённые файлы при ошибке оформления сдачи.
func (h *MilestoneHandler) cleanupSaved(c *gin.Context, saved []string) {
	for _, path := range saved {
		_ = h.storage.Delete(c.Request.Context(), path)
	}
}
