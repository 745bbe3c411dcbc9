package app

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"intranet_chat/internal/chat/repository"
	errprocess "intranet_chat/pkg/err"
	"intranet_chat/pkg/logger"
	"intranet_chat/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxAttachmentSize 單一附件上限
const MaxAttachmentSize = 10 << 20

// AttachmentHandler 聊天附件上傳
type AttachmentHandler struct {
	repo repository.AttachmentRepository
}

// NewAttachmentHandler create AttachmentHandler
func NewAttachmentHandler(repo repository.AttachmentRepository) *AttachmentHandler {
	return &AttachmentHandler{repo: repo}
}

// Upload 上傳附件
// @Summary 上傳聊天附件
// @Tags Chat
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "附件"
// @Success 200 {object} map[string]interface{} "{ok, text: url}"
// @Failure 400 {object} map[string]interface{} "檔案錯誤"
// @Router /chat/attachments [post]
func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	memberID := middlewares.MemberID(c)

	fh, err := c.FormFile("file")
	if err != nil {
		return attachmentFail(c, errprocess.Validation("upload attachment", "file is required"))
	}
	if fh.Size <= 0 || fh.Size > MaxAttachmentSize {
		return attachmentFail(c, errprocess.Validation("upload attachment", fmt.Sprintf("file size must be between 1 and %d bytes", MaxAttachmentSize)))
	}

	f, err := fh.Open()
	if err != nil {
		return attachmentFail(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxAttachmentSize))
	if err != nil {
		return attachmentFail(c, err)
	}

	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	path := fmt.Sprintf("chat/%s/%s%s", memberID, uuid.New().String(), strings.ToLower(filepath.Ext(fh.Filename)))

	url, err := h.repo.Upload(c.UserContext(), path, data, contentType)
	if err != nil {
		return attachmentFail(c, err)
	}
	logger.Log.Info("attachment uploaded", zap.String("member_id", memberID), zap.String("path", path))
	return c.JSON(fiber.Map{"ok": true, "text": url})
}

func attachmentFail(c *fiber.Ctx, err error) error {
	logger.Log.Warn("upload attachment", zap.Error(err))
	return c.Status(errprocess.HTTPStatus(err)).JSON(fiber.Map{"ok": false, "error": err.Error()})
}
