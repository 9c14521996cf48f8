package handler

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/trivia-challenge-api/internal/domain/entity"
	"github.com/yourusername/trivia-challenge-api/internal/handler/dto"
	"github.com/yourusername/trivia-challenge-api/internal/middleware"
	apperrors "github.com/yourusername/trivia-challenge-api/internal/pkg/errors"
)

// ChallengeService - операции над вопросами, нужные обработчику
type ChallengeService interface {
	GenerateChallenge(ctx context.Context, userID, difficulty string) (*entity.Challenge, error)
	GetHistory(ctx context.Context, userID string) ([]entity.Challenge, error)
	GetQuota(ctx context.Context, userID string) (*entity.ChallengeQuota, error)
}

// ChallengeHandler обрабатывает запросы, связанные с вопросами и квотой
type ChallengeHandler struct {
	service ChallengeService
	log     logrus.FieldLogger
}

// NewChallengeHandler создает новый обработчик вопросов
func NewChallengeHandler(service ChallengeService, log logrus.FieldLogger) *ChallengeHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChallengeHandler{service: service, log: log}
}

// GenerateChallenge обрабатывает POST /api/generate-challenge
func (h *ChallengeHandler) GenerateChallenge(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		h.handleChallengeError(c, apperrors.ErrUnauthorized)
		return
	}

	var req dto.GenerateChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	challenge, err := h.service.GenerateChallenge(c.Request.Context(), userID, req.Difficulty)
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewChallengeResponse(challenge))
}

// GetHistory обрабатывает GET /api/my-history
func (h *ChallengeHandler) GetHistory(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		h.handleChallengeError(c, apperrors.ErrUnauthorized)
		return
	}

	challenges, err := h.service.GetHistory(c.Request.Context(), userID)
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewHistoryResponse(challenges))
}

// GetQuota обрабатывает GET /api/quota
func (h *ChallengeHandler) GetQuota(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		h.handleChallengeError(c, apperrors.ErrUnauthorized)
		return
	}

	quota, err := h.service.GetQuota(c.Request.Context(), userID)
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuotaResponse(quota))
}

// ExportHistory обрабатывает GET /api/my-history/export?format=csv|xlsx
func (h *ChallengeHandler) ExportHistory(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		h.handleChallengeError(c, apperrors.ErrUnauthorized)
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	challenges, err := h.service.GetHistory(c.Request.Context(), userID)
	if err != nil {
		h.handleChallengeError(c, err)
		return
	}

	filename := fmt.Sprintf("challenge_history_%s", time.Now().Format("2006-01-02"))

	if format == "xlsx" {
		h.exportXLSX(c, challenges, filename)
		return
	}
	h.exportCSV(c, challenges, filename)
}

var exportHeaders = []string{"ID", "Date", "Difficulty", "Question", "Option A", "Option B", "Option C", "Option D", "Correct", "Explanation"}

// exportRow раскладывает вопрос по колонкам экспорта
func exportRow(c *entity.Challenge) []string {
	row := []string{
		strconv.FormatUint(uint64(c.ID), 10),
		c.DateCreated.UTC().Format(time.RFC3339),
		sanitizeForExcel(c.Difficulty),
		sanitizeForExcel(c.Title),
	}
	for i := 0; i < entity.ChallengeOptionsCount; i++ {
		option := ""
		if i < len(c.Options) {
			option = sanitizeForExcel(c.Options[i])
		}
		row = append(row, option)
	}

	correct := ""
	if c.IsValidOption(c.CorrectAnswerID) {
		correct = sanitizeForExcel(c.Options[c.CorrectAnswerID])
	}
	return append(row, correct, sanitizeForExcel(c.ExplanationText()))
}

// exportCSV экспортирует историю в CSV с BOM для Excel
func (h *ChallengeHandler) exportCSV(c *gin.Context, challenges []entity.Challenge, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
	c.Status(http.StatusOK)

	// BOM для корректного отображения UTF-8 в Excel
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	_ = writer.Write(exportHeaders)
	for i := range challenges {
		_ = writer.Write(exportRow(&challenges[i]))
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.log.WithError(err).Error("[ChallengeHandler] Ошибка записи CSV")
	}
}

// exportXLSX экспортирует историю в Excel через StreamWriter
func (h *ChallengeHandler) exportXLSX(c *gin.Context, challenges []entity.Challenge, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "History"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		h.handleChallengeError(c, fmt.Errorf("failed to rename sheet: %w", err))
		return
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		h.handleChallengeError(c, fmt.Errorf("failed to create stream writer: %w", err))
		return
	}

	if err := sw.SetRow("A1", toCells(exportHeaders)); err != nil {
		h.handleChallengeError(c, fmt.Errorf("failed to write headers: %w", err))
		return
	}
	for i := range challenges {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, toCells(exportRow(&challenges[i]))); err != nil {
			h.handleChallengeError(c, fmt.Errorf("failed to write row %d: %w", i+2, err))
			return
		}
	}
	if err := sw.Flush(); err != nil {
		h.handleChallengeError(c, fmt.Errorf("failed to flush xlsx: %w", err))
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.log.WithError(err).Error("[ChallengeHandler] Ошибка записи Excel в response")
	}
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// handleChallengeError переводит ошибки сервиса в HTTP ответы
func (h *ChallengeHandler) handleChallengeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "Quota exceeded. Please try again later.", "error_type": "quota_exceeded"})
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Challenge generation already in progress", "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrGenerationFailed):
		h.log.WithError(err).Warn("[ChallengeHandler] Генерация вопроса не удалась")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate challenge", "error_type": "generation_failed"})
	default:
		h.log.WithError(err).Error("[ChallengeHandler] Internal server error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
