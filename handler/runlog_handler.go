package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Aashish23092/runlog-ocr/dto"
	"github.com/Aashish23092/runlog-ocr/service"

	"github.com/gin-gonic/gin"
)

type RunLogHandler struct {
	runLogService *service.RunLogService
	maxFileSize   int64
	logger        *slog.Logger
}

func NewRunLogHandler(runLogService *service.RunLogService, maxFileSize int64, logger *slog.Logger) *RunLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunLogHandler{
		runLogService: runLogService,
		maxFileSize:   maxFileSize,
		logger:        logger,
	}
}

// GetRoster handles GET /runlog/roster
func (h *RunLogHandler) GetRoster(c *gin.Context) {
	roster, err := h.runLogService.LoadRoster(c.Request.Context())
	if err != nil {
		h.sendError(c, "Failed to load roster", err)
		return
	}
	c.JSON(http.StatusOK, dto.RosterResponse{Sheet: roster.SheetID, Users: roster.Users()})
}

// StartSession handles POST /runlog/sessions
func (h *RunLogHandler) StartSession(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendBadRequest(c, "Invalid session request", err)
		return
	}

	sess, err := h.runLogService.StartSession(c.Request.Context(), req.UserID)
	if err != nil {
		h.sendError(c, "Failed to start session", err)
		return
	}
	c.JSON(http.StatusCreated, sess.Response())
}

// SelectUser handles PUT /runlog/sessions/:id/user
func (h *RunLogHandler) SelectUser(c *gin.Context) {
	var req dto.SelectUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendBadRequest(c, "user_id is required", err)
		return
	}

	sess, err := h.runLogService.SelectUser(c.Param("id"), req.UserID)
	if err != nil {
		h.sendError(c, "Failed to select user", err)
		return
	}
	c.JSON(http.StatusOK, sess.Response())
}

// Submit handles POST /runlog/sessions/:id/submissions
func (h *RunLogHandler) Submit(c *gin.Context) {
	var form dto.SubmissionForm
	if err := c.ShouldBind(&form); err != nil {
		h.sendBadRequest(c, "A running-log image is required in field 'file'", err)
		return
	}
	contentType, err := form.Validate(h.maxFileSize)
	if err != nil {
		h.sendBadRequest(c, "Invalid upload", err)
		return
	}

	req := service.SubmitRequest{ContentType: contentType}
	if form.Mode != "" {
		if req.Mode, err = dto.ParseExtractionMode(form.Mode); err != nil {
			h.sendBadRequest(c, "Invalid mode", err)
			return
		}
	}
	if form.Policy != "" {
		if req.Policy, err = dto.ParseSelectionPolicy(form.Policy); err != nil {
			h.sendBadRequest(c, "Invalid policy", err)
			return
		}
	}
	if form.Date != "" {
		date, err := dto.ParseDate(form.Date)
		if err != nil {
			h.sendBadRequest(c, "Invalid date", err)
			return
		}
		req.Date = &date
	}

	req.Image, err = readUpload(form)
	if err != nil {
		h.sendBadRequest(c, "Failed to read upload", err)
		return
	}

	sub, err := h.runLogService.Submit(c.Request.Context(), c.Param("id"), req)
	if sub == nil {
		h.sendError(c, "Failed to process submission", err)
		return
	}
	h.sendSubmission(c, sub, err)
}

// GetSubmission handles GET /runlog/sessions/:id/submissions/:sid
func (h *RunLogHandler) GetSubmission(c *gin.Context) {
	sub, err := h.runLogService.Submission(c.Param("id"), c.Param("sid"))
	if err != nil {
		h.sendError(c, "Failed to load submission", err)
		return
	}
	c.JSON(http.StatusOK, sub.Response())
}

// SelectCandidate handles POST /runlog/sessions/:id/submissions/:sid/selection
func (h *RunLogHandler) SelectCandidate(c *gin.Context) {
	var req dto.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendBadRequest(c, "raw_match is required", err)
		return
	}

	sub, err := h.runLogService.Select(c.Request.Context(), c.Param("id"), c.Param("sid"), req.RawMatch)
	if sub == nil {
		h.sendError(c, "Failed to apply selection", err)
		return
	}
	h.sendSubmission(c, sub, err)
}

func readUpload(form dto.SubmissionForm) ([]byte, error) {
	f, err := form.File.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// sendSubmission replies with the submission state. A submission waiting
// for a choice is 202; a stopped one uses the status of its error.
func (h *RunLogHandler) sendSubmission(c *gin.Context, sub *service.Submission, err error) {
	status := http.StatusOK
	switch {
	case err != nil:
		status = statusFor(err)
		h.logger.Warn("submission stopped",
			"submission_id", sub.ID, "state", sub.State, "code", dto.ErrorCode(err), "error", err)
	case sub.State == service.StateAwaitingSelection:
		status = http.StatusAccepted
	}
	c.JSON(status, sub.Response())
}

// sendBadRequest sends a 400 error response
func (h *RunLogHandler) sendBadRequest(c *gin.Context, message string, err error) {
	errorMsg := message
	if err != nil {
		errorMsg = message + ": " + err.Error()
	}
	code := "BAD_REQUEST"
	if errors.Is(err, dto.ErrUnsupportedFile) || errors.Is(err, dto.ErrInvalidDate) {
		code = dto.ErrorCode(err)
	}
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   code,
		Message: errorMsg,
		Code:    http.StatusBadRequest,
	})
}

// sendError sends a structured error response
func (h *RunLogHandler) sendError(c *gin.Context, message string, err error) {
	statusCode := statusFor(err)
	errorMsg := message
	if err != nil {
		errorMsg = err.Error()
	}
	if statusCode >= http.StatusInternalServerError {
		h.logger.Error(message, "error", err)
	}
	c.JSON(statusCode, dto.ErrorResponse{
		Error:   dto.ErrorCode(err),
		Message: errorMsg,
		Code:    statusCode,
	})
}

var codeStatus = map[string]int{
	"RECOGNITION_FAILED":             http.StatusUnprocessableEntity,
	"NO_CANDIDATE_FOUND":             http.StatusUnprocessableEntity,
	"SELECTION_NOT_IN_CANDIDATE_SET": http.StatusUnprocessableEntity,
	"USER_NOT_SELECTED":              http.StatusUnprocessableEntity,
	"AMBIGUOUS_CANDIDATES":           http.StatusConflict,
	"INVALID_TRANSITION":             http.StatusConflict,
	"USER_NOT_FOUND":                 http.StatusNotFound,
	"SHEET_NOT_FOUND":                http.StatusNotFound,
	"SESSION_NOT_FOUND":              http.StatusNotFound,
	"SUBMISSION_NOT_FOUND":           http.StatusNotFound,
	"INVALID_DATE":                   http.StatusBadRequest,
	"UNSUPPORTED_FILE":               http.StatusUnsupportedMediaType,
	"STORE_WRITE_FAILED":             http.StatusBadGateway,
}

func statusFor(err error) int {
	if status, ok := codeStatus[dto.ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}
