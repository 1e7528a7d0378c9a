package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"transportal/internal/apperr"
	"transportal/internal/appointment"
	"transportal/internal/auth"
	"transportal/internal/reporting"
	"transportal/internal/shift"
	"transportal/internal/store"
	"transportal/internal/student"
)

// Handler wires the HTTP surface to the services.
type Handler struct {
	shifts   *shift.Repository
	scans    *shift.Service
	appts    *appointment.Service
	students *student.Repository
	reports  *reporting.Service
	cache    *store.Redis // nil when redis is unavailable

	jwtIssuer  string
	jwtKey     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	cacheTTL   time.Duration
}

// New creates a handler.
func New(shifts *shift.Repository, scans *shift.Service, appts *appointment.Service,
	students *student.Repository, reports *reporting.Service, cache *store.Redis,
	jwtIssuer, jwtKey string, accessTTL, refreshTTL, cacheTTL time.Duration) *Handler {
	return &Handler{
		shifts:     shifts,
		scans:      scans,
		appts:      appts,
		students:   students,
		reports:    reports,
		cache:      cache,
		jwtIssuer:  jwtIssuer,
		jwtKey:     jwtKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		cacheTTL:   cacheTTL,
	}
}

// fail writes the error envelope using the taxonomy's status mapping.
func fail(c *gin.Context, err error) {
	failStatus(c, apperr.HTTPStatus(err), err, nil)
}

// failStatus writes the error envelope with an explicit status and optional
// extra fields (used to attach the existing record on slot duplicates).
func failStatus(c *gin.Context, status int, err error, extra gin.H) {
	body := gin.H{"success": false, "message": errMessage(err), "error": apperr.Code(err)}
	for k, v := range extra {
		body[k] = v
	}
	if apperr.KindOf(err) == apperr.Internal {
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		body["message"] = "internal server error"
	}
	c.JSON(status, body)
}

func errMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ---------- Auth ----------

// IssueToken mints a supervisor token pair. Identity verification is the
// portal's concern; this endpoint only handles token transport.
func (h *Handler) IssueToken(c *gin.Context) {
	var req struct {
		SupervisorID string `json:"supervisorId" binding:"required"`
		Role         string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.Validation, "supervisorId is required"))
		return
	}
	if req.Role == "" {
		req.Role = "supervisor"
	}
	tokens, err := auth.Issue(req.SupervisorID, req.Role, h.jwtIssuer, h.jwtKey, h.accessTTL, h.refreshTTL)
	if err != nil {
		fail(c, apperr.Wrap(apperr.Internal, err, "token issue failed"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// ---------- Shift flow ----------

func (h *Handler) OpenShift(c *gin.Context) {
	var req struct {
		SupervisorID    string `json:"supervisorId" binding:"required"`
		SupervisorName  string `json:"supervisorName"`
		SupervisorEmail string `json:"supervisorEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.Validation, "supervisorId is required"))
		return
	}
	s, err := h.shifts.Open(c.Request.Context(), req.SupervisorID, req.SupervisorName, req.SupervisorEmail)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "shift": s})
}

func (h *Handler) CloseShift(c *gin.Context) {
	var req struct {
		ShiftID      string `json:"shiftId" binding:"required"`
		SupervisorID string `json:"supervisorId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.Validation, "shiftId and supervisorId are required"))
		return
	}
	s, err := h.shifts.Close(c.Request.Context(), req.ShiftID, req.SupervisorID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shift": s})
}

func (h *Handler) ScanShift(c *gin.Context) {
	var req struct {
		ShiftID      string `json:"shiftId" binding:"required"`
		QRCodeData   string `json:"qrCodeData" binding:"required"`
		SupervisorID string `json:"supervisorId"`
		Location     string `json:"location"`
		Notes        string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.Validation, "shiftId and qrCodeData are required"))
		return
	}
	rec, summary, err := h.scans.Scan(c.Request.Context(), shift.ScanInput{
		ShiftID:      req.ShiftID,
		Payload:      req.QRCodeData,
		SupervisorID: req.SupervisorID,
		Location:     req.Location,
		Notes:        req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": rec, "student": summary})
}

// CurrentShift returns the caller's most recent open shift, if any.
func (h *Handler) CurrentShift(c *gin.Context) {
	supervisorID := c.Query("supervisorId")
	if supervisorID == "" {
		supervisorID = supervisorFromClaims(c)
	}
	if supervisorID == "" {
		fail(c, apperr.New(apperr.Validation, "supervisorId is required"))
		return
	}
	s, err := h.shifts.FindOpen(c.Request.Context(), supervisorID)
	if err != nil {
		fail(c, err)
		return
	}
	if s == nil {
		fail(c, apperr.New(apperr.NotFound, "no open shift found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shift": s})
}

func (h *Handler) ListShifts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	shifts, err := h.shifts.List(c.Request.Context(), shift.ListFilter{
		SupervisorID: c.Query("supervisorId"),
		Status:       c.Query("status"),
		Date:         c.Query("date"),
		Limit:        limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if shifts == nil {
		shifts = []shift.Shift{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shifts": shifts})
}

// ---------- Appointment flow ----------

func (h *Handler) ScanQR(c *gin.Context) {
	var req struct {
		QRData          string `json:"qrData" binding:"required"`
		AppointmentSlot string `json:"appointmentSlot" binding:"required"`
		StationName     string `json:"stationName"`
		StationLocation string `json:"stationLocation"`
		Coordinates     string `json:"coordinates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.Validation, "qrData and appointmentSlot are required"))
		return
	}
	rec, summary, err := h.appts.ScanQR(c.Request.Context(), appointment.ScanQRInput{
		QRData:          req.QRData,
		Slot:            appointment.Slot(req.AppointmentSlot),
		StationName:     req.StationName,
		StationLocation: req.StationLocation,
		Coordinates:     req.Coordinates,
		ActingUserID:    supervisorFromClaims(c),
	})
	if err != nil {
		// The API contract reports slot duplicates as 400, with the
		// existing record attached when we have it.
		if apperr.KindOf(err) == apperr.Conflict {
			extra := gin.H{}
			if rec.ID != "" {
				extra["attendance"] = rec
			}
			failStatus(c, http.StatusBadRequest, err, extra)
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": rec, "student": summary})
}

func (h *Handler) MarkAbsent(c *gin.Context) {
	var req struct {
		StudentID       string `json:"studentId" binding:"required"`
		AppointmentSlot string `json:"appointmentSlot" binding:"required"`
		Date            string `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.Validation, "studentId and appointmentSlot are required"))
		return
	}
	rec, err := h.appts.MarkAbsent(c.Request.Context(), req.StudentID, appointment.Slot(req.AppointmentSlot), req.Date)
	if err != nil {
		if apperr.KindOf(err) == apperr.Conflict {
			failStatus(c, http.StatusBadRequest, err, nil)
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": rec})
}

func (h *Handler) UpdateAttendance(c *gin.Context) {
	var req struct {
		Status string  `json:"status" binding:"required"`
		Notes  *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.New(apperr.Validation, "status is required"))
		return
	}
	rec, err := h.appts.Update(c.Request.Context(), c.Param("id"), req.Status, req.Notes)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attendance": rec})
}

func (h *Handler) DeleteAttendance(c *gin.Context) {
	rec, err := h.appts.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deletedAttendance": rec})
}

func (h *Handler) ListAttendance(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	records, total, err := h.appts.List(c.Request.Context(), appointment.ListFilter{
		StudentID: c.Query("studentId"),
		DateFrom:  c.Query("dateFrom"),
		DateTo:    c.Query("dateTo"),
		Slot:      appointment.Slot(c.Query("appointmentSlot")),
		Status:    c.Query("status"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []appointment.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"records": records,
		"page":    page,
		"limit":   limit,
		"total":   total,
	})
}

// Today serves the current day's aggregation, preferring the cache the
// worker maintains. Dashboards poll this endpoint.
func (h *Handler) Today(c *gin.Context) {
	ctx := c.Request.Context()
	day := h.appts.TodayKey()

	if h.cache != nil {
		if payload, err := h.cache.GetTodaySummary(ctx, day); err == nil && payload != nil {
			var summary appointment.TodaySummary
			if json.Unmarshal(payload, &summary) == nil {
				c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary, "cached": true})
				return
			}
		}
	}

	summary, err := h.appts.Today(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	if h.cache != nil {
		if payload, err := json.Marshal(summary); err == nil {
			if err := h.cache.SetTodaySummary(ctx, day, payload, h.cacheTTL); err != nil {
				log.Printf("today cache write failed: %v", err)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

func (h *Handler) AllRecords(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	result, err := h.reports.AllRecords(c.Request.Context(), c.Query("search"), reporting.PageRequest{
		Page:      page,
		Limit:     limit,
		SortBy:    c.DefaultQuery("sortBy", "timestamp"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"records": result.Records,
		"page":    result.Page,
		"limit":   result.Limit,
		"total":   result.Total,
		"pages":   result.Pages,
		"sources": result.Sources,
	})
}

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	students, err := h.students.List(c.Request.Context(), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	if students == nil {
		students = []student.Student{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": students})
}

func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if st == nil {
		fail(c, apperr.New(apperr.NotFound, "student not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": st})
}

func supervisorFromClaims(c *gin.Context) string {
	claimsAny, _ := c.Get("claims")
	claims, _ := claimsAny.(auth.Claims)
	return claims.Subject
}
