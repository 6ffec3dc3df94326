package campus_http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"campus-assistant/internal/domain"
	"campus-assistant/internal/usecase"
)

// Handler exposes the report and QA surface over HTTP.
type Handler struct {
	qa         usecase.QAService
	backfill   usecase.BackfillScheduler
	ingestor   usecase.NewsIngestor
	reportRepo domain.ReportRepository
	logger     *slog.Logger
}

// NewHandler wires the HTTP surface.
func NewHandler(
	qa usecase.QAService,
	backfill usecase.BackfillScheduler,
	ingestor usecase.NewsIngestor,
	reportRepo domain.ReportRepository,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		qa:         qa,
		backfill:   backfill,
		ingestor:   ingestor,
		reportRepo: reportRepo,
		logger:     logger,
	}
}

// Register attaches all routes to the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/ask", h.Ask)
	e.GET("/v1/report", h.GetReport)
	e.GET("/v1/report/full", h.GetFullReport)
	e.GET("/v1/report/weekly", h.GetWeeklyReport)
	e.GET("/v1/reports", h.ListReports)
	e.GET("/v1/reports/recent", h.RecentReports)
	e.POST("/v1/daily-job", h.TriggerDailyJob)
	e.POST("/v1/news", h.IngestNews)
}

type askRequest struct {
	Question string `json:"question"`
	Identity string `json:"identity"`
	Days     int    `json:"days"`
}

// Ask answers a free-text question over a trailing window of stored news.
func (h *Handler) Ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	identity, err := domain.ParseIdentity(req.Identity)
	if err != nil {
		return h.fail(c, err)
	}

	output, err := h.qa.Ask(c.Request().Context(), usecase.AskInput{
		Question: req.Question,
		Identity: identity,
		Days:     req.Days,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, output)
}

type reportResponse struct {
	Date               string     `json:"date"`
	NewsCount          int        `json:"news_count"`
	EffectiveNewsCount int        `json:"effective_news_count"`
	StudentSummary     *string    `json:"student_summary,omitempty"`
	TeacherSummary     *string    `json:"teacher_summary,omitempty"`
	GeneratedAt        *time.Time `json:"generated_at,omitempty"`
}

// GetReport returns one identity's daily report. The date defaults to
// yesterday.
func (h *Handler) GetReport(c echo.Context) error {
	return h.reportByScope(c, domain.ScopeDaily, false)
}

// GetFullReport returns both identities' daily summaries.
func (h *Handler) GetFullReport(c echo.Context) error {
	return h.reportByScope(c, domain.ScopeDaily, true)
}

// GetWeeklyReport returns one identity's weekly report; date denotes the
// range end.
func (h *Handler) GetWeeklyReport(c echo.Context) error {
	return h.reportByScope(c, domain.ScopeWeekly, false)
}

func (h *Handler) reportByScope(c echo.Context, kind domain.ScopeKind, full bool) error {
	date := c.QueryParam("date")
	if date == "" {
		date = domain.FormatDate(time.Now().AddDate(0, 0, -1))
	}
	if _, err := domain.ParseDate(date); err != nil {
		return h.fail(c, err)
	}
	identity, err := domain.ParseIdentity(c.QueryParam("identity"))
	if err != nil {
		return h.fail(c, err)
	}
	scope := domain.ReportScope{Kind: kind, Date: date}

	identities := []domain.Identity{identity}
	if full {
		identities = domain.Identities
	}

	resp := reportResponse{Date: date}
	found := false
	for _, id := range identities {
		rep, err := h.reportRepo.Get(c.Request().Context(), scope, id)
		if err != nil {
			return h.fail(c, err)
		}
		if rep == nil {
			continue
		}
		found = true
		resp.NewsCount = rep.NewsCount
		resp.EffectiveNewsCount = rep.EffectiveNewsCount
		resp.GeneratedAt = &rep.GeneratedAt
		summary := rep.Summary
		if id == domain.IdentityStudent {
			resp.StudentSummary = &summary
		} else {
			resp.TeacherSummary = &summary
		}
	}

	if !found {
		// Explicit signal, so the caller can decide to trigger backfill.
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "report not generated",
			"date":  date,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// ListReports returns every date with a compiled daily report.
func (h *Handler) ListReports(c echo.Context) error {
	dates, err := h.reportRepo.AvailableDates(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	if dates == nil {
		dates = []string{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"available_dates": dates,
		"count":           len(dates),
	})
}

// RecentReports returns the daily reports of the last N days that exist.
func (h *Handler) RecentReports(c echo.Context) error {
	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return h.fail(c, &domain.ValidationError{Field: "days", Reason: "must be a positive integer"})
		}
		days = parsed
	}
	if days > 30 {
		days = 30
	}
	identity, err := domain.ParseIdentity(c.QueryParam("identity"))
	if err != nil {
		return h.fail(c, err)
	}

	var reports []reportResponse
	for _, date := range domain.DateRange(time.Now().AddDate(0, 0, -1), days) {
		rep, err := h.reportRepo.Get(c.Request().Context(), domain.Daily(date), identity)
		if err != nil {
			return h.fail(c, err)
		}
		if rep == nil {
			continue
		}
		summary := rep.Summary
		generatedAt := rep.GeneratedAt
		item := reportResponse{
			Date:               date,
			NewsCount:          rep.NewsCount,
			EffectiveNewsCount: rep.EffectiveNewsCount,
			GeneratedAt:        &generatedAt,
		}
		if identity == domain.IdentityStudent {
			item.StudentSummary = &summary
		} else {
			item.TeacherSummary = &summary
		}
		reports = append(reports, item)
	}
	if reports == nil {
		reports = []reportResponse{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":          len(reports),
		"days_requested": days,
		"reports":        reports,
	})
}

type dailyJobResponse struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	ReportDate string `json:"report_date"`
	NewsCount  int    `json:"news_count"`
}

// TriggerDailyJob compiles the report for one day. Without force, a date
// that already has a report is left untouched.
func (h *Handler) TriggerDailyJob(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = domain.FormatDate(time.Now().AddDate(0, 0, -1))
	}
	force := c.QueryParam("force") == "true"
	runID := uuid.New().String()

	h.logger.Info("daily_job_triggered",
		slog.String("run_id", runID),
		slog.String("date", date),
		slog.Bool("force", force))

	result, generated, err := h.backfill.EnsureDay(c.Request().Context(), date, force)
	if err != nil {
		return h.fail(c, err)
	}
	if !generated {
		return c.JSON(http.StatusOK, dailyJobResponse{
			RunID: runID, Status: "already_generated", ReportDate: date,
		})
	}

	status := "success"
	newsCount := 0
	for _, rep := range result.Reports {
		newsCount = rep.NewsCount
		if rep.EffectiveNewsCount == 0 {
			status = "no_news"
		}
		break
	}
	return c.JSON(http.StatusOK, dailyJobResponse{
		RunID: runID, Status: status, ReportDate: date, NewsCount: newsCount,
	})
}

type ingestRequest struct {
	Date      string `json:"date"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	SourceURL string `json:"source_url"`
	Source    string `json:"source"`
}

// IngestNews is the crawler's push endpoint.
func (h *Handler) IngestNews(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	result, record, err := h.ingestor.Ingest(c.Request().Context(), usecase.IngestInput{
		Date:      req.Date,
		Title:     req.Title,
		Body:      req.Body,
		SourceURL: req.SourceURL,
		Source:    req.Source,
	})
	if err != nil {
		return h.fail(c, err)
	}

	status := http.StatusCreated
	if result == domain.PutDuplicate {
		status = http.StatusOK
	}
	return c.JSON(status, map[string]string{
		"id":     record.ID,
		"date":   record.Date,
		"result": string(result),
	})
}

// fail maps domain errors to status codes.
func (h *Handler) fail(c echo.Context, err error) error {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": validation.Error()})
	}
	var generation *domain.GenerationError
	if errors.As(err, &generation) {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": generation.Error()})
	}
	h.logger.Error("request failed", slog.String("error", err.Error()))
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

