package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"scrapegen/internal/agent"
	"scrapegen/internal/domain"
	"scrapegen/internal/usecase"
)

// Scraper is the slice of the usecase the scrape endpoints need.
type Scraper interface {
	Scrape(ctx context.Context, input usecase.ScrapeInput, progress agent.ProgressFunc) (*domain.Job, domain.Outcome, error)
}

type ScrapeHandler struct {
	scraper Scraper
	logger  *slog.Logger
}

func NewScrapeHandler(scraper Scraper, logger *slog.Logger) *ScrapeHandler {
	return &ScrapeHandler{scraper: scraper, logger: logger.With("component", "scrape_handler")}
}

type scrapeRequest struct {
	URL       string          `json:"url"       binding:"required,url"`
	Objective string          `json:"objective" binding:"required"`
	Settings  domain.Settings `json:"settings"`
}

type scrapeResponse struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	DataPreview string `json:"data_preview,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// wireStatus maps internal job statuses to the response vocabulary.
func wireStatus(s domain.Status) string {
	switch s {
	case domain.StatusSucceeded:
		return "success"
	case domain.StatusFailed:
		return "error"
	default:
		return string(s)
	}
}

func toResponse(job *domain.Job, outcome domain.Outcome) scrapeResponse {
	resp := scrapeResponse{
		JobID:       job.ID,
		Status:      wireStatus(outcome.Status),
		Message:     outcome.Message,
		DataPreview: outcome.DataPreview,
		Detail:      outcome.Detail,
	}
	if outcome.DownloadID != "" {
		resp.DownloadURL = "/api/download/" + outcome.DownloadID
	}
	return resp
}

// Create runs a job synchronously and returns the terminal outcome.
func (h *ScrapeHandler) Create(ctx *gin.Context) {
	var req scrapeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, outcome, err := h.scraper.Scrape(ctx.Request.Context(), usecase.ScrapeInput{
		URL:       req.URL,
		Objective: req.Objective,
		Settings:  req.Settings,
	}, nil)
	if err != nil {
		h.logger.Error("scrape", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, toResponse(job, outcome))
}

// Stream runs a job and streams progress over Server-Sent Events: one "log"
// event per state transition, then a single terminal "result" event. A
// client disconnect cancels the job via the request context.
func (h *ScrapeHandler) Stream(ctx *gin.Context) {
	req := scrapeRequest{
		URL:       ctx.Query("url"),
		Objective: ctx.Query("objective"),
	}
	if raw := ctx.Query("settings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Settings); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings JSON"})
			return
		}
	}
	if req.URL == "" || req.Objective == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "url and objective query parameters are required"})
		return
	}

	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")

	// The progress callback runs on the job goroutine; hand lines over a
	// channel so all writes to the response happen here.
	logs := make(chan string, 16)
	type result struct {
		job     *domain.Job
		outcome domain.Outcome
		err     error
	}
	done := make(chan result, 1)

	reqCtx := ctx.Request.Context()
	go func() {
		job, outcome, err := h.scraper.Scrape(reqCtx, usecase.ScrapeInput{
			URL:       req.URL,
			Objective: req.Objective,
			Settings:  req.Settings,
		}, func(msg string) {
			select {
			case logs <- msg:
			default: // slow consumer, drop rather than stall the job
			}
		})
		done <- result{job: job, outcome: outcome, err: err}
	}()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case msg := <-logs:
			ctx.SSEvent("log", msg)
			return true
		case res := <-done:
			// Drain progress lines that raced the terminal result.
			for {
				select {
				case msg := <-logs:
					ctx.SSEvent("log", msg)
					continue
				default:
				}
				break
			}
			if res.err != nil {
				h.logger.Error("scrape stream", "error", res.err)
				ctx.SSEvent("error", errInternalServer)
				return false
			}
			ctx.SSEvent("result", toResponse(res.job, res.outcome))
			return false
		case <-reqCtx.Done():
			return false
		}
	})
}
