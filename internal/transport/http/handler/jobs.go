package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"scrapegen/internal/domain"
	"scrapegen/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// JobStore is the read side of the job history.
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, []domain.Attempt, error)
	ListJobs(ctx context.Context, input repository.ListJobsInput) ([]*domain.Job, error)
}

type JobsHandler struct {
	store  JobStore
	logger *slog.Logger
}

func NewJobsHandler(store JobStore, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{store: store, logger: logger.With("component", "jobs_handler")}
}

type jobResponse struct {
	ID          string        `json:"id"`
	URL         string        `json:"url"`
	Objective   string        `json:"objective"`
	Status      domain.Status `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

type attemptResponse struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

type jobDetailResponse struct {
	jobResponse
	Attempts []attemptResponse `json:"attempts"`
}

type listJobsResponse struct {
	Jobs       []jobResponse `json:"jobs"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		ID:          job.ID,
		URL:         job.URL,
		Objective:   job.Objective,
		Status:      job.Status,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
}

func (h *JobsHandler) GetByID(ctx *gin.Context) {
	jobID := ctx.Param("id")

	job, attempts, err := h.store.GetJob(ctx.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errJobNotFound})
			return
		}
		h.logger.Error("get job by id", "job_id", jobID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	resp := jobDetailResponse{jobResponse: toJobResponse(job), Attempts: []attemptResponse{}}
	for _, a := range attempts {
		resp.Attempts = append(resp.Attempts, attemptResponse{
			Index:  a.Index,
			Reason: a.Reason,
			Stdout: a.Stdout,
			Stderr: a.Stderr,
		})
	}

	ctx.JSON(http.StatusOK, resp)
}

func (h *JobsHandler) List(ctx *gin.Context) {
	input := repository.ListJobsInput{
		Status: domain.Status(ctx.Query("status")),
		Limit:  defaultPageSize,
	}
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPageSize {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		input.Limit = n
	}
	if cursor := ctx.Query("cursor"); cursor != "" {
		t, id, ok := decodeCursor(cursor)
		if !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		input.CursorTime = &t
		input.CursorID = id
	}

	jobs, err := h.store.ListJobs(ctx.Request.Context(), input)
	if err != nil {
		h.logger.Error("list jobs", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	resp := listJobsResponse{Jobs: []jobResponse{}}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(j))
	}
	// A short page is the last one; handing out a cursor would only point
	// the client at an empty page.
	if len(jobs) == input.Limit {
		last := jobs[len(jobs)-1]
		resp.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}

	ctx.JSON(http.StatusOK, resp)
}
