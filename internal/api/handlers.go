package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/campusconnect/campusconnect/internal/listings"
	"github.com/campusconnect/campusconnect/internal/llm"
	"github.com/campusconnect/campusconnect/internal/pricing"
	"github.com/campusconnect/campusconnect/internal/session"
	"github.com/campusconnect/campusconnect/pkg/apierror"
	"github.com/campusconnect/campusconnect/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	maxJSONBody = 64 << 10
	// maxUploadBody bounds a whole analyze-image request.
	maxUploadBody = 40 << 20
	// browseScanLimit is how many recent listings a browse request filters.
	browseScanLimit = 500
)

type handler struct {
	deps      Deps
	startedAt time.Time
}

func newHandler(deps Deps) *handler {
	return &handler{deps: deps, startedAt: time.Now()}
}

type healthResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptimeSeconds"`
	ImageAnalysis bool      `json:"imageAnalysis"`
}

// Health handles GET /api/v1/health
func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	response.OK(w, healthResponse{
		Status:        "healthy",
		Version:       h.deps.Version,
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		ImageAnalysis: h.deps.Analyzer != nil,
	})
}

type startSessionRequest struct {
	UserID     string `json:"userId"`
	University string `json:"university"`
}

// StartSession handles POST /api/v1/sessions
func (h *handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	s, err := h.deps.Sessions.Start(req.UserID, req.University)
	if errors.Is(err, session.ErrMissingUserID) {
		response.Error(w, apierror.ValidationError("invalid request", apierror.FieldError{Field: "userId", Message: "is required"}))
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to start session")
		response.Error(w, err)
		return
	}

	response.Created(w, s)
}

// EndSession handles DELETE /api/v1/sessions/{id}
func (h *handler) EndSession(w http.ResponseWriter, r *http.Request) {
	err := h.deps.Sessions.End(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		response.Error(w, apierror.NotFound("session not found"))
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to end session")
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}

type analyzePriceRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
}

func (req analyzePriceRequest) validate() error {
	var details []apierror.FieldError
	if strings.TrimSpace(req.Title) == "" {
		details = append(details, apierror.FieldError{Field: "title", Message: "is required"})
	}
	if strings.TrimSpace(req.Category) == "" {
		details = append(details, apierror.FieldError{Field: "category", Message: "is required"})
	}
	if len(details) > 0 {
		return apierror.ValidationError("invalid request", details...)
	}
	return nil
}

// AnalyzePrice handles POST /api/v1/pricing/analyze
func (h *handler) AnalyzePrice(w http.ResponseWriter, r *http.Request) {
	var req analyzePriceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := req.validate(); err != nil {
		response.Error(w, err)
		return
	}

	analysis := h.deps.Advisor.Analyze(r.Context(), pricing.Request{
		Title:       strings.TrimSpace(req.Title),
		Category:    strings.TrimSpace(req.Category),
		Condition:   pricing.ParseCondition(req.Condition),
		Description: strings.TrimSpace(req.Description),
	})

	response.OK(w, analysis)
}

// BrowseListings handles GET /api/v1/listings
func (h *handler) BrowseListings(w http.ResponseWriter, r *http.Request) {
	if h.deps.Listings == nil {
		response.Error(w, apierror.ServiceUnavailable("listing catalog is not configured"))
		return
	}

	filter, page, pageSize, err := parseBrowseQuery(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	if s, ok := session.FromContext(r.Context()); ok && filter.University == "" {
		filter.University = s.University
	}

	all, err := h.deps.Listings.RecentByCategory(r.Context(), filter.Category, browseScanLimit)
	if err != nil {
		log.Error().Err(err).Str("category", filter.Category).Msg("failed to load listings")
		response.Error(w, apierror.ServiceUnavailable("listings are temporarily unavailable"))
		return
	}

	matched := filter.Apply(all)
	listings.SortByRating(matched)
	p := listings.Paginate(matched, page, pageSize)

	response.JSONWithMeta(w, http.StatusOK, p.Items, response.Meta{
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
	})
}

func parseBrowseQuery(r *http.Request) (listings.Filter, int, int, error) {
	q := r.URL.Query()
	filter := listings.Filter{
		Category:   strings.TrimSpace(q.Get("category")),
		University: strings.TrimSpace(q.Get("university")),
		Query:      strings.TrimSpace(q.Get("q")),
	}
	if c := q.Get("condition"); c != "" {
		filter.Condition = pricing.ParseCondition(c)
	}

	var details []apierror.FieldError
	parseFloat := func(name string, dst *float64) {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				details = append(details, apierror.FieldError{Field: name, Message: "must be a non-negative number"})
				return
			}
			*dst = f
		}
	}
	parseInt := func(name string, dst *int) {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				details = append(details, apierror.FieldError{Field: name, Message: "must be a positive integer"})
				return
			}
			*dst = n
		}
	}

	page, pageSize := 1, listings.DefaultPageSize
	parseFloat("min_price", &filter.MinPrice)
	parseFloat("max_price", &filter.MaxPrice)
	parseInt("page", &page)
	parseInt("page_size", &pageSize)

	if filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		details = append(details, apierror.FieldError{Field: "min_price", Message: "must not exceed max_price"})
	}
	if len(details) > 0 {
		return filter, 0, 0, apierror.ValidationError("invalid query", details...)
	}
	return filter, page, pageSize, nil
}

type analyzeImageResponse struct {
	Item     *llm.ItemDescription  `json:"item"`
	Analysis pricing.PriceAnalysis `json:"analysis"`
}

// AnalyzeImage handles POST /api/v1/listings/analyze-image
func (h *handler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	if h.deps.Analyzer == nil {
		response.Error(w, apierror.ServiceUnavailable("image analysis is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, apierror.PayloadTooLarge("upload is too large"))
			return
		}
		response.Error(w, apierror.BadRequest("expected multipart form data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		response.Error(w, apierror.ValidationError("invalid request", apierror.FieldError{Field: "image", Message: "is required"}))
		return
	}
	if len(files) > llm.MaxImages {
		response.Error(w, apierror.ValidationError("invalid request", apierror.FieldError{
			Field:   "image",
			Message: fmt.Sprintf("at most %d images are allowed", llm.MaxImages),
		}))
		return
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			response.Error(w, apierror.BadRequest("failed to read image"))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			response.Error(w, apierror.BadRequest("failed to read image"))
			return
		}
		images = append(images, data)
	}

	result, err := h.deps.Analyzer.AnalyzeImages(r.Context(), images)
	if err == nil && result.Item == nil {
		err = errors.New("analyzer returned no item")
	}
	if err != nil {
		log.Error().Err(err).Int("imageCount", len(images)).Msg("image analysis failed")
		response.Error(w, apierror.ServiceUnavailable("image analysis failed"))
		return
	}

	item := result.Item
	analysis := h.deps.Advisor.Analyze(r.Context(), pricing.Request{
		Title:       item.Title,
		Category:    item.Category,
		Condition:   pricing.Condition(item.Condition),
		Description: item.Description,
	})

	response.OK(w, analyzeImageResponse{Item: item, Analysis: analysis})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierror.PayloadTooLarge("request body is too large")
		}
		return apierror.BadRequest("invalid JSON")
	}
	return nil
}
