package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vegprice-service/internal/config"
	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/http/middleware"
	"vegprice-service/internal/imaging"
	"vegprice-service/internal/report"
	"vegprice-service/internal/service"
	"vegprice-service/internal/storage"
	"vegprice-service/internal/utils"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	formOverhead    = 1 << 20
)

// SnapshotStore архивирует загруженные фотографии; может отсутствовать.
type SnapshotStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

type Handler struct {
	marketService *service.MarketService
	config        *config.Config
	snapshots     SnapshotStore
	log           zerolog.Logger
}

func NewHandler(
	marketService *service.MarketService,
	cfg *config.Config,
	log zerolog.Logger,
	snapshots SnapshotStore,
) *Handler {
	return &Handler{
		marketService: marketService,
		config:        cfg,
		snapshots:     snapshots,
		log:           log,
	}
}

// Register mounts the API. Contributions are public when authMiddleware is nil.
func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	public := r.Group("/api/v1")
	{
		public.POST("/detect", h.detect)
		public.GET("/prices", h.listPrices)
		public.GET("/prices/:vegetable", h.getPrice)
		public.POST("/prices/batch", h.batchPrices)
		public.GET("/price-history", h.priceHistory)
		public.GET("/price-history/export", h.exportPriceHistory)
		public.GET("/market-summary/:location", h.marketSummary)
		public.GET("/market-summary/:location/export", h.exportMarketSummary)
		public.GET("/contributions", h.listContributions)
		public.GET("/vegetables", h.listVegetables)
		public.GET("/locations", h.listLocations)
		public.GET("/model/info", h.modelInfo)
		public.GET("/scans", h.listScans)
	}

	if authMiddleware == nil {
		public.POST("/contributions", h.createContribution)
		return
	}

	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/contributions", h.createContribution)
	}
}

type detectResponse struct {
	ScanID      uuid.UUID                 `json:"scan_id"`
	Location    string                    `json:"location"`
	Detections  []produce.PricedDetection `json:"detections"`
	TotalAmount float64                   `json:"total_amount"`
}

func (h *Handler) detect(c *gin.Context) {
	maxBytes := int64(h.config.HTTP.MaxUploadMB) << 20
	// Запас в 1 МБ на поля формы и границы multipart.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+formOverhead)
	if err := c.Request.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse(errUploadTooLarge.Error()))
			return
		}
		h.log.Warn().Err(err).Msg("failed to parse multipart request")
		c.JSON(http.StatusBadRequest, errorResponse("invalid multipart payload"))
		return
	}

	data, err := readUpload(c.Request.MultipartForm, maxBytes)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	threshold := h.marketService.ConfidenceThreshold()
	if raw := strings.TrimSpace(c.PostForm("confidence_threshold")); raw != "" {
		threshold, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("confidence_threshold must be a number"))
			return
		}
	}

	frame, format, err := imaging.Decode(data, h.config.Detection.ImageMaxWidth, h.config.Detection.ImageMaxHeight, h.config.Detection.ImageMaxPixels)
	if err != nil {
		h.handleError(c, err)
		return
	}

	location := h.marketService.ResolveLocation(c.PostForm("location"))
	detections, err := h.marketService.DetectAndPrice(c.Request.Context(), frame, location, threshold)
	if err != nil {
		h.handleError(c, err)
		return
	}

	scan := &produce.Scan{
		ID:         uuid.New(),
		Location:   location,
		Method:     h.marketService.ModelInfo().ModelType,
		Width:      frame.Width,
		Height:     frame.Height,
		Detections: detections,
		CreatedAt:  time.Now(),
	}
	if len(detections) > 0 {
		scan.Method = detections[0].DetectionMethod
	}
	h.archiveScan(c.Request.Context(), scan, data, format)

	total := 0.0
	for _, d := range detections {
		total += d.LineTotal
	}

	c.JSON(http.StatusOK, successResponse(detectResponse{
		ScanID:      scan.ID,
		Location:    location,
		Detections:  detections,
		TotalAmount: utils.Round(total, 2),
	}))
}

// archiveScan кладёт фото в S3 и пишет аудит; ошибки не ломают ответ клиенту.
func (h *Handler) archiveScan(ctx context.Context, scan *produce.Scan, data []byte, format string) {
	if h.snapshots != nil {
		key := storage.ScanKey(scan.ID, scan.CreatedAt, format)
		url, err := h.snapshots.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), http.DetectContentType(data))
		if err != nil {
			h.log.Warn().Err(err).Str("scan_id", scan.ID.String()).Msg("failed to upload scan snapshot")
		} else {
			scan.SnapshotURL = url
		}
	}

	if err := h.marketService.RecordScan(ctx, scan); err != nil {
		h.log.Error().Err(err).Str("scan_id", scan.ID.String()).Msg("failed to record scan")
	}
}

var errUploadTooLarge = errors.New("image exceeds upload limit")

func readUpload(form *multipart.Form, maxBytes int64) ([]byte, error) {
	if form == nil {
		return nil, errors.New("empty form")
	}

	var fh *multipart.FileHeader
	for _, field := range []string{"image", "file"} {
		if files := form.File[field]; len(files) > 0 {
			fh = files[0]
			break
		}
	}
	if fh == nil {
		return nil, errors.New("image file is required")
	}
	if fh.Size > maxBytes {
		return nil, errUploadTooLarge
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, errUploadTooLarge
	}
	return data, nil
}

func (h *Handler) getPrice(c *gin.Context) {
	quote := h.marketService.GetPrice(c.Param("vegetable"), c.Query("location"))
	c.JSON(http.StatusOK, successResponse(quote))
}

func (h *Handler) listPrices(c *gin.Context) {
	location := h.marketService.ResolveLocation(c.Query("location"))
	c.JSON(http.StatusOK, successResponse(gin.H{
		"location": location,
		"prices":   h.marketService.GetPrices(location, nil),
	}))
}

func (h *Handler) batchPrices(c *gin.Context) {
	var req struct {
		Vegetables []string `json:"vegetables" binding:"required,min=1"`
		Location   string   `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	location := h.marketService.ResolveLocation(req.Location)
	c.JSON(http.StatusOK, successResponse(gin.H{
		"location": location,
		"prices":   h.marketService.GetPrices(location, req.Vegetables),
	}))
}

func (h *Handler) loadHistory(c *gin.Context) ([]produce.HistoryPoint, bool) {
	days := 0
	if d := strings.TrimSpace(c.Query("days")); d != "" {
		parsed, err := parseInt(d)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("days must be an integer"))
			return nil, false
		}
		days = parsed
	}

	points, err := h.marketService.GetPriceHistory(c.Query("vegetable"), c.Query("location"), days)
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}
	return points, true
}

func (h *Handler) priceHistory(c *gin.Context) {
	points, ok := h.loadHistory(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, successResponse(points))
}

func (h *Handler) exportPriceHistory(c *gin.Context) {
	points, ok := h.loadHistory(c)
	if !ok {
		return
	}

	data, err := report.PriceHistoryWorkbook(points)
	if err != nil {
		h.handleError(c, err)
		return
	}

	name := "price_history.xlsx"
	if len(points) > 0 {
		name = fmt.Sprintf("price_history_%s_%s.xlsx", points[0].Vegetable, strings.ToLower(points[0].Location))
	}
	sendWorkbook(c, name, data)
}

func (h *Handler) marketSummary(c *gin.Context) {
	summary := h.marketService.GetMarketSummary(c.Param("location"))
	c.JSON(http.StatusOK, successResponse(summary))
}

func (h *Handler) exportMarketSummary(c *gin.Context) {
	summary := h.marketService.GetMarketSummary(c.Param("location"))

	data, err := report.MarketSummaryWorkbook(summary, h.marketService.Vegetables())
	if err != nil {
		h.handleError(c, err)
		return
	}

	name := fmt.Sprintf("market_summary_%s_%s.xlsx", strings.ToLower(summary.Location), summary.Date.Format("2006-01-02"))
	sendWorkbook(c, name, data)
}

func sendWorkbook(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) createContribution(c *gin.Context) {
	var input produce.ContributionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// С токеном автор берётся из него, а не из тела запроса.
	if principal, ok := middleware.PrincipalFromContext(c); ok {
		if !principal.CanContribute() {
			c.JSON(http.StatusForbidden, errorResponse("role is not allowed to contribute prices"))
			return
		}
		input.SubmittedBy = principal.DisplayName()
	}

	if !h.marketService.AddContribution(c.Request.Context(), input) {
		c.JSON(http.StatusBadRequest, errorResponse("failed to add contribution"))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Price contributed successfully",
	})
}

func (h *Handler) listContributions(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.marketService.Contributions()))
}

func (h *Handler) listVegetables(c *gin.Context) {
	vegetables := h.marketService.Vegetables()
	c.JSON(http.StatusOK, successResponse(gin.H{
		"vegetables": vegetables,
		"total":      len(vegetables),
	}))
}

func (h *Handler) listLocations(c *gin.Context) {
	locations := h.marketService.Locations()
	c.JSON(http.StatusOK, successResponse(gin.H{
		"locations": locations,
		"default":   h.marketService.DefaultLocation(),
		"total":     len(locations),
	}))
}

func (h *Handler) modelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(h.marketService.ModelInfo()))
}

func (h *Handler) listScans(c *gin.Context) {
	var location *string
	if l := strings.TrimSpace(c.Query("location")); l != "" {
		location = &l
	}

	var from, to *string
	if f := strings.TrimSpace(c.Query("from")); f != "" {
		from = &f
	}
	if t := strings.TrimSpace(c.Query("to")); t != "" {
		to = &t
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := parseInt(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := parseInt(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	scans, err := h.marketService.FindScans(c.Request.Context(), location, from, to, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(scans))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrAuditDisabled):
		c.JSON(http.StatusServiceUnavailable, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(s)
}
