package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"vegprice-service/internal/domain/produce"
	"vegprice-service/internal/imaging"
	"vegprice-service/internal/utils"
	"vegprice-service/internal/vision"
)

var ErrNotConfigured = errors.New("inference service is not configured")

// classMapping переводит классы общей модели в овощи каталога.
var classMapping = map[string]string{
	"apple":    "tomato",
	"orange":   "carrot",
	"banana":   "corn",
	"broccoli": "cauliflower",
	"carrot":   "carrot",
}

// Client talks to an external model server that accepts a multipart "file" upload.
type Client struct {
	inferenceURL string
	httpClient   *http.Client
	vegetables   map[string]struct{}
	loaded       atomic.Bool
	now          func() time.Time
}

func NewClient(inferenceURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	known := make(map[string]struct{}, len(vision.Vegetables))
	for _, v := range vision.Vegetables {
		known[v] = struct{}{}
	}
	return &Client{
		inferenceURL: strings.TrimRight(inferenceURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		vegetables:   known,
		now:          time.Now,
	}
}

func (c *Client) Loaded() bool {
	return c != nil && c.loaded.Load()
}

// CheckHealth проверяет доступность модели и запоминает результат для Loaded.
func (c *Client) CheckHealth(ctx context.Context) error {
	if c == nil || c.inferenceURL == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.inferenceURL+"/health", nil)
	if err != nil {
		c.loaded.Store(false)
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.loaded.Store(false)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.loaded.Store(false)
		return fmt.Errorf("ml service unhealthy: %d", resp.StatusCode)
	}

	c.loaded.Store(true)
	return nil
}

type modelDetection struct {
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// Detect sends the frame as JPEG and maps the model's classes onto catalog vegetables.
// Classes with no mapping are dropped.
func (c *Client) Detect(ctx context.Context, frame vision.Frame) ([]produce.RawDetection, error) {
	if c == nil || c.inferenceURL == "" {
		return nil, ErrNotConfigured
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}

	encoded, err := imaging.EncodeJPEG(frame)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(encoded); err != nil {
		return nil, fmt.Errorf("copy image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.inferenceURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Detections []modelDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	now := c.now()
	detections := make([]produce.RawDetection, 0, len(result.Detections))
	for _, d := range result.Detections {
		vegetable := c.mapClass(d.Class)
		if vegetable == "" {
			continue
		}
		// Уверенность вне [0, 1] означает сломанный ответ модели.
		if d.Confidence < 0 || d.Confidence > 1 {
			continue
		}
		box, ok := clampBox(d.BBox, frame.Width, frame.Height)
		if !ok {
			continue
		}
		detections = append(detections, produce.RawDetection{
			Vegetable:       vegetable,
			Confidence:      utils.Round(d.Confidence, 3),
			QuantityKg:      estimateQuantity(box, frame.Width, frame.Height),
			BBox:            box,
			DetectionMethod: produce.MethodModel,
			Timestamp:       now,
		})
	}
	return detections, nil
}

func (c *Client) mapClass(class string) string {
	name := utils.NormalizeVegetable(class)
	if _, ok := c.vegetables[name]; ok {
		return name
	}
	return classMapping[name]
}

func clampBox(raw [4]float64, width, height int) (produce.BBox, bool) {
	b := produce.BBox{
		X1: min(width-1, max(0, int(raw[0]))),
		Y1: min(height-1, max(0, int(raw[1]))),
		X2: min(width, max(0, int(raw[2]))),
		Y2: min(height, max(0, int(raw[3]))),
	}
	if b.X1 >= b.X2 || b.Y1 >= b.Y2 {
		return produce.BBox{}, false
	}
	return b, true
}

// estimateQuantity grows with the share of the image the box covers.
func estimateQuantity(b produce.BBox, width, height int) float64 {
	relative := float64((b.X2-b.X1)*(b.Y2-b.Y1)) / float64(width*height)
	return utils.Round(0.1+relative*10, 2)
}
