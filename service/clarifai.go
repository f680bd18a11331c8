package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TIANLI0/PersonWatch/config"
	"github.com/TIANLI0/PersonWatch/utils"
	"go.uber.org/zap"
)

// clarifaiStatusSuccess Clarifai 返回体中表示成功的状态码
const clarifaiStatusSuccess = 10000

// WorkflowResult Clarifai 工作流返回结构，只声明用到的字段
type WorkflowResult struct {
	Status  *APIStatus       `json:"status,omitempty"`
	Results []WorkflowOutput `json:"results"`
}

type APIStatus struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
}

type WorkflowOutput struct {
	Outputs []ModelOutput `json:"outputs"`
}

type ModelOutput struct {
	Data *OutputData `json:"data,omitempty"`
}

type OutputData struct {
	Regions []RawRegion `json:"regions"`
}

type RawRegion struct {
	RegionInfo *RegionInfo `json:"region_info,omitempty"`
	Data       *RegionData `json:"data,omitempty"`
}

type RegionInfo struct {
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

type BoundingBox struct {
	TopRow    float64 `json:"top_row"`
	LeftCol   float64 `json:"left_col"`
	BottomRow float64 `json:"bottom_row"`
	RightCol  float64 `json:"right_col"`
}

type RegionData struct {
	Concepts []Concept `json:"concepts"`
}

type Concept struct {
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ClarifaiDetector 通过 REST 调用 Clarifai 工作流
type ClarifaiDetector struct {
	client   *http.Client
	endpoint string
	pat      string
}

func NewClarifaiDetector(cfg *config.ClarifaiConfig) *ClarifaiDetector {
	endpoint := fmt.Sprintf("%s/v2/users/%s/apps/%s/workflows/%s/results",
		strings.TrimRight(cfg.BaseURL, "/"), cfg.UserID, cfg.AppID, strings.TrimSpace(cfg.WorkflowID))

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ClarifaiDetector{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		pat:      cfg.PAT,
	}
}

type workflowRequest struct {
	Inputs []workflowInput `json:"inputs"`
}

type workflowInput struct {
	Data struct {
		Image struct {
			Base64 string `json:"base64"`
		} `json:"image"`
	} `json:"data"`
}

// Detect 提交图片并返回原始工作流结果
func (d *ClarifaiDetector) Detect(ctx context.Context, image []byte) (*WorkflowResult, error) {
	var input workflowInput
	input.Data.Image.Base64 = base64.StdEncoding.EncodeToString(image)

	payload, err := json.Marshal(workflowRequest{Inputs: []workflowInput{input}})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrDetectionService, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrDetectionService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+d.pat)

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", ErrDetectionService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrDetectionService, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result WorkflowResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrDetectionService, err)
	}

	if result.Status != nil && result.Status.Code != clarifaiStatusSuccess {
		return nil, fmt.Errorf("%w: clarifai status %d: %s", ErrDetectionService, result.Status.Code, result.Status.Description)
	}

	utils.Logger.Debug("clarifai workflow finished",
		zap.Int("results", len(result.Results)),
		zap.Duration("duration", time.Since(start)))

	return &result, nil
}
