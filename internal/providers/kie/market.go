package kie

import (
	"context"
	"encoding/json"

	"vidiai/internal/domain"
)

// Market API endpoints shared by the kling and image models.
const (
	PathCreateTask = "/api/v1/jobs/createTask"
	PathRecordInfo = "/api/v1/jobs/recordInfo"
)

// MarketTask is the createTask payload.
type MarketTask struct {
	Model       string `json:"model"`
	CallBackURL string `json:"callBackUrl,omitempty"`
	Input       any    `json:"input"`
}

// MarketRecord is the recordInfo data object. resultJson arrives as a string
// holding encoded JSON.
type MarketRecord struct {
	TaskID      string          `json:"taskId"`
	Model       string          `json:"model"`
	State       string          `json:"state"`
	ResultJSON  json.RawMessage `json:"resultJson"`
	FailCode    any             `json:"failCode"`
	FailMsg     string          `json:"failMsg"`
	SuccessFlag *int            `json:"successFlag"`
}

// Result normalizes the record.
func (r MarketRecord) Result() domain.StatusResult {
	status := NormalizeState(r.State, r.SuccessFlag)
	return Result(status, ResultURLs(r.ResultJSON), r.FailMsg)
}

// SubmitMarket creates a market task.
func (c *Client) SubmitMarket(ctx context.Context, model string, input any) (string, error) {
	return c.CreateTask(ctx, PathCreateTask, MarketTask{Model: model, CallBackURL: c.callbackURL, Input: input})
}

// MarketStatus fetches and normalizes a market task.
func (c *Client) MarketStatus(ctx context.Context, taskID string) (domain.StatusResult, error) {
	var rec MarketRecord
	if err := c.Record(ctx, PathRecordInfo, taskID, &rec); err != nil {
		return domain.StatusResult{}, err
	}
	return rec.Result(), nil
}
