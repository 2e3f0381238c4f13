package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
)

// SendFailure composes the single response.failed event that replaces
// a normal stream when the backend call never produced chunks. The
// event gets a fresh response id, sequence number 1, and the matching
// first event id.
func SendFailure(ctx context.Context, out chan<- string, model, code, message string, onEvent func(payload string, sequence uint32)) {
	ts := time.Now()
	responseID := fmt.Sprintf("resp_%x", ts.UnixNano())

	event := api.StreamEvent{
		Type:           api.EventResponseFailed,
		EventID:        fmt.Sprintf("evt_%s_0001", responseID),
		ResponseID:     responseID,
		SequenceNumber: 1,
		Response: &api.Response{
			ID:        responseID,
			Object:    api.ObjectResponse,
			CreatedAt: ts.Unix(),
			Status:    api.StatusFailed,
			Error:     &api.ResponseError{Code: code, Message: message},
			Model:     model,
			Output:    []api.OutputItem{},
			Store:     api.Ptr(false),
		},
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to serialize failure event", "error", err)
		return
	}
	if onEvent != nil {
		onEvent(string(payload), 1)
	}
	select {
	case out <- string(payload):
	case <-ctx.Done():
	}
}
