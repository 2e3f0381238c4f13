package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/backend"
	"github.com/weiche-dev/weiche/pkg/observability"
	"github.com/weiche-dev/weiche/pkg/translate"
	"github.com/weiche-dev/weiche/pkg/xmltool"
)

// EventChannelSize bounds the serialized-event channel between the
// orchestrator and the SSE writer.
const EventChannelSize = 64

// Config carries the per-request inputs of one orchestration run.
type Config struct {
	RequestID string
	Model     string
	Request   *api.CreateResponseRequest

	// OnEvent and OnChunk feed the dump sinks. Either may be nil.
	OnEvent func(payload string, sequence uint32)
	OnChunk func(data string, n uint32)

	// Now is a test hook; nil means time.Now.
	Now func() time.Time
}

// toolCallState tracks one in-flight tool call keyed by backend index.
type toolCallState struct {
	callID    string
	itemID    string
	typ       string
	name      *string
	arguments string
	itemAdded bool
}

type orchestrator struct {
	ctx context.Context
	cfg Config
	out chan<- string
	seq Sequencer

	createdAt     int64
	responseID    string
	messageID     string
	reasoningSeed string

	accumulatedText      string
	accumulatedReasoning string
	lastTextDelta        *string
	reasoningStarted     bool
	reasoningItemID      string
	xmlBuffering         bool
	toolCalls            map[int]*toolCallState
	nextXMLIndex         int
	finalStatus          api.Status
	inputTokens          int
	outputTokens         int
	chunkNum             uint32

	// Set when the client went away; no further sends are attempted.
	closed bool
}

// Orchestrate translates the backend body into Responses events on
// out, which is not closed. It returns the final response status; the
// caller handles circuit-breaker bookkeeping. Cancellation of ctx
// (client disconnect) stops the run without a terminal event.
func Orchestrate(ctx context.Context, cfg Config, body io.Reader, out chan<- string) api.Status {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ts := now()
	idSeed := fmt.Sprintf("%s_%d", cfg.RequestID, ts.UnixNano())

	o := &orchestrator{
		ctx:           ctx,
		cfg:           cfg,
		out:           out,
		createdAt:     ts.Unix(),
		responseID:    api.ResponseIDFor(cfg.RequestID),
		messageID:     "msg_" + idSeed,
		reasoningSeed: "reasoning_" + idSeed,
		toolCalls:     map[int]*toolCallState{},
		finalStatus:   api.StatusCompleted,
	}

	o.preamble()
	o.consume(body)
	o.finalize()
	return o.finalStatus
}

// emit stamps, serializes, and sends one event. It reports false when
// the event could not be delivered (serialization failure drops just
// that event; a gone client stops the whole run).
func (o *orchestrator) emit(event *api.StreamEvent) bool {
	if o.closed {
		return false
	}
	payload, seqNum, err := o.seq.Prepare(event, o.responseID)
	if err != nil {
		slog.Error("failed to serialize stream event",
			"type", event.Type, "error", err)
		return false
	}
	if o.cfg.OnEvent != nil {
		o.cfg.OnEvent(payload, seqNum)
	}
	select {
	case o.out <- payload:
		return true
	case <-o.ctx.Done():
		o.closed = true
		return false
	}
}

// preamble emits the three events every response starts with:
// response.created, the message output_item.added, and
// content_part.added.
func (o *orchestrator) preamble() {
	o.emit(&api.StreamEvent{
		Type:     api.EventResponseCreated,
		Response: o.buildResponse(api.StatusInProgress, nil, nil, nil),
	})

	o.emit(&api.StreamEvent{
		Type:        api.EventOutputItemAdded,
		ItemID:      o.messageID,
		OutputIndex: api.Ptr(0),
		Item: &api.OutputItem{
			ID:      o.messageID,
			Object:  api.ObjectRealtimeItem,
			Type:    api.OutputItemMessage,
			Status:  api.StatusInProgress,
			Role:    "assistant",
			Content: []api.OutputContent{},
		},
	})

	o.emit(&api.StreamEvent{
		Type:         api.EventContentPartAdded,
		ItemID:       o.messageID,
		OutputIndex:  api.Ptr(0),
		ContentIndex: api.Ptr(0),
	})
}

// consume reads the upstream body through the frame parser and
// processes every complete payload until [DONE], an error chunk, body
// exhaustion, or client disconnect.
func (o *orchestrator) consume(body io.Reader) {
	var parser backend.FrameParser
	buf := make([]byte, 4096)

	for !o.closed {
		n, err := body.Read(buf)
		if n > 0 {
			for _, payload := range parser.Push(buf[:n]) {
				if o.process(payload) {
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				slog.Error("error reading backend stream", "error", err)
			}
			break
		}
	}

	if o.closed {
		return
	}
	for _, payload := range parser.Flush() {
		if o.process(payload) {
			return
		}
	}
}

// process handles one complete backend payload. It returns true when
// the stream is done.
func (o *orchestrator) process(data string) bool {
	data = strings.TrimSpace(data)

	o.chunkNum++
	if o.cfg.OnChunk != nil {
		o.cfg.OnChunk(data, o.chunkNum)
	}

	if data == "[DONE]" {
		slog.Debug("received [DONE] marker from backend", "request_id", o.cfg.RequestID)
		return true
	}
	if data == "" {
		return false
	}

	var chunk backend.ChatChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		slog.Warn("failed to parse backend chunk", "error", err)
		return false
	}

	if len(chunk.Error) > 0 && string(chunk.Error) != "null" {
		slog.Error("backend returned error in chunk", "error", string(chunk.Error))
		o.finalStatus = api.StatusFailed
		return true
	}

	if chunk.Usage != nil {
		if chunk.Usage.PromptTokens != nil {
			o.inputTokens = *chunk.Usage.PromptTokens
		}
		if chunk.Usage.CompletionTokens != nil {
			o.outputTokens = *chunk.Usage.CompletionTokens
		}
	}

	if len(chunk.Choices) == 0 {
		return false
	}
	o.handleChoice(&chunk.Choices[0])
	return o.closed
}

func (o *orchestrator) handleChoice(choice *backend.ChatChoice) {
	if choice.FinishReason != nil {
		o.finalStatus = translate.FinishReasonStatus(choice.FinishReason)
		slog.Debug("backend finish_reason",
			"reason", *choice.FinishReason, "status", o.finalStatus)
	}

	// Non-streaming fallback: the whole completion arrives as one
	// message object.
	if len(choice.Message) > 0 {
		var msg struct {
			Content *string `json:"content"`
		}
		if err := json.Unmarshal(choice.Message, &msg); err == nil &&
			msg.Content != nil && *msg.Content != "" {
			o.accumulatedText += *msg.Content
			o.emit(&api.StreamEvent{
				Type:         api.EventOutputTextDelta,
				ItemID:       o.messageID,
				OutputIndex:  api.Ptr(0),
				ContentIndex: api.Ptr(0),
				Delta:        *msg.Content,
			})
		}
		return
	}

	if choice.Delta == nil {
		return
	}
	delta := choice.Delta

	if delta.ReasoningContent != nil && *delta.ReasoningContent != "" {
		o.handleReasoning(*delta.ReasoningContent)
	}

	if len(delta.Content) > 0 {
		if text, ok := backend.ExtractText(delta.Content); ok {
			if text != "" && !o.handleText(text) {
				// Text path consumed the chunk (XML buffering or a
				// duplicate delta); tool calls in the same chunk are
				// dropped like any other trailing payload.
				return
			}
		} else {
			slog.Debug("unhandled content delta shape", "content", string(delta.Content))
		}
	}

	for i := range delta.ToolCalls {
		o.handleToolCall(&delta.ToolCalls[i])
	}
}

func (o *orchestrator) handleReasoning(reasoning string) {
	o.accumulatedReasoning += reasoning

	if !o.reasoningStarted {
		o.reasoningItemID = o.reasoningSeed
		o.reasoningStarted = true
		slog.Info("reasoning content detected, emitting reasoning events")
	}

	o.emit(&api.StreamEvent{
		Type:         api.EventReasoningTextDelta,
		ItemID:       o.reasoningItemID,
		OutputIndex:  api.Ptr(0),
		ContentIndex: api.Ptr(0),
		Delta:        reasoning,
	})
}

// handleText appends the recovered text and either salvages XML tool
// calls out of it or emits it as an output_text delta. It returns
// false when the rest of the chunk should be skipped.
func (o *orchestrator) handleText(text string) bool {
	o.accumulatedText += text

	if !o.xmlBuffering && strings.Contains(o.accumulatedText, "<function=") {
		o.xmlBuffering = true
		o.lastTextDelta = nil
		slog.Debug("started XML buffering")
	}

	if o.xmlBuffering {
		if !strings.Contains(o.accumulatedText, "</tool_call>") &&
			!strings.Contains(o.accumulatedText, "</function>") {
			// No closing tag yet, keep buffering.
			return false
		}

		cleaned, calls := xmltool.Extract(o.accumulatedText)
		if len(calls) > 0 {
			slog.Warn("converted XML-style tool calls to function calls",
				"count", len(calls))
			o.accumulatedText = cleaned
			for _, call := range calls {
				o.emitSalvagedCall(call)
			}
			o.xmlBuffering = false
			return false
		}
		slog.Warn("found closing tag but XML parsing yielded no calls, emitting as text")
		o.xmlBuffering = false
	}

	if o.lastTextDelta != nil && *o.lastTextDelta == text {
		slog.Debug("skipping duplicate text delta")
		return false
	}

	o.emit(&api.StreamEvent{
		Type:         api.EventOutputTextDelta,
		ItemID:       o.messageID,
		OutputIndex:  api.Ptr(0),
		ContentIndex: api.Ptr(0),
		Delta:        text,
	})
	o.lastTextDelta = &text
	return true
}

// emitSalvagedCall registers one XML-recovered tool call at the next
// index free of native collisions and emits its added/done pair.
func (o *orchestrator) emitSalvagedCall(call xmltool.ParsedCall) {
	for {
		if _, taken := o.toolCalls[o.nextXMLIndex]; !taken {
			break
		}
		o.nextXMLIndex++
	}
	idx := o.nextXMLIndex
	o.nextXMLIndex++

	callID := fmt.Sprintf("call_xml_%s_%d", o.cfg.RequestID, idx)
	name := call.Name
	o.toolCalls[idx] = &toolCallState{
		callID:    callID,
		itemID:    callID,
		typ:       "function",
		name:      &name,
		arguments: call.Arguments,
		itemAdded: true,
	}

	outputIdx := idx + 1
	o.emit(&api.StreamEvent{
		Type:        api.EventOutputItemAdded,
		ItemID:      callID,
		OutputIndex: api.Ptr(outputIdx),
		Item: &api.OutputItem{
			ID:     callID,
			Object: api.ObjectRealtimeItem,
			Type:   api.OutputItemFunctionCall,
			Status: api.StatusInProgress,
			CallID: callID,
			Name:   call.Name,
		},
		CallID: callID,
		Name:   call.Name,
	})

	o.emit(&api.StreamEvent{
		Type:        api.EventFunctionCallArgsDone,
		ItemID:      callID,
		OutputIndex: api.Ptr(outputIdx),
		CallID:      callID,
		Name:        call.Name,
		Arguments:   api.Ptr(call.Arguments),
	})

	observability.XMLSalvagedTotal.Inc()
	slog.Info("converted XML tool call", "name", call.Name)
}

func (o *orchestrator) handleToolCall(tc *backend.ToolCallDelta) {
	state, ok := o.toolCalls[tc.Index]
	if !ok {
		callID := fmt.Sprintf("call_%s_%d", o.cfg.RequestID, tc.Index)
		if tc.ID != nil {
			callID = *tc.ID
		}
		typ := "function"
		if tc.Type != nil {
			typ = *tc.Type
		}
		state = &toolCallState{callID: callID, itemID: callID, typ: typ}
		o.toolCalls[tc.Index] = state
	}

	if tc.ID != nil {
		state.callID = *tc.ID
		state.itemID = *tc.ID
	}
	if tc.Type != nil {
		state.typ = *tc.Type
	}

	if tc.Function == nil {
		return
	}

	if tc.Function.Name != nil {
		state.name = tc.Function.Name

		// First sight of the function name announces the item.
		if !state.itemAdded {
			state.itemAdded = true
			outputIdx := tc.Index + 1
			slog.Info("tool call started", "name", *state.name, "index", tc.Index)

			o.emit(&api.StreamEvent{
				Type:        api.EventOutputItemAdded,
				ItemID:      state.itemID,
				OutputIndex: api.Ptr(outputIdx),
				Item: &api.OutputItem{
					ID:        state.itemID,
					Object:    api.ObjectRealtimeItem,
					Type:      api.OutputItemFunctionCall,
					Status:    api.StatusInProgress,
					CallID:    state.callID,
					Name:      *state.name,
					Arguments: api.Ptr(""),
				},
				CallID: state.callID,
			})
		}
	}

	if tc.Function.Arguments != nil {
		state.arguments += *tc.Function.Arguments
		outputIdx := tc.Index + 1

		o.emit(&api.StreamEvent{
			Type:        api.EventFunctionCallArgsDelta,
			ItemID:      state.itemID,
			OutputIndex: api.Ptr(outputIdx),
			Delta:       *tc.Function.Arguments,
			CallID:      state.callID,
		})
	}
}

// finalize emits the done events for reasoning, text, and tool calls,
// then the terminal response.completed.
func (o *orchestrator) finalize() {
	if o.reasoningStarted {
		o.emit(&api.StreamEvent{
			Type:         api.EventReasoningTextDone,
			ItemID:       o.reasoningItemID,
			OutputIndex:  api.Ptr(0),
			ContentIndex: api.Ptr(0),
			Text:         api.Ptr(o.accumulatedReasoning),
		})
		slog.Info("reasoning content complete", "chars", len(o.accumulatedReasoning))
	}

	if o.accumulatedText != "" {
		o.emit(&api.StreamEvent{
			Type:         api.EventOutputTextDone,
			ItemID:       o.messageID,
			OutputIndex:  api.Ptr(0),
			ContentIndex: api.Ptr(0),
			Text:         api.Ptr(o.accumulatedText),
		})

		o.emit(&api.StreamEvent{
			Type:         api.EventContentPartDone,
			ItemID:       o.messageID,
			OutputIndex:  api.Ptr(0),
			ContentIndex: api.Ptr(0),
		})

		o.emit(&api.StreamEvent{
			Type:        api.EventOutputItemDone,
			ItemID:      o.messageID,
			OutputIndex: api.Ptr(0),
			Item: &api.OutputItem{
				ID:      o.messageID,
				Object:  api.ObjectRealtimeItem,
				Type:    api.OutputItemMessage,
				Status:  api.StatusCompleted,
				Role:    "assistant",
				Content: []api.OutputContent{api.OutputTextContent(o.accumulatedText)},
			},
		})
		o.lastTextDelta = nil
	}

	sorted := o.sortedToolCalls()
	for _, entry := range sorted {
		state := entry.state
		outputIdx := entry.index + 1
		name := "function_call"
		if state.name != nil {
			name = *state.name
		}

		o.emit(&api.StreamEvent{
			Type:        api.EventFunctionCallArgsDone,
			ItemID:      state.itemID,
			OutputIndex: api.Ptr(outputIdx),
			CallID:      state.callID,
			Name:        name,
			Arguments:   api.Ptr(state.arguments),
		})
		slog.Info("tool call complete", "name", name, "arg_bytes", len(state.arguments))

		o.emit(&api.StreamEvent{
			Type:        api.EventOutputItemDone,
			ItemID:      state.itemID,
			OutputIndex: api.Ptr(outputIdx),
			Item: &api.OutputItem{
				ID:        state.itemID,
				Object:    api.ObjectRealtimeItem,
				Type:      api.OutputItemFunctionCall,
				Status:    api.StatusCompleted,
				CallID:    state.callID,
				Name:      name,
				Arguments: api.Ptr(state.arguments),
			},
			CallID: state.callID,
		})
	}

	if o.inputTokens > 0 {
		observability.TokensTotal.WithLabelValues(o.cfg.Model, "input").Add(float64(o.inputTokens))
	}
	if o.outputTokens > 0 {
		observability.TokensTotal.WithLabelValues(o.cfg.Model, "output").Add(float64(o.outputTokens))
	}

	o.emit(&api.StreamEvent{
		Type:     api.EventResponseCompleted,
		Response: o.buildResponse(o.finalStatus, o.buildOutput(sorted), o.buildUsage(), o.incompleteDetails()),
	})
}

type indexedCall struct {
	index int
	state *toolCallState
}

func (o *orchestrator) sortedToolCalls() []indexedCall {
	sorted := make([]indexedCall, 0, len(o.toolCalls))
	for idx, state := range o.toolCalls {
		sorted = append(sorted, indexedCall{index: idx, state: state})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].index < sorted[j].index })
	return sorted
}

// buildOutput assembles the completed response's output: the reasoning
// item when reasoning was streamed, the message item always (index 0
// stays stable), then the tool calls in index order.
func (o *orchestrator) buildOutput(sorted []indexedCall) []api.OutputItem {
	var items []api.OutputItem

	if o.reasoningStarted && o.accumulatedReasoning != "" {
		items = append(items, api.OutputItem{
			ID:      o.reasoningItemID,
			Object:  api.ObjectRealtimeItem,
			Type:    api.OutputItemReasoning,
			Status:  api.StatusCompleted,
			Role:    "assistant",
			Content: []api.OutputContent{api.ReasoningContent(o.accumulatedReasoning)},
		})
	}

	items = append(items, api.OutputItem{
		ID:      o.messageID,
		Object:  api.ObjectRealtimeItem,
		Type:    api.OutputItemMessage,
		Status:  api.StatusCompleted,
		Role:    "assistant",
		Content: []api.OutputContent{api.OutputTextContent(o.accumulatedText)},
	})

	for _, entry := range sorted {
		state := entry.state
		name := "function_call"
		if state.name != nil {
			name = *state.name
		}
		items = append(items, api.OutputItem{
			ID:        state.itemID,
			Object:    api.ObjectRealtimeItem,
			Type:      api.OutputItemFunctionCall,
			Status:    api.StatusCompleted,
			CallID:    state.callID,
			Name:      name,
			Arguments: api.Ptr(state.arguments),
		})
	}
	return items
}

func (o *orchestrator) buildUsage() *api.Usage {
	return &api.Usage{
		InputTokens:         o.inputTokens,
		OutputTokens:        o.outputTokens,
		TotalTokens:         o.inputTokens + o.outputTokens,
		InputTokensDetails:  &api.TokenDetails{},
		OutputTokensDetails: &api.TokenDetails{},
	}
}

func (o *orchestrator) incompleteDetails() *api.IncompleteDetails {
	if o.finalStatus != api.StatusIncomplete {
		return nil
	}
	return &api.IncompleteDetails{Reason: "max_output_tokens"}
}

// buildResponse creates the Response echo embedded in lifecycle
// events, carrying all pass-through request fields.
func (o *orchestrator) buildResponse(status api.Status, output []api.OutputItem, usage *api.Usage, incomplete *api.IncompleteDetails) *api.Response {
	req := o.cfg.Request
	if output == nil {
		output = []api.OutputItem{}
	}

	reasoning := api.ReasoningStateFrom(req.Reasoning)
	if reasoning == nil && o.reasoningStarted {
		reasoning = &api.ReasoningState{}
	}

	resp := &api.Response{
		ID:                o.responseID,
		Object:            api.ObjectResponse,
		CreatedAt:         o.createdAt,
		Status:            status,
		IncompleteDetails: incomplete,
		Model:             o.cfg.Model,
		Output:            output,
		Usage:             usage,
		Metadata:          req.Metadata,
		Tools:             req.Tools,
		ToolChoice:        req.ToolChoice,
		ParallelToolCalls: req.ParallelToolCalls,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		MaxOutputTokens:   req.MaxOutputTokens,
		Store:             api.Ptr(req.Store != nil && *req.Store),
		Reasoning:         reasoning,
		Background:        req.Background,
		MaxToolCalls:      req.MaxToolCalls,
		Text:              req.Text,
		Prompt:            req.Prompt,
		Conversation:      req.Conversation,
		TopLogprobs:       req.TopLogprobs,
	}
	if req.Instructions != "" {
		resp.Instructions = api.Ptr(req.Instructions)
	}
	if req.PreviousResponseID != "" {
		resp.PreviousResponseID = api.Ptr(req.PreviousResponseID)
	}
	if req.Truncation != "" {
		resp.Truncation = api.Ptr(req.Truncation)
	}
	if req.User != "" {
		resp.User = api.Ptr(req.User)
	}
	if req.SafetyIdentifier != "" {
		resp.SafetyIdentifier = api.Ptr(req.SafetyIdentifier)
	}
	if req.PromptCacheKey != "" {
		resp.PromptCacheKey = api.Ptr(req.PromptCacheKey)
	}
	if req.ServiceTier != "" {
		resp.ServiceTier = api.Ptr(req.ServiceTier)
	}
	return resp
}
