package tui

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/txray-labs/txray/internal/chat"
)

func progressEvent(kind chat.EventKind, payload string) chat.ProgressEvent {
	return chat.ProgressEvent{
		Type:    kind,
		Payload: json.RawMessage(payload),
		At:      time.Now().UTC(),
	}
}

func TestDerivePipelineAllPending(t *testing.T) {
	steps := DerivePipeline(nil, chat.StatusLoading)
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	if steps[0].State != StepActive {
		t.Errorf("rpc step should be active while loading, got %v", steps[0].State)
	}
	for i, step := range steps[1:] {
		if step.State != StepPending {
			t.Errorf("step %d should be pending, got %v", i+1, step.State)
		}
	}
}

func TestDerivePipelineProgression(t *testing.T) {
	events := []chat.ProgressEvent{
		progressEvent(chat.EventRPCDone, `{"blockNumber": "19000000"}`),
		progressEvent(chat.EventEtherscanStart, `{}`),
	}

	steps := DerivePipeline(events, chat.StatusLoading)
	if steps[0].State != StepDone {
		t.Errorf("rpc step should be done, got %v", steps[0].State)
	}
	if steps[0].Detail != "block 19000000" {
		t.Errorf("rpc detail = %q", steps[0].Detail)
	}
	if steps[1].State != StepActive {
		t.Errorf("etherscan step should be active, got %v", steps[1].State)
	}
	if steps[2].State != StepPending {
		t.Errorf("tenderly step should be pending, got %v", steps[2].State)
	}
}

func TestDerivePipelineDetails(t *testing.T) {
	events := []chat.ProgressEvent{
		progressEvent(chat.EventRPCDone, `{"rawTx": {"blockNumber": 19000001}}`),
		progressEvent(chat.EventEtherscanDone, `{"contractABI": [{}, {}], "internalTxs": [{}, {}, {}]}`),
		progressEvent(chat.EventTenderlyDone, `{"trace": {"gasUsed": 1}, "calls": [{}, {}]}`),
		progressEvent(chat.EventDraftDone, `{}`),
	}

	steps := DerivePipeline(events, chat.StatusLoading)
	if steps[0].Detail != "block 19000001" {
		t.Errorf("rpc detail from rawTx = %q", steps[0].Detail)
	}
	if steps[1].Detail != "abi 2 · internal 3" {
		t.Errorf("etherscan detail = %q", steps[1].Detail)
	}
	if steps[2].Detail != "trace · calls 2" {
		t.Errorf("tenderly detail = %q", steps[2].Detail)
	}
	for i, step := range steps {
		if step.State != StepDone {
			t.Errorf("step %d should be done, got %v", i, step.State)
		}
	}
}

func TestDerivePipelineCompletedMarksDraftDone(t *testing.T) {
	events := []chat.ProgressEvent{
		progressEvent(chat.EventRPCDone, `{}`),
		progressEvent(chat.EventMessageEnd, `{"content": "report"}`),
	}

	steps := DerivePipeline(events, chat.StatusCompleted)
	if steps[3].State != StepDone {
		t.Errorf("draft step should be done after message_end, got %v", steps[3].State)
	}
	// Completed status never leaves anything spinning.
	for i, step := range steps {
		if step.State == StepActive {
			t.Errorf("step %d still active after completion", i)
		}
	}
}

func TestRenderPipelineShowsError(t *testing.T) {
	events := []chat.ProgressEvent{
		progressEvent(chat.EventError, `{"message": "tenderly simulation reverted"}`),
	}

	out := stripANSI(renderPipeline(events, chat.StatusError, ""))
	if !strings.Contains(out, "tenderly simulation reverted") {
		t.Errorf("rendered pipeline missing error message:\n%s", out)
	}
}

func TestRenderReportSummary(t *testing.T) {
	out := stripANSI(renderReportSummary(json.RawMessage(`{"mevType": "sandwich", "gasUsed": 184233}`)))
	if !strings.Contains(out, "sandwich") {
		t.Errorf("summary missing mev type:\n%s", out)
	}
	if !strings.Contains(out, "184233") {
		t.Errorf("summary missing gas used:\n%s", out)
	}

	if got := renderReportSummary(nil); got != "" {
		t.Errorf("summary for nil report = %q", got)
	}
	if got := renderReportSummary(json.RawMessage(`{"other": 1}`)); got != "" {
		t.Errorf("summary for unrelated report = %q", got)
	}
}
