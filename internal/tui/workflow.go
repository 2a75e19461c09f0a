package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/txray-labs/txray/internal/chat"
)

// StepState is the derived state of one analysis pipeline stage.
type StepState int

const (
	StepPending StepState = iota
	StepActive
	StepDone
)

// PipelineStep is one row of the analysis progress display.
type PipelineStep struct {
	Label  string
	State  StepState
	Detail string
}

type rpcDonePayload struct {
	BlockNumber json.RawMessage `json:"blockNumber"`
	RawTx       struct {
		BlockNumber json.RawMessage `json:"blockNumber"`
	} `json:"rawTx"`
}

// rawNumber normalizes a block number that arrives as either a JSON number
// or a quoted string.
func rawNumber(raw json.RawMessage) string {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "null" {
		return ""
	}
	return s
}

type etherscanDonePayload struct {
	ContractABI    []json.RawMessage `json:"contractABI"`
	InternalTxs    []json.RawMessage `json:"internalTxs"`
	ContractSource string            `json:"contractSource"`
}

type tenderlyDonePayload struct {
	Trace json.RawMessage   `json:"trace"`
	Calls []json.RawMessage `json:"calls"`
}

// DerivePipeline folds a message's progress log into the four-stage pipeline
// the analysis backend runs: RPC trace, Etherscan aggregation, Tenderly
// simulation, report drafting.
func DerivePipeline(events []chat.ProgressEvent, status chat.Status) []PipelineStep {
	byKind := make(map[chat.EventKind]chat.ProgressEvent)
	for _, ev := range events {
		byKind[ev.Type] = ev
	}

	rpc := PipelineStep{Label: "RPC TRACE"}
	if ev, ok := byKind[chat.EventRPCDone]; ok {
		rpc.State = StepDone
		var p rpcDonePayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			block := rawNumber(p.BlockNumber)
			if block == "" {
				block = rawNumber(p.RawTx.BlockNumber)
			}
			if block != "" {
				rpc.Detail = "block " + block
			}
		}
	} else if status == chat.StatusLoading {
		rpc.State = StepActive
	}

	etherscan := stageStep("ETHERSCAN", byKind, chat.EventEtherscanStart, chat.EventEtherscanDone, status)
	if ev, ok := byKind[chat.EventEtherscanDone]; ok {
		var p etherscanDonePayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			etherscan.Detail = fmt.Sprintf("abi %d · internal %d", len(p.ContractABI), len(p.InternalTxs))
		}
	}

	tenderly := stageStep("TENDERLY", byKind, chat.EventTenderlyStart, chat.EventTenderlyDone, status)
	if ev, ok := byKind[chat.EventTenderlyDone]; ok {
		var p tenderlyDonePayload
		if err := json.Unmarshal(ev.Payload, &p); err == nil {
			detail := fmt.Sprintf("calls %d", len(p.Calls))
			if len(p.Trace) > 0 && string(p.Trace) != "null" {
				detail = "trace · " + detail
			}
			tenderly.Detail = detail
		}
	}

	draft := stageStep("DRAFT", byKind, chat.EventDraftStart, chat.EventDraftDone, status)
	if _, ok := byKind[chat.EventMessageEnd]; ok || status == chat.StatusCompleted {
		draft.State = StepDone
	}

	return []PipelineStep{rpc, etherscan, tenderly, draft}
}

// stageStep derives one start/done stage.
func stageStep(label string, byKind map[chat.EventKind]chat.ProgressEvent, start, done chat.EventKind, status chat.Status) PipelineStep {
	step := PipelineStep{Label: label}
	if _, ok := byKind[done]; ok {
		step.State = StepDone
	} else if _, ok := byKind[start]; ok && status == chat.StatusLoading {
		step.State = StepActive
	}
	return step
}

// renderPipeline renders the step rows plus any streamed error line.
func renderPipeline(events []chat.ProgressEvent, status chat.Status, spinnerView string) string {
	var b strings.Builder

	for _, step := range DerivePipeline(events, status) {
		var glyph, label string
		switch step.State {
		case StepDone:
			glyph = stepDoneStyle.Render("◆")
			label = stepDoneStyle.Render(step.Label)
		case StepActive:
			glyph = spinnerView
			if glyph == "" {
				glyph = stepActiveStyle.Render("◇")
			}
			label = stepActiveStyle.Render(step.Label)
		default:
			glyph = stepPendingStyle.Render("·")
			label = stepPendingStyle.Render(step.Label)
		}

		b.WriteString("  " + glyph + " " + label)
		if step.Detail != "" {
			b.WriteString(" " + stepDetailStyle.Render(step.Detail))
		}
		b.WriteString("\n")
	}

	for _, ev := range events {
		if ev.Type == chat.EventError {
			if msg := chat.ErrorMessage(ev.Payload); msg != "" {
				b.WriteString("  " + errorTextStyle.Render("! "+msg) + "\n")
			}
		}
	}

	return b.String()
}
