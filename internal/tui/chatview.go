package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/txray-labs/txray/internal/chat"
	"github.com/txray-labs/txray/internal/payment"
)

const sidebarWidth = 26

// renderSidebar renders the conversation list, newest first.
func renderSidebar(convs []*chat.Conversation, currentID string, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("⬡ TXRAY") + "\n\n")

	if len(convs) == 0 {
		b.WriteString(convMetaStyle.Render("no conversations") + "\n")
	}

	for _, conv := range convs {
		label := conv.Title
		if label == "" {
			label = "New chat"
		}
		line := truncateTo(label, sidebarWidth-4)
		if conv.ID == currentID {
			b.WriteString(convItemSelectedStyle.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(convItemStyle.Render("  "+line) + "\n")
		}
		b.WriteString(convMetaStyle.Render("  "+fmt.Sprintf("%d msgs", len(conv.Messages))) + "\n")
	}

	return sidebarStyle.Width(sidebarWidth).Height(height).Render(b.String())
}

// renderChatPane renders the current conversation's messages.
func renderChatPane(conv *chat.Conversation, width, height int, renderer *glamour.TermRenderer, spinnerView string) string {
	if conv == nil {
		empty := convMetaStyle.Render("Paste a transaction hash or ask about a trade to start an analysis.")
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, empty)
	}

	var b strings.Builder
	for _, msg := range conv.Messages {
		b.WriteString(renderMessage(msg, width, renderer, spinnerView))
		b.WriteString("\n")
	}

	body := b.String()
	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	return strings.Join(lines, "\n")
}

func renderMessage(msg *chat.Message, width int, renderer *glamour.TermRenderer, spinnerView string) string {
	var b strings.Builder

	if msg.Role == chat.RoleUser {
		b.WriteString(userHeaderStyle.Render("▲ you") + "\n")
		b.WriteString(messageBodyStyle.Render(msg.Content) + "\n")
		return b.String()
	}

	b.WriteString(assistantHeaderStyle.Render("◆ txray") + "\n")

	if msg.Status == chat.StatusLoading || len(msg.Progress) > 0 {
		b.WriteString(renderPipeline(msg.Progress, msg.Status, spinnerView))
	}

	switch msg.Status {
	case chat.StatusError:
		b.WriteString(errorTextStyle.Render(msg.Content) + "\n")
	case chat.StatusCompleted:
		b.WriteString(renderMarkdown(msg.Content, width, renderer))
		if summary := renderReportSummary(msg.Report); summary != "" {
			b.WriteString(summary + "\n")
		}
	default:
		if msg.Content != "" {
			b.WriteString(messageBodyStyle.Render(msg.Content) + "\n")
		}
	}

	return b.String()
}

// renderMarkdown renders a completed report body, falling back to the raw
// text when the renderer is unavailable or chokes.
func renderMarkdown(content string, width int, renderer *glamour.TermRenderer) string {
	if renderer == nil {
		return messageBodyStyle.Render(content) + "\n"
	}
	out, err := renderer.Render(content)
	if err != nil {
		return messageBodyStyle.Render(content) + "\n"
	}
	return strings.TrimRight(out, "\n") + "\n"
}

type reportSummary struct {
	MevType string          `json:"mevType"`
	GasUsed json.RawMessage `json:"gasUsed"`
}

// renderReportSummary renders the mevType/gasUsed block from a message_end
// report payload, or "" when the report carries neither field.
func renderReportSummary(report json.RawMessage) string {
	if len(report) == 0 {
		return ""
	}
	var r reportSummary
	if err := json.Unmarshal(report, &r); err != nil {
		return ""
	}
	gas := rawNumber(r.GasUsed)
	if r.MevType == "" && gas == "" {
		return ""
	}

	var rows []string
	if r.MevType != "" {
		rows = append(rows, reportLabelStyle.Render("MEV TYPE")+"  "+r.MevType)
	}
	if gas != "" {
		rows = append(rows, reportLabelStyle.Render("GAS USED")+"  "+gas)
	}
	return reportStyle.Render(strings.Join(rows, "\n"))
}

// renderPaymentOverlay renders the x402 descriptor box.
func renderPaymentOverlay(req payment.Required, width, height int) string {
	var b strings.Builder
	b.WriteString(paymentLabelStyle.Render("PAYMENT REQUIRED") + "\n\n")

	if req.Amount != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", paymentLabelStyle.Render("amount"), req.Amount))
	}
	if req.Asset != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", paymentLabelStyle.Render("asset"), req.Asset))
	}
	if req.Network != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", paymentLabelStyle.Render("network"), req.Network))
	}
	if req.Recipient != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", paymentLabelStyle.Render("pay to"), req.Recipient))
	}
	if req.Amount == "" && len(req.Raw) > 0 {
		b.WriteString(truncateTo(string(req.Raw), 200) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("sign externally and restart with a payment proof · esc to dismiss"))

	box := paymentBoxStyle.Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// truncateTo trims a string to at most n runes.
func truncateTo(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
