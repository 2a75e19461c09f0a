package constants

// AnalysisFailedMessage replaces the assistant placeholder content when a
// stream dies mid-analysis. Kept fixed so the UI never shows raw transport
// errors to the operator.
const AnalysisFailedMessage = "Analysis failed. Please check the backend connection."

// TitleMaxRunes caps conversation titles derived from the first user message.
const TitleMaxRunes = 20

// EventLogMaxChars caps the payload excerpt written to the log for each
// decoded SSE event.
const EventLogMaxChars = 200

// TempIDPrefix marks client-generated conversation ids that have not yet been
// bound to a server-assigned id.
const TempIDPrefix = "temp_"

// DefaultBackendURL is used when no endpoint is configured.
const DefaultBackendURL = "http://localhost:3001"

// PaymentDecimals is the fixed-point scale of x402 atomic amounts.
const PaymentDecimals = 6
