package telemetry

// RequestRecord is everything the forwarder knows about a terminated
// request. Header and body copies arrive pre-truncated; StatusCode is nil
// when no upstream response was received, and ProviderName is empty when
// the request never reached provider selection.
type RequestRecord struct {
	CliType      string
	ProviderName string
	ModelID      string
	StatusCode   *int
	ElapsedMs    int64
	InputTokens  int64
	OutputTokens int64
	ClientMethod string
	ClientPath   string

	ClientHeaders   string
	ClientBody      string
	ForwardURL      string
	ForwardHeaders  string
	ForwardBody     string
	ResponseHeaders string
	ResponseBody    string
	ErrorMessage    string
}

// Success reports whether the record counts as a success for daily usage:
// an HTTP status in [200, 300) and no error noted. A streaming request
// that got a 200 but died mid-stream is a failure.
func (r RequestRecord) Success() bool {
	return r.StatusCode != nil && *r.StatusCode >= 200 && *r.StatusCode < 300 && r.ErrorMessage == ""
}

// RequestLogItem is the list form of a request log row.
type RequestLogItem struct {
	ID           int64  `json:"id"`
	CreatedAt    int64  `json:"created_at"`
	CliType      string `json:"cli_type"`
	ProviderName string `json:"provider_name"`
	ModelID      string `json:"model_id"`
	StatusCode   *int   `json:"status_code"`
	ElapsedMs    int64  `json:"elapsed_ms"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	ClientMethod string `json:"client_method"`
	ClientPath   string `json:"client_path"`
	ErrorMessage string `json:"error_message"`
}

// RequestLogDetail extends the list form with the stored header and body
// copies.
type RequestLogDetail struct {
	RequestLogItem
	ClientHeaders   string `json:"client_headers"`
	ClientBody      string `json:"client_body"`
	ForwardURL      string `json:"forward_url"`
	ForwardHeaders  string `json:"forward_headers"`
	ForwardBody     string `json:"forward_body"`
	ResponseHeaders string `json:"response_headers"`
	ResponseBody    string `json:"response_body"`
}

// PaginatedLogs is one page of request logs plus the total row count.
type PaginatedLogs struct {
	Items    []RequestLogItem `json:"items"`
	Total    int64            `json:"total"`
	Page     int64            `json:"page"`
	PageSize int64            `json:"page_size"`
}

// SystemEvent is one row of the system log.
type SystemEvent struct {
	ID           int64  `json:"id"`
	CreatedAt    int64  `json:"created_at"`
	Level        string `json:"level"`
	EventType    string `json:"event_type"`
	Message      string `json:"message"`
	ProviderName string `json:"provider_name"`
	Details      string `json:"details"`
}

// DailyStat is one usage_daily row.
type DailyStat struct {
	UsageDate    string `json:"usage_date"`
	ProviderName string `json:"provider_name"`
	CliType      string `json:"cli_type"`
	RequestCount int64  `json:"request_count"`
	SuccessCount int64  `json:"success_count"`
	FailureCount int64  `json:"failure_count"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

// ProviderStat aggregates usage_daily across all dates for one provider.
type ProviderStat struct {
	ProviderName string `json:"provider_name"`
	CliType      string `json:"cli_type"`
	RequestCount int64  `json:"request_count"`
	SuccessCount int64  `json:"success_count"`
	FailureCount int64  `json:"failure_count"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}
