package store

// Provider is one configured upstream endpoint, bound to exactly one CLI
// type. The health fields (ConsecutiveFailures, BlacklistedUntil) are
// written only by the health operations; everything else belongs to the
// operator.
type Provider struct {
	ID                  int64  `json:"id"`
	CliType             string `json:"cli_type"`
	Name                string `json:"name"`
	BaseURL             string `json:"base_url"`
	APIKey              string `json:"api_key"`
	Enabled             bool   `json:"enabled"`
	FailureThreshold    int64  `json:"failure_threshold"`
	BlacklistMinutes    int64  `json:"blacklist_minutes"`
	ConsecutiveFailures int64  `json:"consecutive_failures"`
	BlacklistedUntil    *int64 `json:"blacklisted_until"`
	SortOrder           int64  `json:"sort_order"`
	CreatedAt           int64  `json:"created_at"`
	UpdatedAt           int64  `json:"updated_at"`
}

// ModelMap rewrites a source model identifier to a target identifier for
// one provider. Maps are evaluated in insertion order; the first enabled
// match wins.
type ModelMap struct {
	ID          int64  `json:"id"`
	ProviderID  int64  `json:"provider_id"`
	SourceModel string `json:"source_model"`
	TargetModel string `json:"target_model"`
	Enabled     bool   `json:"enabled"`
}

// ProviderWithMaps bundles a provider with its model mappings: only the
// enabled ones when returned by SelectProvider, the full set (enabled and
// disabled) when returned by GetProvider.
type ProviderWithMaps struct {
	Provider
	ModelMaps []ModelMap `json:"model_maps"`
}

// ModelMapEntry is the operator-supplied form of a model mapping.
type ModelMapEntry struct {
	SourceModel string `json:"source_model"`
	TargetModel string `json:"target_model"`
	Enabled     bool   `json:"enabled"`
}

// ProviderCreate carries the fields for a new provider.
type ProviderCreate struct {
	CliType          string          `json:"cli_type"`
	Name             string          `json:"name"`
	BaseURL          string          `json:"base_url"`
	APIKey           string          `json:"api_key"`
	Enabled          bool            `json:"enabled"`
	FailureThreshold int64           `json:"failure_threshold"`
	BlacklistMinutes int64           `json:"blacklist_minutes"`
	ModelMaps        []ModelMapEntry `json:"model_maps"`
}

// ProviderUpdate carries a partial provider update; nil fields are left
// untouched. A non-nil ModelMaps replaces the provider's whole mapping set.
type ProviderUpdate struct {
	Name             *string          `json:"name"`
	BaseURL          *string          `json:"base_url"`
	APIKey           *string          `json:"api_key"`
	Enabled          *bool            `json:"enabled"`
	FailureThreshold *int64           `json:"failure_threshold"`
	BlacklistMinutes *int64           `json:"blacklist_minutes"`
	ModelMaps        *[]ModelMapEntry `json:"model_maps"`
}

// TimeoutSettings is the singleton timeout row (id = 1), all values in
// seconds.
type TimeoutSettings struct {
	StreamFirstByteTimeout int64 `json:"stream_first_byte_timeout"`
	StreamIdleTimeout      int64 `json:"stream_idle_timeout"`
	NonStreamTimeout       int64 `json:"non_stream_timeout"`
	UpdatedAt              int64 `json:"updated_at"`
}

// GatewaySettings is the singleton operator-settings row (id = 1).
type GatewaySettings struct {
	DebugLog  bool  `json:"debug_log"`
	UpdatedAt int64 `json:"updated_at"`
}
