package protocol

// Protocol method names. The required set is fixed; optional extensions are
// answered with MethodNotFound unless a backend opts in.
const (
	// Lifecycle.
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"

	// Tools.
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"

	// Resources.
	MethodListResources         = "resources/list"
	MethodReadResource          = "resources/read"
	MethodListResourceTemplates = "resources/templates/list"

	// Prompts.
	MethodListPrompts = "prompts/list"
	MethodGetPrompt   = "prompts/get"

	// Optional extensions.
	MethodComplete          = "completion/complete"
	MethodSetLogLevel       = "logging/setLevel"
	MethodSubscribeResource = "resources/subscribe"

	// Server-initiated notifications.
	MethodToolsListChanged     = "notifications/tools/list_changed"
	MethodResourcesListChanged = "notifications/resources/list_changed"
	MethodPromptsListChanged   = "notifications/prompts/list_changed"
	MethodLogMessage           = "notifications/message"
)

// LatestProtocolVersion is the newest protocol revision this package speaks.
const LatestProtocolVersion = "2025-03-26"

// SupportedProtocolVersions lists revisions the server accepts, newest first.
var SupportedProtocolVersions = []string{
	"2025-03-26",
	"2024-11-05",
}

// NegotiateVersion picks the protocol revision for a session. A known
// requested revision is honored; anything else falls back to the latest
// supported revision, which the client may then reject by disconnecting.
func NegotiateVersion(requested string) string {
	for _, v := range SupportedProtocolVersions {
		if v == requested {
			return v
		}
	}
	return LatestProtocolVersion
}

// Implementation identifies a client or server program.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capability marks one capability family as supported. ListChanged reports
// whether the peer emits list_changed notifications for the family.
type Capability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerCapabilities declares which capability families a server supports.
// A nil field means the family is unavailable on this server.
type ServerCapabilities struct {
	Tools     *Capability `json:"tools,omitempty"`
	Resources *Capability `json:"resources,omitempty"`
	Prompts   *Capability `json:"prompts,omitempty"`
	Logging   *Capability `json:"logging,omitempty"`
}

// ClientCapabilities declares the capability families a client intends to
// use. An empty value expresses no constraint.
type ClientCapabilities struct {
	Tools     *Capability `json:"tools,omitempty"`
	Resources *Capability `json:"resources,omitempty"`
	Prompts   *Capability `json:"prompts,omitempty"`
	Logging   *Capability `json:"logging,omitempty"`
}

// IsEmpty reports whether the client declared no capability interest at all.
func (c ClientCapabilities) IsEmpty() bool {
	return c.Tools == nil && c.Resources == nil && c.Prompts == nil && c.Logging == nil
}

// InitializeParams is the payload of the initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the payload of the initialize response. Capabilities
// carries the negotiated intersection, not the client's raw ask.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// PingResult is the (empty) payload of a ping response.
type PingResult struct{}
