package entitytools

import (
	"fmt"
	"time"

	"github.com/c360studio/semstreams/component"
)

// Config holds configuration for the entity-tools processor component
type Config struct {
	Ports              *component.PortConfig `json:"ports"                schema:"type:ports,description:Port configuration,category:basic"`
	ModelSource        string                `json:"model_source"         schema:"type:string,description:Taxonomy model source (embedded or a file path),category:basic,default:embedded"`
	ModelVersion       string                `json:"model_version"        schema:"type:string,description:Upstream taxonomy model version to fetch instead of the embedded subset,category:advanced"`
	NameResolverURL    string                `json:"name_resolver_url"    schema:"type:string,description:Name Resolution Service endpoint,category:basic,default:https://name-resolution-sri.renci.org"`
	NodeNormalizerURL  string                `json:"node_normalizer_url"  schema:"type:string,description:Node Normalization Service endpoint,category:basic,default:https://nodenormalization-sri.renci.org"`
	StreamName         string                `json:"stream_name"          schema:"type:string,description:JetStream stream name,category:basic,default:AGENT"`
	Timeout            string                `json:"timeout"              schema:"type:string,description:Tool execution timeout,category:advanced,default:30s"`
	ConsumerNameSuffix string                `json:"consumer_name_suffix" schema:"type:string,description:Suffix appended to consumer names for uniqueness,category:advanced"`
	HeartbeatInterval  string                `json:"heartbeat_interval"   schema:"type:string,description:Heartbeat interval for tool registration,category:advanced,default:10s"`
	CacheTTL           string                `json:"cache_ttl"            schema:"type:string,description:How long resolution responses stay cached in KV,category:advanced,default:1h"`
	ToolAllowlist      []string              `json:"tool_allowlist"       schema:"type:array,description:Tools to register (empty registers all),category:advanced"`
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}

	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout format: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
	}

	if c.HeartbeatInterval != "" {
		d, err := time.ParseDuration(c.HeartbeatInterval)
		if err != nil {
			return fmt.Errorf("invalid heartbeat_interval format: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("heartbeat_interval must be positive")
		}
	}

	if c.CacheTTL != "" {
		d, err := time.ParseDuration(c.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache_ttl format: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("cache_ttl must be positive")
		}
	}

	if c.ModelSource != "" && c.ModelVersion != "" && c.ModelSource != "embedded" {
		return fmt.Errorf("model_source and model_version are mutually exclusive")
	}

	return nil
}

// DefaultConfig returns default configuration for the entity-tools processor
func DefaultConfig() Config {
	inputDefs := []component.PortDefinition{
		{
			Name:        "tool.execute.taxonomy",
			Type:        "jetstream",
			Subject:     "tool.execute.get_*",
			StreamName:  "AGENT",
			Required:    true,
			Description: "Taxonomy query tool execution requests",
		},
		{
			Name:        "tool.execute.entity",
			Type:        "jetstream",
			Subject:     "tool.execute.resolve_*",
			StreamName:  "AGENT",
			Required:    true,
			Description: "Entity resolution tool execution requests",
		},
	}

	outputDefs := []component.PortDefinition{
		{
			Name:        "tool.result",
			Type:        "jetstream",
			Subject:     "tool.result.*",
			StreamName:  "AGENT",
			Required:    true,
			Description: "Tool execution results",
		},
	}

	return Config{
		Ports: &component.PortConfig{
			Inputs:  inputDefs,
			Outputs: outputDefs,
		},
		ModelSource:       "embedded",
		NameResolverURL:   "https://name-resolution-sri.renci.org",
		NodeNormalizerURL: "https://nodenormalization-sri.renci.org",
		StreamName:        "AGENT",
		Timeout:           "30s",
		HeartbeatInterval: "10s",
		CacheTTL:          "1h",
	}
}
