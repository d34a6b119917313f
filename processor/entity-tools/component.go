// Package entitytools provides a tool executor processor component that
// serves taxonomy queries and entity resolution over the tool transport.
package entitytools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/semstreams/agentic"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/c360studio/semstreams/pkg/errs"
	agentictools "github.com/c360studio/semstreams/processor/agentic-tools"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/eKathleenCarter/RoboMCP-CodeBurst/enrich"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/resolve"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/storage"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/taxonomy"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/tools"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/tools/bioclass"
	"github.com/eKathleenCarter/RoboMCP-CodeBurst/tools/entity"
)

const (
	providerName      = "robomcp"
	toolExecutePrefix = "tool.execute."
	toolResultPrefix  = "tool.result."
)

// entityToolsSchema defines the configuration schema
var entityToolsSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Component implements the entity-tools processor
type Component struct {
	name       string
	config     Config
	registry   *agentictools.ExecutorRegistry
	natsClient *natsclient.Client
	logger     *slog.Logger
	platform   component.PlatformMeta

	// Lifecycle management
	running   bool
	startTime time.Time
	mu        sync.RWMutex

	// Metrics
	requestsProcessed int64
	errors            int64
	lastActivity      time.Time

	// Consumer management
	consumers   map[string]jetstream.ConsumeContext // tool name → consume context
	cancelFuncs []context.CancelFunc
}

// NewComponent creates a new entity-tools processor component
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Use default config if ports not set
	if config.Ports == nil {
		config = DefaultConfig()
		// Re-unmarshal to get user-provided values
		if err := json.Unmarshal(rawConfig, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Component{
		name:       "entity-tools",
		config:     config,
		registry:   agentictools.NewExecutorRegistry(),
		natsClient: deps.NATSClient,
		logger:     deps.GetLogger(),
		platform:   deps.Platform,
		consumers:  make(map[string]jetstream.ConsumeContext),
	}, nil
}

// Initialize prepares the component
func (c *Component) Initialize() error {
	return nil
}

// Start begins processing tool calls
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("component already running")
	}

	if c.natsClient == nil {
		return fmt.Errorf("NATS client required")
	}

	tax, err := taxonomy.Load(ctx, taxonomy.LoadSpec{
		Source:  c.config.ModelSource,
		Version: c.config.ModelVersion,
		Logger:  c.logger,
	})
	if err != nil {
		return fmt.Errorf("load taxonomy model: %w", err)
	}

	bioclassExec, entityExec := c.buildExecutors(ctx, tax)

	allowed := c.allowlist()
	for _, tool := range bioclassExec.ListTools() {
		if !allowed(tool.Name) {
			continue
		}
		if err := c.registry.RegisterTool(tool.Name, bioclassExec); err != nil {
			return fmt.Errorf("register taxonomy tool %s: %w", tool.Name, err)
		}
	}
	for _, tool := range entityExec.ListTools() {
		if !allowed(tool.Name) {
			continue
		}
		if err := c.registry.RegisterTool(tool.Name, entityExec); err != nil {
			return fmt.Errorf("register entity tool %s: %w", tool.Name, err)
		}
	}
	if len(c.registry.ListTools()) == 0 {
		return fmt.Errorf("tool allowlist excludes every available tool")
	}

	// Subscribe to tool execution requests (per-tool consumers)
	if err := c.subscribeToToolCalls(ctx); err != nil {
		return err
	}

	// Advertise available tools
	if err := c.advertiseTools(ctx, bioclassExec, entityExec); err != nil {
		c.logger.Warn("Failed to advertise tools", "error", err)
		// Not fatal - tools may still work if manually configured
	}

	// Start heartbeat in background
	c.startHeartbeat(ctx)

	c.running = true
	c.startTime = time.Now()

	c.logger.Info("Entity tools started",
		"model", tax.Name(),
		"model_version", tax.Version(),
		"tools", len(c.registry.ListTools()))

	return nil
}

// buildExecutors wires the taxonomy and entity resolution executors.
// Pipeline and enrichment lookups go through a KV-backed cache when
// JetStream is reachable; direct lookup tools stay uncached so callers
// always see live service responses.
func (c *Component) buildExecutors(ctx context.Context, tax *taxonomy.Taxonomy) (agentictools.ToolExecutor, agentictools.ToolExecutor) {
	resolver := resolve.NewNameResolver(
		resolve.WithBaseURL(c.config.NameResolverURL),
		resolve.WithLogger(c.logger),
	)
	normalizer := resolve.NewNodeNormalizer(
		resolve.WithBaseURL(c.config.NodeNormalizerURL),
		resolve.WithLogger(c.logger),
	)
	cachedResolver, cachedNormalizer := c.wrapWithCache(ctx, resolver, normalizer)

	frontierOpts := []taxonomy.FrontierOption{
		taxonomy.WithFrontierLogger(c.logger),
		taxonomy.WithDegenerateHook(func([]string) { tools.FrontierFallbacks.Inc() }),
	}
	pipeline := resolve.NewPipeline(cachedResolver, cachedNormalizer, tax.Frontier(frontierOpts...),
		resolve.WithPipelineLogger(c.logger))
	enricher := enrich.NewEnricher(cachedResolver, cachedNormalizer, tax, enrich.WithLogger(c.logger))

	bioclassExec := tools.NewInstrumentedExecutor(bioclass.NewExecutor(tax, frontierOpts...))
	entityExec := tools.NewInstrumentedExecutor(entity.NewExecutor(resolver, normalizer, pipeline, enricher))
	return bioclassExec, entityExec
}

// wrapWithCache layers the KV resolution cache over the service clients.
// Any cache setup failure degrades to uncached clients.
func (c *Component) wrapWithCache(ctx context.Context, resolver resolve.CURIEResolver, normalizer resolve.TypeResolver) (resolve.CURIEResolver, resolve.TypeResolver) {
	js, err := c.natsClient.JetStream()
	if err != nil {
		c.logger.Warn("JetStream unavailable, resolution cache disabled", "error", err)
		return resolver, normalizer
	}

	ttl := storage.DefaultTTL
	if c.config.CacheTTL != "" {
		if d, err := time.ParseDuration(c.config.CacheTTL); err == nil {
			ttl = d
		}
	}

	cache, err := storage.NewCache(ctx, js, ttl)
	if err != nil {
		c.logger.Warn("Resolution cache setup failed, running uncached", "error", err)
		return resolver, normalizer
	}

	c.logger.Info("Resolution cache enabled", "ttl", ttl)
	return storage.NewCachedResolver(resolver, cache, c.logger),
		storage.NewCachedNormalizer(normalizer, cache, c.logger)
}

// allowlist returns a predicate over tool names. An empty allowlist
// admits everything.
func (c *Component) allowlist() func(string) bool {
	if len(c.config.ToolAllowlist) == 0 {
		return func(string) bool { return true }
	}
	allowed := make(map[string]bool, len(c.config.ToolAllowlist))
	for _, name := range c.config.ToolAllowlist {
		allowed[name] = true
	}
	return func(name string) bool { return allowed[name] }
}

// subscribeToToolCalls creates a dedicated consumer per tool
func (c *Component) subscribeToToolCalls(ctx context.Context) error {
	// Wait for stream to be available
	if err := c.waitForStream(ctx); err != nil {
		return fmt.Errorf("wait for stream: %w", err)
	}

	js, err := c.natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get JetStream: %w", err)
	}

	toolDefs := c.registry.ListTools()

	for _, tool := range toolDefs {
		consumerName := consumerNameForTool(tool.Name)
		if c.config.ConsumerNameSuffix != "" {
			consumerName = consumerName + "-" + c.config.ConsumerNameSuffix
		}
		subject := toolExecutePrefix + tool.Name

		c.logger.Info("Creating consumer for tool",
			"tool", tool.Name,
			"consumer", consumerName,
			"subject", subject)

		consumerCfg := jetstream.ConsumerConfig{
			Name:          consumerName,
			Durable:       consumerName,
			FilterSubject: subject,
			DeliverPolicy: jetstream.DeliverNewPolicy,
			AckPolicy:     jetstream.AckExplicitPolicy,
			MaxDeliver:    3,
		}

		consumer, err := js.CreateOrUpdateConsumer(ctx, c.config.StreamName, consumerCfg)
		if err != nil {
			return fmt.Errorf("create consumer for %s: %w", tool.Name, err)
		}

		consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
			c.handleToolCall(msg)
		})
		if err != nil {
			return fmt.Errorf("start consuming %s: %w", tool.Name, err)
		}

		c.consumers[tool.Name] = consumeCtx
	}

	c.logger.Info("Subscribed to tool calls",
		"stream", c.config.StreamName,
		"tools", len(toolDefs))

	return nil
}

// waitForStream waits for the JetStream stream to be available
func (c *Component) waitForStream(ctx context.Context) error {
	js, err := c.natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get JetStream: %w", err)
	}

	maxRetries := 30
	retryInterval := 100 * time.Millisecond
	maxInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		_, err := js.Stream(ctx, c.config.StreamName)
		if err == nil {
			return nil
		}

		c.logger.Debug("Stream not yet available, retrying",
			"stream", c.config.StreamName,
			"attempt", i+1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			retryInterval = min(retryInterval*2, maxInterval)
		}
	}

	return fmt.Errorf("stream %s not found after %d retries", c.config.StreamName, maxRetries)
}

// consumerNameForTool converts tool name to valid NATS consumer name
func consumerNameForTool(toolName string) string {
	sanitized := strings.ReplaceAll(toolName, ".", "-")
	sanitized = strings.ReplaceAll(sanitized, "_", "-")
	return "robomcp-tool-" + sanitized
}

// handleToolCall processes a tool execution request
func (c *Component) handleToolCall(msg jetstream.Msg) {
	// Create per-message context with timeout
	timeout := 30 * time.Second
	if c.config.Timeout != "" {
		if d, err := time.ParseDuration(c.config.Timeout); err == nil {
			timeout = d
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var call agentic.ToolCall
	if err := json.Unmarshal(msg.Data(), &call); err != nil {
		c.logger.Error("Failed to unmarshal tool call",
			"error", err,
			"subject", msg.Subject())
		_ = msg.Term() // Malformed data is never retryable
		return
	}

	c.logger.Debug("Processing tool call",
		"tool", call.Name,
		"call_id", call.ID)

	startTime := time.Now()
	result, err := c.registry.Execute(ctx, call)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Error("Tool execution failed",
			"tool", call.Name,
			"call_id", call.ID,
			"error", err,
			"duration", duration)

		if errs.IsTransient(err) || resolve.IsTransient(err) {
			c.logger.Warn("Transient execution error, will retry", "call_id", call.ID)
			_ = msg.Nak()
		} else {
			c.logger.Error("Non-retryable execution error", "call_id", call.ID)
			_ = msg.Term()
		}
		c.incrementErrors()
		return
	}

	if result.Error != "" {
		c.logger.Debug("Tool returned error",
			"tool", call.Name,
			"call_id", call.ID,
			"error", result.Error,
			"duration", duration)
	} else {
		c.logger.Debug("Tool executed successfully",
			"tool", call.Name,
			"call_id", call.ID,
			"duration", duration)
	}

	// Publish result
	if err := c.publishResult(ctx, result); err != nil {
		if errs.IsTransient(err) {
			c.logger.Warn("Transient error publishing result, will retry",
				"call_id", call.ID,
				"error", err)
			_ = msg.Nak()
		} else {
			c.logger.Error("Fatal error publishing result",
				"call_id", call.ID,
				"error", err)
			_ = msg.Term()
		}
		c.incrementErrors()
		return
	}

	if err := msg.Ack(); err != nil {
		c.logger.Error("Failed to ack message", "error", err)
	}

	c.mu.Lock()
	c.requestsProcessed++
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// publishResult publishes a tool result to JetStream
func (c *Component) publishResult(ctx context.Context, result agentic.ToolResult) error {
	if result.CallID == "" {
		return errs.WrapInvalid(
			fmt.Errorf("empty call ID in result"),
			"entity-tools", "publishResult", "validate result")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errs.WrapInvalid(err, "entity-tools", "publishResult", "marshal result")
	}

	subject := toolResultPrefix + result.CallID

	if err := c.natsClient.PublishToStream(ctx, subject, data); err != nil {
		return errs.WrapTransient(err, "entity-tools", "publishResult", "publish to "+subject)
	}

	return nil
}

// advertiseTools publishes tool registrations
func (c *Component) advertiseTools(ctx context.Context, executors ...agentictools.ToolExecutor) error {
	allowed := c.allowlist()
	for _, exec := range executors {
		for _, tool := range exec.ListTools() {
			if !allowed(tool.Name) {
				continue
			}
			reg := ExternalToolRegistration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
				Provider:    providerName,
				Timestamp:   time.Now(),
			}

			data, err := json.Marshal(reg)
			if err != nil {
				return fmt.Errorf("marshal registration: %w", err)
			}

			subject := "tool.register." + tool.Name
			if err := c.natsClient.Publish(ctx, subject, data); err != nil {
				return fmt.Errorf("publish %s: %w", tool.Name, err)
			}

			c.logger.Debug("Registered tool", "name", tool.Name)
		}
	}

	return nil
}

// ExternalToolRegistration wraps tool definition for external registration
type ExternalToolRegistration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Provider    string         `json:"provider"`
	Timestamp   time.Time      `json:"timestamp"`
}

// ToolHeartbeat signals tool provider is alive
type ToolHeartbeat struct {
	Provider  string    `json:"provider"`
	Tools     []string  `json:"tools"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolUnregister signals tool removal
type ToolUnregister struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

// startHeartbeat runs periodic heartbeat in background
func (c *Component) startHeartbeat(ctx context.Context) {
	interval := 10 * time.Second
	if c.config.HeartbeatInterval != "" {
		if d, err := time.ParseDuration(c.config.HeartbeatInterval); err == nil {
			interval = d
		}
	}

	hbCtx, cancel := context.WithCancel(ctx)
	c.cancelFuncs = append(c.cancelFuncs, cancel)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Send initial heartbeat immediately
		c.sendHeartbeat(hbCtx)

		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				c.sendHeartbeat(hbCtx)
			}
		}
	}()
}

func (c *Component) sendHeartbeat(ctx context.Context) {
	toolDefs := c.registry.ListTools()
	names := make([]string, len(toolDefs))
	for i, t := range toolDefs {
		names[i] = t.Name
	}

	hb := ToolHeartbeat{
		Provider:  providerName,
		Tools:     names,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(hb)
	if err != nil {
		c.logger.Error("Failed to marshal heartbeat", "error", err)
		return
	}

	subject := "tool.heartbeat." + providerName
	if err := c.natsClient.Publish(ctx, subject, data); err != nil {
		c.logger.Warn("Failed to send heartbeat", "error", err)
	}
}

// unregisterTools sends unregister messages for all tools
func (c *Component) unregisterTools(ctx context.Context) {
	toolDefs := c.registry.ListTools()
	for _, tool := range toolDefs {
		unreg := ToolUnregister{
			Name:     tool.Name,
			Provider: providerName,
		}

		data, err := json.Marshal(unreg)
		if err != nil {
			continue
		}

		subject := "tool.unregister." + tool.Name
		_ = c.natsClient.Publish(ctx, subject, data)
		c.logger.Debug("Unregistered tool", "name", tool.Name)
	}
}

// incrementErrors safely increments the error counter
func (c *Component) incrementErrors() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// Stop gracefully stops the component
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	// Cancel background goroutines
	for _, cancel := range c.cancelFuncs {
		cancel()
	}
	c.cancelFuncs = nil

	// Graceful unregister before stopping
	c.unregisterTools(context.Background())

	// Stop all consumers
	for name, consumeCtx := range c.consumers {
		consumeCtx.Stop()
		c.logger.Debug("Stopped consumer", "tool", name)
	}
	c.consumers = make(map[string]jetstream.ConsumeContext)

	c.running = false
	c.logger.Info("Entity tools stopped",
		"requests_processed", c.requestsProcessed,
		"errors", c.errors)

	return nil
}

// Discoverable interface implementation

// Meta returns component metadata
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "entity-tools",
		Type:        "processor",
		Description: "Taxonomy query and entity resolution tool executor",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionInput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// OutputPorts returns configured output port definitions
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionOutput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// ConfigSchema returns the configuration schema
func (c *Component) ConfigSchema() component.ConfigSchema {
	return entityToolsSchema
}

// Health returns the current health status
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    c.running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.errors),
		Uptime:     time.Since(c.startTime),
		Status:     c.getStatus(),
	}
}

// getStatus returns a status string
func (c *Component) getStatus() string {
	if c.running {
		return "running"
	}
	return "stopped"
}

// DataFlow returns current data flow metrics
func (c *Component) DataFlow() component.FlowMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errorRate float64
	total := c.requestsProcessed + c.errors
	if total > 0 {
		errorRate = float64(c.errors) / float64(total)
	}

	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         errorRate,
		LastActivity:      c.lastActivity,
	}
}
