package backtest

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-engine/internal/engine"
	"github.com/rxtech-lab/argo-engine/internal/series"
	"github.com/rxtech-lab/argo-engine/internal/types"
	"github.com/rxtech-lab/argo-engine/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FeedConfig declares one feed of the graph and where its bars come from.
type FeedConfig struct {
	Name string `yaml:"name" json:"name" jsonschema:"title=Name,description=Feed name used in node inputs" validate:"required,excludesall=:."`
	// Path is a parquet or CSV file with time, open, high, low, close and volume columns.
	Path   string `yaml:"path" json:"path" jsonschema:"title=Path,description=Parquet or CSV file" validate:"required"`
	Symbol string `yaml:"symbol,omitempty" json:"symbol,omitempty" jsonschema:"title=Symbol,description=Only rows with this symbol"`
	// Resample aggregates the source into bars of this length, stamped at period close.
	Resample time.Duration `yaml:"resample,omitempty" json:"resample,omitempty" jsonschema:"title=Resample,description=Aggregate into bars of this duration (e.g. 1h)" validate:"gte=0"`
	Fields   []string      `yaml:"fields,omitempty" json:"fields,omitempty" jsonschema:"title=Extra fields,description=Extra numeric columns exposed as lines"`
}

// NodeConfig declares an indicator node.
type NodeConfig struct {
	Name string              `yaml:"name" json:"name" jsonschema:"title=Name" validate:"required,excludesall=:."`
	Kind types.IndicatorType `yaml:"kind" json:"kind" jsonschema:"title=Kind" validate:"required"`
	// Inputs are references: "feed:line", "node" or "node.output".
	Inputs []string       `yaml:"inputs" json:"inputs" jsonschema:"title=Inputs,description=feed:line | node | node.output" validate:"required,min=1"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"title=Params"`
	// Clock overrides the feeds that step the node.
	Clock []string `yaml:"clock,omitempty" json:"clock,omitempty" jsonschema:"title=Clock,description=Feeds that step the node"`
}

// StrategyConfig declares a strategy node.
type StrategyConfig struct {
	Name   string         `yaml:"name" json:"name" jsonschema:"title=Name" validate:"required,excludesall=:."`
	Kind   string         `yaml:"kind" json:"kind" jsonschema:"title=Kind,default=sma_cross" validate:"required"`
	Source string         `yaml:"source" json:"source" jsonschema:"title=Source,description=Input reference the strategy trades on" validate:"required"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" jsonschema:"title=Params"`
}

// Config is a complete run description.
type Config struct {
	Mode   engine.Mode   `yaml:"mode" json:"mode" jsonschema:"title=Mode,description=How the graph is evaluated" validate:"omitempty,oneof=batch incremental"`
	Buffer series.Config `yaml:"buffer" json:"buffer" jsonschema:"title=Buffer,description=Storage of every line and output"`
	// StartTime and EndTime bound the bars read from every feed, inclusive.
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the run"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the run"`
	// Workers bounds the parallel runs of a sweep; zero uses every CPU.
	Workers       int    `yaml:"workers" json:"workers" jsonschema:"title=Workers,minimum=0" validate:"gte=0"`
	LogLevel      string `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn error"`
	ResultsFolder string `yaml:"results_folder" json:"results_folder" jsonschema:"title=Results Folder"`
	// EngineVersion is a semver constraint the running engine must satisfy.
	EngineVersion string `yaml:"engine_version,omitempty" json:"engine_version,omitempty" jsonschema:"title=Engine Version,description=Semver constraint such as ~0.4"`

	Feeds      []FeedConfig     `yaml:"feeds" json:"feeds" jsonschema:"title=Feeds" validate:"required,min=1,dive"`
	Nodes      []NodeConfig     `yaml:"nodes,omitempty" json:"nodes,omitempty" jsonschema:"title=Nodes" validate:"dive"`
	Strategies []StrategyConfig `yaml:"strategies,omitempty" json:"strategies,omitempty" jsonschema:"title=Strategies" validate:"dive"`
	// Sweep lists candidate values per "target.param" key.
	Sweep map[string][]any `yaml:"sweep,omitempty" json:"sweep,omitempty" jsonschema:"title=Sweep,description=Candidate values per target.param"`
}

// rawConfig mirrors Config with pointer times, which yaml can decode.
type rawConfig struct {
	Mode          engine.Mode      `yaml:"mode"`
	Buffer        series.Config    `yaml:"buffer"`
	StartTime     *time.Time       `yaml:"start_time,omitempty"`
	EndTime       *time.Time       `yaml:"end_time,omitempty"`
	Workers       int              `yaml:"workers"`
	LogLevel      string           `yaml:"log_level"`
	ResultsFolder string           `yaml:"results_folder"`
	EngineVersion string           `yaml:"engine_version,omitempty"`
	Feeds         []FeedConfig     `yaml:"feeds"`
	Nodes         []NodeConfig     `yaml:"nodes,omitempty"`
	Strategies    []StrategyConfig `yaml:"strategies,omitempty"`
	Sweep         map[string][]any `yaml:"sweep,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := rawConfig{
		Mode:          c.Mode,
		Buffer:        c.Buffer,
		StartTime:     nil,
		EndTime:       nil,
		Workers:       c.Workers,
		LogLevel:      c.LogLevel,
		ResultsFolder: c.ResultsFolder,
		EngineVersion: c.EngineVersion,
		Feeds:         c.Feeds,
		Nodes:         c.Nodes,
		Strategies:    c.Strategies,
		Sweep:         c.Sweep,
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.Mode = raw.Mode
	c.Buffer = raw.Buffer
	c.StartTime = optional.None[time.Time]()
	if raw.StartTime != nil {
		c.StartTime = optional.Some(*raw.StartTime)
	}

	c.EndTime = optional.None[time.Time]()
	if raw.EndTime != nil {
		c.EndTime = optional.Some(*raw.EndTime)
	}
	c.Workers = raw.Workers
	c.LogLevel = raw.LogLevel
	c.ResultsFolder = raw.ResultsFolder
	c.EngineVersion = raw.EngineVersion
	c.Feeds = raw.Feeds
	c.Nodes = raw.Nodes
	c.Strategies = raw.Strategies
	c.Sweep = raw.Sweep

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Config) MarshalYAML() (any, error) {
	raw := rawConfig{
		Mode:          c.Mode,
		Buffer:        c.Buffer,
		StartTime:     nil,
		EndTime:       nil,
		Workers:       c.Workers,
		LogLevel:      c.LogLevel,
		ResultsFolder: c.ResultsFolder,
		EngineVersion: c.EngineVersion,
		Feeds:         c.Feeds,
		Nodes:         c.Nodes,
		Strategies:    c.Strategies,
		Sweep:         c.Sweep,
	}

	if c.StartTime.IsSome() {
		t := c.StartTime.Unwrap()
		raw.StartTime = &t
	}

	if c.EndTime.IsSome() {
		t := c.EndTime.Unwrap()
		raw.EndTime = &t
	}

	return raw, nil
}

// LoadConfig parses and validates a YAML configuration.
func LoadConfig(content []byte) (Config, error) {
	config := EmptyConfig()

	if err := yaml.Unmarshal(content, &config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := c.Buffer.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidBufferMode, "invalid buffer configuration", err)
	}

	if c.Mode == engine.ModeBatch && c.Buffer.Mode == series.ModeBounded {
		return errors.New(errors.ErrCodeInvalidBufferMode, "batch mode requires unbounded buffers")
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end_time is before start_time")
	}

	return nil
}

// GenerateSchema generates a JSON schema for Config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch {
			case t.String() == "optional.Option[time.Time]":
				return &jsonschema.Schema{Type: "string", Format: "date-time"}
			case t == reflect.TypeOf(time.Duration(0)):
				return &jsonschema.Schema{Type: "string", Pattern: `^([0-9]+(ns|us|ms|s|m|h))+$`}
			case strings.HasSuffix(t.String(), "engine.Mode"):
				return &jsonschema.Schema{Type: "string", Enum: []any{string(engine.ModeBatch), string(engine.ModeIncremental)}}
			case strings.HasSuffix(t.String(), "series.Mode"):
				return &jsonschema.Schema{Type: "string", Enum: []any{string(series.ModeUnbounded), string(series.ModeBounded)}}
			case strings.HasSuffix(t.String(), "types.IndicatorType"):
				return &jsonschema.Schema{Type: "string", Enum: indicatorKinds()}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "argo-engine-config"
	schema.Description = "Configuration schema for an argo-engine run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(raw), nil
}

// EmptyConfig returns a Config with default values and no feeds.
func EmptyConfig() Config {
	return Config{
		Mode:          engine.ModeBatch,
		Buffer:        series.DefaultConfig(),
		StartTime:     optional.None[time.Time](),
		EndTime:       optional.None[time.Time](),
		Workers:       0,
		LogLevel:      "info",
		ResultsFolder: "results",
		EngineVersion: "",
		Feeds:         nil,
		Nodes:         nil,
		Strategies:    nil,
		Sweep:         nil,
	}
}

// SampleConfig returns a small runnable configuration, used to seed new
// projects.
func SampleConfig() Config {
	c := EmptyConfig()
	c.Feeds = []FeedConfig{
		{Name: "m5", Path: "data/SPY.parquet", Symbol: "SPY", Resample: 5 * time.Minute, Fields: nil},
	}
	c.Nodes = []NodeConfig{
		{Name: "rsi", Kind: types.IndicatorTypeRSI, Inputs: []string{"m5:close"}, Params: map[string]any{"period": 14}, Clock: nil},
	}
	c.Strategies = []StrategyConfig{
		{Name: "cross", Kind: "sma_cross", Source: "m5:close", Params: map[string]any{"fast": 10, "slow": 30}},
	}

	return c
}
