package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del agente.
type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Risk     RiskConfig     `yaml:"risk"`
	Learning LearningConfig `yaml:"learning"`
	Market   MarketConfig   `yaml:"market"`
	Oracle   OracleConfig   `yaml:"oracle"`
	Recall   RecallConfig   `yaml:"recall"`
	Storage  StorageConfig  `yaml:"storage"`
	Journal  JournalConfig  `yaml:"journal"`
	Log      LogConfig      `yaml:"log"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// AgentConfig controla el ciclo de trading.
type AgentConfig struct {
	IntervalMinutes     int      `yaml:"interval_minutes"`
	TopN                int      `yaml:"top_n"`                // activos narrados en el prompt
	CounterAsset        string   `yaml:"counter_asset"`        // Buy: counter → target
	ConfidenceThreshold *float64 `yaml:"confidence_threshold"` // 0 desactiva el gate
	EcosystemSummary    string   `yaml:"ecosystem_summary"`    // vacío: texto por defecto con la hora UTC
	NarrativeSeed       int64    `yaml:"narrative_seed"`       // 0: semilla por reloj
	CallTimeoutSeconds  int      `yaml:"call_timeout_seconds"`
}

// RiskConfig contiene los límites diarios.
type RiskConfig struct {
	MaxTradesPerDay      int `yaml:"max_trades_per_day"`
	MaxTradesPerAssetDay int `yaml:"max_trades_per_asset_per_day"`
	MinTradesPerDay      int `yaml:"min_trades_per_day"` // solo avisa; negativo lo desactiva
}

// LearningConfig controla el gate adaptativo.
type LearningConfig struct {
	MinSamples   int      `yaml:"min_samples"`
	WinRateFloor *float64 `yaml:"win_rate_floor"` // 0 desactiva el gate
}

// MarketConfig configura el proveedor de datos de mercado (CoinGecko).
type MarketConfig struct {
	BaseURL    string   `yaml:"base_url"`
	APIKey     string   `yaml:"api_key"`
	VsCurrency string   `yaml:"vs_currency"`
	IDs        []string `yaml:"ids"`
	Category   string   `yaml:"category"` // categoría de CoinGecko si IDs está vacío
	PerPage    int      `yaml:"per_page"`
	OnChain    bool     `yaml:"on_chain"` // enriquecer snapshots con actividad on-chain vía Recall
}

// OracleConfig configura el LLM que decide.
type OracleConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// RecallConfig configura la contraparte de ejecución.
type RecallConfig struct {
	BaseURL           string `yaml:"base_url"`
	APIKey            string `yaml:"api_key"`
	Chain             string `yaml:"chain"`
	SpecificChain     string `yaml:"specific_chain"`
	SlippageTolerance string `yaml:"slippage_tolerance"` // porcentaje, p.ej. "0.5"
}

// StorageConfig controla dónde se persisten contadores, historia y ledger.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite | files
	DSN    string `yaml:"dsn"`    // ruta al archivo SQLite, o ":memory:"
	Dir    string `yaml:"dir"`    // directorio del driver files
}

// JournalConfig indica el fichero JSONL del diario de trades.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// TracingConfig activa el exportador de spans por stdout.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	Pretty  bool `yaml:"pretty"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse interpreta el YAML, aplica el entorno y los defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Parse: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// CycleInterval devuelve la pausa entre ciclos como time.Duration.
func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Agent.IntervalMinutes) * time.Minute
}

// CallTimeout devuelve el timeout por llamada a un colaborador.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Agent.CallTimeoutSeconds) * time.Second
}

// Confidence devuelve el umbral del gate de confianza.
func (c *Config) Confidence() float64 {
	if c.Agent.ConfidenceThreshold == nil {
		return 0
	}
	return *c.Agent.ConfidenceThreshold
}

// WinRateFloor devuelve el win-rate mínimo del gate adaptativo.
func (c *Config) WinRateFloor() float64 {
	if c.Learning.WinRateFloor == nil {
		return 0
	}
	return *c.Learning.WinRateFloor
}

// OracleTimeout devuelve el timeout HTTP del oráculo.
func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// Validate comprueba lo necesario para arrancar el agente en vivo.
// Los comandos de consulta (stats, counts) no lo necesitan.
func (c *Config) Validate() error {
	var errs []error
	if c.Recall.APIKey == "" {
		errs = append(errs, errors.New("recall.api_key (RECALL_API_KEY) is required"))
	}
	if c.Oracle.APIKey == "" {
		errs = append(errs, errors.New("oracle.api_key (GAIA_API_KEY) is required"))
	}
	if c.Oracle.BaseURL == "" {
		errs = append(errs, errors.New("oracle.base_url (GAIA_URL) is required"))
	}
	if c.Storage.Driver != "sqlite" && c.Storage.Driver != "files" {
		errs = append(errs, fmt.Errorf("storage.driver %q: want sqlite or files", c.Storage.Driver))
	}
	if t := c.Confidence(); t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("agent.confidence_threshold %v: want [0, 1]", t))
	}
	if f := c.WinRateFloor(); f < 0 || f > 1 {
		errs = append(errs, fmt.Errorf("learning.win_rate_floor %v: want [0, 1]", f))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RECALL_API_KEY"); v != "" {
		cfg.Recall.APIKey = v
	}
	if v := os.Getenv("GAIA_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("GAIA_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Market.APIKey = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Agent.IntervalMinutes <= 0 {
		cfg.Agent.IntervalMinutes = 60
	}
	if cfg.Agent.TopN <= 0 {
		cfg.Agent.TopN = 3
	}
	if cfg.Agent.CounterAsset == "" {
		cfg.Agent.CounterAsset = "USDC"
	}
	if cfg.Agent.ConfidenceThreshold == nil {
		def := 0.7
		cfg.Agent.ConfidenceThreshold = &def
	}
	if cfg.Agent.CallTimeoutSeconds <= 0 {
		cfg.Agent.CallTimeoutSeconds = 60
	}
	if cfg.Risk.MaxTradesPerDay <= 0 {
		cfg.Risk.MaxTradesPerDay = 10
	}
	if cfg.Risk.MaxTradesPerAssetDay <= 0 {
		cfg.Risk.MaxTradesPerAssetDay = 3
	}
	if cfg.Risk.MinTradesPerDay == 0 {
		cfg.Risk.MinTradesPerDay = 3
	}
	if cfg.Learning.MinSamples <= 0 {
		cfg.Learning.MinSamples = 5
	}
	if cfg.Learning.WinRateFloor == nil {
		def := 0.3
		cfg.Learning.WinRateFloor = &def
	}
	if cfg.Market.VsCurrency == "" {
		cfg.Market.VsCurrency = "usd"
	}
	if len(cfg.Market.IDs) == 0 && cfg.Market.Category == "" {
		cfg.Market.Category = "ethereum-ecosystem"
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "llama"
	}
	if cfg.Oracle.MaxTokens <= 0 {
		cfg.Oracle.MaxTokens = 500
	}
	if cfg.Oracle.TimeoutSeconds <= 0 {
		cfg.Oracle.TimeoutSeconds = 60
	}
	if cfg.Recall.Chain == "" {
		cfg.Recall.Chain = "evm"
	}
	if cfg.Recall.SpecificChain == "" {
		cfg.Recall.SpecificChain = "eth"
	}
	if cfg.Recall.SlippageTolerance == "" {
		cfg.Recall.SlippageTolerance = "0.5"
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "easel.db"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data"
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = "trade_journal.jsonl"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
