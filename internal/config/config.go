package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv = "DEALFLOW_CONFIG"

	defaultGeminiModel = "gemini-2.0-flash"
	defaultOpenAIModel = "gpt-4o-mini"
	defaultThreshold   = 75
	defaultSourceLimit = 20
	defaultServerAddr  = ":3000"
	defaultScanCron    = "0 */6 * * *" // 每 6 小时扫一轮
	defaultDigestCron  = "0 9 * * 1"   // 每周一早上 9 点发周报
)

// 默认启用的来源集合
var defaultSources = []string{"github", "hacker_news", "yc", "huggingface", "arxiv"}

// Config 进程级配置对象，入口处构造一次，之后按引用传给各组件
// 组件内部不做任何全局环境变量查询
type Config struct {
	// 评分能力
	ScorerProvider string `yaml:"scorerProvider"` // gemini (默认) 或 openai
	GeminiAPIKey   string `yaml:"-"`
	GeminiModel    string `yaml:"geminiModel"`
	OpenAIAPIKey   string `yaml:"-"`
	OpenAIModel    string `yaml:"openaiModel"`

	// TrustLLMTotal 为 true 时以 LLM 给出的 total_score 为准 (截断后)，
	// 为 false 时总分由四个维度截断后重新求和
	TrustLLMTotal bool `yaml:"trustLLMTotal"`

	// 推送与 triage
	SlackWebhookURL string `yaml:"-"`
	SlackBotToken   string `yaml:"-"`

	// 来源与富化的凭证
	GitHubToken      string `yaml:"-"`
	CrunchbaseAPIKey string `yaml:"-"`
	ApolloAPIKey     string `yaml:"-"`

	// 存储
	DatabaseDSN string `yaml:"-"`

	// 管线参数
	ScoreThreshold int      `yaml:"scoreThreshold"`
	Sources        []string `yaml:"sources"`
	SourceLimit    int      `yaml:"sourceLimit"`

	// 服务与调度
	ServerAddr string `yaml:"serverAddr"`
	ScanCron   string `yaml:"scanCron"`
	DigestCron string `yaml:"digestCron"`
}

// Load 构造配置：默认值 → 可选 YAML 文件 → 环境变量覆盖
// .env 文件存在时先加载进环境 (本地开发方便)
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ScorerProvider: "gemini",
		GeminiModel:    defaultGeminiModel,
		OpenAIModel:    defaultOpenAIModel,
		TrustLLMTotal:  true,
		ScoreThreshold: defaultThreshold,
		Sources:        defaultSources,
		SourceLimit:    defaultSourceLimit,
		ServerAddr:     defaultServerAddr,
		ScanCron:       defaultScanCron,
		DigestCron:     defaultDigestCron,
	}

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("config: 无法读取 %s: %v (使用默认值)", path, err)
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			log.Printf("config: 无法解析 %s: %v (使用默认值)", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.OpenAIModel, "OPENAI_MODEL")
	setString(&c.ScorerProvider, "SCORER_PROVIDER")
	setString(&c.SlackWebhookURL, "SLACK_WEBHOOK_URL")
	setString(&c.SlackBotToken, "SLACK_BOT_TOKEN")
	setString(&c.GitHubToken, "GITHUB_TOKEN")
	setString(&c.CrunchbaseAPIKey, "CRUNCHBASE_API_KEY")
	setString(&c.ApolloAPIKey, "APOLLO_API_KEY")
	setString(&c.DatabaseDSN, "DATABASE_DSN")
	setString(&c.ServerAddr, "SERVER_ADDR")

	if v := os.Getenv("SCORE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ScoreThreshold = n
		} else {
			log.Printf("config: SCORE_THRESHOLD=%q 不是数字，忽略", v)
		}
	}
	if v := os.Getenv("SCORE_TRUST_LLM_TOTAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.TrustLLMTotal = b
		}
	}
}

// Validate 返回缺失的必填配置项，非空时应在管线启动前终止
func (c *Config) Validate() []string {
	var missing []string

	switch c.ScorerProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	default:
		if c.GeminiAPIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	}

	if c.SlackWebhookURL == "" {
		missing = append(missing, "SLACK_WEBHOOK_URL")
	}
	if c.DatabaseDSN == "" {
		missing = append(missing, "DATABASE_DSN")
	}

	return missing
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
