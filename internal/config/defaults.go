package config

import "time"

func defaultConfig() Config {
	return Config{
		Accounts: []string{
			"GONOGO_Korea", "hiwhaledegen", "visegrad24", "ralralbral", "dons_korea",
			"InsiderWire", "yang_youngbin", "Future__Walker", "KobeissiLetter", "DegenerateNews",
			"DeItaone", "BMNRBullz", "CryptoRank_io", "CryptosR_Us", "coinbureau",
			"BitcoinMagazine", "Eddie9132151", "top7ico", "JA_Maartun", "Darkfost_Coc",
			"Cointelegraph", "TrumpTruthOnX", "zerohedge", "financialjuice", "wallstengine",
			"faststocknewss", "Barchart", "StockMKTNewz", "marketsday", "BitMNR",
			"_MAGA_NEWS_", "EleanorTerrett", "saylor", "nytimes", "washingtonpost",
			"CNN", "FoxNews", "axios", "Reuters", "BBCNews",
			"BBCWorld", "BBCBreaking", "MSNBC", "guardian", "WSJ",
			"AP", "business", "NBCNews", "ABC", "pizzintwatch",
			"Busanaz1", "cz_binance", "FirstSquawk", "lookonchain", "CryptoHayes",
		},
		Categories: map[string]CategoryConfig{
			"geopolitics": {Keywords: []string{
				"war", "conflict", "military", "nato", "russia", "ukraine", "china", "taiwan",
				"north korea", "iran", "israel", "gaza", "sanctions", "geopolitical", "troops",
				"missile", "nuclear", "diplomacy", "alliance", "invasion", "territory",
				"전쟁", "분쟁", "군사", "러시아", "우크라이나", "중국", "대만", "북한", "이란", "이스라엘",
				"제재", "지정학", "외교", "동맹", "침공", "영토", "나토",
			}},
			"economy": {Keywords: []string{
				"economy", "gdp", "inflation", "fed", "interest rate", "recession", "market",
				"stock", "bond", "dollar", "trade", "tariff", "deficit", "unemployment",
				"jobs", "cpi", "ppi", "housing", "mortgage", "bank", "financial", "fiscal",
				"경제", "금리", "인플레이션", "연준", "경기침체", "시장", "주식", "채권", "달러",
				"무역", "관세", "적자", "실업", "고용", "주택", "은행", "재정",
			}},
			"trump": {Keywords: []string{
				"trump", "maga", "white house", "executive order", "administration",
				"doge", "elon musk", "republican", "democrat", "congress", "senate",
				"트럼프", "백악관", "행정명령", "공화당", "민주당", "의회", "상원",
			}},
			"crypto": {Keywords: []string{
				"bitcoin", "btc", "ethereum", "eth", "crypto", "blockchain", "defi",
				"nft", "altcoin", "binance", "coinbase", "solana", "xrp", "ripple",
				"stablecoin", "usdt", "usdc", "web3", "token", "mining", "halving",
				"비트코인", "이더리움", "암호화폐", "블록체인", "디파이", "솔라나", "토큰",
			}},
		},
		Collector: CollectorConfig{
			WindowHours: 4,
			Instances: []string{
				"nitter.net",
				"nitter.privacyredirect.com",
				"nitter.poast.org",
				"xcancel.com",
				"nitter.space",
				"lightbrd.com",
				"nitter.catsarch.com",
				"nuku.trabun.org",
			},
			Timeout:         15 * time.Second,
			AccountDelay:    1500 * time.Millisecond,
			Workers:         1,
			CanonicalDomain: "x.com",
		},
		AI: AIConfig{
			Provider:         ProviderGemini,
			Endpoint:         providerDefaults[ProviderGemini].endpoint,
			Models:           providerDefaults[ProviderGemini].models,
			Timeout:          60 * time.Second,
			TranslateTimeout: 30 * time.Second,
			ChunkSize:        30,
			ChunkDelay:       2 * time.Second,
			BackoffBase:      2 * time.Second,
			MaxAttempts:      4,
			Temperature:      0.3,
			MaxTokens:        4000,
		},
		Ranking: RankingConfig{
			MaxPerCategory: 10,
			MinPerCategory: 5,
			Weights: WeightsConfig{
				OverlapMultiplier:   5,
				OverlapCap:          50,
				ImportanceWeight:    4,
				RecencyMax:          20,
				RecencyHorizonHours: 4,
				EngagementDivisor:   100,
				EngagementCap:       10,
			},
		},
		Queue:     QueueConfig{Key: "newsdigest:digests"},
		Scheduler: SchedulerConfig{Interval: 2 * time.Hour, Timezone: defaultTimezone},
		Logging:   LoggingConfig{Level: "debug"},
	}
}

// Supported AI providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type providerPreset struct {
	endpoint string
	models   []string
}

// An empty endpoint leaves the SDK default in place.
var providerDefaults = map[string]providerPreset{
	ProviderGemini: {
		endpoint: "https://generativelanguage.googleapis.com/v1beta",
		models:   []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-2.5-flash-lite"},
	},
	ProviderOpenAI: {
		models: []string{"gpt-4.1-mini", "gpt-4o-mini"},
	},
	ProviderAnthropic: {
		models: []string{"claude-haiku-4-5", "claude-3-5-haiku-latest"},
	},
}

// Default returns the built-in configuration with timezone resolved.
func Default() Config {
	cfg := defaultConfig()
	cfg.bindTimezone()
	return cfg
}
