package config

const (
	defaultDataDir      = "~/.local/share/newswatch"
	defaultLogDir       = "~/.local/share/newswatch/logs"
	defaultDatabaseFile = "newswatch.db"

	defaultSourceBaseURL          = "http://127.0.0.1:9000/api/v1"
	defaultMaxPerQuery            = 100
	defaultBackgroundLookback     = 24
	defaultManualLookback         = 2
	defaultDedupWindowDays        = 7
	defaultSourceCheckSeconds     = 30
	defaultSourceTimeoutSeconds   = 30
	defaultAnalysisBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultAnalysisModel          = "gemini-1.5-flash"
	defaultAnalysisFallbackModel  = "gemini-1.5-flash-8b"
	defaultPerMinuteLimit         = 15
	defaultPerDayLimit            = 1500
	defaultDailyCostCapUSD        = 5.0
	defaultMaxTextLength          = 8000
	defaultBatchSize              = 5
	defaultBatchPauseSeconds      = 2
	defaultImportanceThreshold    = 7
	defaultAnalysisTimeoutSeconds = 60

	defaultPollIntervalMinutes  = 15
	defaultPassiveCheckMinutes  = 5
	defaultErrorRetrySeconds    = 60
	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Source: Source{
			BaseURL: defaultSourceBaseURL,
			Queries: map[string][]string{
				"copper":    {"copper price", "copper market", "copper mine supply"},
				"aluminium": {"aluminium price", "aluminum smelter", "alumina supply"},
				"zinc":      {"zinc price", "zinc market"},
				"lead":      {"lead metal price"},
				"nickel":    {"nickel price", "nickel ore supply"},
				"tin":       {"tin price"},
				"gold":      {"gold price", "gold market"},
				"silver":    {"silver price"},
				"market":    {"base metals", "metal exchange", "commodities market"},
			},
			PriorityQueries: []string{"copper price", "aluminium price", "base metals"},
			QuerySubstitutions: map[string]string{
				"London Metal Exchange": "metal exchange",
				"LME prices":            "base metal prices",
			},
			MaxPerQuery:             defaultMaxPerQuery,
			FetchBodies:             true,
			BackgroundLookbackHours: defaultBackgroundLookback,
			ManualLookbackHours:     defaultManualLookback,
			DedupWindowDays:         defaultDedupWindowDays,
			CheckIntervalSeconds:    defaultSourceCheckSeconds,
			RequestTimeoutSeconds:   defaultSourceTimeoutSeconds,
		},
		Analysis: Analysis{
			Enabled:             true,
			BaseURL:             defaultAnalysisBaseURL,
			Model:               defaultAnalysisModel,
			FallbackModel:       defaultAnalysisFallbackModel,
			PerMinuteLimit:      defaultPerMinuteLimit,
			PerDayLimit:         defaultPerDayLimit,
			DailyCostCapUSD:     defaultDailyCostCapUSD,
			MaxTextLength:       defaultMaxTextLength,
			BatchSize:           defaultBatchSize,
			BatchPauseSeconds:   defaultBatchPauseSeconds,
			ImportanceThreshold: defaultImportanceThreshold,
			Summary:             true,
			Sentiment:           true,
			Keywords:            true,
			Importance:          true,
			Translation:         false,
			TimeoutSeconds:      defaultAnalysisTimeoutSeconds,
		},
		Workflow: Workflow{
			PollIntervalMinutes:         defaultPollIntervalMinutes,
			PassiveCheckIntervalMinutes: defaultPassiveCheckMinutes,
			ErrorRetrySeconds:           defaultErrorRetrySeconds,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyRequestTimeout,
			DatabaseUpdates: true,
			HighImportance:  true,
			ModeChanges:     true,
			Errors:          true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
