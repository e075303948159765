package config

const (
	defaultConfigPath           = "~/.config/autocap/config.toml"
	defaultCacheDir             = "./cache"
	defaultSRTDir               = "./srt"
	defaultDownloadDir          = "./downloads"
	defaultLogDir               = "~/.local/share/autocap/logs"
	defaultWistiaBaseURL        = "https://api.wistia.com/v1"
	defaultWistiaMediaURL       = "https://my.wistia.com/medias"
	defaultWistiaLanguage       = "en"
	defaultWistiaPageLimit      = 20
	defaultWistiaTimeoutSeconds = 60
	defaultService              = ServiceCloudASR
	defaultPollIntervalSeconds  = 10
	defaultLeadInMS             = 300
	defaultLeadOutMS            = 300
	defaultNLPCloudBaseURL      = "https://api.nlpcloud.io/v1"
	defaultNLPCloudModel        = "whisper"
	defaultNLPCloudTimeout      = 60
	defaultWhisperXModel        = "large-v3"
	defaultWhisperXVADMethod    = "silero"
	defaultOpenAIModel          = "whisper-1"
	defaultWorkflowConcurrency  = 10
	defaultCacheBackend         = CacheBackendFile
	defaultArchivePrefix        = "captions/"
	defaultArchiveRegion        = "us-east-1"
	defaultNtfyTimeoutSeconds   = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "warn"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir:    defaultCacheDir,
			SRTDir:      defaultSRTDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Wistia: Wistia{
			BaseURL:        defaultWistiaBaseURL,
			MediaURL:       defaultWistiaMediaURL,
			Language:       defaultWistiaLanguage,
			PageLimit:      defaultWistiaPageLimit,
			TimeoutSeconds: defaultWistiaTimeoutSeconds,
		},
		Transcription: Transcription{
			Service:             defaultService,
			PollIntervalSeconds: defaultPollIntervalSeconds,
			LeadInMS:            defaultLeadInMS,
			LeadOutMS:           defaultLeadOutMS,
		},
		NLPCloud: NLPCloud{
			BaseURL:        defaultNLPCloudBaseURL,
			Model:          defaultNLPCloudModel,
			GPU:            true,
			TimeoutSeconds: defaultNLPCloudTimeout,
		},
		WhisperX: WhisperX{
			Model:     defaultWhisperXModel,
			VADMethod: defaultWhisperXVADMethod,
		},
		OpenAI: OpenAI{
			Model: defaultOpenAIModel,
		},
		Workflow: Workflow{
			Concurrency: defaultWorkflowConcurrency,
		},
		Cache: Cache{
			Backend: defaultCacheBackend,
		},
		Archive: Archive{
			Prefix: defaultArchivePrefix,
			Region: defaultArchiveRegion,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
