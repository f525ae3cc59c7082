package config

const (
	defaultKeyFile             = "episodes.txt"
	defaultScriptFile          = "download.sh"
	defaultOutputDir           = "./tv/SSNHP"
	defaultLogDir              = "~/.local/share/reelkey/logs"
	defaultLogRetentionDays    = 30
	defaultHistoryPath         = "~/.local/share/reelkey/history.db"
	defaultSiteBaseURL         = "https://wlext.is"
	defaultSiteSlug            = "sin-senos-no-hay-paraiso-2008"
	defaultSiteServer          = "shorticu"
	defaultEmbedPrefix         = "https://short.icu/"
	defaultHarvestStart        = 1
	defaultHarvestEnd          = 167
	defaultHarvestWorkers      = 10
	defaultRequestTimeout      = 10
	defaultIndexWidth          = 3
	defaultDownloadConcurrency = 3
	defaultNavigateTimeout     = 60
	defaultSettleTimeout       = 30
	defaultDownloaderQuality   = "h"
	defaultMinFileMB           = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultUserAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

func defaultDownloaderCommand() []string {
	return []string{"java", "-jar", "abyss-dl.jar"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			KeyFile:    defaultKeyFile,
			ScriptFile: defaultScriptFile,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Site: Site{
			BaseURL:     defaultSiteBaseURL,
			Slug:        defaultSiteSlug,
			Server:      defaultSiteServer,
			EmbedPrefix: defaultEmbedPrefix,
			UserAgent:   defaultUserAgent,
		},
		Harvest: Harvest{
			Start:          defaultHarvestStart,
			End:            defaultHarvestEnd,
			Workers:        defaultHarvestWorkers,
			RequestTimeout: defaultRequestTimeout,
			IndexWidth:     defaultIndexWidth,
		},
		Download: Download{
			Concurrency:     defaultDownloadConcurrency,
			NavigateTimeout: defaultNavigateTimeout,
			SettleTimeout:   defaultSettleTimeout,
			Command:         defaultDownloaderCommand(),
			Quality:         defaultDownloaderQuality,
			SkipMissingKeys: true,
			MinFileMB:       defaultMinFileMB,
		},
		Browser: Browser{
			Headless:  true,
			NoSandbox: true,
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
