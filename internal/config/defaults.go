package config

const (
	defaultSourceRoot    = "~/Library/Group Containers/group.com.apple.VoiceMemos.shared/Recordings"
	defaultHomeDir       = "~/.local/share/ciderpress"
	defaultLogDir        = "~/.local/share/ciderpress/logs"
	defaultEngineBinary  = "whisper-cli"
	defaultEngineModel   = "base.en"
	defaultLanguage      = "en"
	defaultIndexFileName = "CloudRecordings.db"
	defaultPrefixSeconds = 10
	defaultNotebookBin   = "nlm"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

func defaultAudioExtensions() []string {
	return []string{"m4a", "mp3", "wav", "aac", "flac"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceRoot: defaultSourceRoot,
			HomeDir:    defaultHomeDir,
			LogDir:     defaultLogDir,
		},
		Engine: Engine{
			Binary:   defaultEngineBinary,
			Model:    defaultEngineModel,
			Language: defaultLanguage,
		},
		Migration: Migration{
			AudioExtensions: defaultAudioExtensions(),
			IndexFileName:   defaultIndexFileName,
		},
		Naming: Naming{
			PrefixSeconds: defaultPrefixSeconds,
		},
		Notebook: Notebook{
			Enabled: false,
			Binary:  defaultNotebookBin,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
