package config

const (
	defaultRecipeDir     = "."
	defaultDataDir       = "data"
	defaultLogDir        = "exp/logs"
	defaultEnvFile       = ".env"
	defaultDevRatio      = 0.1
	defaultEvalRatio     = 0.1
	defaultSampleRate    = 48000
	defaultMaxSegmentMS  = 10000
	defaultSpeakerID     = "kiritan"
	defaultHistoryDriver = "sqlite"
	defaultHistoryFile   = "history.db"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			RecipeDir: defaultRecipeDir,
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			EnvFile:   defaultEnvFile,
		},
		Tools: Tools{
			SplitCommand:    []string{"python3", "local/dataset_split.py"},
			DataPrepCommand: []string{"local/data_prep.sh"},
			SegmentsCommand: []string{"python3", "local/prep_segments.py"},
		},
		Prep: Prep{
			DevRatio:      defaultDevRatio,
			EvalRatio:     defaultEvalRatio,
			SampleRate:    defaultSampleRate,
			SilencePhones: []string{"pau", "sil"},
			MaxSegmentMS:  defaultMaxSegmentMS,
			SpeakerID:     defaultSpeakerID,
		},
		History: History{
			Enabled: true,
			Driver:  defaultHistoryDriver,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Source: true,
		},
	}
}
