// Package config loads the seqbatch configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName names the config file and the per-user config directory.
	AppName = "seqbatch"
	// EnvPrefix prefixes environment overrides, e.g. SEQBATCH_DATA_BATCHSIZE.
	EnvPrefix = "SEQBATCH"
)

// ErrInvalidConfig is returned for values no component can work with.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Data  DataConfig  `mapstructure:"data"`
	Train TrainConfig `mapstructure:"train"`
	Model ModelConfig `mapstructure:"model"`
	Log   LogConfig   `mapstructure:"log"`
}

// DataConfig describes the corpus and how it is batched.
type DataConfig struct {
	SrcVocabPath  string `mapstructure:"srcVocabPath"`
	TrgVocabPath  string `mapstructure:"trgVocabPath"`
	TrainPattern  string `mapstructure:"trainPattern"`
	ArchiveMember string `mapstructure:"archiveMember"`

	BatchSize     int    `mapstructure:"batchSize"`
	PoolSize      int    `mapstructure:"poolSize"`
	SortType      string `mapstructure:"sortType"`
	ClipLastBatch bool   `mapstructure:"clipLastBatch"`
	UseTokenBatch bool   `mapstructure:"useTokenBatch"`
	Shuffle       bool   `mapstructure:"shuffle"`
	ShuffleBatch  bool   `mapstructure:"shuffleBatch"`
	Seed          int64  `mapstructure:"seed"`

	MinLength int    `mapstructure:"minLength"`
	MaxLength int    `mapstructure:"maxLength"`
	Delimiter string `mapstructure:"delimiter"`
	StartMark string `mapstructure:"startMark"`
	EndMark   string `mapstructure:"endMark"`
	UnkMark   string `mapstructure:"unkMark"`
	Normalize bool   `mapstructure:"normalize"`
	Workers   int    `mapstructure:"workers"`
}

type TrainConfig struct {
	Epochs int `mapstructure:"epochs"`
}

// ModelConfig holds the model settings the data pipeline has to agree with. Zero
// vocabulary sizes skip the size check.
type ModelConfig struct {
	SrcVocabSize int `mapstructure:"srcVocabSize"`
	TrgVocabSize int `mapstructure:"trgVocabSize"`
	MaxLength    int `mapstructure:"maxLength"`
	BosIdx       int `mapstructure:"bosIdx"`
	EosIdx       int `mapstructure:"eosIdx"`
	UnkIdx       int `mapstructure:"unkIdx"`
}

type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error, disabled.
	Level string `mapstructure:"level"`
	// Format is "console" or "json".
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.batchSize", 56)
	v.SetDefault("data.poolSize", 10000)
	v.SetDefault("data.sortType", "pool")
	v.SetDefault("data.clipLastBatch", true)
	v.SetDefault("data.useTokenBatch", false)
	v.SetDefault("data.shuffle", true)
	v.SetDefault("data.shuffleBatch", false)
	v.SetDefault("data.seed", 0)
	v.SetDefault("data.minLength", 0)
	v.SetDefault("data.maxLength", 100)
	v.SetDefault("data.delimiter", "\t")
	v.SetDefault("data.startMark", "<s>")
	v.SetDefault("data.endMark", "<e>")
	v.SetDefault("data.unkMark", "<unk>")
	v.SetDefault("data.normalize", false)
	v.SetDefault("data.workers", 0)
	// Path keys need a default to be visible to the environment.
	v.SetDefault("data.srcVocabPath", "")
	v.SetDefault("data.trgVocabPath", "")
	v.SetDefault("data.trainPattern", "")
	v.SetDefault("data.archiveMember", "")

	v.SetDefault("train.epochs", 50)

	v.SetDefault("model.srcVocabSize", 0)
	v.SetDefault("model.trgVocabSize", 0)
	v.SetDefault("model.maxLength", 150)
	v.SetDefault("model.bosIdx", 0)
	v.SetDefault("model.eosIdx", 1)
	v.SetDefault("model.unkIdx", 2)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig reads configPath, or searches the usual locations for seqbatch.yaml when
// it is empty. A missing file in the search locations is not an error; defaults and
// environment overrides still apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("..")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that do not depend on any file.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Data.BatchSize <= 0 {
		return fmt.Errorf("%w: data.batchSize must be > 0", ErrInvalidConfig)
	}
	if c.Data.PoolSize <= 0 {
		return fmt.Errorf("%w: data.poolSize must be > 0", ErrInvalidConfig)
	}
	// With useTokenBatch, batchSize is a token budget and is not comparable to poolSize.
	if !c.Data.UseTokenBatch && c.Data.PoolSize <= c.Data.BatchSize {
		return fmt.Errorf("%w: data.poolSize must be greater than data.batchSize", ErrInvalidConfig)
	}
	if c.Data.MaxLength > 0 && c.Data.MinLength > c.Data.MaxLength {
		return fmt.Errorf("%w: data.minLength %d exceeds data.maxLength %d",
			ErrInvalidConfig, c.Data.MinLength, c.Data.MaxLength)
	}
	if c.Train.Epochs < 0 {
		return fmt.Errorf("%w: train.epochs must be >= 0", ErrInvalidConfig)
	}
	return nil
}
