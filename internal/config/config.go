package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 pispeak 的顶层配置结构。
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	TTS     TTSConfig     `yaml:"tts"`
	Audio   AudioConfig   `yaml:"audio"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig HTTP 服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AudioConfig 音频播放配置。
type AudioConfig struct {
	// Exclusive 为 true 时同一时刻只允许一个请求占用播放设备。
	// 默认关闭：并发请求的播放会同时打开设备，输出可能交错。
	Exclusive bool `yaml:"exclusive"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	Engine string `yaml:"engine"`
	// Timeout 限制单次合成的最长时间，0 表示不限制。
	Timeout time.Duration `yaml:"timeout"`
	Piper   PiperConfig   `yaml:"piper"`
	Edge    EdgeConfig    `yaml:"edge"`
	Tencent TencentConfig `yaml:"tencent"`
	Sherpa  SherpaConfig  `yaml:"sherpa"`
}

// PiperConfig Piper TTS 配置。
type PiperConfig struct {
	Executable string   `yaml:"executable"`
	ModelPath  string   `yaml:"model_path"`
	SampleRate int      `yaml:"sample_rate"`
	ExtraArgs  []string `yaml:"extra_args"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string  `yaml:"secret_id"`
	SecretKey string  `yaml:"secret_key"`
	VoiceType int64   `yaml:"voice_type"`
	Region    string  `yaml:"region"`
	Speed     float64 `yaml:"speed"`
}

// SherpaConfig sherpa-onnx 进程内离线 TTS 配置。
type SherpaConfig struct {
	ModelPath  string  `yaml:"model_path"`
	Tokens     string  `yaml:"tokens"`
	DataDir    string  `yaml:"data_dir"`
	NumThreads int     `yaml:"num_threads"`
	SpeakerID  int     `yaml:"speaker_id"`
	Speed      float32 `yaml:"speed"`
}

// HistoryConfig 播报历史配置。
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Default 返回全部使用默认值的配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// LoadOrDefault 与 Load 相同，但文件不存在时返回默认配置。
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8000"
	}
	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "piper"
	}
	if cfg.TTS.Piper.Executable == "" {
		cfg.TTS.Piper.Executable = "piper"
	}
	if cfg.TTS.Piper.ModelPath == "" {
		cfg.TTS.Piper.ModelPath = "tr_TR-dfki-medium.onnx"
	}
	if cfg.TTS.Piper.SampleRate == 0 {
		cfg.TTS.Piper.SampleRate = 22050
	}
	if cfg.TTS.Edge.Voice == "" {
		cfg.TTS.Edge.Voice = "tr-TR-EmelNeural"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if cfg.History.DBPath == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.History.DBPath = filepath.Join(home, ".pispeak", "history.db")
		} else {
			cfg.History.DBPath = "./pispeak-history.db"
		}
	} else if strings.HasPrefix(cfg.History.DBPath, "~/") {
		// Go 不会自动展开 ~，需要手动替换为用户主目录
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.History.DBPath = home + cfg.History.DBPath[1:]
		}
	}

	// 去除密钥两端可能的空白（环境变量展开后常见）
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}
