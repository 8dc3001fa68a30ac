package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Server.Addr", cfg.Server.Addr, "127.0.0.1:8000"},
		{"Audio.Exclusive", cfg.Audio.Exclusive, false},
		{"TTS.Engine", cfg.TTS.Engine, "piper"},
		{"TTS.Piper.Executable", cfg.TTS.Piper.Executable, "piper"},
		{"TTS.Piper.ModelPath", cfg.TTS.Piper.ModelPath, "tr_TR-dfki-medium.onnx"},
		{"TTS.Piper.SampleRate", cfg.TTS.Piper.SampleRate, 22050},
		{"TTS.Edge.Voice", cfg.TTS.Edge.Voice, "tr-TR-EmelNeural"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
	if cfg.TTS.Timeout != 0 {
		t.Errorf("TTS.Timeout should default to 0 (no limit), got %v", cfg.TTS.Timeout)
	}
	if !strings.HasSuffix(cfg.History.DBPath, "history.db") {
		t.Errorf("History.DBPath: unexpected default %q", cfg.History.DBPath)
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Addr: ":9000"},
		Audio:  AudioConfig{Exclusive: true},
		TTS: TTSConfig{
			Engine: "edge",
			Piper:  PiperConfig{Executable: "/opt/piper/piper", ModelPath: "en.onnx", SampleRate: 16000},
			Edge:   EdgeConfig{Voice: "custom-voice"},
		},
		Log: LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr should not be overridden: got %s", cfg.Server.Addr)
	}
	if !cfg.Audio.Exclusive {
		t.Errorf("Audio should not be overridden: got %+v", cfg.Audio)
	}
	if cfg.TTS.Engine != "edge" {
		t.Errorf("TTS.Engine should not be overridden: got %s", cfg.TTS.Engine)
	}
	if cfg.TTS.Piper.Executable != "/opt/piper/piper" || cfg.TTS.Piper.ModelPath != "en.onnx" || cfg.TTS.Piper.SampleRate != 16000 {
		t.Errorf("TTS.Piper should not be overridden: got %+v", cfg.TTS.Piper)
	}
	if cfg.TTS.Edge.Voice != "custom-voice" {
		t.Errorf("TTS.Edge.Voice should not be overridden: got %s", cfg.TTS.Edge.Voice)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	yamlContent := `
server:
  addr: "0.0.0.0:8080"
tts:
  engine: piper
  timeout: 30s
  piper:
    executable: ./piper.exe
    model_path: /models/tr.onnx
    extra_args: ["--speaker", "0"]
audio:
  exclusive: true
history:
  enabled: true
  db_path: /tmp/pispeak/history.db
log:
  level: debug
  file: /tmp/pispeak/pispeak.log
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("Server.Addr: got %q", cfg.Server.Addr)
	}
	if cfg.TTS.Timeout != 30*time.Second {
		t.Errorf("TTS.Timeout: got %v, want 30s", cfg.TTS.Timeout)
	}
	if cfg.TTS.Piper.Executable != "./piper.exe" || cfg.TTS.Piper.ModelPath != "/models/tr.onnx" {
		t.Errorf("TTS.Piper: got %+v", cfg.TTS.Piper)
	}
	if len(cfg.TTS.Piper.ExtraArgs) != 2 || cfg.TTS.Piper.ExtraArgs[0] != "--speaker" {
		t.Errorf("TTS.Piper.ExtraArgs: got %v", cfg.TTS.Piper.ExtraArgs)
	}
	if !cfg.Audio.Exclusive {
		t.Error("Audio.Exclusive: expected true")
	}
	if !cfg.History.Enabled || cfg.History.DBPath != "/tmp/pispeak/history.db" {
		t.Errorf("History: got %+v", cfg.History)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/pispeak/pispeak.log" {
		t.Errorf("Log: got %+v", cfg.Log)
	}
	// 未设置的字段应填充默认值
	if cfg.TTS.Piper.SampleRate != 22050 {
		t.Errorf("TTS.Piper.SampleRate should default to 22050, got %d", cfg.TTS.Piper.SampleRate)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_TENCENT_KEY", "  secret-from-env ")

	yamlContent := `
tts:
  tencent:
    secret_key: "${TEST_TENCENT_KEY}"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TTS.Tencent.SecretKey != "secret-from-env" {
		t.Errorf("expected expanded and trimmed key, got %q", cfg.TTS.Tencent.SecretKey)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte("server: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if _, err := Load(tmpFile); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault failed: %v", err)
	}
	if cfg.TTS.Piper.ModelPath != "tr_TR-dfki-medium.onnx" {
		t.Errorf("expected defaults, got %+v", cfg.TTS.Piper)
	}
}

func TestSetDefaults_ExpandsHomeInDBPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	cfg := &Config{History: HistoryConfig{DBPath: "~/data/h.db"}}
	setDefaults(cfg)
	if cfg.History.DBPath != home+"/data/h.db" {
		t.Errorf("expected ~ expansion, got %q", cfg.History.DBPath)
	}
}
