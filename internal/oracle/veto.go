package oracle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tactician/internal/logger"
	"tactician/internal/pkg/text"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// 内建否决词表：先知回覆命中任一词组即视为“观望”。
// 比对前会先移除空白与 Markdown 星号（见 text.Compact）。
var builtinVetoPhrases = []string{
	"決策：觀望",
	"決策:觀望",
	"決策：賣出",
	"決策:賣出",
	"保持100%現金",
	"建議空手",
	"暫不進場",
	"風險過高",
}

// vetoFileConfig 映射 veto_phrases.yaml。
type vetoFileConfig struct {
	Version int      `mapstructure:"version" yaml:"version"`
	Phrases []string `mapstructure:"phrases" yaml:"phrases"`
}

// VetoSnapshot 公开的词表快照。
type VetoSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Phrases  []string
}

// VetoRegistry 管理否决词表，支持文件热更新。
type VetoRegistry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot VetoSnapshot
	// compacted[i] 与 snapshot.Phrases[i] 一一对应
	compacted []string
}

// NewVetoRegistry 读取词表文件并监听更新。
// path 为空时使用内建词表，不落盘也不监听。
// 文件不存在时先写出内建词表作为初始内容。
func NewVetoRegistry(path string) (*VetoRegistry, error) {
	r := &VetoRegistry{path: strings.TrimSpace(path)}
	if r.path == "" {
		r.install(builtinVetoPhrases)
		return r, nil
	}
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		if werr := writeDefaultVetoFile(r.path); werr != nil {
			return nil, werr
		}
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read veto config failed: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("否决词表重载失败: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前词表。
func (r *VetoRegistry) Snapshot() VetoSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := r.snapshot
	out.Phrases = append([]string(nil), r.snapshot.Phrases...)
	return out
}

// IsVetoed 判断先知回覆是否命中否决词，返回命中的原始词组。
func (r *VetoRegistry) IsVetoed(reply string) (string, bool) {
	compactReply := text.Compact(reply)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, needle := range r.compacted {
		if needle == "" {
			continue
		}
		if strings.Contains(compactReply, needle) {
			return r.snapshot.Phrases[i], true
		}
	}
	return "", false
}

func (r *VetoRegistry) reload() error {
	var cfg vetoFileConfig
	if err := r.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("parse veto config failed: %w", err)
	}
	phrases := make([]string, 0, len(cfg.Phrases))
	for _, p := range cfg.Phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		phrases = append(phrases, p)
	}
	if len(phrases) == 0 {
		logger.Warnf("否决词表为空，回退内建词表: %s", filepath.Base(r.path))
		phrases = append(phrases, builtinVetoPhrases...)
	}
	r.install(phrases)
	logger.Infof("否决词表载入 %d 条 (version=%d)", len(phrases), cfg.Version)
	return nil
}

func (r *VetoRegistry) install(phrases []string) {
	compacted := make([]string, len(phrases))
	for i, p := range phrases {
		compacted[i] = text.Compact(p)
	}
	r.mu.Lock()
	r.snapshot = VetoSnapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Phrases:  append([]string(nil), phrases...),
	}
	r.compacted = compacted
	r.mu.Unlock()
}

func writeDefaultVetoFile(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create veto config dir failed: %w", err)
		}
	}
	raw, err := yaml.Marshal(vetoFileConfig{Version: 1, Phrases: builtinVetoPhrases})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write veto config failed: %w", err)
	}
	logger.Infof("已写出预设否决词表: %s", path)
	return nil
}
