package xconf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Format 配置文件格式。
type Format string

// 支持的配置格式。
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

const koanfDelim = "."

// Source 已加载的配置源。
//
// 封装底层 koanf 实例并提供并发安全的重载；[Load] 与
// [LoadBytes] 在其上反序列化出 [GuardConfig]。
type Source struct {
	mu     sync.RWMutex
	k      *koanf.Koanf
	path   string // 从字节创建时为空
	format Format
}

// NewSource 从文件创建配置源，按扩展名识别格式（.yaml/.yml/.json）。
func NewSource(path string) (*Source, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	return &Source{k: k, path: path, format: format}, nil
}

// NewSourceFromBytes 从字节数据创建配置源，需显式指定格式。
// 空数据创建空配置，反序列化得到零值。
func NewSourceFromBytes(data []byte, format Format) (*Source, error) {
	switch format {
	case FormatYAML, FormatJSON:
	default:
		return nil, ErrUnsupportedFormat
	}
	k, err := parse(data, format)
	if err != nil {
		return nil, err
	}
	return &Source{k: k, format: format}, nil
}

// Client 返回底层 koanf 实例，用于执行 koanf 的原生操作。
func (s *Source) Client() *koanf.Koanf {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.k
}

// Unmarshal 将 path 下的配置反序列化到 target，path 为空时取整棵树。
func (s *Source) Unmarshal(path string, target any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}

// Reload 重新读取并解析配置文件。
// 解析失败时保留原配置不变。
func (s *Source) Reload() error {
	if s.path == "" {
		return ErrNotReloadable
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	k, err := parse(data, s.format)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.k = k
	s.mu.Unlock()
	return nil
}

// Path 返回配置文件路径，从字节创建时为空字符串。
func (s *Source) Path() string { return s.path }

// Format 返回配置格式。
func (s *Source) Format() Format { return s.format }

func detectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func parse(data []byte, format Format) (*koanf.Koanf, error) {
	k := koanf.New(koanfDelim)
	if len(data) == 0 {
		return k, nil
	}
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, ErrUnsupportedFormat
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return k, nil
}
