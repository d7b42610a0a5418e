package advisor

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"mandimind/internal/logger"
	"mandimind/internal/negotiation"
)

// Built-in advisory disclaimers. Every suggestion ends with one of these so
// a computed price can never read as a directive.
var defaultDisclaimers = []string{
	"This is a suggestion only; the final price is always your decision.",
	"Market-based guidance, not a binding quote. Negotiate at your own pace.",
	"Consider this a starting point. You remain in full control of the deal.",
	"Advisory estimate from recent mandi prices; accept, counter, or ignore it.",
	"No obligation attached. Use this number only if it works for you.",
}

type registryFile struct {
	Disclaimers []string           `yaml:"disclaimers"`
	Roles       map[string]Profile `yaml:"roles"`
}

// Registry serves disclaimer phrases and role profiles, optionally loaded
// from a YAML file that hot-reloads on change. With no path it serves the
// compiled-in defaults.
type Registry struct {
	path string

	mu          sync.RWMutex
	disclaimers []string
	profiles    map[negotiation.Role]Profile
}

func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		disclaimers: append([]string(nil), defaultDisclaimers...),
		profiles:    cloneProfiles(defaultProfiles),
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return r, nil
	}
	r.path = path
	if err := r.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read advisory registry failed: %w", err)
	}
	v.OnConfigChange(func(fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("advisory registry reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

func (r *Registry) Disclaimers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.disclaimers...)
}

func (r *Registry) Profile(role negotiation.Role) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[role]
	return p, ok
}

func (r *Registry) reload() error {
	cfg, err := readRegistryFile(r.path)
	if err != nil {
		return err
	}
	disclaimers := make([]string, 0, len(cfg.Disclaimers))
	for _, d := range cfg.Disclaimers {
		if d = strings.TrimSpace(d); d != "" {
			disclaimers = append(disclaimers, d)
		}
	}
	if len(disclaimers) == 0 {
		disclaimers = append([]string(nil), defaultDisclaimers...)
	}
	profiles := cloneProfiles(defaultProfiles)
	for name, p := range cfg.Roles {
		role, err := negotiation.ParseRole(name)
		if err != nil {
			logger.Warnf("advisory registry skips %v", err)
			continue
		}
		profiles[role] = p
	}
	r.mu.Lock()
	r.disclaimers = disclaimers
	r.profiles = profiles
	r.mu.Unlock()
	logger.Infof("advisory registry loaded: %d disclaimers, %d role profiles", len(disclaimers), len(profiles))
	return nil
}

func readRegistryFile(path string) (registryFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return registryFile{}, fmt.Errorf("read advisory registry failed: %w", err)
	}
	var cfg registryFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return registryFile{}, fmt.Errorf("parse advisory registry failed: %w", err)
	}
	return cfg, nil
}

func cloneProfiles(src map[negotiation.Role]Profile) map[negotiation.Role]Profile {
	dst := make(map[negotiation.Role]Profile, len(src))
	for role, p := range src {
		dst[role] = p
	}
	return dst
}
