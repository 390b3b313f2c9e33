// Package voices keeps the list of installed voices and picks one for a
// language.
package voices

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/readalong/tts"
)

// Config controls loading and reloading.
type Config struct {
	// LoadTimeout bounds the wait for the backend's voices-ready signal.
	LoadTimeout time.Duration

	// ReloadInterval is the minimum time between background reloads.
	ReloadInterval time.Duration
}

// DefaultConfig returns the default catalog configuration.
func DefaultConfig() Config {
	return Config{
		LoadTimeout:    3000 * time.Millisecond,
		ReloadInterval: 500 * time.Millisecond,
	}
}

// Catalog is a read-mostly list of the backend's voices.
type Catalog struct {
	backend tts.Backend
	config  Config
	limiter *rate.Limiter

	mu        sync.RWMutex
	voices    []tts.Voice
	listeners []func([]tts.Voice)
}

// NewCatalog creates an empty catalog for backend. Call Load before use.
func NewCatalog(backend tts.Backend, config Config) *Catalog {
	defaults := DefaultConfig()
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = defaults.LoadTimeout
	}
	if config.ReloadInterval <= 0 {
		config.ReloadInterval = defaults.ReloadInterval
	}

	return &Catalog{
		backend: backend,
		config:  config,
		limiter: rate.NewLimiter(rate.Every(config.ReloadInterval), 1),
	}
}

// Load reads the backend's voices. When the list is empty it waits for the
// voices-ready signal, the load timeout or ctx, then accepts whatever list
// the backend has, including an empty one.
func (c *Catalog) Load(ctx context.Context) ([]tts.Voice, error) {
	if c.backend == nil || !c.backend.Supported() {
		return nil, tts.NewTTSError(tts.KindBackendUnavailable, tts.ErrBackendUnavailable, "voices", "load")
	}

	if voices := c.Reload(); len(voices) > 0 {
		return voices, nil
	}

	ready := c.backend.VoicesChanged()
	if ready == nil {
		return nil, nil
	}

	timer := time.NewTimer(c.config.LoadTimeout)
	defer timer.Stop()

	select {
	case <-ready:
	case <-timer.C:
		log.Debug("Voices not ready, continuing with current list", "timeout", c.config.LoadTimeout)
	case <-ctx.Done():
		return c.Voices(), ctx.Err()
	}

	return c.Reload(), nil
}

// Reload replaces the list with the backend's current voices.
func (c *Catalog) Reload() []tts.Voice {
	voices := append([]tts.Voice(nil), c.backend.Voices()...)

	c.mu.Lock()
	c.voices = voices
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()

	log.Debug("Loaded voices", "count", len(voices))

	for _, fn := range listeners {
		fn(append([]tts.Voice(nil), voices...))
	}

	return append([]tts.Voice(nil), voices...)
}

// Watch reloads on every voices-changed signal until ctx is done. Bursts of
// signals are throttled to one reload per ReloadInterval.
func (c *Catalog) Watch(ctx context.Context) error {
	changed := c.backend.VoicesChanged()
	if changed == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changed:
			if !ok {
				return nil
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

	drain:
		for {
			select {
			case <-changed:
			default:
				break drain
			}
		}

		c.Reload()
	}
}

// OnChange registers fn to receive the list after every reload.
func (c *Catalog) OnChange(fn func([]tts.Voice)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Voices returns a copy of the current list.
func (c *Catalog) Voices() []tts.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]tts.Voice(nil), c.voices...)
}

// ByID returns the voice with the given identifier, or nil.
func (c *Catalog) ByID(id string) *tts.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, v := range c.voices {
		if v.ID == id {
			return &v
		}
	}
	return nil
}

// Find looks a voice up by ID or name, falling back to a fuzzy name match.
func (c *Catalog) Find(query string) *tts.Voice {
	if v := c.ByID(query); v != nil {
		return v
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.voices))
	for i, v := range c.voices {
		if strings.EqualFold(v.Name, query) {
			return &v
		}
		names[i] = v.Name
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return nil
	}
	v := c.voices[matches[0].Index]
	return &v
}

// SelectDefault picks the best voice for languageTag. Preference: exact tag,
// local and platform default; exact and local; exact; same primary subtag;
// the platform default. It returns nil to let the backend pick.
func (c *Catalog) SelectDefault(languageTag string) *tts.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return selectDefault(c.voices, languageTag)
}

// Fallback returns the voice to retry with after current failed: the
// language default when it differs from current, then the platform default,
// then nil.
func (c *Catalog) Fallback(current *tts.Voice, languageTag string) *tts.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v := selectDefault(c.voices, languageTag); v != nil && !sameVoice(v, current) {
		return v
	}
	if v := platformDefault(c.voices); v != nil && !sameVoice(v, current) {
		return v
	}
	return nil
}

// VoicesForLanguage returns the voices sharing tag's primary subtag.
func (c *Catalog) VoicesForLanguage(tag string) []tts.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	primary := PrimarySubtag(tag)
	var out []tts.Voice
	for _, v := range c.voices {
		if PrimarySubtag(v.Language) == primary {
			out = append(out, v)
		}
	}
	return out
}

// SupportedLanguages returns the sorted primary subtags of all voices.
func (c *Catalog) SupportedLanguages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, v := range c.voices {
		p := PrimarySubtag(v.Language)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// NormalizeTag lowercases a tag and uses "-" as the separator.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tag), "_", "-"))
}

// CanonicalTag returns the BCP 47 form of tag, such as en-US for en_us.
// Unparseable tags are only normalized.
func CanonicalTag(tag string) string {
	norm := NormalizeTag(tag)
	t, err := language.Parse(norm)
	if err != nil {
		return norm
	}
	return t.String()
}

// PrimarySubtag returns the text before the first separator of tag.
func PrimarySubtag(tag string) string {
	tag = NormalizeTag(tag)
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		return tag[:i]
	}
	return tag
}

// LanguageName returns the English display name of tag, or tag itself when
// it cannot be parsed.
func LanguageName(tag string) string {
	t, err := language.Parse(NormalizeTag(tag))
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}

func selectDefault(voices []tts.Voice, languageTag string) *tts.Voice {
	tag := NormalizeTag(languageTag)
	primary := PrimarySubtag(languageTag)

	var exactLocal, exact, primaryLocal, primaryAny *tts.Voice
	for i := range voices {
		v := voices[i]
		vtag := NormalizeTag(v.Language)

		switch {
		case tag != "" && vtag == tag:
			if v.Local && v.Default {
				return &v
			}
			if v.Local && exactLocal == nil {
				exactLocal = &v
			}
			if exact == nil {
				exact = &v
			}
		case primary != "" && PrimarySubtag(vtag) == primary:
			if v.Local && primaryLocal == nil {
				primaryLocal = &v
			}
			if primaryAny == nil {
				primaryAny = &v
			}
		}
	}

	for _, v := range []*tts.Voice{exactLocal, exact, primaryLocal, primaryAny} {
		if v != nil {
			return v
		}
	}
	return platformDefault(voices)
}

func platformDefault(voices []tts.Voice) *tts.Voice {
	for _, v := range voices {
		if v.Default {
			return &v
		}
	}
	return nil
}

func sameVoice(a, b *tts.Voice) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}
