// Package phrase holds the per-language phrase catalog and the sources it is loaded from.
package phrase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wfunc/phrasegame/models"
)

var (
	ErrEmptyCatalog = errors.New("phrase catalog is empty")
	ErrNoDefault    = errors.New("phrase catalog has no phrases for the default language")
)

// Set maps a language key to its phrases.
type Set map[string][]models.Phrase

// Counts returns the number of phrases per language.
func (s Set) Counts() map[string]int {
	counts := make(map[string]int, len(s))
	for lang, phrases := range s {
		counts[lang] = len(phrases)
	}
	return counts
}

// Source loads a complete phrase set.
type Source interface {
	Load(ctx context.Context) (Set, error)
}

// Catalog is the in-memory phrase store. A reload swaps the whole set so readers
// holding a previous slice are never affected.
type Catalog struct {
	phrases         Set
	defaultLanguage string
	mutex           sync.RWMutex
}

func NewCatalog(defaultLanguage string) *Catalog {
	return &Catalog{
		phrases:         make(Set),
		defaultLanguage: defaultLanguage,
	}
}

func (c *Catalog) DefaultLanguage() string {
	return c.defaultLanguage
}

// GetPhrases returns the phrases for language, falling back to the default language.
func (c *Catalog) GetPhrases(language string) []models.Phrase {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if phrases, ok := c.phrases[language]; ok && len(phrases) > 0 {
		return phrases
	}
	return c.phrases[c.defaultLanguage]
}

// Counts returns the catalog size per language.
func (c *Catalog) Counts() map[string]int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.phrases.Counts()
}

func (c *Catalog) Languages() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	langs := make([]string, 0, len(c.phrases))
	for lang := range c.phrases {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Replace validates set and installs it. On error the current catalog is kept.
func (c *Catalog) Replace(set Set) error {
	clean, err := Validate(set, c.defaultLanguage)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	c.phrases = clean
	c.mutex.Unlock()
	return nil
}

// Reload loads a fresh set from src and installs it.
func (c *Catalog) Reload(ctx context.Context, src Source) error {
	set, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load phrases: %w", err)
	}
	return c.Replace(set)
}

// Validate drops blank entries and requires a non-empty list for the default language.
func Validate(set Set, defaultLanguage string) (Set, error) {
	if len(set) == 0 {
		return nil, ErrEmptyCatalog
	}

	clean := make(Set, len(set))
	for lang, phrases := range set {
		lang = strings.TrimSpace(lang)
		if lang == "" {
			continue
		}
		kept := make([]models.Phrase, 0, len(phrases))
		for _, p := range phrases {
			if strings.TrimSpace(p.Original) == "" || strings.TrimSpace(p.Coded) == "" {
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) > 0 {
			clean[lang] = kept
		}
	}

	if len(clean[defaultLanguage]) == 0 {
		return nil, ErrNoDefault
	}
	return clean, nil
}
