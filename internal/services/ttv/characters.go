package ttv

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/uplas/uplas-backend/internal/clients/avatar"
	"github.com/uplas/uplas-backend/internal/pkg/apperr"
	"github.com/uplas/uplas-backend/internal/pkg/logger"
)

// AttireOption is one outfit a character can wear, tagged so free-text
// instructions can select it.
type AttireOption struct {
	ID              string   `json:"id"`
	ServiceAttireID string   `json:"service_attire_id"`
	Tags            []string `json:"tags"`
}

type CharacterConfig struct {
	Name            string         `json:"character_name"`
	AvatarID        string         `json:"avatar_id"`
	Attires         []AttireOption `json:"attires"`
	DefaultAttireID string         `json:"default_attire_id"`
}

func (c CharacterConfig) attireByID(id string) *AttireOption {
	for i := range c.Attires {
		if c.Attires[i].ID == id {
			return &c.Attires[i]
		}
	}
	return nil
}

// defaultCharacters ships the two stock instructors. A config directory
// (CHARACTER_CONFIG_DIR, one <name>.json per character) overrides or extends
// them per deployment.
var defaultCharacters = []CharacterConfig{
	{
		Name:     "susan_us",
		AvatarID: "avatar_susan_us_01",
		Attires: []AttireOption{
			{ID: "blazer_navy", ServiceAttireID: "att_susan_blazer_navy", Tags: []string{"formal", "presentation"}},
			{ID: "blouse_white", ServiceAttireID: "att_susan_blouse_white", Tags: []string{"formal"}},
			{ID: "sweater_teal", ServiceAttireID: "att_susan_sweater_teal", Tags: []string{"casual"}},
		},
		DefaultAttireID: "blouse_white",
	},
	{
		Name:     "uncle_trevor",
		AvatarID: "avatar_uncle_trevor_01",
		Attires: []AttireOption{
			{ID: "suit_charcoal", ServiceAttireID: "att_trevor_suit_charcoal", Tags: []string{"formal", "presentation"}},
			{ID: "shirt_checked", ServiceAttireID: "att_trevor_shirt_checked", Tags: []string{"casual"}},
			{ID: "polo_green", ServiceAttireID: "att_trevor_polo_green", Tags: []string{"casual", "tutorial"}},
		},
		DefaultAttireID: "shirt_checked",
	},
}

// attireKeywords maps words found in additional instructions to attire tags,
// checked in order so repeated runs of the same job resolve identically.
var attireKeywords = []struct {
	keyword string
	tag     string
}{
	{"presentation", "presentation"},
	{"keynote", "presentation"},
	{"tutorial", "tutorial"},
	{"workshop", "tutorial"},
	{"formal", "formal"},
	{"suit", "formal"},
	{"professional", "formal"},
	{"business", "formal"},
	{"casual", "casual"},
	{"relaxed", "casual"},
}

type CharacterManager struct {
	log     *logger.Logger
	configs map[string]CharacterConfig
}

func NewCharacterManager(baseLog *logger.Logger) (*CharacterManager, error) {
	m := &CharacterManager{
		log:     baseLog.With("service", "CharacterManager"),
		configs: make(map[string]CharacterConfig, len(defaultCharacters)),
	}
	for _, c := range defaultCharacters {
		m.configs[c.Name] = c
	}

	dir := strings.TrimSpace(os.Getenv("CHARACTER_CONFIG_DIR"))
	if dir == "" {
		return m, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read character config dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read character config %q: %w", entry.Name(), err)
		}
		var cfg CharacterConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse character config %q: %w", entry.Name(), err)
		}
		if cfg.Name == "" || cfg.AvatarID == "" || len(cfg.Attires) == 0 {
			return nil, fmt.Errorf("character config %q incomplete", entry.Name())
		}
		for _, a := range cfg.Attires {
			if a.ServiceAttireID == "" {
				return nil, fmt.Errorf("character config %q: attire %q missing service_attire_id", entry.Name(), a.ID)
			}
		}
		m.configs[cfg.Name] = cfg
		m.log.Info("loaded character config", "character", cfg.Name, "attires", len(cfg.Attires))
	}
	return m, nil
}

func (m *CharacterManager) Known(character string) bool {
	_, ok := m.configs[character]
	return ok
}

// ResolveAvatar picks avatar and attire for a render. Instructions are scanned
// for attire keywords; when several attires match (or none do and there is no
// default), the seed picks one deterministically, so retries of the same job
// dress the character the same way.
func (m *CharacterManager) ResolveAvatar(character, instructions string, seed int64) (avatarID, serviceAttireID string, err error) {
	cfg, ok := m.configs[character]
	if !ok {
		return "", "", fmt.Errorf("%w: unknown instructor character %q", apperr.ErrInvalidArgument, character)
	}

	wantTag := ""
	lowered := strings.ToLower(instructions)
	for _, kw := range attireKeywords {
		if strings.Contains(lowered, kw.keyword) {
			wantTag = kw.tag
			break
		}
	}

	var candidates []AttireOption
	if wantTag != "" {
		for _, a := range cfg.Attires {
			for _, t := range a.Tags {
				if t == wantTag {
					candidates = append(candidates, a)
					break
				}
			}
		}
	}
	if len(candidates) == 0 {
		if def := cfg.attireByID(cfg.DefaultAttireID); def != nil && wantTag == "" {
			return cfg.AvatarID, def.ServiceAttireID, nil
		}
		candidates = cfg.Attires
	}

	picked := candidates[rand.New(rand.NewSource(seed)).Intn(len(candidates))]
	return cfg.AvatarID, picked.ServiceAttireID, nil
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const abstractLoopID = "abstract_loop_blue_003"

// ResolveBackground maps the request's background theme preference onto the
// avatar service's background union. Anything unrecognized falls back to the
// provider default scene.
func ResolveBackground(preference string) avatar.Background {
	pref := strings.TrimSpace(preference)
	switch {
	case pref == "" || pref == "default":
		return avatar.Background{Type: "default"}
	case pref == "dynamic_abstract":
		return avatar.Background{Type: "animated_loop_id", ID: abstractLoopID}
	case strings.HasPrefix(pref, "color:"):
		hex := strings.TrimPrefix(pref, "color:")
		if hexColorRe.MatchString(hex) {
			return avatar.Background{Type: "solid_color", Hex: hex}
		}
		return avatar.Background{Type: "default"}
	default:
		return avatar.Background{Type: "default"}
	}
}
