package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/napolitain/solver-theater/internal/models"
)

// Data file names inside the data directory
const (
	DollFile    = "doll.json"
	EquipFile   = "equip.json"
	TheaterFile = "theater_info.json"
)

// DollJSON represents one entry of doll.json
type DollJSON struct {
	ID            int    `json:"id"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	Rank          int    `json:"rank"`
	RankDisplay   int    `json:"rank_display"`
	Collabo       int    `json:"collabo"`
	Stat          struct {
		HP    int `json:"hp"`
		Pow   int `json:"pow"`
		Hit   int `json:"hit"`
		Dodge int `json:"dodge"`
		Speed int `json:"speed"`
		Rate  int `json:"rate"`
		Armor int `json:"armor"`
	} `json:"stat"`
	ArmorPiercing int    `json:"armor_piercing"`
	Crit          int    `json:"crit"`
	Bullet        int    `json:"bullet"`
	Grow          int    `json:"grow"`
	TypeEquip     string `json:"type_equip"`
}

// StatJSON is one stat line of equip.json
type StatJSON struct {
	Min     int  `json:"min"`
	Max     int  `json:"max"`
	Upgrade *int `json:"upgrade,omitempty"`
}

// EquipJSON represents one entry of equip.json
type EquipJSON struct {
	ID             int                 `json:"id"`
	Type           int                 `json:"type"`
	Name           string              `json:"name"`
	Code           string              `json:"code"`
	Rank           int                 `json:"rank"`
	Stat           map[string]StatJSON `json:"stat"`
	ExclusiveRate  int                 `json:"exclusive_rate"`
	SkillEffect    float64             `json:"skill_effect"`
	SkillEffectPer float64             `json:"skill_effect_per"`
	FitGuns        []int               `json:"fit_guns"`
	IsShow         *int                `json:"is_show,omitempty"`
}

// TheaterJSON represents one entry of theater_info.json
type TheaterJSON struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Desc         string `json:"desc"`
	ClassWeight  []int  `json:"class_weight"`
	AdvantageGun []int  `json:"advantage_gun"`
	Boss         *struct {
		EnemyTeamID int  `json:"enemy_team_id"`
		IsNight     bool `json:"is_night"`
	} `json:"boss"`
}

// LoadGameData loads the three static tables from dataDir
func LoadGameData(dataDir string) (*models.GameData, error) {
	units, err := LoadUnits(dataDir)
	if err != nil {
		return nil, err
	}
	mods, err := LoadMods(dataDir)
	if err != nil {
		return nil, err
	}
	theaters, err := LoadTheaters(dataDir)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("module", "loader").
		Str("dir", dataDir).
		Int("units", len(units)).
		Int("mods", len(mods)).
		Int("theaters", len(theaters)).
		Msg("game data loaded")

	return &models.GameData{Units: units, Mods: mods, Theaters: theaters}, nil
}

func readTable[T any](dataDir, name string) (map[string]T, error) {
	data, err := os.ReadFile(filepath.Join(dataDir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	var raw map[string]T
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return raw, nil
}

// LoadUnits loads doll definitions from doll.json
func LoadUnits(dataDir string) (map[int]*models.UnitDef, error) {
	raw, err := readTable[DollJSON](dataDir, DollFile)
	if err != nil {
		return nil, err
	}

	units := make(map[int]*models.UnitDef, len(raw))
	for key, d := range raw {
		u, err := d.toUnitDef()
		if err != nil {
			return nil, fmt.Errorf("%s entry %s: %w", DollFile, key, err)
		}
		units[u.ID] = u
	}
	return units, nil
}

func (d *DollJSON) toUnitDef() (*models.UnitDef, error) {
	cat, err := models.ParseCategory(d.Type)
	if err != nil {
		return nil, err
	}
	slots, err := ParseSlotCategories(d.TypeEquip)
	if err != nil {
		return nil, err
	}

	display := d.RankDisplay
	if display == 0 {
		display = d.Rank
		if d.Collabo == 1 {
			display = 7
		}
	}

	return &models.UnitDef{
		ID:          d.ID,
		Name:        d.Name,
		Category:    cat,
		Rank:        d.Rank,
		RankDisplay: display,
		Ratios: models.Ratios{
			HP:    d.Stat.HP,
			Pow:   d.Stat.Pow,
			Rate:  d.Stat.Rate,
			Hit:   d.Stat.Hit,
			Dodge: d.Stat.Dodge,
			Armor: d.Stat.Armor,
		},
		Crit:           d.Crit,
		ArmorPiercing:  d.ArmorPiercing,
		Bullet:         d.Bullet,
		Growth:         d.Grow,
		SlotCategories: slots,
	}, nil
}

// ParseSlotCategories parses "4,13|6|10" into the per-slot category lists.
// A leading "prefix;" on a slot is ignored, as in the raw tables.
func ParseSlotCategories(s string) ([models.SlotCount][]int, error) {
	var slots [models.SlotCount][]int
	parts := strings.Split(s, "|")
	if len(parts) != models.SlotCount {
		return slots, fmt.Errorf("type_equip %q: want %d slots, got %d", s, models.SlotCount, len(parts))
	}
	for i, part := range parts {
		if idx := strings.LastIndex(part, ";"); idx >= 0 {
			part = part[idx+1:]
		}
		for _, field := range strings.Split(part, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			cat, err := strconv.Atoi(field)
			if err != nil {
				return slots, fmt.Errorf("type_equip %q: %w", s, err)
			}
			slots[i] = append(slots[i], cat)
		}
	}
	return slots, nil
}

// LoadMods loads modification definitions from equip.json
func LoadMods(dataDir string) (map[int]*models.ModDef, error) {
	raw, err := readTable[EquipJSON](dataDir, EquipFile)
	if err != nil {
		return nil, err
	}

	mods := make(map[int]*models.ModDef, len(raw))
	for _, e := range raw {
		m := &models.ModDef{
			ID:             e.ID,
			Name:           e.Name,
			Code:           e.Code,
			Category:       e.Type,
			Rank:           e.Rank,
			Stats:          make(map[string]models.StatBonus, len(e.Stat)),
			UpgradeCost:    e.ExclusiveRate,
			SkillEffect:    int(e.SkillEffect),
			SkillEffectPer: int(e.SkillEffectPer),
			FitUnits:       e.FitGuns,
			Visible:        e.IsShow == nil || *e.IsShow != 0,
		}
		for name, st := range e.Stat {
			b := models.StatBonus{Min: st.Min, Max: st.Max}
			if st.Upgrade != nil {
				b.Upgrade = *st.Upgrade
				b.HasUpgrade = true
				m.Bonus = true
			}
			m.Stats[name] = b
		}
		mods[m.ID] = m
	}
	return mods, nil
}

// LoadTheaters loads theater areas from theater_info.json
func LoadTheaters(dataDir string) (map[int]*models.Theater, error) {
	raw, err := readTable[TheaterJSON](dataDir, TheaterFile)
	if err != nil {
		return nil, err
	}

	theaters := make(map[int]*models.Theater, len(raw))
	for _, t := range raw {
		th := &models.Theater{
			ID:           t.ID,
			Name:         t.Name,
			Description:  t.Desc,
			ClassWeight:  t.ClassWeight,
			AdvantageGun: t.AdvantageGun,
		}
		if t.Boss != nil {
			th.Boss = &models.Boss{EnemyTeamID: t.Boss.EnemyTeamID, Night: t.Boss.IsNight}
		}
		theaters[th.ID] = th
	}
	return theaters, nil
}
