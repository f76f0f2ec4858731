package models

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrUnknownScenario   = errors.New("unknown theater scenario")
	ErrNotCombatScenario = errors.New("theater scenario has no boss fight")
	ErrUnknownCategory   = errors.New("unknown weapon category")
	ErrInvalidInventory  = errors.New("invalid inventory")
)

// Category is the weapon class of a doll. Values match the game tables (1-based).
type Category int

const (
	HG Category = iota + 1
	SMG
	RF
	AR
	MG
	SG
)

// CategoryCount is the number of weapon classes.
const CategoryCount = 6

var categoryNames = [CategoryCount]string{"HG", "SMG", "RF", "AR", "MG", "SG"}

// AllCategories returns all weapon classes in table order
func AllCategories() []Category {
	return []Category{HG, SMG, RF, AR, MG, SG}
}

// Valid reports whether c is one of the six weapon classes.
func (c Category) Valid() bool {
	return c >= HG && c <= SG
}

// Index returns the zero-based position used by per-category tables.
func (c Category) Index() int {
	return int(c) - 1
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c.Index()]
}

// ParseCategory accepts either the label ("SMG") or the numeric table value ("2").
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for i, name := range categoryNames {
		if strings.EqualFold(name, s) {
			return Category(i + 1), nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Category(n).Valid() {
		return Category(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Stat names shared by unit ratios and modification bonuses
const (
	StatHP    = "hp"
	StatPow   = "pow"
	StatRate  = "rate"
	StatHit   = "hit"
	StatDodge = "dodge"
	StatArmor = "armor"

	StatCritPercent = "critical_percent"
	StatCritDamage  = "critical_harm_rate"
	StatPiercing    = "armor_piercing"
	StatNightView   = "night_view_percent"
	StatBullet      = "bullet_number_up"
)

// GrowthStats lists the level-dependent stats in table order.
var GrowthStats = [6]string{StatHP, StatPow, StatRate, StatHit, StatDodge, StatArmor}

// FixedStats lists the stats that do not grow with level.
var FixedStats = [5]string{StatCritPercent, StatCritDamage, StatPiercing, StatNightView, StatBullet}

// Ratios holds the per-doll stat multipliers (percent of the class baseline).
type Ratios struct {
	HP    int
	Pow   int
	Rate  int
	Hit   int
	Dodge int
	Armor int
}

// Get returns the ratio for a growth stat name.
func (r Ratios) Get(stat string) int {
	switch stat {
	case StatHP:
		return r.HP
	case StatPow:
		return r.Pow
	case StatRate:
		return r.Rate
	case StatHit:
		return r.Hit
	case StatDodge:
		return r.Dodge
	case StatArmor:
		return r.Armor
	}
	return 0
}

// SlotCount is the number of equipment slots per doll.
const SlotCount = 3

// UnitDef is the static definition of a doll.
type UnitDef struct {
	ID            int
	Name          string
	Category      Category
	Rank          int
	RankDisplay   int
	Ratios        Ratios
	Crit          int
	ArmorPiercing int
	Bullet        int
	Growth        int
	// SlotCategories[i] lists the modification categories accepted by slot i+1.
	SlotCategories [SlotCount][]int
}

// BaseID strips the modded-form offset (20000) from a doll id.
func BaseID(id int) int {
	return id % 20000
}

// StatBonus is one stat line of a modification.
type StatBonus struct {
	Min        int
	Max        int
	Upgrade    int // per-mille bonus at level 10
	HasUpgrade bool
}

// ModDef is the static definition of a modification (equipment).
type ModDef struct {
	ID             int
	Name           string
	Code           string
	Category       int
	Rank           int
	Stats          map[string]StatBonus
	Bonus          bool
	UpgradeCost    int
	SkillEffect    int
	SkillEffectPer int
	FitUnits       []int
	Visible        bool
}

// FitsUnit reports whether the modification may be equipped by the given base unit id.
func (m *ModDef) FitsUnit(unitID int) bool {
	return len(m.FitUnits) == 0 || slices.Contains(m.FitUnits, unitID)
}

// Upgradable reports whether copies can be enhanced to level 10 through an upgrade recipe.
func (m *ModDef) Upgradable() bool {
	return m.Bonus && m.UpgradeCost > 0
}

// DisplayRank returns the rank shown to players; exclusive categories show as 6.
func (m *ModDef) DisplayRank() int {
	switch m.Category {
	case 18, 19, 20:
		return 6
	}
	return m.Rank
}

// ModLevel is the enhancement level of a modification copy.
type ModLevel int

const (
	LevelBase ModLevel = 0
	LevelMax  ModLevel = 10
)

// OwnedUnit is the player's aggregated state for one base unit id.
type OwnedUnit struct {
	UnitID int // base id (DefID % 20000)
	DefID  int // definition id, the modded form when owned
	Name   string
	Level  int
	Number int
	Skill1 int
	Skill2 int
	Favor  int
}

// NewOwnedUnit validates the snapshot values before building an OwnedUnit.
func NewOwnedUnit(defID, level, number, skill1, skill2, favor int) (OwnedUnit, error) {
	switch {
	case defID <= 0:
		return OwnedUnit{}, fmt.Errorf("%w: unit id %d", ErrInvalidInventory, defID)
	case level < 0:
		return OwnedUnit{}, fmt.Errorf("%w: unit %d level %d", ErrInvalidInventory, defID, level)
	case level > 0 && number < 1:
		return OwnedUnit{}, fmt.Errorf("%w: unit %d number %d", ErrInvalidInventory, defID, number)
	case skill1 < 0 || skill2 < 0:
		return OwnedUnit{}, fmt.Errorf("%w: unit %d skills %d/%d", ErrInvalidInventory, defID, skill1, skill2)
	case favor < 0:
		return OwnedUnit{}, fmt.Errorf("%w: unit %d favor %d", ErrInvalidInventory, defID, favor)
	}
	return OwnedUnit{
		UnitID: BaseID(defID),
		DefID:  defID,
		Level:  level,
		Number: number,
		Skill1: skill1,
		Skill2: skill2,
		Favor:  favor,
	}, nil
}

// OwnedMod counts the player's copies of one modification by level.
type OwnedMod struct {
	ModID int
	Base  int
	Max   int
}

// NewOwnedMod rejects negative counts.
func NewOwnedMod(modID, base, max int) (OwnedMod, error) {
	if base < 0 || max < 0 {
		return OwnedMod{}, fmt.Errorf("%w: mod %d counts %d/%d", ErrInvalidInventory, modID, base, max)
	}
	return OwnedMod{ModID: modID, Base: base, Max: max}, nil
}

// Count returns the held copies at the given level.
func (o OwnedMod) Count(level ModLevel) int {
	if level == LevelMax {
		return o.Max
	}
	return o.Base
}
