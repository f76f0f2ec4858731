// Package effect computes the combat effectiveness of a doll with a given
// modification loadout. The arithmetic mirrors the game's published formula
// operation by operation so results match the in-game values exactly.
package effect

import (
	"fmt"
	"math"

	"github.com/napolitain/solver-theater/internal/models"
)

// baseCritDamage is the critical damage percentage every doll starts with.
const baseCritDamage = 150

// armorScale is multiplied at runtime; the constant-folded 420 differs from
// the game's float product in the last bit.
var armorScale = 4.2

// Equipped is one slot of a loadout. A nil Mod is an empty slot.
type Equipped struct {
	Mod   *models.ModDef
	Level models.ModLevel
}

// Result holds the day and night effectiveness of a loadout.
type Result struct {
	Day   int
	Night int
}

// For returns the value used by the given fight mode.
func (r Result) For(mode models.FightMode) int {
	if mode == models.Night {
		return r.Night
	}
	return r.Day
}

// combatStats are the aggregated stats the effectiveness formula reads.
type combatStats struct {
	number int
	star   int
	skill1 int
	skill2 int

	hp, pow, rate, hit, dodge, armor int

	crit, critDamage, piercing, nightView, bullet int

	skillEffect    int
	skillEffectPer int
}

// BondFactor returns the stat multiplier granted by favor.
func BondFactor(favor int) float64 {
	return 0.95 + float64(float64(floorDiv(favor+10, 50))*0.05)
}

// Compute returns the day and night effectiveness of a doll with three slots.
func Compute(unit *models.UnitDef, owned models.OwnedUnit, mods [models.SlotCount]Equipped) (Result, error) {
	model, err := attackModelFor(unit.Category)
	if err != nil {
		return Result{}, fmt.Errorf("unit %d: %w", unit.ID, err)
	}

	s, err := aggregate(unit, owned, mods)
	if err != nil {
		return Result{}, err
	}
	if s.rate <= 0 {
		return Result{}, fmt.Errorf("unit %d: fire rate %d is not positive", unit.ID, s.rate)
	}

	base := s.skillTerm() + s.defenseTerm()
	return Result{
		Day:   base + model.effect(s, s.hit),
		Night: base + model.effect(s, s.nightHit()),
	}, nil
}

func aggregate(unit *models.UnitDef, owned models.OwnedUnit, mods [models.SlotCount]Equipped) (*combatStats, error) {
	bond := BondFactor(owned.Favor)

	var growth [6]int
	for stat := statHP; stat <= statArmor; stat++ {
		g, err := Growth(owned.Level, stat, unit)
		if err != nil {
			return nil, err
		}
		switch stat {
		case statPow, statHit, statDodge:
			growth[stat] = CeilEpsilon(float64(g) * bond)
		default:
			growth[stat] = CeilEpsilon(float64(g))
		}
	}

	s := &combatStats{
		number:     owned.Number,
		star:       unit.Rank,
		skill1:     owned.Skill1,
		skill2:     owned.Skill2,
		hp:         growth[statHP],
		pow:        growth[statPow],
		rate:       growth[statRate],
		hit:        growth[statHit],
		dodge:      growth[statDodge],
		armor:      growth[statArmor],
		crit:       unit.Crit,
		critDamage: baseCritDamage,
		piercing:   unit.ArmorPiercing,
		bullet:     unit.Bullet,
	}

	for _, eq := range mods {
		if eq.Mod == nil {
			continue
		}
		s.skillEffectPer += eq.Mod.SkillEffectPer
		s.skillEffect += eq.Mod.SkillEffect
		for name, bonus := range eq.Mod.Stats {
			if field := s.field(name); field != nil {
				*field += bonusValue(bonus, eq.Level)
			}
		}
	}
	return s, nil
}

// bonusValue returns a stat line's contribution at the given level.
func bonusValue(b models.StatBonus, level models.ModLevel) int {
	modifier := 1.0
	if b.HasUpgrade && level == models.LevelMax {
		modifier += float64(b.Upgrade) / 1000
	}
	return int(math.Floor(float64(b.Max) * modifier))
}

func (s *combatStats) field(stat string) *int {
	switch stat {
	case models.StatHP:
		return &s.hp
	case models.StatPow:
		return &s.pow
	case models.StatRate:
		return &s.rate
	case models.StatHit:
		return &s.hit
	case models.StatDodge:
		return &s.dodge
	case models.StatArmor:
		return &s.armor
	case models.StatCritPercent:
		return &s.crit
	case models.StatCritDamage:
		return &s.critDamage
	case models.StatPiercing:
		return &s.piercing
	case models.StatNightView:
		return &s.nightView
	case models.StatBullet:
		return &s.bullet
	}
	return nil
}

// skillTerm: skill 1 always counts, skill 2 only once it has been unlocked.
func (s *combatStats) skillTerm() int {
	star := 0.8 + float64(s.star)/10
	pct := float64(100 + s.skillEffectPer)

	v := CeilEpsilon(float64(s.number)*star*float64(35+5*(s.skill1-1))*pct/100) + s.skillEffect
	if s.skill2 > 0 {
		v += CeilEpsilon(float64(s.number) * star * float64(15+2*(s.skill2-1)) * pct / 100)
	}
	return v
}

func (s *combatStats) defenseTerm() int {
	armor := max(1, 100-s.armor)
	return CeilEpsilon(float64(s.hp*s.number*(35+s.dodge)) / 35 * (armorScale*100/float64(armor) - 3.2))
}

// nightHit applies the night penalty, softened by night-view equipment.
func (s *combatStats) nightHit() int {
	penalty := float64(-0.9 * (1 - float64(s.nightView)/100))
	return CeilEpsilon(float64(s.hit) * (1 + penalty))
}
