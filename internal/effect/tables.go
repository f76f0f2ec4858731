package effect

import (
	"fmt"
	"math"

	"github.com/napolitain/solver-theater/internal/models"
)

// Growth stat indices, in the column order of baseAttr.
const (
	statHP = iota
	statPow
	statRate
	statHit
	statDodge
	statArmor
)

// levelTierCap is the last level of the unmodded growth tier.
const levelTierCap = 100

// basic is the level-independent baseline for pow, rate, hit, dodge.
var basic = [4]float64{16, 45, 5, 5}

// basicLifeArmor[tier][0=hp,1=armor] = {base, per level}
var basicLifeArmor = [2][2][2]float64{
	{{55, 0.555}, {2, 0.161}},
	{{96.283, 0.138}, {13.979, 0.04}},
}

// baseAttr[category][stat] is the class weight of each growth stat.
var baseAttr = [models.CategoryCount][6]float64{
	{0.60, 0.60, 0.80, 1.20, 1.80, 0.00}, // HG
	{1.60, 0.60, 1.20, 0.30, 1.60, 0.00}, // SMG
	{0.80, 2.40, 0.50, 1.60, 0.80, 0.00}, // RF
	{1.00, 1.00, 1.00, 1.00, 1.00, 0.00}, // AR
	{1.50, 1.80, 1.60, 0.60, 0.60, 0.00}, // MG
	{2.00, 0.70, 0.40, 0.30, 0.30, 1.00}, // SG
}

// grow[tier][stat-1] = {per level, base} for pow, rate, hit, dodge.
var grow = [2][4][2]float64{
	{{0.242, 0}, {0.181, 0}, {0.303, 0}, {0.303, 0}},
	{{0.06, 18.018}, {0.022, 15.741}, {0.075, 22.572}, {0.075, 22.572}},
}

// Growth returns the level-derived value of one growth stat for a unit,
// before bond scaling and modification bonuses.
func Growth(level, stat int, unit *models.UnitDef) (int, error) {
	if !unit.Category.Valid() {
		return 0, fmt.Errorf("%w: unit %d has category %d", models.ErrUnknownCategory, unit.ID, int(unit.Category))
	}
	if stat < statHP || stat > statArmor {
		return 0, fmt.Errorf("stat index %d out of range", stat)
	}

	tier := 1
	if level <= levelTierCap {
		tier = 0
	}
	weight := baseAttr[unit.Category.Index()][stat]
	ratio := float64(unit.Ratios.Get(models.GrowthStats[stat]))
	steps := float64(level - 1)

	if stat == statHP || stat == statArmor {
		c := basicLifeArmor[tier][stat&1]
		v := (c[0] + float64(steps*c[1])) * weight * ratio / 100
		return int(math.Ceil(v)), nil
	}

	g := grow[tier][stat-1]
	base := basic[stat-1] * weight * ratio / 100
	accretion := (g[1] + float64(steps*g[0])) * weight * ratio * float64(unit.Growth) / 100 / 100
	return int(math.Ceil(base)) + int(math.Ceil(accretion)), nil
}
