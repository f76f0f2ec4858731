package effect

import (
	"fmt"

	"github.com/napolitain/solver-theater/internal/models"
)

// attackModel selects one of the closed-form attack formulas.
type attackModel int

const (
	attackStandard attackModel = iota // HG, SMG, RF, AR
	attackMachineGun
	attackShotgun
)

func attackModelFor(c models.Category) (attackModel, error) {
	switch c {
	case models.HG, models.SMG, models.RF, models.AR:
		return attackStandard, nil
	case models.MG:
		return attackMachineGun, nil
	case models.SG:
		return attackShotgun, nil
	}
	return 0, fmt.Errorf("%w: %d", models.ErrUnknownCategory, int(c))
}

func (m attackModel) String() string {
	switch m {
	case attackMachineGun:
		return "machine-gun"
	case attackShotgun:
		return "shotgun"
	}
	return "standard"
}

// effect computes the attack contribution for the given (possibly night-reduced) hit.
func (m attackModel) effect(s *combatStats, hit int) int {
	number := s.number
	power := float64(s.pow) + float64(s.piercing)/3
	crit := 1 + float64(s.crit*(s.critDamage-100))/10000
	rate := float64(s.rate)
	bullet := float64(s.bullet)

	switch m {
	case attackShotgun:
		den := 1.5 + float64(s.bullet*50)/rate + float64(0.5*bullet)
		inner := float64(3*s.bullet) * power * crit / den * float64(hit) / float64(hit+23)
		return CeilEpsilon(float64(6*number) * (inner + 8))
	case attackMachineGun:
		den := bullet/3 + 4 + 200/rate
		inner := bullet * power * crit / den * float64(hit) / float64(hit+23)
		return CeilEpsilon(float64(7*number) * (inner + 8))
	}
	inner := power * crit * rate / 50 * float64(hit) / float64(hit+23)
	return CeilEpsilon(float64(5*number) * (inner + 8))
}
