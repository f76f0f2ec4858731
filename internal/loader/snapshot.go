package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/napolitain/solver-theater/internal/models"
)

// Snapshot sections of the exported player info
const (
	unitSection = "gun_with_user_info"
	modSection  = "equip_with_user_info"
)

// favorScale converts the snapshot's favor into display points.
const favorScale = 10000

// Inventory is the player's aggregated holdings. Units are keyed by base id.
type Inventory struct {
	Units map[int]models.OwnedUnit
	Mods  map[int]models.OwnedMod
}

// unitRow is one raw doll entry of a snapshot.
type unitRow struct {
	gunID, level, skill1, skill2, number, favor int
}

// ParseSnapshot aggregates an exported player snapshot.
//
// Dolls are grouped by base id, taking the maximum of every field across
// duplicates. Modifications are counted by level: level 10 and above is the
// max level, anything else the base level. Only rank 5 modifications are
// kept. Entries that name ids missing from the game data are skipped.
func ParseSnapshot(data []byte, gd *models.GameData) (*Inventory, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: snapshot is not valid JSON", models.ErrInvalidInventory)
	}
	logger := log.With().Str("module", "loader").Logger()
	root := gjson.ParseBytes(data)

	units, err := parseUnits(root.Get(unitSection))
	if err != nil {
		return nil, err
	}
	inv := &Inventory{
		Units: make(map[int]models.OwnedUnit, len(units)),
		Mods:  make(map[int]models.OwnedMod),
	}
	for base, r := range units {
		def, ok := gd.Units[r.gunID]
		if !ok {
			logger.Warn().Int("gun_id", r.gunID).Msg("unknown doll in snapshot, skipped")
			continue
		}
		owned, err := models.NewOwnedUnit(r.gunID, r.level, r.number, r.skill1, r.skill2, r.favor/favorScale)
		if err != nil {
			return nil, err
		}
		owned.Name = def.Name
		inv.Units[base] = owned
	}

	var parseErr error
	root.Get(modSection).ForEach(func(key, v gjson.Result) bool {
		id, err := intField(v, "equip_id")
		if err != nil {
			parseErr = fmt.Errorf("equip %s: %w", key.String(), err)
			return false
		}
		level, err := intField(v, "equip_level")
		if err != nil {
			parseErr = fmt.Errorf("equip %s: %w", key.String(), err)
			return false
		}
		def, ok := gd.Mods[id]
		if !ok {
			logger.Warn().Int("equip_id", id).Msg("unknown equipment in snapshot, skipped")
			return true
		}
		if def.Rank != 5 {
			return true
		}
		m := inv.Mods[id]
		m.ModID = id
		if level >= int(models.LevelMax) {
			m.Max++
		} else {
			m.Base++
		}
		inv.Mods[id] = m
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	logger.Info().
		Int("units", len(inv.Units)).
		Int("mods", len(inv.Mods)).
		Msg("snapshot parsed")
	return inv, nil
}

func parseUnits(section gjson.Result) (map[int]unitRow, error) {
	rows := make(map[int]unitRow)
	var parseErr error
	section.ForEach(func(key, v gjson.Result) bool {
		var r unitRow
		fields := []struct {
			name     string
			dst      *int
			optional bool
		}{
			{"gun_id", &r.gunID, false},
			{"gun_level", &r.level, false},
			{"skill1", &r.skill1, false},
			{"skill2", &r.skill2, true},
			{"number", &r.number, false},
			{"favor", &r.favor, false},
		}
		for _, f := range fields {
			if f.optional && !v.Get(f.name).Exists() {
				continue
			}
			n, err := intField(v, f.name)
			if err != nil {
				parseErr = fmt.Errorf("gun %s: %w", key.String(), err)
				return false
			}
			*f.dst = n
		}

		base := models.BaseID(r.gunID)
		prev, seen := rows[base]
		if seen {
			r = unitRow{
				gunID:  max(prev.gunID, r.gunID),
				level:  max(prev.level, r.level),
				skill1: max(prev.skill1, r.skill1),
				skill2: max(prev.skill2, r.skill2),
				number: max(prev.number, r.number),
				favor:  max(prev.favor, r.favor),
			}
		}
		rows[base] = r
		return true
	})
	return rows, parseErr
}

// intField reads an integer that the exporter may write as a number or a string.
func intField(v gjson.Result, name string) (int, error) {
	f := v.Get(name)
	switch f.Type {
	case gjson.Number:
		if f.Num != float64(int64(f.Num)) {
			return 0, fmt.Errorf("%w: %s=%v is not an integer", models.ErrInvalidInventory, name, f.Num)
		}
		return int(f.Int()), nil
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(f.Str))
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q is not numeric", models.ErrInvalidInventory, name, f.Str)
		}
		return n, nil
	case gjson.Null:
		if !f.Exists() {
			return 0, fmt.Errorf("%w: missing %s", models.ErrInvalidInventory, name)
		}
	}
	return 0, fmt.Errorf("%w: %s has type %s", models.ErrInvalidInventory, name, f.Type)
}
