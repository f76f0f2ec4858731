package theater

import (
	"context"
	"errors"
	"testing"

	"github.com/napolitain/solver-theater/internal/models"
	"github.com/napolitain/solver-theater/internal/recipe"
	"github.com/napolitain/solver-theater/internal/solver/ilp"
)

func coltDef() *models.UnitDef {
	return &models.UnitDef{
		ID:       20001,
		Name:     "Colt Revolver Mod",
		Category: models.HG,
		Rank:     5,
		Ratios: models.Ratios{
			HP: 122, Pow: 125, Rate: 89, Hit: 90, Dodge: 95,
		},
		Crit:          20,
		ArmorPiercing: 15,
		Growth:        130,
		SlotCategories: [3][]int{
			{4, 13, 16, 18},
			{6},
			{10},
		},
	}
}

func smgDef() *models.UnitDef {
	return &models.UnitDef{
		ID:       2,
		Name:     "Thompson",
		Category: models.SMG,
		Rank:     5,
		Ratios: models.Ratios{
			HP: 130, Pow: 110, Rate: 110, Hit: 60, Dodge: 110,
		},
		Crit:   5,
		Growth: 100,
		SlotCategories: [3][]int{
			{4, 13},
			{6},
			{10},
		},
	}
}

func modDefs() map[int]*models.ModDef {
	return map[int]*models.ModDef{
		122: {
			ID: 122, Name: "Colt SAA", Category: 18, Rank: 5, Bonus: true, UpgradeCost: 3, Visible: true,
			Stats: map[string]models.StatBonus{
				models.StatCritPercent: {Min: 12, Max: 15, Upgrade: 350, HasUpgrade: true},
				models.StatDodge:       {Min: 6, Max: 8, Upgrade: 300, HasUpgrade: true},
				models.StatPow:         {Min: 1, Max: 2, Upgrade: 500, HasUpgrade: true},
			},
		},
		72: {
			ID: 72, Name: "HP Ammo", Category: 6, Rank: 5, Bonus: true, UpgradeCost: 1, Visible: true,
			Stats: map[string]models.StatBonus{
				models.StatPiercing: {Min: -10, Max: -7},
				models.StatPow:      {Min: 7, Max: 10, Upgrade: 500, HasUpgrade: true},
			},
		},
		40: {
			ID: 40, Name: "Suppressor", Category: 10, Rank: 5, Bonus: true, UpgradeCost: 1, Visible: true,
			Stats: map[string]models.StatBonus{
				models.StatDodge: {Min: 20, Max: 25, Upgrade: 400, HasUpgrade: true},
				models.StatPow:   {Min: -8, Max: -6},
			},
		},
	}
}

func coltEntry() *recipe.UnitEntry {
	return &recipe.UnitEntry{
		Def:   coltDef(),
		Owned: models.OwnedUnit{UnitID: 1, DefID: 20001, Level: 120, Number: 5, Skill1: 10, Skill2: 10, Favor: 100},
	}
}

func modEntries(base, max int) map[int]*recipe.ModEntry {
	out := make(map[int]*recipe.ModEntry)
	for id, def := range modDefs() {
		out[id] = &recipe.ModEntry{Def: def, Owned: models.OwnedMod{ModID: id, Base: base, Max: max}}
	}
	return out
}

func flatScenario() *models.Scenario {
	return &models.Scenario{
		ID:          1048,
		ClassWeight: [6]int{100, 100, 100, 100, 100, 100},
		Advantage:   map[int]bool{},
	}
}

func request(t *testing.T, units map[int]*recipe.UnitEntry, mods map[int]*recipe.ModEntry, maxSlots, budget int) Request {
	t.Helper()
	recipes, err := recipe.Generate(recipe.Input{
		Units:      units,
		Mods:       mods,
		Scenario:   flatScenario(),
		MaxSlots:   maxSlots,
		FairyRatio: 1.25,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return Request{
		Name:          "test",
		Recipes:       recipes,
		Units:         units,
		Mods:          mods,
		MaxSlots:      maxSlots,
		UpgradeBudget: budget,
	}
}

func solvers() map[string]ilp.Solver {
	return map[string]ilp.Solver{
		"bnb":    ilp.BranchAndBound{},
		"greedy": ilp.Greedy{},
	}
}

func TestSolveSingleUnitNoMods(t *testing.T) {
	for name, s := range solvers() {
		t.Run(name, func(t *testing.T) {
			req := request(t, map[int]*recipe.UnitEntry{1: coltEntry()}, nil, 1, 0)

			report, err := Solve(context.Background(), s, req)
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if len(report.Loadouts) != 1 {
				t.Fatalf("expected 1 loadout, got %d", len(report.Loadouts))
			}
			lr := report.Loadouts[0]
			// floor(100 * 1.25 * 3195 / 100)
			if lr.Score != 3993 || report.TotalScore != 3993 {
				t.Errorf("score = %d (total %d), want 3993", lr.Score, report.TotalScore)
			}
			if lr.UnitID != 1 || lr.DefID != 20001 || lr.CategoryLabel != "HG" || lr.Level != 120 {
				t.Errorf("unexpected record %+v", lr)
			}
			for i, m := range lr.Mods {
				if m.ID != 0 {
					t.Errorf("slot %d should be empty, got %+v", i, m)
				}
			}
			if len(report.Usage) != 0 {
				t.Errorf("no usage expected, got %+v", report.Usage)
			}
		})
	}
}

func TestSolveRespectsSlotLimit(t *testing.T) {
	weak := &recipe.UnitEntry{
		Def:   smgDef(),
		Owned: models.OwnedUnit{UnitID: 2, DefID: 2, Level: 1, Number: 1, Skill1: 1},
	}
	units := map[int]*recipe.UnitEntry{1: coltEntry(), 2: weak}

	tests := []struct {
		slots int
		want  []int
	}{
		{1, []int{1}},
		{2, []int{1, 2}},
		{5, []int{1, 2}},
	}
	for _, tt := range tests {
		req := request(t, units, nil, tt.slots, 0)
		report, err := Solve(context.Background(), ilp.BranchAndBound{}, req)
		if err != nil {
			t.Fatalf("Solve(%d slots): %v", tt.slots, err)
		}
		if len(report.Loadouts) != len(tt.want) {
			t.Fatalf("%d slots: got %d loadouts, want %d", tt.slots, len(report.Loadouts), len(tt.want))
		}
		// sorted by score, so the maxed doll comes first
		for i, id := range tt.want {
			if report.Loadouts[i].UnitID != id {
				t.Errorf("%d slots: loadout %d is unit %d, want %d", tt.slots, i, report.Loadouts[i].UnitID, id)
			}
		}
	}
}

func TestSolveUpgradeUsage(t *testing.T) {
	units := map[int]*recipe.UnitEntry{1: coltEntry()}
	mods := modEntries(1, 0)
	costs := map[int]int{122: 3, 72: 1, 40: 1}

	for _, budget := range []int{0, 1, 3, 5} {
		req := request(t, units, mods, 30, budget)
		bnb, err := Solve(context.Background(), ilp.BranchAndBound{}, req)
		if err != nil {
			t.Fatalf("budget %d: %v", budget, err)
		}
		greedy, err := Solve(context.Background(), ilp.Greedy{}, req)
		if err != nil {
			t.Fatalf("budget %d greedy: %v", budget, err)
		}
		if greedy.TotalScore > bnb.TotalScore {
			t.Errorf("budget %d: greedy %d beats branch and bound %d", budget, greedy.TotalScore, bnb.TotalScore)
		}

		spent := 0
		for _, u := range bnb.Usage {
			spent += u.Count * costs[u.ModID]
			if u.Name == "" {
				t.Errorf("usage %d is missing its name", u.ModID)
			}
		}
		if spent > budget {
			t.Errorf("budget %d: upgrades spend %d", budget, spent)
		}

		// every level 10 copy in use has to come from an upgrade
		upgraded := map[int]int{}
		for _, u := range bnb.Usage {
			upgraded[u.ModID] = u.Count
		}
		for _, lr := range bnb.Loadouts {
			for _, m := range lr.Mods {
				if m.ID != 0 && m.Level == models.LevelMax {
					upgraded[m.ID]--
				}
			}
		}
		for id, n := range upgraded {
			if n < 0 {
				t.Errorf("budget %d: mod %d used at level 10 without an upgrade", budget, id)
			}
		}
	}

	req := request(t, units, mods, 30, 5)
	report, err := Solve(context.Background(), ilp.BranchAndBound{}, req)
	if err != nil {
		t.Fatal(err)
	}
	// the all level 10 loadout is affordable, so the optimum is at least its score
	if report.TotalScore < 5012 {
		t.Errorf("total = %d, want at least 5012", report.TotalScore)
	}
	if report.Status != ilp.Optimal {
		t.Errorf("status = %v, want optimal", report.Status)
	}
}

func TestSolvePerfectUsageFromLoadouts(t *testing.T) {
	units := map[int]*recipe.UnitEntry{1: coltEntry()}
	req := request(t, units, modEntries(99, 99), 30, 999)
	req.Perfect = true

	report, err := Solve(context.Background(), ilp.BranchAndBound{}, req)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(report.Loadouts) != 1 {
		t.Fatalf("expected 1 loadout, got %d", len(report.Loadouts))
	}

	want := map[int]int{}
	for _, m := range report.Loadouts[0].Mods {
		if m.ID != 0 {
			want[m.ID]++
		}
	}
	if len(report.Usage) != len(want) {
		t.Fatalf("usage = %+v, want counts %v", report.Usage, want)
	}
	for _, u := range report.Usage {
		if want[u.ModID] != u.Count {
			t.Errorf("mod %d count = %d, want %d", u.ModID, u.Count, want[u.ModID])
		}
		if u.ModID == 122 && u.Rank != 6 {
			t.Errorf("exclusive mod rank = %d, want 6", u.Rank)
		}
	}
}

func TestBuildLedger(t *testing.T) {
	l := BuildLedger(map[int]*recipe.UnitEntry{1: coltEntry()}, modEntries(2, 1), 30, 7)

	want := map[string]float64{
		"g_1":     1,
		"e122_0":  2,
		"e122_10": 1,
		"e72_0":   2,
		"e72_10":  1,
		"e40_0":   2,
		"e40_10":  1,
		"count":   30,
		"score":   0,
		"upgrade": 7,
	}
	if len(l) != len(want) {
		t.Errorf("ledger has %d rows, want %d: %v", len(l), len(want), l)
	}
	for row, v := range want {
		if l[row] != v {
			t.Errorf("%s = %v, want %v", row, l[row], v)
		}
	}
}

func TestBuildProblem(t *testing.T) {
	req := request(t, map[int]*recipe.UnitEntry{1: coltEntry()}, modEntries(1, 0), 30, 5)
	ledger := BuildLedger(req.Units, req.Mods, req.MaxSlots, req.UpgradeBudget)

	p, err := BuildProblem("test", req.Recipes, ledger)
	if err != nil {
		t.Fatalf("BuildProblem: %v", err)
	}
	if len(p.Vars) != len(req.Recipes) {
		t.Errorf("vars = %d, want %d", len(p.Vars), len(req.Recipes))
	}
	if got := p.Objective.Constant; got != 0.005 {
		t.Errorf("objective constant = %v, want 0.005", got)
	}

	rows := map[string]ilp.Constraint{}
	for _, c := range p.Constraints {
		rows[c.Name] = c
	}
	// upgrade recipes never consume deployment slots
	for _, term := range rows[recipe.RowCount].Terms {
		if req.Recipes[term.Var].Kind != recipe.Loadout {
			t.Errorf("%s touches the slot row", term.Var)
		}
	}
	for _, term := range rows[recipe.RowUpgrade].Terms {
		if req.Recipes[term.Var].Kind != recipe.Upgrade {
			t.Errorf("%s touches the upgrade row", term.Var)
		}
	}
	if c := rows["e122_10"]; c.Constant != 0 || len(c.Terms) == 0 {
		t.Errorf("e122_10 row = %+v", c)
	}
}

func TestBuildProblemRejectsNegativeStart(t *testing.T) {
	_, err := BuildProblem("bad", nil, Ledger{"count": -1})
	if !errors.Is(err, ilp.ErrNoSolution) {
		t.Errorf("expected ErrNoSolution, got %v", err)
	}
}

func TestVerifyAssignment(t *testing.T) {
	req := request(t, map[int]*recipe.UnitEntry{1: coltEntry()}, modEntries(1, 0), 30, 5)
	ledger := BuildLedger(req.Units, req.Mods, req.MaxSlots, req.UpgradeBudget)

	ok := ilp.Assignment{"u_e122": 1, "u_e72": 1, "u_e40": 1, "r_g1_e122lv10_e72lv10_e40lv10": 1}
	if v := VerifyAssignment(req.Recipes, ledger, ok); len(v) != 0 {
		t.Errorf("valid plan flagged: %v", v)
	}

	// level 10 copies without upgrades, and the doll deployed twice
	bad := ilp.Assignment{"r_g1_e122lv10_e72lv10_e40lv10": 2}
	v := VerifyAssignment(req.Recipes, ledger, bad)
	broken := map[string]bool{}
	for _, x := range v {
		broken[x.Name] = true
	}
	for _, row := range []string{"g_1", "e122_10", "e72_10", "e40_10"} {
		if !broken[row] {
			t.Errorf("row %s should be violated, got %v", row, v)
		}
	}

	over := ilp.Assignment{"u_e122": 2}
	if v := VerifyAssignment(req.Recipes, ledger, over); len(v) == 0 {
		t.Error("spending two base copies of one should be flagged")
	}
}

func testGameData() *models.GameData {
	return &models.GameData{
		Units: map[int]*models.UnitDef{20001: coltDef(), 2: smgDef()},
		Mods:  modDefs(),
		Theaters: map[int]*models.Theater{
			1048: {
				ID: 1048, Name: "Area 1",
				ClassWeight:  []int{100, 120, 80, 100, 90, 110},
				AdvantageGun: []int{20001},
				Boss:         &models.Boss{EnemyTeamID: 9, Night: true},
			},
			1049: {ID: 1049, Name: "Supply", ClassWeight: []int{100, 100, 100, 100, 100, 100}},
		},
	}
}

func testConfig() models.RunConfig {
	cfg := models.DefaultRunConfig()
	cfg.TheaterID = 1048
	cfg.MaxDolls = 2
	cfg.Perfect = true
	return cfg
}

func TestCommanderRunPerfect(t *testing.T) {
	gd := testGameData()
	scores := map[string]int{}
	for name, s := range solvers() {
		report, err := NewCommander(gd, s, nil).Run(context.Background(), testConfig())
		if err != nil {
			t.Fatalf("%s: Run: %v", name, err)
		}
		if report.Scenario == nil || report.Scenario.ID != 1048 || report.Scenario.Mode != models.Night {
			t.Errorf("%s: scenario = %+v", name, report.Scenario)
		}
		if len(report.Loadouts) != 2 {
			t.Errorf("%s: expected both dolls deployed, got %d", name, len(report.Loadouts))
		}
		scores[name] = report.TotalScore
	}
	if scores["greedy"] > scores["bnb"] {
		t.Errorf("greedy %d beats branch and bound %d", scores["greedy"], scores["bnb"])
	}
}

func TestCommanderRunFilter(t *testing.T) {
	cfg := testConfig()
	cfg.UnitFilter = `Category == "SMG"`

	report, err := NewCommander(testGameData(), ilp.BranchAndBound{}, nil).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Loadouts) != 1 || report.Loadouts[0].UnitID != 2 {
		t.Errorf("expected only the SMG, got %+v", report.Loadouts)
	}
}

func TestCommanderRunSnapshot(t *testing.T) {
	snapshot := []byte(`{
		"gun_with_user_info": [
			{"gun_id": "20001", "gun_level": "120", "skill1": "10", "skill2": "10", "number": "5", "favor": "1000000"}
		],
		"equip_with_user_info": {
			"1": {"equip_id": "72", "equip_level": "0"}
		}
	}`)
	cfg := testConfig()
	cfg.Perfect = false
	cfg.UpgradeBudget = 1

	report, err := NewCommander(testGameData(), ilp.BranchAndBound{}, snapshot).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Loadouts) != 1 {
		t.Fatalf("expected 1 loadout, got %d", len(report.Loadouts))
	}
	if lr := report.Loadouts[0]; lr.Favor != 100 || lr.Skill2 != 10 {
		t.Errorf("snapshot state not carried: %+v", lr)
	}
}

func TestCommanderRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		theater int
		perfect bool
		want    error
	}{
		{"unknown theater", 4242, true, models.ErrUnknownScenario},
		{"no boss", 1049, true, models.ErrNotCombatScenario},
		{"missing snapshot", 1048, false, models.ErrInvalidInventory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.TheaterID = tt.theater
			cfg.Perfect = tt.perfect
			_, err := NewCommander(testGameData(), ilp.Greedy{}, nil).Run(context.Background(), cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCommanderRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCommander(testGameData(), ilp.BranchAndBound{}, nil).Run(ctx, testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSolverFor(t *testing.T) {
	cfg := models.DefaultRunConfig()
	s, err := SolverFor(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := s.(ilp.BranchAndBound); !ok || b.MaxNodes != cfg.MaxNodes || b.TimeLimit != cfg.TimeLimit {
		t.Errorf("default solver = %#v", s)
	}
	cfg.Solver = models.SolverGreedy
	if s, _ := SolverFor(cfg); s != (ilp.Greedy{}) {
		t.Errorf("greedy solver = %#v", s)
	}
	cfg.Solver = "simplex"
	if _, err := SolverFor(cfg); err == nil {
		t.Error("expected error for unknown solver")
	}
}
