package config

import (
	"os"
	"path/filepath"
	"testing"

	"lifeorganizer/internal/models"
)

func TestParseIDList(t *testing.T) {
	ids := parseIDList("123, 456,,abc, 789")
	if len(ids) != 3 || ids[0] != 123 || ids[1] != 456 || ids[2] != 789 {
		t.Fatalf("parseIDList = %v", ids)
	}
	if got := parseIDList(""); got != nil {
		t.Fatalf("empty input must give nil, got %v", got)
	}
}

func TestLoadHabitSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habits.yaml")
	content := `habits:
  - name: Skincare Routine
    frequency: Twice Daily
    times: [Morning, Evening]
    category: Health
    xp_reward: 25
  - name: ""
  - name: Weekly Review
    frequency: Weekly
    category: Personal Projects
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	specs, err := LoadHabitSeeds(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("nameless entries must be skipped, got %d specs", len(specs))
	}

	first := specs[0]
	if first.Name != "Skincare Routine" || first.Frequency != models.FrequencyTwiceDaily {
		t.Fatalf("unexpected first spec: %+v", first)
	}
	if len(first.Times) != 2 || first.Times[0] != models.TimeMorning || first.Times[1] != models.TimeEvening {
		t.Fatalf("unexpected times: %v", first.Times)
	}
	if first.Category != models.CategoryHealth || first.XPReward != 25 {
		t.Fatalf("unexpected category/reward: %+v", first)
	}

	if specs[1].Category != models.CategoryPersonalProjects {
		t.Fatalf("category clamp failed: %+v", specs[1])
	}
}

func TestLoadHabitSeedsMissingFile(t *testing.T) {
	if _, err := LoadHabitSeeds("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
