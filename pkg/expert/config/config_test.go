package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "expert.yaml", `
db: snapshots.db
kb: base.yaml
rules: regras.txt
max_rounds: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB != "snapshots.db" || cfg.KB != "base.yaml" ||
		cfg.Rules != "regras.txt" || cfg.MaxRounds != 10 {
		t.Errorf("config wrong: %+v", cfg)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "ausente.yaml")); err == nil {
		t.Error("missing config accepted")
	}
}

func TestLoaderOverrides(t *testing.T) {
	dir := t.TempDir()
	rules := writeFile(t, dir, "regras.txt", "SE A = 1 ENTÃO B = 1\n")
	otherRules := writeFile(t, dir, "outras.txt", "SE B = 1 ENTÃO C = 1\nSE C = 1 ENTÃO D = 1\n")
	cfgPath := writeFile(t, dir, "expert.yaml", `
db: do-config.db
rules: `+rules+`
max_rounds: 10
`)

	l := &Loader{
		ConfigPath: cfgPath,
		DBPath:     "da-flag.db",
		RulesPath:  otherRules,
	}
	comp, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if comp.DBPath != "da-flag.db" {
		t.Errorf("explicit path should win, got %q", comp.DBPath)
	}
	if comp.MaxRounds != 10 {
		t.Errorf("unoverridden setting lost: %d", comp.MaxRounds)
	}
	if len(comp.Rules.Rules) != 2 {
		t.Errorf("override rule file not used: %+v", comp.Rules)
	}
}

func TestLoaderLoadsKB(t *testing.T) {
	dir := t.TempDir()
	kbPath := writeFile(t, dir, "base.yaml", `
facts:
  - attr: Idade
    value: "30"
    status: given
rules: []
`)

	l := &Loader{KBPath: kbPath}
	comp, err := l.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if comp.Snapshot == nil || len(comp.Snapshot.Facts) != 1 {
		t.Fatalf("startup knowledge base not loaded: %+v", comp.Snapshot)
	}
	if comp.Snapshot.Facts[0].Attr != "Idade" {
		t.Errorf("fact wrong: %+v", comp.Snapshot.Facts[0])
	}
}

func TestLoaderNoInputs(t *testing.T) {
	comp, err := (&Loader{}).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if comp.Snapshot != nil || len(comp.Rules.Rules) != 0 || comp.DBPath != "" {
		t.Errorf("empty loader should produce empty components: %+v", comp)
	}
}
