package phrase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func testSet() Set {
	return Set{
		"fr": {{Original: "Le chat dort", Coded: "Leuch a d'or"}, {Original: "Coup de foudre", Coded: "Cou de foudre"}},
		"en": {{Original: "Piece of cake", Coded: "Peace off kay"}},
	}
}

type staticSource struct {
	set Set
	err error
}

func (s staticSource) Load(ctx context.Context) (Set, error) {
	return s.set, s.err
}

func TestCatalog_GetPhrasesFallsBackToDefault(t *testing.T) {
	c := NewCatalog("fr")
	if err := c.Replace(testSet()); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	if got := c.GetPhrases("en"); len(got) != 1 {
		t.Errorf("Expected 1 english phrase, got %d", len(got))
	}
	if got := c.GetPhrases("de"); len(got) != 2 {
		t.Errorf("Unknown language should fall back to fr, got %d phrases", len(got))
	}
	counts := c.Counts()
	if counts["fr"] != 2 || counts["en"] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestCatalog_ReloadKeepsPreviousOnFailure(t *testing.T) {
	c := NewCatalog("fr")
	c.Replace(testSet())

	if err := c.Reload(context.Background(), staticSource{err: errors.New("boom")}); err == nil {
		t.Error("Expected reload error")
	}
	err := c.Reload(context.Background(), staticSource{set: Set{"en": testSet()["en"]}})
	if !errors.Is(err, ErrNoDefault) {
		t.Errorf("Expected ErrNoDefault, got %v", err)
	}
	if len(c.GetPhrases("fr")) != 2 {
		t.Error("Failed reload must keep the previous catalog")
	}
}

func TestValidate_DropsBlankEntries(t *testing.T) {
	set := Set{"fr": {{Original: "ok", Coded: "oh k"}, {Original: " ", Coded: "x"}, {Original: "y", Coded: ""}}}
	clean, err := Validate(set, "fr")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(clean["fr"]) != 1 {
		t.Errorf("Expected 1 valid phrase, got %d", len(clean["fr"]))
	}
	if _, err := Validate(Set{}, "fr"); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("Expected ErrEmptyCatalog, got %v", err)
	}
}

func TestFileSource_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"phrases.json", "phrases.yaml"} {
		src := FileSource{Path: filepath.Join(dir, name)}
		if err := src.Save(testSet()); err != nil {
			t.Fatalf("%s: Save failed: %v", name, err)
		}
		set, err := src.Load(context.Background())
		if err != nil {
			t.Fatalf("%s: Load failed: %v", name, err)
		}
		if len(set["fr"]) != 2 || set["fr"][0].Coded != "Leuch a d'or" {
			t.Errorf("%s: unexpected set %+v", name, set)
		}
	}
}

func TestFileSource_BundledCatalog(t *testing.T) {
	c := NewCatalog("fr")
	if err := c.Reload(context.Background(), FileSource{Path: filepath.Join("..", "data", "phrases.json")}); err != nil {
		t.Fatalf("Bundled catalog should load: %v", err)
	}
	if len(c.GetPhrases("en")) == 0 {
		t.Error("Bundled catalog should include english phrases")
	}
}

func TestHTTPSource_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"fr":[{"original":"Poser un lapin","coded":"Pot z'un la pain"}]}`))
	}))
	defer srv.Close()

	set, err := NewHTTPSource(srv.URL + "/phrases.json").Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(set["fr"]) != 1 {
		t.Errorf("Expected 1 phrase, got %d", len(set["fr"]))
	}

	if _, err := NewHTTPSource(srv.URL + "/missing.json").Load(context.Background()); err == nil {
		t.Error("Expected error for non-2xx status")
	}
}

func TestUpdater_RefreshWritesBack(t *testing.T) {
	c := NewCatalog("fr")
	c.Replace(testSet())
	local := &FileSource{Path: filepath.Join(t.TempDir(), "phrases.json")}

	fresh := Set{"fr": {{Original: "Mettre les voiles", Coded: "Mètre lait voile"}}}
	u := NewUpdater(c, staticSource{set: fresh}, local, clockwork.NewFakeClock(), time.Hour, 10*time.Second)
	if err := u.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if got := c.GetPhrases("fr"); len(got) != 1 || got[0].Original != "Mettre les voiles" {
		t.Errorf("Catalog not updated: %+v", got)
	}
	if _, err := os.Stat(local.Path); err != nil {
		t.Errorf("Refreshed phrases should be written back: %v", err)
	}

	bad := NewUpdater(c, staticSource{set: Set{"en": {{Original: "a", Coded: "b"}}}}, local, clockwork.NewFakeClock(), time.Hour, 0)
	if err := bad.Refresh(context.Background()); err == nil {
		t.Error("Refresh without default language should be rejected")
	}
	if got := c.GetPhrases("fr"); len(got) != 1 {
		t.Error("Rejected refresh must keep the catalog")
	}
}

func TestUpdater_RunAfterInitialDelay(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCatalog("fr")
	c.Replace(testSet())
	fresh := Set{"fr": {{Original: "Casser les pieds", Coded: "Qu'a c'est lait pied"}}}
	u := NewUpdater(c, staticSource{set: fresh}, nil, clock, time.Hour, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.Run(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	if err := clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("updater did not wait for the initial delay: %v", err)
	}
	if len(c.GetPhrases("fr")) != 2 {
		t.Fatal("Catalog should not change before the initial delay")
	}
	clock.Advance(10 * time.Second)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if got := c.GetPhrases("fr"); len(got) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Catalog should be refreshed after the initial delay")
}
