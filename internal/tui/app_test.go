package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/aboradar/internal/config"
	"github.com/theirongolddev/aboradar/internal/model"
	"github.com/theirongolddev/aboradar/internal/store"
	"github.com/theirongolddev/aboradar/internal/tui/components"
	"github.com/theirongolddev/aboradar/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
)

var testAsOf = time.Date(2024, 4, 20, 12, 0, 0, 0, time.UTC)

func testSubs() []model.Subscription {
	return []model.Subscription{
		{
			ID: "netflix", Name: "Netflix", Price: 15.99, Interval: model.Monthly,
			StartDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Category: "Streaming",
		},
		{
			// ends 2024-06-01, cancel by 2024-05-01: 11 days after testAsOf
			ID: "gym", Name: "Gym", Price: 30, Interval: model.Monthly,
			StartDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), Category: "Sports",
			ContractTermMonths: model.IntPtr(12), NoticePeriod: model.IntPtr(1), NoticeUnit: model.Months,
		},
		{
			// deadline 2023-12-31 passed: inactive
			ID: "old", Name: "Old Magazine", Price: 120, Interval: model.Yearly,
			StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			ContractTermMonths: model.IntPtr(12), NoticePeriod: model.IntPtr(1), NoticeUnit: model.Days,
		},
	}
}

// loadedApp returns an app sized 120x40 with the test snapshot loaded.
func loadedApp(t *testing.T) App {
	t.Helper()
	theme.SetActive("dark")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	a := NewApp(Options{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
		AsOf:   testAsOf,
		Config: config.DefaultConfig(),
	})
	a = update(t, a, tea.WindowSizeMsg{Width: 120, Height: 40})
	return update(t, a, DataLoadedMsg{Subscriptions: testSubs()})
}

func update(t *testing.T, a App, msg tea.Msg) App {
	t.Helper()
	m, _ := a.Update(msg)
	next, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T, want App", m)
	}
	return next
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0

		for i, tab := range components.Tabs {
			w := len(tab.Name) + 2 // horizontal padding in tab renderer
			if i != active && tab.KeyPos < 0 {
				w += 3 // inactive Settings adds "[x]"
			}
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 1 // separator
		}
	}
}

func TestDataLoadedRecomputes(t *testing.T) {
	a := loadedApp(t)

	if !a.loaded {
		t.Fatal("app should be loaded")
	}
	if a.summary.TotalCount != 3 || a.summary.ActiveCount != 2 {
		t.Errorf("counts = %d/%d, want 3 total, 2 active", a.summary.TotalCount, a.summary.ActiveCount)
	}
	if want := 45.99; a.summary.MonthlyTotal < want-1e-9 || a.summary.MonthlyTotal > want+1e-9 {
		t.Errorf("MonthlyTotal = %v, want %v", a.summary.MonthlyTotal, want)
	}
	if len(a.warnings) != 1 || a.warnings[0].Subscription.ID != "gym" {
		t.Fatalf("warnings = %+v, want gym only", a.warnings)
	}
	if a.warnings[0].DaysLeft != 11 {
		t.Errorf("DaysLeft = %d, want 11", a.warnings[0].DaysLeft)
	}
	if len(a.savings.Expensive) != 1 || a.savings.Expensive[0].ID != "gym" {
		t.Errorf("expensive = %+v, want gym", a.savings.Expensive)
	}
	if len(a.visible) != 3 || a.visible[0].Name != "Gym" {
		t.Errorf("visible should list all subscriptions by name, got %d", len(a.visible))
	}
}

func TestCategoryOption(t *testing.T) {
	theme.SetActive("dark")
	a := NewApp(Options{AsOf: testAsOf, Config: config.DefaultConfig(), Category: "streaming"})
	a = update(t, a, DataLoadedMsg{Subscriptions: testSubs()})

	if a.summary.TotalCount != 1 {
		t.Errorf("category filter should keep 1 subscription, got %d", a.summary.TotalCount)
	}
	if len(a.warnings) != 0 {
		t.Errorf("filtered snapshot has no deadlines, got %d warnings", len(a.warnings))
	}
}

func TestTabKeys(t *testing.T) {
	a := loadedApp(t)

	for _, tc := range []struct {
		key  string
		want int
	}{
		{"t", components.TabStats},
		{"c", components.TabCancellations},
		{"x", components.TabSettings},
		{"s", components.TabSubscriptions},
		{"o", components.TabOverview},
	} {
		a = update(t, a, key(tc.key))
		if a.activeTab != tc.want {
			t.Errorf("after %q activeTab = %d, want %d", tc.key, a.activeTab, tc.want)
		}
	}

	a = update(t, a, tea.KeyMsg{Type: tea.KeyRight})
	if a.activeTab != components.TabSubscriptions {
		t.Errorf("right arrow: activeTab = %d", a.activeTab)
	}
	a = update(t, a, tea.KeyMsg{Type: tea.KeyLeft})
	a = update(t, a, tea.KeyMsg{Type: tea.KeyLeft})
	if a.activeTab != components.TabSettings {
		t.Errorf("left arrow should wrap to settings, got %d", a.activeTab)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	a := loadedApp(t)
	a = update(t, a, key("s"))
	a = update(t, a, key("d"))

	if !a.subsState.confirmDelete {
		t.Fatal("d should ask for confirmation")
	}
	if !strings.Contains(a.status, "Gym") {
		t.Errorf("status = %q, want the selected name", a.status)
	}

	m, cmd := a.Update(key("n"))
	a = m.(App)
	if cmd != nil {
		t.Error("declining must not issue a store command")
	}
	if a.subsState.confirmDelete {
		t.Error("confirmation should be reset")
	}
}

func TestSearchFiltersByName(t *testing.T) {
	a := loadedApp(t)
	a = update(t, a, key("s"))
	a = update(t, a, key("/"))
	if !a.subsState.searching {
		t.Fatal("/ should start search")
	}
	for _, r := range "net" {
		a = update(t, a, key(string(r)))
	}
	a = update(t, a, tea.KeyMsg{Type: tea.KeyEnter})

	if a.subsState.query != "net" {
		t.Errorf("query = %q, want net", a.subsState.query)
	}
	if len(a.visible) != 1 || a.visible[0].ID != "netflix" {
		t.Errorf("visible = %+v, want netflix only", a.visible)
	}
}

func TestAddOpensForm(t *testing.T) {
	a := loadedApp(t)
	a = update(t, a, key("s"))
	a = update(t, a, key("a"))

	if a.subsState.form == nil {
		t.Fatal("a should open the subscription form")
	}
	if a.subsState.formVals.Interval != string(model.Monthly) {
		t.Errorf("default interval = %q", a.subsState.formVals.Interval)
	}
	if a.subsState.formVals.StartDate != "2024-04-20" {
		t.Errorf("default start = %q, want as-of date", a.subsState.formVals.StartDate)
	}

	a = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.subsState.form != nil {
		t.Error("esc should close the form")
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	a := loadedApp(t)
	a = update(t, a, key("c"))
	a = update(t, a, key("g"))

	if a.cancel.form != nil {
		t.Error("no generator: form must not open")
	}
	if !strings.Contains(a.status, "GEMINI_API_KEY") {
		t.Errorf("status = %q", a.status)
	}
}

func TestViewRendersEveryTab(t *testing.T) {
	a := loadedApp(t)

	wants := map[int]string{
		components.TabOverview:      "Cancellation deadlines",
		components.TabSubscriptions: "Netflix",
		components.TabStats:         "Monthly cost by category",
		components.TabCancellations: "Gym",
		components.TabSettings:      "Monthly budget",
	}
	for tab, want := range wants {
		a.activeTab = tab
		view := a.View()
		if !strings.Contains(view, want) {
			t.Errorf("tab %d view missing %q", tab, want)
		}
	}
}

func TestViewTooNarrow(t *testing.T) {
	a := loadedApp(t)
	a = update(t, a, tea.WindowSizeMsg{Width: 60, Height: 20})
	if !strings.Contains(a.View(), "too narrow") {
		t.Error("narrow terminal should show a hint")
	}
}

func TestSettingsSaveBudget(t *testing.T) {
	a := loadedApp(t)
	a.settings.cursor = settingsFieldBudget

	if err := a.settingsSave("50"); err != nil {
		t.Fatalf("settingsSave: %v", err)
	}
	if a.cfg.Budget.MonthlyEUR == nil || *a.cfg.Budget.MonthlyEUR != 50 {
		t.Fatalf("budget = %v, want 50", a.cfg.Budget.MonthlyEUR)
	}
	if !config.Exists() {
		t.Error("config file should be written")
	}

	a.settings.cursor = settingsFieldWarningDays
	if err := a.settingsSave("soon"); err == nil {
		t.Error("non-numeric days should fail")
	}
}

func TestLoadSnapshot(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, s := range testSubs() {
		if err := st.Put(s); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if err := st.SetSetting(store.SettingTheme, "light"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetSetting(store.SettingLetterTemplate, "Sehr geehrte [AnbieterName]"); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	msg := loadSnapshot(dbPath, "ok")
	if msg.Err != nil {
		t.Fatalf("loadSnapshot: %v", msg.Err)
	}
	if len(msg.Subscriptions) != 3 {
		t.Errorf("got %d subscriptions, want 3", len(msg.Subscriptions))
	}
	if msg.Theme != "light" || msg.Status != "ok" {
		t.Errorf("theme = %q status = %q", msg.Theme, msg.Status)
	}
	if !strings.Contains(msg.Template, "[AnbieterName]") {
		t.Errorf("template = %q", msg.Template)
	}
}
