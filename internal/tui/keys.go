package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type Action string

type Binding struct {
	Action Action
	Keys   []string
	Help   string
	Scope  string
}

// KeyRegistry maps key names to actions per focus scope, with a global
// fallback scope.
type KeyRegistry struct {
	bindingsByScope map[string][]*Binding
	indexByScope    map[string]map[string]*Binding
}

const (
	scopeGlobal  = "global"
	scopeFiles   = "files"
	scopeHistory = "history"
	scopeFilter  = "filter"
	scopeData    = "data"
)

const (
	actionQuit       Action = "quit"
	actionNextPane   Action = "next_pane"
	actionPrevPane   Action = "prev_pane"
	actionSummaryTab Action = "summary_tab"
	actionTableTab   Action = "table_tab"
	actionNavigate   Action = "navigate"
	actionUp         Action = "up"
	actionDown       Action = "down"
	actionUpload     Action = "upload"
	actionRescan     Action = "rescan"
	actionSelect     Action = "select"
	actionReport     Action = "report"
	actionRefresh    Action = "refresh"
	actionFilter     Action = "filter"
	actionClear      Action = "clear"
	actionConfirm    Action = "confirm"
	actionCancel     Action = "cancel"
)

func NewKeyRegistry() *KeyRegistry {
	r := &KeyRegistry{
		bindingsByScope: make(map[string][]*Binding),
		indexByScope:    make(map[string]map[string]*Binding),
	}
	reg := func(scope string, action Action, keys []string, help string) {
		r.Register(Binding{Action: action, Keys: keys, Help: help, Scope: scope})
	}

	reg(scopeGlobal, actionQuit, []string{"q", "ctrl+c"}, "quit")
	reg(scopeGlobal, actionNextPane, []string{"tab"}, "next pane")
	reg(scopeGlobal, actionPrevPane, []string{"shift+tab"}, "prev pane")
	reg(scopeGlobal, actionSummaryTab, []string{"1"}, "summary")
	reg(scopeGlobal, actionTableTab, []string{"2"}, "data table")
	reg(scopeGlobal, actionRefresh, []string{"r"}, "refresh history")

	// Upload pane: pick a CSV from the upload directory.
	reg(scopeFiles, actionNavigate, []string{"j/k", "j", "k", "up", "down"}, "navigate")
	reg(scopeFiles, actionUpload, []string{"enter"}, "upload")
	reg(scopeFiles, actionRescan, []string{"s"}, "rescan dir")
	reg(scopeFiles, actionNextPane, []string{"tab"}, "next pane")
	reg(scopeFiles, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeHistory, actionNavigate, []string{"j/k", "j", "k", "up", "down"}, "navigate")
	reg(scopeHistory, actionSelect, []string{"enter"}, "load")
	reg(scopeHistory, actionReport, []string{"p"}, "pdf report")
	reg(scopeHistory, actionFilter, []string{"/"}, "filter")
	reg(scopeHistory, actionClear, []string{"esc"}, "clear filter")
	reg(scopeHistory, actionRefresh, []string{"r"}, "refresh")
	reg(scopeHistory, actionNextPane, []string{"tab"}, "next pane")
	reg(scopeHistory, actionQuit, []string{"q", "ctrl+c"}, "quit")

	reg(scopeFilter, actionConfirm, []string{"enter"}, "confirm")
	reg(scopeFilter, actionCancel, []string{"esc"}, "clear filter")

	reg(scopeData, actionUp, []string{"k", "up"}, "")
	reg(scopeData, actionDown, []string{"j", "down"}, "")
	reg(scopeData, actionNavigate, []string{"j/k"}, "scroll")
	reg(scopeData, actionReport, []string{"p"}, "pdf report")
	reg(scopeData, actionSummaryTab, []string{"1"}, "summary")
	reg(scopeData, actionTableTab, []string{"2"}, "table")
	reg(scopeData, actionNextPane, []string{"tab"}, "next pane")
	reg(scopeData, actionQuit, []string{"q", "ctrl+c"}, "quit")

	return r
}

// Register adds b to its scope. Keys already bound in the scope are skipped.
func (r *KeyRegistry) Register(b Binding) {
	if r == nil {
		return
	}
	scope := strings.TrimSpace(b.Scope)
	if scope == "" {
		return
	}
	keys := normalizeKeyList(b.Keys)
	if len(keys) == 0 {
		return
	}
	if _, ok := r.indexByScope[scope]; !ok {
		r.indexByScope[scope] = make(map[string]*Binding)
	}
	for _, k := range keys {
		if _, taken := r.indexByScope[scope][k]; taken {
			return
		}
	}
	cp := b
	cp.Keys = keys
	cp.Scope = scope
	r.bindingsByScope[scope] = append(r.bindingsByScope[scope], &cp)
	for _, k := range keys {
		r.indexByScope[scope][k] = &cp
	}
}

// Lookup resolves keyName in scope, falling back to the global scope.
func (r *KeyRegistry) Lookup(keyName, scope string) *Binding {
	if r == nil || keyName == "" {
		return nil
	}
	keyName = normalizeKeyName(keyName)
	if b := r.indexByScope[scope][keyName]; b != nil {
		return b
	}
	if scope != scopeGlobal {
		return r.indexByScope[scopeGlobal][keyName]
	}
	return nil
}

// HelpBindings returns the footer bindings for scope. Bindings without help
// text stay bound but are not shown.
func (r *KeyRegistry) HelpBindings(scope string) []key.Binding {
	if r == nil {
		return nil
	}
	items := r.bindingsByScope[scope]
	out := make([]key.Binding, 0, len(items))
	for _, b := range items {
		if b.Help == "" {
			continue
		}
		out = append(out, key.NewBinding(key.WithKeys(b.Keys...), key.WithHelp(b.Keys[0], b.Help)))
	}
	return out
}

func normalizeKeyList(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool)
	for _, k := range keys {
		n := normalizeKeyName(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func normalizeKeyName(k string) string {
	if k == " " {
		return "space"
	}
	trimmed := strings.TrimSpace(k)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) == 1 && trimmed[0] >= 'A' && trimmed[0] <= 'Z' {
		// single uppercase runes stay distinct from lowercase
		return trimmed
	}
	s := strings.ToLower(trimmed)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "control+", "ctrl+")
	s = strings.ReplaceAll(s, "return", "enter")
	return s
}
