// Package contextwindow keeps the material backing a conversation under a
// model's context budget. Items are tagged by type and priority; when the
// working budget fills, tool output is compressed in place and then
// lower-priority items are evicted, while configuration content is never
// discarded.
package contextwindow

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quillhq/quill/pkg/llm/tokenizer"
	"github.com/quillhq/quill/pkg/logging"
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("contextwindow")
	if err != nil {
		debugLog.Warnf("Failed to initialize contextwindow logger, using stderr fallback: %v", err)
	}
}

const (
	// Budget split over the model's max context: 30% is reserved for
	// future history growth and 10% for the model's own output. The
	// remaining 60% is the working budget for retained items.
	workingBudgetPercent = 60

	// softThresholdPercent polices the working budget: reclamation
	// triggers before hard overflow, leaving headroom for the incoming
	// item.
	softThresholdPercent = 90

	// protectedHistoryCount and protectedFileCount bound the
	// most-recently-accessed items that survive any budget pressure.
	protectedHistoryCount = 10
	protectedFileCount    = 5

	// compressKeepChars is the head and tail window kept when a tool
	// output is compressed.
	compressKeepChars = 200
)

// Manager is the bounded collection of conversation fragments. All methods
// are safe for use by the single loop that owns the manager alongside
// display reads.
type Manager struct {
	items            []*Item
	maxContextTokens int
	estimator        tokenizer.Estimator
	nextSequence     int
	now              func() time.Time
	mu               sync.Mutex
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithEstimator sets the token estimator. Defaults to the tiktoken-backed
// tokenizer, falling back to the 4-chars-per-token heuristic when the
// encoding tables cannot be loaded.
func WithEstimator(estimator tokenizer.Estimator) ManagerOption {
	return func(m *Manager) {
		m.estimator = estimator
	}
}

// WithManagerClock overrides the clock used for LastAccessed stamps.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager budgeted against the given model context
// size.
func NewManager(maxContextTokens int, opts ...ManagerOption) *Manager {
	m := &Manager{
		maxContextTokens: maxContextTokens,
		estimator:        tokenizer.Default(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddOption configures a single Add call.
type AddOption func(*Item)

// WithSource labels the item with its origin (file path, tool name).
func WithSource(source string) AddOption {
	return func(item *Item) {
		item.Source = source
	}
}

// WithPriority overrides the type's default retention priority.
func WithPriority(priority int) AddOption {
	return func(item *Item) {
		item.Priority = priority
	}
}

// Add retains a new fragment, reclaiming budget first if the addition
// would push usage past the soft threshold.
func (m *Manager) Add(content string, itemType ItemType, opts ...AddOption) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &Item{
		Type:            itemType,
		Priority:        defaultPriority[itemType],
		EstimatedTokens: m.estimator.CountTokens(content),
		LastAccessed:    m.now(),
		Content:         content,
	}
	for _, opt := range opts {
		opt(item)
	}

	overBudget := m.usageLocked()+item.EstimatedTokens > m.softThreshold()

	item.SequenceIndex = m.nextSequence
	m.nextSequence++
	m.items = append(m.items, item)

	if overBudget {
		m.reclaim(item)
	}
}

// ReplaceSource removes every retained item of the given type and source
// and adds fresh content in its place, so a rewritten configuration (a new
// system prompt, say) does not leave its stale predecessor in the window.
func (m *Manager) ReplaceSource(itemType ItemType, source, content string) {
	m.mu.Lock()
	kept := m.items[:0]
	for _, item := range m.items {
		if item.Type == itemType && item.Source == source {
			continue
		}
		kept = append(kept, item)
	}
	m.items = kept
	m.resequence()
	m.mu.Unlock()

	m.Add(content, itemType, WithSource(source))
}

// CurrentUsage returns the estimated tokens currently retained.
func (m *Manager) CurrentUsage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usageLocked()
}

// WorkingBudget returns the token budget available to retained items.
func (m *Manager) WorkingBudget() int {
	return m.maxContextTokens * workingBudgetPercent / 100
}

// MaxContextTokens returns the model context size the manager was budgeted
// against.
func (m *Manager) MaxContextTokens() int {
	return m.maxContextTokens
}

// Items returns a copy of the live item slice, in sequence order.
func (m *Manager) Items() []*Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]*Item, len(m.items))
	copy(items, m.items)
	return items
}

// Clear removes retained items. With preserveConfig, configuration content
// survives and the collection is re-sequenced; this backs user-triggered
// compaction, as opposed to automatic eviction.
func (m *Manager) Clear(preserveConfig bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !preserveConfig {
		m.items = nil
		m.resequence()
		return
	}

	kept := m.items[:0]
	for _, item := range m.items {
		if item.Type == TypeConfig {
			kept = append(kept, item)
		}
	}
	m.items = kept
	m.resequence()
}

// softThreshold is the usage level at which reclamation triggers.
func (m *Manager) softThreshold() int {
	return m.WorkingBudget() * softThresholdPercent / 100
}

func (m *Manager) usageLocked() int {
	total := 0
	for _, item := range m.items {
		total += item.EstimatedTokens
	}
	return total
}

// reclaim brings usage back under the soft threshold after an addition:
// compress unprotected tool output first (the incoming item included),
// then evict unprotected items lowest priority first. The incoming item is
// never evicted. Caller holds m.mu.
func (m *Manager) reclaim(incoming *Item) {
	target := m.softThreshold()

	protected := m.protectedSet()

	// Pass 1: lossy in-place compression of tool output.
	for _, item := range m.items {
		if m.usageLocked() <= target {
			return
		}
		if item.Type != TypeToolOutput || item.compressed || protected[item] {
			continue
		}
		m.compress(item)
	}

	if m.usageLocked() <= target {
		return
	}

	// Pass 2: evict unprotected items, lowest priority first, oldest
	// access first within a priority.
	candidates := make([]*Item, 0, len(m.items))
	for _, item := range m.items {
		if !protected[item] && item != incoming {
			candidates = append(candidates, item)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	evicted := make(map[*Item]bool)
	usage := m.usageLocked()
	for _, item := range candidates {
		if usage <= target {
			break
		}
		evicted[item] = true
		usage -= item.EstimatedTokens
	}
	if len(evicted) == 0 {
		return
	}

	kept := m.items[:0]
	for _, item := range m.items {
		if !evicted[item] {
			kept = append(kept, item)
		}
	}
	m.items = kept
	m.resequence()

	debugLog.Debugf("evicted %d items, usage now %d/%d", len(evicted), m.usageLocked(), m.WorkingBudget())
}

// protectedSet returns the items that survive regardless of budget
// pressure: all config, the most recently accessed history, and the most
// recently accessed files. Caller holds m.mu.
func (m *Manager) protectedSet() map[*Item]bool {
	protected := make(map[*Item]bool)

	var history, files []*Item
	for _, item := range m.items {
		switch item.Type {
		case TypeConfig:
			protected[item] = true
		case TypeHistory:
			history = append(history, item)
		case TypeFile:
			files = append(files, item)
		}
	}

	byRecency := func(items []*Item) {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].LastAccessed.After(items[j].LastAccessed)
		})
	}

	byRecency(history)
	for i, item := range history {
		if i >= protectedHistoryCount {
			break
		}
		protected[item] = true
	}

	byRecency(files)
	for i, item := range files {
		if i >= protectedFileCount {
			break
		}
		protected[item] = true
	}

	return protected
}

// compress truncates an item to a head/tail window with an explicit marker
// for the removed middle, recomputing the token estimate. Compression is
// lossy and irreversible.
func (m *Manager) compress(item *Item) {
	item.compressed = true
	if len(item.Content) <= 2*compressKeepChars {
		return
	}

	removed := len(item.Content) - 2*compressKeepChars
	item.Content = fmt.Sprintf("%s\n[... %d characters compressed ...]\n%s",
		item.Content[:compressKeepChars],
		removed,
		item.Content[len(item.Content)-compressKeepChars:])
	item.EstimatedTokens = m.estimator.CountTokens(item.Content)
}

// resequence renumbers SequenceIndex across the surviving collection,
// closing gaps. Caller holds m.mu.
func (m *Manager) resequence() {
	for i, item := range m.items {
		item.SequenceIndex = i
	}
	m.nextSequence = len(m.items)
}

// Stats summarizes retention for display.
type Stats struct {
	// ItemCount is the number of live items per type.
	ItemCount map[ItemType]int

	// Tokens is the estimated tokens retained per type.
	Tokens map[ItemType]int

	// Usage is the total estimated tokens retained.
	Usage int

	// WorkingBudget is the budget available to retained items.
	WorkingBudget int
}

// GetStats returns a point-in-time retention summary.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		ItemCount:     make(map[ItemType]int),
		Tokens:        make(map[ItemType]int),
		WorkingBudget: m.WorkingBudget(),
	}
	for _, item := range m.items {
		stats.ItemCount[item.Type]++
		stats.Tokens[item.Type] += item.EstimatedTokens
		stats.Usage += item.EstimatedTokens
	}
	return stats
}
