package contextwindow

import (
	"fmt"
	"strings"
)

// viewOrder is the fixed presentation order for model consumption. High-
// salience material (configuration, large pastes) goes first, and recent
// history last, so neither is buried in the middle of the prompt where
// retrieval quality suffers.
var viewOrder = []ItemType{TypeConfig, TypeUserPaste, TypeFile, TypeToolOutput, TypeHistory}

// sectionLabels name each group in the rendered view.
var sectionLabels = map[ItemType]string{
	TypeConfig:     "configuration",
	TypeUserPaste:  "pasted_content",
	TypeFile:       "files",
	TypeToolOutput: "tool_outputs",
	TypeHistory:    "recent_history",
}

// markupEscaper escapes characters reserved by the view markup so item
// content cannot break the wrapping structure.
var markupEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// BuildStructuredView renders the retained items grouped by type, each
// wrapped with its stable sequence index for citation.
func (m *Manager) BuildStructuredView() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return ""
	}

	var view strings.Builder
	for _, itemType := range viewOrder {
		var group []*Item
		for _, item := range m.items {
			if item.Type == itemType {
				group = append(group, item)
			}
		}
		if len(group) == 0 {
			continue
		}

		view.WriteString(fmt.Sprintf("<%s>\n", sectionLabels[itemType]))
		for _, item := range group {
			renderItem(&view, item)
		}
		view.WriteString(fmt.Sprintf("</%s>\n", sectionLabels[itemType]))
	}
	return view.String()
}

// renderItem writes one wrapped item: index, type tag, source label, and
// escaped content.
func renderItem(view *strings.Builder, item *Item) {
	source := item.Source
	if source == "" {
		source = "-"
	}
	view.WriteString(fmt.Sprintf("<item index=\"%d\" type=\"%s\" source=\"%s\">\n",
		item.SequenceIndex, item.Type, markupEscaper.Replace(source)))
	view.WriteString(markupEscaper.Replace(item.Content))
	view.WriteString("\n</item>\n")
}
