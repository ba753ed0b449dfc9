// Package ui provides the box-drawing primitives used to render suite
// outlines and result trees on the console.
package ui

import (
	"strings"
	"unicode/utf8"
)

const (
	TreeBranch     = "├── " // node with siblings below
	TreeLastBranch = "└── " // last node of its scope
	TreeContinue   = "│   " // ancestor has more siblings
	TreeIndent     = "    " // ancestor was last, no vertical line

	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// BuildTreePrefix generates the prefix for one node from its depth, its
// position within its scope, and whether each ancestor was the last child
// of its own scope. Depth zero nodes carry no prefix.
func BuildTreePrefix(depth int, isLast bool, parentIsLast []bool) string {
	if depth == 0 {
		return ""
	}

	var prefix strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(parentIsLast) && parentIsLast[i] {
			prefix.WriteString(TreeIndent)
		} else {
			prefix.WriteString(TreeContinue)
		}
	}
	if isLast {
		prefix.WriteString(TreeLastBranch)
	} else {
		prefix.WriteString(TreeBranch)
	}
	return prefix.String()
}

// BuildBoxHeader creates a box header with the given title and width.
func BuildBoxHeader(title string, width int) string {
	titleLen := utf8.RuneCountInString(title)
	if width < titleLen+4 {
		width = titleLen + 4
	}

	contentWidth := width - 4 // "│ " and " │"
	padding := contentWidth - titleLen

	header := BoxTopLeft + repeat(BoxHorizontal, width-2) + BoxTopRight + "\n"
	header += BoxVertical + " " + title + repeat(" ", padding+1) + BoxVertical + "\n"
	header += BoxTeeRight + repeat(BoxHorizontal, width-2) + BoxTeeLeft + "\n"
	return header
}

// BuildBoxFooter creates a box footer with the given width.
func BuildBoxFooter(width int) string {
	return BoxBottomLeft + repeat(BoxHorizontal, width-2) + BoxBottomRight + "\n"
}

// BuildBoxLine creates one content line within a box, truncating by runes
// when the content exceeds the box width.
func BuildBoxLine(content string, width int) string {
	contentLen := utf8.RuneCountInString(content)
	maxContentLen := width - 4

	if contentLen > maxContentLen {
		runes := []rune(content)
		content = string(runes[:maxContentLen-3]) + "..."
		contentLen = maxContentLen
	}

	padding := maxContentLen - contentLen
	return BoxVertical + " " + content + repeat(" ", padding+1) + BoxVertical + "\n"
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}
