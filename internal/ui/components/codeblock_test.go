// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
)

func TestParseCodeBlocksKeepsProse(t *testing.T) {
	text := "intro line\n```go\nfmt.Println(\"hi\")\n```\noutro line"
	out := ParseCodeBlocks(text, 80)

	if !strings.Contains(out, "intro line") {
		t.Error("prose before the fence was dropped")
	}
	if !strings.Contains(out, "outro line") {
		t.Error("prose after the fence was dropped")
	}
	if strings.Contains(out, "```") {
		t.Error("fence markers leaked into the output")
	}
}

func TestParseCodeBlocksUnclosedFence(t *testing.T) {
	text := "```python\nprint('partial')"
	out := ParseCodeBlocks(text, 80)

	if !strings.Contains(out, "partial") {
		t.Error("unclosed fence content was dropped")
	}
	if strings.Contains(out, "```") {
		t.Error("fence marker leaked into the output")
	}
}

func TestParseCodeBlocksNoFences(t *testing.T) {
	text := "plain prose only"
	if out := ParseCodeBlocks(text, 80); out != text {
		t.Errorf("text without fences changed: %q", out)
	}
}

func TestHighlightCodeKeepsTokens(t *testing.T) {
	// Highlighting may insert ANSI sequences between tokens, but the
	// token text itself must survive.
	out := highlightCode("SELECT 1", "definitely-not-a-language")
	if !strings.Contains(out, "SELECT") {
		t.Errorf("highlight lost the code: %q", out)
	}
}
