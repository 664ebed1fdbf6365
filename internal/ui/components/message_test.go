// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/comply-tui/internal/model"
	"github.com/jeranaias/comply-tui/internal/ui/styles"
)

func TestRenderUserMessage(t *testing.T) {
	v := NewMessageView(styles.NewTheme(), false)
	msg := model.NewUserMessage("What are the retention rules?")
	out := v.Render(msg, 80)
	if !strings.Contains(out, "You") {
		t.Errorf("missing role label: %q", out)
	}
	if !strings.Contains(out, "retention rules") {
		t.Errorf("missing content: %q", out)
	}
}

func TestRenderMessageWithAttachment(t *testing.T) {
	v := NewMessageView(styles.NewTheme(), false)
	msg := model.NewUserMessage("Check this contract")
	msg.Attachment = &model.Attachment{
		Name: "contract.pdf",
		URL:  "http://127.0.0.1:5000/files/contract.pdf",
		Type: model.DocumentFile,
	}
	out := v.Render(msg, 80)
	if !strings.Contains(out, "contract.pdf") {
		t.Errorf("attachment chip missing: %q", out)
	}
}

func TestRenderErrorMessage(t *testing.T) {
	v := NewMessageView(styles.NewTheme(), false)
	msg := model.NewErrorMessage("Error contacting backend (stream).")
	out := v.Render(msg, 80)
	if !strings.Contains(out, "Error contacting backend (stream).") {
		t.Errorf("error text missing: %q", out)
	}
}

func TestRenderNilMessage(t *testing.T) {
	v := NewMessageView(styles.NewTheme(), false)
	if out := v.Render(nil, 80); out != "" {
		t.Errorf("nil message must render nothing, got %q", out)
	}
}
