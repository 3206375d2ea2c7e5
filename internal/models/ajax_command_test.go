package models

import (
	"encoding/json"
	"testing"
)

func TestAjaxCommandHTML(t *testing.T) {
	raw := `[
		{"command":"settings","settings":{"ajaxPageState":{}},"merge":true},
		{"command":"insert","method":"replaceWith","selector":".js-view-dom-id-1","data":"<div class=\"view\"></div>"},
		{"command":"insert","method":"prepend","selector":null,"data":null},
		{"command":"update_build_id","old":"a","new":"b"}
	]`

	var commands []AjaxCommand
	if err := json.Unmarshal([]byte(raw), &commands); err != nil {
		t.Fatalf("Failed to unmarshal commands: %v", err)
	}

	if len(commands) != 4 {
		t.Fatalf("Expected 4 commands, got %d", len(commands))
	}

	if got := commands[0].HTML(); got != "" {
		t.Errorf("Expected settings command to carry no HTML, got %q", got)
	}

	if got := commands[1].HTML(); got != `<div class="view"></div>` {
		t.Errorf("Expected insert payload to be decoded, got %q", got)
	}

	if got := commands[2].HTML(); got != "" {
		t.Errorf("Expected null payload to carry no HTML, got %q", got)
	}

	if commands[3].Command != "update_build_id" {
		t.Errorf("Expected update_build_id command, got %q", commands[3].Command)
	}
}
