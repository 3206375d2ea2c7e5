package models

import "encoding/json"

// AjaxCommand is one chunk of a Drupal views AJAX response
type AjaxCommand struct {
	Command  string          `json:"command"`
	Method   string          `json:"method,omitempty"`
	Selector string          `json:"selector,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// HTML returns the payload when it is a JSON string, and "" for objects, null or no payload.
func (c AjaxCommand) HTML() string {
	if len(c.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(c.Data, &s); err != nil {
		return ""
	}
	return s
}
