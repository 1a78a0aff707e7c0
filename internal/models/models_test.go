package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLinkJSON_Resolved(t *testing.T) {
	out, err := json.Marshal(Link{ID: 7, SrcFileID: "a", TargetTitle: "Plan", TargetFileID: "b"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, `"resolved":true`) || strings.Contains(s, `"id"`) {
		t.Errorf("json = %s", s)
	}

	out, _ = json.Marshal(Link{TargetTitle: "Missing"})
	if !strings.Contains(string(out), `"resolved":false`) {
		t.Errorf("json = %s", out)
	}
}
