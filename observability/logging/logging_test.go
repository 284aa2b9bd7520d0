package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewRenamesKeysAndMasksSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Service: "tokenflowd", Env: "test", Level: "debug"})
	logger.Debug("issued", "jwtToken", "abc.def.ghi", "caller", "tf1xyz")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["message"] != "issued" || line["severity"] != "DEBUG" {
		t.Fatalf("unexpected envelope: %v", line)
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", line)
	}
	if line["service"] != "tokenflowd" || line["env"] != "test" {
		t.Fatalf("missing service attributes: %v", line)
	}
	if line["jwtToken"] != RedactedValue {
		t.Fatalf("expected token to be masked, got %v", line["jwtToken"])
	}
	if line["caller"] != "tf1xyz" {
		t.Fatalf("caller should not be masked: %v", line["caller"])
	}
}

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "warn"})
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info line to be filtered, got %s", buf.String())
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("Authorization", "Bearer x"); got.Value.String() != RedactedValue {
		t.Fatalf("expected masked authorization, got %v", got)
	}
	if got := MaskField("secret", " "); got.Value.String() != " " {
		t.Fatalf("empty values stay unchanged, got %v", got)
	}
	if got := MaskField("method", "tf_transfer"); got.Value.String() != "tf_transfer" {
		t.Fatalf("unexpected mask: %v", got)
	}
}
