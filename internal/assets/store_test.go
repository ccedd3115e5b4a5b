package assets

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/poitch/engine/internal/platformmsg"
	"github.com/poitch/engine/internal/testutil/testlog"
)

func buildBundle(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close bundle: %v", err)
	}
	return buf.Bytes()
}

func TestGetAsBuffer(t *testing.T) {
	testlog.Start(t)
	store, err := FromBytes(buildBundle(t, map[string]string{
		"fonts/main.ttf": "font-bytes",
		"images/bg.png":  "png-bytes",
	}))
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}

	data, ok := store.GetAsBuffer("fonts/main.ttf")
	if !ok || string(data) != "font-bytes" {
		t.Fatalf("hit got ok=%v data=%q", ok, data)
	}
	if _, ok := store.GetAsBuffer("missing.txt"); ok {
		t.Fatalf("miss reported as hit")
	}
}

func TestFromBytesRejectsEmptyAndGarbage(t *testing.T) {
	testlog.Start(t)
	if _, err := FromBytes(nil); !errors.Is(err, ErrEmptyBundle) {
		t.Fatalf("empty bundle err=%v", err)
	}
	if _, err := FromBytes([]byte("not a zip")); err == nil {
		t.Fatalf("garbage bundle accepted")
	}
}

func TestMessageHandlerHitAndMiss(t *testing.T) {
	testlog.Start(t)
	store, err := FromBytes(buildBundle(t, map[string]string{"app/config": "cfg"}))
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	handler := MessageHandler(store)

	var got []byte
	hit := &platformmsg.Message{
		Data:     []byte("app/config"),
		Response: platformmsg.NewResponseToken(func(data []byte) { got = data }),
	}
	if !handler(hit) || string(got) != "cfg" {
		t.Fatalf("hit handled=%v got=%q", true, got)
	}

	miss := &platformmsg.Message{
		Data:     []byte("nope"),
		Response: platformmsg.NewResponseToken(func(data []byte) { got = data }),
	}
	if !handler(miss) {
		t.Fatalf("miss must still be handled")
	}
	if got != nil {
		t.Fatalf("miss completion got=%q want empty", got)
	}

	// No response means no way to answer; decline so the router logs it.
	if handler(&platformmsg.Message{Data: []byte("app/config")}) {
		t.Fatalf("message without response must be declined")
	}
}
