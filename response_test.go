package announce_test

import (
	"testing"

	"github.com/a11ykit/announce"
)

func TestCollectResponsesAllFields(t *testing.T) {
	rc := announce.NewResponseCollector()
	packet := &announce.ResponsePacket{
		Name:    "grab handle",
		Object:  "at left edge",
		Context: "in play area",
		Hint:    "use arrow keys",
	}

	got := rc.CollectResponses(packet)
	want := "grab handle, at left edge, in play area use arrow keys"
	if got != want {
		t.Fatalf("CollectResponses() = %q, want %q", got, want)
	}
}

func TestCollectResponsesGatedFields(t *testing.T) {
	rc := announce.NewResponseCollector()
	rc.ContextEnabled.Set(false)
	rc.HintEnabled.Set(false)

	packet := &announce.ResponsePacket{
		Name:    "grab handle",
		Object:  "at left edge",
		Context: "in play area",
		Hint:    "use arrow keys",
	}

	if got := rc.CollectResponses(packet); got != "grab handle, at left edge" {
		t.Fatalf("gated CollectResponses() = %q", got)
	}
}

func TestCollectResponsesIgnoreProperties(t *testing.T) {
	rc := announce.NewResponseCollector()
	rc.NameEnabled.Set(false)
	rc.ObjectEnabled.Set(false)
	rc.ContextEnabled.Set(false)
	rc.HintEnabled.Set(false)

	packet := &announce.ResponsePacket{
		Object:           "at left edge",
		Hint:             "use arrow keys",
		IgnoreProperties: true,
	}

	if got := rc.CollectResponses(packet); got != "at left edge use arrow keys" {
		t.Fatalf("IgnoreProperties CollectResponses() = %q", got)
	}
}

func TestCollectResponsesEmpty(t *testing.T) {
	rc := announce.NewResponseCollector()
	if got := rc.CollectResponses(&announce.ResponsePacket{}); got != "" {
		t.Fatalf("empty packet = %q, want empty", got)
	}

	rc.NameEnabled.Set(false)
	if got := rc.CollectResponses(&announce.ResponsePacket{Name: "only name"}); got != "" {
		t.Fatalf("fully gated packet = %q, want empty", got)
	}
}

func TestCollectResponsesSingleField(t *testing.T) {
	rc := announce.NewResponseCollector()
	if got := rc.CollectResponses(&announce.ResponsePacket{Hint: "press space"}); got != "press space" {
		t.Fatalf("single field = %q", got)
	}
}
