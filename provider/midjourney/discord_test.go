package midjourney

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/phrame/logger"
)

const (
	testApp     = "936929561302675456"
	testChannel = "chan-1"
)

type fakeDiscord struct {
	t *testing.T

	mu           sync.Mutex
	conn         *websocket.Conn
	identify     map[string]any
	interactions []interaction
	rawData      []map[string]any
}

func (f *fakeDiscord) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/gateway", f.gateway)
	mux.HandleFunc("/api/v9/channels/"+testChannel+"/application-commands/search", f.search)
	mux.HandleFunc("/api/v9/interactions", f.interact)
	return mux
}

func (f *fakeDiscord) gateway(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		f.t.Error(err)
		return
	}
	_ = conn.WriteJSON(map[string]any{"op": opHello, "d": map[string]any{"heartbeat_interval": 45000}})

	var ident struct {
		Op int            `json:"op"`
		D  map[string]any `json:"d"`
	}
	if err := conn.ReadJSON(&ident); err != nil || ident.Op != opIdentify {
		f.t.Errorf("identify = %+v, %v", ident, err)
		return
	}
	f.mu.Lock()
	f.identify = ident.D
	f.conn = conn
	_ = conn.WriteJSON(map[string]any{"op": opDispatch, "s": 1, "t": "READY", "d": map[string]any{"session_id": "sess-1"}})
	f.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *fakeDiscord) search(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "user-token" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	q := r.URL.Query().Get("query")
	_ = json.NewEncoder(w).Encode(map[string]any{"application_commands": []command{
		{ID: "other", ApplicationID: "1", Version: "v0", Name: q, Type: 1},
		{ID: "cmd-" + q, ApplicationID: testApp, Version: "v1", Name: q, Type: 1},
	}})
}

func (f *fakeDiscord) emit(t string, m map[string]any) {
	m["channel_id"] = testChannel
	m["author"] = map[string]any{"id": testApp}
	f.mu.Lock()
	defer f.mu.Unlock()
	_ = f.conn.WriteJSON(map[string]any{"op": opDispatch, "t": t, "d": m})
}

func (f *fakeDiscord) interact(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	_ = json.NewDecoder(r.Body).Decode(&raw)
	b, _ := json.Marshal(raw)
	var in interaction
	_ = json.Unmarshal(b, &in)
	data, _ := raw["data"].(map[string]any)

	f.mu.Lock()
	f.interactions = append(f.interactions, in)
	f.rawData = append(f.rawData, data)
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)

	if in.Type == interactionComponent {
		customID, _ := data["custom_id"].(string)
		index := customID[len("MJ::JOB::upsample::"):][:1]
		f.emit("MESSAGE_CREATE", map[string]any{
			"id":                "u" + index,
			"content":           "**a lake, cinematic** - Image #" + index + " <@1>",
			"message_reference": map[string]any{"message_id": in.MessageID},
			"attachments":       []any{map[string]any{"url": "https://cdn/up" + index + ".png", "filename": "user_up_" + index + ".png"}},
		})
		return
	}

	switch data["name"] {
	case "info":
		f.emit("MESSAGE_CREATE", map[string]any{
			"id":     "i1",
			"nonce":  in.Nonce,
			"embeds": []any{map[string]any{"description": "**Subscription**: Standard\n**Job Mode**: Relaxed\n**Queued Jobs**: 0"}},
		})
	case "imagine":
		opts := data["options"].([]any)
		prompt := opts[0].(map[string]any)["value"].(string)
		subject := prompt[:strings.Index(prompt, " --")]
		switch subject {
		case "banned":
			f.emit("MESSAGE_CREATE", map[string]any{
				"id":     "e1",
				"nonce":  in.Nonce,
				"embeds": []any{map[string]any{"title": "Banned prompt", "color": errorEmbedColor}},
			})
		case "slow":
		default:
			f.emit("MESSAGE_CREATE", map[string]any{"id": "m1", "nonce": in.Nonce, "content": "**" + prompt + "** - <@1> (Waiting to start)"})
			f.emit("MESSAGE_UPDATE", map[string]any{
				"id":          "m1",
				"content":     "**" + prompt + "** - <@1> (50%) (fast)",
				"attachments": []any{map[string]any{"url": "https://cdn/preview.webp", "filename": "preview.webp"}},
			})
			f.emit("MESSAGE_CREATE", map[string]any{
				"id":          "m2",
				"flags":       0,
				"content":     "**" + prompt + "** - <@1> (fast)",
				"attachments": []any{map[string]any{"url": "https://cdn/grid.png", "filename": "user_a_lake_0f1e2d3c.png"}},
			})
		}
	}
}

func connectTestSession(t *testing.T) (*DiscordSession, *fakeDiscord) {
	t.Helper()
	f := &fakeDiscord{t: t}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	s, err := NewDiscordSession(Config{
		Token:      "user-token",
		ServerID:   "guild-1",
		ChannelID:  testChannel,
		GatewayURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/gateway",
		APIURL:     srv.URL + "/api/v9",
	}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	return s, f
}

func TestDiscordSession_InfoImagineUpscale(t *testing.T) {
	s, f := connectTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	f.mu.Lock()
	token := f.identify["token"]
	f.mu.Unlock()
	if token != "user-token" {
		t.Errorf("identify token = %v", token)
	}

	info, err := s.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.JobMode != "Relaxed" {
		t.Errorf("job mode = %q", info.JobMode)
	}

	var progress []string
	grid, err := s.Imagine(ctx, "a lake, cinematic --chaos 80", func(_, p string) { progress = append(progress, p) })
	if err != nil {
		t.Fatal(err)
	}
	if grid.ID != "m2" || grid.Hash != "0f1e2d3c" || grid.URI != "https://cdn/grid.png" {
		t.Errorf("grid = %+v", grid)
	}
	if len(progress) != 1 || progress[0] != "50%" {
		t.Errorf("progress = %v", progress)
	}

	up, err := s.Upscale(ctx, grid, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if up.URI != "https://cdn/up2.png" {
		t.Errorf("upscale = %+v", up)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.interactions) != 3 {
		t.Fatalf("interactions = %d", len(f.interactions))
	}
	first := f.interactions[0]
	if first.Type != interactionCommand || first.SessionID != "sess-1" || first.GuildID != "guild-1" || first.ApplicationID != testApp {
		t.Errorf("interaction = %+v", first)
	}
	if f.rawData[0]["id"] != "cmd-info" || f.rawData[1]["id"] != "cmd-imagine" {
		t.Errorf("command ids = %v, %v", f.rawData[0]["id"], f.rawData[1]["id"])
	}
	last := f.interactions[2]
	if last.MessageID != "m2" || f.rawData[2]["custom_id"] != "MJ::JOB::upsample::2::0f1e2d3c" {
		t.Errorf("upscale interaction = %+v %v", last, f.rawData[2])
	}
}

func TestDiscordSession_ErrorEmbed(t *testing.T) {
	s, _ := connectTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.Imagine(ctx, "banned --no text", nil)
	if err == nil || !strings.Contains(err.Error(), "Banned prompt") {
		t.Errorf("err = %v", err)
	}
}

func TestDiscordSession_ImagineTimeout(t *testing.T) {
	s, _ := connectTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := s.Imagine(ctx, "slow --no text", nil); err == nil {
		t.Fatal("expected timeout")
	}
	s.mu.Lock()
	n := len(s.waiters)
	s.mu.Unlock()
	if n != 0 {
		t.Errorf("waiters left = %d", n)
	}
}

func TestDiscordSession_CloseFailsPendingWait(t *testing.T) {
	s, _ := connectTestSession(t)
	done := make(chan error, 1)
	go func() {
		_, err := s.Imagine(context.Background(), "slow --no text", nil)
		done <- err
	}()
	time.Sleep(100 * time.Millisecond)
	_ = s.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wait not released by Close")
	}
}

func TestParsers(t *testing.T) {
	if got := hashOf("jake_a_quiet_lake_at_dawn_5b2c9e1a-77f0.png"); got != "5b2c9e1a-77f0" {
		t.Errorf("hashOf = %q", got)
	}
	if got := progressOf("**x** - <@1> (31%) (relaxed)"); got != "31%" {
		t.Errorf("progressOf = %q", got)
	}
	if got := progressOf("**x** - <@1> (fast)"); got != "" {
		t.Errorf("progressOf = %q", got)
	}
	if got := parseJobMode("**Job Mode**: Fast\n**Visibility Mode**: Public"); got != "Fast" {
		t.Errorf("parseJobMode = %q", got)
	}
	got := upscaleIndexes("3", nil)
	if len(got) != 3 || got[2] != 3 {
		t.Errorf("upscaleIndexes = %v", got)
	}
}
