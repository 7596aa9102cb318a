package midjourney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/httpclient"
	"github.com/kbukum/phrame/logger"
)

// Gateway opcodes.
const (
	opDispatch  = 0
	opHeartbeat = 1
	opIdentify  = 2
	opHello     = 10
)

const (
	interactionCommand   = 2
	interactionComponent = 3
	optionString         = 3
	componentButton      = 2
	errorEmbedColor      = 16711680
	discordEpochMillis   = 1420070400000
)

var (
	progressPattern = regexp.MustCompile(`\((\d+%)\)`)
	jobModePattern  = regexp.MustCompile(`\*\*Job Mode\*\*:\s*([^\n*]+)`)
)

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type discordMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Nonce     string `json:"nonce"`
	Flags     int    `json:"flags"`
	Author    struct {
		ID string `json:"id"`
	} `json:"author"`
	Attachments []struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	} `json:"attachments"`
	Embeds []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Color       int    `json:"color"`
	} `json:"embeds"`
	MessageReference *struct {
		MessageID string `json:"message_id"`
	} `json:"message_reference"`
}

func (m *discordMessage) attachmentURL() string {
	if len(m.Attachments) == 0 {
		return ""
	}
	return m.Attachments[0].URL
}

func (m *discordMessage) errorEmbed() string {
	for _, e := range m.Embeds {
		if e.Color == errorEmbedColor {
			return strings.TrimSpace(e.Title + " " + e.Description)
		}
	}
	return ""
}

func (m *discordMessage) toMessage() Message {
	msg := Message{ID: m.ID, Flags: m.Flags, Content: m.Content}
	if len(m.Attachments) > 0 {
		msg.URI = m.Attachments[0].URL
		msg.Hash = hashOf(m.Attachments[0].Filename)
	}
	return msg
}

// hashOf extracts the job hash from a Midjourney attachment name such as
// user_a_quiet_lake_0f1e2d3c.png.
func hashOf(filename string) string {
	base := strings.TrimSuffix(filename, path.Ext(filename))
	return base[strings.LastIndex(base, "_")+1:]
}

func progressOf(content string) string {
	if m := progressPattern.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

func parseJobMode(description string) string {
	if m := jobModePattern.FindStringSubmatch(description); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

type command struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	Version       string `json:"version"`
	Name          string `json:"name"`
	Type          int    `json:"type"`
}

type commandOption struct {
	Type  int    `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type commandData struct {
	Version            string          `json:"version"`
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Type               int             `json:"type"`
	Options            []commandOption `json:"options"`
	ApplicationCommand command         `json:"application_command"`
	Attachments        []any           `json:"attachments"`
}

type componentData struct {
	ComponentType int    `json:"component_type"`
	CustomID      string `json:"custom_id"`
}

type interaction struct {
	Type          int    `json:"type"`
	ApplicationID string `json:"application_id"`
	GuildID       string `json:"guild_id,omitempty"`
	ChannelID     string `json:"channel_id"`
	SessionID     string `json:"session_id"`
	Nonce         string `json:"nonce"`
	MessageID     string `json:"message_id,omitempty"`
	MessageFlags  *int   `json:"message_flags,omitempty"`
	Data          any    `json:"data"`
}

type waitResult struct {
	msg *discordMessage
	err error
}

type waiter struct {
	nonce    string
	msgID    string
	match    func(w *waiter, m *discordMessage, created bool) bool
	progress ProgressFunc
	done     chan waitResult
}

// DiscordSession drives the Midjourney bot through the Discord gateway and
// interactions API, acting as the configured user.
type DiscordSession struct {
	cfg    Config
	http   *httpclient.Adapter
	dialer *websocket.Dialer
	log    *logger.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	seq     atomic.Int64
	counter atomic.Int64

	mu        sync.Mutex
	sessionID string
	waiters   map[*waiter]struct{}
	commands  map[string]command
	readErr   error

	closed    chan struct{}
	closeOnce sync.Once
}

// NewDiscordSession creates an unconnected session.
func NewDiscordSession(cfg Config, log *logger.Logger, opts ...httpclient.Option) (*DiscordSession, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{
		Name:    "discord",
		BaseURL: cfg.APIURL,
		Timeout: 30 * time.Second,
		Auth:    httpclient.RawAuth(cfg.Token),
	}, opts...)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &DiscordSession{
		cfg:      cfg,
		http:     client,
		dialer:   websocket.DefaultDialer,
		log:      log,
		waiters:  make(map[*waiter]struct{}),
		commands: make(map[string]command),
		closed:   make(chan struct{}),
	}
	s.seq.Store(-1)
	return s, nil
}

// Connect dials the gateway, identifies and waits for READY.
func (s *DiscordSession) Connect(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.GatewayURL, nil)
	if err != nil {
		return errors.ConnectionFailed("discord gateway").WithCause(err)
	}
	s.conn = conn
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	hello, err := s.readPayload()
	if err != nil {
		return s.handshakeErr(ctx, err)
	}
	if hello.Op != opHello {
		return errors.ProviderFailed("midjourney", fmt.Sprintf("expected hello, got op %d", hello.Op))
	}
	var hb struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &hb); err != nil || hb.HeartbeatInterval <= 0 {
		return errors.ProviderFailed("midjourney", "invalid hello payload")
	}

	if err := s.send(opIdentify, map[string]any{
		"token":        s.cfg.Token,
		"capabilities": 16381,
		"properties":   map[string]string{"os": "linux", "browser": "Chrome", "device": ""},
		"compress":     false,
	}); err != nil {
		return s.handshakeErr(ctx, err)
	}

	for {
		p, err := s.readPayload()
		if err != nil {
			return s.handshakeErr(ctx, err)
		}
		if p.Op != opDispatch || p.T != "READY" {
			continue
		}
		var ready struct {
			SessionID string `json:"session_id"`
		}
		if err := json.Unmarshal(p.D, &ready); err != nil {
			return errors.ProviderFailed("midjourney", "invalid READY payload")
		}
		s.mu.Lock()
		s.sessionID = ready.SessionID
		s.mu.Unlock()
		break
	}

	if !stop() {
		return s.handshakeErr(ctx, ctx.Err())
	}
	go s.heartbeat(time.Duration(hb.HeartbeatInterval) * time.Millisecond)
	go s.readLoop()
	return nil
}

func (s *DiscordSession) handshakeErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errors.Timeout("discord connect").WithCause(ctx.Err())
	}
	return errors.ConnectionFailed("discord gateway").WithCause(err)
}

func (s *DiscordSession) readPayload() (gatewayPayload, error) {
	var p gatewayPayload
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, err
	}
	if p.S != nil {
		s.seq.Store(*p.S)
	}
	return p, nil
}

func (s *DiscordSession) send(op int, d any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(map[string]any{"op": op, "d": d})
}

func (s *DiscordSession) sendHeartbeat() error {
	var d any
	if seq := s.seq.Load(); seq >= 0 {
		d = seq
	}
	return s.send(opHeartbeat, d)
}

func (s *DiscordSession) heartbeat(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-t.C:
			if err := s.sendHeartbeat(); err != nil {
				return
			}
		}
	}
}

func (s *DiscordSession) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(err)
			return
		}
		var p gatewayPayload
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		if p.S != nil {
			s.seq.Store(*p.S)
		}
		switch p.Op {
		case opHeartbeat:
			_ = s.sendHeartbeat()
		case opDispatch:
			if p.T != "MESSAGE_CREATE" && p.T != "MESSAGE_UPDATE" {
				continue
			}
			var m discordMessage
			if err := json.Unmarshal(p.D, &m); err != nil {
				continue
			}
			s.dispatch(&m, p.T == "MESSAGE_CREATE")
		}
	}
}

func (s *DiscordSession) dispatch(m *discordMessage, created bool) {
	if m.ChannelID != s.cfg.ChannelID || m.Author.ID != s.cfg.ApplicationID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.waiters {
		if m.Nonce != "" && m.Nonce == w.nonce {
			w.msgID = m.ID
			if e := m.errorEmbed(); e != "" {
				s.finish(w, waitResult{err: errors.ProviderFailed("midjourney", e)})
				continue
			}
		}
		if w.match(w, m, created) {
			s.finish(w, waitResult{msg: m})
			continue
		}
		if !created && w.msgID != "" && m.ID == w.msgID && w.progress != nil {
			if p := progressOf(m.Content); p != "" {
				w.progress(m.attachmentURL(), p)
			}
		}
	}
}

// finish must be called with s.mu held.
func (s *DiscordSession) finish(w *waiter, r waitResult) {
	delete(s.waiters, w)
	w.done <- r
}

func (s *DiscordSession) fail(err error) {
	s.mu.Lock()
	if s.readErr == nil {
		s.readErr = err
	}
	s.mu.Unlock()
	s.shutdown()
}

func (s *DiscordSession) shutdown() {
	s.closeOnce.Do(func() { close(s.closed) })
}

func (s *DiscordSession) register(nonce string, progress ProgressFunc, match func(w *waiter, m *discordMessage, created bool) bool) *waiter {
	w := &waiter{nonce: nonce, match: match, progress: progress, done: make(chan waitResult, 1)}
	s.mu.Lock()
	s.waiters[w] = struct{}{}
	s.mu.Unlock()
	return w
}

func (s *DiscordSession) unregister(w *waiter) {
	s.mu.Lock()
	delete(s.waiters, w)
	s.mu.Unlock()
}

func (s *DiscordSession) wait(ctx context.Context, w *waiter, op string) (*discordMessage, error) {
	select {
	case r := <-w.done:
		return r.msg, r.err
	case <-ctx.Done():
		s.unregister(w)
		return nil, errors.Timeout(op).WithCause(ctx.Err())
	case <-s.closed:
		s.unregister(w)
		s.mu.Lock()
		err := s.readErr
		s.mu.Unlock()
		return nil, errors.ConnectionFailed("discord gateway").WithCause(err)
	}
}

// nonce returns a snowflake style id unique within the session.
func (s *DiscordSession) nonce() string {
	ms := time.Now().UnixMilli() - discordEpochMillis
	return strconv.FormatInt(ms<<22|(s.counter.Add(1)&0xfff), 10)
}

func (s *DiscordSession) command(ctx context.Context, name string) (command, error) {
	s.mu.Lock()
	cmd, ok := s.commands[name]
	s.mu.Unlock()
	if ok {
		return cmd, nil
	}

	resp, err := httpclient.Get[struct {
		Commands []command `json:"application_commands"`
	}](s.http, ctx, fmt.Sprintf("/channels/%s/application-commands/search", s.cfg.ChannelID),
		httpclient.WithQueryParam("type", "1"),
		httpclient.WithQueryParam("query", name),
		httpclient.WithQueryParam("limit", "1"),
		httpclient.WithQueryParam("include_applications", "true"),
	)
	if err != nil {
		return command{}, err
	}
	for _, c := range resp.Data.Commands {
		if c.ApplicationID == s.cfg.ApplicationID && c.Name == name {
			s.mu.Lock()
			s.commands[name] = c
			s.mu.Unlock()
			return c, nil
		}
	}
	return command{}, errors.NotFound("command", name)
}

func (s *DiscordSession) interact(ctx context.Context, typ int, nonce string, data any, msg *Message) error {
	s.mu.Lock()
	sessionID := s.sessionID
	s.mu.Unlock()
	body := interaction{
		Type:          typ,
		ApplicationID: s.cfg.ApplicationID,
		GuildID:       s.cfg.ServerID,
		ChannelID:     s.cfg.ChannelID,
		SessionID:     sessionID,
		Nonce:         nonce,
		Data:          data,
	}
	if msg != nil {
		body.MessageID = msg.ID
		body.MessageFlags = &msg.Flags
	}
	_, err := s.http.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/interactions", Body: body})
	return err
}

func (s *DiscordSession) runCommand(ctx context.Context, name string, options []commandOption, w *waiter) (*discordMessage, error) {
	cmd, err := s.command(ctx, name)
	if err != nil {
		s.unregister(w)
		return nil, err
	}
	if options == nil {
		options = []commandOption{}
	}
	data := commandData{
		Version:            cmd.Version,
		ID:                 cmd.ID,
		Name:               cmd.Name,
		Type:               cmd.Type,
		Options:            options,
		ApplicationCommand: cmd,
		Attachments:        []any{},
	}
	if err := s.interact(ctx, interactionCommand, w.nonce, data, nil); err != nil {
		s.unregister(w)
		return nil, err
	}
	return s.wait(ctx, w, name)
}

// Info runs /info and parses the job mode.
func (s *DiscordSession) Info(ctx context.Context) (Info, error) {
	w := s.register(s.nonce(), nil, func(w *waiter, m *discordMessage, _ bool) bool {
		return w.msgID != "" && m.ID == w.msgID && len(m.Embeds) > 0 && strings.Contains(m.Embeds[0].Description, "Job Mode")
	})
	m, err := s.runCommand(ctx, "info", nil, w)
	if err != nil {
		return Info{}, err
	}
	desc := m.Embeds[0].Description
	return Info{JobMode: parseJobMode(desc), Description: desc}, nil
}

// Imagine runs /imagine and returns the finished grid message.
func (s *DiscordSession) Imagine(ctx context.Context, prompt string, progress ProgressFunc) (Message, error) {
	subject := strings.TrimSpace(prompt)
	if i := strings.Index(subject, " --"); i >= 0 {
		subject = strings.TrimSpace(subject[:i])
	}
	w := s.register(s.nonce(), progress, func(_ *waiter, m *discordMessage, created bool) bool {
		return created && m.Nonce == "" && len(m.Attachments) > 0 &&
			strings.Contains(m.Content, subject) &&
			progressOf(m.Content) == "" && !strings.Contains(m.Content, "Image #")
	})
	m, err := s.runCommand(ctx, "imagine", []commandOption{{Type: optionString, Name: "prompt", Value: prompt}}, w)
	if err != nil {
		return Message{}, err
	}
	return m.toMessage(), nil
}

// Upscale presses the U<index> button of msg and returns the upscaled
// image message.
func (s *DiscordSession) Upscale(ctx context.Context, msg Message, index int, progress ProgressFunc) (Message, error) {
	marker := fmt.Sprintf("Image #%d", index)
	w := s.register(s.nonce(), progress, func(_ *waiter, m *discordMessage, created bool) bool {
		return created && m.MessageReference != nil && m.MessageReference.MessageID == msg.ID &&
			strings.Contains(m.Content, marker) && len(m.Attachments) > 0
	})
	data := componentData{
		ComponentType: componentButton,
		CustomID:      fmt.Sprintf("MJ::JOB::upsample::%d::%s", index, msg.Hash),
	}
	if err := s.interact(ctx, interactionComponent, w.nonce, data, &msg); err != nil {
		s.unregister(w)
		return Message{}, err
	}
	m, err := s.wait(ctx, w, "upscale")
	if err != nil {
		return Message{}, err
	}
	return m.toMessage(), nil
}

// Close ends the gateway connection. It is safe to call more than once.
func (s *DiscordSession) Close() error {
	s.shutdown()
	if s.conn == nil {
		return nil
	}
	s.writeMu.Lock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()
	return s.conn.Close()
}

var _ Session = (*DiscordSession)(nil)
