package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/whisperbox/internal/api"
	"github.com/dmitrijs2005/whisperbox/internal/client/client"
	"github.com/dmitrijs2005/whisperbox/internal/client/config"
	"github.com/dmitrijs2005/whisperbox/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/whisperbox/internal/common"
	"github.com/dmitrijs2005/whisperbox/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fakeClient struct {
	mu     sync.Mutex
	token  string
	closed bool

	authResp *api.AuthResponse
	authErr  error

	users    []api.User
	sendResp *api.SendResponse
	sendErr  error
	sentTo   []string
	thread   []api.Message
	previews []api.Preview
	checkErr error
	pingErr  error

	// listen is invoked for every Listen call.
	listen  func(ctx context.Context, since metadata.Cursor, cb func(api.Delivery)) error
	cursors []metadata.Cursor
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeClient) currentToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) Register(ctx context.Context, req *api.RegisterRequest) (*api.AuthResponse, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	f.SetToken(f.authResp.Token)
	return f.authResp, nil
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*api.AuthResponse, error) {
	return f.Register(ctx, nil)
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeClient) SearchUsers(ctx context.Context, query string) ([]api.User, error) {
	return f.users, nil
}

func (f *fakeClient) Send(ctx context.Context, receiverID, text string) (*api.SendResponse, error) {
	f.mu.Lock()
	f.sentTo = append(f.sentTo, receiverID)
	f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return f.sendResp, nil
}

func (f *fakeClient) GetThread(ctx context.Context, partnerID string) ([]api.Message, error) {
	return f.thread, nil
}

func (f *fakeClient) GetPreviews(ctx context.Context) ([]api.Preview, error) {
	return f.previews, nil
}

func (f *fakeClient) CheckMirror(ctx context.Context, partnerID string) error { return f.checkErr }

func (f *fakeClient) Listen(ctx context.Context, since metadata.Cursor, cb func(api.Delivery)) error {
	f.mu.Lock()
	f.cursors = append(f.cursors, since)
	fn := f.listen
	f.mu.Unlock()
	if fn == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return fn(ctx, since, cb)
}

func (f *fakeClient) listenCalls() []metadata.Cursor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]metadata.Cursor(nil), f.cursors...)
}

func newTestApp(t *testing.T, fc *fakeClient) (*App, *syncBuffer, metadata.Repository) {
	t.Helper()
	db, err := client.OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := metadata.NewSQLiteRepository(db)
	out := &syncBuffer{}
	cfg := &config.Config{ReconnectInterval: 10 * time.Millisecond}
	a := newApp(cfg, fc, repo, bufio.NewReader(strings.NewReader("")), out, logging.Discard())
	t.Cleanup(a.stopListener)
	return a, out, repo
}

func stubPrompts(t *testing.T, answers ...string) {
	t.Helper()
	origText, origPw := getSimpleText, getPassword
	t.Cleanup(func() { getSimpleText, getPassword = origText, origPw })

	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		s := answers[0]
		answers = answers[1:]
		return s, nil
	}
	getPassword = func(io.Writer) ([]byte, error) { return []byte("secret"), nil }
}

var alice = &api.AuthResponse{UserID: "u-alice", Token: "tok-alice", DisplayName: "Alice Smith"}

func TestApp_RegisterStoresSessionAndListens(t *testing.T) {
	fc := &fakeClient{authResp: alice}
	a, out, repo := newTestApp(t, fc)
	stubPrompts(t, "alice@example.com", "Alice", "Smith")

	require.NoError(t, a.Register(context.Background()))

	s, err := repo.LoadSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-alice", s.UserID)
	assert.Equal(t, "alice@example.com", s.Email)
	assert.Equal(t, "tok-alice", s.Token)

	assert.True(t, a.isLoggedIn())
	assert.Contains(t, a.getStatus(), "Alice Smith")
	assert.Contains(t, out.String(), "Success!")
	require.Eventually(t, func() bool { return len(fc.listenCalls()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestApp_LoginFailure(t *testing.T) {
	fc := &fakeClient{authErr: fmt.Errorf("%w: invalid credentials", client.ErrUnauthorized)}
	a, out, repo := newTestApp(t, fc)
	stubPrompts(t, "alice@example.com")

	err := a.Login(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, a.isLoggedIn())
	assert.Contains(t, out.String(), "Login failed")

	_, err = repo.LoadSession(context.Background())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestApp_LoginServerUnavailable(t *testing.T) {
	fc := &fakeClient{authErr: client.ErrUnavailable}
	a, out, _ := newTestApp(t, fc)
	stubPrompts(t, "alice@example.com")

	require.Error(t, a.Login(context.Background()))
	assert.Contains(t, out.String(), "server unavailable")
}

func TestApp_ResumeRestoresToken(t *testing.T) {
	fc := &fakeClient{}
	a, _, repo := newTestApp(t, fc)
	require.NoError(t, repo.SaveSession(context.Background(),
		&metadata.Session{UserID: "u-alice", DisplayName: "Alice", Token: "stored"}))

	a.resume(context.Background())

	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "stored", fc.currentToken())
}

func TestApp_ResumeWithoutSession(t *testing.T) {
	fc := &fakeClient{}
	a, _, _ := newTestApp(t, fc)

	a.resume(context.Background())

	assert.False(t, a.isLoggedIn())
	assert.Empty(t, fc.listenCalls())
}

func TestApp_LogoutClearsSession(t *testing.T) {
	fc := &fakeClient{authResp: alice}
	a, _, repo := newTestApp(t, fc)
	stubPrompts(t, "alice@example.com")
	require.NoError(t, a.Login(context.Background()))

	require.NoError(t, a.Logout(context.Background()))

	assert.False(t, a.isLoggedIn())
	assert.Empty(t, fc.currentToken())
	_, err := repo.LoadSession(context.Background())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestApp_CommandsRequireLogin(t *testing.T) {
	fc := &fakeClient{}
	a, out, _ := newTestApp(t, fc)
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, "hi"))
	require.NoError(t, a.Chats(ctx))
	require.NoError(t, a.Logout(ctx))

	assert.Equal(t, 3, strings.Count(out.String(), "Not logged in"))
	assert.Empty(t, fc.sentTo)
}

func loggedIn(t *testing.T, fc *fakeClient) (*App, *syncBuffer) {
	t.Helper()
	fc.authResp = alice
	a, out, _ := newTestApp(t, fc)
	stubPrompts(t, "alice@example.com")
	require.NoError(t, a.Login(context.Background()))
	return a, out
}

func TestApp_SendWithoutConversation(t *testing.T) {
	fc := &fakeClient{sendErr: fmt.Errorf("%w: no recipient selected", client.ErrInvalidArgument)}
	a, out := loggedIn(t, fc)

	err := a.Send(context.Background(), "hello")
	require.ErrorIs(t, err, client.ErrInvalidArgument)
	assert.Equal(t, []string{""}, fc.sentTo)
	assert.Contains(t, out.String(), "no conversation open")
}

func TestApp_SendShowsSpamAndLatency(t *testing.T) {
	fc := &fakeClient{sendResp: &api.SendResponse{
		MessageID:       "m1",
		Timestamp:       time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		SpamScore:       0.93,
		Flagged:         true,
		RoundTripMicros: 250,
	}}
	a, out := loggedIn(t, fc)
	ctx := context.Background()

	require.NoError(t, a.Open(ctx, "u-bob"))
	require.NoError(t, a.Send(ctx, "win a prize"))

	assert.Equal(t, []string{"u-bob"}, fc.sentTo)
	s := out.String()
	assert.Contains(t, s, "spam probability 93%")
	assert.Contains(t, s, "looks like spam")
	assert.Contains(t, s, "250µs")
}

func TestApp_OpenPrintsHistoryWithNames(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	fc := &fakeClient{
		users: []api.User{{ID: "u-bob", Email: "bob@example.com", DisplayName: "Bob", ProfileInitial: "B"}},
		thread: []api.Message{
			{ID: "m1", SenderID: "u-alice", ReceiverID: "u-bob", Timestamp: ts, Text: "hi bob", Decrypted: true},
			{ID: "m2", SenderID: "u-bob", ReceiverID: "u-alice", Timestamp: ts.Add(time.Second), Text: "[Decryption failed]"},
		},
	}
	a, out := loggedIn(t, fc)
	ctx := context.Background()

	require.NoError(t, a.Contacts(ctx, "bob"))
	require.NoError(t, a.Open(ctx, "u-bob"))

	s := out.String()
	assert.Contains(t, s, "bob@example.com")
	assert.Contains(t, s, "conversation with Bob")
	assert.Contains(t, s, "Alice Smith: hi bob")
	assert.Contains(t, s, "Bob: [Decryption failed]")
	assert.Less(t, strings.Index(s, "hi bob"), strings.Index(s, "[Decryption failed]"))
	assert.Contains(t, a.getStatus(), "-> Bob")
}

func TestApp_HistoryNeedsConversation(t *testing.T) {
	fc := &fakeClient{}
	a, out := loggedIn(t, fc)

	require.NoError(t, a.History(context.Background()))
	require.NoError(t, a.Check(context.Background()))
	assert.Equal(t, 2, strings.Count(out.String(), "no conversation open"))
}

func TestApp_Chats(t *testing.T) {
	fc := &fakeClient{previews: []api.Preview{
		{PartnerID: "u-bob", PartnerName: "Bob", SenderID: "u-bob", Snippet: "see you...", Timestamp: time.Now()},
		{PartnerID: "u-carol", PartnerName: "Carol", SenderID: "u-alice", Snippet: "[Encrypted message]", Timestamp: time.Now()},
	}}
	a, out := loggedIn(t, fc)

	require.NoError(t, a.Chats(context.Background()))

	s := out.String()
	assert.Contains(t, s, "Bob: see you...")
	assert.Contains(t, s, "Alice Smith: [Encrypted message]")
	assert.Less(t, strings.Index(s, "u-bob"), strings.Index(s, "u-carol"))
}

func TestApp_Check(t *testing.T) {
	fc := &fakeClient{}
	a, out := loggedIn(t, fc)
	ctx := context.Background()
	require.NoError(t, a.Open(ctx, "u-bob"))

	require.NoError(t, a.Check(ctx))
	assert.Contains(t, out.String(), "copies of the conversation match")

	fc.checkErr = fmt.Errorf("%w: partial mirror write", client.ErrInconsistent)
	require.ErrorIs(t, a.Check(ctx), client.ErrInconsistent)
	assert.Contains(t, out.String(), "Conversation copies differ")
}

func TestApp_ListenerPrintsAndPersistsCursor(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	delivered := make(chan struct{})
	fc := &fakeClient{}
	fc.listen = func(ctx context.Context, since metadata.Cursor, cb func(api.Delivery)) error {
		if since.LastSeen.IsZero() {
			cb(api.Delivery{MessageID: "m1", SenderID: "u-bob", Text: "first", Timestamp: ts})
			cb(api.Delivery{MessageID: "m2", SenderID: "u-bob", Text: "second", Timestamp: ts})
			close(delivered)
			return client.ErrUnavailable
		}
		<-ctx.Done()
		return ctx.Err()
	}
	a, out := loggedIn(t, fc)

	<-delivered
	require.Eventually(t, func() bool { return len(fc.listenCalls()) >= 2 }, time.Second, 5*time.Millisecond)

	s := out.String()
	assert.Contains(t, s, "u-bob: first")
	assert.Contains(t, s, "u-bob: second")

	// the reconnect resumes after both tied deliveries
	second := fc.listenCalls()[1]
	assert.True(t, second.LastSeen.Equal(ts))
	assert.Equal(t, []string{"m1", "m2"}, second.SeenIDs)

	a.stopListener()
	c, err := a.repo.LoadCursor(context.Background(), "u-alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, c.SeenIDs)
}

func TestApp_ListenerStopsWhenUnauthorized(t *testing.T) {
	fc := &fakeClient{}
	fc.listen = func(ctx context.Context, since metadata.Cursor, cb func(api.Delivery)) error {
		return fmt.Errorf("%w: token expired", client.ErrUnauthorized)
	}
	_, out := loggedIn(t, fc)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Session expired")
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, fc.listenCalls(), 1)
}

func TestApp_OnlineStatus(t *testing.T) {
	fc := &fakeClient{}
	a, _, _ := newTestApp(t, fc)

	a.checkOnline(context.Background())
	assert.Equal(t, "(online)", a.getStatus())

	fc.pingErr = errors.New("down")
	a.checkOnline(context.Background())
	assert.Equal(t, "(offline)", a.getStatus())
}

func TestApp_CloseStopsEverything(t *testing.T) {
	fc := &fakeClient{authResp: alice}
	a, _, _ := newTestApp(t, fc)
	stubPrompts(t, "alice@example.com")
	require.NoError(t, a.Login(context.Background()))

	a.close()

	assert.True(t, fc.closed)
	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Nil(t, a.stopListen)
}
