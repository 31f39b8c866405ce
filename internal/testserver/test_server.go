// Package testserver runs the full HTTP stack over an in-memory database for
// functional tests.
package testserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/pagesmith/internal/domain/activity"
	"github.com/rpggio/pagesmith/internal/editor"
	"github.com/rpggio/pagesmith/internal/mcp"
	"github.com/rpggio/pagesmith/internal/notify"
	"github.com/rpggio/pagesmith/internal/sqlite"
	"github.com/rpggio/pagesmith/internal/transport"
)

type Options struct {
	Token string
	// DSN defaults to a shared in-memory database named after the test.
	DSN       string
	Notifier  notify.Notifier
	Generator editor.Generator
}

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Editor *editor.Controller
	Token  string
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	dsn := opts.DSN
	if dsn == "" {
		dsn = MemoryDSN(t)
	}
	dbOpts := []sqlite.Option{}
	if opts.Notifier != nil {
		dbOpts = append(dbOpts, sqlite.WithNotifier(opts.Notifier))
	}
	db, err := sqlite.New(dsn, dbOpts...)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	ed := editor.New(editor.Config{
		Users:        sqlite.NewUserRepository(db),
		Projects:     sqlite.NewProjectRepository(db),
		Pages:        sqlite.NewPageRepository(db),
		Activity:     activity.NewService(sqlite.NewActivityRepository(db), nil),
		Generator:    opts.Generator,
		WriteTimeout: 5 * time.Second,
	})

	mcpServer := mcp.NewServer(mcp.Config{Editor: ed})
	router := transport.NewServer(transport.Options{
		MCP: sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
		),
		RPC:   mcp.NewHandler(ed, nil),
		Token: opts.Token,
	})
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		_ = ed.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server: server,
		DB:     db,
		Editor: ed,
		Token:  opts.Token,
	}
}

// MemoryDSN names a shared-cache in-memory database unique to t. Every
// connection opened with it sees the same data.
func MemoryDSN(t *testing.T) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
}

// HTTPClient returns a client that sends the server's bearer token.
func (ts *TestServer) HTTPClient() *http.Client {
	return &http.Client{Transport: bearerTransport{token: ts.Token, next: http.DefaultTransport}}
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (b bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if b.token == "" {
		return b.next.RoundTrip(r)
	}
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(r)
}
