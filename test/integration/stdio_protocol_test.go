package integration_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func serverBinary(t *testing.T) string {
	t.Helper()
	for _, path := range []string{"./bin/pagesmith", "../../bin/pagesmith"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("Server binary not found. Run 'go build -o bin/pagesmith ./cmd/server' first.")
	return ""
}

func stdioCommand(ctx context.Context, binaryPath string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = append(os.Environ(),
		"PAGESMITH_CONFIG_PATH=",
		"PAGESMITH_TRANSPORT_MODE=stdio",
		"PAGESMITH_DB_PATH=:memory:",
		"PAGESMITH_REDIS_URL=",
		"PAGESMITH_METRICS_ENABLED=false",
	)
	return cmd
}

// TestStdioProtocolCompliance drives the built server over stdio with the
// SDK client.
func TestStdioProtocolCompliance(t *testing.T) {
	binaryPath := serverBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: stdioCommand(ctx, binaryPath)}, nil)
	require.NoError(t, err, "Failed to connect to server")
	defer session.Close()

	t.Run("ServerInfo", func(t *testing.T) {
		initResult := session.InitializeResult()
		require.NotNil(t, initResult)
		require.NotNil(t, initResult.ServerInfo)
		require.Equal(t, "pagesmith", initResult.ServerInfo.Name)
		require.NotEmpty(t, initResult.Instructions)
	})

	t.Run("ListTools", func(t *testing.T) {
		tools, err := session.ListTools(ctx, nil)
		require.NoError(t, err, "tools/list failed")

		toolNames := make(map[string]bool)
		for _, tool := range tools.Tools {
			toolNames[tool.Name] = true
		}
		for _, name := range []string{
			"sign_in",
			"create_project",
			"create_page",
			"add_component",
			"render_page",
			"generate_site",
			"retry_writes",
		} {
			require.True(t, toolNames[name], "Missing expected tool: %s", name)
		}
	})

	text := func(t *testing.T, result *sdkmcp.CallToolResult) string {
		t.Helper()
		require.NotEmpty(t, result.Content)
		content, ok := result.Content[0].(*sdkmcp.TextContent)
		require.True(t, ok, "expected text content")
		return content.Text
	}

	t.Run("SignedOutCallIsRejected", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "list_projects"})
		require.NoError(t, err)
		require.True(t, result.IsError)
		require.Contains(t, text(t, result), "UNAUTHENTICATED")
	})

	var projectID string
	t.Run("CreateProject", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "sign_in",
			Arguments: map[string]any{"id": "u1", "email": "ada@example.com", "name": "Ada", "provider": "github"},
		})
		require.NoError(t, err)
		require.False(t, result.IsError, "sign_in returned error: %s", text(t, result))

		result, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
			Name:      "create_project",
			Arguments: map[string]any{"name": "Test Project", "wait": true},
		})
		require.NoError(t, err, "tools/call create_project failed")
		require.False(t, result.IsError, "create_project returned error: %s", text(t, result))

		var resp struct {
			Project struct {
				ID string `json:"id"`
			} `json:"project"`
			Write struct {
				Durable bool `json:"durable"`
			} `json:"write"`
		}
		require.NoError(t, json.Unmarshal([]byte(text(t, result)), &resp))
		require.NotEmpty(t, resp.Project.ID)
		require.True(t, resp.Write.Durable)
		projectID = resp.Project.ID
	})

	t.Run("ListProjects", func(t *testing.T) {
		result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: "list_projects"})
		require.NoError(t, err, "tools/call list_projects failed")
		require.False(t, result.IsError)
		require.Contains(t, text(t, result), projectID)
	})
}

// TestStdioProtocol_StdoutHygiene checks that stdout carries only JSON-RPC
// messages and logs go to stderr.
func TestStdioProtocol_StdoutHygiene(t *testing.T) {
	binaryPath := serverBinary(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := stdioCommand(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	require.NoError(t, err)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	stderr, err := cmd.StderrPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())

	initReq := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}`
	_, err = stdin.Write([]byte(initReq + "\n"))
	require.NoError(t, err)

	done := make(chan struct{})
	var stdoutBytes, stderrBytes []byte
	go func() {
		stdoutBytes, _ = readWithTimeout(stdout, 2*time.Second)
		stderrBytes, _ = readWithTimeout(stderr, 2*time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("Timeout waiting for server response")
	}

	_ = stdin.Close()
	_ = cmd.Process.Kill()
	_ = cmd.Wait()

	require.NotEmpty(t, stdoutBytes, "Server produced no stdout output")
	require.Equal(t, byte('{'), stdoutBytes[0], "stdout should start with a JSON-RPC message, got: %q", string(stdoutBytes[:min(50, len(stdoutBytes))]))
	t.Logf("Stderr output (logs): %s", string(stderrBytes))
}

func readWithTimeout(r interface{ Read([]byte) (int, error) }, timeout time.Duration) ([]byte, error) {
	result := make([]byte, 0, 4096)
	buf := make([]byte, 1024)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		done := make(chan struct{})
		var n int
		var err error
		go func() {
			n, err = r.Read(buf)
			close(done)
		}()

		select {
		case <-done:
			if n > 0 {
				result = append(result, buf[:n]...)
			}
			if err != nil {
				return result, err
			}
		case <-time.After(100 * time.Millisecond):
			if len(result) > 0 {
				return result, nil
			}
		}
	}
	return result, nil
}
