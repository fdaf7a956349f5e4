package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

// app carries the persistent flags every subcommand shares.
type app struct {
	baseURL   string
	tokenPath string
	client    *http.Client
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{client: &http.Client{Timeout: 15 * time.Second}}

	root := &cobra.Command{
		Use:          "riftbound",
		Short:        "Command line client for the Riftbound deck builder",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.baseURL, "api", envOr("RIFTBOUND_API", defaultBaseURL), "API base URL")
	root.PersistentFlags().StringVar(&a.tokenPath, "token", defaultTokenPath(), "token file path")

	root.AddCommand(
		a.authCmd(),
		a.cardsCmd(),
		a.deckCmd(),
		a.draftCmd(),
		a.collectionCmd(),
		a.syncCmd(),
	)
	return root
}

func (a *app) do(ctx context.Context, method, path string, authed bool, payload, out any) error {
	token := ""
	if authed {
		var err error
		if token, err = a.token(); err != nil {
			return err
		}
	}
	return doJSON(ctx, a.client, method, strings.TrimRight(a.baseURL, "/")+path, token, payload, out)
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed (%d): %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.riftbound-token.json"
	}
	return filepath.Join(home, ".riftbound", "token.json")
}

func (a *app) saveToken(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(a.tokenPath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.tokenPath, data, 0o600)
}

func (a *app) token() (string, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return "", fmt.Errorf("token not found, please login: %w", err)
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	token := strings.TrimSpace(td.Token)
	if token == "" {
		return "", errors.New("token empty, please login")
	}
	return token, nil
}

func (a *app) clearToken() error {
	if err := os.Remove(a.tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: path}).String(), nil
}
