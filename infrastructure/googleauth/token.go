package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultCallbackAddr is where Authorize listens for the OAuth redirect
const DefaultCallbackAddr = "localhost:8085"

// savingTokenSource writes refreshed tokens back to the token file
type savingTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	file string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		// Best effort: a failed save only costs a refresh next start
		_ = saveToken(s.file, token)
	}
	return token, nil
}

func newClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(nil, ts))
}

// loadToken loads a token from a file
func loadToken(file string) (*oauth2.Token, error) {
	if file == "" {
		return nil, fmt.Errorf("token file not configured")
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

// saveToken saves a token to a file
func saveToken(file string, token *oauth2.Token) error {
	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// BrowserOpener opens a URL for the user
type BrowserOpener func(url string)

// Authorize runs the installed-app OAuth flow for an OAuth client secret and
// saves the resulting token to tokenFile.
func Authorize(ctx context.Context, credentialsFile, tokenFile string, scopes []string, open BrowserOpener) error {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return fmt.Errorf("unable to read OAuth credentials file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return fmt.Errorf("unable to parse OAuth credentials: %w", err)
	}
	if open == nil {
		open = OpenBrowser
	}

	token, err := tokenFromWeb(ctx, config, DefaultCallbackAddr, open)
	if err != nil {
		return err
	}
	if err := saveToken(tokenFile, token); err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}
	return nil
}

// tokenFromWeb waits for the OAuth redirect on addr and exchanges the code
func tokenFromWeb(ctx context.Context, config *oauth2.Config, addr string, open BrowserOpener) (*oauth2.Token, error) {
	config.RedirectURL = "http://" + addr + "/callback"

	state := uuid.NewString()
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "invalid state", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			sendErr(errChan, fmt.Errorf("no code in callback"))
			fmt.Fprintf(w, "Error: No authorization code received")
			return
		}
		// only the first code is used
		select {
		case codeChan <- code:
		default:
		}
		fmt.Fprintf(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
	})
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			sendErr(errChan, err)
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Println()
	fmt.Println("Opening browser for Google authentication...")
	fmt.Println("If the browser doesn't open, please visit this URL:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println()
	open(authURL)

	var authCode string
	select {
	case authCode = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := config.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange auth code: %w", err)
	}
	return token, nil
}

// OpenBrowser opens a URL in the default browser
func OpenBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err == nil {
			cmd = exec.Command("xdg-open", url)
		} else if _, err := exec.LookPath("wslview"); err == nil {
			cmd = exec.Command("wslview", url)
		}
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	}

	if cmd != nil {
		cmd.Start()
	}
}
