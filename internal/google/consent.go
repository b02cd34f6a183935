package google

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"gcalauto/internal/models"
)

// ConsentCompleter takes the user through the provider's consent screen and
// returns the authorization code. Implementations may set conf.RedirectURL.
type ConsentCompleter interface {
	AuthorizationCode(ctx context.Context, conf *oauth2.Config, state string) (string, error)
}

// LoopbackCompleter receives the OAuth redirect on a local HTTP listener.
type LoopbackCompleter struct {
	// Port to listen on, 0 for any free port.
	Port        int
	Timeout     time.Duration
	OpenBrowser bool
	Out         io.Writer
	Logger      *slog.Logger

	open func(target string) error
}

type callbackResult struct {
	code string
	err  error
}

// AuthorizationCode starts the listener, prints the consent URL and waits for the
// browser to be redirected back. It gives up after Timeout.
func (l *LoopbackCompleter) AuthorizationCode(ctx context.Context, conf *oauth2.Config, state string) (string, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", l.Port))
	if err != nil {
		return "", fmt.Errorf("failed to start local server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	conf.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		res := parseCallback(r.URL.Query(), state)
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>%s</p></body></html>", res.err)
		} else {
			fmt.Fprint(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
		}
		select {
		case results <- res:
		default:
		}
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("OAuth callback server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := AuthCodeURL(conf, state)
	out := l.Out
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintf(out, "Waiting for authorization on %s\n", conf.RedirectURL)
	fmt.Fprintf(out, "\nIf your browser doesn't open, visit this URL:\n%s\n\n", authURL)

	if l.OpenBrowser {
		open := l.open
		if open == nil {
			open = openBrowser
		}
		if err := open(authURL); err != nil {
			logger.Debug("Could not open browser", "error", err)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-results:
		return res.code, res.err
	case <-timer.C:
		return "", &models.UserCancelledError{Reason: fmt.Sprintf("no authorization received within %s", timeout)}
	case <-ctx.Done():
		return "", &models.UserCancelledError{Reason: ctx.Err().Error()}
	}
}

// parseCallback extracts the code from redirect query parameters.
func parseCallback(q url.Values, state string) callbackResult {
	if e := q.Get("error"); e != "" {
		if e == "access_denied" {
			return callbackResult{err: &models.UserCancelledError{Reason: "consent was denied"}}
		}
		return callbackResult{err: fmt.Errorf("authorization error: %s", e)}
	}
	if q.Get("state") != state {
		return callbackResult{err: &models.UserCancelledError{Reason: "callback state does not match this login attempt"}}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: errors.New("no authorization code received")}
	}
	return callbackResult{code: code}
}

// ManualCompleter is the headless flow: the user opens the URL on any machine and
// pastes back either the code or the whole redirected URL.
type ManualCompleter struct {
	In  io.Reader
	Out io.Writer
	// RedirectURL is used when conf has none. The page it points to need not load;
	// the user copies the URL from the address bar.
	RedirectURL string
}

// AuthorizationCode prints the consent URL and reads the answer from In.
func (m *ManualCompleter) AuthorizationCode(ctx context.Context, conf *oauth2.Config, state string) (string, error) {
	if conf.RedirectURL == "" {
		conf.RedirectURL = m.RedirectURL
		if conf.RedirectURL == "" {
			conf.RedirectURL = "http://127.0.0.1/callback"
		}
	}

	fmt.Fprintf(m.Out, "Go to the following link in your browser, approve access, then paste the "+
		"address you are redirected to (or just the code):\n%v\n\n", AuthCodeURL(conf, state))
	fmt.Fprint(m.Out, "Enter Authorization Code: ")

	line, err := bufio.NewReader(m.In).ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", &models.UserCancelledError{Reason: "no authorization code entered"}
	}
	if line == "" {
		return "", &models.UserCancelledError{Reason: "no authorization code entered"}
	}

	if !strings.Contains(line, "://") {
		return line, nil
	}
	u, err := url.Parse(line)
	if err != nil {
		return "", &models.UserCancelledError{Reason: "could not parse the pasted address"}
	}
	res := parseCallback(u.Query(), state)
	return res.code, res.err
}

func openBrowser(target string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{target}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", target}
	default:
		cmd = "xdg-open"
		args = []string{target}
	}

	return exec.Command(cmd, args...).Start()
}
