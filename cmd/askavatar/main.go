// Command askavatar is a small terminal client for the avatarbot websocket.
// Each question (from -q or one per stdin line) is sent as a text frame, the
// reply is printed and the spoken audio is downloaded into -out.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"avatarbot/backend/internal/models"
	"avatarbot/backend/pkg/logger"

	"github.com/gorilla/websocket"
)

func main() {
	wsURL := flag.String("url", "ws://localhost:8000/ws", "avatarbot websocket URL")
	question := flag.String("q", "", "single question to ask; reads stdin lines when empty")
	outDir := flag.String("out", "./audio_samples", "directory for downloaded audio")
	flag.Parse()

	logConfig := logger.DefaultConfig()
	logConfig.JSON = false
	log := logger.New(logConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *wsURL, *question, *outDir, os.Stdin, os.Stdout); err != nil {
		log.LogError(err, "askavatar failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, wsURL, question, outDir string, in io.Reader, out io.Writer) error {
	base, err := httpBase(wsURL)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("error connecting to websocket: %w", err)
	}
	defer conn.Close()

	stopClose := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stopClose()

	stop := make(chan struct{})
	defer close(stop)
	questions := readQuestions(stop, question, in)

	for q := range questions {
		reply, err := ask(conn, q)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "avatar: %s\n", reply.Text)

		path, err := download(ctx, base+reply.AudioURL, outDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "audio:  %s\n", path)
	}

	return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readQuestions yields question, or each non-blank line of in when question
// is empty. Closing stop ends the feed early.
func readQuestions(stop <-chan struct{}, question string, in io.Reader) <-chan string {
	questions := make(chan string)
	go func() {
		defer close(questions)
		if question != "" {
			select {
			case questions <- question:
			case <-stop:
			}
			return
		}
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case questions <- line:
			case <-stop:
				return
			}
		}
	}()
	return questions
}

// ask sends one question and decodes whichever payload comes back
func ask(conn *websocket.Conn, question string) (*models.ResponsePayload, error) {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(question)); err != nil {
		return nil, fmt.Errorf("error sending question: %w", err)
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("error reading reply: %w", err)
	}

	var failure models.ErrorPayload
	if err := json.Unmarshal(raw, &failure); err == nil && failure.Error != "" {
		return nil, errors.New("server error: " + failure.Error)
	}

	var reply models.ResponsePayload
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("error decoding reply: %w", err)
	}
	return &reply, nil
}

// download saves the audio under a timestamped name, since the server
// reuses one file name for every reply
func download(ctx context.Context, audioURL, outDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error downloading audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error downloading audio: status %d", resp.StatusCode)
	}

	name := fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405.000"), filepath.Base(audioURL))
	path := filepath.Join(outDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return path, nil
}

// httpBase maps ws://host/ws to http://host
func httpBase(wsURL string) (string, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "", fmt.Errorf("invalid websocket URL: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("invalid websocket URL scheme %q", u.Scheme)
	}
	u.Path = ""
	u.RawQuery = ""
	return u.String(), nil
}
