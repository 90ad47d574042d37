// Command swapwatch tails the swap notification stream for a user. It is a
// development tool for watching events flow while exercising the API, and
// doubles as a light soak test with -clients > 1.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

var (
	connected atomic.Int64
	received  atomic.Int64
	failures  atomic.Int64
)

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	email := flag.String("email", "admin@threadswap.local", "User email")
	password := flag.String("password", "password123", "User password")
	clients := flag.Int("clients", 1, "Number of concurrent watchers")
	flag.Parse()

	token, err := login(*host, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	log.Printf("logged in, starting %d watcher(s) against %s", *clients, *host)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go watch(*host, token, i, stop, &wg)
		time.Sleep(25 * time.Millisecond)
	}

	<-interrupt
	log.Println("shutting down watchers...")
	close(stop)
	wg.Wait()

	log.Printf("connected=%d received=%d failures=%d",
		connected.Load(), received.Load(), failures.Load())
}

func login(host, email, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	resp, err := http.Post(fmt.Sprintf("http://%s/api/auth/login", host),
		"application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("empty token in login response")
	}
	return out.Token, nil
}

func watch(host, token string, id int, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	u := url.URL{Scheme: "ws", Host: host, Path: "/ws", RawQuery: "token=" + url.QueryEscape(token)}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		failures.Add(1)
		log.Printf("watcher %d: dial failed: %v", id, err)
		return
	}
	defer func() { _ = conn.Close() }()
	connected.Add(1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received.Add(1)
			printEvent(id, msg)
		}
	}()

	select {
	case <-stop:
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
}

func printEvent(id int, msg []byte) {
	var event struct {
		Type    string `json:"type"`
		Payload struct {
			SwapID uint   `json:"swap_id"`
			Status string `json:"status"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		log.Printf("watcher %d: %s", id, msg)
		return
	}
	log.Printf("watcher %d: %s swap=%d status=%s", id, event.Type, event.Payload.SwapID, event.Payload.Status)
}
