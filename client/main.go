// Command client is an interactive websocket client for poking a running server.
package main

import (
	"bufio"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/phrasegame/game"
	"github.com/wfunc/phrasegame/network"
)

const usage = `commands:
  create <room> <name> [password] [roundTime]
  join <roomId> <name> [password]
  rejoin <roomId> <name>
  leave | list
  start | point | skip | next | end
  quit`

// send formats and sends an event to the server.
func send(c *websocket.Conn, event string, payload interface{}) error {
	data, err := network.Encode(event, payload)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func main() {
	host := flag.String("addr", "localhost:4174", "server host:port")
	sessionID := flag.String("session", uuid.NewString(), "session token used for rejoin")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	log.Printf("Connecting to %s (session %s)", u.String(), *sessionID)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- %s", message)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	log.Println(usage)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, ok := <-lines:
			if !ok || line == "quit" {
				return
			}
			event, payload, ok := parse(line, *sessionID)
			if !ok {
				log.Println(usage)
				continue
			}
			if err := send(c, event, payload); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> %s", event)
		}
	}
}

func parse(line, sessionID string) (string, interface{}, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, false
	}
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	switch fields[0] {
	case "create":
		if len(fields) < 3 {
			return "", nil, false
		}
		roundTime, _ := strconv.Atoi(arg(4))
		return network.EventRoomCreate, game.CreateRoomRequest{
			Name: arg(1), PlayerName: arg(2), Password: arg(3), RoundTime: roundTime, SessionID: sessionID,
		}, true
	case "join":
		if len(fields) < 3 {
			return "", nil, false
		}
		return network.EventRoomJoin, game.JoinRoomRequest{
			RoomID: arg(1), PlayerName: arg(2), Password: arg(3), SessionID: sessionID,
		}, true
	case "rejoin":
		if len(fields) < 3 {
			return "", nil, false
		}
		return network.EventRoomRejoin, game.RejoinRoomRequest{RoomID: arg(1), PlayerName: arg(2), SessionID: sessionID}, true
	case "leave":
		return network.EventRoomLeave, nil, true
	case "list":
		return network.EventRoomList, nil, true
	case "start":
		return network.EventGameStart, nil, true
	case "point":
		return network.EventGameValidatePoint, nil, true
	case "skip":
		return network.EventGameSkip, nil, true
	case "next":
		return network.EventGameNextRound, nil, true
	case "end":
		return network.EventGameEnd, nil, true
	}
	return "", nil, false
}
