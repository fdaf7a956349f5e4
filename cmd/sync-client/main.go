package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"riftbound/pkg/logging"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	token := flag.String("token", os.Getenv("RIFTBOUND_TOKEN"), "bearer token for private deck and collection events")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	flag.Parse()

	log := logging.NewZapLogger("sync-client", "info")
	defer func() { _ = log.Sync() }()

	for {
		if err := run(*addr, strings.TrimSpace(*token), *pretty, log); err != nil {
			log.Warn("disconnected", map[string]any{"addr": *addr, "error": err.Error()})
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr, token string, pretty bool, log logging.Logger) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Info("connected", map[string]any{"addr": addr, "authenticated": token != ""})

	if token != "" {
		msg, _ := json.Marshal(map[string]string{"type": "auth", "token": token})
		if _, err := conn.Write(append(msg, '\n')); err != nil {
			return fmt.Errorf("send auth: %w", err)
		}
	}

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		if !pretty {
			fmt.Println(string(line))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Println(string(line))
			continue
		}

		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}
