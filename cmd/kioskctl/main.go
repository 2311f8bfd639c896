// Package main provides a small client for the kiosk's local control
// channel: it injects button presses and reload signals over the same UDP
// socket the daemon listens on.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/museumtech/kioskd/internal/input"
)

var (
	app  = kingpin.New("kioskctl", "Control client for a running kioskd")
	addr = app.Flag("addr", "Control channel address").Default("127.0.0.1:9999").String()

	shortCmd  = app.Command("short", "Inject a short button press")
	longCmd   = app.Command("long", "Inject a long button press")
	subCmd    = app.Command("sub", "Inject a subtitle button press")
	reloadCmd = app.Command("reload", "Tell the daemon to reload its config file")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if v := os.Getenv("KIOSKD_CONTROL_ADDR"); v != "" && *addr == "127.0.0.1:9999" {
		*addr = v
	}

	var payload string
	switch command {
	case shortCmd.FullCommand():
		payload = "short"
	case longCmd.FullCommand():
		payload = "long"
	case subCmd.FullCommand():
		payload = "sub"
	case reloadCmd.FullCommand():
		payload = input.ConfigChangedMagic
	}

	if err := send(*addr, payload); err != nil {
		fmt.Fprintf(os.Stderr, "kioskctl: %v\n", err)
		os.Exit(1)
	}
}

func send(addr, payload string) error {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write([]byte(payload))
	return err
}
