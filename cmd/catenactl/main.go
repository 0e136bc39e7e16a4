// Command catenactl is a small interactive client for a running catenagw:
// it prints push updates off the /connect/ws bridge, or reads a single
// parameter's value over the HTTP/SSE transport. It does not write values.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("catenactl", pflag.ExitOnError)
	addr := fs.String("addr", "localhost:8921", "catenagw HTTP/SSE listen address")
	slot := fs.Uint32("slot", 0, "device slot")
	oid := fs.String("oid", "/gain", "parameter oid")
	watch := fs.Bool("watch", false, "stream push updates over /connect/ws instead of reading oid")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *watch {
		if err := runWatch(*addr); err != nil {
			fmt.Fprintln(os.Stderr, "watch:", err)
			os.Exit(1)
		}
		return
	}

	if err := runGetValue(*addr, *slot, *oid); err != nil {
		fmt.Fprintln(os.Stderr, "get:", err)
		os.Exit(1)
	}
}

func runGetValue(addr string, slot uint32, oid string) error {
	url := fmt.Sprintf("http://%s/devices/%s/value?oid=%s", addr, strconv.FormatUint(uint64(slot), 10), oid)
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}

func runWatch(addr string) error {
	url := fmt.Sprintf("ws://%s/connect/ws?detail_level=full", addr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "connected to %s, waiting for push updates (ctrl-c to quit)\n", url)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}
