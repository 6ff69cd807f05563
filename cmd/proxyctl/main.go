// proxyctl is a thin manual-testing client for the control socket: it
// frames one Request from a -type/-content pair, sends it, and prints
// every Response frame it reads back (interim PROCESSING frames included)
// until the terminal OK or ERROR. It is not a general CLI argument parser
// for the proxy's own configuration format (spec §1 Non-goals) — just
// enough to exercise the wire codec and dispatcher end to end by hand.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

func main() {
	var (
		socketPath string
		reqType    string
		content    string
		id         string
	)
	flag.StringVar(&socketPath, "socket", "/run/sozuctl/control.sock", "control socket path")
	flag.StringVar(&reqType, "type", "", "request type tag, e.g. ADD_CLUSTER")
	flag.StringVar(&content, "content", "{}", "request content as a JSON object")
	flag.StringVar(&id, "id", "proxyctl", "request id")
	flag.Parse()

	if err := run(socketPath, reqType, content, id); err != nil {
		fmt.Fprintf(os.Stderr, "proxyctl: %v\n", err)
		os.Exit(1)
	}
}

func run(socketPath, reqType, content, id string) error {
	if reqType == "" {
		return fmt.Errorf("-type is required")
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	req := wire.Request{ID: id, Type: wire.RequestType(reqType), Content: json.RawMessage(content)}
	payload, err := wire.EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	framer := wire.NewFramer(conn)
	if err := framer.WriteFrame(payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	for {
		raw, err := framer.ReadFrame()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		resp, err := wire.DecodeResponse(raw)
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		printResponse(resp)
		if resp.Status != wire.StatusProcessing {
			return nil
		}
	}
}

func printResponse(resp wire.Response) {
	out := struct {
		ID      string              `json:"id"`
		Status  wire.ResponseStatus `json:"status"`
		Message string              `json:"message,omitempty"`
		Content json.RawMessage     `json:"content,omitempty"`
	}{ID: resp.ID, Status: resp.Status, Message: resp.Message}

	if resp.Content != nil {
		if b, err := json.Marshal(resp.Content); err == nil {
			out.Content = b
		}
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "proxyctl: marshal response: %v\n", err)
		return
	}
	fmt.Println(string(b))
}
