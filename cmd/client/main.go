package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr, name string

	cmd := &cobra.Command{
		Use:          "wirechat-client",
		Short:        "Interactive client for the wirechat relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name = strings.TrimSpace(name)
			if name == "" {
				return errors.New("--name is required")
			}
			return run(addr, name, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:1078", "relay address")
	cmd.Flags().StringVarP(&name, "name", "n", "", "client name")
	return cmd
}

func run(addr, name string, in io.Reader, out io.Writer) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()

	if err := proto.WriteRequest(conn, proto.Request{Command: proto.CommandInit, ClientName: name}); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Fprintf(out, "connected to %s as %s\n", addr, name)

	readErr := make(chan error, 1)
	go func() {
		dec := proto.NewDecoder(conn, 0)
		for {
			text, err := dec.NextReply()
			if err != nil {
				readErr <- err
				return
			}
			fmt.Fprintln(out, text)
		}
	}()

	stop := make(chan struct{})
	defer close(stop)
	lines, inputErr := scanLines(in, stop)

	for {
		select {
		case line := <-lines:
			req, err := proto.ParseLine(name, line)
			if errors.Is(err, proto.ErrEmptyLine) {
				continue
			}
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if err := proto.WriteRequest(conn, req); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			if req.Command == proto.CommandDisconnect {
				return closed(<-readErr)
			}
		case err := <-inputErr:
			// Input ended without DISCONNECT: the relay cleans up on EOF.
			_ = conn.Close()
			if connErr := closed(<-readErr); err == nil {
				err = connErr
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return nil
		case err := <-readErr:
			fmt.Fprintln(out, "connection closed by server")
			return closed(err)
		}
	}
}

// scanLines feeds input lines to a channel until in is exhausted or stop is
// closed. The scanner error, nil on a clean EOF, is sent last.
func scanLines(in io.Reader, stop <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func closed(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
