package main

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"graphexplorer/internal/graphclient"
)

// presentError prints err for a human. Transport failures get a hint about
// the likely cause.
func presentError(w io.Writer, err error) {
	pterm.Error.WithWriter(w).Println(err.Error())

	var ge *graphclient.Error
	if !errors.As(err, &ge) {
		return
	}
	if hint := hintFor(ge); hint != "" {
		pterm.Info.WithWriter(w).Println(hint)
	}
}

func hintFor(e *graphclient.Error) string {
	switch e.Kind {
	case graphclient.KindTransport:
		switch {
		case isTimeout(e):
			return "The graph API took too long to respond. Raise GRAPH_API_TIMEOUT or check the service load."
		case isDNS(e):
			return "The API host name could not be resolved. Check --base-url or GRAPH_API_BASE_URL."
		case isConnectionRefused(e):
			return "Nothing is listening at the API address. Start it with 'graphexplorer serve' or fix --base-url."
		case isTLS(e):
			return "The TLS handshake with the API failed. Check the certificate or use http:// for local services."
		}
	case graphclient.KindServer, graphclient.KindServerUnstructured:
		if e.StatusCode >= 500 {
			return "The graph service reported an internal problem. Check its logs and the database connection."
		}
	case graphclient.KindDecode:
		return "The API answered with something that is not JSON. Check that --base-url points at the graph API."
	}
	return ""
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded")
}

func isDNS(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isTLS(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "tls") || strings.Contains(msg, "certificate")
}
