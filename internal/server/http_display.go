package server

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"atsengine/internal/utils"
)

var endpointTable = [][2]string{
	{"GET  /health", "liveness, model and storage health"},
	{"GET  /stats", "breaker, limiter and cache counters"},
	{"GET  /templates", "template IDs accepted by /improve"},
	{"POST /analyze", "score résumé text"},
	{"POST /upload", "score a .pdf, .docx or .txt upload"},
	{"POST /improve", "rewrite and rescore a résumé"},
}

// displayServerInfo prints the startup banner to stdout.
func (s *Server) displayServerInfo() {
	s.writeBanner(os.Stdout)
}

func (s *Server) writeBanner(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Endpoints:")
	for _, e := range endpointTable {
		fmt.Fprintf(tw, "  %s\t%s\n", e[0], e[1])
	}
	_ = tw.Flush()

	if n := len(s.APIKeys); n > 0 {
		fmt.Fprintf(out, "Auth: X-API-Key required on POST routes (%d keys)\n", n)
	} else {
		fmt.Fprintln(out, "Auth: off, POST routes are open to anyone who can reach this port")
	}
	fmt.Fprintf(out, "Body limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))

	if rl := s.RateLimit; rl != nil && rl.Enabled {
		var keys []string
		if rl.ByAPIKey {
			keys = append(keys, "api key")
		}
		if rl.ByIP {
			keys = append(keys, "client ip")
		}
		fmt.Fprintf(out, "Rate limit: %d/min, burst %d, keyed by %s\n",
			rl.RequestsPerMin, rl.BurstCapacity, strings.Join(keys, " then "))
	} else {
		fmt.Fprintln(out, "Rate limit: off")
	}

	if s.Engine.AIAvailable() {
		fmt.Fprintln(out, "Model: critique and rewrite enabled")
	} else {
		fmt.Fprintln(out, "Model: not configured, /improve answers 503 and analyses skip the critique")
	}
	if stores := s.Engine.Stores.Enabled(); len(stores) > 0 {
		fmt.Fprintf(out, "Storage: %s\n", strings.Join(stores, ", "))
	} else {
		fmt.Fprintln(out, "Storage: none")
	}
}
