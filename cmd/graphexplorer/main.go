// Command graphexplorer is the command-line front end of the graph explorer:
// it queries and edits a graph through the HTTP API, moves snapshots in and
// out of Neo4j, and runs the reference service and the MCP tool server.
package main

import (
	"os"

	"graphexplorer/internal/secrets"
)

func main() {
	cmd, a := newCLI(secrets.Open)
	if err := execute(cmd, a); err != nil {
		presentError(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
