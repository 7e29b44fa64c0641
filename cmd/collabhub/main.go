// Command collabhub runs the multi-project collaboration hub server.
package main

import (
	"os"

	"github.com/collabhub/server/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
